package datadir

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeEnv(t *testing.T, dir, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte(content), 0o600))
}

func TestLoadEnv_FirstFileWins(t *testing.T) {
	t.Setenv(EnvFileEnvVar, "")
	dataRoot, extra := t.TempDir(), t.TempDir()
	writeEnv(t, dataRoot, "KB_TEST_A=from-root\n")
	writeEnv(t, extra, "KB_TEST_A=from-extra\nKB_TEST_B=\"quoted\"\n")
	t.Setenv("KB_TEST_A", "")
	os.Unsetenv("KB_TEST_A")
	t.Setenv("KB_TEST_B", "")
	os.Unsetenv("KB_TEST_B")

	require.NoError(t, LoadEnv(dataRoot, extra))
	assert.Equal(t, "from-root", os.Getenv("KB_TEST_A"))
	assert.Equal(t, "quoted", os.Getenv("KB_TEST_B"))
}

func TestLoadEnv_ExistingVarNotOverridden(t *testing.T) {
	t.Setenv(EnvFileEnvVar, "")
	dataRoot := t.TempDir()
	writeEnv(t, dataRoot, "KB_TEST_C=from-file\n")
	t.Setenv("KB_TEST_C", "from-shell")

	require.NoError(t, LoadEnv(dataRoot))
	assert.Equal(t, "from-shell", os.Getenv("KB_TEST_C"))
}

func TestFindEnvFiles_Override(t *testing.T) {
	dir := t.TempDir()
	override := filepath.Join(dir, "custom.env")
	require.NoError(t, os.WriteFile(override, []byte("X=1\n"), 0o600))
	writeEnv(t, dir, "Y=2\n")
	t.Setenv(EnvFileEnvVar, override)

	assert.Equal(t, []string{override}, FindEnvFiles(dir))
}

func TestFindEnvFiles_SkipsMissing(t *testing.T) {
	t.Setenv(EnvFileEnvVar, "")
	assert.Empty(t, FindEnvFiles(t.TempDir()))
	assert.Equal(t, []string{"a", "b"}, dedupPaths([]string{"a", "b", "./a"}))
}
