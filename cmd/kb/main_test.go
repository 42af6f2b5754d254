package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Bella2013quq/Local-Multimodal-AI-Agent/internal/datadir"
	"github.com/Bella2013quq/Local-Multimodal-AI-Agent/internal/llm/gemini"
)

// execute runs the CLI with args against an isolated data directory.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv(datadir.EnvVar, t.TempDir())
	t.Setenv(datadir.EnvFileEnvVar, filepath.Join(t.TempDir(), "none.env"))

	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestRootCmd_Aliases(t *testing.T) {
	root := newRootCmd()
	for alias, name := range map[string]string{
		"add-paper":    "add_paper",
		"add-image":    "add_image",
		"batch-ingest": "batch_ingest",
		"search-paper": "search_paper",
		"list-papers":  "list_papers",
		"search-image": "search_image",
		"ask-image":    "ask_image",
	} {
		cmd, _, err := root.Find([]string{alias})
		require.NoError(t, err, alias)
		assert.Equal(t, name, cmd.Name())
	}
}

func TestAddPaper_MissingFile(t *testing.T) {
	out, err := execute(t, "add_paper", filepath.Join(t.TempDir(), "missing.pdf"))
	require.NoError(t, err)
	assert.Contains(t, out, "file not found")
}

func TestAddImage_Directory(t *testing.T) {
	out, err := execute(t, "add_image", t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, out, "expected a file")
}

func TestBatchIngest_MissingFolder(t *testing.T) {
	out, err := execute(t, "batch_ingest", filepath.Join(t.TempDir(), "nope"), "--workers", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "folder not found")
}

func TestArgsValidation(t *testing.T) {
	_, err := execute(t, "ask_image", "only a description")
	assert.Error(t, err)

	_, err = execute(t, "add_paper")
	assert.Error(t, err)

	_, err = execute(t, "stats", "extra")
	assert.Error(t, err)
}

func TestStats_EmptyStore(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	out, err := execute(t, "--config", cfgPath, "stats")
	require.NoError(t, err)
	assert.Contains(t, out, "paper_db")
	assert.Contains(t, out, "image_desc_db")
	assert.Contains(t, out, "visual_db")

	_, err = os.Stat(cfgPath)
	assert.NoError(t, err, "default config written on first use")
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "kb dev")
	assert.Contains(t, out, "Go version:")
}

func TestLoadConfig_UsesDataDir(t *testing.T) {
	root := t.TempDir()
	t.Setenv(datadir.EnvVar, root)
	t.Setenv(datadir.EnvFileEnvVar, filepath.Join(root, "none.env"))

	cfg, err := loadConfig(&rootOptions{})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "data", "kb.db"), cfg.Store.Path)
	assert.Equal(t, filepath.Join(root, "papers"), cfg.Archive.PapersRoot)
	assert.Equal(t, filepath.Join(root, "images"), cfg.Archive.ImagesRoot)

	_, err = os.Stat(filepath.Join(root, "config.yaml"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(root, "inbox"))
	assert.NoError(t, err)
}

func TestSetup_MissingAPIKey(t *testing.T) {
	root := t.TempDir()
	t.Setenv(datadir.EnvVar, root)
	t.Setenv(datadir.EnvFileEnvVar, filepath.Join(root, "none.env"))
	t.Setenv("GEMINI_API_KEY", "")

	_, err := setup(context.Background(), &rootOptions{})
	assert.ErrorIs(t, err, gemini.ErrMissingAPIKey)
}
