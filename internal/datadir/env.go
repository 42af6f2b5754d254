package datadir

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

// EnvFileEnvVar allows overriding the .env file path entirely.
const EnvFileEnvVar = "KB_ENV_FILE"

// LoadEnv loads .env files from standard locations in priority order.
// Earlier files win over later ones, and variables already present in the
// environment are never overridden.
//
// Search order:
//  1. KB_ENV_FILE (if set, only that file is loaded)
//  2. {dataRoot}/.env
//  3. ./.env
//  4. {dir}/.env for each extra dir
func LoadEnv(dataRoot string, dirs ...string) error {
	files := FindEnvFiles(dataRoot, dirs...)
	if len(files) == 0 {
		return nil
	}
	// godotenv.Load never overrides a set variable, so loading in priority
	// order gives first-write-wins across files.
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("failed to load %s: %w", f, err)
		}
	}
	return nil
}

// FindEnvFiles returns the .env files LoadEnv would read, in order.
// Files that don't exist on disk are excluded.
func FindEnvFiles(dataRoot string, dirs ...string) []string {
	var found []string
	for _, p := range envPaths(dataRoot, dirs...) {
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			found = append(found, p)
		}
	}
	return found
}

func envPaths(dataRoot string, dirs ...string) []string {
	if override := os.Getenv(EnvFileEnvVar); override != "" {
		return []string{override}
	}

	var paths []string
	if dataRoot != "" {
		paths = append(paths, filepath.Join(dataRoot, ".env"))
	}
	if cwd, err := os.Getwd(); err == nil {
		paths = append(paths, filepath.Join(cwd, ".env"))
	}
	for _, d := range dirs {
		if d != "" {
			paths = append(paths, filepath.Join(d, ".env"))
		}
	}
	return dedupPaths(paths)
}

// dedupPaths removes duplicate paths (after cleaning) while preserving order.
func dedupPaths(paths []string) []string {
	seen := make(map[string]bool, len(paths))
	var out []string
	for _, p := range paths {
		clean := filepath.Clean(p)
		if seen[clean] {
			continue
		}
		seen[clean] = true
		out = append(out, p)
	}
	return out
}
