// Package datadir resolves where the knowledge base keeps its files.
package datadir

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	// DefaultDirName is the default data directory name under $HOME.
	DefaultDirName = ".kb"

	// EnvVar is the environment variable that overrides the data directory.
	EnvVar = "KB_DATA_DIR"

	// ConfigFileName is the config file looked up in the root.
	ConfigFileName = "config.yaml"

	// StoreFileName is the vector database inside the store directory.
	StoreFileName = "kb.db"

	storeSubdir  = "data"
	papersSubdir = "papers"
	imagesSubdir = "images"
	inboxSubdir  = "inbox"
)

// DataDir provides a single source of truth for all data-directory paths.
// Use New to construct an instance, which resolves the root without touching
// the filesystem.
type DataDir struct {
	root string
}

// New returns a DataDir rooted at the resolved data directory.
//
// Resolution priority:
//  1. KB_DATA_DIR environment variable
//  2. configValue argument (the config file's data_dir field)
//  3. ~/.kb/
func New(configValue string) (*DataDir, error) {
	root, err := resolveRoot(configValue)
	if err != nil {
		return nil, err
	}
	return &DataDir{root: root}, nil
}

// Root returns the base data directory path.
func (d *DataDir) Root() string { return d.root }

// ConfigPath returns {root}/config.yaml.
func (d *DataDir) ConfigPath() string { return filepath.Join(d.root, ConfigFileName) }

// StoreDir returns {root}/data/.
func (d *DataDir) StoreDir() string { return filepath.Join(d.root, storeSubdir) }

// StorePath returns the default vector database path.
func (d *DataDir) StorePath() string { return filepath.Join(d.StoreDir(), StoreFileName) }

// PapersDir returns {root}/papers/, the default paper archive root.
func (d *DataDir) PapersDir() string { return filepath.Join(d.root, papersSubdir) }

// ImagesDir returns {root}/images/, the default image archive root.
func (d *DataDir) ImagesDir() string { return filepath.Join(d.root, imagesSubdir) }

// InboxDir returns {root}/inbox/, the default folder watched for new files.
func (d *DataDir) InboxDir() string { return filepath.Join(d.root, inboxSubdir) }

// FilePath returns the full path to a file directly inside the root directory.
func (d *DataDir) FilePath(filename string) string {
	return filepath.Join(d.root, filename)
}

func (d *DataDir) subdirectories() []string {
	return []string{
		d.StoreDir(),
		d.PapersDir(),
		d.ImagesDir(),
		d.InboxDir(),
	}
}

// EnsureDirs creates the root and all subdirectories.
func (d *DataDir) EnsureDirs() error {
	dirs := append([]string{d.root}, d.subdirectories()...)
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// resolveRoot determines the root path without creating it.
func resolveRoot(configValue string) (string, error) {
	dir := os.Getenv(EnvVar)
	if dir == "" {
		dir = configValue
	}
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("cannot determine home directory: %w", err)
		}
		dir = filepath.Join(home, DefaultDirName)
	}
	return dir, nil
}
