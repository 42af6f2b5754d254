package config

import (
	"fmt"

	"github.com/robfig/cron/v3"
)

// WatchConfig contains settings for scheduled inbox ingestion.
type WatchConfig struct {
	// Folder is scanned on every tick. Empty means {data_dir}/inbox.
	Folder   string `yaml:"folder,omitempty"`
	Schedule string `yaml:"schedule"` // standard 5-field cron or a descriptor like @every 10m
	Workers  int    `yaml:"workers"`
}

// Validate validates the watch configuration.
func (w WatchConfig) Validate() error {
	if _, err := cron.ParseStandard(w.Schedule); err != nil {
		return fmt.Errorf("invalid schedule %q: %w", w.Schedule, err)
	}
	if w.Workers < 0 {
		return fmt.Errorf("workers cannot be negative (got %d)", w.Workers)
	}
	return nil
}

// DefaultWatchConfig returns default watch configuration.
func DefaultWatchConfig() WatchConfig {
	return WatchConfig{
		Schedule: "@every 10m",
		Workers:  1,
	}
}
