package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWatchConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  WatchConfig
		wantErr bool
	}{
		{"default", DefaultWatchConfig(), false},
		{"five field cron", WatchConfig{Schedule: "*/5 * * * *"}, false},
		{"descriptor", WatchConfig{Schedule: "@hourly", Workers: 4}, false},
		{"empty schedule", WatchConfig{}, true},
		{"six fields rejected", WatchConfig{Schedule: "0 */5 * * * *"}, true},
		{"negative workers", WatchConfig{Schedule: "@daily", Workers: -1}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
