package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	cfg := DefaultConfig()
	cfg.API.BaseURL = "https://api.example.com/v1"
	return cfg
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 10*time.Second, cfg.API.Timeout)
	assert.Equal(t, time.Second, cfg.Push.ReconnectMin)
	assert.Equal(t, 30*time.Second, cfg.Push.ReconnectMax)
	assert.Equal(t, "VENDORCHAT_TOKEN", cfg.Auth.TokenEnv)
	assert.True(t, cfg.Notifications.Enabled)
	assert.Equal(t, 100, cfg.TUI.Breakpoint)
	assert.Equal(t, "console", cfg.Logging.Format)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"missing base url", func(c *Config) { c.API.BaseURL = " " }, "api.base_url"},
		{"zero timeout", func(c *Config) { c.API.Timeout = 0 }, "api.timeout"},
		{"zero reconnect min", func(c *Config) { c.Push.ReconnectMin = 0 }, "reconnect_min"},
		{"max below min", func(c *Config) {
			c.Push.ReconnectMin = 10 * time.Second
			c.Push.ReconnectMax = time.Second
		}, "reconnect_min"},
		{"zero breakpoint", func(c *Config) { c.TUI.Breakpoint = 0 }, "tui.breakpoint"},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }, "logging.format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
