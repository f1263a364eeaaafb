// Package config handles synchronizer configuration loading and validation.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure.
type Config struct {
	// API settings for the durable store.
	API APIConfig `yaml:"api" mapstructure:"api"`

	// Push settings for the realtime channel.
	Push PushConfig `yaml:"push" mapstructure:"push"`

	// Auth settings for the credential provider.
	Auth AuthConfig `yaml:"auth" mapstructure:"auth"`

	// Notifications settings.
	Notifications NotificationConfig `yaml:"notifications" mapstructure:"notifications"`

	// TUI settings.
	TUI TUIConfig `yaml:"tui" mapstructure:"tui"`

	// Logging settings.
	Logging LoggingConfig `yaml:"logging" mapstructure:"logging"`
}

// APIConfig configures the persistence client.
type APIConfig struct {
	// BaseURL is the REST API root.
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`

	// Timeout bounds each request.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// PushConfig configures the push-channel manager.
type PushConfig struct {
	// URL is the websocket endpoint.
	URL string `yaml:"url" mapstructure:"url"`

	// HandshakeTimeout bounds the websocket dial.
	HandshakeTimeout time.Duration `yaml:"handshake_timeout" mapstructure:"handshake_timeout"`

	// ReconnectMin/ReconnectMax bound the backoff between attempts.
	ReconnectMin time.Duration `yaml:"reconnect_min" mapstructure:"reconnect_min"`
	ReconnectMax time.Duration `yaml:"reconnect_max" mapstructure:"reconnect_max"`
}

// AuthConfig configures where the session token comes from.
type AuthConfig struct {
	// TokenEnv names the environment variable holding the bearer token.
	TokenEnv string `yaml:"token_env" mapstructure:"token_env"`

	// UserID is the local vendor's user identifier, used to tell own sends
	// apart from counterpart messages.
	UserID string `yaml:"user_id" mapstructure:"user_id"`
}

// NotificationConfig configures the dispatcher.
type NotificationConfig struct {
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
	Sound   bool `yaml:"sound" mapstructure:"sound"`
}

// TUIConfig configures the terminal UI.
type TUIConfig struct {
	// Breakpoint is the width at which both panels are shown.
	Breakpoint int `yaml:"breakpoint" mapstructure:"breakpoint"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		API: APIConfig{
			Timeout: 10 * time.Second,
		},
		Push: PushConfig{
			HandshakeTimeout: 5 * time.Second,
			ReconnectMin:     1 * time.Second,
			ReconnectMax:     30 * time.Second,
		},
		Auth: AuthConfig{
			TokenEnv: "VENDORCHAT_TOKEN",
		},
		Notifications: NotificationConfig{
			Enabled: true,
			Sound:   true,
		},
		TUI: TUIConfig{
			Breakpoint: 100,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.API.BaseURL) == "" {
		return fmt.Errorf("api.base_url is required")
	}
	if c.API.Timeout <= 0 {
		return fmt.Errorf("api.timeout must be positive")
	}
	if c.Push.ReconnectMin <= 0 || c.Push.ReconnectMax < c.Push.ReconnectMin {
		return fmt.Errorf("push.reconnect_min/max must satisfy 0 < min <= max")
	}
	if c.TUI.Breakpoint <= 0 {
		return fmt.Errorf("tui.breakpoint must be positive")
	}
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json")
	}
	return nil
}
