// Package config handles chatline configuration loading and validation.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tOgg1/chatline/internal/logging"
)

// Theme names accepted by tui.theme.
const (
	ThemeDefault      = "default"
	ThemeHighContrast = "high-contrast"
)

// Config is the root configuration structure for chatline.
type Config struct {
	// Server is the chat backend the client talks to.
	Server ServerConfig `yaml:"server" mapstructure:"server"`

	// Auth holds credentials.
	Auth AuthConfig `yaml:"auth" mapstructure:"auth"`

	// Presence controls the live presence socket.
	Presence PresenceConfig `yaml:"presence" mapstructure:"presence"`

	// TUI settings
	TUI TUIConfig `yaml:"tui" mapstructure:"tui"`

	// State controls what is remembered between sessions.
	State StateConfig `yaml:"state" mapstructure:"state"`

	// Logging settings
	Logging LoggingConfig `yaml:"logging" mapstructure:"logging"`

	// DevServer configures `chatline serve`.
	DevServer DevServerConfig `yaml:"devserver" mapstructure:"devserver"`
}

// ServerConfig contains backend connection settings.
type ServerConfig struct {
	// URL is the backend base URL (http or https).
	URL string `yaml:"url" mapstructure:"url"`

	// Timeout bounds each HTTP request.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`

	// RefreshInterval refetches the user directory while the sidebar runs.
	// Zero disables it.
	RefreshInterval time.Duration `yaml:"refresh_interval" mapstructure:"refresh_interval"`
}

// AuthConfig contains credentials.
type AuthConfig struct {
	// Token is sent as a bearer token.
	Token string `yaml:"token" mapstructure:"token"`
}

// PresenceConfig contains presence feed settings.
type PresenceConfig struct {
	Enabled           bool          `yaml:"enabled" mapstructure:"enabled"`
	ReconnectInterval time.Duration `yaml:"reconnect_interval" mapstructure:"reconnect_interval"`
}

// TUIConfig contains TUI settings.
type TUIConfig struct {
	// Theme is default or high-contrast.
	Theme string `yaml:"theme" mapstructure:"theme"`

	// SidebarWidth is the contact list width in cells.
	SidebarWidth int `yaml:"sidebar_width" mapstructure:"sidebar_width"`
}

// StateConfig contains persisted-state settings.
type StateConfig struct {
	// Path is the JSON state file. Empty disables persistence.
	Path string `yaml:"path" mapstructure:"path"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	// Level is the minimum log level (debug, info, warn, error).
	Level string `yaml:"level" mapstructure:"level"`

	// Format is the output format (json, console).
	Format string `yaml:"format" mapstructure:"format"`

	// File is an optional log file path. The TUI discards logs without one.
	File string `yaml:"file" mapstructure:"file"`

	// EnableCaller adds caller information to logs.
	EnableCaller bool `yaml:"enable_caller" mapstructure:"enable_caller"`
}

// DevServerConfig contains development backend settings.
type DevServerConfig struct {
	Listen string `yaml:"listen" mapstructure:"listen"`
	DBPath string `yaml:"db_path" mapstructure:"db_path"`
	Seed   bool   `yaml:"seed" mapstructure:"seed"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	homeDir, _ := os.UserHomeDir()
	dataDir := filepath.Join(homeDir, ".local", "share", "chatline")

	return &Config{
		Server: ServerConfig{
			URL:             "http://localhost:5001",
			Timeout:         15 * time.Second,
			RefreshInterval: time.Minute,
		},
		Presence: PresenceConfig{
			Enabled:           true,
			ReconnectInterval: 2 * time.Second,
		},
		TUI: TUIConfig{
			Theme:        ThemeDefault,
			SidebarWidth: 34,
		},
		State: StateConfig{
			Path: filepath.Join(dataDir, "state.json"),
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		DevServer: DevServerConfig{
			Listen: ":5001",
			DBPath: filepath.Join(dataDir, "dev.db"),
			Seed:   true,
		},
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	u, err := url.Parse(strings.TrimSpace(c.Server.URL))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("server.url must be an http(s) URL, got %q", c.Server.URL)
	}
	if c.Server.Timeout <= 0 {
		return fmt.Errorf("server.timeout must be positive")
	}
	if c.Server.RefreshInterval < 0 {
		return fmt.Errorf("server.refresh_interval must not be negative")
	}
	if c.Presence.ReconnectInterval < 100*time.Millisecond {
		return fmt.Errorf("presence.reconnect_interval must be at least 100ms")
	}
	switch c.TUI.Theme {
	case ThemeDefault, ThemeHighContrast:
	default:
		return fmt.Errorf("tui.theme must be one of %s, %s", ThemeDefault, ThemeHighContrast)
	}
	if c.TUI.SidebarWidth < 20 || c.TUI.SidebarWidth > 120 {
		return fmt.Errorf("tui.sidebar_width must be between 20 and 120")
	}
	if !logging.ValidLevel(c.Logging.Level) {
		return fmt.Errorf("logging.level %q is not a valid level", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json")
	}
	if strings.TrimSpace(c.DevServer.Listen) == "" {
		return fmt.Errorf("devserver.listen is required")
	}
	return nil
}

// LoggingSettings converts the logging section for logging.Init.
func (c *Config) LoggingSettings() logging.Config {
	return logging.Config{
		Level:        c.Logging.Level,
		Format:       c.Logging.Format,
		EnableCaller: c.Logging.EnableCaller,
	}
}
