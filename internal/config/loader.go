package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. CHATLINE_SERVER_URL.
const EnvPrefix = "CHATLINE"

// Loader handles configuration loading with Viper.
type Loader struct {
	v          *viper.Viper
	configFile string
	searchDirs []string
}

// NewLoader creates a new configuration loader.
func NewLoader() *Loader {
	return &Loader{
		v: viper.New(),
	}
}

// SetConfigFile sets an explicit config file path.
func (l *Loader) SetConfigFile(path string) {
	l.configFile = path
}

// SetSearchDirs replaces the directories searched for config.yaml.
func (l *Loader) SetSearchDirs(dirs ...string) {
	l.searchDirs = dirs
}

// Load loads configuration with proper precedence:
// defaults < config file < env vars < Set overrides
func (l *Loader) Load() (*Config, error) {
	cfg := DefaultConfig()

	l.setupViper(cfg)

	if err := l.loadConfigFile(); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	if err := l.v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	expandPaths(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// expandTilde expands ~ to the user's home directory.
func expandTilde(path string) string {
	if path == "" {
		return path
	}
	if path == "~" {
		home, _ := os.UserHomeDir()
		return home
	}
	if strings.HasPrefix(path, "~/") {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, path[2:])
	}
	return path
}

func expandPaths(cfg *Config) {
	cfg.State.Path = expandTilde(cfg.State.Path)
	cfg.Logging.File = expandTilde(cfg.Logging.File)
	cfg.DevServer.DBPath = expandTilde(cfg.DevServer.DBPath)
}

func (l *Loader) setupViper(cfg *Config) {
	v := l.v

	v.SetConfigName("config")
	v.SetConfigType("yaml")

	for _, dir := range l.configDirs() {
		v.AddConfigPath(dir)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))

	l.setDefaults(cfg)

	// Unmarshal only sees env vars for nested keys that are bound explicitly.
	bindEnvVars(v)

	v.AutomaticEnv()
}

func (l *Loader) configDirs() []string {
	if l.searchDirs != nil {
		return l.searchDirs
	}
	var dirs []string
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		dirs = append(dirs, filepath.Join(xdgConfig, "chatline"))
	}
	if homeDir, _ := os.UserHomeDir(); homeDir != "" {
		dirs = append(dirs, filepath.Join(homeDir, ".config", "chatline"))
	}
	return append(dirs, ".")
}

func (l *Loader) setDefaults(cfg *Config) {
	v := l.v

	v.SetDefault("server.url", cfg.Server.URL)
	v.SetDefault("server.timeout", cfg.Server.Timeout)
	v.SetDefault("server.refresh_interval", cfg.Server.RefreshInterval)

	v.SetDefault("auth.token", cfg.Auth.Token)

	v.SetDefault("presence.enabled", cfg.Presence.Enabled)
	v.SetDefault("presence.reconnect_interval", cfg.Presence.ReconnectInterval)

	v.SetDefault("tui.theme", cfg.TUI.Theme)
	v.SetDefault("tui.sidebar_width", cfg.TUI.SidebarWidth)

	v.SetDefault("state.path", cfg.State.Path)

	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.format", cfg.Logging.Format)
	v.SetDefault("logging.file", cfg.Logging.File)
	v.SetDefault("logging.enable_caller", cfg.Logging.EnableCaller)

	v.SetDefault("devserver.listen", cfg.DevServer.Listen)
	v.SetDefault("devserver.db_path", cfg.DevServer.DBPath)
	v.SetDefault("devserver.seed", cfg.DevServer.Seed)
}

// loadConfigFile reads the config file. A missing file is only an error when
// it was named explicitly.
func (l *Loader) loadConfigFile() error {
	if l.configFile != "" {
		l.v.SetConfigFile(l.configFile)
	}

	if err := l.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return err
	}
	return nil
}

// Set overrides a key. Overrides beat every other source.
func (l *Loader) Set(key string, value any) {
	l.v.Set(key, value)
}

// Keys lists every configurable key.
var Keys = []string{
	"server.url",
	"server.timeout",
	"server.refresh_interval",
	"auth.token",
	"presence.enabled",
	"presence.reconnect_interval",
	"tui.theme",
	"tui.sidebar_width",
	"state.path",
	"logging.level",
	"logging.format",
	"logging.file",
	"logging.enable_caller",
	"devserver.listen",
	"devserver.db_path",
	"devserver.seed",
}

// EnvVar returns the environment variable that overrides key.
func EnvVar(key string) string {
	return EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

func bindEnvVars(v *viper.Viper) {
	for _, key := range Keys {
		_ = v.BindEnv(key, EnvVar(key))
	}
}
