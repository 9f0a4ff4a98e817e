package model

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// RemoteConfig holds settings for the hosted page/database service that
// is the data of record.
type RemoteConfig struct {
	// BaseURL is the root URL of the service API.
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`

	// TodoDatabaseID is the remote database holding todos.
	TodoDatabaseID string `mapstructure:"todo_database_id" yaml:"todo_database_id"`

	// LogDatabaseID is the remote database holding daily logs.
	LogDatabaseID string `mapstructure:"log_database_id" yaml:"log_database_id"`

	// LogWindowDays bounds how many trailing days of logs hydration pulls.
	LogWindowDays int `mapstructure:"log_window_days" yaml:"log_window_days"`
}

// SyncConfig holds settings for the background sync engine.
type SyncConfig struct {
	// FlushIntervalSec is how often (in seconds) the periodic flush runs.
	FlushIntervalSec int `mapstructure:"flush_interval_sec" yaml:"flush_interval_sec"`
}

// AgentConfig holds settings for the chat assistant integration.
type AgentConfig struct {
	Model     string `mapstructure:"model" yaml:"model"`
	MaxTokens int    `mapstructure:"max_tokens" yaml:"max_tokens"`
}

// CaptureConfig holds settings for the optional email-to-todo capture.
type CaptureConfig struct {
	Enabled         bool   `mapstructure:"enabled" yaml:"enabled"`
	Host            string `mapstructure:"host" yaml:"host"`
	Username        string `mapstructure:"username" yaml:"username"`
	Mailbox         string `mapstructure:"mailbox" yaml:"mailbox"`
	PollIntervalSec int    `mapstructure:"poll_interval_sec" yaml:"poll_interval_sec"`
}

// DisplayConfig holds UI/rendering preferences.
type DisplayConfig struct {
	Theme string `mapstructure:"theme" yaml:"theme"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	Remote  RemoteConfig  `mapstructure:"remote" yaml:"remote"`
	Sync    SyncConfig    `mapstructure:"sync" yaml:"sync"`
	Agent   AgentConfig   `mapstructure:"agent" yaml:"agent"`
	Capture CaptureConfig `mapstructure:"capture" yaml:"capture"`
	Display DisplayConfig `mapstructure:"display" yaml:"display"`
}

// DefaultConfigDir returns the directory holding the configuration
// file, the local database, and the device id file.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "daybook")
}

// DefaultConfigPath returns the default path for the configuration file.
func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.yaml")
}

// defaultAppConfig returns a sensible default configuration.
func defaultAppConfig() *AppConfig {
	return &AppConfig{
		Remote: RemoteConfig{
			LogWindowDays: 30,
		},
		Sync: SyncConfig{
			FlushIntervalSec: 60,
		},
		Agent: AgentConfig{
			Model:     "claude-sonnet-4-5-20250929",
			MaxTokens: 1024,
		},
		Capture: CaptureConfig{
			Mailbox:         "INBOX",
			PollIntervalSec: 300,
		},
		Display: DisplayConfig{
			Theme: "default",
		},
	}
}

// LoadConfig reads configuration from the given YAML file path using Viper.
// If the file does not exist, it returns a default configuration.
func LoadConfig(path string) (*AppConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	// Set defaults so missing keys resolve to sensible values.
	v.SetDefault("remote.log_window_days", 30)
	v.SetDefault("sync.flush_interval_sec", 60)
	v.SetDefault("agent.model", "claude-sonnet-4-5-20250929")
	v.SetDefault("agent.max_tokens", 1024)
	v.SetDefault("capture.mailbox", "INBOX")
	v.SetDefault("capture.poll_interval_sec", 300)
	v.SetDefault("display.theme", "default")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(*os.PathError); ok {
			return defaultAppConfig(), nil
		}
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return defaultAppConfig(), nil
		}
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	cfg := defaultAppConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	return cfg, nil
}

// SaveConfig writes the given configuration to a YAML file at path,
// creating parent directories if needed.
func SaveConfig(path string, cfg *AppConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("remote", cfg.Remote)
	v.Set("sync", cfg.Sync)
	v.Set("agent", cfg.Agent)
	v.Set("capture", cfg.Capture)
	v.Set("display", cfg.Display)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}
