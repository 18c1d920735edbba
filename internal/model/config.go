package model

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// GatewayConfig holds the connection settings for the remote mail gateway.
type GatewayConfig struct {
	// BaseURL is the root URL of the gateway (e.g. http://localhost:5000).
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`

	// TimeoutSec is the per-request HTTP timeout.
	TimeoutSec int `mapstructure:"timeout_sec" yaml:"timeout_sec"`
}

// SyncConfig holds the tunables for the sync scheduler and reconciler.
type SyncConfig struct {
	// AutoIntervalSec is the auto-sync timer period.
	AutoIntervalSec int `mapstructure:"auto_interval_sec" yaml:"auto_interval_sec"`

	// MinIntervalSec is the minimum gap between any two syncs; auto
	// ticks inside this window are skipped.
	MinIntervalSec int `mapstructure:"min_interval_sec" yaml:"min_interval_sec"`

	// FullSyncLimit caps how many messages a manual sync asks the
	// gateway to refresh.
	FullSyncLimit int `mapstructure:"full_sync_limit" yaml:"full_sync_limit"`

	// PageSize is how many messages one listing page holds.
	PageSize int `mapstructure:"page_size" yaml:"page_size"`

	// PreserveAnnotations controls whether an incremental merge keeps a
	// previously written annotation for a re-sighted composite key
	// instead of resetting it to the folder default.
	PreserveAnnotations bool `mapstructure:"preserve_annotations" yaml:"preserve_annotations"`
}

// DisplayConfig holds UI preferences.
type DisplayConfig struct {
	Theme         string `mapstructure:"theme" yaml:"theme"`
	DefaultFolder string `mapstructure:"default_folder" yaml:"default_folder"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	Gateway GatewayConfig `mapstructure:"gateway" yaml:"gateway"`
	Sync    SyncConfig    `mapstructure:"sync" yaml:"sync"`
	Display DisplayConfig `mapstructure:"display" yaml:"display"`
}

// DefaultConfigPath returns the default path for the configuration file,
// located at ~/.config/acemail/config.yaml.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "config.yaml")
	}
	return filepath.Join(home, ".config", "acemail", "config.yaml")
}

// DefaultDataPath returns the default path for the local SQLite database.
func DefaultDataPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "acemail.db")
	}
	return filepath.Join(home, ".config", "acemail", "acemail.db")
}

// defaultAppConfig returns a sensible default configuration.
func defaultAppConfig() *AppConfig {
	return &AppConfig{
		Gateway: GatewayConfig{
			BaseURL:    "http://localhost:5000",
			TimeoutSec: 30,
		},
		Sync: SyncConfig{
			AutoIntervalSec: 30,
			MinIntervalSec:  10,
			FullSyncLimit:   200,
			PageSize:        10,
		},
		Display: DisplayConfig{
			Theme:         "default",
			DefaultFolder: FolderInbox,
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
	v.SetDefault("gateway.base_url", "http://localhost:5000")
	v.SetDefault("gateway.timeout_sec", 30)
	v.SetDefault("sync.auto_interval_sec", 30)
	v.SetDefault("sync.min_interval_sec", 10)
	v.SetDefault("sync.full_sync_limit", 200)
	v.SetDefault("sync.page_size", 10)
	v.SetDefault("display.theme", "default")
	v.SetDefault("display.default_folder", FolderInbox)

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

	v.Set("gateway", cfg.Gateway)
	v.Set("sync", cfg.Sync)
	v.Set("display", cfg.Display)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}
