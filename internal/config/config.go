// Package config handles configuration loading for ferry.
// It supports XDG config paths, project-level overrides, and environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for ferry.
type Config struct {
	RetentionDays  int             `mapstructure:"retention_days"`
	ActiveCapacity int             `mapstructure:"active_capacity"`
	WatchInterval  time.Duration   `mapstructure:"watch_interval"`
	PromotionOrder string          `mapstructure:"promotion_order"`
	LogPath        string          `mapstructure:"log_path"`
	Storage        StorageConfig   `mapstructure:"storage"`
	Anthropic      AnthropicConfig `mapstructure:"anthropic"`
	Smart          SmartConfig     `mapstructure:"smart"`
	AWS            AWSConfig       `mapstructure:"aws"`
}

// StorageConfig selects and tunes the persistence backend.
type StorageConfig struct {
	// Backend is "files" (one JSON file per collection) or "sqlite".
	Backend string `mapstructure:"backend"`
	// Dir is the data directory. Defaults to .ferry in the working
	// directory.
	Dir string `mapstructure:"dir"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	APIKey string `mapstructure:"api_key"`
}

// SmartConfig controls the Claude-backed step generator.
type SmartConfig struct {
	// Enabled turns the smart generator on. Without it (or without an
	// API key) task creation uses the built-in step templates.
	Enabled bool `mapstructure:"enabled"`
	// Model overrides the default model name.
	Model string `mapstructure:"model"`
}

// AWSConfig holds AWS Bedrock settings for the smart generator.
type AWSConfig struct {
	Bedrock bool   `mapstructure:"bedrock"`
	Region  string `mapstructure:"region"`
	Profile string `mapstructure:"profile"`
}

// Load loads configuration from XDG paths, project overrides, and environment variables.
// Precedence (highest to lowest):
// 1. Environment variables (ANTHROPIC_API_KEY, FERRY_*)
// 2. Project config (.ferry.yaml in current directory or parent)
// 3. User config (~/.config/ferry/config.yaml)
// 4. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	userConfigDir := getUserConfigDir()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(userConfigDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading user config: %w", err)
		}
	}

	// Load project config if present
	projectConfig := findProjectConfig()
	if projectConfig != "" {
		projectViper := viper.New()
		projectViper.SetConfigFile(projectConfig)
		if err := projectViper.ReadInConfig(); err == nil {
			if err := v.MergeConfigMap(projectViper.AllSettings()); err != nil {
				return nil, fmt.Errorf("merging project config: %w", err)
			}
		}
	}

	// Environment variable overrides
	v.SetEnvPrefix("FERRY")
	v.AutomaticEnv()
	v.BindEnv("anthropic.api_key", "ANTHROPIC_API_KEY")

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	// Expand ${VAR} references
	cfg.Anthropic.APIKey = expandEnv(cfg.Anthropic.APIKey)

	return cfg, nil
}

// LoadFromPath loads configuration from a specific path (for testing).
func LoadFromPath(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.Anthropic.APIKey = expandEnv(cfg.Anthropic.APIKey)

	return cfg, nil
}

// Save writes the current configuration to the user config file.
func Save(cfg *Config) error {
	userConfigDir := getUserConfigDir()
	if err := os.MkdirAll(userConfigDir, 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	configPath := filepath.Join(userConfigDir, "config.yaml")

	v := viper.New()
	v.SetConfigFile(configPath)

	v.Set("retention_days", cfg.RetentionDays)
	v.Set("active_capacity", cfg.ActiveCapacity)
	v.Set("watch_interval", cfg.WatchInterval.String())
	v.Set("promotion_order", cfg.PromotionOrder)
	v.Set("log_path", cfg.LogPath)
	v.Set("storage.backend", cfg.Storage.Backend)
	v.Set("storage.dir", cfg.Storage.Dir)
	v.Set("anthropic.api_key", cfg.Anthropic.APIKey)
	v.Set("smart.enabled", cfg.Smart.Enabled)
	v.Set("smart.model", cfg.Smart.Model)
	v.Set("aws.bedrock", cfg.AWS.Bedrock)
	v.Set("aws.region", cfg.AWS.Region)
	v.Set("aws.profile", cfg.AWS.Profile)

	return v.WriteConfig()
}

// GetUserConfigPath returns the path to the user config file.
func GetUserConfigPath() string {
	return filepath.Join(getUserConfigDir(), "config.yaml")
}

// GetProjectConfigPath returns the path to the project config file if it exists.
func GetProjectConfigPath() string {
	return findProjectConfig()
}

// setDefaults configures default values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("retention_days", 7)
	v.SetDefault("active_capacity", 0) // unbounded
	v.SetDefault("watch_interval", "2s")
	v.SetDefault("promotion_order", "fifo")
	v.SetDefault("log_path", "")

	v.SetDefault("storage.backend", "files")
	v.SetDefault("storage.dir", ".ferry")

	v.SetDefault("anthropic.api_key", "")

	v.SetDefault("smart.enabled", true)
	v.SetDefault("smart.model", "")

	v.SetDefault("aws.bedrock", false)
	v.SetDefault("aws.region", "")
	v.SetDefault("aws.profile", "")
}

// getUserConfigDir returns the XDG config directory for ferry.
func getUserConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "ferry")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".config", "ferry")
	}
	return filepath.Join(home, ".config", "ferry")
}

// findProjectConfig searches for .ferry.yaml in the current directory and parents.
func findProjectConfig() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		configPath := filepath.Join(cwd, ".ferry.yaml")
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(cwd)
		if parent == cwd {
			break
		}
		cwd = parent
	}

	return ""
}

// expandEnv expands ${VAR} references in a string.
func expandEnv(s string) string {
	return os.ExpandEnv(s)
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		RetentionDays:  7,
		ActiveCapacity: 0,
		WatchInterval:  2 * time.Second,
		PromotionOrder: "fifo",
		Storage: StorageConfig{
			Backend: "files",
			Dir:     ".ferry",
		},
		Smart: SmartConfig{
			Enabled: true,
		},
	}
}
