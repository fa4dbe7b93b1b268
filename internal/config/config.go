// Package config provides configuration management for the portfolio tracker.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Quotes  QuotesConfig  `mapstructure:"quotes"`
	Backend BackendConfig `mapstructure:"backend"`
	Store   StoreConfig   `mapstructure:"store"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// QuotesConfig holds quote provider configuration.
type QuotesConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
}

// BackendConfig holds persistence backend configuration.
type BackendConfig struct {
	URL         string `mapstructure:"url"`
	AnonKey     string `mapstructure:"anon_key"`
	SessionFile string `mapstructure:"session_file"`
}

// StoreConfig holds local snapshot store configuration.
type StoreConfig struct {
	Path string `mapstructure:"path"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level    string `mapstructure:"level"`
	FilePath string `mapstructure:"file_path"`
}

// DefaultConfigDir returns the default configuration directory.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/stocks"
	}
	return filepath.Join(home, ".config", "stocks")
}

// Load loads configuration from the specified directory, then applies
// environment variable overrides. A missing config file is not an error:
// the tracker can run entirely off environment variables.
func Load(configDir string) (*Config, error) {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}

	cfg := &Config{}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config.toml: %w", err)
		}
	}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config.toml: %w", err)
	}

	applyEnvOverrides(cfg)
	applyDefaults(cfg, configDir)

	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("TWELVE_DATA_API_KEY"); v != "" {
		cfg.Quotes.APIKey = v
	}
	if v := os.Getenv("TWELVE_DATA_BASE_URL"); v != "" {
		cfg.Quotes.BaseURL = v
	}
	if v := os.Getenv("SUPABASE_URL"); v != "" {
		cfg.Backend.URL = v
	}
	if v := os.Getenv("SUPABASE_ANON_KEY"); v != "" {
		cfg.Backend.AnonKey = v
	}
	if v := os.Getenv("STOCKS_DB_PATH"); v != "" {
		cfg.Store.Path = v
	}
	if v := os.Getenv("STOCKS_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

func applyDefaults(cfg *Config, configDir string) {
	if cfg.Quotes.BaseURL == "" {
		cfg.Quotes.BaseURL = "https://api.twelvedata.com"
	}
	if cfg.Backend.SessionFile == "" {
		cfg.Backend.SessionFile = filepath.Join(configDir, "session.json")
	}
	if cfg.Store.Path == "" {
		cfg.Store.Path = filepath.Join(configDir, "stocks.db")
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.FilePath == "" {
		cfg.Logging.FilePath = filepath.Join(configDir, "logs", "stocks.log")
	}
}
