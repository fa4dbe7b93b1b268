package config

import (
	"os"
	"path/filepath"
	"testing"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"TWELVE_DATA_API_KEY", "TWELVE_DATA_BASE_URL",
		"SUPABASE_URL", "SUPABASE_ANON_KEY",
		"STOCKS_DB_PATH", "STOCKS_LOG_LEVEL",
	} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Quotes.BaseURL != "https://api.twelvedata.com" {
		t.Errorf("BaseURL = %q", cfg.Quotes.BaseURL)
	}
	if cfg.Backend.SessionFile != filepath.Join(dir, "session.json") {
		t.Errorf("SessionFile = %q", cfg.Backend.SessionFile)
	}
	if cfg.Store.Path != filepath.Join(dir, "stocks.db") {
		t.Errorf("Store.Path = %q", cfg.Store.Path)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level = %q", cfg.Logging.Level)
	}
}

func TestLoad_ReadsTOML(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	toml := `
[quotes]
api_key = "file-key-1234567890"
base_url = "https://quotes.example.com"

[backend]
url = "https://project.supabase.co"
anon_key = "file-anon-key"

[logging]
level = "debug"
`
	if err := os.WriteFile(filepath.Join(dir, "config.toml"), []byte(toml), 0600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Quotes.APIKey != "file-key-1234567890" {
		t.Errorf("APIKey = %q", cfg.Quotes.APIKey)
	}
	if cfg.Quotes.BaseURL != "https://quotes.example.com" {
		t.Errorf("BaseURL = %q", cfg.Quotes.BaseURL)
	}
	if cfg.Backend.URL != "https://project.supabase.co" {
		t.Errorf("Backend.URL = %q", cfg.Backend.URL)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q", cfg.Logging.Level)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	toml := `
[quotes]
api_key = "file-key-1234567890"

[backend]
url = "https://file.supabase.co"
anon_key = "file-anon-key"
`
	if err := os.WriteFile(filepath.Join(dir, "config.toml"), []byte(toml), 0600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("TWELVE_DATA_API_KEY", "env-key-0987654321")
	t.Setenv("SUPABASE_URL", "https://env.supabase.co")
	t.Setenv("STOCKS_DB_PATH", "/tmp/env-stocks.db")
	t.Setenv("STOCKS_LOG_LEVEL", "warn")

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Quotes.APIKey != "env-key-0987654321" {
		t.Errorf("APIKey = %q, env must win", cfg.Quotes.APIKey)
	}
	if cfg.Backend.URL != "https://env.supabase.co" {
		t.Errorf("Backend.URL = %q, env must win", cfg.Backend.URL)
	}
	if cfg.Backend.AnonKey != "file-anon-key" {
		t.Errorf("AnonKey = %q, file value must survive", cfg.Backend.AnonKey)
	}
	if cfg.Store.Path != "/tmp/env-stocks.db" {
		t.Errorf("Store.Path = %q", cfg.Store.Path)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("Logging.Level = %q", cfg.Logging.Level)
	}
}

func TestLoad_MalformedFileFails(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "config.toml"), []byte("not [valid toml"), 0600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	if _, err := Load(dir); err == nil {
		t.Fatal("expected error for malformed config file")
	}
}
