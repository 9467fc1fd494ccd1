package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir()) // no .env
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Database.Driver != "sqlite" || cfg.Database.BatchSize != 1000 {
		t.Errorf("database defaults: %+v", cfg.Database)
	}
	if cfg.Pipeline.LookbackDays != 200 || cfg.BarCount() != 400 {
		t.Errorf("lookback %d, bars %d", cfg.Pipeline.LookbackDays, cfg.BarCount())
	}
	if cfg.Indicators.YearWindow != 252 || cfg.Indicators.MomentumWindow != 14 {
		t.Errorf("indicator defaults: %+v", cfg.Indicators)
	}
	if cfg.Indicators.Weights.Momentum != 0.30 {
		t.Errorf("weights: %+v", cfg.Indicators.Weights)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoad_YAMLAndEnvOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	path := writeConfig(t, `
database:
  driver: postgres
  name: ledger
  user: yaml_user
  port: 6543
redis:
  addr: localhost:6379
  ttl: 10m
data_source:
  provider: rest
  base_url: http://yaml.example
pipeline:
  lookback_days: 100
  bars: 250
schedule:
  symbols: [RELIANCE, TCS]
`)
	t.Setenv("DB_USER", "env_user")
	t.Setenv("DB_PORT", "7777")
	t.Setenv("DATA_BASE_URL", "http://env.example")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Database.User != "env_user" || cfg.Database.Port != 7777 {
		t.Errorf("env should beat yaml: %+v", cfg.Database)
	}
	if cfg.Database.Name != "ledger" {
		t.Errorf("yaml value lost: %q", cfg.Database.Name)
	}
	if cfg.DataSource.BaseURL != "http://env.example" {
		t.Errorf("base_url = %q", cfg.DataSource.BaseURL)
	}
	if cfg.Redis.TTL != 10*time.Minute {
		t.Errorf("ttl = %v", cfg.Redis.TTL)
	}
	if cfg.BarCount() != 250 {
		t.Errorf("explicit bars should win, got %d", cfg.BarCount())
	}
	if len(cfg.Schedule.Symbols) != 2 {
		t.Errorf("symbols = %v", cfg.Schedule.Symbols)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestLoad_DotEnv(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("SQLITE_PATH=/tmp/from-dotenv.db\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Chdir(dir)
	t.Setenv("SQLITE_PATH", "")
	os.Unsetenv("SQLITE_PATH")

	cfg, err := Load("missing.yaml")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Database.SQLitePath != "/tmp/from-dotenv.db" {
		t.Errorf("sqlite_path = %q", cfg.Database.SQLitePath)
	}
}

func TestLoad_RetriesCanBeDisabled(t *testing.T) {
	t.Chdir(t.TempDir())
	path := writeConfig(t, "data_source:\n  retries: -1\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DataSource.Retries != -1 {
		t.Errorf("retries = %d, want -1 kept", cfg.DataSource.Retries)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestLoad_BadEnvInt(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("LOOKBACK_DAYS", "many")
	if _, err := Load("missing.yaml"); err == nil {
		t.Error("expected error for non-numeric LOOKBACK_DAYS")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown driver", func(c *Config) { c.Database.Driver = "oracle" }},
		{"postgres without name", func(c *Config) { c.Database.Driver = "postgres" }},
		{"clickhouse without addr", func(c *Config) { c.Database.Driver = "clickhouse" }},
		{"rest without base url", func(c *Config) { c.DataSource.Provider = "rest" }},
		{"unknown provider", func(c *Config) { c.DataSource.Provider = "bloomberg" }},
		{"negative weight", func(c *Config) { c.Indicators.Weights.Long = -1 }},
		{"bad log format", func(c *Config) { c.Log.Format = "xml" }},
		{"telegram without chat", func(c *Config) { c.Telegram.BotToken = "t" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{}
			cfg.applyDefaults()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}
