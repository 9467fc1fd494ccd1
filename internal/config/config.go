package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	DataSource DataSourceConfig `yaml:"data_source"`
	Indicators IndicatorConfig  `yaml:"indicators"`
	Pipeline   PipelineConfig   `yaml:"pipeline"`
	Schedule   ScheduleConfig   `yaml:"schedule"`
	Telegram   TelegramConfig   `yaml:"telegram"`
	Log        LogConfig        `yaml:"log"`
	Metrics    MetricsConfig    `yaml:"metrics"`
	Proxy      string           `yaml:"proxy"`
}

// DatabaseConfig selects and configures the persistence backend.
type DatabaseConfig struct {
	Driver         string `yaml:"driver"` // sqlite, postgres, clickhouse, memory
	SQLitePath     string `yaml:"sqlite_path"`
	Host           string `yaml:"host"`
	Port           int    `yaml:"port"`
	Name           string `yaml:"name"`
	User           string `yaml:"user"`
	Password       string `yaml:"password"`
	SSLMode        string `yaml:"sslmode"`
	ClickHouseAddr string `yaml:"clickhouse_addr"`
	BatchSize      int    `yaml:"batch_size"`
}

// RedisConfig configures the optional query cache. An empty Addr disables it.
type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

type DataSourceConfig struct {
	Provider string        `yaml:"provider"` // yahoo, rest, mock
	BaseURL  string        `yaml:"base_url"`
	APIKey   string        `yaml:"api_key"`
	Timeout  time.Duration `yaml:"timeout"`
	Retries  int           `yaml:"retries"` // 0 means 5, negative disables retries
}

// WeightsConfig are the T-Score component weights. All zero means defaults.
type WeightsConfig struct {
	Short    float64 `yaml:"short"`
	Medium   float64 `yaml:"medium"`
	Long     float64 `yaml:"long"`
	Momentum float64 `yaml:"momentum"`
}

type IndicatorConfig struct {
	YearWindow     int           `yaml:"year_window"`
	MomentumWindow int           `yaml:"momentum_window"`
	Weights        WeightsConfig `yaml:"weights"`
}

type PipelineConfig struct {
	Exchange         string `yaml:"exchange"`
	LookbackDays     int    `yaml:"lookback_days"`
	Bars             int    `yaml:"bars"` // 0 means LookbackDays + 200
	FundamentalsFile string `yaml:"fundamentals_file"`
}

// ScheduleConfig drives the cron re-processing of a watch list.
type ScheduleConfig struct {
	Cron    string   `yaml:"cron"` // with seconds field
	Symbols []string `yaml:"symbols"`
}

type TelegramConfig struct {
	BotToken string `yaml:"bot_token"`
	ChatID   string `yaml:"chat_id"`
}

type LogConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"` // console or json
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

// Load reads an optional .env file, then config from a YAML file, then applies
// environment variable overrides and defaults. A missing YAML file is not an error.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := &Config{}
	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyEnv() error {
	strs := map[string]*string{
		"DB_DRIVER":          &c.Database.Driver,
		"DB_HOST":            &c.Database.Host,
		"DB_NAME":            &c.Database.Name,
		"DB_USER":            &c.Database.User,
		"DB_PASSWORD":        &c.Database.Password,
		"SQLITE_PATH":        &c.Database.SQLitePath,
		"CLICKHOUSE_ADDR":    &c.Database.ClickHouseAddr,
		"REDIS_ADDR":         &c.Redis.Addr,
		"REDIS_PASSWORD":     &c.Redis.Password,
		"DATA_PROVIDER":      &c.DataSource.Provider,
		"DATA_BASE_URL":      &c.DataSource.BaseURL,
		"DATA_API_KEY":       &c.DataSource.APIKey,
		"HTTPS_PROXY":        &c.Proxy,
		"TELEGRAM_BOT_TOKEN": &c.Telegram.BotToken,
		"TELEGRAM_CHAT_ID":   &c.Telegram.ChatID,
		"LOG_LEVEL":          &c.Log.Level,
		"SCHEDULE_CRON":      &c.Schedule.Cron,
		"METRICS_ADDR":       &c.Metrics.Addr,
	}
	for key, dst := range strs {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	ints := map[string]*int{
		"DB_PORT":       &c.Database.Port,
		"LOOKBACK_DAYS": &c.Pipeline.LookbackDays,
	}
	for key, dst := range ints {
		v := os.Getenv(key)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("env %s: %w", key, err)
		}
		*dst = n
	}

	if v := os.Getenv("SCHEDULE_SYMBOLS"); v != "" {
		c.Schedule.Symbols = strings.Split(v, ",")
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Database.Driver == "" {
		c.Database.Driver = "sqlite"
	}
	if c.Database.SQLitePath == "" {
		c.Database.SQLitePath = "data/market_ledger.db"
	}
	if c.Database.Host == "" {
		c.Database.Host = "localhost"
	}
	if c.Database.Port == 0 {
		c.Database.Port = 5432
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = "disable"
	}
	if c.Database.BatchSize == 0 {
		c.Database.BatchSize = 1000
	}
	if c.Redis.TTL == 0 {
		c.Redis.TTL = 6 * time.Hour
	}
	if c.DataSource.Provider == "" {
		c.DataSource.Provider = "yahoo"
	}
	if c.DataSource.Timeout == 0 {
		c.DataSource.Timeout = 30 * time.Second
	}
	if c.DataSource.Retries == 0 {
		c.DataSource.Retries = 5
	}
	if c.Indicators.YearWindow == 0 {
		c.Indicators.YearWindow = 252
	}
	if c.Indicators.MomentumWindow == 0 {
		c.Indicators.MomentumWindow = 14
	}
	if c.Indicators.Weights == (WeightsConfig{}) {
		c.Indicators.Weights = WeightsConfig{Short: 0.20, Medium: 0.25, Long: 0.25, Momentum: 0.30}
	}
	if c.Pipeline.Exchange == "" {
		c.Pipeline.Exchange = "NSE"
	}
	if c.Pipeline.LookbackDays == 0 {
		c.Pipeline.LookbackDays = 200
	}
	if c.Schedule.Cron == "" {
		c.Schedule.Cron = "0 30 18 * * 1-5"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "console"
	}
	if c.Log.MaxSizeMB == 0 {
		c.Log.MaxSizeMB = 100
	}
	if c.Log.MaxBackups == 0 {
		c.Log.MaxBackups = 5
	}
	if c.Log.MaxAgeDays == 0 {
		c.Log.MaxAgeDays = 7
	}
	if c.Metrics.Addr == "" {
		c.Metrics.Addr = ":9090"
	}
}

// BarCount is the number of daily bars fetched per symbol.
func (c *Config) BarCount() int {
	if c.Pipeline.Bars > 0 {
		return c.Pipeline.Bars
	}
	return c.Pipeline.LookbackDays + 200
}

// Validate checks that all required fields are set.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite":
		if c.Database.SQLitePath == "" {
			return fmt.Errorf("database.sqlite_path is required for sqlite")
		}
	case "postgres":
		if c.Database.Name == "" || c.Database.User == "" {
			return fmt.Errorf("database.name and database.user are required for postgres")
		}
	case "clickhouse":
		if c.Database.ClickHouseAddr == "" {
			return fmt.Errorf("database.clickhouse_addr is required for clickhouse")
		}
	case "memory":
	default:
		return fmt.Errorf("unknown database.driver %q", c.Database.Driver)
	}
	if c.Database.BatchSize <= 0 {
		return fmt.Errorf("database.batch_size must be positive")
	}

	switch c.DataSource.Provider {
	case "yahoo", "mock":
	case "rest":
		if c.DataSource.BaseURL == "" {
			return fmt.Errorf("data_source.base_url is required for the rest provider")
		}
	default:
		return fmt.Errorf("unknown data_source.provider %q", c.DataSource.Provider)
	}

	if c.Pipeline.LookbackDays < 0 || c.Pipeline.Bars < 0 {
		return fmt.Errorf("pipeline.lookback_days and pipeline.bars must not be negative")
	}
	w := c.Indicators.Weights
	if w.Short < 0 || w.Medium < 0 || w.Long < 0 || w.Momentum < 0 {
		return fmt.Errorf("indicators.weights must not be negative")
	}
	if c.Log.Format != "console" && c.Log.Format != "json" {
		return fmt.Errorf("log.format must be console or json, got %q", c.Log.Format)
	}
	if c.Telegram.BotToken != "" && c.Telegram.ChatID == "" {
		return fmt.Errorf("telegram.chat_id is required when telegram.bot_token is set")
	}
	return nil
}
