// Package config loads and validates scraper configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"

	"github.com/JakeFAU/catalog-scraper/internal/crawl"
	"github.com/JakeFAU/catalog-scraper/internal/sink/jsonl"
	"github.com/JakeFAU/catalog-scraper/internal/sink/postgres"
	"github.com/JakeFAU/catalog-scraper/internal/sink/sqlite"
)

// EnvPrefix prefixes every environment override, e.g. SCRAPER_CRAWLER_DELAY.
const EnvPrefix = "SCRAPER"

// Config captures all scraper configuration knobs loaded via Viper.
type Config struct {
	Crawler crawl.Config  `mapstructure:"crawler"`
	Sinks   SinksConfig   `mapstructure:"sinks"`
	Logging LoggingConfig `mapstructure:"logging"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// SinksConfig selects and configures the persistence targets.
type SinksConfig struct {
	JSONL    JSONLConfig    `mapstructure:"jsonl"`
	SQLite   SQLiteConfig   `mapstructure:"sqlite"`
	Postgres PostgresConfig `mapstructure:"postgres"`
}

// JSONLConfig toggles the line-log sink.
type JSONLConfig struct {
	Enabled      bool `mapstructure:"enabled"`
	jsonl.Config `mapstructure:",squash"`
}

// SQLiteConfig toggles the embedded table sink.
type SQLiteConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	sqlite.Config `mapstructure:",squash"`
}

// PostgresConfig toggles the Postgres table sink.
type PostgresConfig struct {
	Enabled         bool `mapstructure:"enabled"`
	postgres.Config `mapstructure:",squash"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// MetricsConfig controls the ops listener. An empty Addr disables it.
type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("crawler.start_urls", []string{"https://books.toscrape.com/"})
	v.SetDefault("crawler.allowed_domains", []string{"books.toscrape.com"})
	v.SetDefault("crawler.user_agent", "catalog-scraper/0.1 (+https://github.com/JakeFAU/catalog-scraper)")
	v.SetDefault("crawler.parallelism", 2)
	v.SetDefault("crawler.delay", time.Second)
	v.SetDefault("crawler.respect_robots", true)
	v.SetDefault("crawler.max_pages", 0)
	v.SetDefault("crawler.timeout", 15*time.Second)
	v.SetDefault("sinks.jsonl.enabled", true)
	v.SetDefault("sinks.jsonl.path", "data/items.jl")
	v.SetDefault("sinks.sqlite.enabled", true)
	v.SetDefault("sinks.sqlite.path", "data/items.db")
	v.SetDefault("sinks.postgres.enabled", false)
	v.SetDefault("sinks.postgres.dsn", "")
	v.SetDefault("sinks.postgres.table", "items")
	v.SetDefault("sinks.postgres.max_conns", 4)
	v.SetDefault("logging.development", true)
	v.SetDefault("logging.level", "info")
	v.SetDefault("metrics.addr", "")
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Crawler.Parallelism <= 0 {
		return fmt.Errorf("crawler.parallelism must be > 0")
	}
	if c.Crawler.Delay < 0 {
		return fmt.Errorf("crawler.delay must be >= 0")
	}
	if c.Crawler.MaxPages < 0 {
		return fmt.Errorf("crawler.max_pages must be >= 0")
	}
	if c.Crawler.Timeout <= 0 {
		return fmt.Errorf("crawler.timeout must be > 0")
	}
	if !c.Sinks.JSONL.Enabled && !c.Sinks.SQLite.Enabled && !c.Sinks.Postgres.Enabled {
		return fmt.Errorf("at least one sink must be enabled")
	}
	if c.Sinks.JSONL.Enabled && strings.TrimSpace(c.Sinks.JSONL.Path) == "" {
		return fmt.Errorf("sinks.jsonl.path must be set when the jsonl sink is enabled")
	}
	if c.Sinks.SQLite.Enabled && strings.TrimSpace(c.Sinks.SQLite.Path) == "" {
		return fmt.Errorf("sinks.sqlite.path must be set when the sqlite sink is enabled")
	}
	if c.Sinks.Postgres.Enabled && c.Sinks.Postgres.DSN == "" {
		return fmt.Errorf("sinks.postgres.dsn must be set when the postgres sink is enabled")
	}
	if c.Sinks.Postgres.MaxConns < 0 {
		return fmt.Errorf("sinks.postgres.max_conns must be >= 0")
	}
	if _, err := zapcore.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}
	return nil
}
