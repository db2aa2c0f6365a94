package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Sinks.JSONL.Path != "data/items.jl" || !cfg.Sinks.JSONL.Enabled {
		t.Fatalf("unexpected jsonl defaults: %+v", cfg.Sinks.JSONL)
	}
	if cfg.Sinks.SQLite.Path != "data/items.db" || !cfg.Sinks.SQLite.Enabled {
		t.Fatalf("unexpected sqlite defaults: %+v", cfg.Sinks.SQLite)
	}
	if cfg.Sinks.Postgres.Enabled || cfg.Sinks.Postgres.Table != "items" {
		t.Fatalf("unexpected postgres defaults: %+v", cfg.Sinks.Postgres)
	}
	if cfg.Crawler.Delay != time.Second || !cfg.Crawler.RespectRobots {
		t.Fatalf("unexpected crawler defaults: %+v", cfg.Crawler)
	}
	if len(cfg.Crawler.StartURLs) != 1 || cfg.Crawler.StartURLs[0] != "https://books.toscrape.com/" {
		t.Fatalf("unexpected start urls: %v", cfg.Crawler.StartURLs)
	}
	if cfg.Metrics.Addr != "" {
		t.Fatalf("metrics listener should be off by default")
	}
}

func TestLoadWithFileOverrides(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	configYAML := `
crawler:
  start_urls: ["https://books.toscrape.com/catalogue/page-2.html"]
  user_agent: polite-bot
  parallelism: 4
  delay: 250ms
  respect_robots: false
  max_pages: 40
sinks:
  jsonl:
    path: out/run.jl
  sqlite:
    enabled: false
  postgres:
    enabled: true
    dsn: postgres://scraper@localhost:5432/catalog
    table: catalog_items
    max_conns: 8
logging:
  development: false
  level: debug
metrics:
  addr: ":9102"
`
	if err := os.WriteFile(path, []byte(configYAML), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Crawler.Parallelism != 4 || cfg.Crawler.Delay != 250*time.Millisecond || cfg.Crawler.RespectRobots {
		t.Fatalf("expected crawler overrides to apply: %+v", cfg.Crawler)
	}
	if cfg.Crawler.MaxPages != 40 || cfg.Crawler.UserAgent != "polite-bot" {
		t.Fatalf("expected crawler overrides to apply: %+v", cfg.Crawler)
	}
	if cfg.Sinks.JSONL.Path != "out/run.jl" || !cfg.Sinks.JSONL.Enabled {
		t.Fatalf("expected jsonl path override: %+v", cfg.Sinks.JSONL)
	}
	if cfg.Sinks.SQLite.Enabled {
		t.Fatalf("expected sqlite to be disabled")
	}
	pg := cfg.Sinks.Postgres
	if !pg.Enabled || pg.Table != "catalog_items" || pg.MaxConns != 8 || !strings.HasPrefix(pg.DSN, "postgres://") {
		t.Fatalf("expected postgres overrides: %+v", pg)
	}
	if cfg.Logging.Development || cfg.Logging.Level != "debug" || cfg.Metrics.Addr != ":9102" {
		t.Fatalf("expected logging and metrics overrides: %+v %+v", cfg.Logging, cfg.Metrics)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("SCRAPER_CRAWLER_DELAY", "3s")
	t.Setenv("SCRAPER_CRAWLER_MAX_PAGES", "7")
	t.Setenv("SCRAPER_SINKS_JSONL_PATH", "/tmp/env.jl")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Crawler.Delay != 3*time.Second || cfg.Crawler.MaxPages != 7 {
		t.Fatalf("expected env overrides: %+v", cfg.Crawler)
	}
	if cfg.Sinks.JSONL.Path != "/tmp/env.jl" {
		t.Fatalf("expected env jsonl path, got %q", cfg.Sinks.JSONL.Path)
	}
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	base, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"parallelism", func(c *Config) { c.Crawler.Parallelism = 0 }, "crawler.parallelism"},
		{"delay", func(c *Config) { c.Crawler.Delay = -time.Second }, "crawler.delay"},
		{"max pages", func(c *Config) { c.Crawler.MaxPages = -1 }, "crawler.max_pages"},
		{"timeout", func(c *Config) { c.Crawler.Timeout = 0 }, "crawler.timeout"},
		{"no sinks", func(c *Config) {
			c.Sinks.JSONL.Enabled = false
			c.Sinks.SQLite.Enabled = false
		}, "at least one sink"},
		{"jsonl path", func(c *Config) { c.Sinks.JSONL.Path = " " }, "sinks.jsonl.path"},
		{"sqlite path", func(c *Config) { c.Sinks.SQLite.Path = "" }, "sinks.sqlite.path"},
		{"postgres dsn", func(c *Config) { c.Sinks.Postgres.Enabled = true }, "sinks.postgres.dsn"},
		{"postgres conns", func(c *Config) { c.Sinks.Postgres.MaxConns = -1 }, "sinks.postgres.max_conns"},
		{"log level", func(c *Config) { c.Logging.Level = "chatty" }, "logging.level"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			cfg := base
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("Validate() error = %v, want mention of %q", err, tc.want)
			}
		})
	}
}
