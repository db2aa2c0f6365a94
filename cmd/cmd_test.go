package cmd

import (
	"bufio"
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/catalog-scraper/internal/clock"
	"github.com/JakeFAU/catalog-scraper/internal/config"
	"github.com/JakeFAU/catalog-scraper/internal/page/pagetest"
	"github.com/JakeFAU/catalog-scraper/internal/scrape"
	"github.com/JakeFAU/catalog-scraper/internal/sink/jsonl"
	"github.com/JakeFAU/catalog-scraper/internal/sink/postgres"
	"github.com/JakeFAU/catalog-scraper/internal/sink/sqlite"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func TestExtractCommandWritesBothSinks(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	site := filepath.Join(root, "site")
	writeFile(t, filepath.Join(site, "index.html"), pagetest.ListingHTML)
	writeFile(t, filepath.Join(site, "catalogue", "a-light-in-the-attic_1000", "index.html"), pagetest.ProductHTML)

	linesPath := filepath.Join(root, "out", "items.jl")
	dbPath := filepath.Join(root, "out", "items.db")
	cfgPath := filepath.Join(root, "config.yaml")
	writeFile(t, cfgPath, `
sinks:
  jsonl:
    path: `+linesPath+`
  sqlite:
    path: `+dbPath+`
logging:
  development: false
  level: error
`)

	var stdout bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&stdout)
	cmd.SetArgs([]string{
		"--config", cfgPath,
		"extract",
		"--dir", site,
		"--base-url", pagetest.ListingURL,
		"--start", "index.html",
	})
	require.NoError(t, cmd.Execute())

	var summary scrape.Summary
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &summary))
	assert.NotEmpty(t, summary.RunID)
	assert.Equal(t, 2, summary.Pages)
	assert.Equal(t, 3, summary.Accepted)
	assert.Zero(t, summary.Rejected)
	assert.Zero(t, summary.SinkFailed)

	f, err := os.Open(linesPath)
	require.NoError(t, err)
	defer f.Close()
	var lines int
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		require.True(t, json.Valid(scanner.Bytes()))
		lines++
	}
	require.NoError(t, scanner.Err())
	assert.Equal(t, 3, lines)

	_, err = os.Stat(dbPath)
	require.NoError(t, err)
}

func TestExtractCommandRequiresDir(t *testing.T) {
	t.Parallel()

	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"extract"})
	require.Error(t, cmd.Execute())
}

func TestRootCommandRejectsInvalidConfig(t *testing.T) {
	t.Parallel()

	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, cfgPath, "crawler:\n  parallelism: 0\n")

	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--config", cfgPath, "extract", "--dir", t.TempDir()})
	err := cmd.Execute()
	require.ErrorContains(t, err, "crawler.parallelism")
}

func TestBuildSinks(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	cfg := config.SinksConfig{
		JSONL:  config.JSONLConfig{Enabled: true, Config: jsonl.Config{Path: filepath.Join(dir, "items.jl")}},
		SQLite: config.SQLiteConfig{Enabled: true, Config: sqlite.Config{Path: filepath.Join(dir, "items.db")}},
		Postgres: config.PostgresConfig{Enabled: true, Config: postgres.Config{
			DSN: "postgres://scraper@localhost:5432/catalog",
		}},
	}

	sinks, err := buildSinks(cfg, clock.NewSystem())
	require.NoError(t, err)
	require.Len(t, sinks, 3)
	assert.Equal(t, jsonl.Name, sinks[0].Name())
	assert.Equal(t, sqlite.Name, sinks[1].Name())
	assert.Equal(t, postgres.Name, sinks[2].Name())

	_, err = buildSinks(config.SinksConfig{}, clock.NewSystem())
	require.Error(t, err)

	cfg.Postgres.DSN = "::not a dsn::"
	_, err = buildSinks(cfg, clock.NewSystem())
	require.ErrorContains(t, err, "postgres")
}
