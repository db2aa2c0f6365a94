// Package sqlite implements the table sink on an embedded SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/JakeFAU/catalog-scraper/internal/catalog"
	"github.com/JakeFAU/catalog-scraper/internal/clock"
	"github.com/JakeFAU/catalog-scraper/internal/sink"
)

// Name is the sink name used in logs and metrics.
const Name = "sqlite"

const (
	createTable = `CREATE TABLE IF NOT EXISTS items (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	item_type TEXT,
	data TEXT,
	created_at TEXT
)`
	insertItem = `INSERT INTO items (item_type, data, created_at) VALUES (?, ?, ?)`
)

// Config controls the database file location.
type Config struct {
	Path string `mapstructure:"path"`
}

// Writer inserts one row per record, each in its own implicit transaction.
type Writer struct {
	path  string
	clock clock.Clock

	mu sync.Mutex
	db *sql.DB
}

var _ sink.Sink = (*Writer)(nil)

// New creates a Writer. clk stamps created_at; nil uses the system clock.
func New(cfg Config, clk clock.Clock) (*Writer, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}
	if clk == nil {
		clk = clock.NewSystem()
	}
	return &Writer{path: cfg.Path, clock: clk}, nil
}

// Name implements sink.Sink.
func (w *Writer) Name() string {
	return Name
}

// Open connects to the database and ensures the items table exists. Existing
// rows are kept.
func (w *Writer) Open(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.db != nil {
		return sink.ErrAlreadyOpen
	}
	if err := os.MkdirAll(filepath.Dir(w.path), 0o750); err != nil {
		return fmt.Errorf("failed to create sqlite directory: %w", err)
	}
	db, err := sql.Open("sqlite", w.path)
	if err != nil {
		return fmt.Errorf("open sqlite: %w", err)
	}
	// SQLite allows a single writer; one connection keeps inserts in arrival order.
	db.SetMaxOpenConns(1)

	for _, stmt := range []string{"PRAGMA busy_timeout = 5000", createTable} {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()
			return fmt.Errorf("prepare sqlite schema: %w", err)
		}
	}
	w.db = db
	return nil
}

// Write inserts the record. The insert is committed before Write returns.
func (w *Writer) Write(ctx context.Context, rec catalog.Record) error {
	payload, err := catalog.Encode(rec)
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.db == nil {
		return sink.ErrNotOpen
	}
	if _, err := w.db.ExecContext(ctx, insertItem, rec.Kind().String(), string(payload), sink.Timestamp(w.clock.Now())); err != nil {
		return fmt.Errorf("insert sqlite item: %w", err)
	}
	return nil
}

// Close releases the connection.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.db == nil {
		return nil
	}
	db := w.db
	w.db = nil
	if err := db.Close(); err != nil {
		return fmt.Errorf("close sqlite: %w", err)
	}
	return nil
}
