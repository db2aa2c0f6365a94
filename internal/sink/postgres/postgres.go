// Package postgres implements the table sink on a Postgres connection pool.
package postgres

import (
	"context"
	"fmt"
	"regexp"
	"sync"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JakeFAU/catalog-scraper/internal/catalog"
	"github.com/JakeFAU/catalog-scraper/internal/clock"
	"github.com/JakeFAU/catalog-scraper/internal/sink"
)

// Name is the sink name used in logs and metrics.
const Name = "postgres"

const defaultTable = "items"

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Config controls the Postgres connection pool and target table.
type Config struct {
	DSN      string `mapstructure:"dsn"`
	Table    string `mapstructure:"table"`
	MaxConns int32  `mapstructure:"max_conns"`
}

type execCloser interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Close()
}

type connectFunc func(ctx context.Context) (execCloser, error)

// Writer inserts one row per record. Each Exec runs in its own implicit
// transaction, so every record is committed before Write returns.
type Writer struct {
	table   string
	clock   clock.Clock
	connect connectFunc

	mu   sync.Mutex
	pool execCloser
}

var _ sink.Sink = (*Writer)(nil)

// New creates a Writer. The pool is created on Open.
func New(cfg Config, clk clock.Clock) (*Writer, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("postgres dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	connect := func(ctx context.Context) (execCloser, error) {
		pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
		if err != nil {
			return nil, err
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, err
		}
		return pool, nil
	}
	return newWriter(cfg.Table, clk, connect)
}

// NewWithPool builds a Writer around an existing pool (primarily for testing).
// Open hands out the same pool each time.
func NewWithPool(pool execCloser, table string, clk clock.Clock) (*Writer, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	return newWriter(table, clk, func(context.Context) (execCloser, error) { return pool, nil })
}

func newWriter(table string, clk clock.Clock, connect connectFunc) (*Writer, error) {
	if table == "" {
		table = defaultTable
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	if clk == nil {
		clk = clock.NewSystem()
	}
	return &Writer{table: table, clock: clk, connect: connect}, nil
}

// Name implements sink.Sink.
func (w *Writer) Name() string {
	return Name
}

// Open connects and ensures the table exists.
func (w *Writer) Open(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.pool != nil {
		return sink.ErrAlreadyOpen
	}
	pool, err := w.connect(ctx)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	query := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id BIGSERIAL PRIMARY KEY,
	item_type TEXT NOT NULL,
	data TEXT NOT NULL,
	created_at TEXT NOT NULL
)`, w.table)
	if _, err := pool.Exec(ctx, query); err != nil {
		pool.Close()
		return fmt.Errorf("create %s table: %w", w.table, err)
	}
	w.pool = pool
	return nil
}

// Write inserts the record.
func (w *Writer) Write(ctx context.Context, rec catalog.Record) error {
	payload, err := catalog.Encode(rec)
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.pool == nil {
		return sink.ErrNotOpen
	}
	query := fmt.Sprintf(`INSERT INTO %s (item_type, data, created_at) VALUES ($1, $2, $3)`, w.table)
	if _, err := w.pool.Exec(ctx, query, rec.Kind().String(), string(payload), sink.Timestamp(w.clock.Now())); err != nil {
		return fmt.Errorf("insert into %s: %w", w.table, err)
	}
	return nil
}

// Close releases the pool.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.pool == nil {
		return nil
	}
	w.pool.Close()
	w.pool = nil
	return nil
}
