// Package sink defines the persistence targets validated records are written to.
// Each sink is independent: its failures never roll back or block another.
package sink

import (
	"context"
	"errors"
	"time"

	"github.com/JakeFAU/catalog-scraper/internal/catalog"
)

var (
	// ErrNotOpen is returned by Write on a sink that has not been opened or was closed.
	ErrNotOpen = errors.New("sink is not open")
	// ErrAlreadyOpen is returned by Open on a sink that is already open.
	ErrAlreadyOpen = errors.New("sink is already open")
)

// Sink persists validated records. Implementations serialize their own writes
// so a single instance may be shared by concurrent callers. A closed sink may
// be opened again for a new run.
type Sink interface {
	// Name identifies the sink in logs, metrics and run summaries.
	Name() string
	// Open prepares the target: creating or truncating files, ensuring tables.
	Open(ctx context.Context) error
	// Write durably persists one record before returning.
	Write(ctx context.Context, rec catalog.Record) error
	// Close releases the target. Closing a sink that is not open is a no-op.
	Close() error
}

// TimestampLayout is the ISO-8601 UTC layout used for row creation times.
const TimestampLayout = "2006-01-02T15:04:05.000000Z"

// Timestamp formats t as a row creation time.
func Timestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}
