// Package jsonl implements the line-log sink: one JSON record per line in a
// file that is truncated every time the sink is opened.
package jsonl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/JakeFAU/catalog-scraper/internal/catalog"
	"github.com/JakeFAU/catalog-scraper/internal/sink"
)

// Name is the sink name used in logs and metrics.
const Name = "jsonl"

// Config controls where the line log is written.
type Config struct {
	Path string `mapstructure:"path"`
}

// lineFile is the subset of *os.File the writer needs.
type lineFile interface {
	io.WriteSeeker
	Truncate(size int64) error
	Sync() error
	Close() error
}

// Writer appends records to a line-log file.
type Writer struct {
	path     string
	openFile func(path string) (lineFile, error)

	mu     sync.Mutex
	file   lineFile
	offset int64
}

var _ sink.Sink = (*Writer)(nil)

// New creates a Writer for cfg.Path. The file is not touched until Open.
func New(cfg Config) (*Writer, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, fmt.Errorf("jsonl path is required")
	}
	return &Writer{path: cfg.Path, openFile: openTruncated}, nil
}

func openTruncated(path string) (lineFile, error) {
	return os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
}

// Name implements sink.Sink.
func (w *Writer) Name() string {
	return Name
}

// Open creates parent directories and truncates the target file.
func (w *Writer) Open(_ context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file != nil {
		return sink.ErrAlreadyOpen
	}
	if err := os.MkdirAll(filepath.Dir(w.path), 0o750); err != nil {
		return fmt.Errorf("failed to create jsonl directory: %w", err)
	}
	f, err := w.openFile(w.path)
	if err != nil {
		return fmt.Errorf("failed to open jsonl file: %w", err)
	}
	w.file = f
	w.offset = 0
	return nil
}

// Write appends one line. A failed write is rolled back to the end of the
// last complete line, so the file never holds a partial record.
func (w *Writer) Write(_ context.Context, rec catalog.Record) error {
	payload, err := catalog.Encode(rec)
	if err != nil {
		return err
	}
	line := make([]byte, 0, len(payload)+1)
	line = append(line, payload...)
	line = append(line, '\n')

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file == nil {
		return sink.ErrNotOpen
	}
	n, err := w.file.Write(line)
	if err == nil && n < len(line) {
		err = io.ErrShortWrite
	}
	if err != nil {
		writeErr := fmt.Errorf("failed to append jsonl line: %w", err)
		if rbErr := w.rollback(); rbErr != nil {
			return errors.Join(writeErr, rbErr)
		}
		return writeErr
	}
	w.offset += int64(n)
	return nil
}

// rollback discards anything written after the last complete line.
func (w *Writer) rollback() error {
	if err := w.file.Truncate(w.offset); err != nil {
		return fmt.Errorf("failed to truncate partial jsonl line: %w", err)
	}
	if _, err := w.file.Seek(w.offset, io.SeekStart); err != nil {
		return fmt.Errorf("failed to rewind jsonl file: %w", err)
	}
	return nil
}

// Close syncs and releases the file.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file == nil {
		return nil
	}
	f := w.file
	w.file = nil
	syncErr := f.Sync()
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close jsonl file: %w", err)
	}
	if syncErr != nil {
		return fmt.Errorf("failed to sync jsonl file: %w", syncErr)
	}
	return nil
}
