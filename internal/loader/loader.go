// Package loader reads a source file into a table and assigns the 1-based
// identity column.
package loader

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"musicetl/internal/datasource"
	"musicetl/internal/datasource/file"
	"musicetl/internal/logging"
	"musicetl/internal/parser"
	pcsv "musicetl/internal/parser/csv"
	"musicetl/internal/table"
)

// IDColumn is the synthetic identity column written by Load.
const IDColumn = "id"

// SourceReadError reports an input that could not be opened or parsed.
type SourceReadError struct {
	Path string
	Err  error
}

func (e *SourceReadError) Error() string {
	return fmt.Sprintf("read source %s: %v", e.Path, e.Err)
}

func (e *SourceReadError) Unwrap() error { return e.Err }

// Loader opens sources and parses them into tables.
type Loader struct {
	parser parser.Parser
	log    *zap.Logger
}

// New returns a Loader that parses with p.
func New(p parser.Parser, log *zap.Logger) *Loader {
	return &Loader{parser: p, log: logging.OrNop(log)}
}

// NewCSV returns a Loader backed by the CSV parser.
func NewCSV(opt pcsv.Options, log *zap.Logger) *Loader {
	return New(pcsv.NewParser(opt, log), log)
}

// Load reads src, parses it and (re)assigns the id column as positional
// index + 1. An existing id column in the file is overwritten.
func (l *Loader) Load(ctx context.Context, src datasource.Source) (*table.Table, error) {
	rc, err := src.Open(ctx)
	if err != nil {
		return nil, &SourceReadError{Path: src.Name(), Err: err}
	}
	defer rc.Close()

	t, skipped, err := l.parser.Parse(rc)
	if err != nil {
		return nil, &SourceReadError{Path: src.Name(), Err: err}
	}
	t.AssignIdentity(IDColumn)

	l.log.Info("loader: source loaded",
		zap.String("path", src.Name()),
		zap.Int("rows", t.Len()),
		zap.Int("columns", len(t.Columns)),
		zap.Int("skipped", skipped))
	return t, nil
}

// LoadPath is Load for a local file.
func (l *Loader) LoadPath(ctx context.Context, path string) (*table.Table, error) {
	return l.Load(ctx, file.NewLocal(path))
}

// LoadOrEmpty is Load, except that a source read failure yields an empty
// table (no columns, no rows) and a warning instead of an error. Context
// cancellation is still returned.
func (l *Loader) LoadOrEmpty(ctx context.Context, src datasource.Source) (*table.Table, error) {
	t, err := l.Load(ctx, src)
	if err == nil {
		return t, nil
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	l.log.Warn("loader: source unreadable, continuing with empty table",
		zap.String("path", src.Name()), zap.Error(err))
	return table.Empty(), nil
}
