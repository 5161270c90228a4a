// Package storage contains the backend-agnostic side of the relational sink:
// the Repository contract every backend implements, a registry of backends
// keyed by storage kind, and the idempotent replace and read-back operations
// the pipeline runs against any registered backend.
//
// Backends live in subpackages (postgres, sqlite, mysql, mssql) and register
// themselves from init. Import internal/storage/all to enable all of them.
package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"musicetl/internal/ddl"
)

// Repository is the contract a relational backend implements.
type Repository interface {
	// Dialect renders DDL and DML for this backend.
	Dialect() ddl.Dialect

	// TableExists reports whether the named table exists.
	TableExists(ctx context.Context, name string) (bool, error)

	// Exec runs a single statement, typically DDL.
	Exec(ctx context.Context, sql string) error

	// CopyFrom bulk-inserts rows aligned to def.Columns inside one
	// transaction and returns the number of rows written.
	CopyFrom(ctx context.Context, def ddl.TableDef, rows [][]any) (int64, error)

	// Query runs a SELECT and returns every row as driver values.
	Query(ctx context.Context, sql string) ([][]any, error)

	Close()
}

// Config carries what a backend needs to connect. When DSN is empty the
// backend builds one from the discrete fields.
type Config struct {
	Kind     string
	DSN      string
	Host     string
	Port     int
	User     string
	Password string
	Name     string
}

// Factory opens a Repository for cfg.
type Factory func(ctx context.Context, cfg Config) (Repository, error)

var (
	mu        sync.RWMutex
	factories = map[string]Factory{}
)

// Register registers (or replaces) the factory for a storage kind. Backends
// call it from init.
func Register(kind string, f Factory) {
	mu.Lock()
	defer mu.Unlock()
	factories[kind] = f
}

// New opens a Repository using the factory registered for cfg.Kind.
func New(ctx context.Context, cfg Config) (Repository, error) {
	mu.RLock()
	f, ok := factories[cfg.Kind]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unsupported storage.kind=%s", cfg.Kind)
	}
	return f(ctx, cfg)
}

// ListKinds returns the registered kinds, sorted. The slice is a copy.
func ListKinds() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(factories))
	for k := range factories {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
