// Package sqlite implements a SQLite-backed storage.Repository using
// database/sql. Inserts run inside one transaction with a prepared statement;
// SQLite has no dedicated bulk-load API like Postgres COPY.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"musicetl/internal/storage/sqlstore"

	_ "modernc.org/sqlite"
)

const existsSQL = `SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`

// Repository is a SQLite-backed implementation of storage.Repository.
type Repository struct {
	*sqlstore.Store
	cfg Config
}

// NewRepository opens a SQLite database and returns a Repository plus a
// Close function for cleanup.
func NewRepository(ctx context.Context, cfg Config) (*Repository, func(), error) {
	dsn := cfg.dsn()
	if dsn == "" {
		return nil, nil, fmt.Errorf("sqlite: DSN or database name must not be empty")
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("sqlite: open: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("sqlite: ping: %w", err)
	}

	store := &sqlstore.Store{DB: db, D: Dialect{}, ExistsSQL: existsSQL, Name: "sqlite"}
	return &Repository{Store: store, cfg: cfg}, store.Close, nil
}
