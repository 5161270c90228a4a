// Package sqlstore implements the storage.Repository methods shared by the
// database/sql backends (sqlite, mysql, mssql). Backends embed *Store and
// override what their driver does better, such as bulk copy.
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"musicetl/internal/ddl"
)

// Store wraps a *sql.DB with a dialect and an existence query.
type Store struct {
	DB *sql.DB

	// D renders statements for this backend.
	D ddl.Dialect

	// ExistsSQL takes the table name as its only parameter and returns a
	// single count-like integer, non-zero when the table exists.
	ExistsSQL string

	// Name prefixes error messages, e.g. "sqlite".
	Name string
}

// Dialect implements storage.Repository.
func (s *Store) Dialect() ddl.Dialect { return s.D }

// TableExists implements storage.Repository.
func (s *Store) TableExists(ctx context.Context, name string) (bool, error) {
	var n int64
	if err := s.DB.QueryRowContext(ctx, s.ExistsSQL, name).Scan(&n); err != nil {
		return false, fmt.Errorf("%s: table exists: %w", s.Name, err)
	}
	return n > 0, nil
}

// Exec executes an arbitrary SQL statement (typically DDL).
func (s *Store) Exec(ctx context.Context, sql string) error {
	if strings.TrimSpace(sql) == "" {
		return nil
	}
	if _, err := s.DB.ExecContext(ctx, sql); err != nil {
		return fmt.Errorf("%s: exec: %w", s.Name, err)
	}
	return nil
}

// Query runs a SELECT and scans every row into driver values.
func (s *Store) Query(ctx context.Context, sql string) ([][]any, error) {
	rows, err := s.DB.QueryContext(ctx, sql)
	if err != nil {
		return nil, fmt.Errorf("%s: query: %w", s.Name, err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("%s: columns: %w", s.Name, err)
	}
	var out [][]any
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("%s: scan: %w", s.Name, err)
		}
		out = append(out, vals)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: rows: %w", s.Name, err)
	}
	return out, nil
}

// CopyFrom inserts the rows into def using a single transaction and a
// prepared INSERT statement.
//
// It returns the number of rows inserted. len(row) must equal
// len(def.Columns) for every row; on any error the transaction is rolled
// back and nothing is kept.
func (s *Store) CopyFrom(ctx context.Context, def ddl.TableDef, rows [][]any) (int64, error) {
	if len(def.Columns) == 0 {
		return 0, fmt.Errorf("%s: CopyFrom: columns must not be empty", s.Name)
	}
	if len(rows) == 0 {
		return 0, nil
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("%s: begin tx: %w", s.Name, err)
	}
	stmt, err := tx.PrepareContext(ctx, ddl.BuildInsertSQL(def, s.D))
	if err != nil {
		_ = tx.Rollback()
		return 0, fmt.Errorf("%s: prepare insert: %w", s.Name, err)
	}
	defer stmt.Close()

	var inserted int64
	for i, row := range rows {
		if len(row) != len(def.Columns) {
			_ = tx.Rollback()
			return 0, fmt.Errorf("%s: CopyFrom: row %d length %d != columns length %d", s.Name, i, len(row), len(def.Columns))
		}
		if _, err := stmt.ExecContext(ctx, row...); err != nil {
			_ = tx.Rollback()
			return 0, fmt.Errorf("%s: insert row %d: %w", s.Name, i, err)
		}
		inserted++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("%s: commit: %w", s.Name, err)
	}
	return inserted, nil
}

// Close closes the underlying pool.
func (s *Store) Close() { _ = s.DB.Close() }
