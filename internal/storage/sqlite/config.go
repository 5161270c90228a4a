// Package sqlite implements a SQLite-backed storage.Repository.
package sqlite

import (
	"strings"

	"musicetl/internal/ddl"
	"musicetl/internal/table"
)

// Config holds SQLite repository configuration derived from storage.Config.
type Config struct {
	// DSN is a SQLite connection string or file path, e.g.:
	//   "file:musicetl.db?cache=shared"
	//   "musicetl.db" (interpreted by the driver)
	// When empty, Name is used as the file path.
	DSN  string
	Name string
}

func (c Config) dsn() string {
	if s := strings.TrimSpace(c.DSN); s != "" {
		return s
	}
	return strings.TrimSpace(c.Name)
}

// Dialect renders SQLite DDL. Booleans are stored as 0/1 integers and dates
// as TEXT in the driver's time format.
type Dialect struct{ ddl.ANSI }

func (Dialect) MapType(k table.Kind) string {
	switch k {
	case table.KindInt, table.KindBool:
		return "INTEGER"
	case table.KindFloat:
		return "REAL"
	default:
		return "TEXT"
	}
}
