package ddl

import (
	"strings"

	"musicetl/internal/table"
)

// ColumnDef describes a single column of a destination table.
//
// Fields:
//   - Name: column name (unquoted; the Dialect quotes it at render time)
//   - Kind: logical kind, mapped to a SQL type by the Dialect
//   - Nullable: whether NULL is allowed
//   - PrimaryKey: whether the column is part of the primary key
type ColumnDef struct {
	Name       string
	Kind       table.Kind
	Nullable   bool
	PrimaryKey bool
}

// TableDef holds a table name and its ordered columns.
type TableDef struct {
	Name    string
	Columns []ColumnDef
}

// ColumnNames returns the column names in declaration order.
func (t TableDef) ColumnNames() []string {
	out := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		out[i] = c.Name
	}
	return out
}

// PrimaryKey returns the names of the primary key columns.
func (t TableDef) PrimaryKey() []string {
	var out []string
	for _, c := range t.Columns {
		if c.PrimaryKey {
			out = append(out, c.Name)
		}
	}
	return out
}

// Dialect adapts rendering to one SQL backend.
type Dialect interface {
	// QuoteIdent quotes a single identifier.
	QuoteIdent(name string) string
	// MapType returns the SQL type used for a column kind.
	MapType(k table.Kind) string
	// Placeholder returns the bind marker for the n-th (1-based) parameter.
	Placeholder(n int) string
}

// ANSI is a plain dialect with double-quoted identifiers and '?' markers.
// Backends embed it and override what differs.
type ANSI struct{}

func (ANSI) QuoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func (ANSI) MapType(k table.Kind) string {
	switch k {
	case table.KindInt:
		return "BIGINT"
	case table.KindFloat:
		return "DOUBLE PRECISION"
	case table.KindBool:
		return "BOOLEAN"
	case table.KindDate:
		return "TIMESTAMP"
	default:
		return "TEXT"
	}
}

func (ANSI) Placeholder(int) string { return "?" }

// QuoteFQN quotes a possibly schema-qualified name like "public.songs_data"
// part by part.
func QuoteFQN(d Dialect, name string) string {
	parts := strings.Split(name, ".")
	for i, p := range parts {
		parts[i] = d.QuoteIdent(p)
	}
	return strings.Join(parts, ".")
}
