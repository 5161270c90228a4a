// Package ddl defines a small model for the fixed destination tables and
// renders the statements the sink needs (CREATE, DROP, INSERT, SELECT) for a
// given Dialect.
package ddl

import (
	"fmt"
	"strings"
)

// BuildCreateTableSQL renders a CREATE TABLE statement from a TableDef.
//
// Rules:
//
//   - t.Name must be non-empty.
//
//   - Each column must have a non-empty Name.
//
//   - A column is rendered as:
//
//     <quoted name> <dialect type> [NOT NULL]
//
//     where NOT NULL is added when Nullable == false.
//
//   - Columns with PrimaryKey == true are collected and rendered as a separate
//     PRIMARY KEY (<col1>, <col2>, ...) clause at the end of the column list.
func BuildCreateTableSQL(t TableDef, d Dialect) (string, error) {
	name := strings.TrimSpace(t.Name)
	if name == "" {
		return "", fmt.Errorf("ddl: table name must not be empty")
	}
	if len(t.Columns) == 0 {
		return "", fmt.Errorf("ddl: at least one column is required")
	}

	cols := make([]string, 0, len(t.Columns)+1)
	pks := make([]string, 0, 1)

	for _, c := range t.Columns {
		col := strings.TrimSpace(c.Name)
		if col == "" {
			return "", fmt.Errorf("ddl: column with empty name in table %s", name)
		}

		var sb strings.Builder
		sb.WriteString(d.QuoteIdent(col))
		sb.WriteByte(' ')
		sb.WriteString(d.MapType(c.Kind))
		if !c.Nullable || c.PrimaryKey {
			sb.WriteString(" NOT NULL")
		}
		cols = append(cols, sb.String())

		if c.PrimaryKey {
			pks = append(pks, d.QuoteIdent(col))
		}
	}

	if len(pks) > 0 {
		cols = append(cols, fmt.Sprintf("PRIMARY KEY (%s)", strings.Join(pks, ", ")))
	}

	return fmt.Sprintf(
		"CREATE TABLE %s (\n  %s\n)",
		QuoteFQN(d, name),
		strings.Join(cols, ",\n  "),
	), nil
}

// BuildDropTableSQL renders DROP TABLE for t. Existence is checked by the
// caller, so no IF EXISTS clause is emitted.
func BuildDropTableSQL(t TableDef, d Dialect) string {
	return "DROP TABLE " + QuoteFQN(d, t.Name)
}

// BuildInsertSQL renders a single-row parameterized INSERT over all columns.
func BuildInsertSQL(t TableDef, d Dialect) string {
	cols := make([]string, len(t.Columns))
	marks := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		cols[i] = d.QuoteIdent(c.Name)
		marks[i] = d.Placeholder(i + 1)
	}
	return fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s)",
		QuoteFQN(d, t.Name),
		strings.Join(cols, ", "),
		strings.Join(marks, ", "),
	)
}

// BuildSelectAllSQL renders a SELECT of every column ordered by the primary
// key, or unordered when there is none.
func BuildSelectAllSQL(t TableDef, d Dialect) string {
	cols := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		cols[i] = d.QuoteIdent(c.Name)
	}
	stmt := fmt.Sprintf("SELECT %s FROM %s", strings.Join(cols, ", "), QuoteFQN(d, t.Name))
	if pk := t.PrimaryKey(); len(pk) > 0 {
		for i := range pk {
			pk[i] = d.QuoteIdent(pk[i])
		}
		stmt += " ORDER BY " + strings.Join(pk, ", ")
	}
	return stmt
}
