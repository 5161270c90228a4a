// Package table implements the tabular value passed between pipeline stages:
// an ordered list of typed columns plus row storage.
//
// Stages never mutate the table they receive. They Clone it, work on the
// copy, and hand the copy to the next stage.
package table

import (
	"slices"

	"musicetl/pkg/records"
)

// Kind is the logical type of a column.
type Kind string

const (
	KindAny    Kind = "any" // raw parser output, not yet coerced
	KindString Kind = "string"
	KindInt    Kind = "int"
	KindFloat  Kind = "float"
	KindBool   Kind = "bool"
	KindDate   Kind = "date"
)

// Column names a column and its kind.
type Column struct {
	Name string
	Kind Kind
}

// Table is an ordered sequence of records sharing one column schema.
type Table struct {
	Columns []Column
	Rows    []records.Record
}

// New returns an empty table with the given untyped columns.
func New(names ...string) *Table {
	cols := make([]Column, len(names))
	for i, n := range names {
		cols[i] = Column{Name: n, Kind: KindAny}
	}
	return &Table{Columns: cols}
}

// Empty returns a table without columns or rows.
func Empty() *Table { return &Table{} }

// Len returns the number of rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// Names returns the column names in order.
func (t *Table) Names() []string {
	out := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		out[i] = c.Name
	}
	return out
}

// Index returns the position of the named column or -1.
func (t *Table) Index(name string) int {
	return slices.IndexFunc(t.Columns, func(c Column) bool { return c.Name == name })
}

// Has reports whether the table has the named column.
func (t *Table) Has(name string) bool { return t.Index(name) >= 0 }

// KindOf returns the kind of the named column, or KindAny when absent.
func (t *Table) KindOf(name string) Kind {
	if i := t.Index(name); i >= 0 {
		return t.Columns[i].Kind
	}
	return KindAny
}

// SetKind updates the kind of an existing column.
func (t *Table) SetKind(name string, k Kind) {
	if i := t.Index(name); i >= 0 {
		t.Columns[i].Kind = k
	}
}

// Require returns a *SchemaMismatchError naming every absent column.
func (t *Table) Require(stage string, names ...string) error {
	var missing []string
	for _, n := range names {
		if !t.Has(n) {
			missing = append(missing, n)
		}
	}
	if len(missing) > 0 {
		return &SchemaMismatchError{Stage: stage, Missing: missing}
	}
	return nil
}

// AddColumn appends a column if it does not exist yet, or updates its kind.
// Existing rows are not touched; an absent key reads as null.
func (t *Table) AddColumn(name string, k Kind) {
	if i := t.Index(name); i >= 0 {
		t.Columns[i].Kind = k
		return
	}
	t.Columns = append(t.Columns, Column{Name: name, Kind: k})
}

// InsertColumn places a column at position pos, moving it when it already
// exists.
func (t *Table) InsertColumn(pos int, name string, k Kind) {
	if i := t.Index(name); i >= 0 {
		t.Columns = slices.Delete(t.Columns, i, i+1)
	}
	pos = min(max(pos, 0), len(t.Columns))
	t.Columns = slices.Insert(t.Columns, pos, Column{Name: name, Kind: k})
}

// DropColumn removes a column and its values. It reports whether the column
// existed.
func (t *Table) DropColumn(name string) bool {
	i := t.Index(name)
	if i < 0 {
		return false
	}
	t.Columns = slices.Delete(t.Columns, i, i+1)
	for _, r := range t.Rows {
		delete(r, name)
	}
	return true
}

// Append adds a row. Keys outside the schema are kept as-is.
func (t *Table) Append(r records.Record) { t.Rows = append(t.Rows, r) }

// Clone deep-copies the schema and rows.
func (t *Table) Clone() *Table {
	if t == nil {
		return Empty()
	}
	out := &Table{
		Columns: slices.Clone(t.Columns),
		Rows:    make([]records.Record, len(t.Rows)),
	}
	for i, r := range t.Rows {
		out.Rows[i] = r.Clone()
	}
	return out
}

// Column returns the values of one column in row order.
func (t *Table) Column(name string) []any {
	out := make([]any, len(t.Rows))
	for i, r := range t.Rows {
		out[i] = r[name]
	}
	return out
}

// Project returns the values of the given columns for every row, ordered as
// names. It is the shape bulk loaders expect.
func (t *Table) Project(names []string) [][]any {
	out := make([][]any, len(t.Rows))
	for i, r := range t.Rows {
		row := make([]any, len(names))
		for j, n := range names {
			row[j] = r[n]
		}
		out[i] = row
	}
	return out
}

// AssignIdentity (re)writes the 1-based positional identity column as the
// first column.
func (t *Table) AssignIdentity(name string) {
	t.InsertColumn(0, name, KindInt)
	for i, r := range t.Rows {
		r[name] = int64(i + 1)
	}
}
