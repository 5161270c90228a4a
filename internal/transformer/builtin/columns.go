package builtin

import (
	"fmt"

	"musicetl/internal/table"
)

// DropColumns removes the named columns. Names that are not present are
// ignored.
type DropColumns struct {
	Columns []string
}

func (d DropColumns) Apply(in *table.Table) (*table.Table, error) {
	out := in.Clone()
	for _, c := range d.Columns {
		out.DropColumn(c)
	}
	return out, nil
}

// Rename renames columns old -> new, keeping their position. Old names that
// are absent are ignored. Renaming onto a column that already exists (and is
// not itself being renamed away) is a schema mismatch.
type Rename struct {
	Mapping map[string]string
}

func (r Rename) Apply(in *table.Table) (*table.Table, error) {
	final := make(map[string]string, len(in.Columns))
	for _, c := range in.Columns {
		name := c.Name
		if to, ok := r.Mapping[c.Name]; ok {
			name = to
		}
		if prev, dup := final[name]; dup {
			return nil, &table.SchemaMismatchError{
				Stage:  "rename",
				Detail: fmt.Sprintf("columns %q and %q would both be named %q", prev, c.Name, name),
			}
		}
		final[name] = c.Name
	}

	out := in.Clone()
	for i, c := range out.Columns {
		to, ok := r.Mapping[c.Name]
		if !ok || to == c.Name {
			continue
		}
		out.Columns[i].Name = to
	}
	for _, row := range out.Rows {
		moved := make(map[string]any, len(r.Mapping))
		for from, to := range r.Mapping {
			if v, ok := row[from]; ok && from != to {
				moved[to] = v
				delete(row, from)
			}
		}
		for k, v := range moved {
			row[k] = v
		}
	}
	return out, nil
}
