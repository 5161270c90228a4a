// Package builtin contains simple, reusable transformers used by the
// pipeline stages.
package builtin

import (
	"musicetl/internal/table"
	"musicetl/pkg/records"
)

// Require removes any row with a null or blank value in one of Fields.
type Require struct {
	Fields []string
}

// Apply returns a copy of in holding only rows that have all required fields
// present and non-empty. A listed column missing from the schema is a
// *table.SchemaMismatchError.
func (r Require) Apply(in *table.Table) (*table.Table, error) {
	if err := in.Require("require", r.Fields...); err != nil {
		return nil, err
	}
	out := &table.Table{Columns: append([]table.Column(nil), in.Columns...)}
	for _, rec := range in.Rows {
		ok := true
		for _, f := range r.Fields {
			if records.Blank(rec[f]) {
				ok = false
				break
			}
		}
		if ok {
			out.Append(rec.Clone())
		}
	}
	return out, nil
}
