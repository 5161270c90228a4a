package builtin

import (
	"slices"
	"strings"

	"musicetl/internal/table"
)

// Normalize trims string values and turns no-break spaces into plain spaces.
// With Columns set only those columns are touched; otherwise every column is.
type Normalize struct {
	Columns []string
}

func (n Normalize) Apply(in *table.Table) (*table.Table, error) {
	out := in.Clone()
	for _, r := range out.Rows {
		for k, v := range r {
			if len(n.Columns) > 0 && !slices.Contains(n.Columns, k) {
				continue
			}
			if s, ok := v.(string); ok {
				r[k] = strings.TrimSpace(strings.ReplaceAll(s, "\u00a0", " "))
			}
		}
	}
	return out, nil
}
