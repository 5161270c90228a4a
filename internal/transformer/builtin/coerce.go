package builtin

import (
	"slices"
	"time"

	"musicetl/internal/table"
)

// Coerce converts the listed columns to their target kind. Values that do not
// parse become nil rather than failing the step.
type Coerce struct {
	Types map[string]table.Kind

	// Layouts are tried, in order, before the default date layouts.
	Layouts []string
}

func (c Coerce) Apply(in *table.Table) (*table.Table, error) {
	if len(c.Types) == 0 {
		return in.Clone(), nil
	}
	cols := make([]string, 0, len(c.Types))
	for col := range c.Types {
		cols = append(cols, col)
	}
	slices.Sort(cols)
	if err := in.Require("coerce", cols...); err != nil {
		return nil, err
	}

	out := in.Clone()
	for _, col := range cols {
		kind := c.Types[col]
		for _, r := range out.Rows {
			v, err := c.convert(r[col], kind)
			if err != nil {
				v = nil
			}
			r[col] = v
		}
		out.SetKind(col, kind)
	}
	return out, nil
}

func (c Coerce) convert(v any, kind table.Kind) (any, error) {
	if kind == table.KindDate && len(c.Layouts) > 0 {
		if s, ok := v.(string); ok {
			for _, layout := range c.Layouts {
				if ts, err := time.Parse(layout, s); err == nil {
					return ts, nil
				}
			}
		}
	}
	return table.Convert(v, kind)
}
