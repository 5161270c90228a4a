package builtin

import (
	"fmt"

	"musicetl/internal/table"
)

// Bucket labels a numeric column by right-open bins [Edges[i], Edges[i+1]).
// A value equal to an edge belongs to the bin it opens. Values outside the
// edges, and nulls, get a nil label.
type Bucket struct {
	Column string
	Edges  []float64
	Labels []string
	// Target defaults to "<Column>_category".
	Target string
}

func (b Bucket) target() string {
	if b.Target != "" {
		return b.Target
	}
	return b.Column + "_category"
}

func (b Bucket) validate() error {
	if len(b.Edges) < 2 {
		return fmt.Errorf("bucket %s: need at least two edges", b.Column)
	}
	if len(b.Labels) != len(b.Edges)-1 {
		return fmt.Errorf("bucket %s: %d labels for %d bins", b.Column, len(b.Labels), len(b.Edges)-1)
	}
	for i := 1; i < len(b.Edges); i++ {
		if b.Edges[i] <= b.Edges[i-1] {
			return fmt.Errorf("bucket %s: edges must be strictly increasing", b.Column)
		}
	}
	return nil
}

// Label returns the label of the bin holding v.
func (b Bucket) Label(v float64) (string, bool) {
	for i := 0; i < len(b.Edges)-1; i++ {
		if v >= b.Edges[i] && v < b.Edges[i+1] {
			return b.Labels[i], true
		}
	}
	return "", false
}

func (b Bucket) Apply(in *table.Table) (*table.Table, error) {
	if err := b.validate(); err != nil {
		return nil, err
	}
	if err := in.Require("bucket", b.Column); err != nil {
		return nil, err
	}
	target := b.target()
	out := in.Clone()
	out.AddColumn(target, table.KindString)
	for _, r := range out.Rows {
		r[target] = nil
		v, err := table.Convert(r[b.Column], table.KindFloat)
		if err != nil || v == nil {
			continue
		}
		if label, ok := b.Label(v.(float64)); ok {
			r[target] = label
		}
	}
	return out, nil
}
