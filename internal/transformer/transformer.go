// Package transformer defines table-to-table steps and how they compose.
package transformer

import (
	"fmt"

	"musicetl/internal/table"
)

// Transformer turns one table into another. Implementations must not mutate
// their input.
type Transformer interface {
	Apply(in *table.Table) (*table.Table, error)
}

// Func adapts a plain function to Transformer.
type Func func(*table.Table) (*table.Table, error)

func (f Func) Apply(in *table.Table) (*table.Table, error) { return f(in) }

// Named attaches a label to a step so Chain can say which one failed.
type Named struct {
	Name string
	Transformer
}

// Chain is an ordered list of transformers. It stops at the first error.
type Chain []Transformer

func (c Chain) Apply(in *table.Table) (*table.Table, error) {
	out := in
	for i, t := range c {
		next, err := t.Apply(out)
		if err != nil {
			if n, ok := t.(Named); ok {
				return nil, fmt.Errorf("step %s: %w", n.Name, err)
			}
			return nil, fmt.Errorf("step %d: %w", i, err)
		}
		out = next
	}
	return out, nil
}
