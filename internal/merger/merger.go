// Package merger joins the cleaned nomination table onto the catalog.
package merger

import (
	"errors"
	"slices"

	"github.com/zeebo/xxh3"

	"musicetl/internal/table"
	"musicetl/pkg/records"
)

// DefaultPrefix is put in front of left-side column names that collide with a
// right-side column.
const DefaultPrefix = "nomination_"

// Options selects the join keys and the win-indicator column.
type Options struct {
	// LeftKeys and RightKeys are compared pairwise with exact equality.
	LeftKeys  []string
	RightKeys []string

	// Indicator is a left-side boolean column that is never null in the
	// output: rows without a match, or with a null value, get false.
	Indicator string

	// Prefix renames colliding left columns. Defaults to DefaultPrefix.
	Prefix string
}

// Stats describes a join result.
type Stats struct {
	Matched int // output rows that found a left row
	Total   int // output rows
	Winners int // output rows whose indicator is true
}

// RightJoin keeps every row of right. Each right row appears once per
// matching left row, or once with null left columns when nothing matches.
// A null key part never matches. Output columns are right's columns followed
// by left's (renamed on collision) and the indicator.
//
// A right table with no columns is treated as empty and yields no rows. A left
// table with no columns is treated as empty too: every right row is kept once
// with a false indicator.
func RightJoin(left, right *table.Table, opt Options) (*table.Table, Stats, error) {
	if len(opt.LeftKeys) == 0 || len(opt.LeftKeys) != len(opt.RightKeys) {
		return nil, Stats{}, errors.New("merge: left and right keys must be non-empty and of equal length")
	}
	if opt.Prefix == "" {
		opt.Prefix = DefaultPrefix
	}
	leftEmpty := len(left.Columns) == 0 && left.Len() == 0
	if !leftEmpty {
		if err := left.Require("merge (left)", opt.LeftKeys...); err != nil {
			return nil, Stats{}, err
		}
	}
	rightEmpty := len(right.Columns) == 0 && right.Len() == 0
	if !rightEmpty {
		if err := right.Require("merge (right)", opt.RightKeys...); err != nil {
			return nil, Stats{}, err
		}
	}

	out := &table.Table{Columns: slices.Clone(right.Columns)}
	leftNames := make([]string, len(left.Columns))
	for i, c := range left.Columns {
		name := c.Name
		if right.Has(name) {
			name = opt.Prefix + name
		}
		leftNames[i] = name
		out.Columns = append(out.Columns, table.Column{Name: name, Kind: c.Kind})
	}
	indicator := ""
	if opt.Indicator != "" {
		indicator = opt.Indicator
		if i := left.Index(opt.Indicator); i >= 0 {
			indicator = leftNames[i]
		}
		out.AddColumn(indicator, table.KindBool)
	}

	idx := buildIndex(left, opt.LeftKeys)
	var st Stats
	for _, rr := range right.Rows {
		matches := idx.lookup(rr, opt.RightKeys)
		if len(matches) == 0 {
			row := rr.Clone()
			for _, name := range leftNames {
				row[name] = nil
			}
			out.Append(row)
			continue
		}
		for _, li := range matches {
			row := rr.Clone()
			lr := left.Rows[li]
			for i, c := range left.Columns {
				row[leftNames[i]] = lr[c.Name]
			}
			out.Append(row)
			st.Matched++
		}
	}

	if indicator != "" {
		for _, r := range out.Rows {
			b, err := table.Convert(r[indicator], table.KindBool)
			if err != nil || b == nil {
				b = false
			}
			r[indicator] = b
			if won, _ := b.(bool); won {
				st.Winners++
			}
		}
	}
	st.Total = out.Len()
	return out, st, nil
}

type index struct {
	left    *table.Table
	keys    []string
	buckets map[uint64][]int
}

func buildIndex(left *table.Table, keys []string) *index {
	idx := &index{left: left, keys: keys, buckets: make(map[uint64][]int, left.Len())}
	for i, r := range left.Rows {
		h, ok := keyHash(r, keys)
		if !ok {
			continue
		}
		idx.buckets[h] = append(idx.buckets[h], i)
	}
	return idx
}

// lookup returns the left row positions whose key equals r's, in left order.
func (idx *index) lookup(r records.Record, keys []string) []int {
	h, ok := keyHash(r, keys)
	if !ok {
		return nil
	}
	var out []int
	for _, li := range idx.buckets[h] {
		if keysEqual(idx.left.Rows[li], idx.keys, r, keys) {
			out = append(out, li)
		}
	}
	return out
}

// keyHash hashes the composite key. ok is false when a part is null.
func keyHash(r records.Record, keys []string) (uint64, bool) {
	var buf []byte
	for _, k := range keys {
		v := r[k]
		if v == nil {
			return 0, false
		}
		buf = append(buf, typeTag(v))
		buf = append(buf, records.Text(v)...)
		buf = append(buf, 0x1f)
	}
	return xxh3.Hash(buf), true
}

func typeTag(v any) byte {
	switch v.(type) {
	case string:
		return 's'
	case int64, int:
		return 'i'
	case float64:
		return 'f'
	case bool:
		return 'b'
	}
	return 'o'
}

func keysEqual(a records.Record, ak []string, b records.Record, bk []string) bool {
	for i := range ak {
		if a[ak[i]] != b[bk[i]] {
			return false
		}
	}
	return true
}
