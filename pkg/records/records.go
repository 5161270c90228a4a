// Package records defines the row type shared by every pipeline stage.
//
// A Record maps a column name to a scalar value. The permitted value types are
// string, int64, float64, bool, time.Time and nil. Raw input straight from a
// parser only carries strings and nils; later stages coerce values into the
// other types.
package records

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Record is a single row keyed by column name.
type Record map[string]any

// Clone returns a shallow copy of r.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// IsNull reports whether the value stored under key is absent or nil.
func (r Record) IsNull(key string) bool {
	v, ok := r[key]
	return !ok || v == nil
}

// String returns the value under key as a string and whether it was a
// non-nil string.
func (r Record) String(key string) (string, bool) {
	s, ok := r[key].(string)
	return s, ok
}

// Text renders v the way it appears in delimited output: nil is the empty
// string, times are RFC 3339, floats use the shortest representation.
func Text(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		if t {
			return "True"
		}
		return "False"
	case int64:
		return strconv.FormatInt(t, 10)
	case int:
		return strconv.Itoa(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case time.Time:
		return t.Format(time.RFC3339)
	default:
		return fmt.Sprint(t)
	}
}

// Blank reports whether v is nil or a string containing only whitespace.
func Blank(v any) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	return ok && strings.TrimSpace(s) == ""
}
