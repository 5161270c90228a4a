// Package cleaner holds the nomination-specific repair rules and the key
// normalization applied to both join sides.
package cleaner

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"musicetl/internal/table"
	"musicetl/pkg/records"
)

const (
	ArtistColumn  = "artist"
	WorkersColumn = "workers"
)

// artistRules are tried in this order for every row. Later rules override
// earlier ones only when they match, so the result is the last rule that
// matched, not the most specific one.
var artistRules = []*regexp.Regexp{
	regexp.MustCompile(`(?i)songwriters? \((.*?)\)`),
	regexp.MustCompile(`(?i)([^,]+), soloist`),
	regexp.MustCompile(`(?i)composer \((.*?)\)`),
	regexp.MustCompile(`(?i)arrangers? \((.*?)\)`),
	regexp.MustCompile(`(?i)\((.*?)\)`),
}

// ExtractArtist evaluates every rule against workers and returns the capture
// of the last rule that matched. An empty capture still counts as a match.
func ExtractArtist(workers string) (string, bool) {
	var (
		out   string
		found bool
	)
	for _, re := range artistRules {
		if m := re.FindStringSubmatch(workers); m != nil {
			out, found = m[1], true
		}
	}
	return out, found
}

// FillArtist returns a copy of t where every null artist with a non-null
// workers value is replaced by ExtractArtist(workers). Rows where no rule
// matches keep a null artist.
func FillArtist(t *table.Table) (*table.Table, error) {
	if err := t.Require("fill artist", ArtistColumn, WorkersColumn); err != nil {
		return nil, err
	}
	out := t.Clone()
	for _, r := range out.Rows {
		if !r.IsNull(ArtistColumn) || r.IsNull(WorkersColumn) {
			continue
		}
		if a, ok := ExtractArtist(records.Text(r[WorkersColumn])); ok {
			r[ArtistColumn] = a
		}
	}
	return out, nil
}

// FillWorkers returns a copy of t where a null workers value is set to the
// row's artist when artist is non-null. Workers never flows back to artist.
func FillWorkers(t *table.Table) (*table.Table, error) {
	if err := t.Require("fill workers", ArtistColumn, WorkersColumn); err != nil {
		return nil, err
	}
	out := t.Clone()
	for _, r := range out.Rows {
		if !r.IsNull(ArtistColumn) && r.IsNull(WorkersColumn) {
			r[WorkersColumn] = r[ArtistColumn]
		}
	}
	return out, nil
}

// NormalizeKeys returns a copy of t with the named string columns lower-cased
// and trimmed. Non-string values are left alone.
func NormalizeKeys(t *table.Table, cols ...string) (*table.Table, error) {
	if err := t.Require("normalize keys", cols...); err != nil {
		return nil, err
	}
	lower := cases.Lower(language.Und)
	out := t.Clone()
	for _, r := range out.Rows {
		for _, c := range cols {
			if s, ok := r.String(c); ok {
				r[c] = strings.TrimSpace(lower.String(s))
			}
		}
	}
	return out, nil
}
