package builtin

import (
	"fmt"
	"math"

	"musicetl/internal/table"
)

// Duration renders a millisecond column as "MM:SS" into To. Minutes wrap at
// 60, matching the minute field of a clock time. Negative, null or
// non-numeric values produce nil.
type Duration struct {
	From string
	To   string
}

func (d Duration) Apply(in *table.Table) (*table.Table, error) {
	if err := in.Require("duration", d.From); err != nil {
		return nil, err
	}
	out := in.Clone()
	out.AddColumn(d.To, table.KindString)
	for _, r := range out.Rows {
		r[d.To] = nil
		v, err := table.Convert(r[d.From], table.KindFloat)
		if err != nil || v == nil {
			continue
		}
		if s, ok := FormatDuration(v.(float64)); ok {
			r[d.To] = s
		}
	}
	return out, nil
}

// FormatDuration formats ms as "MM:SS" with sub-second precision truncated.
func FormatDuration(ms float64) (string, bool) {
	if ms < 0 || math.IsNaN(ms) || math.IsInf(ms, 0) {
		return "", false
	}
	secs := int64(ms / 1000)
	return fmt.Sprintf("%02d:%02d", (secs/60)%60, secs%60), true
}
