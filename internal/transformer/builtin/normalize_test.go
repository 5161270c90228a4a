package builtin

import (
	"reflect"
	"testing"

	"musicetl/internal/table"
	"musicetl/pkg/records"
)

const nbspace = "\u00a0"

/*
TestNormalizeApply_TableDriven verifies the core normalization semantics of
Normalize.Apply:

  - Replaces U+00A0 NO-BREAK SPACE (NBSP) with ASCII space.
  - Trims leading/trailing whitespace.
  - Leaves non-string values unchanged.
  - Touches only Columns when they are given.
  - Leaves the input table untouched.
*/
func TestNormalizeApply_TableDriven(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		cols []string
		in   records.Record
		want records.Record
	}{
		{
			name: "no_strings_no_change",
			in:   records.Record{"a": int64(1), "b": true, "c": nil},
			want: records.Record{"a": int64(1), "b": true, "c": nil},
		},
		{
			name: "simple_trim_spaces",
			in:   records.Record{"a": " foo ", "b": "\tbar\n"},
			want: records.Record{"a": "foo", "b": "bar"},
		},
		{
			name: "nbsp_replaced_and_trimmed",
			in:   records.Record{"a": " " + nbspace + "foo" + nbspace + " "},
			want: records.Record{"a": "foo"},
		},
		{
			name: "nbsp_internal_only_not_trimmed",
			in:   records.Record{"a": "foo" + nbspace + "bar"},
			want: records.Record{"a": "foo bar"},
		},
		{
			name: "only_listed_columns",
			cols: []string{"artist"},
			in:   records.Record{"artist": nbspace + "Eagles ", "workers": " ,  soloist"},
			want: records.Record{"artist": "Eagles", "workers": " ,  soloist"},
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			in := &table.Table{Rows: []records.Record{tc.in}}
			before := tc.in.Clone()

			out, err := Normalize{Columns: tc.cols}.Apply(in)
			if err != nil {
				t.Fatalf("Apply: %v", err)
			}
			if !reflect.DeepEqual(out.Rows[0], tc.want) {
				t.Fatalf("Normalize.Apply() mismatch:\n got: %#v\nwant: %#v", out.Rows[0], tc.want)
			}
			if !reflect.DeepEqual(in.Rows[0], before) {
				t.Fatalf("input row mutated: %#v", in.Rows[0])
			}
		})
	}
}
