package table

import (
	"encoding/csv"
	"io"

	"musicetl/pkg/records"
)

// WriteCSV writes a header row followed by one line per row. Nulls become
// empty cells.
func (t *Table) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Names()); err != nil {
		return err
	}
	line := make([]string, len(t.Columns))
	for _, r := range t.Rows {
		for i, c := range t.Columns {
			line[i] = records.Text(r[c.Name])
		}
		if err := cw.Write(line); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
