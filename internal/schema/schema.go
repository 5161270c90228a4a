// Package schema holds the fixed definitions of the destination tables and
// converts between pipeline tables and the row slices the storage backends
// exchange.
package schema

import (
	"fmt"

	"musicetl/internal/ddl"
	"musicetl/internal/table"
	"musicetl/pkg/records"
)

// Table names.
const (
	GrammyAwardsTable = "grammy_awards"
	SongsDataTable    = "songs_data"
)

// GrammyAwards is the raw nomination table, persisted right after loading.
var GrammyAwards = ddl.TableDef{
	Name: GrammyAwardsTable,
	Columns: []ddl.ColumnDef{
		{Name: "id", Kind: table.KindInt, PrimaryKey: true},
		{Name: "year", Kind: table.KindInt, Nullable: true},
		{Name: "title", Kind: table.KindString, Nullable: true},
		{Name: "published_at", Kind: table.KindDate, Nullable: true},
		{Name: "updated_at", Kind: table.KindDate, Nullable: true},
		{Name: "category", Kind: table.KindString, Nullable: true},
		{Name: "nominee", Kind: table.KindString, Nullable: true},
		{Name: "artist", Kind: table.KindString, Nullable: true},
		{Name: "workers", Kind: table.KindString, Nullable: true},
		{Name: "img", Kind: table.KindString, Nullable: true},
		{Name: "winner", Kind: table.KindBool, Nullable: true},
	},
}

// SongsData is the merged catalog table.
var SongsData = ddl.TableDef{
	Name: SongsDataTable,
	Columns: []ddl.ColumnDef{
		{Name: "id", Kind: table.KindInt, PrimaryKey: true},
		{Name: "track_id", Kind: table.KindString, Nullable: true},
		{Name: "track_name", Kind: table.KindString, Nullable: true},
		{Name: "artists", Kind: table.KindString, Nullable: true},
		{Name: "album_name", Kind: table.KindString, Nullable: true},
		{Name: "popularity", Kind: table.KindInt, Nullable: true},
		{Name: "popularity_category", Kind: table.KindString, Nullable: true},
		{Name: "duration_ms", Kind: table.KindInt, Nullable: true},
		{Name: "duration_min_sec", Kind: table.KindString, Nullable: true},
		{Name: "explicit", Kind: table.KindBool, Nullable: true},
		{Name: "track_genre", Kind: table.KindString, Nullable: true},
		{Name: "genre", Kind: table.KindString, Nullable: true},
		{Name: "year", Kind: table.KindInt, Nullable: true},
		{Name: "category", Kind: table.KindString, Nullable: true},
		{Name: "nominee_status", Kind: table.KindBool},
	},
}

// ByName returns the definition of a known destination table.
func ByName(name string) (ddl.TableDef, bool) {
	switch name {
	case GrammyAwardsTable:
		return GrammyAwards, true
	case SongsDataTable:
		return SongsData, true
	}
	return ddl.TableDef{}, false
}

// Rows projects t onto the columns of def, converting every value to the
// column kind. Columns of def missing from t yield a SchemaMismatchError;
// extra columns of t are ignored. A nil value in a NOT NULL column is an
// error.
func Rows(def ddl.TableDef, t *table.Table) ([][]any, error) {
	if err := t.Require("persist "+def.Name, def.ColumnNames()...); err != nil {
		return nil, err
	}
	out := make([][]any, len(t.Rows))
	for i, r := range t.Rows {
		row := make([]any, len(def.Columns))
		for j, c := range def.Columns {
			v, err := table.Convert(r[c.Name], c.Kind)
			if err != nil {
				return nil, fmt.Errorf("%s row %d column %s: %w", def.Name, i+1, c.Name, err)
			}
			if v == nil && (!c.Nullable || c.PrimaryKey) {
				return nil, fmt.Errorf("%s row %d column %s: null in NOT NULL column", def.Name, i+1, c.Name)
			}
			row[j] = v
		}
		out[i] = row
	}
	return out, nil
}

// FromRows builds a typed table from scanned rows ordered like def.Columns.
// Driver values ([]byte, int64, float64, time.Time, bool, string) are
// converted to the column kinds.
func FromRows(def ddl.TableDef, rows [][]any) (*table.Table, error) {
	t := &table.Table{Columns: make([]table.Column, len(def.Columns))}
	for j, c := range def.Columns {
		t.Columns[j] = table.Column{Name: c.Name, Kind: c.Kind}
	}
	t.Rows = make([]records.Record, 0, len(rows))
	for i, row := range rows {
		if len(row) != len(def.Columns) {
			return nil, fmt.Errorf("%s row %d: got %d values for %d columns", def.Name, i+1, len(row), len(def.Columns))
		}
		r := make(records.Record, len(def.Columns))
		for j, c := range def.Columns {
			v := row[j]
			if b, ok := v.([]byte); ok {
				v = string(b)
			}
			cv, err := table.Convert(v, c.Kind)
			if err != nil {
				return nil, fmt.Errorf("%s row %d column %s: %w", def.Name, i+1, c.Name, err)
			}
			r[c.Name] = cv
		}
		t.Append(r)
	}
	return t, nil
}
