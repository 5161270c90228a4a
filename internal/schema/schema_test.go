package schema

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"musicetl/internal/table"
	"musicetl/pkg/records"
)

func nominations() *table.Table {
	t := table.New("id", "year", "title", "published_at", "updated_at", "category", "nominee", "artist", "workers", "img", "winner", "extra")
	t.Append(records.Record{
		"id": int64(1), "year": "2019", "title": "62nd Annual GRAMMY Awards",
		"published_at": "2020-05-19T05:10:28-07:00", "updated_at": "2020-05-19T05:10:28-07:00",
		"category": "Record Of The Year", "nominee": "Bad Guy", "artist": "Billie Eilish",
		"workers": "Finneas O'Connell, producer", "img": nil, "winner": "True", "extra": "ignored",
	})
	return t
}

func TestRows_ConvertsToColumnKinds(t *testing.T) {
	t.Parallel()

	rows, err := Rows(GrammyAwards, nominations())
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Len(t, rows[0], len(GrammyAwards.Columns))

	assert.Equal(t, int64(1), rows[0][0])
	assert.Equal(t, int64(2019), rows[0][1])
	assert.IsType(t, time.Time{}, rows[0][3])
	assert.Nil(t, rows[0][9])
	assert.Equal(t, true, rows[0][10])
}

func TestRows_MissingColumn(t *testing.T) {
	t.Parallel()

	in := nominations()
	in.DropColumn("winner")

	_, err := Rows(GrammyAwards, in)
	var sme *table.SchemaMismatchError
	require.True(t, errors.As(err, &sme), "want SchemaMismatchError, got %v", err)
	assert.Equal(t, []string{"winner"}, sme.Missing)
}

func TestRows_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		patch records.Record
		want  string
	}{
		{name: "bad int", patch: records.Record{"year": "nineteen"}, want: "column year"},
		{name: "null primary key", patch: records.Record{"id": nil}, want: "null in NOT NULL column"},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			in := nominations()
			for k, v := range tc.patch {
				in.Rows[0][k] = v
			}
			_, err := Rows(GrammyAwards, in)
			require.Error(t, err)
			assert.True(t, strings.Contains(err.Error(), tc.want), "error %q lacks %q", err, tc.want)
		})
	}
}

func TestFromRows_DriverValues(t *testing.T) {
	t.Parallel()

	raw := make([]any, len(SongsData.Columns))
	raw[0] = int64(7)
	raw[1] = []byte("4uLU6hMCjMI75M1A2tKUQC")
	raw[5] = int64(73)
	raw[9] = int64(0)
	raw[14] = int64(1)

	got, err := FromRows(SongsData, [][]any{raw})
	require.NoError(t, err)
	require.Equal(t, 1, got.Len())
	assert.Equal(t, SongsData.ColumnNames(), got.Names())
	assert.Equal(t, table.KindBool, got.KindOf("nominee_status"))

	r := got.Rows[0]
	assert.Equal(t, int64(7), r["id"])
	assert.Equal(t, "4uLU6hMCjMI75M1A2tKUQC", r["track_id"])
	assert.Equal(t, false, r["explicit"])
	assert.Equal(t, true, r["nominee_status"])
	assert.Nil(t, r["genre"])

	_, err = FromRows(SongsData, [][]any{{int64(1)}})
	assert.Error(t, err)
}

func TestByName(t *testing.T) {
	t.Parallel()

	def, ok := ByName("songs_data")
	require.True(t, ok)
	assert.Equal(t, SongsDataTable, def.Name)
	_, ok = ByName("nope")
	assert.False(t, ok)
}
