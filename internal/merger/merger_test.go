package merger

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"musicetl/internal/table"
	"musicetl/pkg/records"
)

var opts = Options{
	LeftKeys:  []string{"artist", "nominee"},
	RightKeys: []string{"artists", "track_name"},
	Indicator: "nominee_status",
}

func nominations(rows ...records.Record) *table.Table {
	t := table.New("id", "year", "category", "nominee", "artist", "nominee_status")
	for _, r := range rows {
		t.Append(r)
	}
	return t
}

func catalog(rows ...records.Record) *table.Table {
	t := table.New("id", "track_id", "artists", "track_name")
	for _, r := range rows {
		t.Append(r)
	}
	return t
}

func TestRightJoinMatchAndBackfill(t *testing.T) {
	t.Parallel()

	left := nominations(
		records.Record{"id": int64(1), "year": int64(1978), "category": "Record Of The Year", "nominee": "hotel california", "artist": "eagles", "nominee_status": true},
		records.Record{"id": int64(2), "year": int64(2000), "category": "Best Rock Song", "nominee": "nowhere", "artist": "nobody", "nominee_status": false},
	)
	right := catalog(
		records.Record{"id": int64(1), "track_id": "a", "artists": "eagles", "track_name": "hotel california"},
		records.Record{"id": int64(2), "track_id": "b", "artists": "someone", "track_name": "other"},
	)

	out, st, err := RightJoin(left, right, opts)
	require.NoError(t, err)
	assert.Equal(t, Stats{Matched: 1, Total: 2, Winners: 1}, st)
	require.Equal(t, right.Len(), out.Len())

	assert.Equal(t, []string{
		"id", "track_id", "artists", "track_name",
		"nomination_id", "year", "category", "nominee", "artist", "nominee_status",
	}, out.Names())

	hit := out.Rows[0]
	assert.Equal(t, true, hit["nominee_status"])
	assert.Equal(t, int64(1978), hit["year"])
	assert.Equal(t, int64(1), hit["id"], "catalog id wins the plain name")
	assert.Equal(t, int64(1), hit["nomination_id"])

	miss := out.Rows[1]
	assert.Equal(t, false, miss["nominee_status"])
	assert.Nil(t, miss["year"])
	assert.Nil(t, miss["nomination_id"])
	assert.Contains(t, miss, "category")
}

func TestRightJoinDuplicatesCatalogRowPerNomination(t *testing.T) {
	t.Parallel()

	left := nominations(
		records.Record{"id": int64(1), "nominee": "bad guy", "artist": "billie eilish", "nominee_status": true},
		records.Record{"id": int64(2), "nominee": "bad guy", "artist": "billie eilish", "nominee_status": false},
	)
	right := catalog(records.Record{"id": int64(1), "artists": "billie eilish", "track_name": "bad guy"})

	out, st, err := RightJoin(left, right, opts)
	require.NoError(t, err)
	assert.Equal(t, 2, out.Len())
	assert.Equal(t, Stats{Matched: 2, Total: 2, Winners: 1}, st)
	assert.Equal(t, []any{int64(1), int64(2)}, out.Column("nomination_id"))
}

func TestRightJoinNullKeysNeverMatch(t *testing.T) {
	t.Parallel()

	left := nominations(records.Record{"id": int64(1), "nominee": "x", "artist": nil, "nominee_status": true})
	right := catalog(records.Record{"id": int64(1), "artists": nil, "track_name": "x"})

	out, st, err := RightJoin(left, right, opts)
	require.NoError(t, err)
	assert.Zero(t, st.Matched)
	assert.Equal(t, false, out.Rows[0]["nominee_status"])
}

func TestRightJoinNullIndicatorOnMatchIsFalse(t *testing.T) {
	t.Parallel()

	left := nominations(records.Record{"id": int64(1), "nominee": "x", "artist": "y", "nominee_status": nil})
	right := catalog(records.Record{"id": int64(7), "artists": "y", "track_name": "x"})

	out, st, err := RightJoin(left, right, opts)
	require.NoError(t, err)
	assert.Equal(t, 1, st.Matched)
	assert.Equal(t, false, out.Rows[0]["nominee_status"])
}

func TestRightJoinDoesNotNormalize(t *testing.T) {
	t.Parallel()

	left := nominations(records.Record{"id": int64(1), "nominee": "Hotel California", "artist": "Eagles", "nominee_status": true})
	right := catalog(records.Record{"id": int64(1), "artists": "eagles", "track_name": "hotel california"})

	_, st, err := RightJoin(left, right, opts)
	require.NoError(t, err)
	assert.Zero(t, st.Matched)
}

func TestRightJoinEmptyCatalog(t *testing.T) {
	t.Parallel()

	left := nominations(records.Record{"id": int64(1), "nominee": "x", "artist": "y", "nominee_status": true})
	out, st, err := RightJoin(left, table.Empty(), opts)
	require.NoError(t, err)
	assert.Zero(t, out.Len())
	assert.Equal(t, Stats{}, st)
	assert.True(t, out.Has("nominee_status"))
}

func TestRightJoinEmptyNominationsKeepsCatalog(t *testing.T) {
	t.Parallel()

	right := catalog(
		records.Record{"id": int64(1), "track_id": "t1", "artists": "eagles", "track_name": "hotel california"},
		records.Record{"id": int64(2), "track_id": "t2", "artists": "nobody", "track_name": "unknown song"},
	)
	out, st, err := RightJoin(table.Empty(), right, opts)
	require.NoError(t, err)
	require.Equal(t, 2, out.Len())
	assert.Equal(t, Stats{Total: 2}, st)
	assert.Equal(t, []any{false, false}, out.Column("nominee_status"))
	assert.Equal(t, []any{"t1", "t2"}, out.Column("track_id"))
}

func TestRightJoinValidation(t *testing.T) {
	t.Parallel()

	_, _, err := RightJoin(nominations(), catalog(), Options{LeftKeys: []string{"artist"}})
	assert.Error(t, err)

	_, _, err = RightJoin(table.New("artist"), catalog(), opts)
	var sm *table.SchemaMismatchError
	require.True(t, errors.As(err, &sm))
	assert.Equal(t, []string{"nominee"}, sm.Missing)

	_, _, err = RightJoin(nominations(), table.New("artists"), opts)
	require.True(t, errors.As(err, &sm))
	assert.Equal(t, "merge (right)", sm.Stage)
}
