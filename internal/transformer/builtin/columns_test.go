package builtin

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"musicetl/internal/table"
	"musicetl/pkg/records"
)

func TestRequireDropsNullAndBlank(t *testing.T) {
	t.Parallel()

	in := table.New("nominee", "artist")
	in.Append(records.Record{"nominee": "A", "artist": "x"})
	in.Append(records.Record{"nominee": "B", "artist": nil})
	in.Append(records.Record{"nominee": "  ", "artist": "y"})
	in.Append(records.Record{"nominee": "D", "artist": "z"})

	out, err := Require{Fields: []string{"nominee", "artist"}}.Apply(in)
	require.NoError(t, err)
	assert.Equal(t, []any{"A", "D"}, out.Column("nominee"))
	assert.Equal(t, 4, in.Len())

	_, err = Require{Fields: []string{"workers"}}.Apply(in)
	var sm *table.SchemaMismatchError
	assert.True(t, errors.As(err, &sm))
}

func TestDropColumnsIgnoresAbsent(t *testing.T) {
	t.Parallel()

	in := table.New("id", "img", "title")
	in.Append(records.Record{"id": int64(1), "img": "u", "title": "t"})

	out, err := DropColumns{Columns: []string{"img", "published_at"}}.Apply(in)
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "title"}, out.Names())
	assert.NotContains(t, out.Rows[0], "img")
	assert.True(t, in.Has("img"))

	empty, err := DropColumns{Columns: []string{"energy"}}.Apply(table.Empty())
	require.NoError(t, err)
	assert.Zero(t, empty.Len())
}

func TestRename(t *testing.T) {
	t.Parallel()

	in := table.New("id", "winner", "nominee")
	in.Append(records.Record{"id": int64(1), "winner": true, "nominee": "x"})

	out, err := Rename{Mapping: map[string]string{"winner": "nominee_status", "absent": "x"}}.Apply(in)
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "nominee_status", "nominee"}, out.Names())
	assert.Equal(t, true, out.Rows[0]["nominee_status"])
	assert.NotContains(t, out.Rows[0], "winner")
	assert.True(t, in.Has("winner"))
}

func TestRenameSwapAndCollision(t *testing.T) {
	t.Parallel()

	in := table.New("a", "b")
	in.Append(records.Record{"a": 1, "b": 2})

	out, err := Rename{Mapping: map[string]string{"a": "b", "b": "a"}}.Apply(in)
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a"}, out.Names())
	assert.Equal(t, records.Record{"a": 2, "b": 1}, out.Rows[0])

	_, err = Rename{Mapping: map[string]string{"a": "b"}}.Apply(in)
	var sm *table.SchemaMismatchError
	require.True(t, errors.As(err, &sm))
	assert.Contains(t, sm.Error(), "would both be named")
}
