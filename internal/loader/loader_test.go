package loader

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"musicetl/internal/datasource/file"
	pcsv "musicetl/internal/parser/csv"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "in.csv")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func newLoader(log *zap.Logger) *Loader {
	return NewCSV(pcsv.Options{HasHeader: true}, log)
}

func TestLoadAssignsIdentity(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "track_name,artists\na,x\nb,y\nc,z\n")
	l := newLoader(nil)

	first, err := l.LoadPath(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "id", first.Names()[0])
	for i, r := range first.Rows {
		assert.Equal(t, int64(i+1), r["id"])
	}

	second, err := l.LoadPath(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, first.Column("id"), second.Column("id"))
}

func TestLoadOverwritesExistingID(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "name,id\na,90\nb,17\n")
	got, err := newLoader(nil).LoadPath(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "name"}, got.Names())
	assert.Equal(t, []any{int64(1), int64(2)}, got.Column("id"))
}

func TestLoadErrors(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"missing": filepath.Join(t.TempDir(), "missing.csv"),
		"empty":   writeFile(t, ""),
		"dup_hdr": writeFile(t, "a,a\n1,2\n"),
	}
	for name, path := range cases {
		_, err := newLoader(nil).LoadPath(context.Background(), path)
		var sre *SourceReadError
		require.True(t, errors.As(err, &sre), "%s: %v", name, err)
		assert.Equal(t, path, sre.Path, name)
	}

	_, err := newLoader(nil).LoadPath(context.Background(), cases["missing"])
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadOrEmptyFallsBack(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zap.WarnLevel)
	l := newLoader(zap.New(core))

	got, err := l.LoadOrEmpty(context.Background(), file.NewLocal(filepath.Join(t.TempDir(), "nope.csv")))
	require.NoError(t, err)
	assert.Zero(t, got.Len())
	assert.Empty(t, got.Columns)
	assert.Equal(t, 1, logs.FilterMessageSnippet("empty table").Len())
}

func TestLoadOrEmptyKeepsCancellation(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newLoader(nil).LoadOrEmpty(ctx, file.NewLocal(writeFile(t, "a\n1\n")))
	assert.ErrorIs(t, err, context.Canceled)
}
