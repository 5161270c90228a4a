package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"musicetl/internal/config"
	"musicetl/internal/remote"
	"musicetl/internal/schema"
	"musicetl/internal/storage"
)

const nominationsCSV = `year,title,published_at,updated_at,category,nominee,artist,workers,img,winner
1978,20th Annual GRAMMY Awards  (1977),2017-11-28T00:03:45-08:00,2019-09-10T01:06:11-07:00,Record Of The Year,Hotel California,Eagles,"Bill Szymczyk, producer",,True
`

const catalogCSV = `,track_id,artists,album_name,track_name,popularity,duration_ms,explicit,danceability,energy,key,loudness,mode,speechiness,acousticness,instrumentalness,liveness,valence,tempo,time_signature,track_genre
0,t1,Eagles,Hotel California,Hotel California,75,391376,False,0.5,0.5,1,-5.1,1,0.03,0.01,0.0,0.1,0.6,147.1,4,rock
1,t2,Nobody,Some Album,Unknown Song,10,60000,True,0.5,0.5,1,-5.0,1,0.03,0.01,0.0,0.1,0.6,120.0,4,pop
`

type fakeUploader struct {
	mu    sync.Mutex
	calls int
	body  string
}

func (f *fakeUploader) Upsert(_ context.Context, _, _, _ string, content io.Reader) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	b, err := io.ReadAll(content)
	f.body = string(b)
	return "file-1", err
}

// stubUploader swaps the remote hook for the duration of the test.
func stubUploader(t *testing.T, up remote.Uploader, err error) {
	t.Helper()
	prev := newUploader
	newUploader = func(context.Context, remote.CredentialProvider, *zap.Logger) (remote.Uploader, error) {
		return up, err
	}
	t.Cleanup(func() { newUploader = prev })
}

type workspace struct {
	dir, nominations, catalog, db string
}

func newWorkspace(t *testing.T) workspace {
	t.Helper()
	dir := t.TempDir()
	w := workspace{
		dir:         dir,
		nominations: filepath.Join(dir, "nominations.csv"),
		catalog:     filepath.Join(dir, "catalog.csv"),
		db:          filepath.Join(dir, "music.db"),
	}
	require.NoError(t, os.WriteFile(w.nominations, []byte(nominationsCSV), 0o644))
	require.NoError(t, os.WriteFile(w.catalog, []byte(catalogCSV), 0o644))
	return w
}

func (w workspace) args(extra ...string) []string {
	return append([]string{
		"--nominations", w.nominations,
		"--catalog", w.catalog,
		"--storage", "sqlite",
		"--dsn", w.db,
		"--log-level", "error",
	}, extra...)
}

func execute(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	root := newRootCmd()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

func TestRunCommand(t *testing.T) {
	w := newWorkspace(t)
	up := &fakeUploader{}
	stubUploader(t, up, nil)

	_, _, err := execute(t, "", append([]string{"run"}, w.args()...)...)
	require.NoError(t, err)

	assert.Equal(t, 1, up.calls)
	assert.True(t, strings.HasPrefix(up.body, strings.Join(schema.SongsData.ColumnNames(), ",")+"\n"))

	repo, err := storage.New(context.Background(), storage.Config{Kind: "sqlite", DSN: w.db})
	require.NoError(t, err)
	defer repo.Close()
	songs, err := storage.ReadAll(context.Background(), repo, schema.SongsData)
	require.NoError(t, err)
	assert.Equal(t, 2, songs.Len())
}

func TestRunCommandRemoteDisabled(t *testing.T) {
	w := newWorkspace(t)
	stubUploader(t, nil, errors.New("must not be called"))

	_, _, err := execute(t, "", append([]string{"run"}, w.args("--remote=false")...)...)
	require.NoError(t, err)
}

func TestRunCommandRejectsInvalidConfig(t *testing.T) {
	w := newWorkspace(t)
	_, stderr, err := execute(t, "", append([]string{"run"}, w.args("--storage", "oracle")...)...)
	require.Error(t, err)
	assert.Contains(t, stderr, "error: storage.kind: unknown storage kind")
}

func TestValidateCommand(t *testing.T) {
	w := newWorkspace(t)

	out, _, err := execute(t, "", append([]string{"validate"}, w.args()...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "configuration is valid")

	_, stderr, err := execute(t, "", append([]string{"validate"}, w.args("--metrics", "prom")...)...)
	require.Error(t, err)
	assert.Contains(t, stderr, "error: metrics.push_url:")
}

func TestValidateCommandReadsConfigFile(t *testing.T) {
	w := newWorkspace(t)
	cfg := filepath.Join(w.dir, "musicetl.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte("job: \"\"\n"), 0o644))

	_, stderr, err := execute(t, "", append([]string{"validate", "--config", cfg}, w.args()...)...)
	require.Error(t, err)
	assert.Contains(t, stderr, "error: job:")
}

func TestStageCommand(t *testing.T) {
	w := newWorkspace(t)
	stubUploader(t, nil, errors.New("must not be called"))

	raw := filepath.Join(w.dir, "raw.json")
	_, _, err := execute(t, "", append([]string{"stage", "extract_nominations", "--out", raw}, w.args()...)...)
	require.NoError(t, err)

	b, err := os.ReadFile(raw)
	require.NoError(t, err)
	out, _, err := execute(t, string(b), append([]string{"stage", "transform_nominations"}, w.args()...)...)
	require.NoError(t, err)
	assert.Contains(t, out, `"nominee":"hotel california"`)
	assert.Contains(t, out, `"nominee_status":`)
	assert.NotContains(t, out, "published_at")
}

func TestStageCommandErrors(t *testing.T) {
	w := newWorkspace(t)

	_, _, err := execute(t, "", append([]string{"stage", "compact"}, w.args()...)...)
	assert.ErrorContains(t, err, `unknown stage "compact"`)

	_, _, err = execute(t, "", append([]string{"stage", "merge", "--in", "one.json"}, w.args()...)...)
	assert.ErrorContains(t, err, "needs 2 --in file(s), got 1")
}

func TestInitMetrics(t *testing.T) {
	log := zaptest.NewLogger(t)

	flush, stop, err := initMetrics(config.Metrics{Backend: "none"}, "job", log)
	require.NoError(t, err)
	flush()
	stop()

	_, _, err = initMetrics(config.Metrics{Backend: "graphite"}, "job", log)
	assert.ErrorContains(t, err, `unknown backend "graphite"`)

	_, _, err = initMetrics(config.Metrics{Backend: "datadog"}, "job", log)
	assert.ErrorContains(t, err, "datadog backend")
}

func TestNewContainerWiring(t *testing.T) {
	w := newWorkspace(t)
	cfg, err := config.Load("", nil)
	require.NoError(t, err)
	cfg.Storage.Kind = "sqlite"
	cfg.Storage.DB.DSN = w.db

	up := &fakeUploader{}
	stubUploader(t, up, nil)
	log := zaptest.NewLogger(t)

	c, err := newContainer(context.Background(), cfg, log, wiring{})
	require.NoError(t, err)
	assert.Nil(t, c.stages.Repo)
	assert.Nil(t, c.stages.Exporter)
	c.Close()

	c, err = newContainer(context.Background(), cfg, log, wiring{repo: true, remote: true})
	require.NoError(t, err)
	assert.NotNil(t, c.stages.Repo)
	require.NotNil(t, c.stages.Exporter)
	assert.Equal(t, up, c.stages.Exporter.Uploader)
	c.Close()

	stubUploader(t, nil, errors.New("no secrets"))
	_, err = newContainer(context.Background(), cfg, log, wiring{remote: true})
	assert.ErrorContains(t, err, "remote: no secrets")
}

func TestSchedule(t *testing.T) {
	log := zaptest.NewLogger(t)

	err := schedule(context.Background(), "every day", false, log, func(context.Context) {})
	assert.ErrorContains(t, err, "invalid spec")

	ctx, cancel := context.WithCancel(context.Background())
	var runs atomic.Int32
	require.NoError(t, schedule(ctx, "@every 1h", true, log, func(context.Context) {
		runs.Add(1)
		cancel()
	}))
	assert.Equal(t, int32(1), runs.Load())
}

func TestWatchLoopDebounces(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "nominations.csv")
	events := make(chan fsnotify.Event)
	errs := make(chan error)

	ran := make(chan struct{}, 4)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		watchLoop(ctx, events, errs, []string{src}, 20*time.Millisecond, zaptest.NewLogger(t), func(context.Context) {
			ran <- struct{}{}
		})
	}()

	events <- fsnotify.Event{Name: src, Op: fsnotify.Write}
	events <- fsnotify.Event{Name: src, Op: fsnotify.Write}
	events <- fsnotify.Event{Name: src, Op: fsnotify.Create}
	events <- fsnotify.Event{Name: filepath.Join(dir, "other.csv"), Op: fsnotify.Write}
	events <- fsnotify.Event{Name: src, Op: fsnotify.Chmod}
	errs <- errors.New("overflow")

	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Fatal("watch loop never ran")
	}
	select {
	case <-ran:
		t.Fatal("burst produced more than one run")
	case <-time.After(100 * time.Millisecond):
	}

	cancel()
	<-done
}

func TestWatchNeedsLocalFiles(t *testing.T) {
	err := watch(context.Background(), []string{"https://example.com/a.csv", ""}, time.Second, zaptest.NewLogger(t), func(context.Context) {})
	assert.ErrorContains(t, err, "no local source files")
}
