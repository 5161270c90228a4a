// Package pipeline wires the loader, cleaner, transformers, merger and sinks
// into the stages of one ETL run.
//
// Each stage takes and returns tables serialized as JSON row arrays, so an
// external scheduler can run the stages as separate tasks and pass outputs
// between them. Runner executes the same stages in-process.
package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"musicetl/internal/cleaner"
	"musicetl/internal/config"
	"musicetl/internal/datasource"
	"musicetl/internal/datasource/file"
	"musicetl/internal/datasource/httpds"
	"musicetl/internal/ddl"
	"musicetl/internal/loader"
	"musicetl/internal/logging"
	"musicetl/internal/merger"
	"musicetl/internal/metrics"
	pcsv "musicetl/internal/parser/csv"
	"musicetl/internal/remote"
	"musicetl/internal/schema"
	"musicetl/internal/storage"
	"musicetl/internal/table"
)

// Stage names, as used in logs, metrics and the CLI.
const (
	StageExtractNominations   = "extract_nominations"
	StageTransformNominations = "transform_nominations"
	StageExtractCatalog       = "extract_catalog"
	StageTransformCatalog     = "transform_catalog"
	StageMerge                = "merge"
	StageLoad                 = "load"
	StageStore                = "store"
)

// Stages holds what the stage functions need. Repo is required by the
// extract-nominations and load stages; a nil Exporter turns Store into a
// no-op.
type Stages struct {
	Job             string
	NominationsPath string
	CatalogPath     string
	RemoteTitle     string
	RemoteFolder    string

	Loader   *loader.Loader
	HTTP     *httpds.Client
	Repo     storage.Repository
	Exporter *remote.Exporter
	Log      *zap.Logger
}

// New builds Stages from a pipeline configuration.
func New(p config.Pipeline, repo storage.Repository, exporter *remote.Exporter, log *zap.Logger) *Stages {
	log = logging.OrNop(log)
	return &Stages{
		Job:             p.Job,
		NominationsPath: p.Sources.Nominations.Path,
		CatalogPath:     p.Sources.Catalog.Path,
		RemoteTitle:     p.Remote.Title,
		RemoteFolder:    p.Remote.FolderID,
		Loader:          loader.NewCSV(pcsv.FromConfig(p.Parser.Options), log),
		HTTP:            httpClient(p.Sources.HTTP),
		Repo:            repo,
		Exporter:        exporter,
		Log:             log,
	}
}

// ExtractNominations loads the nomination file, repairs artist and workers,
// replaces the grammy_awards table with the result and returns the table as
// read back from the database. A read failure is fatal here.
func (s *Stages) ExtractNominations(ctx context.Context) ([]byte, error) {
	return s.serialized(ctx, StageExtractNominations, func(log *zap.Logger) (*table.Table, error) {
		t, err := s.loader().Load(ctx, s.source(s.NominationsPath))
		if err != nil {
			return nil, err
		}
		if t, err = cleaner.FillArtist(t); err != nil {
			return nil, err
		}
		if t, err = cleaner.FillWorkers(t); err != nil {
			return nil, err
		}
		if err := s.persist(ctx, log, schema.GrammyAwards, t); err != nil {
			return nil, err
		}
		return storage.ReadAll(ctx, s.Repo, schema.GrammyAwards)
	})
}

// TransformNominations applies NominationTransform. A serialized table with
// no rows carries no columns either; it passes through unchanged.
func (s *Stages) TransformNominations(ctx context.Context, in []byte) ([]byte, error) {
	return s.transform(ctx, StageTransformNominations, in, func(t *table.Table) (*table.Table, error) {
		if len(t.Columns) == 0 {
			return t, nil
		}
		return NominationTransform().Apply(t)
	})
}

// ExtractCatalog loads the catalog file. An unreadable catalog yields an
// empty table and a warning, not an error.
func (s *Stages) ExtractCatalog(ctx context.Context) ([]byte, error) {
	return s.serialized(ctx, StageExtractCatalog, func(*zap.Logger) (*table.Table, error) {
		return s.loader().LoadOrEmpty(ctx, s.source(s.CatalogPath))
	})
}

// TransformCatalog applies CatalogTransform. The empty fallback table (no
// columns) passes through unchanged.
func (s *Stages) TransformCatalog(ctx context.Context, in []byte) ([]byte, error) {
	return s.transform(ctx, StageTransformCatalog, in, func(t *table.Table) (*table.Table, error) {
		if len(t.Columns) == 0 {
			return t, nil
		}
		return CatalogTransform().Apply(t)
	})
}

// Merge right-joins the transformed nominations onto the transformed catalog.
// Empty nominations are given the NominationColumns so the output still
// carries the songs_data nomination fields, all null.
func (s *Stages) Merge(ctx context.Context, nominations, catalog []byte) ([]byte, error) {
	return s.serialized(ctx, StageMerge, func(log *zap.Logger) (*table.Table, error) {
		left, err := table.Decode(bytes.NewReader(nominations))
		if err != nil {
			return nil, fmt.Errorf("nominations: %w", err)
		}
		if len(left.Columns) == 0 {
			conform(left, NominationColumns())
		}
		right, err := table.Decode(bytes.NewReader(catalog))
		if err != nil {
			return nil, fmt.Errorf("catalog: %w", err)
		}
		out, st, err := merger.RightJoin(left, right, MergeOptions())
		if err != nil {
			return nil, err
		}
		log.Info("merge: datasets joined",
			zap.Int("total_rows", st.Total),
			zap.Int("matched", st.Matched),
			zap.Int("winners", st.Winners))
		metrics.RecordRows(s.job(), "matched", int64(st.Matched))
		metrics.RecordRows(s.job(), "winners", int64(st.Winners))
		return out, nil
	})
}

// Load renumbers id 1..N over the merged rows, replaces the songs_data
// table and returns the table as stored.
func (s *Stages) Load(ctx context.Context, in []byte) ([]byte, error) {
	return s.transform(ctx, StageLoad, in, func(t *table.Table) (*table.Table, error) {
		t = t.Clone()
		t.AssignIdentity(loader.IDColumn)
		if t.Len() == 0 {
			conform(t, schema.SongsData.ColumnNames())
		}
		if err := s.persist(ctx, s.logger(ctx, StageLoad), schema.SongsData, t); err != nil {
			return nil, err
		}
		return storage.ReadAll(ctx, s.Repo, schema.SongsData)
	})
}

// Store uploads the table as a CSV snapshot. Upload failures are returned as
// *remote.RemoteSinkError. An empty input carries no columns, so it is
// exported with the songs_data header.
func (s *Stages) Store(ctx context.Context, in []byte) error {
	_, err := s.transform(ctx, StageStore, in, func(t *table.Table) (*table.Table, error) {
		if len(t.Columns) == 0 {
			conform(t, schema.SongsData.ColumnNames())
		}
		if s.Exporter == nil {
			s.logger(ctx, StageStore).Info("store: remote export disabled")
			return t, nil
		}
		return t, s.Exporter.Export(ctx, t, s.RemoteTitle, s.RemoteFolder)
	})
	return err
}

// persist runs storage.Replace and turns a failed Result into an error.
func (s *Stages) persist(ctx context.Context, log *zap.Logger, def ddl.TableDef, t *table.Table) error {
	if s.Repo == nil {
		return &storage.PersistenceError{Table: def.Name, Op: storage.OpExists, Err: fmt.Errorf("no repository configured")}
	}
	res := storage.Replace(ctx, s.Repo, def, t)
	if !res.OK() {
		return res.Err
	}
	log.Info("persist: table replaced",
		zap.String("table", res.Table),
		zap.Int64("rows", res.Rows),
		zap.Bool("dropped", res.Dropped),
		zap.Duration("elapsed", res.Duration))
	metrics.RecordRows(s.job(), def.Name, res.Rows)
	return nil
}

// transform decodes in, applies fn and re-encodes the result.
func (s *Stages) transform(ctx context.Context, stage string, in []byte, fn func(*table.Table) (*table.Table, error)) ([]byte, error) {
	return s.serialized(ctx, stage, func(*zap.Logger) (*table.Table, error) {
		t, err := table.Decode(bytes.NewReader(in))
		if err != nil {
			return nil, err
		}
		return fn(t)
	})
}

// serialized runs one stage: it times fn, logs and records the outcome, and
// encodes the output table.
func (s *Stages) serialized(ctx context.Context, stage string, fn func(*zap.Logger) (*table.Table, error)) ([]byte, error) {
	log := s.logger(ctx, stage)
	start := time.Now()

	t, err := fn(log)
	var out []byte
	if err == nil {
		out, err = t.MarshalJSON()
	}
	d := time.Since(start)

	metrics.RecordStep(s.job(), stage, err, d)
	rep := StageReport{Name: stage, Duration: d, Err: err}
	if err != nil {
		runOf(ctx).record(rep)
		log.Error("stage failed", zap.Duration("elapsed", d), zap.Error(err))
		return nil, fmt.Errorf("%s: %w", stage, err)
	}
	rep.Rows = t.Len()
	runOf(ctx).record(rep)
	metrics.RecordRows(s.job(), stage, int64(rep.Rows))
	log.Info("stage done", zap.Int("rows", rep.Rows), zap.Duration("elapsed", d))
	return out, nil
}

func (s *Stages) logger(ctx context.Context, stage string) *zap.Logger {
	log := logging.OrNop(s.Log).With(zap.String("stage", stage))
	if id := RunID(ctx); id != "" {
		log = log.With(zap.String("run_id", id))
	}
	return log
}

func (s *Stages) loader() *loader.Loader {
	if s.Loader == nil {
		return loader.NewCSV(pcsv.Options{HasHeader: true}, s.Log)
	}
	return s.Loader
}

func (s *Stages) job() string {
	if s.Job == "" {
		return "musicetl"
	}
	return s.Job
}

func httpClient(c config.HTTP) *httpds.Client {
	var h http.Header
	if len(c.Header) > 0 {
		h = make(http.Header, len(c.Header))
		for k, v := range c.Header {
			h.Set(k, v)
		}
	}
	return httpds.NewClient(httpds.Config{
		Timeout:        c.Timeout,
		MaxRetries:     c.MaxRetries,
		InitialBackoff: c.InitialBackoff,
		MaxBackoff:     c.MaxBackoff,
		Header:         h,
	})
}

// source picks the HTTP source for URLs and the local file source otherwise.
func (s *Stages) source(path string) datasource.Source {
	if httpds.IsURL(path) {
		return httpds.NewSource(s.HTTP, path)
	}
	return file.NewLocal(path)
}

// conform adds the missing columns to an empty table so it can be stored
// under a fixed schema.
func conform(t *table.Table, names []string) {
	for _, n := range names {
		if !t.Has(n) {
			t.AddColumn(n, table.KindAny)
		}
	}
}
