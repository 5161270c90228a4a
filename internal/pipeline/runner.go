package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"musicetl/internal/logging"
)

// Report summarizes a Run.
type Report struct {
	RunID   string
	Elapsed time.Duration
	Stages  []StageReport
}

// Runner executes the stages as a small DAG: the nomination and catalog
// branches run concurrently, then merge, load and store run in order.
type Runner struct {
	Stages *Stages
	Log    *zap.Logger

	// NewID generates run ids. Defaults to uuid.NewString.
	NewID func() string
}

// Run executes one pipeline run. The first failing stage stops the run and
// its error is returned; the Report lists the stages that ran.
func (r *Runner) Run(ctx context.Context) (Report, error) {
	newID := r.NewID
	if newID == nil {
		newID = uuid.NewString
	}
	id := newID()
	ctx = WithRunID(ctx, id)
	log := logging.OrNop(r.Log).With(zap.String("run_id", id))
	start := time.Now()

	rep := Report{RunID: id}
	finish := func(err error) (Report, error) {
		rep.Elapsed = time.Since(start)
		rep.Stages = runOf(ctx).reports()
		if err != nil {
			log.Error("pipeline: run failed", zap.Duration("elapsed", rep.Elapsed), zap.Error(err))
		} else {
			log.Info("pipeline: run completed", zap.Duration("elapsed", rep.Elapsed))
		}
		return rep, err
	}

	log.Info("pipeline: run started",
		zap.String("nominations", r.Stages.NominationsPath),
		zap.String("catalog", r.Stages.CatalogPath))

	s := r.Stages
	var nominations, catalog []byte
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		raw, err := s.ExtractNominations(gctx)
		if err != nil {
			return err
		}
		nominations, err = s.TransformNominations(gctx, raw)
		return err
	})
	g.Go(func() error {
		raw, err := s.ExtractCatalog(gctx)
		if err != nil {
			return err
		}
		catalog, err = s.TransformCatalog(gctx, raw)
		return err
	})
	if err := g.Wait(); err != nil {
		return finish(err)
	}

	merged, err := s.Merge(ctx, nominations, catalog)
	if err != nil {
		return finish(err)
	}
	loaded, err := s.Load(ctx, merged)
	if err != nil {
		return finish(err)
	}
	return finish(s.Store(ctx, loaded))
}
