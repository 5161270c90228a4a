package pipeline

import (
	"context"
	"sync"
	"time"
)

type runKey struct{}

// run carries the id of a pipeline run and collects per-stage reports.
type run struct {
	id string

	mu     sync.Mutex
	stages []StageReport
}

// StageReport describes one executed stage.
type StageReport struct {
	Name     string
	Rows     int
	Duration time.Duration
	Err      error
}

// WithRunID tags ctx with a run id. Stage log lines carry it and the stage
// reports of the run are collected under it.
func WithRunID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, runKey{}, &run{id: id})
}

// RunID returns the run id of ctx, or "" outside a run.
func RunID(ctx context.Context) string {
	if r := runOf(ctx); r != nil {
		return r.id
	}
	return ""
}

func runOf(ctx context.Context) *run {
	r, _ := ctx.Value(runKey{}).(*run)
	return r
}

func (r *run) record(rep StageReport) {
	if r == nil {
		return
	}
	r.mu.Lock()
	r.stages = append(r.stages, rep)
	r.mu.Unlock()
}

func (r *run) reports() []StageReport {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]StageReport(nil), r.stages...)
}
