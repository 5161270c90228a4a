package main

import (
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"

	"musicetl/internal/config"
	"musicetl/internal/metrics"
	"musicetl/internal/metrics/datadog"
	"musicetl/internal/metrics/prompush"
	"musicetl/internal/pipeline"
	"musicetl/internal/remote"
	"musicetl/internal/remote/drive"
	"musicetl/internal/storage"
)

// Test hooks.
var (
	newRepository = storage.New
	newUploader   = func(ctx context.Context, creds remote.CredentialProvider, log *zap.Logger) (remote.Uploader, error) {
		return drive.New(ctx, creds, log)
	}
)

// container owns everything a run needs and releases it in Close.
type container struct {
	cfg    config.Pipeline
	log    *zap.Logger
	stages *pipeline.Stages

	closers []func()
}

// wiring selects which external collaborators newContainer opens.
type wiring struct {
	repo   bool
	remote bool

	// stdin and prompt serve the interactive authorization flow.
	stdin  io.Reader
	prompt io.Writer
}

func newContainer(ctx context.Context, cfg config.Pipeline, log *zap.Logger, w wiring) (*container, error) {
	c := &container{cfg: cfg, log: log}

	var repo storage.Repository
	if w.repo {
		sc := storageConfig(cfg)
		log.Info("storage: connecting",
			zap.String("kind", sc.Kind),
			zap.String("host", sc.Host),
			zap.String("name", sc.Name))
		r, err := newRepository(ctx, sc)
		if err != nil {
			return nil, fmt.Errorf("open storage: %w", err)
		}
		repo = r
		c.closers = append(c.closers, r.Close)
	}

	var exporter *remote.Exporter
	if w.remote && cfg.Remote.Enabled {
		creds := &remote.FileCredentialProvider{
			SecretsFile: cfg.Remote.ClientSecrets,
			TokenFile:   cfg.Remote.TokenFile,
			Prompt:      w.prompt,
			Input:       w.stdin,
			Log:         log,
		}
		up, err := newUploader(ctx, creds, log)
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("remote: %w", err)
		}
		exporter = &remote.Exporter{Uploader: up, Job: cfg.Job, Log: log}
	}

	c.stages = pipeline.New(cfg, repo, exporter, log)
	return c, nil
}

// Close releases resources in reverse order of acquisition.
func (c *container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	c.closers = nil
}

func storageConfig(p config.Pipeline) storage.Config {
	return storage.Config{
		Kind:     p.Storage.Kind,
		DSN:      p.Storage.DB.DSN,
		Host:     p.Storage.DB.Host,
		Port:     p.Storage.DB.Port,
		User:     p.Storage.DB.User,
		Password: p.Storage.DB.Password,
		Name:     p.Storage.DB.Name,
	}
}

// initMetrics installs the configured backend. It returns a flush function,
// called after every run, and a stop function that releases the backend.
// Both are safe to call when metrics are off.
func initMetrics(m config.Metrics, job string, log *zap.Logger) (flush, stop func(), err error) {
	flush = func() {
		if err := metrics.Flush(); err != nil {
			log.Warn("metrics: flush failed", zap.Error(err))
		}
	}
	stop = func() {}
	switch m.Backend {
	case "", "none":
		log.Debug("metrics: disabled")
		return flush, stop, nil
	case "prom":
		b, err := prompush.NewBackend(job, m.PushURL)
		if err != nil {
			return nil, nil, fmt.Errorf("metrics: prom push backend: %w", err)
		}
		prev := metrics.SetBackend(b)
		log.Info("metrics: enabled", zap.String("backend", m.Backend), zap.String("url", m.PushURL))
		return flush, func() { metrics.SetBackend(prev) }, nil
	case "datadog":
		b, err := datadog.NewBackend(datadog.Config{Addr: m.Addr})
		if err != nil {
			return nil, nil, fmt.Errorf("metrics: datadog backend: %w", err)
		}
		prev := metrics.SetBackend(b)
		log.Info("metrics: enabled", zap.String("backend", m.Backend), zap.String("addr", m.Addr))
		return flush, func() {
			metrics.SetBackend(prev)
			_ = b.Close()
		}, nil
	}
	return nil, nil, fmt.Errorf("metrics: unknown backend %q", m.Backend)
}

// runOnce executes one full pipeline run and logs its report.
func runOnce(ctx context.Context, c *container) error {
	r := &pipeline.Runner{Stages: c.stages, Log: c.log}
	rep, err := r.Run(ctx)
	for _, s := range rep.Stages {
		c.log.Debug("pipeline: stage report",
			zap.String("run_id", rep.RunID),
			zap.String("stage", s.Name),
			zap.Int("rows", s.Rows),
			zap.Duration("elapsed", s.Duration))
	}
	return err
}
