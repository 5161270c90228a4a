package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"musicetl/internal/config"
	"musicetl/internal/logging"
	"musicetl/internal/pipeline"
)

// app is the per-invocation state shared by the subcommands.
type app struct {
	cfgPath string
	cfg     config.Pipeline
	log     *zap.Logger
	flush   func()
	stop    func()
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "musicetl",
		Short:         "Load, clean, join and publish the award and catalog datasets",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.cfgPath, "config", "", "config file (default ./"+config.DefaultFile+" when present)")
	pf.String("nominations", "", "nominations CSV path or URL")
	pf.String("catalog", "", "catalog CSV path or URL")
	pf.Int("http-retries", 0, "retries for URL sources on 429 and 5xx responses")
	pf.String("storage", "", "storage backend: postgres, mysql, mssql or sqlite")
	pf.String("dsn", "", "storage connection string")
	pf.Bool("remote", true, "upload the CSV snapshot")
	pf.String("folder-id", "", "remote folder id")
	pf.String("title", "", "remote file title")
	pf.String("metrics", "", "metrics backend: none, prom or datadog")
	pf.String("push-url", "", "Prometheus Pushgateway URL")
	pf.String("statsd-addr", "", "DogStatsD address")
	pf.String("log-level", "", "log level")
	pf.String("log-format", "", "log format: json or console")

	root.AddCommand(
		newRunCmd(a),
		newStageCmd(a),
		newValidateCmd(a),
		newScheduleCmd(a),
		newWatchCmd(a),
	)
	// PersistentPostRun is skipped when RunE fails; metrics must still be
	// flushed after a failed run.
	for _, c := range root.Commands() {
		if run := c.RunE; run != nil {
			c.RunE = func(cmd *cobra.Command, args []string) error {
				defer a.teardown()
				return run(cmd, args)
			}
		}
	}
	return root
}

// setup loads and validates the configuration, then builds the logger and
// the metrics backend.
func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.cfgPath, cmd.Flags())
	if err != nil {
		return err
	}
	a.cfg = cfg

	log, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}
	a.log = log

	if cmd.Name() == "validate" {
		return nil
	}
	if err := reportIssues(cmd.ErrOrStderr(), config.ValidatePipeline(cfg)); err != nil {
		return err
	}
	flush, stop, err := initMetrics(cfg.Metrics, cfg.Job, log)
	if err != nil {
		return err
	}
	a.flush, a.stop = flush, stop
	return nil
}

func (a *app) teardown() {
	if a.flush != nil {
		a.flush()
		a.stop()
		a.flush, a.stop = nil, nil
	}
	if a.log != nil {
		_ = a.log.Sync()
	}
}

// reportIssues prints every finding and fails when one is an error.
func reportIssues(w io.Writer, issues []config.Issue) error {
	for _, iss := range issues {
		fmt.Fprintf(w, "%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
	}
	if config.HasErrors(issues) {
		return errors.New("configuration is invalid")
	}
	return nil
}

func (a *app) container(cmd *cobra.Command, w wiring) (*container, error) {
	if w.stdin == nil {
		w.stdin = cmd.InOrStdin()
	}
	if w.prompt == nil {
		w.prompt = cmd.ErrOrStderr()
	}
	return newContainer(cmd.Context(), a.cfg, a.log, w)
}

func newRunCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the whole pipeline once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := a.container(cmd, wiring{repo: true, remote: true})
			if err != nil {
				return err
			}
			defer c.Close()
			return runOnce(cmd.Context(), c)
		},
	}
}

// stageInputs is the number of serialized tables each stage reads.
var stageInputs = map[string]int{
	pipeline.StageExtractNominations:   0,
	pipeline.StageTransformNominations: 1,
	pipeline.StageExtractCatalog:       0,
	pipeline.StageTransformCatalog:     1,
	pipeline.StageMerge:                2,
	pipeline.StageLoad:                 1,
	pipeline.StageStore:                1,
}

func newStageCmd(a *app) *cobra.Command {
	var (
		in  []string
		out string
	)
	cmd := &cobra.Command{
		Use:   "stage <name>",
		Short: "Run a single stage over JSON row arrays",
		Long: `Run one stage the way an external task runner would.

Inputs are JSON row arrays read from --in files (merge takes the nominations
file first, then the catalog file) or, for single-input stages, from stdin.
The output table is written to --out or stdout.

Stages: ` + strings.Join(stageNames(), ", "),
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			want, ok := stageInputs[name]
			if !ok {
				return fmt.Errorf("unknown stage %q (want one of %s)", name, strings.Join(stageNames(), ", "))
			}
			inputs, err := readInputs(cmd.InOrStdin(), in, want)
			if err != nil {
				return err
			}

			c, err := a.container(cmd, wiring{
				repo:   name == pipeline.StageExtractNominations || name == pipeline.StageLoad,
				remote: name == pipeline.StageStore,
			})
			if err != nil {
				return err
			}
			defer c.Close()

			ctx := pipeline.WithRunID(cmd.Context(), uuid.NewString())
			result, err := runStage(ctx, c.stages, name, inputs)
			if err != nil {
				return err
			}
			return writeOutput(cmd.OutOrStdout(), out, result)
		},
	}
	cmd.Flags().StringSliceVar(&in, "in", nil, "input JSON file(s)")
	cmd.Flags().StringVar(&out, "out", "", "output JSON file (default stdout)")
	return cmd
}

func stageNames() []string {
	return []string{
		pipeline.StageExtractNominations, pipeline.StageTransformNominations,
		pipeline.StageExtractCatalog, pipeline.StageTransformCatalog,
		pipeline.StageMerge, pipeline.StageLoad, pipeline.StageStore,
	}
}

func runStage(ctx context.Context, s *pipeline.Stages, name string, in [][]byte) ([]byte, error) {
	switch name {
	case pipeline.StageExtractNominations:
		return s.ExtractNominations(ctx)
	case pipeline.StageTransformNominations:
		return s.TransformNominations(ctx, in[0])
	case pipeline.StageExtractCatalog:
		return s.ExtractCatalog(ctx)
	case pipeline.StageTransformCatalog:
		return s.TransformCatalog(ctx, in[0])
	case pipeline.StageMerge:
		return s.Merge(ctx, in[0], in[1])
	case pipeline.StageLoad:
		return s.Load(ctx, in[0])
	case pipeline.StageStore:
		return nil, s.Store(ctx, in[0])
	}
	return nil, fmt.Errorf("unknown stage %q", name)
}

func readInputs(stdin io.Reader, files []string, want int) ([][]byte, error) {
	switch {
	case want == 0:
		return nil, nil
	case len(files) == 0 && want == 1:
		b, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		return [][]byte{b}, nil
	case len(files) != want:
		return nil, fmt.Errorf("stage needs %d --in file(s), got %d", want, len(files))
	}
	out := make([][]byte, len(files))
	for i, f := range files {
		b, err := os.ReadFile(f)
		if err != nil {
			return nil, fmt.Errorf("read input: %w", err)
		}
		out[i] = b
	}
	return out, nil
}

func writeOutput(stdout io.Writer, path string, b []byte) error {
	if b == nil {
		return nil
	}
	if path == "" {
		_, err := fmt.Fprintf(stdout, "%s\n", b)
		return err
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}

func newValidateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check the configuration and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := reportIssues(cmd.ErrOrStderr(), config.ValidatePipeline(a.cfg)); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "configuration is valid")
			return nil
		},
	}
}

func newScheduleCmd(a *app) *cobra.Command {
	var now bool
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Run the pipeline on a cron schedule until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := a.container(cmd, wiring{repo: true, remote: true})
			if err != nil {
				return err
			}
			defer c.Close()
			return schedule(cmd.Context(), a.cfg.Schedule.Spec, now, a.log, func(ctx context.Context) {
				if err := runOnce(ctx, c); err != nil {
					a.log.Error("schedule: run failed", zap.Error(err))
				}
				a.flush()
			})
		},
	}
	cmd.Flags().String("cron", "", "cron expression or descriptor (default @daily)")
	cmd.Flags().BoolVar(&now, "now", false, "also run once immediately")
	return cmd
}

// schedule calls run on every tick of spec until ctx is done. Ticks never
// overlap: a tick that fires while a run is in progress is skipped.
func schedule(ctx context.Context, spec string, now bool, log *zap.Logger, run func(context.Context)) error {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := c.AddFunc(spec, func() { run(ctx) }); err != nil {
		return fmt.Errorf("schedule: invalid spec %q: %w", spec, err)
	}
	if now {
		run(ctx)
	}
	c.Start()
	log.Info("schedule: started", zap.String("spec", spec))

	<-ctx.Done()
	<-c.Stop().Done()
	log.Info("schedule: stopped")
	return nil
}

func newWatchCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Rerun the pipeline whenever a source file is written",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := a.container(cmd, wiring{repo: true, remote: true})
			if err != nil {
				return err
			}
			defer c.Close()
			paths := []string{a.cfg.Sources.Nominations.Path, a.cfg.Sources.Catalog.Path}
			return watch(cmd.Context(), paths, a.cfg.Schedule.Debounce, a.log, func(ctx context.Context) {
				if err := runOnce(ctx, c); err != nil {
					a.log.Error("watch: run failed", zap.Error(err))
				}
				a.flush()
			})
		},
	}
	cmd.Flags().Duration("debounce", 2*time.Second, "quiet period after the last write before rerunning")
	return cmd
}
