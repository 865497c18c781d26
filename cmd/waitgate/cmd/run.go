package cmd

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/psantana5/waitgate/internal/config"
	"github.com/psantana5/waitgate/internal/gate"
	"github.com/psantana5/waitgate/internal/launch"
	"github.com/psantana5/waitgate/internal/logging"
	"github.com/psantana5/waitgate/internal/probe"
	"github.com/psantana5/waitgate/internal/report"
	"github.com/psantana5/waitgate/internal/status"
	"github.com/psantana5/waitgate/internal/tracing"
)

const shutdownTimeout = 5 * time.Second

func newRunCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [flags] [-- command args...]",
		Short: "Wait for dependencies, then start the application",
		Long: `Run probes every configured target until all of them respond or the
attempt budget is spent. On success the application command is started:
as a child process whose exit status becomes ours (--mode spawn, default),
or by replacing this process (--mode exec).

A command given after "--" replaces the configured one.

Example:
  waitgate run
  waitgate run --target http://db:81 -- java -jar target/app.jar
  waitgate run --mode exec --status-addr :9090 -- ./server`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGate(cmd, opts, args)
		},
	}
	addGateFlags(cmd.Flags(), opts)
	return cmd
}

// gateRun holds everything a single run wires together.
type gateRun struct {
	cfg      *config.Config
	logger   *logging.Logger
	result   *report.Result
	metrics  *report.Metrics
	tracer   *tracing.Provider
	statusSv *status.Server
}

func runGate(cmd *cobra.Command, opts *rootOptions, args []string) error {
	cfg, err := loadConfig(cmd, opts)
	if err != nil {
		return err
	}
	if len(args) > 0 {
		cfg.Command = args
	}

	logger, err := newLogger(cfg.Log)
	if err != nil {
		return err
	}
	defer logger.Close()

	probers, err := probe.Build(cfg.Targets, cfg.Timeout)
	if err != nil {
		return err
	}
	var prober probe.Prober = probe.All(probers)
	if len(probers) == 1 {
		prober = probers[0]
	}

	runID := uuid.New().String()
	logger = logger.WithField("run_id", runID)

	r := &gateRun{
		cfg:     cfg,
		logger:  logger,
		result:  report.NewResult(runID, cfg.Command, cfg.Launch.Mode),
		metrics: report.NewMetrics(),
	}

	r.tracer, err = tracing.InitTracer(cmd.Context(), tracing.Config{
		ServiceName:    cfg.Tracing.ServiceName,
		ServiceVersion: Version,
		OTLPEndpoint:   cfg.Tracing.Endpoint,
	})
	if err != nil {
		return err
	}
	if r.tracer.Enabled() {
		logger.Info("Tracing enabled", logging.Fields{"endpoint": cfg.Tracing.Endpoint})
	}

	failures := report.NewFailureLog(report.DefaultFailureLogSize)
	state := status.NewState(prober.Target(), failures)
	if cfg.Status.Addr != "" {
		r.statusSv = status.NewServer(cfg.Status.Addr, state, r.metrics.Registry(), logger)
		if err := r.statusSv.Start(); err != nil {
			r.shutdown()
			return err
		}
	}

	g, err := gate.New(
		gate.Config{MaxAttempts: cfg.MaxAttempts, Interval: cfg.Interval},
		prober,
		gate.WithLogger(logger),
		gate.WithTracer(r.tracer.Tracer()),
		gate.WithObserver(r.metrics),
		gate.WithObserver(failures),
		gate.WithObserver(state),
	)
	if err != nil {
		r.shutdown()
		return err
	}

	// Signals cancel the wait only; once the command runs they are forwarded.
	// The forwarder subscribes before the wait's handler goes away, so a
	// signal arriving in between is queued for the child.
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	out, err := g.WaitUntilReady(ctx)
	var fwd *launch.Forwarder
	if err == nil && cfg.Launch.Mode != config.ModeExec {
		fwd = launch.NewForwarder()
	}
	stop()
	r.result.SetWait(out)

	if err != nil {
		if errors.Is(err, gate.ErrNotReady) {
			logger.Error(fmt.Sprintf("%s not available after %d attempts, exiting", prober.Target(), out.Attempts))
		} else {
			logger.Error("Wait interrupted, exiting", logging.Fields{"error": err.Error()})
		}
		r.finish()
		return &launch.ExitError{Code: 1}
	}

	logger.Info("Starting application", logging.Fields{
		"mode":    cfg.Launch.Mode,
		"command": cfg.Command,
	})

	spec := launch.Spec{Command: cfg.Command, Dir: cfg.Launch.WorkDir}
	if cfg.Launch.Mode == config.ModeExec {
		return r.exec(spec)
	}
	return r.spawn(spec, fwd)
}

func (r *gateRun) exec(spec launch.Spec) error {
	r.finish()

	err := launch.Exec(spec)
	// Only reached when the exec did not happen.
	r.logger.Error("Failed to start application", logging.Fields{"error": err.Error()})
	if errors.Is(err, launch.ErrCommandNotFound) {
		return &launch.ExitError{Code: launch.ExitCodeNotFound}
	}
	return &launch.ExitError{Code: 1}
}

func (r *gateRun) spawn(spec launch.Spec, fwd *launch.Forwarder) error {
	proc, err := launch.Spawn(spec, fwd, r.logger)
	if err != nil {
		r.logger.Error("Failed to start application", logging.Fields{"error": err.Error()})
		r.finish()
		if errors.Is(err, launch.ErrCommandNotFound) {
			return &launch.ExitError{Code: launch.ExitCodeNotFound}
		}
		return &launch.ExitError{Code: 1}
	}

	r.result.SetProcess(proc.PID, proc.ExitCode, proc.Timing.StartedAt, proc.Timing.CompletedAt)
	r.metrics.RecordResult(r.result)
	r.finish()

	if proc.ExitCode != 0 {
		return &launch.ExitError{Code: proc.ExitCode}
	}
	return nil
}

// finish logs the summary, exports metrics and releases the supporting
// services. It runs exactly once per run, before the process leaves.
func (r *gateRun) finish() {
	r.result.LogSummary(r.logger)

	if path := r.cfg.Metrics.Textfile; path != "" {
		if err := report.WriteTextfile(path, r.metrics.Registry()); err != nil {
			r.logger.Warn("Failed to write metrics textfile", logging.Fields{"path": path, "error": err.Error()})
		}
	}

	r.shutdown()
}

func (r *gateRun) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if r.statusSv != nil {
		if err := r.statusSv.Shutdown(ctx); err != nil {
			r.logger.Warn("Status server shutdown failed", logging.Fields{"error": err.Error()})
		}
	}
	if r.tracer != nil {
		if err := r.tracer.Shutdown(ctx); err != nil {
			r.logger.Warn("Tracer shutdown failed", logging.Fields{"error": err.Error()})
		}
	}
}
