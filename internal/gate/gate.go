package gate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/psantana5/waitgate/internal/logging"
	"github.com/psantana5/waitgate/internal/observe"
	"github.com/psantana5/waitgate/internal/probe"
	"github.com/psantana5/waitgate/internal/retry"
	"github.com/psantana5/waitgate/internal/tracing"
)

// ErrNotReady is returned when the attempt ceiling is reached without a
// successful probe. The caller must not hand off.
var ErrNotReady = errors.New("target not ready")

// Config bounds the wait.
type Config struct {
	MaxAttempts int
	Interval    time.Duration
}

// Outcome summarizes a finished wait.
type Outcome struct {
	Ready    bool
	Attempts int // probes performed
	Waited   time.Duration
}

// Observer receives gate progress. Implementations must be cheap and
// must not block; they run on the gate's goroutine.
type Observer interface {
	ObserveProbe(attempt int, res probe.Result)
	ObserveOutcome(out Outcome)
}

// Gate blocks until its prober succeeds or attempts run out.
type Gate struct {
	cfg       Config
	prober    probe.Prober
	logger    *logging.Logger
	tracer    trace.Tracer
	sleep     retry.SleepFunc
	now       func() time.Time
	observers []Observer
}

type Option func(*Gate)

func WithLogger(l *logging.Logger) Option {
	return func(g *Gate) { g.logger = l }
}

func WithTracer(t trace.Tracer) Option {
	return func(g *Gate) { g.tracer = t }
}

// WithSleep replaces the wall-clock pause between attempts.
func WithSleep(fn retry.SleepFunc) Option {
	return func(g *Gate) { g.sleep = fn }
}

// WithClock replaces time.Now for the Waited measurement.
func WithClock(now func() time.Time) Option {
	return func(g *Gate) { g.now = now }
}

func WithObserver(o Observer) Option {
	return func(g *Gate) { g.observers = append(g.observers, o) }
}

// New creates a gate with immutable config.
func New(cfg Config, prober probe.Prober, opts ...Option) (*Gate, error) {
	if prober == nil {
		return nil, errors.New("gate: prober required")
	}
	if cfg.MaxAttempts < 1 {
		return nil, errors.New("gate: max attempts must be >= 1")
	}
	if cfg.Interval < 0 {
		return nil, errors.New("gate: interval must be >= 0")
	}

	g := &Gate{
		cfg:    cfg,
		prober: prober,
		logger: logging.Nop(),
		tracer: noop.NewTracerProvider().Tracer("waitgate"),
		sleep:  retry.Sleep,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// WaitUntilReady probes until success or until MaxAttempts probes have
// failed, sleeping Interval between probes. Every failure is treated the
// same way regardless of cause.
//
// Returns ErrNotReady (wrapped) on exhaustion and the context error if
// ctx is cancelled first.
func (g *Gate) WaitUntilReady(ctx context.Context) (Outcome, error) {
	ctx, span := g.tracer.Start(ctx, "gate.wait", trace.WithAttributes(
		attribute.String("gate.target", g.prober.Target()),
		attribute.Int("gate.max_attempts", g.cfg.MaxAttempts),
		attribute.Int64("gate.interval_ms", g.cfg.Interval.Milliseconds()),
	))
	defer span.End()

	g.logger.Info("Waiting for target", logging.Fields{
		"target":       g.prober.Target(),
		"max_attempts": g.cfg.MaxAttempts,
		"interval":     g.cfg.Interval.String(),
	})

	timing := observe.NewTimingWithClock(g.now)
	attempts := 0

	err := retry.Do(ctx,
		retry.Config{MaxAttempts: g.cfg.MaxAttempts, Delay: g.cfg.Interval},
		func(ctx context.Context, attempt int) error {
			attempts = attempt
			res := g.probeOnce(ctx, attempt)
			if !res.OK {
				tracing.AddEvent(ctx, "gate.unreachable",
					attribute.Int("gate.attempt", attempt),
					attribute.String("gate.error", res.Error()),
				)
				return &unreachableError{res: res}
			}
			return nil
		},
		retry.WithSleep(g.sleep),
		retry.WithNotify(g.notify),
	)
	timing.Complete()

	out := Outcome{Ready: err == nil, Attempts: attempts, Waited: timing.Duration()}
	for _, o := range g.observers {
		o.ObserveOutcome(out)
	}
	span.SetAttributes(attribute.Int("gate.attempts", attempts))

	switch {
	case err == nil:
		g.logger.Info("Target available", logging.Fields{
			"attempts": attempts,
			"waited":   out.Waited.Round(time.Millisecond).String(),
		})
		span.SetStatus(codes.Ok, "ready")
		return out, nil

	case retry.IsExhausted(err):
		g.logger.Error("Unable to reach target after all attempts", logging.Fields{
			"target":   g.prober.Target(),
			"attempts": attempts,
		})
		err = fmt.Errorf("%w: %s after %d attempts", ErrNotReady, g.prober.Target(), attempts)
		tracing.SetError(ctx, err)
		return out, err

	default:
		g.logger.Warn("Wait aborted", logging.Fields{"attempts": attempts, "error": err.Error()})
		tracing.SetError(ctx, err)
		return out, err
	}
}

func (g *Gate) probeOnce(ctx context.Context, attempt int) probe.Result {
	ctx, span := g.tracer.Start(ctx, "probe", trace.WithAttributes(
		attribute.String("probe.target", g.prober.Target()),
		attribute.Int("probe.attempt", attempt),
	))
	defer span.End()

	res := g.prober.Probe(ctx)

	span.SetAttributes(attribute.Bool("probe.ok", res.OK))
	if res.StatusCode != 0 {
		span.SetAttributes(attribute.Int("http.response.status_code", res.StatusCode))
	}
	if res.Err != nil {
		span.RecordError(res.Err)
	}

	g.logger.Debug("Probe finished", logging.Fields{
		"attempt": attempt,
		"target":  res.Target,
		"ok":      res.OK,
		"latency": res.Latency.Round(time.Millisecond).String(),
	})

	for _, o := range g.observers {
		o.ObserveProbe(attempt, res)
	}
	return res
}

// notify is the progress notice emitted after every failed probe.
func (g *Gate) notify(attempt, maxAttempts int, err error) {
	g.logger.Info(fmt.Sprintf("Target not available, attempt %d/%d, waiting...", attempt, maxAttempts),
		logging.Fields{"error": err.Error()})
}

// unreachableError carries the failing probe result through the retry loop.
type unreachableError struct {
	res probe.Result
}

func (e *unreachableError) Error() string {
	if e.res.Err != nil {
		return fmt.Sprintf("%s unreachable: %v", e.res.Target, e.res.Err)
	}
	return e.res.Target + " unreachable"
}

func (e *unreachableError) Unwrap() error {
	return e.res.Err
}
