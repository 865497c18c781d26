package report

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/psantana5/waitgate/internal/gate"
	"github.com/psantana5/waitgate/internal/probe"
)

// Metrics are projections of gate progress and the run Result.
// They live in a private registry so tests and the textfile export see
// only waitgate series.
type Metrics struct {
	registry *prometheus.Registry

	probes        *prometheus.CounterVec
	probeDuration prometheus.Histogram
	ready         prometheus.Gauge
	attempts      prometheus.Gauge
	waitSeconds   prometheus.Gauge
	exitCode      prometheus.Gauge
}

// NewMetrics creates and registers the waitgate collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		probes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "waitgate_probe_attempts_total",
				Help: "Probe rounds by outcome",
			},
			[]string{"outcome"}, // "success", "failure"
		),
		probeDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "waitgate_probe_duration_seconds",
			Help:    "Duration of a single probe round",
			Buckets: prometheus.ExponentialBuckets(0.005, 4, 8),
		}),
		ready: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "waitgate_ready",
			Help: "1 once every target was reachable, 0 while waiting or after giving up",
		}),
		attempts: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "waitgate_attempts",
			Help: "Probe rounds performed so far",
		}),
		waitSeconds: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "waitgate_wait_seconds",
			Help: "Time spent waiting for targets",
		}),
		exitCode: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "waitgate_launch_exit_code",
			Help: "Exit code of the launched command",
		}),
	}

	m.registry.MustRegister(
		m.probes,
		m.probeDuration,
		m.ready,
		m.attempts,
		m.waitSeconds,
		m.exitCode,
	)

	// Both outcomes are exported from the start.
	m.probes.WithLabelValues("success")
	m.probes.WithLabelValues("failure")

	return m
}

// Registry returns the registry backing /metrics and the textfile export.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveProbe implements gate.Observer.
func (m *Metrics) ObserveProbe(attempt int, res probe.Result) {
	outcome := "failure"
	if res.OK {
		outcome = "success"
	}
	m.probes.WithLabelValues(outcome).Inc()
	m.probeDuration.Observe(res.Latency.Seconds())
	m.attempts.Set(float64(attempt))
}

// ObserveOutcome implements gate.Observer.
func (m *Metrics) ObserveOutcome(out gate.Outcome) {
	if out.Ready {
		m.ready.Set(1)
	} else {
		m.ready.Set(0)
	}
	m.attempts.Set(float64(out.Attempts))
	m.waitSeconds.Set(out.Waited.Seconds())
}

// RecordResult updates launch series from the final run Result.
func (m *Metrics) RecordResult(r *Result) {
	m.exitCode.Set(float64(r.ExitCode))
}

var _ gate.Observer = (*Metrics)(nil)
