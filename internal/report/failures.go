package report

import (
	"sync"
	"time"

	"github.com/psantana5/waitgate/internal/gate"
	"github.com/psantana5/waitgate/internal/probe"
)

// DefaultFailureLogSize is how many failures the gate keeps for /readyz.
const DefaultFailureLogSize = 10

// FailureSample is one failed probe kept for the status endpoint.
// Answers "why is it still waiting" without reading logs.
type FailureSample struct {
	Attempt    int       `json:"attempt"`
	Target     string    `json:"target"`
	Error      string    `json:"error"`
	StatusCode int       `json:"status_code,omitempty"`
	At         time.Time `json:"at"`
}

// FailureLog maintains a ring buffer of recent probe failures (last N).
// It is written by the gate goroutine and read by HTTP handlers.
type FailureLog struct {
	samples []FailureSample
	maxSize int
	mu      sync.RWMutex
}

// NewFailureLog creates a failure log with fixed size
func NewFailureLog(maxSize int) *FailureLog {
	if maxSize <= 0 {
		maxSize = DefaultFailureLogSize
	}
	return &FailureLog{
		samples: make([]FailureSample, 0, maxSize),
		maxSize: maxSize,
	}
}

// Record adds a sample, evicting the oldest one when full.
func (l *FailureLog) Record(s FailureSample) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.samples) >= l.maxSize {
		l.samples = l.samples[1:]
	}
	l.samples = append(l.samples, s)
}

// GetRecent returns up to n samples, newest first.
func (l *FailureLog) GetRecent(n int) []FailureSample {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if n <= 0 || n > len(l.samples) {
		n = len(l.samples)
	}

	out := make([]FailureSample, 0, n)
	for i := len(l.samples) - 1; i >= len(l.samples)-n; i-- {
		out = append(out, l.samples[i])
	}
	return out
}

// ObserveProbe implements gate.Observer. Successful probes are ignored.
func (l *FailureLog) ObserveProbe(attempt int, res probe.Result) {
	if res.OK {
		return
	}
	l.Record(FailureSample{
		Attempt:    attempt,
		Target:     res.Target,
		Error:      res.Error(),
		StatusCode: res.StatusCode,
		At:         res.CheckedAt,
	})
}

// ObserveOutcome implements gate.Observer.
func (l *FailureLog) ObserveOutcome(gate.Outcome) {}

var _ gate.Observer = (*FailureLog)(nil)
