package status

import (
	"sync/atomic"

	"github.com/psantana5/waitgate/internal/gate"
	"github.com/psantana5/waitgate/internal/probe"
	"github.com/psantana5/waitgate/internal/report"
)

// Phase of the gate as seen from outside.
type Phase string

const (
	PhaseWaiting  Phase = "waiting"
	PhaseReady    Phase = "ready"
	PhaseNotReady Phase = "not_ready"
)

// State is the gate progress published to the HTTP handlers.
// Writes come from the gate goroutine, reads from request goroutines.
type State struct {
	attempts atomic.Int64
	phase    atomic.Value // Phase
	target   string
	failures *report.FailureLog
}

// NewState creates a state in the waiting phase. failures may be nil.
func NewState(target string, failures *report.FailureLog) *State {
	s := &State{target: target, failures: failures}
	s.phase.Store(PhaseWaiting)
	return s
}

// Attempts returns the number of probes made so far.
func (s *State) Attempts() int {
	return int(s.attempts.Load())
}

// Phase returns the current phase.
func (s *State) Phase() Phase {
	return s.phase.Load().(Phase)
}

// Target is the readiness target description.
func (s *State) Target() string {
	return s.target
}

// RecentFailures returns up to n failures, newest first.
func (s *State) RecentFailures(n int) []report.FailureSample {
	if s.failures == nil {
		return nil
	}
	return s.failures.GetRecent(n)
}

// ObserveProbe implements gate.Observer.
func (s *State) ObserveProbe(attempt int, _ probe.Result) {
	s.attempts.Store(int64(attempt))
}

// ObserveOutcome implements gate.Observer.
func (s *State) ObserveOutcome(out gate.Outcome) {
	s.attempts.Store(int64(out.Attempts))
	if out.Ready {
		s.phase.Store(PhaseReady)
	} else {
		s.phase.Store(PhaseNotReady)
	}
}

var _ gate.Observer = (*State)(nil)
