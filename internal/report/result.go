package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/psantana5/waitgate/internal/gate"
	"github.com/psantana5/waitgate/internal/logging"
)

// Result is the run-level record: one wait followed by at most one launch.
// Each section is set once, never updated.
type Result struct {
	// Identity
	RunID   string   `json:"run_id"`
	Command []string `json:"command"`
	Mode    string   `json:"mode"` // "spawn" or "exec"

	// Wait
	Ready    bool          `json:"ready"`
	Attempts int           `json:"attempts"`
	Waited   time.Duration `json:"waited_ns"`

	// Launch (zero until the child has exited)
	PID       int           `json:"pid,omitempty"`
	StartTime time.Time     `json:"start_time,omitempty"`
	EndTime   time.Time     `json:"end_time,omitempty"`
	Duration  time.Duration `json:"runtime_ns,omitempty"`
	ExitCode  int           `json:"exit_code"`
}

// NewResult creates the record for one run.
func NewResult(runID string, command []string, mode string) *Result {
	return &Result{
		RunID:   runID,
		Command: command,
		Mode:    mode,
	}
}

// SetWait records the gate outcome.
func (r *Result) SetWait(out gate.Outcome) {
	r.Ready = out.Ready
	r.Attempts = out.Attempts
	r.Waited = out.Waited
}

// SetProcess records the launched child's lifetime and exit code.
func (r *Result) SetProcess(pid, exitCode int, start, end time.Time) {
	r.PID = pid
	r.ExitCode = exitCode
	r.StartTime = start
	r.EndTime = end
	r.Duration = end.Sub(start)
}

// LogSummary emits a single greppable line describing the run.
func (r *Result) LogSummary(logger *logging.Logger) {
	status := "READY"
	if !r.Ready {
		status = "NOT_READY"
	}

	msg := fmt.Sprintf("RUN %s | %s | attempts=%d | waited=%.1fs | mode=%s | cmd=%s",
		r.RunID,
		status,
		r.Attempts,
		r.Waited.Seconds(),
		r.Mode,
		strings.Join(r.Command, " "),
	)
	if r.PID != 0 {
		msg += fmt.Sprintf(" | pid=%d | runtime=%.0fs | exit=%d", r.PID, r.Duration.Seconds(), r.ExitCode)
	}

	logger.Info(msg)
}
