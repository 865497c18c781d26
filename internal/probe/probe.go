package probe

import (
	"context"
	"time"
)

// Result is the outcome of a single reachability check.
// OK is the only field the gate acts on; the rest is diagnostic.
type Result struct {
	Target     string        `json:"target"`
	OK         bool          `json:"ok"`
	StatusCode int           `json:"status_code,omitempty"` // HTTP only; 0 for transport errors
	Latency    time.Duration `json:"latency"`
	Err        error         `json:"-"`
	CheckedAt  time.Time     `json:"checked_at"`
}

// Error returns the failure reason, or "" for a successful probe.
func (r Result) Error() string {
	if r.Err == nil {
		return ""
	}
	return r.Err.Error()
}

// Prober performs one reachability check per call.
// Implementations must bound each call by their own timeout and must
// not retry internally.
type Prober interface {
	Probe(ctx context.Context) Result
	Target() string
}

func newResult(target string) Result {
	return Result{Target: target, CheckedAt: time.Now()}
}
