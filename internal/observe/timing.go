package observe

import "time"

// Timing records start/end timestamps only.
// Used for the wait phase and for the launched child's runtime.
type Timing struct {
	StartedAt   time.Time
	CompletedAt time.Time

	now func() time.Time
}

// NewTiming creates timing with current start time
func NewTiming() *Timing {
	return NewTimingWithClock(time.Now)
}

// NewTimingWithClock creates timing that reads time from now.
func NewTimingWithClock(now func() time.Time) *Timing {
	return &Timing{
		StartedAt: now(),
		now:       now,
	}
}

// Complete records completion time. Later calls are ignored.
func (t *Timing) Complete() {
	if t.CompletedAt.IsZero() {
		t.CompletedAt = t.now()
	}
}

// Duration returns the elapsed time, up to now if not yet completed.
func (t *Timing) Duration() time.Duration {
	if t.CompletedAt.IsZero() {
		return t.now().Sub(t.StartedAt)
	}
	return t.CompletedAt.Sub(t.StartedAt)
}
