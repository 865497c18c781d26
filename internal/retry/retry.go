package retry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrExhausted is returned (wrapped, together with the last failure)
// when every attempt failed.
var ErrExhausted = errors.New("retry: attempts exhausted")

// Config holds retry configuration
type Config struct {
	MaxAttempts int           // Total attempts, including the first one
	Delay       time.Duration // Fixed pause between attempts
}

// SleepFunc pauses for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// NotifyFunc is called after every failed attempt, including the last.
type NotifyFunc func(attempt, maxAttempts int, err error)

type options struct {
	sleep  SleepFunc
	notify NotifyFunc
}

type Option func(*options)

// WithSleep replaces the context-aware timer sleep.
func WithSleep(fn SleepFunc) Option {
	return func(o *options) { o.sleep = fn }
}

// WithNotify registers a hook for failed attempts.
func WithNotify(fn NotifyFunc) Option {
	return func(o *options) { o.notify = fn }
}

// Do calls fn until it returns nil or MaxAttempts calls have failed.
// The delay is fixed and only taken between attempts, so N attempts
// sleep N-1 times.
func Do(ctx context.Context, config Config, fn func(ctx context.Context, attempt int) error, opts ...Option) error {
	if config.MaxAttempts < 1 {
		return fmt.Errorf("retry: max attempts must be >= 1, got %d", config.MaxAttempts)
	}

	o := options{sleep: Sleep}
	for _, opt := range opts {
		opt(&o)
	}

	var lastErr error
	for attempt := 1; attempt <= config.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("retry cancelled: %w", err)
		}

		err := fn(ctx, attempt)
		if err == nil {
			return nil
		}
		lastErr = err

		if o.notify != nil {
			o.notify(attempt, config.MaxAttempts, err)
		}

		// Don't sleep after last attempt
		if attempt == config.MaxAttempts {
			break
		}

		if err := o.sleep(ctx, config.Delay); err != nil {
			return fmt.Errorf("retry cancelled: %w", err)
		}
	}

	return fmt.Errorf("%w after %d attempts: %w", ErrExhausted, config.MaxAttempts, lastErr)
}

// IsExhausted reports whether err came from running out of attempts.
func IsExhausted(err error) bool {
	return errors.Is(err, ErrExhausted)
}

// Sleep waits for d unless ctx is done first.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
