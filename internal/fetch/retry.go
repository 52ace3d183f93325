package fetch

import (
	"context"
	"errors"
	"time"

	"github.com/oshokin/linux-deps/internal/logger"
)

// RetryPolicy bounds a retry loop. Delay is fixed between attempts.
type RetryPolicy struct {
	Attempts int
	Delay    time.Duration
	// Timeout boxes every attempt; zero means no per-attempt limit.
	Timeout time.Duration
}

// permanentError marks a failure that no further attempt can fix.
type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent wraps err so that Retry returns it immediately.
func Permanent(err error) error {
	if err == nil {
		return nil
	}

	return &permanentError{err: err}
}

// Retry calls fn until it succeeds, returns a permanent error, the parent
// context ends, or the attempts run out. The last error is returned as is,
// permanent errors are unwrapped.
func Retry(ctx context.Context, policy RetryPolicy, fn func(ctx context.Context) error) error {
	attempts := max(policy.Attempts, 1)

	var last error

	for attempt := 1; attempt <= attempts; attempt++ {
		last = runAttempt(ctx, policy.Timeout, fn)
		if last == nil {
			return nil
		}

		var p *permanentError
		if errors.As(last, &p) {
			return p.err
		}

		if ctx.Err() != nil {
			return last
		}

		if attempt == attempts {
			break
		}

		logger.WarnKV(ctx, "Fetching failed, retrying",
			"attempt", attempt, "attempts", attempts, "delay", policy.Delay, "error", last)

		timer := time.NewTimer(policy.Delay)
		select {
		case <-ctx.Done():
			timer.Stop()

			return last
		case <-timer.C:
		}
	}

	return last
}

func runAttempt(ctx context.Context, timeout time.Duration, fn func(ctx context.Context) error) error {
	if timeout <= 0 {
		return fn(ctx)
	}

	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	return fn(attemptCtx)
}
