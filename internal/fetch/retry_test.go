package fetch

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var (
	errTransient = errors.New("transient")
	errIntegrity = errors.New("checksum mismatch")
)

// TestRetry_SucceedsAfterFailures verifies the loop keeps going until fn succeeds.
func TestRetry_SucceedsAfterFailures(t *testing.T) {
	t.Parallel()

	calls := 0
	err := Retry(context.Background(), RetryPolicy{Attempts: 5}, func(context.Context) error {
		calls++
		if calls < 3 {
			return errTransient
		}

		return nil
	})

	require.NoError(t, err)
	require.Equal(t, 3, calls)
}

// TestRetry_ExhaustionReturnsLastError checks the attempt bound and the surfaced error.
func TestRetry_ExhaustionReturnsLastError(t *testing.T) {
	t.Parallel()

	calls := 0
	err := Retry(context.Background(), RetryPolicy{Attempts: 4, Delay: time.Millisecond}, func(context.Context) error {
		calls++

		return errTransient
	})

	require.ErrorIs(t, err, errTransient)
	require.Equal(t, 4, calls)
}

// TestRetry_PermanentStopsImmediately ensures integrity failures are not retried.
func TestRetry_PermanentStopsImmediately(t *testing.T) {
	t.Parallel()

	calls := 0
	err := Retry(context.Background(), RetryPolicy{Attempts: 10}, func(context.Context) error {
		calls++

		return Permanent(errIntegrity)
	})

	require.ErrorIs(t, err, errIntegrity)
	var permanent *permanentError
	require.False(t, errors.As(err, &permanent))
	require.Equal(t, 1, calls)
	require.NoError(t, Permanent(nil))
}

// TestRetry_AttemptTimeout verifies every attempt gets its own deadline.
func TestRetry_AttemptTimeout(t *testing.T) {
	t.Parallel()

	calls := 0
	err := Retry(context.Background(), RetryPolicy{Attempts: 2, Timeout: 10 * time.Millisecond}, func(ctx context.Context) error {
		calls++

		<-ctx.Done()

		return ctx.Err()
	})

	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Equal(t, 2, calls)
}

// TestRetry_ParentCancellation stops waiting between attempts.
func TestRetry_ParentCancellation(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	err := Retry(ctx, RetryPolicy{Attempts: 3, Delay: time.Hour}, func(context.Context) error {
		calls++
		cancel()

		return errTransient
	})

	require.ErrorIs(t, err, errTransient)
	require.Equal(t, 1, calls)
}
