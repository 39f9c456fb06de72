package resilience

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrAttemptTimeout is returned when a bounded call outlives its limit.
var ErrAttemptTimeout = errors.New("attempt timed out")

// Bounded runs fn with a context that expires after limit and returns as soon
// as either fn finishes or the limit passes, even if fn ignores its context.
// A limit <= 0 calls fn directly.
func Bounded(ctx context.Context, limit time.Duration, fn func(ctx context.Context) error) error {
	if limit <= 0 {
		return fn(ctx)
	}
	attemptCtx, cancel := context.WithTimeout(ctx, limit)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- fn(attemptCtx) }()

	select {
	case err := <-done:
		return err
	case <-attemptCtx.Done():
		if err := ctx.Err(); err != nil {
			return err
		}
		return fmt.Errorf("%w after %v: %w", ErrAttemptTimeout, limit, context.DeadlineExceeded)
	}
}
