package resilience

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Policy controls the retry protocol applied around one source lookup:
// a fixed number of attempts with a fixed politeness delay between them.
// The delay is constant, not exponential; lookup sites expect paced
// requests.
type Policy struct {
	// Attempts is the total number of attempts including the first try.
	// A value of 1 means no retries. Default: 2.
	Attempts int

	// Delay is slept between attempts, never after the last one. Zero is
	// allowed.
	Delay time.Duration

	// ShouldRetry decides whether an error is worth another attempt.
	// If nil, IsTransient is used. Terminal outcomes (e.g. a source's
	// authoritative "not found") must return false here.
	ShouldRetry func(err error) bool

	// OnRetry is called before each delay with the attempt number that
	// just failed and its error.
	OnRetry func(attempt int, err error)
}

func (p Policy) withDefaults() Policy {
	if p.Attempts <= 0 {
		p.Attempts = 2
	}
	if p.Delay < 0 {
		p.Delay = 0
	}
	return p
}

// DoVal executes fn under the policy, returning the value of the first
// successful attempt. The context cancels both in-flight waits between
// attempts and stops further retries; fn itself is responsible for honoring
// ctx in its own I/O.
func DoVal[T any](ctx context.Context, p Policy, fn func(ctx context.Context) (T, error)) (T, error) {
	p = p.withDefaults()

	shouldRetry := p.ShouldRetry
	if shouldRetry == nil {
		shouldRetry = IsTransient
	}

	var zero T
	var lastErr error
	for attempt := 1; attempt <= p.Attempts; attempt++ {
		val, err := fn(ctx)
		if err == nil {
			return val, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return zero, lastErr
		}
		if !shouldRetry(lastErr) {
			return zero, lastErr
		}
		if attempt == p.Attempts {
			break
		}

		if p.OnRetry != nil {
			p.OnRetry(attempt, lastErr)
		}

		if p.Delay > 0 {
			timer := time.NewTimer(p.Delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return zero, lastErr
			case <-timer.C:
			}
		}
	}

	return zero, lastErr
}

// Do executes fn under the policy, discarding any value.
func Do(ctx context.Context, p Policy, fn func(ctx context.Context) error) error {
	_, err := DoVal(ctx, p, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// RetryLogger returns an OnRetry callback that logs each retry attempt.
func RetryLogger(source, operation string) func(int, error) {
	return func(attempt int, err error) {
		zap.L().Warn("retrying operation",
			zap.String("source", source),
			zap.String("operation", operation),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
	}
}
