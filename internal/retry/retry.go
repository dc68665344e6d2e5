// Package retry runs an operation again with linear backoff while it fails
// with a retryable error.
package retry

import (
	"context"
	"time"

	"github.com/dmitrijs2005/carpool/internal/apperr"
)

// Policy holds retry parameters.
//
// Invalid values are normalized:
//   - MaxAttempts < 1 becomes 1 (no retry)
//   - Delay <= 0 becomes 100ms
//   - MaxDelay <= 0 means no cap
type Policy struct {
	MaxAttempts int
	Delay       time.Duration
	MaxDelay    time.Duration
}

// DefaultPolicy makes up to three attempts with a one-second linear step.
var DefaultPolicy = Policy{MaxAttempts: 3, Delay: time.Second}

func (p *Policy) normalize() {
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}
	if p.Delay <= 0 {
		p.Delay = 100 * time.Millisecond
	}
}

// Backoff returns the wait before the given attempt. Attempt 1 never waits;
// attempt n waits (n-1)*Delay.
func (p Policy) Backoff(attempt int) time.Duration {
	p.normalize()
	if attempt <= 1 {
		return 0
	}
	d := time.Duration(attempt-1) * p.Delay
	if p.MaxDelay > 0 && d > p.MaxDelay {
		d = p.MaxDelay
	}
	return d
}

// Do runs fn until it succeeds, fails with an error that is not
// apperr-retryable, or the attempts are used up. The last error is returned
// as is. A cancelled ctx stops the wait between attempts.
func Do[T any](ctx context.Context, p Policy, fn func(ctx context.Context, attempt int) (T, error)) (T, error) {
	p.normalize()

	var (
		zero    T
		lastErr error
	)
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		if wait := p.Backoff(attempt); wait > 0 {
			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				if lastErr != nil {
					return zero, lastErr
				}
				return zero, ctx.Err()
			case <-timer.C:
			}
		}

		result, err := fn(ctx, attempt)
		if err == nil {
			return result, nil
		}
		lastErr = err
		if !apperr.IsRetryable(err) {
			return zero, err
		}
	}
	return zero, lastErr
}
