// Package retry provides the shared retry policy for external service
// calls: chunk refinement, classification, embedding and answer
// generation all use the same policy object.
package retry

import (
	"context"
	"errors"
	"time"
)

// ErrNotRetryable wraps an error the policy must not retry.
var ErrNotRetryable = errors.New("not retryable")

// Policy defines how a failing call is retried.
type Policy struct {
	// MaxAttempts is the total number of attempts, including the first.
	MaxAttempts int

	// InitialBackoff is the delay before the first retry.
	InitialBackoff time.Duration

	// Multiplier scales the backoff after each retry.
	Multiplier float64

	// Retryable classifies errors; nil means every error is retryable.
	// Context cancellation is never retried regardless.
	Retryable func(error) bool
}

// DefaultPolicy matches the refinement budget: one call plus two retries
// with exponential backoff.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:    3,
		InitialBackoff: 500 * time.Millisecond,
		Multiplier:     2.0,
	}
}

// Do runs fn under the policy, sleeping between attempts. It returns nil on
// the first success, the last error once attempts are exhausted, or the
// context error if ctx is cancelled while waiting.
func (p Policy) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	backoff := p.InitialBackoff

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		err = fn(ctx)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if errors.Is(err, ErrNotRetryable) {
			return err
		}
		if p.Retryable != nil && !p.Retryable(err) {
			return err
		}
		if attempt == attempts {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		if p.Multiplier > 1 {
			backoff = time.Duration(float64(backoff) * p.Multiplier)
		}
	}
	return err
}
