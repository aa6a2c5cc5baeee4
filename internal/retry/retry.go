// Package retry provides bounded retry with exponential backoff for
// platform calls.
package retry

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"net"
	"time"

	"go.uber.org/zap"
)

// Policy controls retry behavior.
type Policy struct {
	// MaxAttempts counts the first try. 1 means no retries.
	MaxAttempts int
	// InitialBackoff is the delay before the first retry; it grows by
	// Multiplier per attempt, capped at MaxBackoff, with up to 25% jitter.
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	Multiplier     float64
	// Retryable overrides the default transient-error check.
	Retryable func(err error) bool
}

// DefaultPolicy suits rate-limited platform page fetches.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:    3,
		InitialBackoff: 500 * time.Millisecond,
		MaxBackoff:     10 * time.Second,
		Multiplier:     2.0,
	}
}

// Do runs fn until it succeeds, the error is not retryable, the attempts
// are exhausted, or ctx is canceled.
func Do[T any](ctx context.Context, p Policy, fn func(ctx context.Context) (T, error)) (T, error) {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 1
	}
	retryable := p.Retryable
	if retryable == nil {
		retryable = Transient
	}

	var zero T
	var lastErr error
	for attempt := 0; attempt < p.MaxAttempts; attempt++ {
		val, err := fn(ctx)
		if err == nil {
			return val, nil
		}
		lastErr = err

		if ctx.Err() != nil || !retryable(err) || attempt >= p.MaxAttempts-1 {
			break
		}

		delay := backoff(attempt, p)
		zap.L().Debug("retry: backing off",
			zap.Int("attempt", attempt+1), zap.Duration("delay", delay), zap.Error(err))
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, lastErr
		case <-timer.C:
		}
	}
	return zero, lastErr
}

// Transient reports whether err looks like a temporary network or
// server-side failure. Errors can opt in explicitly by implementing
// interface{ Transient() bool }.
func Transient(err error) bool {
	if err == nil {
		return false
	}
	var marker interface{ Transient() bool }
	if errors.As(err, &marker) {
		return marker.Transient()
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func backoff(attempt int, p Policy) time.Duration {
	delay := float64(p.InitialBackoff) * math.Pow(p.Multiplier, float64(attempt))
	if delay > float64(p.MaxBackoff) {
		delay = float64(p.MaxBackoff)
	}
	// up to 25% jitter so synchronized callers spread out
	delay *= 1 + 0.25*(rand.Float64()*2-1)
	return time.Duration(delay)
}
