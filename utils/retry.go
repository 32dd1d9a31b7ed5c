package utils

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrPermanent marks a failure that must not be retried (e.g. a 404 or a
// malformed request). Wrap it with Permanent.
var ErrPermanent = errors.New("permanent failure")

type permanentError struct{ err error }

func (p permanentError) Error() string { return p.err.Error() }
func (p permanentError) Unwrap() []error {
	return []error{p.err, ErrPermanent}
}

// Permanent wraps err so that RetryConfig.Do gives up immediately.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return permanentError{err: err}
}

// RetryConfig holds the parameters for a bounded retry budget.
// The wait before attempt n+1 is n*BaseDelay (linear), or BaseDelay when Fixed.
type RetryConfig struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Fixed       bool
	Logger      *Logger

	// Wait, when set, overrides the computed delay for a given error; used to
	// honour Retry-After on rate-limit responses. Returning 0 keeps the default.
	Wait func(err error) time.Duration
}

func (r *RetryConfig) delay(attempt int, err error) time.Duration {
	if r.Wait != nil {
		if d := r.Wait(err); d > 0 {
			return d
		}
	}
	if r.Fixed {
		return r.BaseDelay
	}
	return time.Duration(attempt) * r.BaseDelay
}

// Do executes fn until it succeeds, returns a permanent error, the budget is
// exhausted, or ctx is done.
func (r *RetryConfig) Do(ctx context.Context, operationName string, fn func() error) error {
	attempts := r.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if errors.Is(lastErr, ErrPermanent) {
			return lastErr
		}

		if attempt < attempts {
			wait := r.delay(attempt, lastErr)
			if r.Logger != nil {
				r.Logger.Warn("[retry] %s failed (attempt %d/%d): %v, retrying in %v",
					operationName, attempt, attempts, lastErr, wait)
			}
			if err := Pause(ctx, wait); err != nil {
				return fmt.Errorf("%s: %w", operationName, err)
			}
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, attempts, lastErr)
}

// Pause waits d unless ctx is done first.
func Pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
