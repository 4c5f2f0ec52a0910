package resilience

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// RetryConfig holds tuning knobs for [Retry].
type RetryConfig struct {
	// Name is a human-readable label used in log messages.
	Name string

	// MaxAttempts is the total number of attempts, including the first.
	// Default: 3.
	MaxAttempts int

	// BaseDelay is the wait before the second attempt. Default: 1s.
	BaseDelay time.Duration

	// Factor multiplies the delay after each failed attempt. Default: 2.
	Factor float64

	// MaxDelay caps the per-attempt wait. Default: 60s.
	MaxDelay time.Duration
}

func (cfg *RetryConfig) applyDefaults() {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = time.Second
	}
	if cfg.Factor <= 1 {
		cfg.Factor = 2
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = 60 * time.Second
	}
}

// permanentError marks an error that must not be retried.
type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }

func (e *permanentError) Unwrap() error { return e.err }

// Permanent wraps err so that [Retry] stops immediately instead of retrying.
// Use it for failures where repeating the call cannot help, such as input
// validation. errors.Is and errors.As see through the wrapper.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// Retry runs fn up to cfg.MaxAttempts times with exponential backoff between
// attempts. It returns nil as soon as fn succeeds, the unwrapped error
// immediately when fn returns a [Permanent] error, ctx.Err() when the context
// ends during a wait, and otherwise the last attempt's error.
func Retry(ctx context.Context, cfg RetryConfig, fn func() error) error {
	cfg.applyDefaults()

	delay := cfg.BaseDelay
	var lastErr error
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}

		var perm *permanentError
		if errors.As(err, &perm) {
			return perm.err
		}
		lastErr = err

		if attempt == cfg.MaxAttempts {
			break
		}
		slog.Warn("attempt failed, retrying",
			"name", cfg.Name,
			"attempt", attempt,
			"max_attempts", cfg.MaxAttempts,
			"delay", delay,
			"error", err)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		delay = time.Duration(float64(delay) * cfg.Factor)
		if delay > cfg.MaxDelay {
			delay = cfg.MaxDelay
		}
	}
	return lastErr
}
