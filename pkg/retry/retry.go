package retry

import (
	"context"
	"time"

	"bmexporter/pkg/errors"
	"bmexporter/pkg/logger"
)

// Operation is a function that may need retrying.
type Operation func() error

// Config holds retry configuration.
type Config struct {
	// MaxAttempts is the maximum number of attempts.
	MaxAttempts int
	// Backoff strategy between attempts.
	Backoff BackoffStrategy
	// RetryIf decides whether an error is worth another attempt.
	RetryIf func(error) bool
	// Context for cancellation between attempts.
	Context context.Context
	// Logger for retry attempts.
	Logger logger.Logger
}

// DefaultConfig returns a retry configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		MaxAttempts: 3,
		Backoff:     DefaultExponentialBackoff(),
		RetryIf:     DefaultRetryIf,
		Context:     context.Background(),
		Logger:      logger.GetLogger(),
	}
}

// DefaultRetryIf retries transient network and server errors only.
// Rate-limit errors are never retried: they pause the whole run through
// checkpointing, and retrying them here would silently burn the budget.
func DefaultRetryIf(err error) bool {
	if err == nil {
		return false
	}
	if errors.IsRateLimited(err) {
		return false
	}
	return errors.IsRetryable(err)
}

// Do executes an operation with retries.
func Do(op Operation, cfg *Config) error {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	retryIf := cfg.RetryIf
	if retryIf == nil {
		retryIf = DefaultRetryIf
	}
	ctx := cfg.Context
	if ctx == nil {
		ctx = context.Background()
	}

	var lastErr error
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !retryIf(lastErr) || attempt == cfg.MaxAttempts {
			return lastErr
		}

		delay := cfg.Backoff.NextDelay(attempt)
		if cfg.Logger != nil {
			cfg.Logger.WarnWithFields("retrying after error", map[string]interface{}{
				"attempt": attempt,
				"delay":   delay,
				"error":   lastErr.Error(),
			})
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}

	return lastErr
}
