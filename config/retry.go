package config

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/AntonStoeckl/resource-allocations-go/allocation"
)

const (
	defaultMaxAttempts  = 8
	defaultBaseDelay    = 100 * time.Millisecond
	defaultJitterFactor = 0.3

	logMsgPingFailed = "database not reachable yet, retrying"
)

var (
	// ErrInvalidMaxAttempts is returned when max attempts are not positive.
	ErrInvalidMaxAttempts = errors.New("max attempts must be positive")

	// ErrNegativeBaseDelay is returned when the base delay is negative.
	ErrNegativeBaseDelay = errors.New("base delay must not be negative")

	// ErrInvalidJitterFactor is returned when the jitter factor is not between 0.0 and 1.0.
	ErrInvalidJitterFactor = errors.New("jitter factor must be between 0.0 and 1.0")
)

// PingFunc checks that a database is reachable, e.g., (*pgxpool.Pool).Ping.
type PingFunc func(ctx context.Context) error

type retryConfig struct {
	maxAttempts  int
	baseDelay    time.Duration
	jitterFactor float64
	logger       allocation.Logger
}

// RetryOption configures PingWithBackoff.
type RetryOption func(*retryConfig) error

// PingWithBackoff calls ping until it succeeds, the attempts are used up, or ctx is done.
// Delays between attempts: baseDelay, baseDelay*2, baseDelay*4, ... each plus up to jitterFactor of itself.
// It is meant for startup only; allocation operations are never retried.
func PingWithBackoff(ctx context.Context, ping PingFunc, options ...RetryOption) error {
	cfg := &retryConfig{
		maxAttempts:  defaultMaxAttempts,
		baseDelay:    defaultBaseDelay,
		jitterFactor: defaultJitterFactor,
	}

	for _, option := range options {
		if err := option(cfg); err != nil {
			return err
		}
	}

	var lastErr error

	for attempt := 0; attempt < cfg.maxAttempts; attempt++ {
		if attempt > 0 {
			delay := cfg.baseDelay * time.Duration(1<<(attempt-1))
			delay += time.Duration(rand.Float64() * float64(delay) * cfg.jitterFactor) //nolint:gosec // jitter only

			if cfg.logger != nil {
				cfg.logger.Warn(logMsgPingFailed, "attempt", attempt, "delay_ms", delay.Milliseconds(), "error", lastErr.Error())
			}

			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return errors.Join(ctx.Err(), lastErr)
			}
		}

		lastErr = ping(ctx)
		if lastErr == nil {
			return nil
		}

		if errors.Is(lastErr, context.Canceled) || errors.Is(lastErr, context.DeadlineExceeded) {
			return lastErr
		}
	}

	return lastErr
}

// WithMaxAttempts sets the number of pings including the first one.
func WithMaxAttempts(attempts int) RetryOption {
	return func(cfg *retryConfig) error {
		if attempts <= 0 {
			return ErrInvalidMaxAttempts
		}

		cfg.maxAttempts = attempts

		return nil
	}
}

// WithBaseDelay sets the delay before the second attempt.
func WithBaseDelay(delay time.Duration) RetryOption {
	return func(cfg *retryConfig) error {
		if delay < 0 {
			return ErrNegativeBaseDelay
		}

		cfg.baseDelay = delay

		return nil
	}
}

// WithJitterFactor sets the share of each delay added at random. Valid range: 0.0 to 1.0.
func WithJitterFactor(factor float64) RetryOption {
	return func(cfg *retryConfig) error {
		if factor < 0.0 || factor > 1.0 {
			return ErrInvalidJitterFactor
		}

		cfg.jitterFactor = factor

		return nil
	}
}

// WithRetryLogger logs every failed attempt at warn level.
func WithRetryLogger(logger allocation.Logger) RetryOption {
	return func(cfg *retryConfig) error {
		cfg.logger = logger
		return nil
	}
}
