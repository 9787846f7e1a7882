package retry

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/tyebliya/waitlist-api/pkg/logger"
	"go.uber.org/zap"
)

// Config describes how often and how patiently an operation is retried
type Config struct {
	MaxRetries   int // attempts after the first call
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
	Jitter       bool // spread each delay by up to ±25%
	// RetryableErrors reports whether err is worth another attempt. Nil retries everything.
	RetryableErrors func(error) bool
}

// DefaultConfig retries three times with exponential backoff from 100ms up to 5s
func DefaultConfig() Config {
	return Config{
		MaxRetries:   3,
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     5 * time.Second,
		Multiplier:   2.0,
		Jitter:       true,
	}
}

// ReferralCodeConfig retries only errors matched by isCollision, back to back.
// Each retry draws a fresh random code so waiting gains nothing.
func ReferralCodeConfig(isCollision func(error) bool) Config {
	return Config{
		MaxRetries:      3,
		RetryableErrors: isCollision,
	}
}

// StorageConfig is used for object storage uploads
func StorageConfig() Config {
	cfg := DefaultConfig()
	cfg.InitialDelay = 200 * time.Millisecond
	cfg.MaxDelay = 3 * time.Second
	return cfg
}

func (c Config) retryable(err error) bool {
	return c.RetryableErrors == nil || c.RetryableErrors(err)
}

// Do runs fn until it succeeds, returns a non-retryable error, or runs out of attempts
func Do(ctx context.Context, cfg Config, operation string, fn func() error) error {
	_, err := DoWithResult(ctx, cfg, operation, func() (struct{}, error) {
		return struct{}{}, fn()
	})
	return err
}

// DoWithResult is Do for functions that produce a value.
// A non-retryable error is returned unwrapped.
func DoWithResult[T any](ctx context.Context, cfg Config, operation string, fn func() (T, error)) (T, error) {
	var zero T

	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		res, err := fn()
		switch {
		case err == nil:
			if attempt > 0 {
				logger.Info("Operation succeeded after retry",
					zap.String("operation", operation),
					zap.Int("attempt", attempt))
			}
			return res, nil
		case !cfg.retryable(err):
			return zero, err
		case attempt >= cfg.MaxRetries:
			logger.Error("Operation failed after all retries",
				zap.String("operation", operation),
				zap.Int("max_retries", cfg.MaxRetries),
				zap.Error(err))
			return zero, fmt.Errorf("%s failed after %d retries: %w", operation, cfg.MaxRetries, err)
		}

		delay := calculateDelay(attempt, cfg)
		logger.Warn("Operation failed, retrying",
			zap.String("operation", operation),
			zap.Int("attempt", attempt+1),
			zap.Duration("delay", delay),
			zap.Error(err))

		if err := sleep(ctx, delay); err != nil {
			return zero, err
		}
	}
}

// calculateDelay returns InitialDelay * Multiplier^attempt capped at MaxDelay
func calculateDelay(attempt int, cfg Config) time.Duration {
	delay := float64(cfg.InitialDelay)
	for i := 0; i < attempt && delay < float64(cfg.MaxDelay); i++ {
		delay *= cfg.Multiplier
	}
	if delay > float64(cfg.MaxDelay) {
		delay = float64(cfg.MaxDelay)
	}

	if cfg.Jitter && delay > 0 {
		delay += delay * 0.25 * (2*rand.Float64() - 1) //nolint:gosec // jitter needs no crypto randomness
	}

	return time.Duration(delay)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
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
