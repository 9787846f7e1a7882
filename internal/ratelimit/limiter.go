package ratelimit

import (
	"context"
	"time"

	"github.com/tyebliya/waitlist-api/pkg/logger"
	"github.com/tyebliya/waitlist-api/pkg/metrics"
	"go.uber.org/zap"
)

// Config holds the fixed-window parameters
type Config struct {
	MaxRequests   int
	Window        time.Duration
	SweepInterval time.Duration
}

// FixedWindow refuses a key once it exceeds MaxRequests within one window.
// Windows open on the first request of a key, not on a global clock.
type FixedWindow struct {
	store  Store
	config Config
	now    func() time.Time
}

// NewFixedWindow creates a limiter on top of store
func NewFixedWindow(store Store, cfg Config) *FixedWindow {
	return &FixedWindow{
		store:  store,
		config: cfg,
		now:    time.Now,
	}
}

// Allow records a request for key and reports whether it is within the limit.
// A store failure lets the request through and is logged.
func (l *FixedWindow) Allow(ctx context.Context, key string) bool {
	entry, err := l.store.Increment(ctx, key, l.now(), l.config.Window)
	if err != nil {
		metrics.RateLimitDecisions.WithLabelValues("store_error").Inc()
		logger.Error("Rate limit store failed, allowing request", zap.Error(err))
		return true
	}

	if entry.Count > l.config.MaxRequests {
		metrics.RateLimitDecisions.WithLabelValues("refused").Inc()
		return false
	}

	metrics.RateLimitDecisions.WithLabelValues("allowed").Inc()
	return true
}

// Sweep evicts entries whose window ended more than one extra window ago
func (l *FixedWindow) Sweep(ctx context.Context) int {
	removed, err := l.store.Sweep(ctx, l.now(), 2*l.config.Window)
	if err != nil {
		logger.Error("Rate limit sweep failed", zap.Error(err))
		return 0
	}
	if removed > 0 {
		logger.Debug("Rate limit entries swept", zap.Int("removed", removed))
	}
	return removed
}

// StartSweeper runs Sweep every SweepInterval until ctx is cancelled.
// It runs independently of request handling.
func (l *FixedWindow) StartSweeper(ctx context.Context) {
	if l.config.SweepInterval <= 0 {
		return
	}

	go func() {
		ticker := time.NewTicker(l.config.SweepInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				l.Sweep(ctx)
			}
		}
	}()
}
