package ratelimit

import (
	"context"
	"time"
)

// Entry is the fixed-window counter kept per client key
type Entry struct {
	Count       int
	WindowStart time.Time
}

// Store keeps the per-key counters. Implementations must be safe for
// concurrent use; Increment must not lose updates for the same key.
type Store interface {
	// Increment records one request for key at now. A missing entry, or one
	// whose window has ended, is replaced by a fresh window with Count=1.
	Increment(ctx context.Context, key string, now time.Time, window time.Duration) (Entry, error)

	// Sweep evicts entries whose window started more than maxAge before now
	// and returns how many were removed.
	Sweep(ctx context.Context, now time.Time, maxAge time.Duration) (int, error)
}
