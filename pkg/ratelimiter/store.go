package ratelimiter

import (
	"context"
	"time"
)

// Store keeps per-key hit counters.
type Store interface {
	// Hit increments the counter for key, starting a new window when none is
	// active, and returns the count within the window and when it ends.
	Hit(ctx context.Context, key string, window time.Duration) (count int, resetAt time.Time, err error)
	Reset(ctx context.Context, key string) error
}
