package ratelimiter

import (
	"context"
	"fmt"
	"time"
)

// Config defines a fixed window.
type Config struct {
	Limit  int           `env:"LIMIT" envDefault:"10"`
	Window time.Duration `env:"WINDOW" envDefault:"15m"`
}

func (c Config) validate() error {
	if c.Limit <= 0 {
		return fmt.Errorf("%w: limit must be positive, got %d", ErrInvalidConfig, c.Limit)
	}
	if c.Window <= 0 {
		return fmt.Errorf("%w: window must be positive, got %v", ErrInvalidConfig, c.Window)
	}
	return nil
}

// Result describes the state of a key after a hit.
type Result struct {
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// Allowed reports whether the hit fit in the window.
func (r Result) Allowed() bool { return r.Remaining >= 0 }

// RetryAfter is the wait until the window resets, zero when allowed.
func (r Result) RetryAfter(now time.Time) time.Duration {
	if r.Allowed() {
		return 0
	}
	return max(r.ResetAt.Sub(now), 0)
}

// Limiter enforces a Config against a Store.
type Limiter struct {
	store  Store
	config Config
}

func New(store Store, config Config) (*Limiter, error) {
	if err := config.validate(); err != nil {
		return nil, err
	}
	return &Limiter{store: store, config: config}, nil
}

// Allow records one hit for key.
func (l *Limiter) Allow(ctx context.Context, key string) (Result, error) {
	count, resetAt, err := l.store.Hit(ctx, key, l.config.Window)
	if err != nil {
		return Result{}, err
	}
	return Result{
		Limit:     l.config.Limit,
		Remaining: l.config.Limit - count,
		ResetAt:   resetAt,
	}, nil
}

// Reset forgets all hits for key.
func (l *Limiter) Reset(ctx context.Context, key string) error {
	return l.store.Reset(ctx, key)
}

// Config returns the limiter window.
func (l *Limiter) Config() Config { return l.config }
