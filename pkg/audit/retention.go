package audit

import (
	"context"
	"log/slog"
	"time"
)

// Cleaner deletes events older than a cutoff.
type Cleaner interface {
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// Cleanup removes events older than retention and returns how many were deleted.
func Cleanup(ctx context.Context, c Cleaner, retention time.Duration, now time.Time) (int64, error) {
	return c.DeleteBefore(ctx, now.Add(-retention))
}

// RunRetention calls Cleanup every interval until ctx is done. The first
// sweep runs immediately; a non-positive interval runs only that one.
func RunRetention(ctx context.Context, c Cleaner, retention, interval time.Duration, log *slog.Logger) {
	if log == nil {
		log = slog.Default()
	}
	sweep := func() {
		n, err := Cleanup(ctx, c, retention, time.Now())
		if err != nil {
			if ctx.Err() == nil {
				log.WarnContext(ctx, "audit retention sweep failed", slog.String("error", err.Error()))
			}
			return
		}
		if n > 0 {
			log.InfoContext(ctx, "audit retention sweep", slog.Int64("deleted", n))
		}
	}

	sweep()
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sweep()
		}
	}
}
