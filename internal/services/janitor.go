package services

import (
	"context"
	"log/slog"
	"time"

	"secretsanta/internal/domain"
)

// RunJanitor purges expired sessions every interval until ctx is done.
// It is only needed for backends without native expiry.
func RunJanitor(ctx context.Context, logger *slog.Logger, purger domain.ExpiredSessionPurger, interval time.Duration) {
	if interval <= 0 {
		logger.WarnContext(ctx, "session janitor disabled", "interval", interval)
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			purgeOnce(ctx, logger, purger, time.Now())
		}
	}
}

func purgeOnce(ctx context.Context, logger *slog.Logger, purger domain.ExpiredSessionPurger, now time.Time) int {
	n, err := purger.PurgeExpired(ctx, now)
	if err != nil {
		logger.ErrorContext(ctx, "purge expired sessions", "err", err)
		return 0
	}
	if n > 0 {
		logger.InfoContext(ctx, "purged expired sessions", "count", n)
	}
	return n
}
