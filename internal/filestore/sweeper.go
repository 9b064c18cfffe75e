package filestore

import (
	"context"
	"time"

	"go.uber.org/zap"

	"ortkod/internal/logging"
)

type Sweepable interface {
	Sweep() int
}

// RunSweeper evicts expired entries every interval until ctx is done.
func RunSweeper(ctx context.Context, store Sweepable, interval time.Duration, logger *zap.Logger) {
	logger = logging.OrNop(logger)
	if interval <= 0 {
		interval = time.Minute
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := store.Sweep(); removed > 0 {
				logger.Debug("expired files removed", zap.Int("removed", removed))
			}
		}
	}
}
