package sync

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

// Run drains the queue on a fixed interval until the context is cancelled.
// Ticks while a pass is still running, or while the queue is empty, are
// skipped.
func (e *Engine) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	e.log.Info("Auto-sync loop starting", zap.Duration("interval", interval))

	for {
		select {
		case <-ctx.Done():
			e.log.Info("Auto-sync loop shutting down")
			return

		case <-ticker.C:
			count, err := e.store.PendingCount(ctx)
			if err != nil {
				e.log.Error("Failed to count pending check-ins", zap.Error(err))
				continue
			}
			if count == 0 {
				continue
			}

			result, err := e.Sync(ctx)
			if errors.Is(err, ErrSyncInProgress) {
				continue
			}
			if err != nil {
				e.log.Error("Auto-sync pass failed", zap.Error(err))
				continue
			}

			e.log.Info("Auto-sync pass complete",
				zap.Int("synced", result.Synced),
				zap.Int("failed", result.Failed))
		}
	}
}
