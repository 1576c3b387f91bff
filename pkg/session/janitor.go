package session

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
)

// RunCleanup sweeps expired sessions from store every interval until ctx is
// done. Sweep failures are logged and do not stop the loop. It returns nil
// when ctx is canceled so it can run inside an errgroup.
func RunCleanup(ctx context.Context, store Store, interval time.Duration, logger *log.Logger) error {
	if interval <= 0 {
		interval = DefaultCleanupInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := store.Cleanup(ctx); err != nil && logger != nil {
				logger.Warn("session cleanup failed", "err", err)
			}
		}
	}
}
