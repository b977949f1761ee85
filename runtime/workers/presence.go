// Package workers contains the supervised background loops of the sync
// layer. Workers are deliberately dumb: cadence and polling only, all state
// decisions belong to the scheduler-provided poll functions.
package workers

import (
	"context"
	"log/slog"
	"time"

	"entangleme/observability"
)

// PresencePollWorker re-checks room membership at a coarse, fixed cadence.
// It runs for the whole session regardless of room status: peer arrival
// must be observed even while waiting, with zero messages exchanged.
type PresencePollWorker struct {
	log      *slog.Logger
	interval time.Duration
	poll     func(ctx context.Context) error
	stats    *observability.SyncStats
}

func NewPresencePollWorker(
	log *slog.Logger,
	interval time.Duration,
	poll func(ctx context.Context) error,
	stats *observability.SyncStats,
) *PresencePollWorker {
	return &PresencePollWorker{log: log, interval: interval, poll: poll, stats: stats}
}

// Run polls until the session context is canceled. Poll failures are
// retryable by definition: log, count, and wait for the next tick.
func (w *PresencePollWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Stopping presence poll worker")
			return ctx.Err()
		case <-ticker.C:
			w.stats.IncrPresencePolls()
			if err := w.poll(ctx); err != nil {
				w.stats.IncrTransportErrors()
				w.log.Warn("Presence poll failed, retrying on next tick", "err", err)
			}
		}
	}
}
