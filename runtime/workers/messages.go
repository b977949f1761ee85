package workers

import (
	"context"
	"log/slog"
	"time"

	"entangleme/observability"
)

// MessagePollWorker fetches the remote message log at a fixed cadence.
// It only exists while the room is ready: polling for messages while alone
// is wasted load, so the scheduler starts it on entering ready and cancels
// it on leaving.
type MessagePollWorker struct {
	log      *slog.Logger
	interval time.Duration
	poll     func(ctx context.Context) error
	stats    *observability.SyncStats
}

func NewMessagePollWorker(
	log *slog.Logger,
	interval time.Duration,
	poll func(ctx context.Context) error,
	stats *observability.SyncStats,
) *MessagePollWorker {
	return &MessagePollWorker{log: log, interval: interval, poll: poll, stats: stats}
}

// Run performs one eager poll, then ticks until canceled. The eager poll
// bounds the detection latency right after the peer arrives instead of
// waiting out a full interval.
func (w *MessagePollWorker) Run(ctx context.Context) error {
	w.pollOnce(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Stopping message poll worker")
			return ctx.Err()
		case <-ticker.C:
			w.pollOnce(ctx)
		}
	}
}

func (w *MessagePollWorker) pollOnce(ctx context.Context) {
	w.stats.IncrMessagePolls()
	if err := w.poll(ctx); err != nil {
		w.stats.IncrTransportErrors()
		w.log.Warn("Message poll failed, retrying on next tick", "err", err)
	}
}
