package workers

import (
	"context"
	"log/slog"
	"os"
	"time"

	"entangleme/observability"

	"github.com/shirou/gopsutil/process"
)

// HeartbeatWorker periodically logs process health (CPU, RAM) together
// with the sync counters, so a stalled poller shows up in the logs.
type HeartbeatWorker struct {
	log      *slog.Logger
	interval time.Duration
	stats    *observability.SyncStats
}

func NewHeartbeatWorker(log *slog.Logger, interval time.Duration, stats *observability.SyncStats) *HeartbeatWorker {
	return &HeartbeatWorker{log: log, interval: interval, stats: stats}
}

func (w *HeartbeatWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			rss, cpu, err := getSelfStats(p)
			if err != nil {
				w.log.Error("Failed to collect self stats", "err", err)
				continue
			}
			snapshot := w.stats.Snapshot()
			w.log.Info("Heartbeat",
				"ram_bytes", rss,
				"cpu_percent", cpu,
				"presence_polls", snapshot.PresencePolls,
				"message_polls", snapshot.MessagePolls,
				"notifications", snapshot.Notifications,
				"transport_errors", snapshot.TransportErrors,
				"messages_appended", snapshot.MessagesAppended,
			)
		}
	}
}

// getSelfStats retrieves memory and CPU usage for the given process.
func getSelfStats(p *process.Process) (uint64, float64, error) {
	memInfo, err := p.MemoryInfo()
	if err != nil {
		return 0, 0, err
	}
	cpuPercent, err := p.CPUPercent()
	if err != nil {
		return 0, 0, err
	}
	return memInfo.RSS, cpuPercent, nil
}
