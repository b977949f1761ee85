package observability

import (
	"sync/atomic"
	"time"
)

// StatsSnapshot aggregates sync counters for logging and the viewer.
type StatsSnapshot struct {
	PresencePolls    uint64 `json:"presence_polls"`
	MessagePolls     uint64 `json:"message_polls"`
	Notifications    uint64 `json:"notifications"`
	TransportErrors  uint64 `json:"transport_errors"`
	MessagesAppended uint64 `json:"messages_appended"`
}

// SyncStats tracks what the sync layer actually did: how often it polled,
// how many notifications it delivered, and how many transport failures it
// swallowed. Counters are atomic, there is no lock on the hot path.
type SyncStats struct {
	presencePolls    uint64
	messagePolls     uint64
	notifications    uint64
	transportErrors  uint64
	messagesAppended uint64
	Started          time.Time
}

func NewSyncStats() *SyncStats {
	return &SyncStats{Started: time.Now().UTC()}
}

func (s *SyncStats) IncrPresencePolls() {
	atomic.AddUint64(&s.presencePolls, 1)
}

func (s *SyncStats) IncrMessagePolls() {
	atomic.AddUint64(&s.messagePolls, 1)
}

func (s *SyncStats) IncrNotifications() {
	atomic.AddUint64(&s.notifications, 1)
}

func (s *SyncStats) IncrTransportErrors() {
	atomic.AddUint64(&s.transportErrors, 1)
}

func (s *SyncStats) IncrMessagesAppended() {
	atomic.AddUint64(&s.messagesAppended, 1)
}

func (s *SyncStats) Snapshot() StatsSnapshot {
	return StatsSnapshot{
		PresencePolls:    atomic.LoadUint64(&s.presencePolls),
		MessagePolls:     atomic.LoadUint64(&s.messagePolls),
		Notifications:    atomic.LoadUint64(&s.notifications),
		TransportErrors:  atomic.LoadUint64(&s.transportErrors),
		MessagesAppended: atomic.LoadUint64(&s.messagesAppended),
	}
}
