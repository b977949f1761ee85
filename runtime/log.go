package runtime

import (
	"log/slog"
	"sync"
	"time"

	"entangleme/contract"
	"entangleme/domain"
	"entangleme/domain/event"

	"github.com/google/uuid"
)

// MessageLog is the append-only ordered store of exchanged bit-messages.
// Entries are never mutated or evicted: the log lives as long as the room.
// Every append publishes a MessagesUpdated notification.
type MessageLog struct {
	mu       sync.RWMutex
	log      *slog.Logger
	notifier contract.Notifier
	messages []domain.Message
}

func NewMessageLog(log *slog.Logger, notifier contract.Notifier) *MessageLog {
	return &MessageLog{log: log, notifier: notifier}
}

// Append records a message, assigning an identifier and timestamp when
// absent. It always succeeds locally.
func (m *MessageLog) Append(message domain.Message) domain.Message {
	if message.ID == uuid.Nil {
		message.ID = uuid.New()
	}
	if message.At.IsZero() {
		message.At = time.Now().UTC()
	}

	m.mu.Lock()
	m.messages = append(m.messages, message)
	size := len(m.messages)
	m.mu.Unlock()

	m.log.Debug("Message appended", "sender", message.Sender, "bit", message.Bit, "size", size)
	m.publish()
	return message
}

// Merge appends every message whose identifier is not yet in the log,
// preserving the remote ordering of the new entries. Duplicate delivery of
// the same message is therefore idempotent. Returns the number of messages
// actually added.
func (m *MessageLog) Merge(messages []domain.Message) int {
	m.mu.Lock()
	seen := make(map[uuid.UUID]struct{}, len(m.messages))
	for _, existing := range m.messages {
		seen[existing.ID] = struct{}{}
	}
	added := 0
	for _, msg := range messages {
		if _, ok := seen[msg.ID]; ok {
			continue
		}
		seen[msg.ID] = struct{}{}
		m.messages = append(m.messages, msg)
		added++
	}
	m.mu.Unlock()

	if added > 0 {
		m.log.Debug("Messages merged from remote", "added", added)
		m.publish()
	}
	return added
}

// Seed restores the log from persisted state at startup, without publishing.
func (m *MessageLog) Seed(messages []domain.Message) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append([]domain.Message(nil), messages...)
}

// ReadAll returns a full snapshot in append order. It is idempotent and
// has no side effects, so it is safe to call on every notification.
func (m *MessageLog) ReadAll() []domain.Message {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]domain.Message(nil), m.messages...)
}

func (m *MessageLog) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.messages)
}

func (m *MessageLog) publish() {
	if m.notifier == nil {
		return
	}
	m.notifier.Publish(event.MessagesUpdated{At: time.Now().UTC()})
}
