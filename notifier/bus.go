// Package notifier implements the change-notification transports: an
// in-process fan-out bus for same-process sibling clients, and a file
// watcher for same-device sibling processes. Both satisfy contract.Notifier.
package notifier

import (
	"log/slog"
	"sync"

	"entangleme/domain/event"
)

// Bus is an in-process publish/subscribe fan-out keyed by event kind.
// Delivery is synchronous on the publisher goroutine and best-effort:
// handlers must not block and must re-fetch state themselves.
//
// Bus is safe for concurrent use by multiple goroutines.
type Bus struct {
	mu       sync.RWMutex
	log      *slog.Logger
	seq      int
	handlers map[event.Kind]map[int]func(event.DomainEvent)
}

func NewBus(log *slog.Logger) *Bus {
	return &Bus{
		log:      log,
		handlers: make(map[event.Kind]map[int]func(event.DomainEvent)),
	}
}

// Subscribe registers a handler for one event kind and returns its
// unsubscribe function. Unsubscribing twice is a no-op.
func (b *Bus) Subscribe(kind event.Kind, handler func(event.DomainEvent)) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.handlers[kind]; !ok {
		b.handlers[kind] = make(map[int]func(event.DomainEvent))
	}
	b.seq++
	id := b.seq
	b.handlers[kind][id] = handler

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.handlers[kind], id)
	}
}

// Publish fans the event out to every handler subscribed to its kind.
// Handlers run outside the bus lock, so they may re-subscribe or publish.
func (b *Bus) Publish(e event.DomainEvent) {
	b.mu.RLock()
	targets := make([]func(event.DomainEvent), 0, len(b.handlers[e.Kind()]))
	for _, h := range b.handlers[e.Kind()] {
		targets = append(targets, h)
	}
	b.mu.RUnlock()

	for _, h := range targets {
		h(e)
	}
	b.log.Debug("Event published", "kind", e.Kind(), "handlers", len(targets))
}
