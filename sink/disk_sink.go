// Package sink contains event consumers with side effects. Sinks never own
// domain state: they observe notifications and re-fetch what they persist.
package sink

import (
	"context"
	"fmt"
	"log/slog"

	"entangleme/domain/event"
	"entangleme/repositories"
	"entangleme/runtime"
)

// DiskSink persists the current room state after every mutation. Because
// notifications carry no payload and may coalesce, it always re-reads the
// full state from the registry and log rather than applying deltas.
type DiskSink struct {
	repository repositories.IStateRepository
	registry   *runtime.Registry
	messages   *runtime.MessageLog
	log        *slog.Logger
}

func NewDiskSink(
	repository repositories.IStateRepository,
	registry *runtime.Registry,
	messages *runtime.MessageLog,
	log *slog.Logger,
) DiskSink {
	return DiskSink{repository: repository, registry: registry, messages: messages, log: log}
}

func (d DiskSink) Consume(_ context.Context, e event.DomainEvent) error {
	switch e.Kind() {
	case event.ParticipantsChanged:
		return d.repository.ReplaceParticipants(d.registry.Participants())
	case event.MessagesChanged:
		return d.repository.StoreMessages(d.messages.ReadAll())
	default:
		d.log.Debug(fmt.Sprintf("Not implemented event : %v", e.Kind()))
		return nil
	}
}
