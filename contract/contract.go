//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"context"
	"reflect"

	"entangleme/domain"
	"entangleme/domain/event"

	"github.com/google/uuid"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

// Worker doesn't protect itself: supervision, restarts and panic recovery
// are the supervisor's job.
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes during worker lifecycle
// events, avoiding the need for manual naming in the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

type EventSink interface {
	Consume(ctx context.Context, e event.DomainEvent) error
}

// Notifier delivers change notifications to subscribers. Delivery is
// best-effort, at-least-once, unordered across kinds, and rapid repeated
// mutations may coalesce into a single notification.
type Notifier interface {
	Subscribe(kind event.Kind, handler func(event.DomainEvent)) (unsubscribe func())
	Publish(e event.DomainEvent)
}

// RoomDirectory is the remote identity/room service. All calls must be
// idempotent on retry: creating an already existing user or room returns
// the existing entity.
type RoomDirectory interface {
	CreateOrFetchUser(ctx context.Context, username string) (domain.Participant, error)
	CreateOrJoinRoom(ctx context.Context, roomName string, userID uuid.UUID) (string, error)
	ListParticipants(ctx context.Context, roomID string) ([]domain.Participant, error)
	RemoveParticipant(ctx context.Context, roomID string, userID uuid.UUID) error
}

// MessageStore is the remote message history for a room.
type MessageStore interface {
	ListMessages(ctx context.Context, roomID string) ([]domain.Message, error)
	PostMessage(ctx context.Context, roomID string, message domain.Message) error
}

// Teleporter is the quantum-result collaborator. Results are opaque to the
// session core, which only persists and relays them.
type Teleporter interface {
	Teleport(ctx context.Context, roomID string, senderID, receiverID uuid.UUID, bit int) (domain.TeleportationResult, error)
	Simulate(ctx context.Context, bit int) (domain.TeleportationResult, error)
}

// Consumer is the callback surface invoked by the sync scheduler. Both
// callbacks receive full snapshots and must be safe to call repeatedly:
// a snapshot replaces the consumer's previous view, it never appends to it.
type Consumer interface {
	OnMessages(messages []domain.Message)
	OnRoomStatus(status domain.RoomStatus, otherUsername string)
}
