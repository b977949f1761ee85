package runtime

import (
	"log/slog"
	"testing"

	"entangleme/domain"
	"entangleme/domain/event"
	"entangleme/errors"
	"entangleme/notifier"

	"github.com/google/uuid"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

func newTestRegistry(t *testing.T) (*Registry, *notifier.Bus) {
	t.Helper()
	log := logs.GetLoggerFromLevel(slog.LevelError)
	bus := notifier.NewBus(log)
	return NewRegistry(log, bus), bus
}

func TestRegistry_Join_Publishes_After_Mutation(t *testing.T) {
	req := require.New(t)
	registry, bus := newTestRegistry(t)

	countsSeen := make([]int, 0, 2)
	bus.Subscribe(event.ParticipantsChanged, func(event.DomainEvent) {
		// The mutation must be recorded before the notification fires.
		countsSeen = append(countsSeen, registry.Count())
	})

	_, err := registry.Join("alice")
	req.NoError(err)
	_, err = registry.Join("bob")
	req.NoError(err)

	req.Equal([]int{1, 2}, countsSeen)
}

func TestRegistry_Capacity_Never_Exceeds_Two(t *testing.T) {
	req := require.New(t)
	registry, _ := newTestRegistry(t)

	_, err := registry.Join("alice")
	req.NoError(err)
	_, err = registry.Join("bob")
	req.NoError(err)

	_, err = registry.Join("clara")
	req.ErrorIs(err, errors.ErrRoomFull)
	req.Equal(2, registry.Count())
}

func TestRegistry_Rejoin_Same_Username_Is_Idempotent(t *testing.T) {
	req := require.New(t)
	registry, bus := newTestRegistry(t)

	notifications := 0
	bus.Subscribe(event.ParticipantsChanged, func(event.DomainEvent) {
		notifications++
	})

	first, err := registry.Join("alice")
	req.NoError(err)

	// When a second client joins with the same username
	second, err := registry.Join("alice")

	// Then it is the same participant, count stays 1, and nothing fires
	req.NoError(err)
	req.Equal(first.ID, second.ID)
	req.Equal(1, registry.Count())
	req.Equal(1, notifications)
}

func TestRegistry_Leave_Absent_Never_Fails(t *testing.T) {
	req := require.New(t)
	registry, bus := newTestRegistry(t)

	notifications := 0
	bus.Subscribe(event.ParticipantsChanged, func(event.DomainEvent) {
		notifications++
	})

	registry.Leave("ghost")
	req.Equal(0, registry.Count())
	req.Equal(0, notifications)
}

func TestRegistry_Leave_By_Username_Or_ID(t *testing.T) {
	req := require.New(t)
	registry, _ := newTestRegistry(t)

	alice, _ := registry.Join("alice")
	registry.Leave(alice.ID.String())
	req.Equal(0, registry.Count())

	_, _ = registry.Join("bob")
	registry.Leave("bob")
	req.Equal(0, registry.Count())
}

func TestRegistry_Reconcile_Publishes_Only_On_Change(t *testing.T) {
	req := require.New(t)
	registry, bus := newTestRegistry(t)

	notifications := 0
	bus.Subscribe(event.ParticipantsChanged, func(event.DomainEvent) {
		notifications++
	})

	listing := []domain.Participant{
		{ID: uuid.New(), Username: "alice"},
		{ID: uuid.New(), Username: "bob"},
	}
	req.True(registry.Reconcile(listing))
	req.False(registry.Reconcile(listing))

	req.Equal(1, notifications)
	req.Equal(domain.StatusReady, registry.Status())
}

func TestRegistry_Other_Participant(t *testing.T) {
	req := require.New(t)
	registry, _ := newTestRegistry(t)

	_, _ = registry.Join("alice")
	_, _ = registry.Join("bob")

	other, ok := registry.Other("alice")
	req.True(ok)
	req.Equal("bob", other.Username)

	other, ok = registry.Other("bob")
	req.True(ok)
	req.Equal("alice", other.Username)
}
