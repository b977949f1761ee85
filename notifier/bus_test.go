package notifier

import (
	"log/slog"
	"sync"
	"testing"
	"time"

	"entangleme/domain/event"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

func TestBus_Publish_Delivers_To_Matching_Kind_Only(t *testing.T) {
	req := require.New(t)
	bus := NewBus(logs.GetLoggerFromLevel(slog.LevelDebug))

	var participants, messages int
	bus.Subscribe(event.ParticipantsChanged, func(event.DomainEvent) {
		participants++
	})
	bus.Subscribe(event.MessagesChanged, func(event.DomainEvent) {
		messages++
	})

	// When a participants event is published
	bus.Publish(event.ParticipantsUpdated{At: time.Now()})

	// Then only the participants handler fires
	req.Equal(1, participants)
	req.Equal(0, messages)
}

func TestBus_Unsubscribe_Is_Idempotent(t *testing.T) {
	req := require.New(t)
	bus := NewBus(logs.GetLoggerFromLevel(slog.LevelDebug))

	calls := 0
	unsubscribe := bus.Subscribe(event.MessagesChanged, func(event.DomainEvent) {
		calls++
	})

	bus.Publish(event.MessagesUpdated{At: time.Now()})
	req.Equal(1, calls)

	// When unsubscribing twice
	unsubscribe()
	unsubscribe()

	// Then no further delivery happens and nothing panics
	bus.Publish(event.MessagesUpdated{At: time.Now()})
	req.Equal(1, calls)
}

func TestBus_Concurrent_Publish_And_Subscribe(t *testing.T) {
	req := require.New(t)
	bus := NewBus(logs.GetLoggerFromLevel(slog.LevelDebug))

	var mu sync.Mutex
	calls := 0
	bus.Subscribe(event.ParticipantsChanged, func(event.DomainEvent) {
		mu.Lock()
		calls++
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			bus.Publish(event.ParticipantsUpdated{At: time.Now()})
		}()
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	req.Equal(10, calls)
}
