package repositories

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"entangleme/domain"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *badger.DB {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).
		WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = db.Close()
	})
	return db
}

func Test_Replace_And_List_Participants(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelError)
	repository := NewStateRepository(openTestDB(t), log, "")

	alice := domain.Participant{ID: uuid.New(), Username: "alice"}
	bob := domain.Participant{ID: uuid.New(), Username: "bob"}

	// When storing both participants then replacing with only bob
	req.NoError(repository.ReplaceParticipants([]domain.Participant{alice, bob}))
	req.NoError(repository.ReplaceParticipants([]domain.Participant{bob}))

	// Then only bob remains
	participants, err := repository.ListParticipants()
	req.NoError(err)
	req.Len(participants, 1)
	req.Equal(bob, participants[0])
}

func Test_Store_Messages_Sorted_And_Idempotent(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelError)
	repository := NewStateRepository(openTestDB(t), log, "")

	at := time.Now().UTC()
	result := json.RawMessage(`{"success":true,"teleported_qubit":"1"}`)
	messages := []domain.Message{
		{ID: uuid.New(), Sender: "bob", Bit: 1, At: at.Add(time.Second), TeleportationResult: result},
		{ID: uuid.New(), Sender: "alice", Bit: 0, At: at},
	}

	// When persisting the snapshot twice
	req.NoError(repository.StoreMessages(messages))
	req.NoError(repository.StoreMessages(messages))

	// Then messages come back chronologically sorted, without duplicates
	fetched, err := repository.ListMessages()
	req.NoError(err)
	req.Len(fetched, 2)
	req.Equal("alice", fetched[0].Sender)
	req.Equal("bob", fetched[1].Sender)
	req.JSONEq(string(result), string(fetched[1].TeleportationResult))
}

func Test_Marker_Touched_After_Mutation(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelError)
	marker := filepath.Join(t.TempDir(), "state.version")
	repository := NewStateRepository(openTestDB(t), log, marker)

	req.NoError(repository.ReplaceParticipants([]domain.Participant{
		{ID: uuid.New(), Username: "alice"},
	}))

	_, err := os.Stat(marker)
	req.NoError(err)
}
