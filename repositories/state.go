//go:generate go run go.uber.org/mock/mockgen -source=state.go -destination=../mocks/mock_state_repository.go -package=mocks
package repositories

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"entangleme/domain"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/samber/lo"
)

type IStateRepository interface {
	ReplaceParticipants(participants []domain.Participant) error
	ListParticipants() ([]domain.Participant, error)
	StoreMessages(messages []domain.Message) error
	ListMessages() ([]domain.Message, error)
}

// DiskParticipant is the persisted shape of a registry entry.
type DiskParticipant struct {
	ID       uuid.UUID `json:"id"`
	Username string    `json:"username"`
}

// DiskMessage is the persisted shape of a log entry. The teleportation
// result is stored verbatim, never reinterpreted.
type DiskMessage struct {
	ID                  uuid.UUID       `json:"id"`
	Room                string          `json:"room"`
	Sender              string          `json:"sender"`
	Bit                 int             `json:"bit"`
	At                  time.Time       `json:"at"`
	TeleportationResult json.RawMessage `json:"teleportation_result,omitempty"`
}

// StateRepository persists the room state in BadgerDB and touches a version
// marker file after every mutation so sibling processes can watch for
// changes instead of polling.
type StateRepository struct {
	db         *badger.DB
	log        *slog.Logger
	markerPath string
}

func NewStateRepository(db *badger.DB, log *slog.Logger, markerPath string) StateRepository {
	return StateRepository{db: db, log: log, markerPath: markerPath}
}

const participantPrefix = "user:"

// messageKey formats keys as "msg:{room}:{timestamp_padded}:{uuid}" to:
//  1. Ensure chronological sorting using 19-digit zero padding
//     (lexicographical order).
//  2. Prevent data loss by using the message UUID as a collision
//     disconnector if two messages arrive at the same nanosecond.
//
// Writing the same message twice lands on the same key, so persistence of
// at-least-once deliveries stays idempotent.
func messageKey(m DiskMessage) []byte {
	return []byte(fmt.Sprintf("msg:%s:%019d:%s", m.Room, m.At.UnixNano(), m.ID))
}

// ReplaceParticipants rewrites the persisted membership with the given one.
// The registry holds at most two entries, a full rewrite is cheaper than
// diffing.
func (s StateRepository) ReplaceParticipants(participants []domain.Participant) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		prefix := []byte(participantPrefix)
		var stale [][]byte
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			stale = append(stale, it.Item().KeyCopy(nil))
		}
		it.Close()
		for _, key := range stale {
			if err := txn.Delete(key); err != nil {
				return err
			}
		}
		for _, p := range participants {
			bytes, err := json.Marshal(DiskParticipant{ID: p.ID, Username: p.Username})
			if err != nil {
				return err
			}
			if err = txn.Set([]byte(participantPrefix+p.Username), bytes); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.touchMarker()
	return nil
}

func (s StateRepository) ListParticipants() ([]domain.Participant, error) {
	var disk []DiskParticipant
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		prefix := []byte(participantPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(value []byte) error {
				var p DiskParticipant
				if err := json.Unmarshal(value, &p); err != nil {
					return err
				}
				disk = append(disk, p)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return lo.Map(disk, func(p DiskParticipant, _ int) domain.Participant {
		return domain.Participant{ID: p.ID, Username: p.Username}
	}), nil
}

// StoreMessages upserts the given messages. Keys are deterministic, so
// persisting the same snapshot twice writes nothing new.
func (s StateRepository) StoreMessages(messages []domain.Message) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		for _, m := range messages {
			disk := toDiskMessage(m)
			bytes, err := json.Marshal(disk)
			if err != nil {
				return err
			}
			if err = txn.Set(messageKey(disk), bytes); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.touchMarker()
	return nil
}

// ListMessages returns all persisted messages. Thanks to the padded
// timestamp in the key, iteration order is chronological.
func (s StateRepository) ListMessages() ([]domain.Message, error) {
	var disk []DiskMessage
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		prefix := []byte(fmt.Sprintf("msg:%s:", domain.RoomName))
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(value []byte) error {
				var m DiskMessage
				if err := json.Unmarshal(value, &m); err != nil {
					return err
				}
				disk = append(disk, m)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return lo.Map(disk, func(m DiskMessage, _ int) domain.Message {
		return fromDiskMessage(m)
	}), nil
}

// touchMarker bumps the version marker watched by sibling processes.
// A failed touch only delays them until their next read, so it is logged
// and swallowed.
func (s StateRepository) touchMarker() {
	if s.markerPath == "" {
		return
	}
	payload := []byte(fmt.Sprintf("%d\n", time.Now().UnixNano()))
	tmp := s.markerPath + ".tmp"
	if err := os.WriteFile(tmp, payload, 0o644); err != nil {
		s.log.Warn("Failed to write state marker", "err", err)
		return
	}
	if err := os.Rename(tmp, s.markerPath); err != nil {
		s.log.Warn("Failed to publish state marker", "err", err)
	}
}

func toDiskMessage(m domain.Message) DiskMessage {
	return DiskMessage{
		ID:                  m.ID,
		Room:                domain.RoomName,
		Sender:              m.Sender,
		Bit:                 m.Bit,
		At:                  m.At.UTC(),
		TeleportationResult: m.TeleportationResult,
	}
}

func fromDiskMessage(m DiskMessage) domain.Message {
	return domain.Message{
		ID:                  m.ID,
		Sender:              m.Sender,
		Bit:                 m.Bit,
		At:                  m.At,
		TeleportationResult: m.TeleportationResult,
	}
}
