package domain

import (
	"entangleme/errors"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

// Capacity is the fixed number of slots in a room.
const Capacity = 2

// RoomName is the single well-known room. The room has no independent
// lifecycle: it exists implicitly from the first join onward.
const RoomName = "entangleme"

type RoomStatus string

const (
	StatusWaiting RoomStatus = "waiting"
	StatusReady   RoomStatus = "ready"
)

// Room holds the ordered set of participants for the two-party session.
// It is a plain data structure: concurrency control belongs to its owner.
type Room struct {
	Name         string
	participants []Participant
}

func NewRoom() *Room {
	return &Room{Name: RoomName}
}

// Add registers a username in the room. Re-joining with an already present
// username is idempotent and returns the existing participant. Username
// matching is case-sensitive exact match.
func (r *Room) Add(username string) (Participant, error) {
	for _, p := range r.participants {
		if p.Username == username {
			return p, nil
		}
	}
	if len(r.participants) >= Capacity {
		return Participant{}, errors.ErrRoomFull
	}
	p := Participant{ID: uuid.New(), Username: username}
	r.participants = append(r.participants, p)
	return p, nil
}

// Remove drops the participant matching the given username or identifier.
// Removing an absent participant is a no-op.
func (r *Room) Remove(usernameOrID string) bool {
	for i, p := range r.participants {
		if p.Username == usernameOrID || p.ID.String() == usernameOrID {
			r.participants = append(r.participants[:i], r.participants[i+1:]...)
			return true
		}
	}
	return false
}

func (r *Room) Count() int {
	return len(r.participants)
}

// Status is a pure derivation: ready iff both slots are occupied.
func (r *Room) Status() RoomStatus {
	if len(r.participants) == Capacity {
		return StatusReady
	}
	return StatusWaiting
}

// Other returns the participant that is not the given username, if any.
func (r *Room) Other(username string) (Participant, bool) {
	for _, p := range r.participants {
		if p.Username != username {
			return p, true
		}
	}
	return Participant{}, false
}

// Participants returns a copy of the ordered participant set.
func (r *Room) Participants() []Participant {
	return lo.Map(r.participants, func(p Participant, _ int) Participant {
		return p
	})
}

// Replace swaps the whole membership for the given one, preserving order.
// Used to reconcile the local mirror against a remote listing.
func (r *Room) Replace(participants []Participant) {
	if len(participants) > Capacity {
		participants = participants[:Capacity]
	}
	r.participants = lo.Map(participants, func(p Participant, _ int) Participant {
		return p
	})
}
