// Package domain contains core concepts of the two-party session.
// This file defines Participant entities and related invariants.
// No runtime, network, or UI logic should be added here.
package domain

import "github.com/google/uuid"

// Participant occupies one of the room's two slots.
// Username is the externally visible identity, unique within a room.
type Participant struct {
	ID       uuid.UUID
	Username string
}
