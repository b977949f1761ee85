// Package domain contains core concepts of the two-party session.
// This file defines Message events and related rules.
// Messages are immutable once appended.
package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// TeleportationResult is the opaque record produced by the quantum
// collaborator. This layer never inspects its shape, it only forwards it.
type TeleportationResult = json.RawMessage

// Message represents one atomically appended bit-exchange event.
type Message struct {
	ID                  uuid.UUID
	Sender              string
	Bit                 int
	At                  time.Time
	TeleportationResult TeleportationResult
}

// ValidBit reports whether b is a classical bit value.
func ValidBit(b int) bool {
	return b == 0 || b == 1
}
