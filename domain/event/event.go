package event

import "time"

// Kind identifies what mutated. Events carry no payload: delivery is
// best-effort and may coalesce, so consumers must always re-fetch the full
// current state instead of trusting deltas.
type Kind string

const (
	ParticipantsChanged Kind = "participantsChanged"
	MessagesChanged     Kind = "messagesChanged"
)

type DomainEvent interface {
	Kind() Kind
}

// ParticipantsUpdated signals a registry mutation.
type ParticipantsUpdated struct {
	At time.Time
}

func (ParticipantsUpdated) Kind() Kind { return ParticipantsChanged }

// MessagesUpdated signals a message log mutation.
type MessagesUpdated struct {
	At time.Time
}

func (MessagesUpdated) Kind() Kind { return MessagesChanged }
