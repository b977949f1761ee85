// Package runtime owns the mutable session state and its orchestration: the
// identity registry, the message log, and the sync scheduler. It contains no
// transport or UI logic.
package runtime

import (
	"log/slog"
	"sync"
	"time"

	"entangleme/contract"
	"entangleme/domain"
	"entangleme/domain/event"
)

// Registry is the identity registry: it owns the room's participant slots.
// Every successful mutation publishes a ParticipantsUpdated notification
// after the mutation is recorded, outside the lock.
type Registry struct {
	mu       sync.RWMutex
	log      *slog.Logger
	room     *domain.Room
	notifier contract.Notifier
}

func NewRegistry(log *slog.Logger, notifier contract.Notifier) *Registry {
	return &Registry{
		log:      log,
		room:     domain.NewRoom(),
		notifier: notifier,
	}
}

// Join registers a username. Joining with an already present username is
// idempotent and returns the existing participant without publishing.
func (r *Registry) Join(username string) (domain.Participant, error) {
	r.mu.Lock()
	before := r.room.Count()
	p, err := r.room.Add(username)
	after := r.room.Count()
	r.mu.Unlock()

	if err != nil {
		return domain.Participant{}, err
	}
	if after != before {
		r.log.Debug("Participant joined", "username", username, "count", after)
		r.publish()
	}
	return p, nil
}

// Leave removes the participant matching the username or identifier.
// Leaving when absent is a no-op and never fails.
func (r *Registry) Leave(usernameOrID string) {
	r.mu.Lock()
	removed := r.room.Remove(usernameOrID)
	r.mu.Unlock()

	if removed {
		r.log.Debug("Participant left", "participant", usernameOrID)
		r.publish()
	}
}

// Reconcile replaces the membership with a remote listing, substituting for
// join/leave notifications when no push channel exists. It publishes only
// when the membership actually changed.
func (r *Registry) Reconcile(participants []domain.Participant) bool {
	r.mu.Lock()
	changed := !sameMembers(r.room.Participants(), participants)
	if changed {
		r.room.Replace(participants)
	}
	r.mu.Unlock()

	if changed {
		r.log.Debug("Membership reconciled", "count", len(participants))
		r.publish()
	}
	return changed
}

// Seed restores membership from persisted state at startup, without
// publishing: nobody is subscribed yet.
func (r *Registry) Seed(participants []domain.Participant) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.room.Replace(participants)
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.room.Count()
}

func (r *Registry) Status() domain.RoomStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.room.Status()
}

func (r *Registry) Other(username string) (domain.Participant, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.room.Other(username)
}

func (r *Registry) Participants() []domain.Participant {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.room.Participants()
}

func (r *Registry) publish() {
	if r.notifier == nil {
		return
	}
	r.notifier.Publish(event.ParticipantsUpdated{At: time.Now().UTC()})
}

func sameMembers(a, b []domain.Participant) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Username != b[i].Username || a[i].ID != b[i].ID {
			return false
		}
	}
	return true
}
