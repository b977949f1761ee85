package runtime

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"entangleme/contract"
	"entangleme/domain"
	"entangleme/domain/event"
	"entangleme/errors"
	"entangleme/observability"
	"entangleme/runtime/workers"

	"github.com/google/uuid"
)

type State string

const (
	StateIdle    State = "idle"
	StateJoining State = "joining"
	StateWaiting State = "waiting"
	StateReady   State = "ready"
)

// Cadences holds the two poll intervals. Presence is coarser than messages:
// it runs for the whole session, while message polling only exists in the
// ready state.
type Cadences struct {
	Presence time.Duration
	Message  time.Duration
}

// JoinResult mirrors what the original join call reports to its caller.
type JoinResult struct {
	Status        domain.RoomStatus
	OtherUsername string
}

// session is one join's worth of scheduler state. A new join always
// replaces it wholesale: the generation counter is the authoritative token,
// and every timer callback or notification handler re-checks it before
// acting, so a superseded session can never mutate current state.
type session struct {
	generation     uint64
	participant    domain.Participant
	roomID         string
	ctx            context.Context
	cancel         context.CancelFunc
	cancelMessages context.CancelFunc
	unsubscribes   []func()
}

// Scheduler orchestrates when remote and shared state get re-checked.
// In local fan-out mode mutations are observed through the notifier bus; in
// remote mode the pollers substitute for the missing push channel by
// feeding the local registry and log mirrors, whose change notifications
// then drive the exact same transition handlers.
//
// Within one client, log reads are linearizable relative to that client's
// own appends. Across clients there is no global message order: the log is
// an eventually consistent replicated append set, an accepted property of
// the two-party design.
type Scheduler struct {
	mu  sync.Mutex
	log *slog.Logger

	cadences Cadences
	registry *Registry
	messages *MessageLog
	notifier contract.Notifier
	sup      contract.ISupervisor
	consumer contract.Consumer
	stats    *observability.SyncStats

	// Remote collaborators; all nil in local fan-out mode.
	directory  contract.RoomDirectory
	store      contract.MessageStore
	teleporter contract.Teleporter

	generation uint64
	state      State
	session    *session
}

func NewScheduler(
	log *slog.Logger,
	cadences Cadences,
	registry *Registry,
	messages *MessageLog,
	notifier contract.Notifier,
	sup contract.ISupervisor,
	consumer contract.Consumer,
	stats *observability.SyncStats,
) *Scheduler {
	return &Scheduler{
		log:      log,
		cadences: cadences,
		registry: registry,
		messages: messages,
		notifier: notifier,
		sup:      sup,
		consumer: consumer,
		stats:    stats,
		state:    StateIdle,
	}
}

// WithRemote switches the scheduler to remote mode: membership and messages
// live behind the directory and store, observed by polling.
func (s *Scheduler) WithRemote(directory contract.RoomDirectory, store contract.MessageStore) *Scheduler {
	s.directory = directory
	s.store = store
	return s
}

// WithTeleporter attaches the quantum collaborator. Without one, messages
// carry no teleportation result.
func (s *Scheduler) WithTeleporter(teleporter contract.Teleporter) *Scheduler {
	s.teleporter = teleporter
	return s
}

func (s *Scheduler) remote() bool {
	return s.directory != nil && s.store != nil
}

// State returns the current scheduler state.
func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Join starts a new session for the given username. Any previous session is
// force-stopped first, so re-invoking join can never leak orphaned pollers
// across identity changes. Registration errors abort this join attempt only
// and are surfaced to the caller; the scheduler returns to idle.
func (s *Scheduler) Join(ctx context.Context, username string) (JoinResult, error) {
	s.mu.Lock()
	s.stopLocked()
	s.generation++
	gen := s.generation
	s.state = StateJoining
	s.mu.Unlock()

	participant, roomID, err := s.register(ctx, username)
	if err != nil {
		s.mu.Lock()
		if gen == s.generation {
			s.state = StateIdle
		}
		s.mu.Unlock()
		return JoinResult{}, err
	}

	s.mu.Lock()
	if gen != s.generation {
		s.mu.Unlock()
		return JoinResult{}, errors.ErrSessionSuperseded
	}
	sessionCtx, cancel := context.WithCancel(context.Background())
	sess := &session{
		generation:  gen,
		participant: participant,
		roomID:      roomID,
		ctx:         sessionCtx,
		cancel:      cancel,
	}
	sess.unsubscribes = append(sess.unsubscribes,
		s.notifier.Subscribe(event.ParticipantsChanged, func(event.DomainEvent) {
			s.stats.IncrNotifications()
			s.onParticipantsChanged(gen)
		}),
		s.notifier.Subscribe(event.MessagesChanged, func(event.DomainEvent) {
			s.stats.IncrNotifications()
			s.onMessagesChanged(gen)
		}),
	)
	s.session = sess

	status := s.registry.Status()
	if status == domain.StatusReady {
		s.enterReadyLocked(sess)
	} else {
		s.state = StateWaiting
	}
	other, _ := s.registry.Other(username)
	s.mu.Unlock()

	if s.remote() {
		s.sup.Start(sessionCtx, workers.NewPresencePollWorker(
			s.log, s.cadences.Presence, s.presencePoll(gen, roomID), s.stats))
	}

	s.log.Info("Joined room", "username", username, "status", status)
	s.consumer.OnRoomStatus(status, other.Username)
	s.consumer.OnMessages(s.messages.ReadAll())
	return JoinResult{Status: status, OtherUsername: other.Username}, nil
}

// register performs the identity half of a join against whichever backend
// is configured.
func (s *Scheduler) register(ctx context.Context, username string) (domain.Participant, string, error) {
	if !s.remote() {
		participant, err := s.registry.Join(username)
		return participant, domain.RoomName, err
	}

	participant, err := s.directory.CreateOrFetchUser(ctx, username)
	if err != nil {
		return domain.Participant{}, "", err
	}
	roomID, err := s.directory.CreateOrJoinRoom(ctx, domain.RoomName, participant.ID)
	if err != nil {
		return domain.Participant{}, "", err
	}
	listed, err := s.directory.ListParticipants(ctx, roomID)
	if err != nil {
		return domain.Participant{}, "", err
	}
	s.registry.Reconcile(listed)
	return participant, roomID, nil
}

// Leave tears the session down: cancel all timers, unsubscribe, deregister.
// Deregistration is best-effort: a transport failure never blocks local
// cleanup. Leaving while idle is a no-op.
func (s *Scheduler) Leave(ctx context.Context) {
	s.mu.Lock()
	sess := s.session
	s.stopLocked()
	s.state = StateIdle
	s.mu.Unlock()

	if sess == nil {
		return
	}
	s.log.Info("Leaving room", "username", sess.participant.Username)
	if s.remote() {
		if err := s.directory.RemoveParticipant(ctx, sess.roomID, sess.participant.ID); err != nil {
			s.stats.IncrTransportErrors()
			s.log.Warn("Best-effort deregistration failed", "err", err)
		}
		return
	}
	s.registry.Leave(sess.participant.Username)
}

// SendBit teleports and appends one bit. It fails with ErrNotInRoom unless
// the room is ready: a bit needs a receiver on the other side.
func (s *Scheduler) SendBit(ctx context.Context, bit int) (domain.Message, error) {
	if !domain.ValidBit(bit) {
		return domain.Message{}, errors.ErrInvalidBit
	}

	s.mu.Lock()
	if s.state != StateReady || s.session == nil {
		s.mu.Unlock()
		return domain.Message{}, errors.ErrNotInRoom
	}
	gen := s.session.generation
	participant := s.session.participant
	roomID := s.session.roomID
	s.mu.Unlock()

	other, hasOther := s.registry.Other(participant.Username)

	var result domain.TeleportationResult
	if s.teleporter != nil && hasOther {
		var err error
		result, err = s.teleporter.Teleport(ctx, roomID, participant.ID, other.ID, bit)
		if err != nil {
			return domain.Message{}, err
		}
	}

	message := domain.Message{
		ID:                  uuid.New(),
		Sender:              participant.Username,
		Bit:                 bit,
		At:                  time.Now().UTC(),
		TeleportationResult: result,
	}

	if s.remote() {
		if err := s.store.PostMessage(ctx, roomID, message); err != nil {
			return domain.Message{}, err
		}
	}

	s.mu.Lock()
	current := gen == s.generation
	s.mu.Unlock()
	if current {
		if s.remote() {
			s.messages.Merge([]domain.Message{message})
		} else {
			message = s.messages.Append(message)
		}
		s.stats.IncrMessagesAppended()
	}
	return message, nil
}

// Simulate runs a standalone teleportation with no room attached.
func (s *Scheduler) Simulate(ctx context.Context, bit int) (domain.TeleportationResult, error) {
	if !domain.ValidBit(bit) {
		return nil, errors.ErrInvalidBit
	}
	if s.teleporter == nil {
		return nil, errors.ErrNoTeleporter
	}
	return s.teleporter.Simulate(ctx, bit)
}

// Status reports the current room status and peer for the active session.
func (s *Scheduler) Status() (domain.RoomStatus, string) {
	s.mu.Lock()
	sess := s.session
	s.mu.Unlock()
	if sess == nil {
		return domain.StatusWaiting, ""
	}
	other, _ := s.registry.Other(sess.participant.Username)
	return s.registry.Status(), other.Username
}

// onParticipantsChanged recomputes presence on every registry notification:
// no stale-read window longer than one notification cycle.
func (s *Scheduler) onParticipantsChanged(gen uint64) {
	s.mu.Lock()
	if gen != s.generation || s.session == nil {
		s.mu.Unlock()
		return
	}
	sess := s.session
	status := s.registry.Status()
	becameReady := false
	switch {
	case status == domain.StatusReady && s.state != StateReady:
		s.enterReadyLocked(sess)
		becameReady = true
	case status != domain.StatusReady && s.state == StateReady:
		s.exitReadyLocked(sess)
	}
	other, _ := s.registry.Other(sess.participant.Username)
	s.mu.Unlock()

	s.consumer.OnRoomStatus(status, other.Username)
	if becameReady {
		// Eager snapshot so message visibility never waits out a full
		// cadence after the peer arrives.
		s.consumer.OnMessages(s.messages.ReadAll())
	}
}

func (s *Scheduler) onMessagesChanged(gen uint64) {
	s.mu.Lock()
	stale := gen != s.generation || s.session == nil
	s.mu.Unlock()
	if stale {
		return
	}
	s.consumer.OnMessages(s.messages.ReadAll())
}

// enterReadyLocked flips to ready and, in remote mode, starts the message
// poll worker scoped to both the session and the ready period.
func (s *Scheduler) enterReadyLocked(sess *session) {
	s.state = StateReady
	s.log.Info("Room ready, starting message sync")
	if !s.remote() {
		return
	}
	msgCtx, cancel := context.WithCancel(sess.ctx)
	sess.cancelMessages = cancel
	s.sup.Start(msgCtx, workers.NewMessagePollWorker(
		s.log, s.cadences.Message, s.messagePoll(sess.generation, sess.roomID), s.stats))
}

// exitReadyLocked stops message polling; presence polling keeps its own,
// coarser cadence regardless of state.
func (s *Scheduler) exitReadyLocked(sess *session) {
	s.state = StateWaiting
	s.log.Info("Peer left, back to waiting")
	if sess.cancelMessages != nil {
		sess.cancelMessages()
		sess.cancelMessages = nil
	}
}

// stopLocked cancels every timer and subscription of the current session.
// It is idempotent: stopping twice must never panic.
func (s *Scheduler) stopLocked() {
	if s.session == nil {
		return
	}
	if s.session.cancelMessages != nil {
		s.session.cancelMessages()
		s.session.cancelMessages = nil
	}
	s.session.cancel()
	for _, unsubscribe := range s.session.unsubscribes {
		unsubscribe()
	}
	s.session = nil
}

// presencePoll builds the poll closure for one session generation.
func (s *Scheduler) presencePoll(gen uint64, roomID string) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		listed, err := s.directory.ListParticipants(ctx, roomID)
		if err != nil {
			return err
		}
		if !s.currentGeneration(gen) {
			return nil
		}
		s.registry.Reconcile(listed)
		return nil
	}
}

func (s *Scheduler) messagePoll(gen uint64, roomID string) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		fetched, err := s.store.ListMessages(ctx, roomID)
		if err != nil {
			return err
		}
		if !s.currentGeneration(gen) {
			return nil
		}
		s.messages.Merge(fetched)
		return nil
	}
}

func (s *Scheduler) currentGeneration(gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return gen == s.generation
}
