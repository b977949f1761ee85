package e2e

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"entangleme/domain"
	"entangleme/infrastructure/rest"
	"entangleme/notifier"
	"entangleme/observability"
	"entangleme/runtime"
	"entangleme/runtime/workers"

	"github.com/gookit/color"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/suite"
)

type BaseRestSuite struct {
	suite.Suite
	Config      Config
	PollTimeout time.Duration
}

// SetupSuite loads the environment configuration before running tests.
// Scenarios need a live backend, so the whole suite is skipped when no
// SERVER_BASE_URL is configured.
func (s *BaseRestSuite) SetupSuite() {
	var err error
	s.Config, err = LoadConfig()
	s.Require().NoError(err)

	if s.Config.ServerBaseURL == "" {
		s.T().Skip("SERVER_BASE_URL not set, skipping e2e scenarios")
	}

	s.PollTimeout, err = time.ParseDuration(s.Config.PollTimeout)
	s.Require().NoError(err)
}

// Step prints a colorized header delimiting one scenario step in logs
func (s *BaseRestSuite) Step(name string) {
	header := fmt.Sprintf("  ====== %s ======", name)
	if s.Config.Colours {
		header = color.New(color.BgBlack, color.FgGreen).Render(header)
	}
	s.T().Log(header)
}

// sessionObserver records everything one client's scheduler pushes at it.
type sessionObserver struct {
	mu       sync.Mutex
	statuses []domain.RoomStatus
	others   []string
	messages []domain.Message
}

func (o *sessionObserver) OnRoomStatus(status domain.RoomStatus, otherUsername string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.statuses = append(o.statuses, status)
	o.others = append(o.others, otherUsername)
}

func (o *sessionObserver) OnMessages(messages []domain.Message) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.messages = messages
}

func (o *sessionObserver) currentStatus() (domain.RoomStatus, string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if len(o.statuses) == 0 {
		return domain.StatusWaiting, ""
	}
	return o.statuses[len(o.statuses)-1], o.others[len(o.others)-1]
}

func (o *sessionObserver) currentMessages() []domain.Message {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]domain.Message(nil), o.messages...)
}

// sessionClient bundles one simulated device: its own scheduler, mirrors
// and observer, all polling the shared backend.
type sessionClient struct {
	Scheduler *runtime.Scheduler
	Observer  *sessionObserver
}

// NewSessionClient builds a fully wired remote-mode client against the
// configured backend, with cadences shortened for test turnaround.
func (s *BaseRestSuite) NewSessionClient(name string) *sessionClient {
	log := logs.GetLoggerFromLevel(slog.LevelWarn).With("client", name)
	bus := notifier.NewBus(log)
	observer := &sessionObserver{}
	client := rest.NewClient(s.Config.ServerBaseURL, 5*time.Second, log)

	scheduler := runtime.NewScheduler(log,
		runtime.Cadences{Presence: 500 * time.Millisecond, Message: 300 * time.Millisecond},
		runtime.NewRegistry(log, bus),
		runtime.NewMessageLog(log, bus),
		bus,
		workers.NewSupervisor(log, 100*time.Millisecond),
		observer,
		observability.NewSyncStats()).
		WithRemote(client, client).
		WithTeleporter(client)

	return &sessionClient{Scheduler: scheduler, Observer: observer}
}
