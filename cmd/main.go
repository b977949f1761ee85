package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"

	"entangleme/domain"
	"entangleme/domain/event"
	"entangleme/infrastructure/rest"
	"entangleme/internal"
	"entangleme/notifier"
	"entangleme/observability"
	"entangleme/repositories"
	"entangleme/runtime"
	"entangleme/runtime/workers"
	"entangleme/services"
	"entangleme/sink"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/gookit/color"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run initializes all components, manages the session lifecycle, and
// centralizes error reporting. This pattern is preferred over calling
// os.Exit or panic directly because it ensures 'defer' statements (like
// database cleanup) execute before the program exits.
func run() error {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	if err := config.Validate(); err != nil {
		return err
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	// 2. Context & Signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Shared session state
	stats := observability.NewSyncStats()
	bus := notifier.NewBus(log)
	registry := runtime.NewRegistry(log, bus)
	messages := runtime.NewMessageLog(log, bus)
	sup := workers.NewSupervisor(log, config.RestartInterval)

	consumer := newTerminalConsumer()
	scheduler := runtime.NewScheduler(log, runtime.Cadences{
		Presence: config.PresencePollInterval,
		Message:  config.MessagePollInterval,
	}, registry, messages, bus, sup, consumer, stats)

	// 4. Mode-specific wiring
	switch config.Mode {
	case internal.ModeRemote:
		client := rest.NewClient(config.ServerBaseURL, config.HTTPTimeout, log)
		scheduler.WithRemote(client, client).WithTeleporter(client)

	case internal.ModeLocal:
		if err := os.MkdirAll(config.BadgerFilepath, 0o755); err != nil {
			return fmt.Errorf("state directory: %w", err)
		}
		if err := os.MkdirAll(filepath.Dir(config.StateMarkerPath), 0o755); err != nil {
			return fmt.Errorf("marker directory: %w", err)
		}
		db, err := badger.Open(badger.DefaultOptions(config.BadgerFilepath).
			WithLoggingLevel(badger.WARNING))
		if err != nil {
			return fmt.Errorf("database opening failed: %w", err)
		}
		defer func() {
			log.Info("Closing BadgerDB...")
			_ = db.Close()
		}()

		repository := repositories.NewStateRepository(db, log, config.StateMarkerPath)
		if err = seed(repository, registry, messages); err != nil {
			return fmt.Errorf("state restore failed: %w", err)
		}

		diskSink := sink.NewDiskSink(repository, registry, messages, log)
		for _, kind := range []event.Kind{event.ParticipantsChanged, event.MessagesChanged} {
			bus.Subscribe(kind, func(e event.DomainEvent) {
				if err := diskSink.Consume(ctx, e); err != nil {
					log.Error("State persistence failed", "err", err)
				}
			})
		}
	}

	// 5. Background workers
	sup.Add(workers.NewHeartbeatWorker(log, config.HeartbeatInterval, stats))
	go sup.Run(ctx)

	service := services.NewSessionService(scheduler, log)

	// 6. Interactive loop
	color.Cyan.Println("EntangleMe session client. Commands: join <name> | send <0|1> | simulate <0|1> | leave | quit")
	repl(ctx, service, consumer)

	// 7. Graceful teardown
	log.Info("Shutting down gracefully...")
	scheduler.Leave(context.Background())
	sup.Stop()
	return nil
}

func seed(repository repositories.StateRepository, registry *runtime.Registry, messages *runtime.MessageLog) error {
	participants, err := repository.ListParticipants()
	if err != nil {
		return err
	}
	persisted, err := repository.ListMessages()
	if err != nil {
		return err
	}
	registry.Seed(participants)
	messages.Seed(persisted)
	return nil
}

func repl(ctx context.Context, service services.ISessionService, consumer *terminalConsumer) {
	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			if quit := handle(ctx, service, consumer, line); quit {
				return
			}
		}
	}
}

func handle(ctx context.Context, service services.ISessionService, consumer *terminalConsumer, line string) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false
	}
	switch fields[0] {
	case "quit", "exit":
		return true
	case "join":
		if len(fields) != 2 {
			color.Red.Println("usage: join <name>")
			return false
		}
		result, err := service.Join(ctx, fields[1])
		if err != nil {
			color.Red.Printf("join failed: %v\n", err)
			return false
		}
		consumer.printStatus(result.Status, result.OtherUsername)
	case "send":
		bit, ok := parseBit(fields)
		if !ok {
			return false
		}
		if _, err := service.SendBit(ctx, bit); err != nil {
			color.Red.Printf("send failed: %v\n", err)
		}
	case "simulate":
		bit, ok := parseBit(fields)
		if !ok {
			return false
		}
		result, err := service.Simulate(ctx, bit)
		if err != nil {
			color.Red.Printf("simulation failed: %v\n", err)
			return false
		}
		color.Magenta.Printf("simulation result: %s\n", string(result))
	case "leave":
		service.Leave(ctx)
		color.Yellow.Println("left the room")
	default:
		color.Red.Printf("unknown command: %s\n", fields[0])
	}
	return false
}

func parseBit(fields []string) (int, bool) {
	if len(fields) != 2 || (fields[1] != "0" && fields[1] != "1") {
		color.Red.Println("usage: " + fields[0] + " <0|1>")
		return 0, false
	}
	if fields[1] == "1" {
		return 1, true
	}
	return 0, true
}

// terminalConsumer renders scheduler snapshots. Snapshots always replace
// the previous view, so duplicate deliveries never duplicate output rows.
type terminalConsumer struct {
	mu sync.Mutex
}

func newTerminalConsumer() *terminalConsumer {
	return &terminalConsumer{}
}

func (c *terminalConsumer) OnRoomStatus(status domain.RoomStatus, otherUsername string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.printStatus(status, otherUsername)
}

func (c *terminalConsumer) printStatus(status domain.RoomStatus, otherUsername string) {
	if status == domain.StatusReady {
		color.Green.Printf("room ready, chatting with %s\n", otherUsername)
		return
	}
	color.Yellow.Println("waiting for a peer to join...")
}

func (c *terminalConsumer) OnMessages(messages []domain.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, m := range messages {
		marker := " "
		if len(m.TeleportationResult) > 0 {
			marker = "*"
		}
		color.Cyan.Printf("[%s] %s -> %d %s\n", m.At.Format("15:04:05"), m.Sender, m.Bit, marker)
	}
}
