package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"entangleme/domain"
	"entangleme/domain/event"
	"entangleme/internal"
	"entangleme/notifier"
	"entangleme/repositories"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/gookit/color"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
	"github.com/olekukonko/tablewriter"
)

// The viewer is a read-only sibling process: it opens the store without the
// write lock and re-renders whenever the owner touches the state marker,
// instead of polling on a timer.
func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load config
	_ = godotenv.Load()
	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	// 2. Open Badger in read-only mode.
	// BypassLockGuard allows opening while the session client holds the lock.
	db, err := badger.Open(badger.DefaultOptions(config.BadgerFilepath).
		WithReadOnly(true).
		WithBypassLockGuard(true).
		WithLoggingLevel(badger.WARNING))
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		_ = db.Close()
	}()

	repository := repositories.NewStateRepository(db, log, "")

	// 3. Watch the state marker
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	watcher, err := notifier.NewFileWatcher(config.StateMarkerPath, log)
	if err != nil {
		return fmt.Errorf("marker watch failed: %w", err)
	}
	// Participants and messages are re-read together on each render: one
	// subscription per marker touch is enough.
	watcher.Subscribe(event.ParticipantsChanged, func(event.DomainEvent) {
		render(repository)
	})
	go func() {
		_ = watcher.Run(ctx)
	}()

	render(repository)
	<-ctx.Done()
	return nil
}

func render(repository repositories.StateRepository) {
	participants, err := repository.ListParticipants()
	if err != nil {
		color.Red.Printf("cannot read participants: %v\n", err)
		return
	}
	messages, err := repository.ListMessages()
	if err != nil {
		color.Red.Printf("cannot read messages: %v\n", err)
		return
	}

	status := domain.StatusWaiting
	if len(participants) == domain.Capacity {
		status = domain.StatusReady
	}
	color.Cyan.Printf("\nroom %q [%s]\n", domain.RoomName, status)

	roster := tablewriter.NewWriter(os.Stdout)
	roster.SetHeader([]string{"Username", "ID"})
	for _, p := range participants {
		roster.Append([]string{p.Username, p.ID.String()})
	}
	roster.Render()

	history := tablewriter.NewWriter(os.Stdout)
	history.SetHeader([]string{"At", "Sender", "Bit", "Teleported"})
	for _, m := range messages {
		teleported := ""
		if len(m.TeleportationResult) > 0 {
			teleported = "yes"
		}
		history.Append([]string{
			m.At.Format("15:04:05"),
			m.Sender,
			fmt.Sprintf("%d", m.Bit),
			teleported,
		})
	}
	history.Render()
}
