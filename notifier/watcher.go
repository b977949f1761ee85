package notifier

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"entangleme/domain/event"

	"github.com/fsnotify/fsnotify"
)

// FileWatcher turns filesystem events on a version marker file into change
// notifications for sibling processes on the same device. The state
// repository touches the marker after every mutation; watchers cannot tell
// which store mutated, so both event kinds are published on each touch and
// subscribers re-fetch whatever they care about.
type FileWatcher struct {
	bus        *Bus
	log        *slog.Logger
	markerPath string
	watcher    *fsnotify.Watcher
}

func NewFileWatcher(markerPath string, log *slog.Logger) (*FileWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	// Watch the directory, not the file: atomic rename writes replace the
	// inode and a file watch would go stale after the first mutation.
	if err = w.Add(filepath.Dir(markerPath)); err != nil {
		_ = w.Close()
		return nil, err
	}
	return &FileWatcher{
		bus:        NewBus(log),
		log:        log,
		markerPath: filepath.Clean(markerPath),
		watcher:    w,
	}, nil
}

func (f *FileWatcher) Subscribe(kind event.Kind, handler func(event.DomainEvent)) func() {
	return f.bus.Subscribe(kind, handler)
}

func (f *FileWatcher) Publish(e event.DomainEvent) {
	f.bus.Publish(e)
}

// Run pumps marker changes into the bus until the context is canceled.
func (f *FileWatcher) Run(ctx context.Context) error {
	defer func() {
		_ = f.watcher.Close()
	}()
	for {
		select {
		case <-ctx.Done():
			f.log.Debug("Stopping state marker watcher")
			return ctx.Err()
		case evt, ok := <-f.watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(evt.Name) != f.markerPath {
				continue
			}
			if !evt.Has(fsnotify.Write) && !evt.Has(fsnotify.Create) {
				continue
			}
			now := time.Now().UTC()
			f.bus.Publish(event.ParticipantsUpdated{At: now})
			f.bus.Publish(event.MessagesUpdated{At: now})
		case err, ok := <-f.watcher.Errors:
			if !ok {
				return nil
			}
			f.log.Warn("State marker watcher error", "err", err)
		}
	}
}
