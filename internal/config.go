package internal

import (
	"fmt"
	"time"
)

const (
	ModeLocal  = "local"
	ModeRemote = "remote"
)

type Config struct {
	// Mode selects the change-notification transport: "local" observes an
	// in-process bus plus the on-disk state, "remote" polls the backend.
	Mode string `env:"SYNC_MODE,default=local"`

	PresencePollInterval time.Duration `env:"PRESENCE_POLL_INTERVAL,default=3s"`
	MessagePollInterval  time.Duration `env:"MESSAGE_POLL_INTERVAL,default=2s"`
	HeartbeatInterval    time.Duration `env:"HEARTBEAT_INTERVAL,default=30s"`
	RestartInterval      time.Duration `env:"RESTART_INTERVAL,default=200ms"`

	ServerBaseURL string        `env:"SERVER_BASE_URL,default=http://localhost:8000"`
	HTTPTimeout   time.Duration `env:"HTTP_TIMEOUT,default=5s"`

	BadgerFilepath  string `env:"BADGER_FILEPATH,default=./data/badger"`
	StateMarkerPath string `env:"STATE_MARKER_PATH,default=./data/state.version"`

	LogLevel string `env:"LOG_LEVEL,default=INFO"`
}

func (c Config) Validate() error {
	if c.Mode != ModeLocal && c.Mode != ModeRemote {
		return fmt.Errorf("SYNC_MODE must be %q or %q, got %q", ModeLocal, ModeRemote, c.Mode)
	}
	if c.PresencePollInterval <= 0 || c.MessagePollInterval <= 0 {
		return fmt.Errorf("poll intervals must be positive")
	}
	return nil
}
