package e2e

import (
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// SERVER_BASE_URL points at a running EntangleMe backend. The e2e
	// scenarios are skipped when it is empty.
	ServerBaseURL string `envconfig:"SERVER_BASE_URL"`
	// E2E_COLOURS enables colorized output for better log readability
	Colours bool `envconfig:"E2E_COLOURS" default:"true"`
	// E2E_POLL_TIMEOUT bounds how long a scenario waits on polled state
	PollTimeout string `envconfig:"E2E_POLL_TIMEOUT" default:"15s"`
}

func LoadConfig() (Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	return cfg, err
}
