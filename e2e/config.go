package e2e

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// SERVER_ADDR points the suite at an already-running backend
	// (host:port). When empty, the suite boots its own server in-process.
	ServerAddr string `envconfig:"SERVER_ADDR"`
	// E2E_COLOURS enables colorized output for better log readability
	Colours bool `envconfig:"E2E_COLOURS" default:"true"`
	// Bot pacing for the self-started server; kept short so a full
	// scripted activation plays out in well under a second.
	BotMinDelay time.Duration `envconfig:"E2E_BOT_MIN_DELAY" default:"10ms"`
	BotMaxDelay time.Duration `envconfig:"E2E_BOT_MAX_DELAY" default:"30ms"`
	// EVENT_TIMEOUT bounds every single wait on the event stream
	EventTimeout time.Duration `envconfig:"E2E_EVENT_TIMEOUT" default:"10s"`
}

func LoadConfig() (Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	return cfg, err
}
