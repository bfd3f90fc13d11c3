package main

import (
	"fmt"
	"time"
)

type Config struct {
	Host      string `env:"HOST,default=localhost"`
	Port      int    `env:"PORT,default=8080"`
	DebugPort int    `env:"DEBUG_PORT,default=8081"`
	LogLevel  string `env:"LOG_LEVEL,default=INFO"`

	// Per-connection event buffer; a subscriber lagging behind this
	// many frames is dropped.
	SinkBufferSize int `env:"SINK_BUFFER_SIZE,default=64"`

	BotQueueSize int           `env:"BOT_QUEUE_SIZE,default=64"`
	BotMinDelay  time.Duration `env:"BOT_MIN_DELAY,default=2s"`
	BotMaxDelay  time.Duration `env:"BOT_MAX_DELAY,default=4s"`

	RestartInterval   time.Duration `env:"RESTART_INTERVAL,default=200ms"`
	TelemetryInterval time.Duration `env:"TELEMETRY_INTERVAL,default=30s"`
	ShutdownTimeout   time.Duration `env:"SHUTDOWN_TIMEOUT,default=10s"`

	ModerationEnabled         bool   `env:"MODERATION_ENABLED,default=false"`
	ModerationCharReplacement string `env:"MODERATION_CHARACTER_REPLACEMENT,default=*"`
}

func CharacterRune(str string) (rune, error) {
	r := []rune(str)
	if len(r) != 1 {
		return 0, fmt.Errorf(
			"MODERATION_CHARACTER_REPLACEMENT must be a single character, got %q",
			str,
		)
	}
	return r[0], nil
}
