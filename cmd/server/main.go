package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Netflix/go-env"
	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	"github.com/mama165/sdk-go/logs"

	"chat-backend/bot"
	http2 "chat-backend/infrastructure/http"
	"chat-backend/internal"
	"chat-backend/moderation"
	"chat-backend/observability"
	"chat-backend/runtime"
	"chat-backend/runtime/workers"
	"chat-backend/services"
	"chat-backend/store"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run initializes all components, manages the server lifecycle, and centralizes error reporting.
// This pattern is preferred over calling os.Exit or panic directly because:
// 1. It ensures all 'defer' statements are executed before the program exits.
// 2. It improves testability by decoupling the initialization logic from the main entry point.
// 3. It provides a structured way to handle graceful shutdowns for HTTP and background workers.
func run() error {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	// 2. Core state: registry, broadcaster, store
	metrics := observability.NewMetrics()
	registry := runtime.NewRegistry()
	broadcaster := runtime.NewBroadcaster(log, registry, metrics)
	clock := clockwork.NewRealClock()
	chatStore := store.NewChatStore(log, clock, broadcaster, metrics)

	// 3. Optional content moderation
	var moderator *moderation.Moderator
	if config.ModerationEnabled {
		mask, err := CharacterRune(config.ModerationCharReplacement)
		if err != nil {
			return err
		}
		wordlist, err := moderation.LoadWordlist()
		if err != nil {
			return fmt.Errorf("loading wordlist: %w", err)
		}
		moderator, err = moderation.NewModerator(wordlist, mask, log)
		if err != nil {
			return fmt.Errorf("building moderator: %w", err)
		}
		log.Info("Moderation enabled",
			"words", moderator.Words(), "languages", moderator.Languages())
	}

	// 4. Bot pipeline & supervised workers
	agent := bot.NewAgent(log, chatStore, clock, config.BotMinDelay, config.BotMaxDelay)
	dispatcher := workers.NewBotDispatcher(log, agent, metrics, config.BotQueueSize)
	reporter := workers.NewTelemetryReporter(log, config.TelemetryInterval, chatStore, registry, metrics)

	sup := workers.NewSupervisor(log, config.RestartInterval)
	sup.Add(dispatcher, reporter)

	// 5. Transport
	service := services.NewChatService(log, chatStore, registry, dispatcher, moderator)
	handlers := http2.NewHandlers(log, service, metrics, config.SinkBufferSize)
	server := http2.NewServer(log, fmt.Sprintf("%s:%d", config.Host, config.Port), handlers.Routes())

	// 6. Context & Signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	supDone := make(chan struct{})
	go func() {
		sup.Run(ctx)
		close(supDone)
	}()

	internal.StartDebugServer(log, config.DebugPort, chatStore, registry, metrics)

	// Use an error channel to capture Serve() issues
	errChan := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil {
			errChan <- fmt.Errorf("http server error: %w", err)
		}
	}()

	// 7. Wait for Stop or Error
	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
	case err := <-errChan:
		return err
	}

	// 8. Final Cleanup
	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
	defer cancel()
	if err := server.Stop(shutdownCtx); err != nil {
		log.Warn("HTTP shutdown did not finish cleanly", "error", err)
	}
	sup.Stop()
	<-supDone
	log.Info("Program stopped cleanly")

	return nil
}
