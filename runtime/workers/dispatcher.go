package workers

import (
	"context"
	"log/slog"
	"sync"

	"chat-backend/contract"
	"chat-backend/observability"
)

const defaultQueueSize = 64

// BotDispatcher decouples message ingestion from bot activations. The
// request path enqueues a chat ID and returns immediately; the
// dispatcher drains the queue and runs each activation in its own
// goroutine, so one slow conversation never delays another.
type BotDispatcher struct {
	log     *slog.Logger
	agent   contract.IBotAgent
	metrics *observability.Metrics
	queue   chan string
	wg      sync.WaitGroup
}

func NewBotDispatcher(log *slog.Logger, agent contract.IBotAgent, metrics *observability.Metrics, queueSize int) *BotDispatcher {
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	return &BotDispatcher{
		log:     log,
		agent:   agent,
		metrics: metrics,
		queue:   make(chan string, queueSize),
	}
}

// Trigger requests a bot activation for the chat. It never blocks the
// caller: when the queue is full the activation is dropped with a
// warning. Bot trouble must never surface to the sender.
func (d *BotDispatcher) Trigger(chatID string) {
	select {
	case d.queue <- chatID:
	default:
		d.log.Warn("Bot queue full, dropping activation", "chat_id", chatID)
	}
}

// Run drains the queue until the context is canceled, then waits for
// in-flight activations to wind down.
func (d *BotDispatcher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			d.wg.Wait()
			return nil
		case chatID := <-d.queue:
			d.wg.Add(1)
			d.metrics.BotActivationStarted()
			go d.activate(ctx, chatID)
		}
	}
}

// activate shields the dispatcher loop from the agent: errors are
// logged and swallowed, and a panic never takes the worker down.
func (d *BotDispatcher) activate(ctx context.Context, chatID string) {
	defer d.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			d.metrics.BotActivationFailed()
			d.log.Error("Bot activation panicked", "chat_id", chatID, "panic", r)
		}
	}()

	if err := d.agent.Activate(ctx, chatID); err != nil {
		d.metrics.BotActivationFailed()
		d.log.Warn("Bot activation failed", "chat_id", chatID, "error", err)
	}
}
