// Package runtime connects the store's event stream to live
// subscribers: the registry tracks who listens to which chat and the
// broadcaster fans each event out to them.
package runtime

import (
	"context"
	"log/slog"

	"chat-backend/contract"
	"chat-backend/domain/event"
	"chat-backend/observability"
)

// Broadcaster fans domain events out to the subscribers of a chat.
type Broadcaster struct {
	log      *slog.Logger
	registry contract.IRegistry
	metrics  *observability.Metrics
}

func NewBroadcaster(log *slog.Logger, registry contract.IRegistry, metrics *observability.Metrics) *Broadcaster {
	return &Broadcaster{
		log:      log,
		registry: registry,
		metrics:  metrics,
	}
}

// Publish serializes the event once and hands the same frame to every
// subscriber of its chat. A sink that refuses the frame is dropped from
// the registry on the spot, so one dead connection never stalls the
// others. Publishers call this synchronously; sinks are non-blocking by
// contract, which keeps the whole fan-out bounded.
func (b *Broadcaster) Publish(ctx context.Context, evt event.DomainEvent) {
	frame, err := event.Encode(evt)
	if err != nil {
		b.log.Error("Failed to encode event", "event", evt.Name(), "chat_id", evt.ChatID(), "error", err)
		return
	}

	pruned := 0
	for _, sink := range b.registry.SinksFor(evt.ChatID()) {
		if err := sink.Consume(ctx, frame); err != nil {
			b.registry.Unsubscribe(evt.ChatID(), sink)
			pruned++
			b.log.Warn("Dropped unresponsive subscriber",
				"event", evt.Name(), "chat_id", evt.ChatID(), "error", err)
		}
	}

	b.metrics.EventPublished(evt.Name())
	if pruned > 0 {
		b.metrics.SinksPruned(pruned)
	}
}
