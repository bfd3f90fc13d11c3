// Package bot simulates the automated interlocutor. Every chat has it
// as a member; each human message wakes it up for one scripted
// activation: come online, read, type, reply one to three times, then
// leave. Delays between steps are randomized so the conversation feels
// paced rather than instantaneous.
package bot

import (
	"context"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"chat-backend/domain"
)

// Store is the slice of the chat store the agent mutates. All bot
// activity flows through the same mutation points as human traffic, so
//(events included) the bot is indistinguishable from a participant.
type Store interface {
	SetPresence(ctx context.Context, chatID, userID string, status domain.PresenceStatus) (*domain.Presence, error)
	MarkRead(ctx context.Context, chatID, userID string) (*uuid.UUID, error)
	AppendMessage(ctx context.Context, chatID, senderID string, kind domain.MessageKind, content string) (*domain.Message, error)
}

// Reply is one canned response the agent can pick.
type Reply struct {
	Kind    domain.MessageKind
	Content string
}

// Catalog returns the fixed response pool the agent draws from.
func Catalog() []Reply {
	return []Reply{
		{Kind: domain.KindText, Content: "Interesting..."},
		{Kind: domain.KindText, Content: "Tell me more!"},
		{Kind: domain.KindText, Content: "Got it!"},
		{Kind: domain.KindImage, Content: "http://example.com/image.png"},
		{Kind: domain.KindAudio, Content: "http://example.com/audio.mp3"},
	}
}

// Agent drives one bot activation at a time per call. Concurrent
// activations (one per human message) are safe: shared state is the
// random source, guarded by a mutex, and the store handles its own
// locking.
type Agent struct {
	log      *slog.Logger
	store    Store
	clock    clockwork.Clock
	minDelay time.Duration
	maxDelay time.Duration
	replies  []Reply

	mu  sync.Mutex // guards rng
	rng *rand.Rand
}

// NewAgent builds an agent pausing between minDelay and maxDelay at
// each step of its activation sequence.
func NewAgent(log *slog.Logger, store Store, clock clockwork.Clock, minDelay, maxDelay time.Duration) *Agent {
	if maxDelay < minDelay {
		maxDelay = minDelay
	}
	return &Agent{
		log:      log,
		store:    store,
		clock:    clock,
		minDelay: minDelay,
		maxDelay: maxDelay,
		replies:  Catalog(),
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Activate plays the full response sequence in the given chat. Any
// failed step aborts the rest of the sequence; the caller decides what
// to do with the error (the dispatcher just logs it).
func (a *Agent) Activate(ctx context.Context, chatID string) error {
	a.log.Info("Bot is responding", "chat_id", chatID)

	if err := a.wait(ctx); err != nil {
		return err
	}
	if _, err := a.store.SetPresence(ctx, chatID, domain.BotUserID, domain.StatusOnline); err != nil {
		return err
	}

	if err := a.wait(ctx); err != nil {
		return err
	}
	if _, err := a.store.MarkRead(ctx, chatID, domain.BotUserID); err != nil {
		return err
	}

	if err := a.wait(ctx); err != nil {
		return err
	}
	if _, err := a.store.SetPresence(ctx, chatID, domain.BotUserID, domain.StatusTyping); err != nil {
		return err
	}

	// One to three replies, each preceded by its own pause
	count := a.replyCount()
	for i := 0; i < count; i++ {
		if err := a.wait(ctx); err != nil {
			return err
		}
		reply := a.pick()
		if _, err := a.store.AppendMessage(ctx, chatID, domain.BotUserID, reply.Kind, reply.Content); err != nil {
			return err
		}
		a.log.Debug("Bot replied", "chat_id", chatID, "kind", reply.Kind, "remaining", count-i-1)
	}

	if _, err := a.store.SetPresence(ctx, chatID, domain.BotUserID, domain.StatusOffline); err != nil {
		return err
	}

	a.log.Debug("Bot activation finished", "chat_id", chatID, "replies", count)
	return nil
}

// wait pauses for a random duration in [minDelay, maxDelay], bailing
// out early when the context ends.
func (a *Agent) wait(ctx context.Context) error {
	select {
	case <-a.clock.After(a.randomDelay()):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (a *Agent) randomDelay() time.Duration {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.maxDelay == a.minDelay {
		return a.minDelay
	}
	return a.minDelay + time.Duration(a.rng.Int63n(int64(a.maxDelay-a.minDelay)+1))
}

func (a *Agent) replyCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return 1 + a.rng.Intn(3)
}

func (a *Agent) pick() Reply {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.replies[a.rng.Intn(len(a.replies))]
}
