// Package store holds the authoritative in-memory chat state.
// Each chat record carries its own lock: mutations on one chat are
// serialized, chats never contend with each other, and every mutation
// publishes its event before the lock is released so subscribers
// observe events in exact mutation order.
package store

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/samber/lo"

	"chat-backend/contract"
	"chat-backend/domain"
	"chat-backend/domain/event"
	"chat-backend/errors"
	"chat-backend/observability"
)

type chatRecord struct {
	mu   sync.Mutex
	chat domain.Chat
}

// ChatStore is the process-wide registry of all chats.
type ChatStore struct {
	log         *slog.Logger
	clock       clockwork.Clock
	broadcaster contract.IBroadcaster
	metrics     *observability.Metrics

	mu    sync.RWMutex // guards the index only, never a chat's content
	chats map[string]*chatRecord
}

// NewChatStore wires the store to its collaborators. The broadcaster
// and metrics may be nil; state-only tests run without them.
func NewChatStore(log *slog.Logger, clock clockwork.Clock, broadcaster contract.IBroadcaster, metrics *observability.Metrics) *ChatStore {
	return &ChatStore{
		log:         log,
		clock:       clock,
		broadcaster: broadcaster,
		metrics:     metrics,
		chats:       make(map[string]*chatRecord),
	}
}

// CreateChat registers a new conversation for the given human
// participants. The bot is appended automatically, read receipts start
// empty for every human, and everyone starts offline at creation time.
func (s *ChatStore) CreateChat(_ context.Context, participants []string) (*domain.Chat, error) {
	if len(participants) == 0 {
		return nil, errors.NewValidation("participants must not be empty")
	}
	seen := make(map[string]struct{}, len(participants))
	for _, p := range participants {
		if p == "" {
			return nil, errors.NewValidation("participant id must not be empty")
		}
		if p == domain.BotUserID {
			return nil, errors.NewValidation("%q is reserved for the bot", domain.BotUserID)
		}
		if _, dup := seen[p]; dup {
			return nil, errors.NewValidation("duplicate participant %q", p)
		}
		seen[p] = struct{}{}
	}

	now := s.clock.Now().UTC()
	chat := domain.Chat{
		ID:           uuid.NewString(),
		Participants: append(append([]string(nil), participants...), domain.BotUserID),
		ReadReceipts: make(map[string]*uuid.UUID, len(participants)),
		Presence:     make(map[string]domain.Presence, len(participants)+1),
	}
	for _, p := range participants {
		chat.ReadReceipts[p] = nil
	}
	for _, p := range chat.Participants {
		chat.Presence[p] = domain.Presence{Status: domain.StatusOffline, LastSeen: now}
	}

	rec := &chatRecord{chat: chat}

	s.mu.Lock()
	s.chats[chat.ID] = rec
	s.mu.Unlock()

	s.metrics.ChatCreated()
	s.log.Info("Chat created", "chat_id", chat.ID, "participants", participants)

	rec.mu.Lock()
	defer rec.mu.Unlock()
	return rec.snapshot(), nil
}

// ListChats returns a point-in-time view of every chat's membership.
// Order across chats is not significant; a chat's own participant list
// keeps creation order.
func (s *ChatStore) ListChats() []domain.ChatSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return lo.MapToSlice(s.chats, func(id string, rec *chatRecord) domain.ChatSummary {
		rec.mu.Lock()
		defer rec.mu.Unlock()
		return domain.ChatSummary{
			ChatID:       id,
			Participants: append([]string(nil), rec.chat.Participants...),
		}
	})
}

// GetMessages returns the full message log in append order.
func (s *ChatStore) GetMessages(_ context.Context, chatID string) ([]domain.Message, error) {
	rec, err := s.get(chatID)
	if err != nil {
		return nil, err
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	return append([]domain.Message{}, rec.chat.Messages...), nil
}

// AppendMessage is the single mutation point for message history.
// Every message, human or bot, passes through here.
func (s *ChatStore) AppendMessage(ctx context.Context, chatID, senderID string, kind domain.MessageKind, content string) (*domain.Message, error) {
	rec, err := s.get(chatID)
	if err != nil {
		return nil, err
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()

	if !rec.chat.IsParticipant(senderID) {
		return nil, errors.NewForbidden("user %q is not a participant of chat %s", senderID, chatID)
	}

	msg := domain.Message{
		ID:        uuid.New(),
		SenderID:  senderID,
		Kind:      kind,
		Content:   content,
		CreatedAt: s.clock.Now().UTC(),
	}
	rec.chat.Messages = append(rec.chat.Messages, msg)

	origin := observability.OriginHuman
	if senderID == domain.BotUserID {
		origin = observability.OriginBot
	}
	s.metrics.MessageAppended(origin)

	s.publish(ctx, event.MessageReceived{Chat: chatID, Message: msg})
	return &msg, nil
}

// SetPresence applies a presence transition. Going offline stamps
// LastSeen with the current time; online and typing preserve it.
func (s *ChatStore) SetPresence(ctx context.Context, chatID, userID string, status domain.PresenceStatus) (*domain.Presence, error) {
	rec, err := s.get(chatID)
	if err != nil {
		return nil, err
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()

	if !rec.chat.IsParticipant(userID) {
		return nil, errors.NewForbidden("user %q is not a participant of chat %s", userID, chatID)
	}

	updated := domain.Presence{Status: status, LastSeen: rec.chat.Presence[userID].LastSeen}
	if status == domain.StatusOffline {
		updated.LastSeen = s.clock.Now().UTC()
	}
	rec.chat.Presence[userID] = updated

	s.publish(ctx, event.PresenceUpdated{
		Chat:     chatID,
		UserID:   userID,
		Status:   status,
		LastSeen: updated.LastSeen,
	})

	result := updated
	return &result, nil
}

// GetPresence returns one record per participant, in participant order.
func (s *ChatStore) GetPresence(_ context.Context, chatID string) ([]domain.ParticipantPresence, error) {
	rec, err := s.get(chatID)
	if err != nil {
		return nil, err
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()

	out := make([]domain.ParticipantPresence, 0, len(rec.chat.Participants))
	for _, p := range rec.chat.Participants {
		presence := rec.chat.Presence[p]
		out = append(out, domain.ParticipantPresence{
			UserID:   p,
			Status:   presence.Status,
			LastSeen: presence.LastSeen,
		})
	}
	return out, nil
}

// MarkRead pins the user's receipt to the current last message, or to
// nil when the log is empty. It always jumps to "now", never backward.
// The bot marks chats read too; its receipt key appears on first use.
func (s *ChatStore) MarkRead(ctx context.Context, chatID, userID string) (*uuid.UUID, error) {
	rec, err := s.get(chatID)
	if err != nil {
		return nil, err
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()

	if !rec.chat.IsParticipant(userID) {
		return nil, errors.NewForbidden("user %q is not a participant of chat %s", userID, chatID)
	}

	last := rec.chat.LastMessageID()
	rec.chat.ReadReceipts[userID] = cloneID(last)

	s.publish(ctx, event.ChatRead{
		Chat:              chatID,
		UserID:            userID,
		LastReadMessageID: cloneID(last),
	})
	return cloneID(last), nil
}

// GetReadReceipts returns a detached copy of the receipt map.
func (s *ChatStore) GetReadReceipts(_ context.Context, chatID string) (map[string]*uuid.UUID, error) {
	rec, err := s.get(chatID)
	if err != nil {
		return nil, err
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()

	out := make(map[string]*uuid.UUID, len(rec.chat.ReadReceipts))
	for user, id := range rec.chat.ReadReceipts {
		out[user] = cloneID(id)
	}
	return out, nil
}

// Exists reports whether the chat is known, without touching its state.
func (s *ChatStore) Exists(chatID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.chats[chatID]
	return ok
}

// ChatCount is used by telemetry and the inspect page.
func (s *ChatStore) ChatCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.chats)
}

// MessageCount sums the message logs of every chat.
func (s *ChatStore) MessageCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	total := 0
	for _, rec := range s.chats {
		rec.mu.Lock()
		total += len(rec.chat.Messages)
		rec.mu.Unlock()
	}
	return total
}

// ChatOverview is one inspect dashboard row.
type ChatOverview struct {
	ChatID       string
	Participants []string
	Messages     int
	Online       int
	LastActivity time.Time
}

// Overview snapshots every chat for the inspect page, ordered by chat ID
// so the dashboard is stable between refreshes.
func (s *ChatStore) Overview() []ChatOverview {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows := lo.MapToSlice(s.chats, func(id string, rec *chatRecord) ChatOverview {
		rec.mu.Lock()
		defer rec.mu.Unlock()

		row := ChatOverview{
			ChatID:       id,
			Participants: append([]string(nil), rec.chat.Participants...),
			Messages:     len(rec.chat.Messages),
		}
		for _, p := range rec.chat.Presence {
			if p.Status != domain.StatusOffline {
				row.Online++
			}
		}
		if n := len(rec.chat.Messages); n > 0 {
			row.LastActivity = rec.chat.Messages[n-1].CreatedAt
		}
		return row
	})

	sort.Slice(rows, func(i, j int) bool { return rows[i].ChatID < rows[j].ChatID })
	return rows
}

func (s *ChatStore) get(chatID string) (*chatRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.chats[chatID]
	if !ok {
		return nil, errors.NewNotFound("chat %s not found", chatID)
	}
	return rec, nil
}

// publish runs while the caller still holds the chat lock, pairing the
// mutation with its event. Sinks are non-blocking by contract, so the
// lock hold time stays bounded.
func (s *ChatStore) publish(ctx context.Context, evt event.DomainEvent) {
	if s.broadcaster == nil {
		return
	}
	s.broadcaster.Publish(ctx, evt)
}

// snapshot must be called with the record lock held.
func (r *chatRecord) snapshot() *domain.Chat {
	c := &domain.Chat{
		ID:           r.chat.ID,
		Participants: append([]string(nil), r.chat.Participants...),
		Messages:     append([]domain.Message(nil), r.chat.Messages...),
		ReadReceipts: make(map[string]*uuid.UUID, len(r.chat.ReadReceipts)),
		Presence:     make(map[string]domain.Presence, len(r.chat.Presence)),
	}
	for user, id := range r.chat.ReadReceipts {
		c.ReadReceipts[user] = cloneID(id)
	}
	for user, p := range r.chat.Presence {
		c.Presence[user] = p
	}
	return c
}

func cloneID(id *uuid.UUID) *uuid.UUID {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}
