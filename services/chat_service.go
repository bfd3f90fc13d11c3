// Package services hosts the application layer: request validation,
// optional content moderation, store access and the bot trigger.
package services

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"chat-backend/contract"
	"chat-backend/domain"
	"chat-backend/errors"
	"chat-backend/moderation"
	"chat-backend/store"
)

// ChatService fronts the chat store for both transports (REST and
// WebSocket). It owns the rules that are not pure state concerns:
// enum validation, moderation of outgoing text, and waking the bot on
// human messages.
type ChatService struct {
	log        *slog.Logger
	store      *store.ChatStore
	registry   contract.IRegistry
	dispatcher contract.IBotDispatcher
	moderator  *moderation.Moderator // nil disables moderation
}

func NewChatService(
	log *slog.Logger,
	chatStore *store.ChatStore,
	registry contract.IRegistry,
	dispatcher contract.IBotDispatcher,
	moderator *moderation.Moderator,
) *ChatService {
	return &ChatService{
		log:        log,
		store:      chatStore,
		registry:   registry,
		dispatcher: dispatcher,
		moderator:  moderator,
	}
}

func (s *ChatService) CreateChat(ctx context.Context, participants []string) (*domain.Chat, error) {
	return s.store.CreateChat(ctx, participants)
}

func (s *ChatService) ListChats(_ context.Context) []domain.ChatSummary {
	return s.store.ListChats()
}

func (s *ChatService) GetMessages(ctx context.Context, chatID string) ([]domain.Message, error) {
	return s.store.GetMessages(ctx, chatID)
}

// SendMessage validates, moderates, stores, and finally wakes the bot.
// The bot only reacts to humans: a message sent under its own identity
// never re-triggers it.
func (s *ChatService) SendMessage(ctx context.Context, chatID, senderID string, kind domain.MessageKind, content string) (*domain.Message, error) {
	if senderID == "" {
		return nil, errors.NewValidation("sender id must not be empty")
	}
	if !kind.Valid() {
		return nil, errors.NewValidation("invalid message kind %q", kind)
	}

	// 1. Moderate human text before it reaches the log
	if s.moderator != nil && kind == domain.KindText && senderID != domain.BotUserID {
		censored, words := s.moderator.Censor(content)
		if len(words) > 0 {
			s.log.Info("Censored outgoing message",
				"chat_id", chatID, "sender_id", senderID,
				"matches", len(words), "lang", moderation.Language(content))
			content = censored
		}
	}

	// 2. Append. The store rejects unknown chats and non-participants.
	msg, err := s.store.AppendMessage(ctx, chatID, senderID, kind, content)
	if err != nil {
		return nil, err
	}

	// 3. Wake the bot, humans only
	if senderID != domain.BotUserID {
		s.dispatcher.Trigger(chatID)
	}
	return msg, nil
}

func (s *ChatService) UpdatePresence(ctx context.Context, chatID, userID string, status domain.PresenceStatus) (*domain.Presence, error) {
	if !status.Valid() {
		return nil, errors.NewValidation("invalid presence status %q", status)
	}
	return s.store.SetPresence(ctx, chatID, userID, status)
}

func (s *ChatService) GetPresence(ctx context.Context, chatID string) ([]domain.ParticipantPresence, error) {
	return s.store.GetPresence(ctx, chatID)
}

func (s *ChatService) MarkRead(ctx context.Context, chatID, userID string) (*uuid.UUID, error) {
	return s.store.MarkRead(ctx, chatID, userID)
}

func (s *ChatService) GetReadReceipts(ctx context.Context, chatID string) (map[string]*uuid.UUID, error) {
	return s.store.GetReadReceipts(ctx, chatID)
}

// Subscribe attaches a live connection to a chat's event stream. The
// chat must exist; everything after that is the registry's business.
func (s *ChatService) Subscribe(chatID string, sink contract.EventSink) error {
	if !s.store.Exists(chatID) {
		return errors.NewNotFound("chat %s not found", chatID)
	}
	s.registry.Subscribe(chatID, sink)
	return nil
}

func (s *ChatService) Unsubscribe(chatID string, sink contract.EventSink) {
	s.registry.Unsubscribe(chatID, sink)
}
