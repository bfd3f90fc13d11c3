package services

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"chat-backend/domain"
	"chat-backend/errors"
	"chat-backend/mocks"
	"chat-backend/moderation"
	"chat-backend/store"
)

func newServiceStore(t *testing.T) (*store.ChatStore, *domain.Chat) {
	t.Helper()
	log := logs.GetLoggerFromLevel(slog.LevelError)
	clock := clockwork.NewFakeClockAt(time.Date(2025, time.March, 14, 9, 30, 0, 0, time.UTC))
	chatStore := store.NewChatStore(log, clock, nil, nil)

	chat, err := chatStore.CreateChat(context.Background(), []string{"alice", "bob"})
	require.NoError(t, err)
	return chatStore, chat
}

func TestChatService_SendMessage_TriggersBotForHumansOnly(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelError)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	chatStore, chat := newServiceStore(t)

	// Given a dispatcher expecting exactly one trigger
	dispatcher := mocks.NewMockIBotDispatcher(ctrl)
	dispatcher.EXPECT().Trigger(chat.ID).Times(1)

	service := NewChatService(log, chatStore, mocks.NewMockIRegistry(ctrl), dispatcher, nil)

	// When a human sends a message
	msg, err := service.SendMessage(context.Background(), chat.ID, "alice", domain.KindText, "hello")
	req.NoError(err)
	req.Equal("alice", msg.SenderID)
	req.Equal("hello", msg.Content)

	// And when the bot itself sends one
	_, err = service.SendMessage(context.Background(), chat.ID, domain.BotUserID, domain.KindText, "Got it!")

	// Then no second trigger happened (the mock would have failed)
	req.NoError(err)
}

func TestChatService_SendMessage_RejectsInvalidKind(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelError)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	chatStore, chat := newServiceStore(t)
	service := NewChatService(log, chatStore, mocks.NewMockIRegistry(ctrl), mocks.NewMockIBotDispatcher(ctrl), nil)

	_, err := service.SendMessage(context.Background(), chat.ID, "alice", "video", "clip")
	req.True(errors.IsValidation(err))

	_, err = service.SendMessage(context.Background(), chat.ID, "", domain.KindText, "hello")
	req.True(errors.IsValidation(err))

	// Then nothing was stored
	messages, err := service.GetMessages(context.Background(), chat.ID)
	req.NoError(err)
	req.Empty(messages)
}

func TestChatService_SendMessage_PropagatesStoreErrors(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelError)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	chatStore, chat := newServiceStore(t)
	service := NewChatService(log, chatStore, mocks.NewMockIRegistry(ctrl), mocks.NewMockIBotDispatcher(ctrl), nil)

	_, err := service.SendMessage(context.Background(), "missing", "alice", domain.KindText, "hello")
	req.True(errors.IsNotFound(err))

	_, err = service.SendMessage(context.Background(), chat.ID, "mallory", domain.KindText, "hello")
	req.True(errors.IsForbidden(err))
}

func TestChatService_SendMessage_CensorsHumanText(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelError)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	chatStore, chat := newServiceStore(t)

	moderator, err := moderation.NewModerator(&moderation.Wordlist{Words: []string{"badger"}}, '*', log)
	req.NoError(err)

	dispatcher := mocks.NewMockIBotDispatcher(ctrl)
	dispatcher.EXPECT().Trigger(chat.ID).Times(2)

	service := NewChatService(log, chatStore, mocks.NewMockIRegistry(ctrl), dispatcher, moderator)

	// When a human sends forbidden text
	msg, err := service.SendMessage(context.Background(), chat.ID, "alice", domain.KindText, "what a badger move")
	req.NoError(err)
	req.Equal("what a ****** move", msg.Content)

	// And non-text content goes through untouched
	msg, err = service.SendMessage(context.Background(), chat.ID, "alice", domain.KindImage, "http://badger.example.com/pic.png")
	req.NoError(err)
	req.Equal("http://badger.example.com/pic.png", msg.Content)

	// Then the stored log matches what callers got back
	messages, err := service.GetMessages(context.Background(), chat.ID)
	req.NoError(err)
	req.Equal("what a ****** move", messages[0].Content)
	req.Equal("http://badger.example.com/pic.png", messages[1].Content)
}

func TestChatService_UpdatePresence_RejectsInvalidStatus(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelError)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	chatStore, chat := newServiceStore(t)
	service := NewChatService(log, chatStore, mocks.NewMockIRegistry(ctrl), mocks.NewMockIBotDispatcher(ctrl), nil)

	_, err := service.UpdatePresence(context.Background(), chat.ID, "alice", "away")
	req.True(errors.IsValidation(err))

	presence, err := service.UpdatePresence(context.Background(), chat.ID, "alice", domain.StatusTyping)
	req.NoError(err)
	req.Equal(domain.StatusTyping, presence.Status)
}

func TestChatService_Subscribe_RequiresExistingChat(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelError)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	chatStore, chat := newServiceStore(t)
	sink := mocks.NewMockEventSink(ctrl)

	registry := mocks.NewMockIRegistry(ctrl)
	registry.EXPECT().Subscribe(chat.ID, sink).Times(1)
	registry.EXPECT().Unsubscribe(chat.ID, sink).Times(1)

	service := NewChatService(log, chatStore, registry, mocks.NewMockIBotDispatcher(ctrl), nil)

	// Unknown chats are rejected before touching the registry
	err := service.Subscribe("missing", sink)
	req.True(errors.IsNotFound(err))

	// Known chats reach it
	req.NoError(service.Subscribe(chat.ID, sink))
	service.Unsubscribe(chat.ID, sink)
}
