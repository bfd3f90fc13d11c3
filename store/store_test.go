package store

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"chat-backend/domain"
	"chat-backend/domain/event"
	"chat-backend/errors"
	"chat-backend/mocks"
)

var testStart = time.Date(2025, time.March, 14, 9, 30, 0, 0, time.UTC)

func TestChatStore_CreateChat_AddsBotAndInitialState(t *testing.T) {
	assert := require.New(t)
	logger := logs.GetLoggerFromLevel(slog.LevelError)
	clock := clockwork.NewFakeClockAt(testStart)

	// Given a store without a broadcaster
	s := NewChatStore(logger, clock, nil, nil)

	// When a chat is created for two humans
	chat, err := s.CreateChat(context.Background(), []string{"alice", "bob"})

	// Then the bot joins and everyone starts offline with empty receipts
	assert.NoError(err)
	assert.NotEmpty(chat.ID)
	assert.Equal([]string{"alice", "bob", domain.BotUserID}, chat.Participants)
	assert.Equal(map[string]bool{"alice": true, "bob": true}, keysOf(chat.ReadReceipts))
	assert.Nil(chat.ReadReceipts["alice"])
	assert.Nil(chat.ReadReceipts["bob"])
	for _, p := range chat.Participants {
		assert.Equal(domain.StatusOffline, chat.Presence[p].Status)
		assert.Equal(testStart, chat.Presence[p].LastSeen)
	}
	assert.True(s.Exists(chat.ID))
	assert.Equal(1, s.ChatCount())
}

func TestChatStore_CreateChat_RejectsInvalidParticipants(t *testing.T) {
	logger := logs.GetLoggerFromLevel(slog.LevelError)
	s := NewChatStore(logger, clockwork.NewFakeClockAt(testStart), nil, nil)

	cases := []struct {
		name         string
		participants []string
	}{
		{name: "empty list", participants: nil},
		{name: "duplicate participant", participants: []string{"alice", "alice"}},
		{name: "reserved bot id", participants: []string{"alice", domain.BotUserID}},
		{name: "blank participant", participants: []string{"alice", ""}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := s.CreateChat(context.Background(), tc.participants)
			require.True(t, errors.IsValidation(err))
		})
	}
}

func TestChatStore_AppendMessage_AppendsAndPublishes(t *testing.T) {
	assert := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	logger := logs.GetLoggerFromLevel(slog.LevelError)
	clock := clockwork.NewFakeClockAt(testStart)

	var published []event.DomainEvent
	broadcaster := mocks.NewMockIBroadcaster(ctrl)
	broadcaster.EXPECT().
		Publish(gomock.Any(), gomock.Any()).
		Do(func(_ context.Context, evt event.DomainEvent) {
			published = append(published, evt)
		}).
		AnyTimes()

	// Given an existing chat
	s := NewChatStore(logger, clock, broadcaster, nil)
	chat, err := s.CreateChat(context.Background(), []string{"alice"})
	assert.NoError(err)

	// When alice sends a text message
	clock.Advance(5 * time.Second)
	msg, err := s.AppendMessage(context.Background(), chat.ID, "alice", domain.KindText, "hello")

	// Then the message is stored, stamped, and announced
	assert.NoError(err)
	assert.NotEqual("00000000-0000-0000-0000-000000000000", msg.ID.String())
	assert.Equal("alice", msg.SenderID)
	assert.Equal(domain.KindText, msg.Kind)
	assert.Equal("hello", msg.Content)
	assert.Equal(testStart.Add(5*time.Second), msg.CreatedAt)

	stored, err := s.GetMessages(context.Background(), chat.ID)
	assert.NoError(err)
	assert.Len(stored, 1)
	assert.Equal(*msg, stored[0])

	assert.Len(published, 1)
	received, ok := published[0].(event.MessageReceived)
	assert.True(ok)
	assert.Equal(chat.ID, received.ChatID())
	assert.Equal(msg.ID, received.Message.ID)
}

func TestChatStore_AppendMessage_RejectsUnknownChatAndOutsider(t *testing.T) {
	assert := require.New(t)
	logger := logs.GetLoggerFromLevel(slog.LevelError)
	s := NewChatStore(logger, clockwork.NewFakeClockAt(testStart), nil, nil)

	chat, err := s.CreateChat(context.Background(), []string{"alice"})
	assert.NoError(err)

	_, err = s.AppendMessage(context.Background(), "missing", "alice", domain.KindText, "hi")
	assert.True(errors.IsNotFound(err))

	_, err = s.AppendMessage(context.Background(), chat.ID, "mallory", domain.KindText, "hi")
	assert.True(errors.IsForbidden(err))

	stored, err := s.GetMessages(context.Background(), chat.ID)
	assert.NoError(err)
	assert.Empty(stored)
}

func TestChatStore_SetPresence_OfflineResetsLastSeen(t *testing.T) {
	assert := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	logger := logs.GetLoggerFromLevel(slog.LevelError)
	clock := clockwork.NewFakeClockAt(testStart)

	var published []event.DomainEvent
	broadcaster := mocks.NewMockIBroadcaster(ctrl)
	broadcaster.EXPECT().
		Publish(gomock.Any(), gomock.Any()).
		Do(func(_ context.Context, evt event.DomainEvent) {
			published = append(published, evt)
		}).
		AnyTimes()

	s := NewChatStore(logger, clock, broadcaster, nil)
	chat, err := s.CreateChat(context.Background(), []string{"alice"})
	assert.NoError(err)

	// When alice comes online later, LastSeen keeps its creation value
	clock.Advance(time.Minute)
	online, err := s.SetPresence(context.Background(), chat.ID, "alice", domain.StatusOnline)
	assert.NoError(err)
	assert.Equal(domain.StatusOnline, online.Status)
	assert.Equal(testStart, online.LastSeen)

	// When she goes offline, LastSeen jumps to the current time
	clock.Advance(time.Minute)
	offline, err := s.SetPresence(context.Background(), chat.ID, "alice", domain.StatusOffline)
	assert.NoError(err)
	assert.Equal(domain.StatusOffline, offline.Status)
	assert.Equal(testStart.Add(2*time.Minute), offline.LastSeen)

	// Then both transitions were published with their stored LastSeen
	assert.Len(published, 2)
	first, ok := published[0].(event.PresenceUpdated)
	assert.True(ok)
	assert.Equal(testStart, first.LastSeen)
	second, ok := published[1].(event.PresenceUpdated)
	assert.True(ok)
	assert.Equal(testStart.Add(2*time.Minute), second.LastSeen)

	_, err = s.SetPresence(context.Background(), chat.ID, "mallory", domain.StatusOnline)
	assert.True(errors.IsForbidden(err))
}

func TestChatStore_MarkRead_TracksLastMessage(t *testing.T) {
	assert := require.New(t)
	logger := logs.GetLoggerFromLevel(slog.LevelError)
	s := NewChatStore(logger, clockwork.NewFakeClockAt(testStart), nil, nil)

	chat, err := s.CreateChat(context.Background(), []string{"alice"})
	assert.NoError(err)

	// Marking an empty chat read pins the receipt to nothing
	receipt, err := s.MarkRead(context.Background(), chat.ID, "alice")
	assert.NoError(err)
	assert.Nil(receipt)

	msg, err := s.AppendMessage(context.Background(), chat.ID, "alice", domain.KindText, "ping")
	assert.NoError(err)

	// The bot has no receipt entry until it first marks the chat read
	receipts, err := s.GetReadReceipts(context.Background(), chat.ID)
	assert.NoError(err)
	assert.NotContains(receipts, domain.BotUserID)

	receipt, err = s.MarkRead(context.Background(), chat.ID, domain.BotUserID)
	assert.NoError(err)
	assert.Equal(msg.ID, *receipt)

	receipts, err = s.GetReadReceipts(context.Background(), chat.ID)
	assert.NoError(err)
	assert.Contains(receipts, domain.BotUserID)
	assert.Equal(msg.ID, *receipts[domain.BotUserID])
}

func TestChatStore_PublishOrder_MatchesMutationOrder(t *testing.T) {
	assert := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	logger := logs.GetLoggerFromLevel(slog.LevelError)
	clock := clockwork.NewFakeClockAt(testStart)

	var names []string
	broadcaster := mocks.NewMockIBroadcaster(ctrl)
	broadcaster.EXPECT().
		Publish(gomock.Any(), gomock.Any()).
		Do(func(_ context.Context, evt event.DomainEvent) {
			names = append(names, evt.Name())
		}).
		AnyTimes()

	s := NewChatStore(logger, clock, broadcaster, nil)
	chat, err := s.CreateChat(context.Background(), []string{"alice"})
	assert.NoError(err)

	ctx := context.Background()
	_, err = s.SetPresence(ctx, chat.ID, "alice", domain.StatusOnline)
	assert.NoError(err)
	_, err = s.AppendMessage(ctx, chat.ID, "alice", domain.KindText, "one")
	assert.NoError(err)
	_, err = s.MarkRead(ctx, chat.ID, "alice")
	assert.NoError(err)
	_, err = s.AppendMessage(ctx, chat.ID, "alice", domain.KindText, "two")
	assert.NoError(err)
	_, err = s.SetPresence(ctx, chat.ID, "alice", domain.StatusOffline)
	assert.NoError(err)

	assert.Equal([]string{
		event.TypePresenceUpdated,
		event.TypeMessageReceived,
		event.TypeChatRead,
		event.TypeMessageReceived,
		event.TypePresenceUpdated,
	}, names)
}

func TestChatStore_ReturnsDetachedCopies(t *testing.T) {
	assert := require.New(t)
	logger := logs.GetLoggerFromLevel(slog.LevelError)
	s := NewChatStore(logger, clockwork.NewFakeClockAt(testStart), nil, nil)

	chat, err := s.CreateChat(context.Background(), []string{"alice"})
	assert.NoError(err)
	_, err = s.AppendMessage(context.Background(), chat.ID, "alice", domain.KindText, "original")
	assert.NoError(err)

	// Mutating returned values must not leak into the store
	messages, err := s.GetMessages(context.Background(), chat.ID)
	assert.NoError(err)
	messages[0].Content = "tampered"

	receipts, err := s.GetReadReceipts(context.Background(), chat.ID)
	assert.NoError(err)
	receipts["alice"] = &messages[0].ID

	summaries := s.ListChats()
	assert.Len(summaries, 1)
	summaries[0].Participants[0] = "tampered"

	fresh, err := s.GetMessages(context.Background(), chat.ID)
	assert.NoError(err)
	assert.Equal("original", fresh[0].Content)

	freshReceipts, err := s.GetReadReceipts(context.Background(), chat.ID)
	assert.NoError(err)
	assert.Nil(freshReceipts["alice"])

	freshSummaries := s.ListChats()
	assert.Equal("alice", freshSummaries[0].Participants[0])
}

func keysOf(m map[string]*uuid.UUID) map[string]bool {
	out := make(map[string]bool, len(m))
	for k := range m {
		out[k] = true
	}
	return out
}
