package runtime

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type stubSink struct {
	frames [][]byte
	err    error
}

func (s *stubSink) Consume(_ context.Context, frame []byte) error {
	if s.err != nil {
		return s.err
	}
	s.frames = append(s.frames, frame)
	return nil
}

func TestRegistry_Subscribe_One_Chat_One_Sink(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	chatID := uuid.NewString()
	sink := &stubSink{}

	// Given no sink is connected
	// And no chat entry exists
	req.Zero(registry.Rooms())
	req.Zero(registry.CountFor(chatID))

	// When a sink subscribes to a chat
	registry.Subscribe(chatID, sink)

	// Then
	req.Equal(1, registry.Rooms())
	req.Equal(1, registry.CountFor(chatID))
	req.Contains(registry.SinksFor(chatID), sink)
}

func TestRegistry_Subscribe_One_Chat_Multiple_Sinks(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	chatID := uuid.NewString()
	sink1 := &stubSink{}
	sink2 := &stubSink{}

	// When two connections subscribe to the same chat
	registry.Subscribe(chatID, sink1)
	registry.Subscribe(chatID, sink2)

	// Then
	req.Equal(1, registry.Rooms())
	req.Equal(2, registry.CountFor(chatID))
	req.Contains(registry.SinksFor(chatID), sink1)
	req.Contains(registry.SinksFor(chatID), sink2)
}

func TestRegistry_Subscribe_Same_Sink_Twice(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	chatID := uuid.NewString()
	sink := &stubSink{}

	// When the same sink subscribes twice
	registry.Subscribe(chatID, sink)
	registry.Subscribe(chatID, sink)

	// Then it is tracked once
	req.Equal(1, registry.CountFor(chatID))
}

func TestRegistry_Unsubscribe_Last_Sink_Removes_Chat(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	chatID := uuid.NewString()
	sink := &stubSink{}

	// Given a sink subscribed to a chat
	registry.Subscribe(chatID, sink)

	// When it unsubscribes
	registry.Unsubscribe(chatID, sink)

	// Then no subscriber is left
	// And the chat entry doesn't exist anymore
	req.Zero(registry.Rooms())
	req.Zero(registry.CountFor(chatID))
	req.Nil(registry.SinksFor(chatID))
}

func TestRegistry_Unsubscribe_One_Chat_Multiple_Sinks(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	chatID := uuid.NewString()
	sink1 := &stubSink{}
	sink2 := &stubSink{}

	// Given two subscribed connections
	registry.Subscribe(chatID, sink1)
	registry.Subscribe(chatID, sink2)

	// When one unsubscribes
	registry.Unsubscribe(chatID, sink1)

	// Then only the other is left
	req.Equal(1, registry.CountFor(chatID))
	req.Contains(registry.SinksFor(chatID), sink2)
}

func TestRegistry_Unsubscribe_Unknown_Pair_Is_NoOp(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	chatID := uuid.NewString()
	sink := &stubSink{}

	// When unsubscribing a sink that never subscribed
	registry.Unsubscribe(chatID, sink)
	registry.Unsubscribe("unknown", sink)

	// Then nothing changes
	req.Zero(registry.Rooms())
}
