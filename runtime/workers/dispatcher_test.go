package workers

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"chat-backend/mocks"
)

func TestBotDispatcher_Trigger_ActivatesAgent(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelError)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	activated := make(chan string, 1)
	agent := mocks.NewMockIBotAgent(ctrl)
	agent.EXPECT().
		Activate(gomock.Any(), "chat-1").
		DoAndReturn(func(ctx context.Context, chatID string) error {
			activated <- chatID
			return nil
		}).
		Times(1)

	dispatcher := NewBotDispatcher(log, agent, nil, 4)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		_ = dispatcher.Run(ctx)
		close(done)
	}()

	// When a trigger arrives
	dispatcher.Trigger("chat-1")

	// Then the agent is activated for that chat
	select {
	case chatID := <-activated:
		req.Equal("chat-1", chatID)
	case <-time.After(time.Second):
		req.Fail("agent was never activated")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		req.Fail("dispatcher did not stop on cancel")
	}
}

func TestBotDispatcher_AgentErrorIsSwallowed(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelError)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	activations := make(chan string, 2)
	agent := mocks.NewMockIBotAgent(ctrl)
	agent.EXPECT().
		Activate(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, chatID string) error {
			activations <- chatID
			if chatID == "chat-broken" {
				return context.DeadlineExceeded
			}
			return nil
		}).
		Times(2)

	dispatcher := NewBotDispatcher(log, agent, nil, 4)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = dispatcher.Run(ctx) }()

	// When one activation fails, the next still runs
	dispatcher.Trigger("chat-broken")
	dispatcher.Trigger("chat-fine")

	seen := map[string]bool{}
	for i := 0; i < 2; i++ {
		select {
		case chatID := <-activations:
			seen[chatID] = true
		case <-time.After(time.Second):
			req.Fail("missing activation")
		}
	}
	req.True(seen["chat-broken"])
	req.True(seen["chat-fine"])
}

func TestBotDispatcher_AgentPanicIsContained(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelError)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	survived := make(chan struct{}, 1)
	agent := mocks.NewMockIBotAgent(ctrl)
	agent.EXPECT().
		Activate(gomock.Any(), "chat-panics").
		DoAndReturn(func(ctx context.Context, chatID string) error {
			panic("bot exploded")
		}).
		Times(1)
	agent.EXPECT().
		Activate(gomock.Any(), "chat-after").
		DoAndReturn(func(ctx context.Context, chatID string) error {
			survived <- struct{}{}
			return nil
		}).
		Times(1)

	dispatcher := NewBotDispatcher(log, agent, nil, 4)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = dispatcher.Run(ctx) }()

	// When the first activation panics
	dispatcher.Trigger("chat-panics")
	dispatcher.Trigger("chat-after")

	// Then the dispatcher is still alive for the next one
	select {
	case <-survived:
	case <-time.After(time.Second):
		req.Fail("dispatcher died with the panicking activation")
	}
}

func TestBotDispatcher_Trigger_DropsWhenQueueFull(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelError)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	// Given a dispatcher that is not draining its queue
	dispatcher := NewBotDispatcher(log, mocks.NewMockIBotAgent(ctrl), nil, 1)

	// When more triggers arrive than the queue holds
	dispatcher.Trigger("chat-1")
	dispatcher.Trigger("chat-2")
	dispatcher.Trigger("chat-3")

	// Then the overflow is dropped without blocking the caller
	req.Len(dispatcher.queue, 1)
}

func TestBotDispatcher_Run_WaitsForInflightActivations(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelError)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	started := make(chan struct{})
	release := make(chan struct{})
	agent := mocks.NewMockIBotAgent(ctrl)
	agent.EXPECT().
		Activate(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, chatID string) error {
			close(started)
			<-release
			return nil
		}).
		Times(1)

	dispatcher := NewBotDispatcher(log, agent, nil, 4)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = dispatcher.Run(ctx)
		close(done)
	}()

	dispatcher.Trigger("chat-slow")
	<-started

	// When the context is canceled mid-activation
	cancel()

	// Then Run keeps waiting for the in-flight activation
	select {
	case <-done:
		req.Fail("Run returned before the activation finished")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	select {
	case <-done:
	case <-time.After(time.Second):
		req.Fail("Run never returned after the activation finished")
	}
}
