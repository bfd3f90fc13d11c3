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

type stubState struct {
	chats    int
	messages int
}

func (s stubState) ChatCount() int    { return s.chats }
func (s stubState) MessageCount() int { return s.messages }

func TestTelemetryReporter_StopsOnCancel(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelError)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	registry := mocks.NewMockIRegistry(ctrl)
	registry.EXPECT().Rooms().Return(0).AnyTimes()

	reporter := NewTelemetryReporter(log, 10*time.Millisecond, stubState{chats: 1, messages: 2}, registry, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- reporter.Run(ctx)
	}()

	// Let it tick at least once before stopping it
	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		req.ErrorIs(err, context.Canceled)
	case <-time.After(time.Second):
		req.Fail("reporter did not stop on cancel")
	}
}
