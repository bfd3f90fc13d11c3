// Package e2e exercises the backend as a black box: a real HTTP
// server, a real WebSocket stream, a real bot replying on its own
// schedule. By default each suite boots its own server on a free port,
// so the tests need nothing running beforehand.
package e2e

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/gookit/color"
	"github.com/jonboulle/clockwork"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/suite"

	"chat-backend/bot"
	"chat-backend/client"
	"chat-backend/domain"
	"chat-backend/domain/event"
	http2 "chat-backend/infrastructure/http"
	"chat-backend/observability"
	"chat-backend/runtime"
	"chat-backend/runtime/workers"
	"chat-backend/services"
	"chat-backend/store"
)

type BaseSuite struct {
	suite.Suite
	Config Config
	API    *client.Client

	server  *http2.Server
	cancel  context.CancelFunc
	supDone chan struct{}
}

// SetupSuite loads the environment configuration and, unless pointed
// at an external server, starts the full stack in-process.
func (s *BaseSuite) SetupSuite() {
	var err error
	s.Config, err = LoadConfig()
	s.Require().NoError(err)

	addr := s.Config.ServerAddr
	if addr == "" {
		addr = s.startServer()
	}
	s.API = client.New("http://" + addr)
}

func (s *BaseSuite) TearDownSuite() {
	if s.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Stop(ctx)
	}
	if s.cancel != nil {
		s.cancel()
		<-s.supDone
	}
}

// startServer wires the same components as cmd/server, with fast bot
// pacing and no moderation, and serves them on an OS-chosen port.
func (s *BaseSuite) startServer() string {
	log := logs.GetLoggerFromLevel(slog.LevelError)

	metrics := observability.NewMetrics()
	registry := runtime.NewRegistry()
	broadcaster := runtime.NewBroadcaster(log, registry, metrics)
	clock := clockwork.NewRealClock()
	chatStore := store.NewChatStore(log, clock, broadcaster, metrics)

	agent := bot.NewAgent(log, chatStore, clock, s.Config.BotMinDelay, s.Config.BotMaxDelay)
	dispatcher := workers.NewBotDispatcher(log, agent, metrics, 64)
	sup := workers.NewSupervisor(log, 0)
	sup.Add(dispatcher)

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.supDone = make(chan struct{})
	go func() {
		sup.Run(ctx)
		close(s.supDone)
	}()

	service := services.NewChatService(log, chatStore, registry, dispatcher, nil)
	handlers := http2.NewHandlers(log, service, metrics, 64)
	s.server = http2.NewServer(log, "127.0.0.1:0", handlers.Routes())

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	s.Require().NoError(err)
	go func() {
		_ = s.server.Serve(listener)
	}()
	return listener.Addr().String()
}

// Step prints a colorized header so scenario logs read as a script
func (s *BaseSuite) Step(name string) {
	header := fmt.Sprintf("  ====== %s ======", name)
	if s.Config.Colours {
		header = color.New(color.BgBlack, color.FgGreen).Render(header)
	}
	s.T().Log(header)
}

// NextEvent pulls one frame from the stream within the suite timeout.
func (s *BaseSuite) NextEvent(stream *client.EventStream) event.RawEnvelope {
	envelope, err := stream.NextWithin(s.Config.EventTimeout)
	s.Require().NoError(err, "timed out waiting for an event")
	return envelope
}

// DecodeMessage asserts the envelope carries a message and unpacks it.
func (s *BaseSuite) DecodeMessage(envelope event.RawEnvelope) domain.Message {
	s.Require().Equal(event.TypeMessageReceived, envelope.Event)
	var msg domain.Message
	s.Require().NoError(json.Unmarshal(envelope.Data, &msg))
	return msg
}

// DecodePresence asserts the envelope carries a presence update.
func (s *BaseSuite) DecodePresence(envelope event.RawEnvelope) event.PresenceUpdated {
	s.Require().Equal(event.TypePresenceUpdated, envelope.Event)
	var p event.PresenceUpdated
	s.Require().NoError(json.Unmarshal(envelope.Data, &p))
	return p
}

// DecodeRead asserts the envelope carries a read receipt.
func (s *BaseSuite) DecodeRead(envelope event.RawEnvelope) event.ChatRead {
	s.Require().Equal(event.TypeChatRead, envelope.Event)
	var r event.ChatRead
	s.Require().NoError(json.Unmarshal(envelope.Data, &r))
	return r
}
