//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"context"
	"reflect"

	"github.com/google/uuid"

	"chat-backend/domain"
	"chat-backend/domain/event"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

type WorkerName string

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes during worker initialization
// or lifecycle events, avoiding the need for manual naming in the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// EventSink receives one serialized event frame per chat mutation.
// Consume must not block the publisher: a sink that cannot take the
// frame returns an error, and the broadcaster drops it from the chat's
// subscriber set.
type EventSink interface {
	Consume(ctx context.Context, frame []byte) error
}

type IRegistry interface {
	SinksFor(chatID string) []EventSink
	Subscribe(chatID string, sink EventSink)
	Unsubscribe(chatID string, sink EventSink)
	CountFor(chatID string) int
	Rooms() int
}

// IBroadcaster delivers one event to every live subscriber of its chat,
// in publish order, pruning subscribers that fail delivery.
type IBroadcaster interface {
	Publish(ctx context.Context, evt event.DomainEvent)
}

// IBotAgent runs one scripted activation against a chat.
type IBotAgent interface {
	Activate(ctx context.Context, chatID string) error
}

// IBotDispatcher schedules bot activations. Trigger never blocks the
// caller and never reports activation outcomes back to it.
type IBotDispatcher interface {
	Trigger(chatID string)
}

// IChatService is the operation surface the transport layers call.
type IChatService interface {
	CreateChat(ctx context.Context, participants []string) (*domain.Chat, error)
	ListChats(ctx context.Context) []domain.ChatSummary
	GetMessages(ctx context.Context, chatID string) ([]domain.Message, error)
	SendMessage(ctx context.Context, chatID, senderID string, kind domain.MessageKind, content string) (*domain.Message, error)
	UpdatePresence(ctx context.Context, chatID, userID string, status domain.PresenceStatus) (*domain.Presence, error)
	GetPresence(ctx context.Context, chatID string) ([]domain.ParticipantPresence, error)
	MarkRead(ctx context.Context, chatID, userID string) (*uuid.UUID, error)
	GetReadReceipts(ctx context.Context, chatID string) (map[string]*uuid.UUID, error)
	Subscribe(chatID string, sink EventSink) error
	Unsubscribe(chatID string, sink EventSink)
}
