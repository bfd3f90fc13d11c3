// Package event defines the domain events broadcast to chat
// subscribers and the wire envelope that frames them.
package event

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"chat-backend/domain"
)

// Wire event names pushed to subscribers.
const (
	TypeMessageReceived = "message_received"
	TypePresenceUpdated = "presence_updated"
	TypeChatRead        = "chat_read"
)

// DomainEvent is anything the broadcaster can deliver to the
// subscribers of one chat.
type DomainEvent interface {
	// Name is the wire event name.
	Name() string
	// ChatID scopes delivery to a single chat.
	ChatID() string
	// Payload is the data object marshaled under the envelope's "data" key.
	Payload() any
}

// MessageReceived is published for every appended message, human or bot.
type MessageReceived struct {
	Chat    string
	Message domain.Message
}

func (e MessageReceived) Name() string   { return TypeMessageReceived }
func (e MessageReceived) ChatID() string { return e.Chat }
func (e MessageReceived) Payload() any   { return e.Message }

// PresenceUpdated is published on every presence transition.
type PresenceUpdated struct {
	Chat     string                `json:"-"`
	UserID   string                `json:"user_id"`
	Status   domain.PresenceStatus `json:"status"`
	LastSeen time.Time             `json:"last_seen"`
}

func (e PresenceUpdated) Name() string   { return TypePresenceUpdated }
func (e PresenceUpdated) ChatID() string { return e.Chat }
func (e PresenceUpdated) Payload() any   { return e }

// ChatRead is published when a participant marks the chat read.
// LastReadMessageID is nil when the log was empty at marking time.
type ChatRead struct {
	Chat              string     `json:"chat_id"`
	UserID            string     `json:"user_id"`
	LastReadMessageID *uuid.UUID `json:"last_read_message_id"`
}

func (e ChatRead) Name() string   { return TypeChatRead }
func (e ChatRead) ChatID() string { return e.Chat }
func (e ChatRead) Payload() any   { return e }

// Envelope is the frame subscribers receive: {"event": ..., "data": ...}.
type Envelope struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// RawEnvelope defers payload decoding until the event name is known.
// Consumers (projections, clients) unmarshal Data according to Event.
type RawEnvelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Encode wraps evt in the wire envelope and marshals it.
// The broadcaster calls this exactly once per publish so every
// subscriber receives an identical frame.
func Encode(evt DomainEvent) ([]byte, error) {
	return json.Marshal(Envelope{Event: evt.Name(), Data: evt.Payload()})
}
