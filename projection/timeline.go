// Package projection builds local read models from observed events.
// A Timeline folds the frames one subscriber receives into the chat
// state as that subscriber sees it. It never talks to the store.
package projection

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"chat-backend/domain"
	"chat-backend/domain/event"
)

// Timeline holds a subscriber-local view of one chat.
type Timeline struct {
	Owner    string
	Messages []domain.Message
	Presence map[string]domain.Presence
	Receipts map[string]*uuid.UUID
}

func NewTimeline(owner string) *Timeline {
	return &Timeline{
		Owner:    owner,
		Presence: make(map[string]domain.Presence),
		Receipts: make(map[string]*uuid.UUID),
	}
}

// Apply folds one envelope into the timeline. Unknown event names are
// an error so a drifting server shows up instead of being skipped.
func (t *Timeline) Apply(env event.RawEnvelope) error {
	switch env.Event {
	case event.TypeMessageReceived:
		var msg domain.Message
		if err := json.Unmarshal(env.Data, &msg); err != nil {
			return fmt.Errorf("decoding %s: %w", env.Event, err)
		}
		t.Messages = append(t.Messages, msg)

	case event.TypePresenceUpdated:
		var p event.PresenceUpdated
		if err := json.Unmarshal(env.Data, &p); err != nil {
			return fmt.Errorf("decoding %s: %w", env.Event, err)
		}
		t.Presence[p.UserID] = domain.Presence{Status: p.Status, LastSeen: p.LastSeen}

	case event.TypeChatRead:
		var r event.ChatRead
		if err := json.Unmarshal(env.Data, &r); err != nil {
			return fmt.Errorf("decoding %s: %w", env.Event, err)
		}
		t.Receipts[r.UserID] = r.LastReadMessageID

	default:
		return fmt.Errorf("unknown event %q", env.Event)
	}
	return nil
}

// UnreadBy returns the messages behind userID's read marker. With no
// marker yet, everything is unread.
func (t *Timeline) UnreadBy(userID string) []domain.Message {
	marker := t.Receipts[userID]
	if marker == nil {
		return append([]domain.Message{}, t.Messages...)
	}
	for i := len(t.Messages) - 1; i >= 0; i-- {
		if t.Messages[i].ID == *marker {
			return append([]domain.Message{}, t.Messages[i+1:]...)
		}
	}
	return append([]domain.Message{}, t.Messages...)
}
