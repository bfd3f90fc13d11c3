package domain

import "github.com/google/uuid"

// BotUserID is the reserved identifier of the automated participant
// appended to every chat at creation.
const BotUserID = "bot_user"

// Chat is one conversation: a fixed participant set, an append-only
// message log, read receipts and per-participant presence.
// The store owns all mutation; a Chat value handed out by the store is
// always a detached snapshot.
type Chat struct {
	ID           string
	Participants []string // creation order, bot last
	Messages     []Message
	ReadReceipts map[string]*uuid.UUID // nil means nothing read yet
	Presence     map[string]Presence
}

// ChatSummary is the listing shape: identity and membership only.
type ChatSummary struct {
	ChatID       string   `json:"chat_id"`
	Participants []string `json:"participants"`
}

// IsParticipant reports whether userID belongs to the chat.
func (c *Chat) IsParticipant(userID string) bool {
	for _, p := range c.Participants {
		if p == userID {
			return true
		}
	}
	return false
}

// HumanParticipants returns the participant list without the bot.
func (c *Chat) HumanParticipants() []string {
	humans := make([]string, 0, len(c.Participants))
	for _, p := range c.Participants {
		if p != BotUserID {
			humans = append(humans, p)
		}
	}
	return humans
}

// LastMessageID returns the ID of the newest message, or nil when the
// log is empty.
func (c *Chat) LastMessageID() *uuid.UUID {
	if len(c.Messages) == 0 {
		return nil
	}
	id := c.Messages[len(c.Messages)-1].ID
	return &id
}
