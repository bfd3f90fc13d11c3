package domain

import "time"

// PresenceStatus is a participant's live state inside a chat.
type PresenceStatus string

const (
	StatusOnline  PresenceStatus = "online"
	StatusOffline PresenceStatus = "offline"
	StatusTyping  PresenceStatus = "typing"
)

// Valid reports whether the status is one of the wire values.
func (s PresenceStatus) Valid() bool {
	switch s {
	case StatusOnline, StatusOffline, StatusTyping:
		return true
	}
	return false
}

// Presence records a participant's current status and the last moment
// they were seen. LastSeen moves only on a transition into offline;
// online and typing keep the previously stored value.
type Presence struct {
	Status   PresenceStatus `json:"status"`
	LastSeen time.Time      `json:"last_seen"`
}

// ParticipantPresence tags a presence record with its owner. Presence
// queries return one entry per participant, in participant order.
type ParticipantPresence struct {
	UserID   string         `json:"user_id"`
	Status   PresenceStatus `json:"status"`
	LastSeen time.Time      `json:"last_seen"`
}
