package runtime

import (
	"sync"

	"chat-backend/contract"
)

// Set tracks the live sinks of one chat. Sinks are compared by
// identity, so one connection subscribes at most once.
type Set map[contract.EventSink]struct{}

// Registry maps chats to their active subscriber sinks. A connection is
// scoped to exactly one chat, so the per-chat set is the whole
// bookkeeping; there is no global session directory.
type Registry struct {
	mu      sync.RWMutex
	members map[string]Set
}

func NewRegistry() *Registry {
	return &Registry{members: make(map[string]Set)}
}

// SinksFor returns a snapshot of the chat's subscribers. Callers
// iterate (and may Unsubscribe entries) without holding the registry
// lock. Returns nil if the chat has no subscribers.
func (r *Registry) SinksFor(chatID string) []contract.EventSink {
	r.mu.RLock()
	defer r.mu.RUnlock()

	set, ok := r.members[chatID]
	if !ok {
		return nil
	}
	sinks := make([]contract.EventSink, 0, len(set))
	for sink := range set {
		sinks = append(sinks, sink)
	}
	return sinks
}

// Subscribe attaches a sink to a chat.
// If the chat does not yet exist in the registry, it is initialized on the fly.
func (r *Registry) Subscribe(chatID string, sink contract.EventSink) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.members[chatID]; !ok {
		r.members[chatID] = make(Set)
	}
	r.members[chatID][sink] = struct{}{}
}

// Unsubscribe detaches a sink from its chat. It ensures no empty sets
// are left in the chat map to prevent memory leaks over time. Unknown
// pairs are a no-op, so pruning and connection teardown can race safely.
func (r *Registry) Unsubscribe(chatID string, sink contract.EventSink) {
	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.members[chatID]
	if !ok {
		return
	}
	delete(set, sink)

	// If no one is left in the chat, remove the entry entirely
	if len(set) == 0 {
		delete(r.members, chatID)
	}
}

// CountFor reports the chat's current subscriber count.
func (r *Registry) CountFor(chatID string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.members[chatID])
}

// Rooms reports how many chats currently hold at least one subscriber.
func (r *Registry) Rooms() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.members)
}
