package feed

import (
	"context"
	"sync"

	"learnhub/internal/shared"
)

// DefaultChannel is the pg_notify channel installed by the change feed migration.
// The redis bridge reuses the same name.
const DefaultChannel = "notification_changes"

// subscriberBuffer is the number of pending events per subscriber before drops start.
const subscriberBuffer = 16

// Publisher sends a change event to everyone subscribed to its user.
type Publisher interface {
	Publish(ctx context.Context, ev shared.ChangeEvent) error
}

// NopPublisher is used when the database trigger already produces the events.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, shared.ChangeEvent) error { return nil }

// Hub keeps the websocket subscribers of this process grouped by user id.
// Events are only delivered to subscribers of ev.UserID.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan shared.ChangeEvent]struct{}
}

func NewHub() *Hub {
	return &Hub{subscribers: make(map[string]map[chan shared.ChangeEvent]struct{})}
}

// Subscribe registers a subscriber for userID. The returned function removes it and
// closes the channel; calling it more than once is safe.
func (h *Hub) Subscribe(userID string) (<-chan shared.ChangeEvent, func()) {
	ch := make(chan shared.ChangeEvent, subscriberBuffer)

	h.mu.Lock()
	set, ok := h.subscribers[userID]
	if !ok {
		set = make(map[chan shared.ChangeEvent]struct{})
		h.subscribers[userID] = set
	}
	set[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if set, ok := h.subscribers[userID]; ok {
				delete(set, ch)
				if len(set) == 0 {
					delete(h.subscribers, userID)
				}
			}
			close(ch)
		})
	}
	return ch, unsubscribe
}

// Publish fans ev out to the subscribers of ev.UserID without blocking.
// A subscriber whose buffer is full misses the event.
func (h *Hub) Publish(_ context.Context, ev shared.ChangeEvent) error {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for ch := range h.subscribers[ev.UserID] {
		select {
		case ch <- ev:
		default:
			// slow subscriber, drop
		}
	}
	return nil
}

// Count returns how many subscribers userID currently has.
func (h *Hub) Count(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers[userID])
}
