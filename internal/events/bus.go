// Package events provides the in-process event bus that feeds the SSE and
// websocket streams. Mutations publish; streaming handlers subscribe.
package events

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// EventType identifies what happened
type EventType string

const (
	// SnapshotUpdated fires after every successful series mutation
	SnapshotUpdated EventType = "snapshot_updated"
	// DecisionChanged fires on decision creation and completion
	DecisionChanged EventType = "decision_changed"
	// WorkspaceCreated fires when a forecast intake seeds a new workspace
	WorkspaceCreated EventType = "workspace_created"
	// WorkspaceExpired fires when the cleanup job removes an idle workspace
	WorkspaceExpired EventType = "workspace_expired"
)

// Event is one published occurrence with its payload
type Event struct {
	Type      EventType   `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data,omitempty"`
}

// Bus fans events out to subscribers. Publishing never blocks: slow
// subscribers with a full channel miss events rather than stalling the
// mutation path.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[int]chan Event
	nextID      int
	log         zerolog.Logger
}

// NewBus creates an event bus
func NewBus(log zerolog.Logger) *Bus {
	return &Bus{
		subscribers: make(map[int]chan Event),
		log:         log.With().Str("component", "event_bus").Logger(),
	}
}

// Subscribe registers a subscriber and returns its channel plus an
// unsubscribe function. The channel is buffered; call unsubscribe when done
// or the bus will keep the channel forever.
func (b *Bus) Subscribe() (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	ch := make(chan Event, 64)
	b.subscribers[id] = ch

	unsubscribe := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if ch, ok := b.subscribers[id]; ok {
			delete(b.subscribers, id)
			close(ch)
		}
	}
	return ch, unsubscribe
}

// Publish sends an event to all current subscribers without blocking
func (b *Bus) Publish(eventType EventType, data interface{}) {
	event := Event{
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	for id, ch := range b.subscribers {
		select {
		case ch <- event:
		default:
			b.log.Warn().
				Int("subscriber", id).
				Str("event_type", string(eventType)).
				Msg("Subscriber channel full, event dropped")
		}
	}
}

// SubscriberCount returns the number of active subscribers
func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}
