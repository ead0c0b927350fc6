package notifier

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Event is a change notification fanned out to connected sessions
type Event struct {
	Kind      string    `json:"kind"`
	Timestamp time.Time `json:"timestamp"`
}

// EventBaleUpdate signals that the bale set changed
const EventBaleUpdate = "bale-update"

const subscriberBuffer = 8

// Subscription is one observer's handle on the registry
type Subscription struct {
	id       uint64
	C        <-chan Event
	registry *Registry
}

// Close removes the subscription from the registry
func (s *Subscription) Close() {
	s.registry.unsubscribe(s.id)
}

// Registry is the shared subscriber set for change fan-out. Delivery is
// best effort, at most once per open subscription, no replay.
type Registry struct {
	mu          sync.Mutex
	nextID      uint64
	subscribers map[uint64]chan Event
}

// NewRegistry creates an empty subscriber registry
func NewRegistry() *Registry {
	return &Registry{
		subscribers: make(map[uint64]chan Event),
	}
}

// Subscribe registers a new observer and returns its handle
func (r *Registry) Subscribe() *Subscription {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	ch := make(chan Event, subscriberBuffer)
	r.subscribers[r.nextID] = ch

	return &Subscription{
		id:       r.nextID,
		C:        ch,
		registry: r,
	}
}

func (r *Registry) unsubscribe(id uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if ch, ok := r.subscribers[id]; ok {
		delete(r.subscribers, id)
		close(ch)
	}
}

// Publish broadcasts an event to every open subscription. A subscriber
// whose buffer is full is dropped rather than blocking the others.
func (r *Registry) Publish(kind string) {
	event := Event{Kind: kind, Timestamp: time.Now()}

	r.mu.Lock()
	defer r.mu.Unlock()

	for id, ch := range r.subscribers {
		select {
		case ch <- event:
		default:
			delete(r.subscribers, id)
			close(ch)
			log.Debug().Uint64("subscriber", id).Msg("Dropped slow subscriber")
		}
	}
}

// Count returns the number of open subscriptions
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.subscribers)
}
