// Package notify provides the in-memory fan-out of post change events to
// connected observers.
package notify

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/blogify/blog-api/internal/core/domain"
	"github.com/blogify/blog-api/internal/pkg/metrics"
)

// subscriberBuffer is the channel capacity of each observer.
const subscriberBuffer = 64

// Hub delivers every broadcast event to all current subscribers. Delivery is
// at-most-once: a subscriber whose buffer is full misses the event.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[string]chan domain.PostEvent
	closed      bool
	log         zerolog.Logger
}

func NewHub(log zerolog.Logger) *Hub {
	return &Hub{
		subscribers: make(map[string]chan domain.PostEvent),
		log:         log.With().Str("component", "notify_hub").Logger(),
	}
}

// Subscribe registers an observer and returns its event channel and id. The
// subscription ends when ctx is cancelled; the channel is then closed.
func (h *Hub) Subscribe(ctx context.Context) (<-chan domain.PostEvent, string) {
	id := uuid.NewString()
	ch := make(chan domain.PostEvent, subscriberBuffer)

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		close(ch)
		return ch, id
	}
	h.subscribers[id] = ch
	n := len(h.subscribers)
	h.mu.Unlock()

	metrics.NotifierSubscribers.Set(float64(n))
	h.log.Debug().Str("sub_id", id).Int("subscribers", n).Msg("subscriber added")

	go func() {
		<-ctx.Done()
		h.Unsubscribe(id)
	}()

	return ch, id
}

// Broadcast sends event to every subscriber without blocking.
func (h *Hub) Broadcast(event domain.PostEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for id, ch := range h.subscribers {
		select {
		case ch <- event:
		default:
			metrics.NotifierDroppedTotal.WithLabelValues("subscriber").Inc()
			h.log.Debug().
				Str("sub_id", id).
				Str("kind", string(event.Kind)).
				Msg("dropped event for slow subscriber")
		}
	}
}

// Unsubscribe removes a subscription and closes its channel. Unknown ids are ignored.
func (h *Hub) Unsubscribe(id string) {
	h.mu.Lock()
	ch, ok := h.subscribers[id]
	if !ok {
		h.mu.Unlock()
		return
	}
	delete(h.subscribers, id)
	close(ch)
	n := len(h.subscribers)
	h.mu.Unlock()

	metrics.NotifierSubscribers.Set(float64(n))
	h.log.Debug().Str("sub_id", id).Int("subscribers", n).Msg("subscriber removed")
}

// Count returns the number of connected subscribers.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}

// Close disconnects every subscriber. Later subscriptions get a closed channel.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for id, ch := range h.subscribers {
		close(ch)
		delete(h.subscribers, id)
	}
	h.closed = true
	metrics.NotifierSubscribers.Set(0)
}
