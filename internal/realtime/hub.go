package realtime

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// DefaultBuffer is the per-subscriber buffer used when none is configured.
const DefaultBuffer = 64

// Hub fans row-change events out to in-process subscribers. A subscriber
// whose buffer is full misses the event; the hub never blocks a publisher.
type Hub struct {
	mu     sync.RWMutex
	subs   map[string]*Subscription
	buffer int
	closed bool
	logger *slog.Logger
}

// NewHub creates a hub whose subscriptions buffer up to buffer events.
func NewHub(buffer int, logger *slog.Logger) *Hub {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		subs:   make(map[string]*Subscription),
		buffer: buffer,
		logger: logger.With("component", "hub"),
	}
}

// Subscribe registers a subscriber for events matching filter. Subscribing
// to a closed hub returns an already-closed subscription.
func (h *Hub) Subscribe(filter Filter) *Subscription {
	sub := &Subscription{
		id:     uuid.New().String(),
		filter: filter,
		ch:     make(chan Event, h.buffer),
		hub:    h,
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		close(sub.ch)
		sub.done = true
		return sub
	}
	h.subs[sub.id] = sub
	h.logger.Debug("Subscriber added", "id", sub.id, "collection", filter.Collection, "list_id", filter.ListID)
	return sub
}

// Publish delivers e to every matching subscriber without blocking.
func (h *Hub) Publish(e Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.closed {
		return
	}
	for _, sub := range h.subs {
		if !sub.filter.Match(e) {
			continue
		}
		select {
		case sub.ch <- e:
		default:
			h.logger.Warn("Subscriber buffer full, dropping event",
				"id", sub.id, "collection", e.Collection, "op", e.Op, "row", e.RowID())
		}
	}
}

// Len returns the number of live subscriptions.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Close closes every subscription. Later publishes are ignored.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.closed = true
	for id, sub := range h.subs {
		delete(h.subs, id)
		sub.done = true
		close(sub.ch)
	}
}

func (h *Hub) remove(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if sub.done {
		return
	}
	sub.done = true
	delete(h.subs, sub.id)
	close(sub.ch)
	h.logger.Debug("Subscriber removed", "id", sub.id)
}

// Subscription is a live registration on a Hub.
type Subscription struct {
	id     string
	filter Filter
	ch     chan Event
	hub    *Hub

	// done is guarded by hub.mu.
	done bool
}

// Events returns the delivery channel. It is closed when the subscription
// or the hub is closed.
func (s *Subscription) Events() <-chan Event {
	return s.ch
}

// Close unregisters the subscription. It is safe to call more than once.
func (s *Subscription) Close() error {
	s.hub.remove(s)
	return nil
}
