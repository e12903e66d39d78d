// Package events is an in-process publish/subscribe channel. Each
// subscriber gets its own bounded buffer; a slow subscriber loses events
// instead of blocking publishers.
package events

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

type Event struct {
	ID      string      `json:"id"`
	Type    string      `json:"type"`
	At      time.Time   `json:"at"`
	Payload interface{} `json:"payload"`
}

func New(eventType string, payload interface{}) Event {
	return Event{
		ID:      uuid.NewString(),
		Type:    eventType,
		At:      time.Now().UTC(),
		Payload: payload,
	}
}

type Bus struct {
	mu     sync.RWMutex
	subs   map[uint64]*Subscription
	nextID uint64
	buffer int
	closed bool
	logger *slog.Logger
}

func NewBus(buffer int, logger *slog.Logger) *Bus {
	if buffer < 1 {
		buffer = 1
	}
	return &Bus{
		subs:   make(map[uint64]*Subscription),
		buffer: buffer,
		logger: logger.With("component", "event_bus"),
	}
}

type Subscription struct {
	id      uint64
	ch      chan Event
	bus     *Bus
	once    sync.Once
	dropped atomic.Uint64
}

// Subscribe registers a new subscriber. The caller must call Unsubscribe.
// Subscribing to a closed bus returns a subscription whose channel is
// already closed.
func (b *Bus) Subscribe() *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	sub := &Subscription{
		id:  b.nextID,
		ch:  make(chan Event, b.buffer),
		bus: b,
	}

	if b.closed {
		sub.once.Do(func() { close(sub.ch) })
		return sub
	}

	b.subs[sub.id] = sub
	b.logger.Debug("Subscriber added", "subscriber_id", sub.id, "subscribers", len(b.subs))
	return sub
}

// Publish delivers e to every subscriber without blocking.
func (b *Bus) Publish(e Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return
	}

	for _, sub := range b.subs {
		select {
		case sub.ch <- e:
		default:
			n := sub.dropped.Add(1)
			b.logger.Warn("Subscriber buffer full, dropping event",
				"subscriber_id", sub.id,
				"event_type", e.Type,
				"dropped_total", n,
			)
		}
	}
}

func (b *Bus) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Close unsubscribes everyone. Later publishes are ignored.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true

	for id, sub := range b.subs {
		delete(b.subs, id)
		sub.once.Do(func() { close(sub.ch) })
	}
}

func (s *Subscription) C() <-chan Event {
	return s.ch
}

// Dropped is the number of events lost because the buffer was full.
func (s *Subscription) Dropped() uint64 {
	return s.dropped.Load()
}

// Unsubscribe removes the subscription and closes its channel. It is safe
// to call more than once.
func (s *Subscription) Unsubscribe() {
	b := s.bus
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.subs[s.id]; ok {
		delete(b.subs, s.id)
		b.logger.Debug("Subscriber removed", "subscriber_id", s.id, "subscribers", len(b.subs))
	}
	s.once.Do(func() { close(s.ch) })
}
