package monitor

import (
	"sync"
	"sync/atomic"
	"time"
)

// EventType classifies a monitor event.
type EventType string

// Event types.
const (
	EventTransaction EventType = "transaction"
	EventFault       EventType = "fault"
)

// Event is the JSON envelope sent to WebSocket clients.
type Event struct {
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
}

// FaultInfo describes a protocol fault that did not necessarily end a
// transaction.
type FaultInfo struct {
	Status string `json:"status"`
	State  string `json:"state"`
	Fault  string `json:"fault"`
	Cursor int    `json:"cursor"`
}

// SubscriberBuffer is the channel depth of each subscriber.
const SubscriberBuffer = 64

type subscriber struct {
	ch chan Event
}

// EventBus fans events out to subscribers. Publish never blocks: events
// for a subscriber whose buffer is full are dropped.
type EventBus struct {
	mu   sync.RWMutex
	subs map[*subscriber]struct{}

	dropped atomic.Uint64
}

// NewEventBus creates an empty bus.
func NewEventBus() *EventBus {
	return &EventBus{subs: make(map[*subscriber]struct{})}
}

// Subscribe registers a subscriber. The returned function unsubscribes
// and closes the channel; call it exactly once.
func (b *EventBus) Subscribe() (<-chan Event, func()) {
	s := &subscriber{ch: make(chan Event, SubscriberBuffer)}
	b.mu.Lock()
	b.subs[s] = struct{}{}
	b.mu.Unlock()

	unsub := func() {
		b.mu.Lock()
		delete(b.subs, s)
		b.mu.Unlock()
		close(s.ch)
	}
	return s.ch, unsub
}

// Publish sends e to every subscriber.
func (b *EventBus) Publish(e Event) {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	for s := range b.subs {
		select {
		case s.ch <- e:
		default:
			b.dropped.Add(1)
		}
	}
}

// Len returns the number of subscribers.
func (b *EventBus) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Dropped returns the number of events dropped for slow subscribers.
func (b *EventBus) Dropped() uint64 {
	return b.dropped.Load()
}
