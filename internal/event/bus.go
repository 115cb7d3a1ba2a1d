package event

import (
	"log/slog"
	"sync"
	"sync/atomic"
)

// DefaultQueueSize is the per-subscriber buffer used when none is configured
const DefaultQueueSize = 64

// Subscription is one consumer's independent view of the event stream.
// Events arrive on C in publish order; events published while the queue is
// full are dropped for this subscriber only.
type Subscription struct {
	C chan Event

	bus  *Bus
	once sync.Once
}

// Bus is a best-effort in-process fan-out of conversation events.
// There is no persistence: events not read before a subscription ends are lost.
type Bus struct {
	queueSize int
	logger    *slog.Logger

	mu      sync.RWMutex
	subs    map[*Subscription]struct{}
	dropped atomic.Uint64
}

// NewBus creates an event bus with the given per-subscriber queue size
func NewBus(queueSize int, logger *slog.Logger) *Bus {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	return &Bus{
		queueSize: queueSize,
		logger:    logger,
		subs:      make(map[*Subscription]struct{}),
	}
}

// Subscribe registers a new subscriber and returns its subscription handle
func (b *Bus) Subscribe() *Subscription {
	sub := &Subscription{
		C:   make(chan Event, b.queueSize),
		bus: b,
	}

	b.mu.Lock()
	b.subs[sub] = struct{}{}
	b.mu.Unlock()

	return sub
}

// Unsubscribe removes a subscriber and closes its queue.
// Safe to call more than once and after the consumer has stopped reading.
func (b *Bus) Unsubscribe(sub *Subscription) {
	if sub == nil || sub.bus != b {
		return
	}

	b.mu.Lock()
	_, exists := b.subs[sub]
	delete(b.subs, sub)
	b.mu.Unlock()

	if exists {
		sub.once.Do(func() { close(sub.C) })
	}
}

// Close closes the subscription through its owning bus
func (s *Subscription) Close() {
	if s.bus != nil {
		s.bus.Unsubscribe(s)
	}
}

// Publish fans the event out to every current subscriber.
// The send is non-blocking per subscriber: a full queue drops the event for
// that subscriber without affecting the publisher or any other subscriber.
func (b *Bus) Publish(ev Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for sub := range b.subs {
		select {
		case sub.C <- ev:
		default:
			b.dropped.Add(1)
			if b.logger != nil {
				b.logger.Warn("Dropping event for slow subscriber",
					slog.String("event_type", string(ev.Type)),
					slog.String("session_id", ev.SessionID),
				)
			}
		}
	}
}

// SubscriberCount returns the number of active subscribers
func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Dropped returns the total number of events dropped for slow subscribers
func (b *Bus) Dropped() uint64 {
	return b.dropped.Load()
}
