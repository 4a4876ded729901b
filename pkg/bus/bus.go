// Package bus implements an in-process publish/subscribe event bus: a
// single topic carrying every stage event, fanned out to bounded
// per-subscriber queues with drop-oldest overflow semantics.
package bus

import (
	"errors"
	"sync"

	"github.com/orbitdesk/ticketrouter/pkg/models"
)

// ErrBusClosed is returned by Subscribe once the bus has been closed.
var ErrBusClosed = errors.New("bus: closed")

// DefaultQueueCapacity is the default bound on a subscriber's event queue.
const DefaultQueueCapacity = 256

// Bus is a single-topic publish/subscribe broadcaster. Publish is
// non-blocking for the producer: a full subscriber queue drops its oldest
// queued event rather than stalling the publisher.
type Bus struct {
	mu     sync.RWMutex
	subs   map[int64]*subscription
	nextID int64
	closed bool
}

// Subscription is the caller's handle on a live subscription: Events
// delivers published events in publication order; Drops reports the
// monotonically-increasing count of events dropped due to queue overflow.
type Subscription struct {
	Events <-chan models.Event

	id  int64
	sub *subscription
	bus *Bus
}

type subscription struct {
	mu       sync.Mutex
	queue    []models.Event
	capacity int
	drops    uint64
	notify   chan struct{}
	ch       chan models.Event
	done     chan struct{}
}

// New creates an empty, open Bus.
func New() *Bus {
	return &Bus{subs: make(map[int64]*subscription)}
}

// Subscribe registers a new subscriber with a bounded FIFO queue of the
// given capacity (DefaultQueueCapacity if capacity <= 0). Returns
// ErrBusClosed if the bus has been closed.
func (b *Bus) Subscribe(capacity int) (*Subscription, error) {
	if capacity <= 0 {
		capacity = DefaultQueueCapacity
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, ErrBusClosed
	}

	sub := &subscription{
		capacity: capacity,
		notify:   make(chan struct{}, 1),
		ch:       make(chan models.Event),
		done:     make(chan struct{}),
	}
	id := b.nextID
	b.nextID++
	b.subs[id] = sub

	go sub.pump()

	return &Subscription{Events: sub.ch, id: id, sub: sub, bus: b}, nil
}

// pump delivers queued events to ch in FIFO order, waking on notify.
func (sub *subscription) pump() {
	for {
		sub.mu.Lock()
		for len(sub.queue) == 0 {
			sub.mu.Unlock()
			select {
			case <-sub.notify:
			case <-sub.done:
				return
			}
			sub.mu.Lock()
		}
		next := sub.queue[0]
		sub.queue = sub.queue[1:]
		sub.mu.Unlock()

		select {
		case sub.ch <- next:
		case <-sub.done:
			return
		}
	}
}

// enqueue appends an event, dropping the oldest queued event on overflow.
func (sub *subscription) enqueue(e models.Event) {
	sub.mu.Lock()
	if len(sub.queue) >= sub.capacity {
		sub.queue = sub.queue[1:]
		sub.drops++
	}
	sub.queue = append(sub.queue, e)
	sub.mu.Unlock()

	select {
	case sub.notify <- struct{}{}:
	default:
	}
}

// Drops returns the number of events dropped for this subscription so far.
func (s *Subscription) Drops() uint64 {
	s.sub.mu.Lock()
	defer s.sub.mu.Unlock()
	return s.sub.drops
}

// Unsubscribe releases the subscription's queue. Idempotent.
func (s *Subscription) Unsubscribe() {
	s.bus.mu.Lock()
	if _, ok := s.bus.subs[s.id]; ok {
		delete(s.bus.subs, s.id)
	}
	s.bus.mu.Unlock()

	select {
	case <-s.sub.done:
	default:
		close(s.sub.done)
	}
}

// Publish fans an event out to every current subscriber. Non-blocking: a
// publish to a closed bus is a no-op.
func (b *Bus) Publish(e models.Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}
	for _, sub := range b.subs {
		sub.enqueue(e)
	}
}

// Close marks the bus closed. Further Subscribe calls fail with
// ErrBusClosed and further Publish calls are no-ops. Existing subscriptions
// keep draining their already-queued events.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
}
