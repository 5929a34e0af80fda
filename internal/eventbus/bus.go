package eventbus

import "sync"

// subscriberBuffer bounds how far a subscriber may lag before it is
// detached. Grounded on the teacher's non-blocking broadcast-or-drop
// pattern for read subscribers, escalated here to a full detach since a
// permanently slow WS socket should not silently miss data forever.
const subscriberBuffer = 256

// Subscription is a live handle a caller drains for events. Closed once the
// Bus detaches it, either on Unsubscribe or because the subscriber could
// not keep up.
type Subscription struct {
	ch     chan Event
	bus    *Bus
	id     uint64
	closed bool
	mu     sync.Mutex
}

// Events returns the channel to range over. It is closed when the
// subscription ends.
func (s *Subscription) Events() <-chan Event { return s.ch }

// Unsubscribe detaches the subscription. Safe to call more than once.
func (s *Subscription) Unsubscribe() {
	s.bus.remove(s.id)
}

// Bus is a publish/subscribe fan-out with at-most-once, non-blocking
// delivery: a subscriber that falls behind is detached and closed rather
// than allowed to block publication for everyone else.
type Bus struct {
	mu        sync.Mutex
	nextID    uint64
	observers map[uint64]*Subscription
}

// NewBus builds an empty Bus.
func NewBus() *Bus {
	return &Bus{observers: make(map[uint64]*Subscription)}
}

// Subscribe attaches a new subscriber, which receives every event published
// after this call returns — there is no backlog replay.
func (b *Bus) Subscribe() *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	sub := &Subscription{ch: make(chan Event, subscriberBuffer), bus: b, id: b.nextID}
	b.observers[sub.id] = sub
	return sub
}

func (b *Bus) remove(id uint64) {
	b.mu.Lock()
	sub, ok := b.observers[id]
	if ok {
		delete(b.observers, id)
	}
	b.mu.Unlock()

	if !ok {
		return
	}
	sub.mu.Lock()
	if !sub.closed {
		sub.closed = true
		close(sub.ch)
	}
	sub.mu.Unlock()
}

// Publish delivers event to every current subscriber; the order across
// subscribers is not defined. A subscriber whose buffer is full is detached
// and closed instead of blocking this call.
func (b *Bus) Publish(event Event) {
	b.mu.Lock()
	subs := make([]*Subscription, 0, len(b.observers))
	for _, sub := range b.observers {
		subs = append(subs, sub)
	}
	b.mu.Unlock()

	for _, sub := range subs {
		select {
		case sub.ch <- event:
		default:
			b.remove(sub.id)
		}
	}
}

// Close detaches and closes every current subscriber.
func (b *Bus) Close() {
	b.mu.Lock()
	ids := make([]uint64, 0, len(b.observers))
	for id := range b.observers {
		ids = append(ids, id)
	}
	b.mu.Unlock()

	for _, id := range ids {
		b.remove(id)
	}
}
