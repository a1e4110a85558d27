package notify

import (
	"sync"

	"ms-booking/internal/models"
)

// Handler receives a published notification. Handlers run synchronously in the
// publisher's goroutine; anything slow or blocking belongs behind a channel on the
// subscriber's side.
type Handler func(models.Notification)

// Subscription identifies a registered handler for later removal.
type Subscription struct {
	id uint64
}

type subscriber struct {
	id uint64
	fn Handler
}

// Bus is the process-wide in-memory publish/subscribe channel between producers
// (lifecycle manager, expiry scanner) and consumers (stream sessions). It is
// constructed once in main and injected wherever publish/subscribe access is needed.
type Bus struct {
	mu     sync.RWMutex
	nextID uint64
	subs   []subscriber
}

func NewBus() *Bus {
	return &Bus{}
}

// Subscribe registers fn and returns a handle for Unsubscribe. Delivery order
// between subscribers follows registration order.
func (b *Bus) Subscribe(fn Handler) Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	b.subs = append(b.subs, subscriber{id: b.nextID, fn: fn})
	return Subscription{id: b.nextID}
}

// Unsubscribe removes the handler registered under s. Safe to call more than once.
func (b *Bus) Unsubscribe(s Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, sub := range b.subs {
		if sub.id == s.id {
			b.subs = append(b.subs[:i], b.subs[i+1:]...)
			return
		}
	}
}

// Publish delivers n synchronously to every current subscriber in registration
// order. A panicking subscriber must not prevent delivery to the rest, so each
// callback runs under its own recover. There is no retry and no persistence here;
// durable history is the producer's job before it publishes.
func (b *Bus) Publish(n models.Notification) {
	b.mu.RLock()
	subs := make([]subscriber, len(b.subs))
	copy(subs, b.subs)
	b.mu.RUnlock()

	for _, sub := range subs {
		b.deliver(sub, n)
	}
}

func (b *Bus) deliver(sub subscriber, n models.Notification) {
	// One broken subscriber must not break fan-out to the rest.
	defer func() { _ = recover() }()
	sub.fn(n)
}

// SubscriberCount returns the number of currently registered subscribers.
func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
