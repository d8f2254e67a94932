// Package eventbus provides the in-process order event bus: a registry of
// live subscriber callbacks with ordered, synchronous fan-out.
package eventbus

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/orderstream-io/orderstream/internal/orders"
)

type (
	// Handler receives one published event. Returning an error removes the
	// subscriber from the live set; it is never invoked again.
	Handler func(event orders.Event) error

	// Bus fans order events out to N subscribers.
	//
	// Delivery is synchronous relative to the publishing call and there is no
	// internal queue, so a slow subscriber slows its publisher but can never
	// cause unbounded buffering inside the bus. Subscribers are delivered to
	// in registration order; a handler that fails or panics is dropped and
	// iteration continues with the remaining subscribers.
	Bus struct {
		mu     sync.Mutex
		subs   []*subscriber
		nextID uint64
		logger *slog.Logger
	}

	// subscriber is one live subscription. The alive flag lets a concurrent
	// unsubscribe take effect without waiting for the registry lock held by
	// an in-flight publish.
	subscriber struct {
		id      uint64
		handler Handler
		alive   atomic.Bool
	}
)

// New creates an event bus.
func New(logger *slog.Logger) *Bus {
	return &Bus{logger: logger}
}

// Subscribe registers a handler and returns the only way to detach it.
// The returned function is idempotent.
func (b *Bus) Subscribe(handler Handler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	sub := &subscriber{id: b.nextID, handler: handler}
	sub.alive.Store(true)

	b.subs = append(b.subs, sub)

	return func() {
		b.remove(sub)
	}
}

// Publish delivers event to every live subscriber in registration order.
// A handler error or panic removes that subscriber; the event is never
// re-delivered.
//
// Delivery completion does not imply client receipt: transports behind the
// handlers may still buffer.
func (b *Bus) Publish(event orders.Event) {
	b.mu.Lock()
	snapshot := make([]*subscriber, len(b.subs))
	copy(snapshot, b.subs)
	b.mu.Unlock()

	for _, sub := range snapshot {
		if !sub.alive.Load() {
			continue
		}

		if err := deliver(sub.handler, event); err != nil {
			b.logger.Warn("Dropping event subscriber after delivery failure",
				slog.Uint64("subscriber_id", sub.id),
				slog.String("kind", string(event.Kind)),
				slog.String("error", err.Error()),
			)

			b.remove(sub)
		}
	}
}

// deliver invokes a handler, converting a panic into a delivery error so one
// bad subscriber cannot fail the publisher.
func deliver(handler Handler, event orders.Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("subscriber panic: %v", r)
		}
	}()

	return handler(event)
}

// remove detaches a subscriber from the live set.
func (b *Bus) remove(sub *subscriber) {
	if !sub.alive.CompareAndSwap(true, false) {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	for i, candidate := range b.subs {
		if candidate.id == sub.id {
			b.subs = append(b.subs[:i], b.subs[i+1:]...)

			break
		}
	}
}

// ActiveCount returns the current number of live subscribers.
func (b *Bus) ActiveCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return len(b.subs)
}

// ClearAll detaches every subscriber. Test use only.
func (b *Bus) ClearAll() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, sub := range b.subs {
		sub.alive.Store(false)
	}

	b.subs = nil
}

// PublishCreated publishes an order.created event stamped with the current
// time.
func (b *Bus) PublishCreated(order orders.Order) {
	b.Publish(orders.Event{Kind: orders.EventOrderCreated, Order: order, Timestamp: orders.NowMillis()})
}

// PublishUpdated publishes an order.updated event stamped with the current
// time.
func (b *Bus) PublishUpdated(order orders.Order) {
	b.Publish(orders.Event{Kind: orders.EventOrderUpdated, Order: order, Timestamp: orders.NowMillis()})
}

// PublishStatusChanged publishes an order.status_changed event stamped with
// the current time.
func (b *Bus) PublishStatusChanged(order orders.Order) {
	b.Publish(orders.Event{Kind: orders.EventOrderStatusChanged, Order: order, Timestamp: orders.NowMillis()})
}
