package eventbus

import (
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orderstream-io/orderstream/internal/orders"
)

func newTestBus() *Bus {
	return New(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func testEvent(id string) orders.Event {
	return orders.Event{
		Kind:      orders.EventOrderCreated,
		Order:     orders.Order{ID: id, Status: orders.StatusPending, Amount: 1, CreatedAt: 1, UpdatedAt: 1},
		Timestamp: orders.NowMillis(),
	}
}

func TestBusSubscribePublish(t *testing.T) {
	t.Run("delivers to every subscriber in registration order", func(t *testing.T) {
		bus := newTestBus()

		var delivered []string

		bus.Subscribe(func(orders.Event) error {
			delivered = append(delivered, "first")

			return nil
		})
		bus.Subscribe(func(orders.Event) error {
			delivered = append(delivered, "second")

			return nil
		})

		bus.Publish(testEvent("a"))

		assert.Equal(t, []string{"first", "second"}, delivered)
	})

	t.Run("publish with no subscribers is a no-op", func(t *testing.T) {
		bus := newTestBus()

		bus.Publish(testEvent("a"))

		assert.Equal(t, 0, bus.ActiveCount())
	})

	t.Run("failing subscriber is dropped, others keep receiving", func(t *testing.T) {
		bus := newTestBus()

		var healthy int

		bus.Subscribe(func(orders.Event) error {
			return errors.New("connection gone")
		})
		bus.Subscribe(func(orders.Event) error {
			healthy++

			return nil
		})

		bus.Publish(testEvent("a"))
		bus.Publish(testEvent("b"))

		assert.Equal(t, 2, healthy)
		assert.Equal(t, 1, bus.ActiveCount())
	})

	t.Run("panicking subscriber is dropped without failing the publisher", func(t *testing.T) {
		bus := newTestBus()

		bus.Subscribe(func(orders.Event) error {
			panic("boom")
		})

		require.NotPanics(t, func() {
			bus.Publish(testEvent("a"))
		})

		assert.Equal(t, 0, bus.ActiveCount())
	})

	t.Run("unsubscribe is idempotent", func(t *testing.T) {
		bus := newTestBus()

		var delivered int

		unsubscribe := bus.Subscribe(func(orders.Event) error {
			delivered++

			return nil
		})

		assert.Equal(t, 1, bus.ActiveCount())

		unsubscribe()
		unsubscribe()

		assert.Equal(t, 0, bus.ActiveCount())

		bus.Publish(testEvent("a"))
		assert.Equal(t, 0, delivered)
	})

	t.Run("clear all detaches everyone", func(t *testing.T) {
		bus := newTestBus()

		bus.Subscribe(func(orders.Event) error { return nil })
		bus.Subscribe(func(orders.Event) error { return nil })

		bus.ClearAll()

		assert.Equal(t, 0, bus.ActiveCount())
	})

	t.Run("concurrent publish and subscribe is safe", func(t *testing.T) {
		bus := newTestBus()

		var wg sync.WaitGroup

		for i := 0; i < 10; i++ {
			wg.Add(2)

			go func() {
				defer wg.Done()

				unsubscribe := bus.Subscribe(func(orders.Event) error { return nil })
				defer unsubscribe()
			}()

			go func() {
				defer wg.Done()

				bus.Publish(testEvent("a"))
			}()
		}

		wg.Wait()
		assert.Equal(t, 0, bus.ActiveCount())
	})
}

func TestBusConveniencePublishers(t *testing.T) {
	bus := newTestBus()

	var kinds []orders.EventKind

	bus.Subscribe(func(event orders.Event) error {
		kinds = append(kinds, event.Kind)

		assert.Equal(t, "o1", event.Order.ID)
		assert.Greater(t, event.Timestamp, int64(0))

		return nil
	})

	order := orders.Order{ID: "o1", Status: orders.StatusPending, Amount: 1, CreatedAt: 1, UpdatedAt: 1}

	bus.PublishCreated(order)
	bus.PublishUpdated(order)
	bus.PublishStatusChanged(order)

	assert.Equal(t, []orders.EventKind{
		orders.EventOrderCreated,
		orders.EventOrderUpdated,
		orders.EventOrderStatusChanged,
	}, kinds)
}
