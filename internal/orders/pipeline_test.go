package orders_test

import (
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orderstream-io/orderstream/internal/eventbus"
	"github.com/orderstream-io/orderstream/internal/orders"
	"github.com/orderstream-io/orderstream/internal/storage"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func validOrder(id string) orders.Order {
	return orders.Order{
		ID:        id,
		Status:    orders.StatusPending,
		Amount:    10,
		CreatedAt: 1,
		UpdatedAt: 1,
	}
}

func newPipeline(t *testing.T) (*orders.Pipeline, *storage.InMemoryOrderStore, *eventbus.Bus) {
	t.Helper()

	store := storage.NewInMemoryOrderStore()
	bus := eventbus.New(testLogger())

	return orders.NewPipeline(store, bus, testLogger()), store, bus
}

func TestPipelineProcess(t *testing.T) {
	t.Run("splits batch into chunks and stores every order", func(t *testing.T) {
		pipeline, store, _ := newPipeline(t)

		batch := make([]orders.Order, 5)
		for i := range batch {
			batch[i] = validOrder(fmt.Sprintf("order-%d", i))
		}

		result, err := pipeline.Process(batch, 2)
		require.NoError(t, err)

		assert.Equal(t, 5, result.TotalProcessed)
		assert.Equal(t, 0, result.TotalFailed)
		require.Len(t, result.Batches, 3)

		// Chunk sizes 2, 2, 1 with ascending indices.
		assert.Equal(t, 0, result.Batches[0].BatchIndex)
		assert.Equal(t, 2, result.Batches[0].Processed)
		assert.Equal(t, 2, result.Batches[2].BatchIndex)
		assert.Equal(t, 1, result.Batches[2].Processed)

		assert.Equal(t, 5, store.Len())
	})

	t.Run("isolates per-order failures", func(t *testing.T) {
		pipeline, store, _ := newPipeline(t)

		bad := validOrder("B")
		bad.Amount = -1

		result, err := pipeline.Process([]orders.Order{validOrder("A"), bad, validOrder("C")}, 2)
		require.NoError(t, err)

		assert.Equal(t, 2, result.TotalProcessed)
		assert.Equal(t, 1, result.TotalFailed)
		require.Len(t, result.Batches, 2)

		require.Len(t, result.Batches[0].Errors, 1)
		assert.Contains(t, result.Batches[0].Errors[0], "Order B")
		assert.Contains(t, result.Batches[0].Errors[0], "Invalid order data")

		// The valid orders landed despite the failure in their chunk.
		_, ok := store.GetByID("A")
		assert.True(t, ok)
		_, ok = store.GetByID("C")
		assert.True(t, ok)
		_, ok = store.GetByID("B")
		assert.False(t, ok)
	})

	t.Run("publishes one created event per stored order in input order", func(t *testing.T) {
		pipeline, _, bus := newPipeline(t)

		var seen []string

		unsubscribe := bus.Subscribe(func(event orders.Event) error {
			assert.Equal(t, orders.EventOrderCreated, event.Kind)
			seen = append(seen, event.Order.ID)

			return nil
		})
		defer unsubscribe()

		bad := validOrder("skip")
		bad.Status = "UNKNOWN"

		_, err := pipeline.Process([]orders.Order{validOrder("a"), bad, validOrder("b")}, 10)
		require.NoError(t, err)

		assert.Equal(t, []string{"a", "b"}, seen)
	})

	t.Run("rejects invalid chunk size", func(t *testing.T) {
		pipeline, _, _ := newPipeline(t)

		_, err := pipeline.Process([]orders.Order{validOrder("a")}, 0)
		assert.ErrorIs(t, err, orders.ErrInvalidBatchSize)

		_, err = pipeline.Process([]orders.Order{validOrder("a")}, 1001)
		assert.ErrorIs(t, err, orders.ErrInvalidBatchSize)
	})

	t.Run("empty batch yields empty result", func(t *testing.T) {
		pipeline, _, _ := newPipeline(t)

		result, err := pipeline.Process(nil, 10)
		require.NoError(t, err)

		assert.Equal(t, 0, result.TotalProcessed)
		assert.Equal(t, 0, result.TotalFailed)
		assert.Empty(t, result.Batches)
	})
}
