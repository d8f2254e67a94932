package orders_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orderstream-io/orderstream/internal/eventbus"
	"github.com/orderstream-io/orderstream/internal/orders"
	"github.com/orderstream-io/orderstream/internal/storage"
)

func newHarness(t *testing.T) (*orders.Harness, *storage.InMemoryOrderStore, *eventbus.Bus) {
	t.Helper()

	store := storage.NewInMemoryOrderStore()
	bus := eventbus.New(testLogger())
	pipeline := orders.NewPipeline(store, bus, testLogger())

	return orders.NewHarness(pipeline, bus, testLogger()), store, bus
}

func TestHarnessRun(t *testing.T) {
	t.Run("ingests the configured number of synthetic orders", func(t *testing.T) {
		harness, store, _ := newHarness(t)

		result := harness.Run(context.Background(), orders.StressConfig{
			OrderCount:        250,
			BatchSize:         40,
			ConcurrentBatches: 1,
		})

		assert.True(t, result.Success)
		assert.Equal(t, 250, result.TotalOrders)
		assert.Equal(t, 250, result.Processed)
		assert.Equal(t, 0, result.Failed)
		assert.GreaterOrEqual(t, result.Duration, int64(1))
		assert.Greater(t, result.OrdersPerSecond, 0.0)
		assert.Greater(t, result.AverageLatency, 0.0)
		assert.Greater(t, result.Timestamp, int64(0))
		assert.Greater(t, result.MemoryUsage.HeapUsed, 0.0)

		assert.Equal(t, 250, store.Len())
	})

	t.Run("concurrent shards store every order exactly once", func(t *testing.T) {
		harness, store, _ := newHarness(t)

		result := harness.Run(context.Background(), orders.StressConfig{
			OrderCount:        400,
			BatchSize:         50,
			ConcurrentBatches: 4,
		})

		assert.True(t, result.Success)
		assert.Equal(t, 400, result.Processed)
		assert.Equal(t, 400, store.Len())
	})

	t.Run("synthetic ids carry the stress prefix", func(t *testing.T) {
		harness, store, _ := newHarness(t)

		harness.Run(context.Background(), orders.StressConfig{
			OrderCount:        10,
			BatchSize:         10,
			ConcurrentBatches: 1,
		})

		for _, order := range store.GetAll() {
			assert.True(t, strings.HasPrefix(order.ID, "stress-"), "id %q", order.ID)
			assert.True(t, orders.ValidateOrder(order))
		}
	})

	t.Run("reports live subscriber count", func(t *testing.T) {
		harness, _, bus := newHarness(t)

		unsubscribe := bus.Subscribe(func(orders.Event) error { return nil })
		defer unsubscribe()

		result := harness.Run(context.Background(), orders.StressConfig{
			OrderCount:        5,
			BatchSize:         5,
			ConcurrentBatches: 1,
		})

		assert.Equal(t, 1, result.ActiveConnections)
	})
}

func TestReadMemoryUsage(t *testing.T) {
	usage := orders.ReadMemoryUsage()

	require.Greater(t, usage.HeapUsed, 0.0)
	assert.GreaterOrEqual(t, usage.HeapTotal, usage.HeapUsed)
	assert.GreaterOrEqual(t, usage.RSS, usage.HeapTotal)
}
