package storage

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orderstream-io/orderstream/internal/orders"
)

func sampleOrder(id string) orders.Order {
	return orders.Order{
		ID:        id,
		Status:    orders.StatusPending,
		Amount:    42.5,
		CreatedAt: 1700000000000,
		UpdatedAt: 1700000000000,
	}
}

func TestInMemoryOrderStore(t *testing.T) {
	t.Run("bulk insert and read back", func(t *testing.T) {
		store := NewInMemoryOrderStore()

		n := store.BulkInsert([]orders.Order{sampleOrder("a"), sampleOrder("b")})
		assert.Equal(t, 2, n)
		assert.Equal(t, 2, store.Len())

		got, ok := store.GetByID("a")
		require.True(t, ok)
		assert.Equal(t, "a", got.ID)
		assert.Equal(t, orders.StatusPending, got.Status)
	})

	t.Run("duplicate ids resolve last-writer-wins", func(t *testing.T) {
		store := NewInMemoryOrderStore()

		first := sampleOrder("dup")
		second := sampleOrder("dup")
		second.Amount = 99

		store.BulkInsert([]orders.Order{first, second})

		got, ok := store.GetByID("dup")
		require.True(t, ok)
		assert.InDelta(t, 99, got.Amount, 0)
		assert.Equal(t, 1, store.Len())
	})

	t.Run("missing id misses", func(t *testing.T) {
		store := NewInMemoryOrderStore()

		_, ok := store.GetByID("nope")
		assert.False(t, ok)
	})

	t.Run("update status rewrites status and bumps updatedAt", func(t *testing.T) {
		store := NewInMemoryOrderStore()
		store.BulkInsert([]orders.Order{sampleOrder("a")})

		updated, ok := store.UpdateStatus("a", orders.StatusCompleted)
		require.True(t, ok)

		assert.Equal(t, orders.StatusCompleted, updated.Status)
		assert.Greater(t, updated.UpdatedAt, int64(1700000000000))
		assert.GreaterOrEqual(t, updated.UpdatedAt, updated.CreatedAt)

		persisted, ok := store.GetByID("a")
		require.True(t, ok)
		assert.Equal(t, updated, persisted)
	})

	t.Run("update with unchanged status still refreshes updatedAt", func(t *testing.T) {
		store := NewInMemoryOrderStore()
		store.BulkInsert([]orders.Order{sampleOrder("a")})

		updated, ok := store.UpdateStatus("a", orders.StatusPending)
		require.True(t, ok)

		assert.Equal(t, orders.StatusPending, updated.Status)
		assert.Greater(t, updated.UpdatedAt, int64(1700000000000))
	})

	t.Run("update of absent id reports false", func(t *testing.T) {
		store := NewInMemoryOrderStore()

		_, ok := store.UpdateStatus("ghost", orders.StatusCompleted)
		assert.False(t, ok)
	})

	t.Run("snapshots are isolated from later mutations", func(t *testing.T) {
		store := NewInMemoryOrderStore()
		store.BulkInsert([]orders.Order{sampleOrder("a")})

		before, _ := store.GetByID("a")
		store.UpdateStatus("a", orders.StatusCompleted)

		assert.Equal(t, orders.StatusPending, before.Status)
	})

	t.Run("concurrent writers and readers", func(t *testing.T) {
		store := NewInMemoryOrderStore()

		var wg sync.WaitGroup

		for i := 0; i < 20; i++ {
			wg.Add(1)

			go func(n int) {
				defer wg.Done()

				id := fmt.Sprintf("order-%d", n)
				store.BulkInsert([]orders.Order{sampleOrder(id)})
				store.GetByID(id)
				store.UpdateStatus(id, orders.StatusProcessing)
			}(i)
		}

		wg.Wait()

		assert.Equal(t, 20, store.Len())
		assert.Len(t, store.GetAll(), 20)
	})
}
