// Package storage provides the in-memory order store and the TTL-bounded
// caches used by the OrderStream API.
package storage

import (
	"sync"

	"github.com/orderstream-io/orderstream/internal/orders"
)

// InMemoryOrderStore provides thread-safe, volatile storage for order records.
// It is the sole source of truth: caches hold read-only snapshots derived
// from it.
type InMemoryOrderStore struct {
	// byID maps order ids to records. Records are stored by value, so reads
	// hand out snapshots without extra copying.
	byID map[string]orders.Order
	// mutex protects concurrent access to the map
	mutex sync.RWMutex
}

// NewInMemoryOrderStore creates a new thread-safe in-memory order store.
func NewInMemoryOrderStore() *InMemoryOrderStore {
	return &InMemoryOrderStore{
		byID: make(map[string]orders.Order),
	}
}

// BulkInsert stores every order in the batch and returns the number of
// records written. Duplicate ids within one call resolve last-writer-wins;
// each id is written atomically under the store lock, so a partial record is
// never observable.
func (s *InMemoryOrderStore) BulkInsert(batch []orders.Order) int {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	for _, order := range batch {
		s.byID[order.ID] = order
	}

	return len(batch)
}

// GetByID retrieves a snapshot of an order by its id.
func (s *InMemoryOrderStore) GetByID(id string) (orders.Order, bool) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	order, exists := s.byID[id]

	return order, exists
}

// UpdateStatus rewrites the status of an existing order and stamps UpdatedAt
// with the current time, returning the new snapshot. Returns false if the id
// is absent.
//
// The write happens even when the new status equals the existing one: the
// record is refreshed and callers observing it see a bumped UpdatedAt.
func (s *InMemoryOrderStore) UpdateStatus(id string, status orders.Status) (orders.Order, bool) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	order, exists := s.byID[id]
	if !exists {
		return orders.Order{}, false
	}

	order.Status = status
	order.UpdatedAt = orders.NowMillis()

	s.byID[id] = order

	return order, true
}

// GetAll returns a snapshot of every stored order in unspecified order.
func (s *InMemoryOrderStore) GetAll() []orders.Order {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	all := make([]orders.Order, 0, len(s.byID))
	for _, order := range s.byID {
		all = append(all, order)
	}

	return all
}

// Len returns the number of stored orders.
func (s *InMemoryOrderStore) Len() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	return len(s.byID)
}

// Clear removes every stored order. Test use only.
func (s *InMemoryOrderStore) Clear() {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.byID = make(map[string]orders.Order)
}
