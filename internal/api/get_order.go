package api

import (
	"net/http"
	"strconv"

	"github.com/orderstream-io/orderstream/internal/orders"
	"github.com/orderstream-io/orderstream/internal/storage"
)

// Cache observability headers on single-order reads.
const (
	cacheStatusHeader = "X-Cache"
	cacheAgeHeader    = "X-Cache-Age"
	cacheHit          = "HIT"
	cacheMiss         = "MISS"
)

// handleGetOrder serves a single order by id, read-through cached.
//
// A cache hit reports X-Cache: HIT with the entry age in seconds; a miss reads
// the store, primes the cache, and reports X-Cache: MISS. Concurrent misses
// for the same id collapse into a single store read.
func (s *Server) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if !orders.ValidateOrderID(id) {
		s.writeError(w, r, http.StatusBadRequest, "Invalid order ID format")

		return
	}

	if entry, ok := s.orderCache.Get(id); ok {
		w.Header().Set(cacheStatusHeader, cacheHit)

		if age, ok := s.orderCache.AgeSeconds(id); ok {
			w.Header().Set(cacheAgeHeader, strconv.Itoa(age))
		}

		s.writeJSON(w, r, http.StatusOK, entry.Order)

		return
	}

	// singleflight keys on the order id, so a stampede of misses for one id
	// costs one store read and one cache prime.
	result, err, _ := s.fillGroup.Do(id, func() (any, error) {
		order, exists := s.store.GetByID(id)
		if !exists {
			return nil, nil
		}

		s.orderCache.Set(id, order)

		return storage.CachedOrder{Order: order}, nil
	})
	if err != nil || result == nil {
		s.writeError(w, r, http.StatusNotFound, notFoundMessage)

		return
	}

	entry, ok := result.(storage.CachedOrder)
	if !ok {
		s.writeError(w, r, http.StatusNotFound, notFoundMessage)

		return
	}

	w.Header().Set(cacheStatusHeader, cacheMiss)
	s.writeJSON(w, r, http.StatusOK, entry.Order)
}
