package storage

import (
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/orderstream-io/orderstream/internal/orders"
)

// Default order cache policy: entries live five minutes, the background
// sweeper removes expired entries every minute.
const (
	DefaultOrderCacheTTL   = 5 * time.Minute
	DefaultOrderCacheSweep = time.Minute
)

// CachedOrder is one order cache entry: a read-only snapshot plus the instant
// it was cached, from which entry age is derived.
type CachedOrder struct {
	Order    orders.Order
	CachedAt time.Time
}

// OrderCache is a TTL-bounded read cache over the order store. Entries expire
// after the configured TTL and a background janitor sweeps expired entries on
// a fixed interval; reads of an expired entry miss immediately regardless of
// the sweep schedule.
//
// The cache never owns order state: on any store mutation the entry for that
// id must be invalidated (and may be re-primed with the new snapshot).
type OrderCache struct {
	entries *gocache.Cache
	ttl     time.Duration
}

// NewOrderCache creates an order cache with the given entry TTL and sweeper
// interval. Non-positive arguments fall back to the defaults.
func NewOrderCache(ttl, sweepInterval time.Duration) *OrderCache {
	if ttl <= 0 {
		ttl = DefaultOrderCacheTTL
	}

	if sweepInterval <= 0 {
		sweepInterval = DefaultOrderCacheSweep
	}

	return &OrderCache{
		entries: gocache.New(ttl, sweepInterval),
		ttl:     ttl,
	}
}

// Get returns the live entry for id, or false when absent or expired.
func (c *OrderCache) Get(id string) (CachedOrder, bool) {
	raw, found := c.entries.Get(id)
	if !found {
		return CachedOrder{}, false
	}

	entry, ok := raw.(CachedOrder)
	if !ok {
		return CachedOrder{}, false
	}

	return entry, true
}

// Set primes the cache with a snapshot of order under the default TTL,
// stamping the cached-at instant.
func (c *OrderCache) Set(id string, order orders.Order) {
	c.SetWithTTL(id, order, c.ttl)
}

// SetWithTTL primes the cache with a snapshot of order under an explicit TTL.
func (c *OrderCache) SetWithTTL(id string, order orders.Order, ttl time.Duration) {
	c.entries.Set(id, CachedOrder{Order: order, CachedAt: time.Now()}, ttl)
}

// Invalidate removes the entry for id, if any.
func (c *OrderCache) Invalidate(id string) {
	c.entries.Delete(id)
}

// AgeSeconds returns the whole seconds elapsed since the live entry for id
// was cached, or false when there is no live entry.
func (c *OrderCache) AgeSeconds(id string) (int, bool) {
	entry, found := c.Get(id)
	if !found {
		return 0, false
	}

	return int(time.Since(entry.CachedAt).Seconds()), true
}

// Flush removes every entry. Test use only.
func (c *OrderCache) Flush() {
	c.entries.Flush()
}
