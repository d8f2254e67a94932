package storage

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Default idempotency cache policy: cached responses live 24 hours, the
// background sweeper removes expired entries every hour.
const (
	DefaultIdempotencyTTL   = 24 * time.Hour
	DefaultIdempotencySweep = time.Hour
)

// CachedResponse freezes one terminal HTTP response for replay: status code
// and body bytes, plus the instant it was stored.
type CachedResponse struct {
	StatusCode int
	Body       []byte
	StoredAt   time.Time
}

// IdempotencyCache is a TTL-bounded mapping from idempotency key to a frozen
// response. Replays return the stored status code and body byte-identically,
// including cached error responses; that property is what makes client
// retries safe.
//
// TTL expiry is the only memory bound; there is no hard entry cap.
type IdempotencyCache struct {
	entries *gocache.Cache
}

// NewIdempotencyCache creates an idempotency cache with the given entry TTL
// and sweeper interval. Non-positive arguments fall back to the defaults.
func NewIdempotencyCache(ttl, sweepInterval time.Duration) *IdempotencyCache {
	if ttl <= 0 {
		ttl = DefaultIdempotencyTTL
	}

	if sweepInterval <= 0 {
		sweepInterval = DefaultIdempotencySweep
	}

	return &IdempotencyCache{
		entries: gocache.New(ttl, sweepInterval),
	}
}

// Get returns the frozen response for key, or false when absent or expired.
func (c *IdempotencyCache) Get(key string) (statusCode int, body []byte, ok bool) {
	raw, found := c.entries.Get(key)
	if !found {
		return 0, nil, false
	}

	entry, valid := raw.(CachedResponse)
	if !valid {
		return 0, nil, false
	}

	return entry.StatusCode, entry.Body, true
}

// Set freezes a terminal response under key. The body is copied, so callers
// may reuse their buffer.
func (c *IdempotencyCache) Set(key string, statusCode int, body []byte) {
	frozen := make([]byte, len(body))
	copy(frozen, body)

	c.entries.SetDefault(key, CachedResponse{
		StatusCode: statusCode,
		Body:       frozen,
		StoredAt:   time.Now(),
	})
}

// Flush removes every entry. Test use only.
func (c *IdempotencyCache) Flush() {
	c.entries.Flush()
}
