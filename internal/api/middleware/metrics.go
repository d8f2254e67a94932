package middleware

import (
	"net/http"
	"sync"
	"time"
)

// MetricsCollector accumulates monotone request counters: total requests
// served and cumulative response latency. Safe for concurrent use.
type MetricsCollector struct {
	mu                sync.Mutex
	requestCount      int64
	totalResponseTime time.Duration
}

// NewMetricsCollector creates an empty collector.
func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{}
}

// Record adds one completed request with the given latency.
func (c *MetricsCollector) Record(latency time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.requestCount++
	c.totalResponseTime += latency
}

// Snapshot returns the current counters.
func (c *MetricsCollector) Snapshot() (requestCount int64, totalResponseTime time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.requestCount, c.totalResponseTime
}

// AverageMillis returns the mean response latency in whole milliseconds,
// rounded, or 0 when no requests have completed.
func (c *MetricsCollector) AverageMillis() int64 {
	count, total := c.Snapshot()
	if count == 0 {
		return 0
	}

	return (total / time.Duration(count)).Round(time.Millisecond).Milliseconds()
}

// Reset zeroes the counters. Test use only.
func (c *MetricsCollector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.requestCount = 0
	c.totalResponseTime = 0
}

// Metrics creates a middleware that stamps request start and records the
// elapsed time into the collector when the response completes.
func Metrics(collector *MetricsCollector) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			next.ServeHTTP(w, r)

			collector.Record(time.Since(start))
		})
	}
}
