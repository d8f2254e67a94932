package api

import (
	"net/http"
	"runtime"

	"github.com/orderstream-io/orderstream/internal/orders"
)

type (
	// HealthResponse is the system health envelope.
	HealthResponse struct {
		Status    string `json:"status"`
		Timestamp int64  `json:"timestamp"`
	}

	// MemoryResponse reports process memory statistics in bytes.
	MemoryResponse struct {
		RSS       uint64 `json:"rss"`
		HeapTotal uint64 `json:"heapTotal"`
		HeapUsed  uint64 `json:"heapUsed"`
	}

	// PerformanceResponse is the aggregated service performance snapshot.
	PerformanceResponse struct {
		LatencyMs         int64              `json:"latencyMs"`
		SystemHealth      int                `json:"systemHealth"`
		RequestsPerSecond int                `json:"requestsPerSecond"`
		RequestCount      int64              `json:"requestCount"`
		AvgResponseTimeMs int64              `json:"avgResponseTimeMs"`
		Uptime            int64              `json:"uptime"`
		MemoryUsage       orders.MemoryUsage `json:"memoryUsage"`
		Timestamp         int64              `json:"timestamp"`
	}
)

// handleSystemHealth reports liveness with the current server time.
func (s *Server) handleSystemHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, r, http.StatusOK, HealthResponse{
		Status:    "ok",
		Timestamp: orders.NowMillis(),
	})
}

// handleSystemMemory reports raw allocator statistics in bytes. RSS is
// approximated with the total bytes obtained from the OS.
func (s *Server) handleSystemMemory(w http.ResponseWriter, r *http.Request) {
	var stats runtime.MemStats

	runtime.ReadMemStats(&stats)

	s.writeJSON(w, r, http.StatusOK, MemoryResponse{
		RSS:       stats.Sys,
		HeapTotal: stats.HeapSys,
		HeapUsed:  stats.HeapAlloc,
	})
}

// handleSystemPerformance reports request counters, mean latency, uptime, and
// memory usage. SystemHealth is a constant 100 and RequestsPerSecond a
// constant 0: the service keeps monotone counters only, not windowed rates.
func (s *Server) handleSystemPerformance(w http.ResponseWriter, r *http.Request) {
	requestCount, _ := s.metrics.Snapshot()
	avgMillis := s.metrics.AverageMillis()

	s.writeJSON(w, r, http.StatusOK, PerformanceResponse{
		LatencyMs:         avgMillis,
		SystemHealth:      100,
		RequestsPerSecond: 0,
		RequestCount:      requestCount,
		AvgResponseTimeMs: avgMillis,
		Uptime:            s.uptimeSeconds(),
		MemoryUsage:       orders.ReadMemoryUsage(),
		Timestamp:         orders.NowMillis(),
	})
}
