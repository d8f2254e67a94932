package api

import (
	"net/http"

	"github.com/orderstream-io/orderstream/internal/api/middleware"
)

// Route path constants.
const (
	pingPath  = "GET /ping"
	readyPath = "GET /ready"

	batchPath        = "POST /api/orders/batch"
	streamPath       = "GET /api/orders/stream"
	getOrderPath     = "GET /api/orders/{id}"
	updateStatusPath = "PUT /api/orders/{id}/status"
	stressPath       = "POST /api/orders/stress-test"

	systemHealthPath      = "GET /api/system/health"
	systemMemoryPath      = "GET /api/system/memory"
	systemPerformancePath = "GET /api/system/performance"
)

func init() {
	// Liveness probes bypass rate limiting so orchestrator health checks
	// never see a 429.
	middleware.RegisterPublicEndpoint("/ping")
	middleware.RegisterPublicEndpoint("/ready")
	middleware.RegisterPublicEndpoint("/api/system/health")
}

// registerRoutes wires all HTTP routes. The Go 1.22 mux routes the literal
// /api/orders/stream segment ahead of the /api/orders/{id} wildcard, so the
// two patterns coexist without conflict.
func (s *Server) registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc(pingPath, s.handlePing)
	mux.HandleFunc(readyPath, s.handleReady)

	// The idempotency gate wraps only the batch endpoint; replays must not
	// interfere with reads or status updates.
	mux.Handle(batchPath,
		middleware.Idempotency(s.replayCache, s.logger)(http.HandlerFunc(s.handleIngestBatch)))

	mux.HandleFunc(streamPath, s.handleStreamOrders)
	mux.HandleFunc(getOrderPath, s.handleGetOrder)
	mux.HandleFunc(updateStatusPath, s.handleUpdateStatus)
	mux.HandleFunc(stressPath, s.handleStressTest)

	mux.HandleFunc(systemHealthPath, s.handleSystemHealth)
	mux.HandleFunc(systemMemoryPath, s.handleSystemMemory)
	mux.HandleFunc(systemPerformancePath, s.handleSystemPerformance)

	mux.HandleFunc("/", s.handleNotFound)
}

// handlePing responds to liveness probes.
func (s *Server) handlePing(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}

// handleReady responds to readiness probes. The service has no external
// dependencies to await; it is ready as soon as it serves.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, r, http.StatusOK, map[string]string{"status": "ready"})
}

// handleNotFound is the catch-all for unmatched paths.
func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	s.writeError(w, r, http.StatusNotFound, notFoundMessage)
}
