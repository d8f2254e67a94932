package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/orderstream-io/orderstream/internal/api/middleware"
	"github.com/orderstream-io/orderstream/internal/orders"
)

// sseWriter serializes frame writes for one stream connection. The bus
// delivery goroutine and the heartbeat ticker both write to the same response,
// so frames must not interleave.
type sseWriter struct {
	mu      sync.Mutex
	w       http.ResponseWriter
	flusher http.Flusher
}

// writeFrame writes one complete SSE frame and flushes it.
func (s *sseWriter) writeFrame(frame string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := fmt.Fprint(s.w, frame); err != nil {
		return err
	}

	s.flusher.Flush()

	return nil
}

// handleStreamOrders serves the live order event stream over Server-Sent
// Events. Every order mutation fans out to all connected clients; a client
// whose connection can no longer be written to is dropped from the bus.
func (s *Server) handleStreamOrders(w http.ResponseWriter, r *http.Request) {
	correlationID := middleware.GetCorrelationID(r.Context())

	flusher, ok := w.(http.Flusher)
	if !ok {
		s.writeError(w, r, http.StatusInternalServerError, "Streaming unsupported")

		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	// Disable proxy buffering so frames reach the client immediately.
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	conn := &sseWriter{w: w, flusher: flusher}

	if err := conn.writeFrame(": connected\n\n"); err != nil {
		return
	}

	unsubscribe := s.bus.Subscribe(func(event orders.Event) error {
		data, err := json.Marshal(event)
		if err != nil {
			return fmt.Errorf("marshal event: %w", err)
		}

		return conn.writeFrame(fmt.Sprintf("event: %s\ndata: %s\n\n", event.Kind, data))
	})
	defer unsubscribe()

	s.logger.Info("Stream client connected",
		slog.String("correlation_id", correlationID),
		slog.Int("active_streams", s.bus.ActiveCount()),
	)

	heartbeat := time.NewTicker(s.config.SSEHeartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			s.logger.Info("Stream client disconnected",
				slog.String("correlation_id", correlationID),
			)

			return
		case <-heartbeat.C:
			if err := conn.writeFrame(": heartbeat\n\n"); err != nil {
				return
			}
		}
	}
}
