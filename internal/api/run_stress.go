package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/orderstream-io/orderstream/internal/api/middleware"
	"github.com/orderstream-io/orderstream/internal/orders"
)

// handleStressTest runs the synthetic load harness through the real ingestion
// pipeline. The request body is optional; absent fields take the harness
// defaults.
func (s *Server) handleStressTest(w http.ResponseWriter, r *http.Request) {
	correlationID := middleware.GetCorrelationID(r.Context())

	var body any

	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, s.config.MaxRequestSize)).Decode(&body)
	if err != nil && !errors.Is(err, io.EOF) {
		s.writeErrorDetail(w, r, http.StatusBadRequest, "Invalid JSON body", err.Error())

		return
	}

	cfg, err := orders.ValidateStressInput(body)
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, err.Error())

		return
	}

	s.logger.Info("Stress test starting",
		slog.String("correlation_id", correlationID),
		slog.Int("order_count", cfg.OrderCount),
		slog.Int("batch_size", cfg.BatchSize),
		slog.Int("concurrent_batches", cfg.ConcurrentBatches),
	)

	result := s.harness.Run(r.Context(), cfg)

	s.writeJSON(w, r, http.StatusOK, result)
}
