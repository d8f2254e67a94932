package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/orderstream-io/orderstream/internal/api/middleware"
	"github.com/orderstream-io/orderstream/internal/orders"
)

// BatchResponse is the success envelope for batch ingestion.
type BatchResponse struct {
	Success      bool                 `json:"success"`
	Total        int                  `json:"total"`
	Processed    int                  `json:"processed"`
	Failed       int                  `json:"failed"`
	Batches      int                  `json:"batches"`
	BatchResults []orders.ChunkResult `json:"batchResults"`
}

// handleIngestBatch accepts a JSON array of orders and pushes it through the
// chunked ingestion pipeline. Runs behind the idempotency gate, so every
// response written here - success or failure - is frozen under the request's
// Idempotency-Key.
func (s *Server) handleIngestBatch(w http.ResponseWriter, r *http.Request) {
	correlationID := middleware.GetCorrelationID(r.Context())

	var body any
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, s.config.MaxRequestSize)).Decode(&body); err != nil {
		s.writeErrorDetail(w, r, http.StatusBadRequest, "Invalid JSON body", err.Error())

		return
	}

	batch, err := orders.ValidateOrdersInput(body)
	if err != nil {
		statusCode := http.StatusBadRequest
		if errors.Is(err, orders.ErrTooManyOrders) {
			statusCode = http.StatusRequestEntityTooLarge
		}

		s.writeError(w, r, statusCode, err.Error())

		return
	}

	result, err := s.pipeline.Process(batch, s.config.BatchSize)
	if err != nil {
		// Unreachable with a validated server config; kept as a guard.
		s.writeError(w, r, http.StatusInternalServerError, err.Error())

		return
	}

	// Prime the read cache for the orders that made it into the store, so an
	// immediate read-after-write hits.
	for _, order := range batch {
		if stored, ok := s.store.GetByID(order.ID); ok {
			s.orderCache.Set(stored.ID, stored)
		}
	}

	s.logger.Info("Batch ingested",
		slog.String("correlation_id", correlationID),
		slog.Int("total", len(batch)),
		slog.Int("processed", result.TotalProcessed),
		slog.Int("failed", result.TotalFailed),
	)

	s.writeJSON(w, r, http.StatusCreated, BatchResponse{
		Success:      result.TotalFailed == 0,
		Total:        len(batch),
		Processed:    result.TotalProcessed,
		Failed:       result.TotalFailed,
		Batches:      len(result.Batches),
		BatchResults: result.Batches,
	})
}
