package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/orderstream-io/orderstream/internal/api/middleware"
	"github.com/orderstream-io/orderstream/internal/orders"
)

// statusUpdateRequest is the body of a status update call.
type statusUpdateRequest struct {
	Status string `json:"status"`
}

// handleUpdateStatus rewrites the status of an existing order, invalidates and
// re-primes its cache entry, and publishes a status-changed event.
//
// The update is applied even when the new status equals the current one; the
// record still gets a fresh UpdatedAt and subscribers still see the event.
func (s *Server) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	correlationID := middleware.GetCorrelationID(r.Context())

	id := r.PathValue("id")
	if !orders.ValidateOrderID(id) {
		s.writeError(w, r, http.StatusBadRequest, "Invalid order ID format")

		return
	}

	var body statusUpdateRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, s.config.MaxRequestSize)).Decode(&body); err != nil {
		s.writeErrorDetail(w, r, http.StatusBadRequest, "Invalid JSON body", err.Error())

		return
	}

	status := orders.Status(body.Status)
	if !status.IsValid() {
		s.writeError(w, r, http.StatusBadRequest,
			"Valid status is required (PENDING, PROCESSING, COMPLETED, FAILED)")

		return
	}

	updated, ok := s.store.UpdateStatus(id, status)
	if !ok {
		s.writeError(w, r, http.StatusNotFound, notFoundMessage)

		return
	}

	// Invalidate before re-priming so a concurrent reader can never observe
	// the stale snapshot after the store write.
	s.orderCache.Invalidate(id)
	s.orderCache.Set(id, updated)

	s.bus.PublishStatusChanged(updated)

	s.logger.Info("Order status updated",
		slog.String("correlation_id", correlationID),
		slog.String("order_id", id),
		slog.String("status", string(status)),
	)

	s.writeJSON(w, r, http.StatusOK, updated)
}
