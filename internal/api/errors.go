package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/orderstream-io/orderstream/internal/api/middleware"
)

// ErrorResponse is the error envelope for every non-2xx response:
// a human-readable message plus an optional machine-oriented detail.
type ErrorResponse struct {
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

// writeJSON marshals v and writes it with the given status code.
// Marshaling happens before headers are sent so an encoding failure can still
// produce a clean 500.
func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, statusCode int, v any) {
	correlationID := middleware.GetCorrelationID(r.Context())

	data, err := json.Marshal(v)
	if err != nil {
		s.logger.Error("Failed to marshal response",
			slog.String("correlation_id", correlationID),
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)

		http.Error(w, "Internal server error", http.StatusInternalServerError)

		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if _, err := w.Write(data); err != nil {
		// Headers already sent, log only
		s.logger.Error("Failed to write response",
			slog.String("correlation_id", correlationID),
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
	}
}

// writeError writes the standard error envelope.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, statusCode int, message string) {
	s.writeJSON(w, r, statusCode, ErrorResponse{Message: message})
}

// writeErrorDetail writes the standard error envelope with a detail field.
func (s *Server) writeErrorDetail(w http.ResponseWriter, r *http.Request, statusCode int, message, detail string) {
	s.writeJSON(w, r, statusCode, ErrorResponse{Message: message, Error: detail})
}

// notFound is the literal body used for unknown order ids.
const notFoundMessage = "Not found"
