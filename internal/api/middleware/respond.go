package middleware

import (
	"encoding/json"
	"net/http"
)

// errorBody is the error envelope shared by every middleware-written error
// response: a human-readable message plus an optional machine-oriented detail.
type errorBody struct {
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

// writeJSONError writes a JSON error envelope with the given status code.
func writeJSONError(w http.ResponseWriter, statusCode int, message, detail string) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	return json.NewEncoder(w).Encode(errorBody{Message: message, Error: detail})
}
