package middleware

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"runtime/debug"
)

// IdempotencyKeyHeader is the HTTP header carrying the client's idempotency
// key. Header lookup is case-insensitive per net/http canonicalization.
const IdempotencyKeyHeader = "Idempotency-Key"

// idempotencyKeyPattern constrains keys to 1-128 alphanumeric characters,
// hyphens, or underscores.
var idempotencyKeyPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,128}$`)

// ReplayCache freezes terminal responses per idempotency key. The concrete
// implementation lives in internal/storage; the middleware defines the
// interface it needs, mirroring the RateLimiter pattern.
type ReplayCache interface {
	// Get returns the frozen (statusCode, body) for key, if present and live.
	Get(key string) (statusCode int, body []byte, ok bool)

	// Set freezes a terminal response under key.
	Set(key string, statusCode int, body []byte)
}

// idempotencyKeyCtx is the context key under which the validated
// Idempotency-Key travels to the handler.
type idempotencyKeyCtx struct{}

// GetIdempotencyKey extracts the validated idempotency key from the request
// context. Only set on requests that passed the gate on a cache miss.
func GetIdempotencyKey(ctx context.Context) (string, bool) {
	key, ok := ctx.Value(idempotencyKeyCtx{}).(string)

	return key, ok
}

// Idempotency creates the idempotency gate applied to the batch endpoint.
//
// The gate:
//  1. Rejects requests without an Idempotency-Key header (400).
//  2. Rejects malformed keys (400).
//  3. Replays the frozen (statusCode, body) verbatim on a cache hit without
//     invoking the handler.
//  4. On a miss, records the downstream response (whatever its status,
//     including validation failures and recovered panics) and freezes it
//     under the key, so every retry observes the identical outcome.
func Idempotency(cache ReplayCache, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			correlationID := GetCorrelationID(r.Context())

			key := r.Header.Get(IdempotencyKeyHeader)
			if key == "" {
				_ = writeJSONError(w, http.StatusBadRequest,
					"Idempotency-Key header is required",
					"Missing required header: Idempotency-Key")

				return
			}

			if !idempotencyKeyPattern.MatchString(key) {
				_ = writeJSONError(w, http.StatusBadRequest,
					"Invalid idempotency key format. Must be 1-128 alphanumeric characters, hyphens, or underscores.", "")

				return
			}

			if statusCode, body, ok := cache.Get(key); ok {
				logger.Info("Idempotent replay",
					slog.String("correlation_id", correlationID),
					slog.String("idempotency_key", key),
					slog.Int("status_code", statusCode),
				)

				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(statusCode)

				if _, err := w.Write(body); err != nil {
					logger.Error("Failed to write replayed response",
						slog.String("correlation_id", correlationID),
						slog.String("error", err.Error()),
					)
				}

				return
			}

			recorder := &recordingWriter{ResponseWriter: w, statusCode: http.StatusOK}
			ctx := context.WithValue(r.Context(), idempotencyKeyCtx{}, key)

			// Recover here rather than relying on the outer recovery
			// middleware: a panic unwinding past this frame would skip the
			// recorder, and the resulting 500 must be frozen too.
			func() {
				defer func() {
					if rec := recover(); rec != nil {
						logger.Error("Batch handler panic recovered",
							slog.String("correlation_id", correlationID),
							slog.String("idempotency_key", key),
							slog.Any("panic", rec),
							slog.String("stack_trace", string(debug.Stack())),
						)

						_ = writeJSONErrorTo(recorder, http.StatusInternalServerError,
							"Internal server error", fmt.Sprintf("%v", rec))
					}
				}()

				next.ServeHTTP(recorder, r.WithContext(ctx))
			}()

			cache.Set(key, recorder.statusCode, recorder.body.Bytes())

			logger.Debug("Idempotent response cached",
				slog.String("correlation_id", correlationID),
				slog.String("idempotency_key", key),
				slog.Int("status_code", recorder.statusCode),
			)
		})
	}
}

// writeJSONErrorTo is writeJSONError against an already-wrapped writer.
// Split out so the panic path records through the same recorder.
func writeJSONErrorTo(w http.ResponseWriter, statusCode int, message, detail string) error {
	return writeJSONError(w, statusCode, message, detail)
}

// recordingWriter tees the response body into a buffer while writing through,
// so the terminal (statusCode, body) pair can be frozen for replay.
type recordingWriter struct {
	http.ResponseWriter

	statusCode int
	body       bytes.Buffer
}

func (rw *recordingWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *recordingWriter) Write(p []byte) (int, error) {
	rw.body.Write(p)

	return rw.ResponseWriter.Write(p)
}
