package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/orderstream-io/orderstream/internal/api/middleware"
	"github.com/orderstream-io/orderstream/internal/eventbus"
	"github.com/orderstream-io/orderstream/internal/orders"
	"github.com/orderstream-io/orderstream/internal/storage"
)

// Dependencies carries the wired collaborators the server operates on.
// Construction happens in main; the server only consumes interfaces and
// ready-made components.
type Dependencies struct {
	Store       orders.Store
	OrderCache  *storage.OrderCache
	ReplayCache middleware.ReplayCache
	Bus         *eventbus.Bus
	RateLimiter middleware.RateLimiter
	Metrics     *middleware.MetricsCollector
	Logger      *slog.Logger
}

// Server is the OrderStream HTTP server.
type Server struct {
	config *ServerConfig
	server *http.Server
	logger *slog.Logger

	store       orders.Store
	orderCache  *storage.OrderCache
	replayCache middleware.ReplayCache
	bus         *eventbus.Bus
	pipeline    *orders.Pipeline
	harness     *orders.Harness
	metrics     *middleware.MetricsCollector
	rateLimiter middleware.RateLimiter

	// fillGroup collapses concurrent cache-miss lookups for the same order id
	// into a single store read.
	fillGroup singleflight.Group

	startTime time.Time
}

// NewServer creates a new HTTP server with the given configuration and
// dependencies.
func NewServer(cfg *ServerConfig, deps Dependencies) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid server config: %w", err)
	}

	s := &Server{
		config:      cfg,
		logger:      deps.Logger,
		store:       deps.Store,
		orderCache:  deps.OrderCache,
		replayCache: deps.ReplayCache,
		bus:         deps.Bus,
		metrics:     deps.Metrics,
		rateLimiter: deps.RateLimiter,
		startTime:   time.Now(),
	}

	s.pipeline = orders.NewPipeline(deps.Store, deps.Bus, deps.Logger)
	// Live stream subscriptions are exactly the bus's live subscribers.
	s.harness = orders.NewHarness(s.pipeline, deps.Bus, deps.Logger)

	mux := http.NewServeMux()
	s.registerRoutes(mux)

	handler := middleware.Apply(mux,
		middleware.WithCorrelationID(),
		middleware.WithRecovery(deps.Logger),
		middleware.WithCORS(cfg.ToCORSConfig()),
		middleware.WithRateLimit(deps.RateLimiter, deps.Logger),
		middleware.WithMetrics(deps.Metrics),
		middleware.WithRequestLogger(deps.Logger),
	)

	// No WriteTimeout: the SSE stream endpoint holds its response open for
	// the lifetime of the subscription.
	s.server = &http.Server{
		Addr:        cfg.Address(),
		Handler:     handler,
		ReadTimeout: cfg.ReadTimeout,
	}

	return s, nil
}

// Handler exposes the fully wired handler chain for httptest-based tests.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start starts the HTTP server and blocks until shutdown.
// Returns when the server stops or an error occurs.
func (s *Server) Start() error {
	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, os.Interrupt, syscall.SIGTERM)

	errCh := make(chan error, 1)

	go func() {
		s.logger.Info("Starting OrderStream server",
			slog.String("address", s.config.Address()),
			slog.Int("default_batch_size", s.config.BatchSize),
		)

		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("server failed: %w", err)
		}
	}()

	select {
	case err := <-errCh:
		return err
	case sig := <-shutdownCh:
		s.logger.Info("Shutdown signal received", slog.String("signal", sig.String()))

		return s.shutdown()
	}
}

// shutdown gracefully stops the server and releases owned resources.
func (s *Server) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	// Drop stream subscribers before tearing down shared components so no
	// publication races the closes below.
	s.bus.ClearAll()

	if closer, ok := s.rateLimiter.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			s.logger.Warn("Failed to close rate limiter", slog.String("error", err.Error()))
		}
	}

	s.logger.Info("Server stopped")

	return nil
}

// uptimeSeconds reports whole seconds since the server was constructed.
func (s *Server) uptimeSeconds() int64 {
	return int64(time.Since(s.startTime).Seconds())
}
