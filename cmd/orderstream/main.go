// OrderStream is an in-memory order batch ingestion service: chunked batch
// writes, cached reads, idempotent retries, and a live order event stream
// over Server-Sent Events.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/orderstream-io/orderstream/internal/api"
	"github.com/orderstream-io/orderstream/internal/api/middleware"
	"github.com/orderstream-io/orderstream/internal/eventbus"
	"github.com/orderstream-io/orderstream/internal/storage"
)

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("orderstream %s\n", version)

		return
	}

	cfg := api.LoadServerConfig()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))
	slog.SetDefault(logger)

	store := storage.NewInMemoryOrderStore()
	orderCache := storage.NewOrderCache(cfg.OrderCacheTTL, cfg.OrderCacheSweep)
	replayCache := storage.NewIdempotencyCache(cfg.IdempotencyTTL, cfg.IdempotencySweep)
	bus := eventbus.New(logger)
	rateLimiter := middleware.NewInMemoryRateLimiter(middleware.LoadConfig())

	server, err := api.NewServer(cfg, api.Dependencies{
		Store:       store,
		OrderCache:  orderCache,
		ReplayCache: replayCache,
		Bus:         bus,
		RateLimiter: rateLimiter,
		Metrics:     middleware.NewMetricsCollector(),
		Logger:      logger,
	})
	if err != nil {
		logger.Error("Failed to create server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("OrderStream starting", slog.String("version", version))

	if err := server.Start(); err != nil {
		logger.Error("Server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
