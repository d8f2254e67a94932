package orders

import (
	"context"
	"log/slog"
	"math"
	"math/rand/v2"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const bytesPerMB = 1024 * 1024

type (
	// MemoryUsage reports process heap statistics in megabytes.
	MemoryUsage struct {
		HeapUsed  float64 `json:"heapUsed"`
		HeapTotal float64 `json:"heapTotal"`
		RSS       float64 `json:"rss"`
	}

	// StressResult is the envelope returned by one stress harness run.
	// Duration and AverageLatency are milliseconds.
	StressResult struct {
		Success           bool        `json:"success"`
		TotalOrders       int         `json:"totalOrders"`
		Processed         int         `json:"processed"`
		Failed            int         `json:"failed"`
		Duration          int64       `json:"duration"`
		OrdersPerSecond   float64     `json:"ordersPerSecond"`
		AverageLatency    float64     `json:"averageLatency"`
		MemoryUsage       MemoryUsage `json:"memoryUsage"`
		ActiveConnections int         `json:"activeConnections"`
		Timestamp         int64       `json:"timestamp"`
	}

	// ConnectionCounter reports the number of live event subscribers.
	ConnectionCounter interface {
		ActiveCount() int
	}

	// Harness synthesizes order load and pushes it through the ingestion
	// pipeline, reporting throughput and memory. It reuses the production
	// pipeline, so stress orders land in the real store and fan out real
	// created events.
	Harness struct {
		pipeline    *Pipeline
		connections ConnectionCounter
		logger      *slog.Logger
	}
)

// NewHarness creates a stress harness over the given pipeline.
func NewHarness(pipeline *Pipeline, connections ConnectionCounter, logger *slog.Logger) *Harness {
	return &Harness{
		pipeline:    pipeline,
		connections: connections,
		logger:      logger,
	}
}

// Run generates cfg.OrderCount synthetic orders and ingests them with the
// configured chunk size. With ConcurrentBatches > 1 the synthetic orders are
// split into that many contiguous shards processed concurrently.
//
// The envelope is always returned; a pipeline failure reports zero processed
// and the full order count as failed.
func (h *Harness) Run(ctx context.Context, cfg StressConfig) *StressResult {
	batch := h.generateOrders(cfg.OrderCount)
	start := time.Now()

	processed, failed, err := h.ingest(ctx, batch, cfg)
	if err != nil {
		h.logger.Error("Stress run pipeline failure",
			slog.Int("order_count", cfg.OrderCount),
			slog.String("error", err.Error()),
		)

		processed, failed = 0, cfg.OrderCount
	}

	duration := time.Since(start)

	durationMillis := duration.Milliseconds()
	if durationMillis < 1 {
		durationMillis = 1
	}

	batchCount := (cfg.OrderCount + cfg.BatchSize - 1) / cfg.BatchSize

	h.logger.Info("Stress run completed",
		slog.Int("order_count", cfg.OrderCount),
		slog.Int("batch_size", cfg.BatchSize),
		slog.Int("concurrent_batches", cfg.ConcurrentBatches),
		slog.Int("processed", processed),
		slog.Int("failed", failed),
		slog.Duration("duration", duration),
	)

	return &StressResult{
		Success:           failed == 0,
		TotalOrders:       cfg.OrderCount,
		Processed:         processed,
		Failed:            failed,
		Duration:          durationMillis,
		OrdersPerSecond:   roundTo(float64(cfg.OrderCount)/(float64(durationMillis)/1000), 2),
		AverageLatency:    roundTo(float64(durationMillis)/float64(batchCount), 2),
		MemoryUsage:       ReadMemoryUsage(),
		ActiveConnections: h.connections.ActiveCount(),
		Timestamp:         NowMillis(),
	}
}

// ingest pushes the synthetic batch through the pipeline, fanning out across
// shards when concurrency is requested.
func (h *Harness) ingest(ctx context.Context, batch []Order, cfg StressConfig) (processed, failed int, err error) {
	if cfg.ConcurrentBatches <= 1 {
		result, err := h.pipeline.Process(batch, cfg.BatchSize)
		if err != nil {
			return 0, 0, err
		}

		return result.TotalProcessed, result.TotalFailed, nil
	}

	group, _ := errgroup.WithContext(ctx)

	var mu sync.Mutex

	shardSize := (len(batch) + cfg.ConcurrentBatches - 1) / cfg.ConcurrentBatches

	for start := 0; start < len(batch); start += shardSize {
		end := start + shardSize
		if end > len(batch) {
			end = len(batch)
		}

		shard := batch[start:end]

		group.Go(func() error {
			result, err := h.pipeline.Process(shard, cfg.BatchSize)
			if err != nil {
				return err
			}

			mu.Lock()
			processed += result.TotalProcessed
			failed += result.TotalFailed
			mu.Unlock()

			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return 0, 0, err
	}

	return processed, failed, nil
}

// generateOrders synthesizes n valid orders with unique ids and randomized
// status and amount.
func (h *Harness) generateOrders(n int) []Order {
	now := NowMillis()
	batch := make([]Order, n)

	for i := range batch {
		batch[i] = Order{
			ID:        "stress-" + uuid.NewString(),
			Status:    Statuses[rand.IntN(len(Statuses))],
			Amount:    roundTo(rand.Float64()*1000, 2),
			CreatedAt: now,
			UpdatedAt: now,
		}
	}

	return batch
}

// ReadMemoryUsage samples the Go runtime allocator. RSS approximates resident
// memory with the total bytes obtained from the OS.
func ReadMemoryUsage() MemoryUsage {
	var stats runtime.MemStats

	runtime.ReadMemStats(&stats)

	return MemoryUsage{
		HeapUsed:  roundTo(float64(stats.HeapAlloc)/bytesPerMB, 2),
		HeapTotal: roundTo(float64(stats.HeapSys)/bytesPerMB, 2),
		RSS:       roundTo(float64(stats.Sys)/bytesPerMB, 2),
	}
}

// roundTo rounds v to the given number of decimal places.
func roundTo(v float64, places int) float64 {
	factor := math.Pow(10, float64(places))

	return math.Round(v*factor) / factor
}
