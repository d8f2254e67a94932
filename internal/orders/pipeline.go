package orders

import (
	"fmt"
	"log/slog"
)

type (
	// ChunkResult aggregates the outcome of one pipeline chunk.
	// Errors is omitted from serialized output when empty.
	ChunkResult struct {
		BatchIndex int      `json:"batchIndex"`
		Processed  int      `json:"processed"`
		Failed     int      `json:"failed"`
		Errors     []string `json:"errors,omitempty"`
	}

	// PipelineResult aggregates every chunk of one batch ingestion call.
	PipelineResult struct {
		TotalProcessed int
		TotalFailed    int
		Batches        []ChunkResult
	}

	// Pipeline ingests validated order batches: it splits the input into
	// contiguous chunks, processes chunks strictly sequentially, and publishes
	// one created event per successfully inserted order.
	//
	// Per-order failures are isolated: a bad order is counted and recorded in
	// its chunk's error list, and iteration continues. The pipeline never
	// fails the request because of an individual order.
	Pipeline struct {
		store  Store
		events EventPublisher
		logger *slog.Logger
	}
)

// NewPipeline creates a batch ingestion pipeline bound to a store and an
// event publisher.
func NewPipeline(store Store, events EventPublisher, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		store:  store,
		events: events,
		logger: logger,
	}
}

// Process ingests batch using contiguous chunks of chunkSize (the last chunk
// may be short). Orders are processed in input order, so created events reach
// any given subscriber in the same order the orders appeared in the request.
//
// Returns an error only when chunkSize is invalid; order-level failures are
// reported through the result.
func (p *Pipeline) Process(batch []Order, chunkSize int) (*PipelineResult, error) {
	if err := ValidateBatchSize(chunkSize); err != nil {
		return nil, err
	}

	chunkCount := (len(batch) + chunkSize - 1) / chunkSize
	result := &PipelineResult{
		Batches: make([]ChunkResult, 0, chunkCount),
	}

	for index := 0; index < chunkCount; index++ {
		start := index * chunkSize

		end := start + chunkSize
		if end > len(batch) {
			end = len(batch)
		}

		chunk := p.processChunk(index, batch[start:end])

		result.TotalProcessed += chunk.Processed
		result.TotalFailed += chunk.Failed
		result.Batches = append(result.Batches, chunk)
	}

	p.logger.Info("Batch processed",
		slog.Int("orders", len(batch)),
		slog.Int("chunks", chunkCount),
		slog.Int("processed", result.TotalProcessed),
		slog.Int("failed", result.TotalFailed),
	)

	return result, nil
}

// processChunk ingests one contiguous chunk, order by order.
func (p *Pipeline) processChunk(index int, chunk []Order) ChunkResult {
	result := ChunkResult{BatchIndex: index}

	for _, order := range chunk {
		if !ValidateOrder(order) {
			result.Failed++
			result.Errors = append(result.Errors, fmt.Sprintf("Order %s: Invalid order data", order.ID))

			continue
		}

		if err := p.insertOne(order); err != nil {
			result.Failed++
			result.Errors = append(result.Errors, fmt.Sprintf("Order %s: %v", order.ID, err))

			p.logger.Warn("Order insertion failed",
				slog.String("order_id", order.ID),
				slog.String("error", err.Error()),
			)

			continue
		}

		result.Processed++
	}

	return result
}

// insertOne stores a single order and publishes its created event.
// A failure in one order must not abort the containing chunk, so panics from
// the store or publisher are converted into per-order errors.
func (p *Pipeline) insertOne(order Order) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("insert failed: %v", r)
		}
	}()

	p.store.BulkInsert([]Order{order})
	p.events.PublishCreated(order)

	return nil
}
