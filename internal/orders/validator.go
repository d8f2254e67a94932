package orders

import (
	"errors"
	"math"
	"regexp"
)

// MaxOrdersPerRequest bounds the number of orders accepted in one batch request.
const MaxOrdersPerRequest = 1000

// Stress harness configuration bounds.
const (
	DefaultStressOrderCount    = 1000
	DefaultStressBatchSize     = 100
	MaxStressOrderCount        = 10000
	MaxStressBatchSize         = 1000
	MaxStressConcurrentBatches = 10
)

// Batch input diagnostics. The exact text is part of the wire contract: these
// strings are surfaced verbatim in error response bodies.
var (
	ErrBodyNotArray    = errors.New("Body must be an array")
	ErrEmptyOrders     = errors.New("Orders array cannot be empty")
	ErrItemsNotObjects = errors.New("All items must be objects")
	ErrInvalidID       = errors.New("All orders must have a valid id (string)")
	ErrInvalidStatus   = errors.New("All orders must have a valid status (string)")
	ErrInvalidAmount   = errors.New("All orders must have a valid amount (number)")
	ErrTooManyOrders   = errors.New("Maximum 1000 orders allowed per request")
)

// Batch size and stress config diagnostics.
var (
	ErrInvalidBatchSize  = errors.New("Batch size must be between 1 and 1000")
	ErrBodyNotObject     = errors.New("Body must be an object")
	ErrStressOrderCount  = errors.New("orderCount must be a number between 1 and 10000")
	ErrStressBatchSize   = errors.New("batchSize must be a number between 1 and 1000")
	ErrStressConcurrency = errors.New("concurrentBatches must be a number between 1 and 10")
)

// orderIDPattern validates order ids and idempotency keys: 1-128 characters of
// [A-Za-z0-9_-]. Compiled once at package initialization.
var orderIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,128}$`)

// ValidateOrder reports whether o is a well-formed order record: non-empty id,
// a valid status, a finite non-negative amount, and positive timestamps.
//
// Note the id format pattern is deliberately not enforced here; the batch
// pipeline accepts any non-empty id, matching the route-level contract where
// only path parameters are pattern-checked.
func ValidateOrder(o Order) bool {
	if o.ID == "" {
		return false
	}

	if !o.Status.IsValid() {
		return false
	}

	if math.IsNaN(o.Amount) || math.IsInf(o.Amount, 0) || o.Amount < 0 {
		return false
	}

	return o.CreatedAt > 0 && o.UpdatedAt > 0
}

// ValidateOrdersInput validates a decoded JSON request body and maps it to a
// slice of Order values.
//
// The body must be a non-empty array of objects, each carrying id (string),
// status (string), and amount (number). Timestamps are mapped through when
// present; semantic per-order validation (status set membership, amount range,
// positive timestamps) is the pipeline's job via ValidateOrder.
//
// Returns ErrTooManyOrders when the batch exceeds MaxOrdersPerRequest; callers
// map that to a 413 response, every other diagnostic to a 400.
func ValidateOrdersInput(body any) ([]Order, error) {
	items, ok := body.([]any)
	if !ok {
		return nil, ErrBodyNotArray
	}

	if len(items) == 0 {
		return nil, ErrEmptyOrders
	}

	if len(items) > MaxOrdersPerRequest {
		return nil, ErrTooManyOrders
	}

	batch := make([]Order, 0, len(items))

	for _, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			return nil, ErrItemsNotObjects
		}

		id, ok := obj["id"].(string)
		if !ok || id == "" {
			return nil, ErrInvalidID
		}

		status, ok := obj["status"].(string)
		if !ok {
			return nil, ErrInvalidStatus
		}

		amount, ok := obj["amount"].(float64)
		if !ok {
			return nil, ErrInvalidAmount
		}

		batch = append(batch, Order{
			ID:        id,
			Status:    Status(status),
			Amount:    amount,
			CreatedAt: int64(numberField(obj, "createdAt")),
			UpdatedAt: int64(numberField(obj, "updatedAt")),
		})
	}

	return batch, nil
}

// numberField extracts an optional numeric field from a decoded JSON object.
// Missing or non-numeric fields yield zero, which ValidateOrder later rejects.
func numberField(obj map[string]any, key string) float64 {
	n, _ := obj[key].(float64)

	return n
}

// ValidateBatchSize validates a pipeline chunk size.
func ValidateBatchSize(n int) error {
	if n < 1 || n > MaxOrdersPerRequest {
		return ErrInvalidBatchSize
	}

	return nil
}

// ValidateOrderID reports whether s is a well-formed order id:
// 1-128 alphanumeric characters, hyphens, or underscores.
func ValidateOrderID(s string) bool {
	return orderIDPattern.MatchString(s)
}

// StressConfig configures one stress harness run.
type StressConfig struct {
	OrderCount        int `json:"orderCount"`
	BatchSize         int `json:"batchSize"`
	ConcurrentBatches int `json:"concurrentBatches"`
}

// ValidateStressInput validates a decoded stress-test request body and applies
// defaults: orderCount 1000 in [1, 10000], batchSize 100 in [1, 1000],
// concurrentBatches 1 in [1, 10]. A nil body yields the full defaults.
func ValidateStressInput(body any) (StressConfig, error) {
	cfg := StressConfig{
		OrderCount:        DefaultStressOrderCount,
		BatchSize:         DefaultStressBatchSize,
		ConcurrentBatches: 1,
	}

	if body == nil {
		return cfg, nil
	}

	obj, ok := body.(map[string]any)
	if !ok {
		return StressConfig{}, ErrBodyNotObject
	}

	var err error

	if cfg.OrderCount, err = intField(obj, "orderCount", cfg.OrderCount, 1, MaxStressOrderCount, ErrStressOrderCount); err != nil {
		return StressConfig{}, err
	}

	if cfg.BatchSize, err = intField(obj, "batchSize", cfg.BatchSize, 1, MaxStressBatchSize, ErrStressBatchSize); err != nil {
		return StressConfig{}, err
	}

	if cfg.ConcurrentBatches, err = intField(obj, "concurrentBatches", cfg.ConcurrentBatches, 1, MaxStressConcurrentBatches, ErrStressConcurrency); err != nil {
		return StressConfig{}, err
	}

	return cfg, nil
}

// intField extracts an optional integral JSON number bounded by [min, max].
func intField(obj map[string]any, key string, defaultValue, min, max int, diag error) (int, error) {
	raw, present := obj[key]
	if !present {
		return defaultValue, nil
	}

	f, ok := raw.(float64)
	if !ok || f != math.Trunc(f) {
		return 0, diag
	}

	n := int(f)
	if n < min || n > max {
		return 0, diag
	}

	return n, nil
}
