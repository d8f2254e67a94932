// Package orders provides the order domain model, validation, and the batch
// ingestion pipeline.
//
// This package defines the Store interface which represents what the domain
// needs for order persistence, following the Dependency Inversion Principle.
// The concrete in-memory implementation lives in the internal/storage package.
package orders

import "time"

// Status is the closed set of order lifecycle states.
type Status string

// Valid order statuses.
const (
	StatusPending    Status = "PENDING"
	StatusProcessing Status = "PROCESSING"
	StatusCompleted  Status = "COMPLETED"
	StatusFailed     Status = "FAILED"
)

// Statuses lists every valid status in declaration order.
// Used by the stress harness to randomize synthetic orders.
var Statuses = []Status{StatusPending, StatusProcessing, StatusCompleted, StatusFailed}

// IsValid reports whether s is one of the four order statuses.
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusCompleted, StatusFailed:
		return true
	default:
		return false
	}
}

// Order represents a single customer order record.
//
// Timestamps are epoch milliseconds. UpdatedAt is rewritten on every status
// mutation and is never older than CreatedAt for store-owned records.
type Order struct {
	ID        string  `json:"id"`
	Status    Status  `json:"status"`
	Amount    float64 `json:"amount"`
	CreatedAt int64   `json:"createdAt"`
	UpdatedAt int64   `json:"updatedAt"`
}

// EventKind tags an order lifecycle event. The kind doubles as the SSE event
// name on the stream endpoint.
type EventKind string

// Order lifecycle event kinds.
const (
	EventOrderCreated       EventKind = "order.created"
	EventOrderUpdated       EventKind = "order.updated"
	EventOrderStatusChanged EventKind = "order.status_changed"
)

// Event is a tagged order lifecycle event carrying a snapshot of the order at
// publish time and an epoch-millisecond timestamp.
type Event struct {
	Kind      EventKind `json:"kind"`
	Order     Order     `json:"order"`
	Timestamp int64     `json:"timestamp"`
}

// NowMillis returns the current time as epoch milliseconds.
func NowMillis() int64 {
	return time.Now().UnixMilli()
}
