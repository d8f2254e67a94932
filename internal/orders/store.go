package orders

// Store defines the interface for order persistence.
//
// The domain package defines this interface to specify what it needs for order
// storage without depending on concrete implementations. The in-memory
// implementation lives in internal/storage.
//
// Implementations must be safe for concurrent use: every method is atomic with
// respect to any single order id, and a partially written record is never
// observable.
type Store interface {
	// BulkInsert stores the given orders and returns the number of records
	// written. Duplicate ids within a single call resolve last-writer-wins.
	BulkInsert(batch []Order) int

	// GetByID returns a snapshot of the order with the given id.
	GetByID(id string) (Order, bool)

	// UpdateStatus rewrites the status of an existing order and stamps
	// UpdatedAt with the current time, returning the new snapshot. The write
	// happens even when the status value is unchanged; callers relying on
	// no-op short-circuits must implement them above the store.
	UpdateStatus(id string, status Status) (Order, bool)

	// GetAll returns a snapshot of every stored order in unspecified order.
	GetAll() []Order

	// Len returns the number of stored orders.
	Len() int

	// Clear removes every stored order. Test use only.
	Clear()
}

// EventPublisher is the event fan-out surface the pipeline and handlers need.
// The in-process bus in internal/eventbus implements it.
type EventPublisher interface {
	PublishCreated(o Order)
	PublishUpdated(o Order)
	PublishStatusChanged(o Order)
}
