package repository

import (
	"context"
	"errors"
)

// ErrRetryable marks storage conflicts that succeed when the whole transaction is replayed.
var ErrRetryable = errors.New("retryable storage conflict")

// Factory describes access to repositories bound to one transaction.
type Factory interface {
	Orders() OrderRepository
	Inventory() InventoryLedger
	Payments() PaymentRepository
	Tickets() TicketRepository
}

// Transactor runs fn with repositories sharing a single transaction.
// A non-nil error from fn rolls back every write made through the factory.
type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(Factory) error) error
}
