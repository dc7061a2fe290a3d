package repository

import (
	"context"
	"time"

	"github.com/polkiloo/boxoffice/internal/domain/model"
)

// PaymentRepository stores gateway attempts.
type PaymentRepository interface {
	Create(ctx context.Context, attempt *model.PaymentAttempt) error
	Active(ctx context.Context, orderID int64) (*model.PaymentAttempt, error)
	GetByReference(ctx context.Context, reference string) (*model.PaymentAttempt, error)
	SupersedeActive(ctx context.Context, orderID int64, at time.Time) error
	Resolve(ctx context.Context, id int64, outcome model.PaymentOutcome, transactionRef string, raw []byte, at time.Time) error
	FailPending(ctx context.Context, orderID int64, at time.Time) error
}

// TicketRepository issues admission codes.
type TicketRepository interface {
	Issue(ctx context.Context, tickets []model.IssuedTicket) error
	ListByOrder(ctx context.Context, orderID int64) ([]model.IssuedTicket, error)
	CountByOrder(ctx context.Context, orderID int64) (int, error)
}
