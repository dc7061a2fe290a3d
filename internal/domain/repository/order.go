package repository

import (
	"context"
	"time"

	"github.com/polkiloo/boxoffice/internal/domain/model"
)

// OrderRepository describes persistence operations with orders.
// Mark* updates are guarded by the expected current status and report ErrNotFound
// when no row matched.
type OrderRepository interface {
	Create(ctx context.Context, order *model.Order) error
	GetByID(ctx context.Context, id int64) (*model.Order, error)
	GetForUpdate(ctx context.Context, id int64) (*model.Order, error)
	GetByNumberForUpdate(ctx context.Context, number string) (*model.Order, error)
	MarkPaid(ctx context.Context, id int64, at time.Time) error
	MarkCancelled(ctx context.Context, id int64, reason string, at time.Time) error
	MarkCompleted(ctx context.Context, id int64, at time.Time) error
	ListDueForExpiry(ctx context.Context, now time.Time, limit int) ([]int64, error)
}
