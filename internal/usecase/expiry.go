package usecase

import (
	"context"
	"fmt"
	"log/slog"

	domainErrors "github.com/polkiloo/boxoffice/internal/domain/errors"
	"github.com/polkiloo/boxoffice/internal/domain/model"
	"github.com/polkiloo/boxoffice/internal/domain/repository"
)

// Expire cancels a pending order whose window has elapsed. It reports false
// for every other order so it can be called repeatedly.
func (l *OrderLifecycle) Expire(ctx context.Context, orderID int64) (bool, error) {
	now := l.now()
	var (
		order   *model.Order
		expired bool
	)
	err := l.transact(ctx, "expire order", func(f repository.Factory) error {
		expired = false
		var err error
		order, err = lockOrder(ctx, f, orderID, 0)
		if err != nil {
			return err
		}
		if order.Status != model.OrderStatusPending || !order.IsExpired(now) {
			return nil
		}
		if err := cancelOrder(ctx, f, order, model.CancelReasonExpired, now); err != nil {
			return err
		}
		expired = true
		return nil
	})
	if err != nil {
		return false, err
	}
	if expired {
		l.cancelled(ctx, order, now)
	}
	return expired, nil
}

// Complete records fulfilment of a paid order.
func (l *OrderLifecycle) Complete(ctx context.Context, orderID int64) (*model.Order, error) {
	now := l.now()
	var order *model.Order
	err := l.transact(ctx, "complete order", func(f repository.Factory) error {
		var err error
		order, err = lockOrder(ctx, f, orderID, 0)
		if err != nil {
			return err
		}
		switch order.Status {
		case model.OrderStatusCompleted:
			return nil
		case model.OrderStatusPaid:
		default:
			return fmt.Errorf("%w: order is %s", domainErrors.ErrInvalidStateTransition, order.Status)
		}
		if err := f.Orders().MarkCompleted(ctx, order.ID, now); err != nil {
			return err
		}
		order.Status = model.OrderStatusCompleted
		order.CompletedAt = &now
		order.UpdatedAt = now
		return nil
	})
	if err != nil {
		return nil, err
	}
	l.logger.Info("order completed", slog.Int64("order_id", order.ID))
	return order, nil
}

// DueForExpiry lists pending orders whose expiry has passed, oldest first.
func (l *OrderLifecycle) DueForExpiry(ctx context.Context, limit int) ([]int64, error) {
	now := l.now()
	var ids []int64
	err := l.transact(ctx, "list due orders", func(f repository.Factory) error {
		var err error
		ids, err = f.Orders().ListDueForExpiry(ctx, now, limit)
		return err
	})
	return ids, err
}
