package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	domainErrors "github.com/polkiloo/boxoffice/internal/domain/errors"
	"github.com/polkiloo/boxoffice/internal/domain/model"
	"github.com/polkiloo/boxoffice/internal/domain/repository"
)

const sandboxTransactionRef = "sandbox"

// HandleCallback applies a gateway notification. The payload is verified by
// the gateway adapter before any field is trusted. Duplicate success
// callbacks are acknowledged without further effects.
func (l *OrderLifecycle) HandleCallback(ctx context.Context, raw []byte) error {
	cb, err := l.gateway.ParseCallback(raw)
	if err != nil {
		l.metrics.CallbackRejected(ctx)
		l.logger.Warn("gateway callback rejected",
			slog.String("payload", string(raw)),
			slog.String("error", err.Error()))
		if errors.Is(err, domainErrors.ErrInvalidCallback) {
			return err
		}
		return fmt.Errorf("%w: %v", domainErrors.ErrInvalidCallback, err)
	}

	now := l.now()
	var (
		order    *model.Order
		paid     bool
		rejected error
	)
	err = l.transact(ctx, "payment callback", func(f repository.Factory) error {
		paid, rejected = false, nil

		var err error
		order, err = f.Orders().GetByNumberForUpdate(ctx, cb.OrderNumber)
		if err != nil {
			if errors.Is(err, domainErrors.ErrNotFound) {
				return domainErrors.ErrOrderNotFound
			}
			return err
		}
		attempt, err := f.Payments().GetByReference(ctx, cb.AttemptRef)
		if err != nil {
			if errors.Is(err, domainErrors.ErrNotFound) {
				return fmt.Errorf("%w: unknown attempt %s", domainErrors.ErrInvalidCallback, cb.AttemptRef)
			}
			return err
		}
		if attempt.OrderID != order.ID {
			return fmt.Errorf("%w: attempt %s belongs to another order", domainErrors.ErrInvalidCallback, cb.AttemptRef)
		}

		switch attempt.Outcome {
		case model.PaymentPending:
		case model.PaymentSuccess:
			if order.Status == model.OrderStatusPaid || order.Status == model.OrderStatusCompleted {
				return nil
			}
			rejected = fmt.Errorf("%w: attempt already resolved", domainErrors.ErrInvalidStateTransition)
			return nil
		case model.PaymentSuperseded:
			if attempt.RawCallback == nil {
				if err := f.Payments().Resolve(ctx, attempt.ID, model.PaymentSuperseded, cb.TransactionRef, cb.Raw, now); err != nil {
					return err
				}
			}
			rejected = fmt.Errorf("%w: attempt superseded", domainErrors.ErrInvalidStateTransition)
			return nil
		default:
			if cb.Outcome == model.PaymentSuccess {
				l.logger.Error("payment received for closed attempt",
					slog.String("order_number", order.Number),
					slog.String("attempt_ref", attempt.Reference),
					slog.String("transaction_ref", cb.TransactionRef),
					slog.String("order_status", string(order.Status)))
			}
			rejected = fmt.Errorf("%w: attempt is %s", domainErrors.ErrInvalidStateTransition, attempt.Outcome)
			return nil
		}

		if cb.Amount != order.Total {
			return fmt.Errorf("%w: amount %d does not match order total %d", domainErrors.ErrInvalidCallback, cb.Amount, order.Total)
		}
		if cb.Outcome == model.PaymentFailure {
			return f.Payments().Resolve(ctx, attempt.ID, model.PaymentFailure, cb.TransactionRef, cb.Raw, now)
		}

		paid, err = l.confirm(ctx, f, order, attempt, cb.TransactionRef, cb.Raw, now)
		return err
	})
	if err != nil {
		if errors.Is(err, domainErrors.ErrInvalidCallback) {
			l.metrics.CallbackRejected(ctx)
			l.logger.Warn("gateway callback rejected",
				slog.String("payload", string(raw)),
				slog.String("error", err.Error()))
		}
		return err
	}
	if rejected != nil {
		l.logger.Warn("gateway callback did not apply",
			slog.String("order_number", cb.OrderNumber),
			slog.String("attempt_ref", cb.AttemptRef),
			slog.String("error", rejected.Error()))
		return rejected
	}
	if paid {
		l.paid(ctx, order, now)
	}
	return nil
}

// ConfirmSandbox marks the buyer's order paid without a gateway round trip.
func (l *OrderLifecycle) ConfirmSandbox(ctx context.Context, userID, orderID int64) (*model.Order, error) {
	if userID <= 0 {
		return nil, domainErrors.ErrOrderNotFound
	}
	return l.confirmManually(ctx, userID, orderID)
}

// Confirm is the operator variant of ConfirmSandbox and skips the ownership check.
func (l *OrderLifecycle) Confirm(ctx context.Context, orderID int64) (*model.Order, error) {
	return l.confirmManually(ctx, 0, orderID)
}

func (l *OrderLifecycle) confirmManually(ctx context.Context, owner, orderID int64) (*model.Order, error) {
	now := l.now()
	var (
		order *model.Order
		paid  bool
	)
	err := l.transact(ctx, "confirm order", func(f repository.Factory) error {
		var err error
		order, err = lockOrder(ctx, f, orderID, owner)
		if err != nil {
			return err
		}
		attempt, err := f.Payments().Active(ctx, order.ID)
		if err != nil {
			if !errors.Is(err, domainErrors.ErrNotFound) {
				return err
			}
			attempt = nil
		}
		paid, err = l.confirm(ctx, f, order, attempt, sandboxTransactionRef, nil, now)
		return err
	})
	if err != nil {
		return nil, err
	}
	if paid {
		l.paid(ctx, order, now)
	}
	return order, nil
}

// confirm moves a locked order to paid. It reports false when the order was
// already paid. Past expiry it only proceeds when an attempt is still open.
func (l *OrderLifecycle) confirm(ctx context.Context, f repository.Factory, order *model.Order, attempt *model.PaymentAttempt, transactionRef string, raw []byte, now time.Time) (bool, error) {
	switch order.Status {
	case model.OrderStatusPaid, model.OrderStatusCompleted:
		return false, nil
	case model.OrderStatusPending:
	default:
		return false, fmt.Errorf("%w: order is %s", domainErrors.ErrInvalidStateTransition, order.Status)
	}
	if attempt == nil && order.IsExpired(now) {
		return false, domainErrors.ErrExpired
	}

	if err := f.Inventory().Commit(ctx, order.ID); err != nil {
		return false, err
	}

	issued, err := f.Tickets().CountByOrder(ctx, order.ID)
	if err != nil {
		return false, err
	}
	var tickets []model.IssuedTicket
	if issued == 0 {
		for _, item := range order.Items {
			if item.Type != model.ItemTypeTicket {
				continue
			}
			for i := 0; i < item.Quantity; i++ {
				tickets = append(tickets, model.IssuedTicket{
					OrderID:    order.ID,
					LineItemID: item.ID,
					EntryID:    item.EntryID,
					Code:       l.newCode(),
					IssuedAt:   now,
				})
			}
		}
		if len(tickets) > 0 {
			if err := f.Tickets().Issue(ctx, tickets); err != nil {
				return false, err
			}
		}
	}

	if err := f.Orders().MarkPaid(ctx, order.ID, now); err != nil {
		return false, err
	}
	if attempt != nil {
		if err := f.Payments().Resolve(ctx, attempt.ID, model.PaymentSuccess, transactionRef, raw, now); err != nil {
			return false, err
		}
	}

	order.Status = model.OrderStatusPaid
	order.PaidAt = &now
	order.ExpiresAt = nil
	order.UpdatedAt = now
	order.Tickets = tickets
	return true, nil
}

func (l *OrderLifecycle) paid(ctx context.Context, order *model.Order, now time.Time) {
	l.metrics.OrderPaid(ctx)
	l.logger.Info("order paid",
		slog.Int64("order_id", order.ID),
		slog.String("order_number", order.Number),
		slog.Int("tickets", len(order.Tickets)))
	event := orderEvent(model.EventOrderPaid, order, now)
	for _, ticket := range order.Tickets {
		event.Tickets = append(event.Tickets, ticket.Code)
	}
	l.publish(ctx, event)
}
