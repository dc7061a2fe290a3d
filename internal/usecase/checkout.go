package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"sort"
	"strings"
	"time"

	domainErrors "github.com/polkiloo/boxoffice/internal/domain/errors"
	"github.com/polkiloo/boxoffice/internal/domain/model"
	"github.com/polkiloo/boxoffice/internal/domain/repository"
)

// Create validates and prices req, then atomically inserts a pending order,
// reserves its inventory and opens the first payment attempt.
func (l *OrderLifecycle) Create(ctx context.Context, req model.CheckoutRequest) (*model.CheckoutResult, error) {
	result, err := l.create(ctx, req)
	if err != nil {
		l.metrics.CheckoutRejected(ctx, rejectReason(err))
		return nil, err
	}
	l.metrics.OrderCreated(ctx)
	return result, nil
}

func (l *OrderLifecycle) create(ctx context.Context, req model.CheckoutRequest) (*model.CheckoutResult, error) {
	billing, err := validateCheckout(req)
	if err != nil {
		return nil, err
	}

	now := l.now()
	quote, err := l.pricing.Quote(ctx, req, now)
	if err != nil {
		var mismatch *domainErrors.PriceMismatchError
		if l.strict || quote == nil || !errors.As(err, &mismatch) {
			return nil, err
		}
		l.logger.Warn("client total differs from computed total",
			slog.Int64("client", mismatch.Client),
			slog.Int64("computed", mismatch.Computed))
	}

	var (
		order   *model.Order
		attempt *model.PaymentAttempt
	)
	err = l.transact(ctx, "create order", func(f repository.Factory) error {
		expires := now.Add(l.window)
		order = &model.Order{
			Number:    l.orderNumber(now),
			UserID:    req.UserID,
			Status:    model.OrderStatusPending,
			Subtotal:  quote.Subtotal,
			Discount:  quote.Discount,
			Total:     quote.Total,
			PromoCode: quote.PromoCode,
			Billing:   billing,
			Items:     append([]model.LineItem(nil), quote.Lines...),
			CreatedAt: now,
			ExpiresAt: &expires,
			UpdatedAt: now,
		}
		if err := f.Orders().Create(ctx, order); err != nil {
			if errors.Is(err, domainErrors.ErrAlreadyExists) {
				return fmt.Errorf("order number collision: %w", repository.ErrRetryable)
			}
			return err
		}

		lines := append([]model.LineItem(nil), order.Items...)
		sort.Slice(lines, func(i, j int) bool { return lines[i].EntryID < lines[j].EntryID })
		for _, line := range lines {
			if err := f.Inventory().Reserve(ctx, line.EntryID, line.Quantity, order.ID); err != nil {
				return err
			}
		}

		attempt = &model.PaymentAttempt{
			OrderID:   order.ID,
			Reference: l.newCode(),
			Outcome:   model.PaymentPending,
			CreatedAt: now,
		}
		return f.Payments().Create(ctx, attempt)
	})
	if err != nil {
		return nil, err
	}

	redirect, err := l.gateway.BuildRedirect(order, attempt)
	if err != nil {
		return nil, fmt.Errorf("build redirect: %w", err)
	}

	l.logger.Info("order created",
		slog.Int64("order_id", order.ID),
		slog.String("order_number", order.Number),
		slog.Int64("total", order.Total))
	return &model.CheckoutResult{Order: order, Redirect: redirect}, nil
}

func validateCheckout(req model.CheckoutRequest) (model.BillingContact, error) {
	if req.UserID <= 0 {
		return model.BillingContact{}, fmt.Errorf("%w: missing user", domainErrors.ErrInvalidRequest)
	}
	billing := model.BillingContact{
		Name:    strings.TrimSpace(req.Billing.Name),
		Phone:   strings.TrimSpace(req.Billing.Phone),
		Email:   strings.TrimSpace(req.Billing.Email),
		Address: strings.TrimSpace(req.Billing.Address),
	}
	if billing.Name == "" {
		return billing, fmt.Errorf("%w: billing name is required", domainErrors.ErrInvalidRequest)
	}
	if _, err := mail.ParseAddress(billing.Email); err != nil {
		return billing, fmt.Errorf("%w: billing email is invalid", domainErrors.ErrInvalidRequest)
	}
	return billing, nil
}

// Repay supersedes the order's active payment attempt and returns a redirect
// for a fresh one. Reservations are kept as they are.
func (l *OrderLifecycle) Repay(ctx context.Context, userID, orderID int64) (*model.CheckoutResult, error) {
	if userID <= 0 {
		return nil, domainErrors.ErrOrderNotFound
	}
	now := l.now()

	var (
		order   *model.Order
		attempt *model.PaymentAttempt
	)
	err := l.transact(ctx, "repay order", func(f repository.Factory) error {
		var err error
		order, err = lockOrder(ctx, f, orderID, userID)
		if err != nil {
			return err
		}
		if order.Status != model.OrderStatusPending {
			return fmt.Errorf("%w: order is %s", domainErrors.ErrInvalidStateTransition, order.Status)
		}
		if order.IsExpired(now) {
			return domainErrors.ErrExpired
		}
		if err := f.Payments().SupersedeActive(ctx, order.ID, now); err != nil {
			return err
		}
		attempt = &model.PaymentAttempt{
			OrderID:   order.ID,
			Reference: l.newCode(),
			Outcome:   model.PaymentPending,
			CreatedAt: now,
		}
		return f.Payments().Create(ctx, attempt)
	})
	if err != nil {
		return nil, err
	}

	redirect, err := l.gateway.BuildRedirect(order, attempt)
	if err != nil {
		return nil, fmt.Errorf("build redirect: %w", err)
	}
	l.logger.Info("payment attempt reopened",
		slog.Int64("order_id", order.ID),
		slog.String("attempt_ref", attempt.Reference))
	return &model.CheckoutResult{Order: order, Redirect: redirect}, nil
}

// Cancel lets the buyer abandon a pending order. Reservations are released.
func (l *OrderLifecycle) Cancel(ctx context.Context, userID, orderID int64) (*model.Order, error) {
	if userID <= 0 {
		return nil, domainErrors.ErrOrderNotFound
	}
	now := l.now()

	var order *model.Order
	err := l.transact(ctx, "cancel order", func(f repository.Factory) error {
		var err error
		order, err = lockOrder(ctx, f, orderID, userID)
		if err != nil {
			return err
		}
		if order.Status != model.OrderStatusPending {
			return fmt.Errorf("%w: order is %s", domainErrors.ErrInvalidStateTransition, order.Status)
		}
		return cancelOrder(ctx, f, order, model.CancelReasonCancelled, now)
	})
	if err != nil {
		return nil, err
	}
	l.cancelled(ctx, order, now)
	return order, nil
}

// cancelOrder releases holds, fails open attempts and marks the order cancelled.
func cancelOrder(ctx context.Context, f repository.Factory, order *model.Order, reason string, now time.Time) error {
	if err := f.Inventory().Release(ctx, order.ID); err != nil {
		return err
	}
	if err := f.Payments().FailPending(ctx, order.ID, now); err != nil {
		return err
	}
	if err := f.Orders().MarkCancelled(ctx, order.ID, reason, now); err != nil {
		return err
	}
	order.Status = model.OrderStatusCancelled
	order.CancelReason = reason
	order.CancelledAt = &now
	order.ExpiresAt = nil
	order.UpdatedAt = now
	return nil
}

func (l *OrderLifecycle) cancelled(ctx context.Context, order *model.Order, now time.Time) {
	l.metrics.OrderCancelled(ctx, order.CancelReason)
	l.logger.Info("order cancelled",
		slog.Int64("order_id", order.ID),
		slog.String("reason", order.CancelReason))
	event := orderEvent(model.EventOrderCancelled, order, now)
	event.Reason = order.CancelReason
	l.publish(ctx, event)
}

// Order returns the buyer's order with its issued tickets.
func (l *OrderLifecycle) Order(ctx context.Context, userID, orderID int64) (*model.Order, error) {
	var order *model.Order
	err := l.transact(ctx, "load order", func(f repository.Factory) error {
		var err error
		order, err = f.Orders().GetByID(ctx, orderID)
		if err != nil {
			if errors.Is(err, domainErrors.ErrNotFound) {
				return domainErrors.ErrOrderNotFound
			}
			return err
		}
		if order.UserID != userID {
			return domainErrors.ErrOrderNotFound
		}
		order.Tickets, err = f.Tickets().ListByOrder(ctx, order.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}
