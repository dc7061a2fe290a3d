package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	domainErrors "github.com/polkiloo/boxoffice/internal/domain/errors"
	"github.com/polkiloo/boxoffice/internal/domain/model"
	"github.com/polkiloo/boxoffice/internal/domain/repository"
	"github.com/polkiloo/boxoffice/internal/telemetry"
)

const (
	defaultExpiryWindow = 15 * time.Minute
	maxTxAttempts       = 3
)

// Gateway builds signed redirects and verifies callbacks.
type Gateway interface {
	BuildRedirect(order *model.Order, attempt *model.PaymentAttempt) (model.Redirect, error)
	ParseCallback(raw []byte) (*model.Callback, error)
}

// Notifier publishes events after transitions commit. Failures never undo a transition.
type Notifier interface {
	Publish(ctx context.Context, event model.OrderEvent) error
}

// LifecycleOptions tunes OrderLifecycle.
type LifecycleOptions struct {
	ExpiryWindow  time.Duration
	StrictPricing bool
	Clock         func() time.Time
	NewCode       func() string
}

// OrderLifecycle owns every order state transition. Each transition runs in
// one storage transaction with the order row locked.
type OrderLifecycle struct {
	tx       repository.Transactor
	pricing  *PricingCalculator
	gateway  Gateway
	notifier Notifier
	metrics  *telemetry.Metrics
	logger   *slog.Logger

	window  time.Duration
	strict  bool
	now     func() time.Time
	newCode func() string
}

// NewOrderLifecycle constructs OrderLifecycle.
func NewOrderLifecycle(tx repository.Transactor, pricing *PricingCalculator, gateway Gateway, notifier Notifier, metrics *telemetry.Metrics, logger *slog.Logger, opts LifecycleOptions) *OrderLifecycle {
	l := &OrderLifecycle{
		tx:       tx,
		pricing:  pricing,
		gateway:  gateway,
		notifier: notifier,
		metrics:  metrics,
		logger:   logger,
		window:   opts.ExpiryWindow,
		strict:   opts.StrictPricing,
		now:      opts.Clock,
		newCode:  opts.NewCode,
	}
	if l.window <= 0 {
		l.window = defaultExpiryWindow
	}
	if l.now == nil {
		l.now = func() time.Time { return time.Now().UTC() }
	}
	if l.newCode == nil {
		l.newCode = uuid.NewString
	}
	if l.logger == nil {
		l.logger = slog.Default()
	}
	return l
}

// transact runs fn, replaying it when storage reports a retryable conflict.
func (l *OrderLifecycle) transact(ctx context.Context, op string, fn func(repository.Factory) error) error {
	var err error
	for attempt := 1; attempt <= maxTxAttempts; attempt++ {
		err = l.tx.WithinTransaction(ctx, fn)
		if !errors.Is(err, repository.ErrRetryable) {
			return err
		}
		l.logger.Debug("retrying transaction", slog.String("op", op), slog.Int("attempt", attempt), slog.String("error", err.Error()))
	}
	return fmt.Errorf("%s: retries exhausted: %w", op, err)
}

func (l *OrderLifecycle) orderNumber(now time.Time) string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "BO-" + now.Format("20060102") + "-" + strings.ToUpper(id[:8])
}

// lockOrder loads an order for update and hides orders owned by someone else.
// owner 0 skips the ownership check.
func lockOrder(ctx context.Context, f repository.Factory, orderID, owner int64) (*model.Order, error) {
	order, err := f.Orders().GetForUpdate(ctx, orderID)
	if err != nil {
		if errors.Is(err, domainErrors.ErrNotFound) {
			return nil, domainErrors.ErrOrderNotFound
		}
		return nil, err
	}
	if owner != 0 && order.UserID != owner {
		return nil, domainErrors.ErrOrderNotFound
	}
	return order, nil
}

func (l *OrderLifecycle) publish(ctx context.Context, event model.OrderEvent) {
	if l.notifier == nil {
		return
	}
	if err := l.notifier.Publish(ctx, event); err != nil {
		l.logger.Warn("publish order event failed",
			slog.String("type", event.Type),
			slog.Int64("order_id", event.OrderID),
			slog.String("error", err.Error()))
	}
}

func orderEvent(kind string, order *model.Order, at time.Time) model.OrderEvent {
	return model.OrderEvent{
		Type:        kind,
		OrderID:     order.ID,
		OrderNumber: order.Number,
		UserID:      order.UserID,
		Total:       order.Total,
		Email:       order.Billing.Email,
		OccurredAt:  at,
	}
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, domainErrors.ErrInvalidRequest):
		return "invalid_request"
	case errors.Is(err, domainErrors.ErrItemUnavailable):
		return "item_unavailable"
	case errors.Is(err, domainErrors.ErrInsufficientStock):
		return "out_of_stock"
	case errors.Is(err, domainErrors.ErrPriceMismatch):
		return "price_changed"
	default:
		return "internal"
	}
}
