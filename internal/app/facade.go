package app

import (
	"context"

	"github.com/polkiloo/boxoffice/internal/domain/model"
	"github.com/polkiloo/boxoffice/internal/usecase"
)

// HealthChecker probes a backing service.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// BoxOfficeFacade exposes the order lifecycle to transports and workers.
type BoxOfficeFacade struct {
	lifecycle *usecase.OrderLifecycle
	health    HealthChecker
}

func NewBoxOfficeFacade(lifecycle *usecase.OrderLifecycle, health HealthChecker) *BoxOfficeFacade {
	return &BoxOfficeFacade{lifecycle: lifecycle, health: health}
}

func (f *BoxOfficeFacade) Checkout(ctx context.Context, req model.CheckoutRequest) (*model.CheckoutResult, error) {
	return f.lifecycle.Create(ctx, req)
}

func (f *BoxOfficeFacade) Order(ctx context.Context, userID, orderID int64) (*model.Order, error) {
	return f.lifecycle.Order(ctx, userID, orderID)
}

func (f *BoxOfficeFacade) Repay(ctx context.Context, userID, orderID int64) (*model.CheckoutResult, error) {
	return f.lifecycle.Repay(ctx, userID, orderID)
}

func (f *BoxOfficeFacade) Cancel(ctx context.Context, userID, orderID int64) (*model.Order, error) {
	return f.lifecycle.Cancel(ctx, userID, orderID)
}

func (f *BoxOfficeFacade) HandleCallback(ctx context.Context, raw []byte) error {
	return f.lifecycle.HandleCallback(ctx, raw)
}

func (f *BoxOfficeFacade) ConfirmSandbox(ctx context.Context, userID, orderID int64) (*model.Order, error) {
	return f.lifecycle.ConfirmSandbox(ctx, userID, orderID)
}

// Confirm marks an order paid on behalf of an operator.
func (f *BoxOfficeFacade) Confirm(ctx context.Context, orderID int64) (*model.Order, error) {
	return f.lifecycle.Confirm(ctx, orderID)
}

// Complete records the external fulfilment signal.
func (f *BoxOfficeFacade) Complete(ctx context.Context, orderID int64) (*model.Order, error) {
	return f.lifecycle.Complete(ctx, orderID)
}

func (f *BoxOfficeFacade) DueForExpiry(ctx context.Context, limit int) ([]int64, error) {
	return f.lifecycle.DueForExpiry(ctx, limit)
}

func (f *BoxOfficeFacade) Expire(ctx context.Context, orderID int64) (bool, error) {
	return f.lifecycle.Expire(ctx, orderID)
}

func (f *BoxOfficeFacade) HealthCheck(ctx context.Context) error {
	if f.health == nil {
		return nil
	}
	return f.health.HealthCheck(ctx)
}
