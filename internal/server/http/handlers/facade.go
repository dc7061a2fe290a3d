package handlers

import (
	"context"

	"github.com/polkiloo/boxoffice/internal/domain/model"
)

// CheckoutFacade encapsulates buyer order operations exposed via HTTP.
type CheckoutFacade interface {
	Checkout(ctx context.Context, req model.CheckoutRequest) (*model.CheckoutResult, error)
	Order(ctx context.Context, userID, orderID int64) (*model.Order, error)
	Repay(ctx context.Context, userID, orderID int64) (*model.CheckoutResult, error)
	Cancel(ctx context.Context, userID, orderID int64) (*model.Order, error)
}

// PaymentFacade applies gateway notifications and sandbox confirmations.
type PaymentFacade interface {
	HandleCallback(ctx context.Context, raw []byte) error
	ConfirmSandbox(ctx context.Context, userID, orderID int64) (*model.Order, error)
}

// HealthChecker reports whether backing services are reachable.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// BoxOfficeFacade aggregates the full set of operations used across handlers.
type BoxOfficeFacade interface {
	CheckoutFacade
	PaymentFacade
	HealthChecker
}
