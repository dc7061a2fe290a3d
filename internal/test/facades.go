package test

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/polkiloo/boxoffice/internal/domain/model"
)

// CheckoutFacadeStub provides controllable behaviour for checkout endpoints.
type CheckoutFacadeStub struct {
	CheckoutFn       func(context.Context, model.CheckoutRequest) (*model.CheckoutResult, error)
	OrderFn          func(context.Context, int64, int64) (*model.Order, error)
	RepayFn          func(context.Context, int64, int64) (*model.CheckoutResult, error)
	CancelFn         func(context.Context, int64, int64) (*model.Order, error)
	CallbackFn       func(context.Context, []byte) error
	ConfirmSandboxFn func(context.Context, int64, int64) (*model.Order, error)
	HealthFn         func(context.Context) error
}

// Checkout delegates to provided function or returns a pending order.
func (s CheckoutFacadeStub) Checkout(ctx context.Context, req model.CheckoutRequest) (*model.CheckoutResult, error) {
	if s.CheckoutFn != nil {
		return s.CheckoutFn(ctx, req)
	}
	expires := time.Unix(900, 0).UTC()
	return &model.CheckoutResult{
		Order:    &model.Order{ID: 1, Number: "BO-1", UserID: req.UserID, Status: model.OrderStatusPending, Total: 1000, ExpiresAt: &expires},
		Redirect: model.Redirect{Endpoint: "https://gateway.test/pay", Fields: map[string]string{"order_ref": "BO-1"}},
	}, nil
}

// Order returns configured order or a pending one.
func (s CheckoutFacadeStub) Order(ctx context.Context, userID, orderID int64) (*model.Order, error) {
	if s.OrderFn != nil {
		return s.OrderFn(ctx, userID, orderID)
	}
	return &model.Order{ID: orderID, Number: "BO-1", UserID: userID, Status: model.OrderStatusPending}, nil
}

// Repay returns configured redirect.
func (s CheckoutFacadeStub) Repay(ctx context.Context, userID, orderID int64) (*model.CheckoutResult, error) {
	if s.RepayFn != nil {
		return s.RepayFn(ctx, userID, orderID)
	}
	return &model.CheckoutResult{
		Order:    &model.Order{ID: orderID, Number: "BO-1", UserID: userID, Status: model.OrderStatusPending},
		Redirect: model.Redirect{Endpoint: "https://gateway.test/pay", Fields: map[string]string{"attempt_ref": "r2"}},
	}, nil
}

// Cancel returns a cancelled order unless overridden.
func (s CheckoutFacadeStub) Cancel(ctx context.Context, userID, orderID int64) (*model.Order, error) {
	if s.CancelFn != nil {
		return s.CancelFn(ctx, userID, orderID)
	}
	return &model.Order{ID: orderID, UserID: userID, Status: model.OrderStatusCancelled, CancelReason: model.CancelReasonCancelled}, nil
}

// HandleCallback accepts every payload unless overridden.
func (s CheckoutFacadeStub) HandleCallback(ctx context.Context, raw []byte) error {
	if s.CallbackFn != nil {
		return s.CallbackFn(ctx, raw)
	}
	return nil
}

// ConfirmSandbox returns a paid order unless overridden.
func (s CheckoutFacadeStub) ConfirmSandbox(ctx context.Context, userID, orderID int64) (*model.Order, error) {
	if s.ConfirmSandboxFn != nil {
		return s.ConfirmSandboxFn(ctx, userID, orderID)
	}
	return &model.Order{ID: orderID, UserID: userID, Status: model.OrderStatusPaid}, nil
}

// HealthCheck reports healthy unless overridden.
func (s CheckoutFacadeStub) HealthCheck(ctx context.Context) error {
	if s.HealthFn != nil {
		return s.HealthFn(ctx)
	}
	return nil
}

// ExpiryFacadeStub mimics sweeper interactions with the lifecycle service.
type ExpiryFacadeStub struct {
	Batches  [][]int64
	DueFn    func(context.Context, int) ([]int64, error)
	ExpireFn func(context.Context, int64) (bool, error)
	Expired  []int64

	mu        sync.Mutex
	dueCalls  int32
	lastLimit int
}

// DueForExpiry returns configured batches one per call.
func (s *ExpiryFacadeStub) DueForExpiry(ctx context.Context, limit int) ([]int64, error) {
	s.mu.Lock()
	s.lastLimit = limit
	s.mu.Unlock()
	if s.DueFn != nil {
		return s.DueFn(ctx, limit)
	}
	call := atomic.AddInt32(&s.dueCalls, 1)
	if int(call) <= len(s.Batches) {
		return s.Batches[call-1], nil
	}
	return nil, nil
}

// Expire records the order id.
func (s *ExpiryFacadeStub) Expire(ctx context.Context, orderID int64) (bool, error) {
	if s.ExpireFn != nil {
		return s.ExpireFn(ctx, orderID)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Expired = append(s.Expired, orderID)
	return true, nil
}

// ExpiredIDs returns a snapshot of expired order ids.
func (s *ExpiryFacadeStub) ExpiredIDs() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int64(nil), s.Expired...)
}

// LastLimit reports the batch size of the latest DueForExpiry call.
func (s *ExpiryFacadeStub) LastLimit() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastLimit
}
