package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/polkiloo/boxoffice"

// Metrics groups lifecycle counters.
type Metrics struct {
	ordersCreated    metric.Int64Counter
	ordersPaid       metric.Int64Counter
	ordersCancelled  metric.Int64Counter
	checkoutRejected metric.Int64Counter
	callbackRejected metric.Int64Counter
	expirySwept      metric.Int64Counter
}

// NewMetrics registers instruments on the given provider.
func NewMetrics(provider metric.MeterProvider) (*Metrics, error) {
	meter := provider.Meter(meterName)

	m := &Metrics{}
	var err error
	if m.ordersCreated, err = meter.Int64Counter("boxoffice.orders.created",
		metric.WithDescription("Pending orders created")); err != nil {
		return nil, err
	}
	if m.ordersPaid, err = meter.Int64Counter("boxoffice.orders.paid",
		metric.WithDescription("Orders confirmed as paid")); err != nil {
		return nil, err
	}
	if m.ordersCancelled, err = meter.Int64Counter("boxoffice.orders.cancelled",
		metric.WithDescription("Orders cancelled by reason")); err != nil {
		return nil, err
	}
	if m.checkoutRejected, err = meter.Int64Counter("boxoffice.checkout.rejected",
		metric.WithDescription("Checkout requests rejected by reason")); err != nil {
		return nil, err
	}
	if m.callbackRejected, err = meter.Int64Counter("boxoffice.callbacks.rejected",
		metric.WithDescription("Gateway callbacks that failed verification")); err != nil {
		return nil, err
	}
	if m.expirySwept, err = meter.Int64Counter("boxoffice.sweeper.expired",
		metric.WithDescription("Orders expired by the background sweeper")); err != nil {
		return nil, err
	}
	return m, nil
}

// OrderCreated counts a new pending order.
func (m *Metrics) OrderCreated(ctx context.Context) {
	if m == nil {
		return
	}
	m.ordersCreated.Add(ctx, 1)
}

// OrderPaid counts a confirmation.
func (m *Metrics) OrderPaid(ctx context.Context) {
	if m == nil {
		return
	}
	m.ordersPaid.Add(ctx, 1)
}

// OrderCancelled counts a cancellation with its reason.
func (m *Metrics) OrderCancelled(ctx context.Context, reason string) {
	if m == nil {
		return
	}
	m.ordersCancelled.Add(ctx, 1, metric.WithAttributes(ReasonAttr(reason)))
}

// CheckoutRejected counts a failed create with the error code shown to the buyer.
func (m *Metrics) CheckoutRejected(ctx context.Context, reason string) {
	if m == nil {
		return
	}
	m.checkoutRejected.Add(ctx, 1, metric.WithAttributes(ReasonAttr(reason)))
}

// CallbackRejected counts a callback that failed verification.
func (m *Metrics) CallbackRejected(ctx context.Context) {
	if m == nil {
		return
	}
	m.callbackRejected.Add(ctx, 1)
}

// Swept counts orders expired during one sweep pass.
func (m *Metrics) Swept(ctx context.Context, n int) {
	if m == nil || n == 0 {
		return
	}
	m.expirySwept.Add(ctx, int64(n))
}

// ReasonAttr labels cancellations and rejections.
func ReasonAttr(reason string) attribute.KeyValue {
	return attribute.String("reason", reason)
}
