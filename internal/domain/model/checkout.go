package model

import "time"

// CheckoutItem is one requested line before pricing.
type CheckoutItem struct {
	Type     ItemType
	EntryID  int64
	Quantity int
}

// CheckoutRequest is the shape submitted by the storefront.
type CheckoutRequest struct {
	UserID      int64
	Items       []CheckoutItem
	Billing     BillingContact
	PromoCode   string
	ClientTotal *int64
}

// Quote is the authoritative pricing of a checkout request.
type Quote struct {
	Lines     []LineItem
	Subtotal  int64
	Discount  int64
	Total     int64
	PromoCode string
}

// CheckoutResult is returned by order creation and repay.
type CheckoutResult struct {
	Order    *Order
	Redirect Redirect
}

// Event types published after lifecycle transitions commit.
const (
	EventOrderPaid      = "order.paid"
	EventOrderCancelled = "order.cancelled"
)

// OrderEvent is a best-effort notification about a committed transition.
type OrderEvent struct {
	Type        string    `json:"type"`
	OrderID     int64     `json:"order_id"`
	OrderNumber string    `json:"order_number"`
	UserID      int64     `json:"user_id"`
	Total       int64     `json:"total"`
	Reason      string    `json:"reason,omitempty"`
	Tickets     []string  `json:"tickets,omitempty"`
	Email       string    `json:"email,omitempty"`
	OccurredAt  time.Time `json:"occurred_at"`
}
