package model

import "time"

// OrderStatus describes checkout lifecycle.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusPaid      OrderStatus = "paid"
	OrderStatusCancelled OrderStatus = "cancelled"
	OrderStatusCompleted OrderStatus = "completed"
)

// CanTransition reports whether the lifecycle permits moving from s to next.
func (s OrderStatus) CanTransition(next OrderStatus) bool {
	switch s {
	case OrderStatusPending:
		return next == OrderStatusPaid || next == OrderStatusCancelled
	case OrderStatusPaid:
		return next == OrderStatusCompleted
	default:
		return false
	}
}

// Terminal reports whether no further transitions are possible.
func (s OrderStatus) Terminal() bool {
	return s == OrderStatusCancelled || s == OrderStatusCompleted
}

const (
	CancelReasonExpired   = "expired"
	CancelReasonCancelled = "cancelled"
)

// ItemType distinguishes ticket types from merchandise variants.
type ItemType string

const (
	ItemTypeTicket  ItemType = "ticket"
	ItemTypeProduct ItemType = "product"
)

// Valid reports whether the item type is known.
func (t ItemType) Valid() bool {
	return t == ItemTypeTicket || t == ItemTypeProduct
}

// BillingContact holds buyer details captured at checkout.
type BillingContact struct {
	Name    string
	Phone   string
	Email   string
	Address string
}

// LineItem is one priced catalog entry within an order.
type LineItem struct {
	ID        int64
	OrderID   int64
	Type      ItemType
	EntryID   int64
	Name      string
	Quantity  int
	UnitPrice int64
}

// Total returns quantity multiplied by the captured unit price.
func (l LineItem) Total() int64 {
	return int64(l.Quantity) * l.UnitPrice
}

// Order describes one checkout attempt.
type Order struct {
	ID           int64
	Number       string
	UserID       int64
	Status       OrderStatus
	Subtotal     int64
	Discount     int64
	Total        int64
	PromoCode    string
	Billing      BillingContact
	Items        []LineItem
	Tickets      []IssuedTicket
	CreatedAt    time.Time
	ExpiresAt    *time.Time
	PaidAt       *time.Time
	CancelledAt  *time.Time
	CancelReason string
	CompletedAt  *time.Time
	UpdatedAt    time.Time
}

// IsExpired reports whether a pending order's window has elapsed at now.
func (o *Order) IsExpired(now time.Time) bool {
	return o.ExpiresAt != nil && !now.Before(*o.ExpiresAt)
}

// TicketUnits counts units of ticket-type line items.
func (o *Order) TicketUnits() int {
	n := 0
	for _, item := range o.Items {
		if item.Type == ItemTypeTicket {
			n += item.Quantity
		}
	}
	return n
}

// IssuedTicket is a scannable admission code created on payment.
type IssuedTicket struct {
	ID         int64
	OrderID    int64
	LineItemID int64
	EntryID    int64
	Code       string
	IssuedAt   time.Time
}
