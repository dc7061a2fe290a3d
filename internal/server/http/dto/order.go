package dto

import "time"

// LineItemResponse describes a priced order line.
type LineItemResponse struct {
	Type      string `json:"type"`
	EntryID   int64  `json:"entry_id"`
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
	UnitPrice int64  `json:"unit_price"`
	Total     int64  `json:"total"`
}

// TicketResponse is an issued admission code.
type TicketResponse struct {
	Code     string    `json:"code"`
	EntryID  int64     `json:"entry_id"`
	IssuedAt time.Time `json:"issued_at"`
}

// OrderResponse is the buyer-facing order read model.
type OrderResponse struct {
	ID           int64              `json:"id"`
	Number       string             `json:"number"`
	Status       string             `json:"status"`
	Subtotal     int64              `json:"subtotal"`
	Discount     int64              `json:"discount"`
	Total        int64              `json:"total"`
	PromoCode    string             `json:"promo_code,omitempty"`
	Items        []LineItemResponse `json:"items"`
	Tickets      []TicketResponse   `json:"tickets,omitempty"`
	CreatedAt    time.Time          `json:"created_at"`
	ExpiresAt    *time.Time         `json:"expires_at,omitempty"`
	PaidAt       *time.Time         `json:"paid_at,omitempty"`
	CancelledAt  *time.Time         `json:"cancelled_at,omitempty"`
	CancelReason string             `json:"cancel_reason,omitempty"`
	CompletedAt  *time.Time         `json:"completed_at,omitempty"`
}
