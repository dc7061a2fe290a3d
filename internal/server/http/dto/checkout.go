package dto

import "time"

// CheckoutItemRequest is one requested catalog line.
type CheckoutItemRequest struct {
	Type     string `json:"type"`
	EntryID  int64  `json:"entry_id"`
	Quantity int    `json:"quantity"`
}

// BillingRequest carries the buyer's contact details.
type BillingRequest struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Email   string `json:"email"`
	Address string `json:"address"`
}

// CheckoutRequest describes the order creation payload.
type CheckoutRequest struct {
	Items       []CheckoutItemRequest `json:"items"`
	Billing     BillingRequest        `json:"billing"`
	PromoCode   string                `json:"promo_code"`
	ClientTotal *int64                `json:"client_total"`
}

// RedirectResponse is posted by the browser to the gateway.
type RedirectResponse struct {
	Endpoint string            `json:"endpoint"`
	Fields   map[string]string `json:"fields"`
}

// CheckoutResponse is returned by order creation and repay.
type CheckoutResponse struct {
	OrderID     int64            `json:"order_id"`
	OrderNumber string           `json:"order_number"`
	Total       int64            `json:"total"`
	ExpiresAt   *time.Time       `json:"expires_at,omitempty"`
	Redirect    RedirectResponse `json:"redirect"`
}
