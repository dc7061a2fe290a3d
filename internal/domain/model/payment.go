package model

import "time"

// PaymentOutcome describes the result of a redirect-and-callback cycle.
type PaymentOutcome string

const (
	PaymentPending    PaymentOutcome = "pending"
	PaymentSuccess    PaymentOutcome = "success"
	PaymentFailure    PaymentOutcome = "failure"
	PaymentSuperseded PaymentOutcome = "superseded"
)

// PaymentAttempt records one handoff to the gateway.
type PaymentAttempt struct {
	ID             int64
	OrderID        int64
	Reference      string
	TransactionRef string
	Outcome        PaymentOutcome
	RawCallback    []byte
	CreatedAt      time.Time
	ResolvedAt     *time.Time
}

// Redirect is the payload the buyer's browser posts to the gateway.
type Redirect struct {
	Endpoint string
	Fields   map[string]string
}

// Callback is a verified gateway notification.
type Callback struct {
	OrderNumber    string
	AttemptRef     string
	TransactionRef string
	Outcome        PaymentOutcome
	Amount         int64
	Raw            []byte
}
