package errors

import (
	"errors"
	"fmt"
)

var (
	ErrAlreadyExists          = errors.New("already exists")
	ErrNotFound               = errors.New("not found")
	ErrInvalidRequest         = errors.New("invalid request")
	ErrOrderNotFound          = errors.New("order not found")
	ErrInvalidStateTransition = errors.New("invalid state transition")
	ErrExpired                = errors.New("order expired")
	ErrItemUnavailable        = errors.New("item unavailable")
	ErrPriceMismatch          = errors.New("price mismatch")
	ErrInsufficientStock      = errors.New("insufficient stock")
	ErrInvalidCallback        = errors.New("invalid callback")
)

// StockError reports which catalog entry could not satisfy a reservation.
type StockError struct {
	EntryID   int64
	Requested int
	Remaining int
}

func (e *StockError) Error() string {
	return fmt.Sprintf("entry %d: requested %d, remaining %d: %s", e.EntryID, e.Requested, e.Remaining, ErrInsufficientStock)
}

func (e *StockError) Unwrap() error {
	return ErrInsufficientStock
}

// PriceMismatchError carries both totals so callers can show the corrected price.
type PriceMismatchError struct {
	Client   int64
	Computed int64
}

func (e *PriceMismatchError) Error() string {
	return fmt.Sprintf("client total %d, computed total %d: %s", e.Client, e.Computed, ErrPriceMismatch)
}

func (e *PriceMismatchError) Unwrap() error {
	return ErrPriceMismatch
}

// UnavailableError names the catalog entry that failed pricing.
type UnavailableError struct {
	EntryID int64
	Reason  string
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("entry %d %s: %s", e.EntryID, e.Reason, ErrItemUnavailable)
}

func (e *UnavailableError) Unwrap() error {
	return ErrItemUnavailable
}
