package model

import "time"

// CatalogEntry is a ticket type or product variant with finite capacity.
type CatalogEntry struct {
	ID           int64
	Type         ItemType
	Name         string
	UnitPrice    int64
	Capacity     int
	Committed    int
	Reserved     int
	SaleStartsAt *time.Time
	SaleEndsAt   *time.Time
	Active       bool
}

// OnSale reports whether now falls inside the entry's sale window.
func (e CatalogEntry) OnSale(now time.Time) bool {
	if !e.Active {
		return false
	}
	if e.SaleStartsAt != nil && now.Before(*e.SaleStartsAt) {
		return false
	}
	if e.SaleEndsAt != nil && !now.Before(*e.SaleEndsAt) {
		return false
	}
	return true
}

// Remaining returns capacity not yet committed or held.
func (e CatalogEntry) Remaining() int {
	return e.Capacity - e.Committed - e.Reserved
}

// ReservationStatus tracks a capacity hold.
type ReservationStatus string

const (
	ReservationActive    ReservationStatus = "active"
	ReservationCommitted ReservationStatus = "committed"
	ReservationReleased  ReservationStatus = "released"
)

// Reservation is a temporary claim against an entry's capacity.
type Reservation struct {
	ID         int64
	EntryID    int64
	OrderID    int64
	Quantity   int
	Status     ReservationStatus
	CreatedAt  time.Time
	ResolvedAt *time.Time
}
