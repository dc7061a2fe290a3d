package model

import (
	"testing"
	"time"
)

func TestOrderStatusTransitions(t *testing.T) {
	cases := []struct {
		from OrderStatus
		to   OrderStatus
		ok   bool
	}{
		{OrderStatusPending, OrderStatusPaid, true},
		{OrderStatusPending, OrderStatusCancelled, true},
		{OrderStatusPending, OrderStatusCompleted, false},
		{OrderStatusPaid, OrderStatusCompleted, true},
		{OrderStatusPaid, OrderStatusCancelled, false},
		{OrderStatusCancelled, OrderStatusPaid, false},
		{OrderStatusCompleted, OrderStatusPaid, false},
	}

	for _, tc := range cases {
		t.Run(string(tc.from)+"->"+string(tc.to), func(t *testing.T) {
			if got := tc.from.CanTransition(tc.to); got != tc.ok {
				t.Fatalf("expected %v, got %v", tc.ok, got)
			}
		})
	}

	if !OrderStatusCancelled.Terminal() || !OrderStatusCompleted.Terminal() || OrderStatusPaid.Terminal() {
		t.Fatalf("unexpected terminal states")
	}
}

func TestOrderExpiryAndTicketUnits(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	expires := now.Add(time.Second)
	order := &Order{
		ExpiresAt: &expires,
		Items: []LineItem{
			{Type: ItemTypeTicket, Quantity: 2, UnitPrice: 500},
			{Type: ItemTypeProduct, Quantity: 3, UnitPrice: 100},
			{Type: ItemTypeTicket, Quantity: 1, UnitPrice: 700},
		},
	}

	if order.IsExpired(now) {
		t.Fatalf("order should not be expired one second before expiry")
	}
	if !order.IsExpired(expires) {
		t.Fatalf("order should be expired at the expiry instant")
	}
	if (&Order{}).IsExpired(now) {
		t.Fatalf("order without expiry should never be expired")
	}
	if got := order.TicketUnits(); got != 3 {
		t.Fatalf("expected 3 ticket units, got %d", got)
	}
	if got := order.Items[0].Total(); got != 1000 {
		t.Fatalf("expected line total 1000, got %d", got)
	}
}

func TestCatalogEntryOnSale(t *testing.T) {
	now := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	before := now.Add(-time.Hour)
	after := now.Add(time.Hour)

	cases := []struct {
		name  string
		entry CatalogEntry
		want  bool
	}{
		{"active no window", CatalogEntry{Active: true}, true},
		{"inactive", CatalogEntry{Active: false}, false},
		{"not started", CatalogEntry{Active: true, SaleStartsAt: &after}, false},
		{"ended", CatalogEntry{Active: true, SaleEndsAt: &before}, false},
		{"ends now", CatalogEntry{Active: true, SaleEndsAt: &now}, false},
		{"inside window", CatalogEntry{Active: true, SaleStartsAt: &before, SaleEndsAt: &after}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.entry.OnSale(now); got != tc.want {
				t.Fatalf("expected %v, got %v", tc.want, got)
			}
		})
	}

	entry := CatalogEntry{Capacity: 10, Committed: 3, Reserved: 4}
	if entry.Remaining() != 3 {
		t.Fatalf("expected remaining 3, got %d", entry.Remaining())
	}
	if !ItemTypeTicket.Valid() || ItemType("gift").Valid() {
		t.Fatalf("unexpected item type validity")
	}
}
