package usecase

import (
	"context"
	"io"
	"log/slog"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/polkiloo/boxoffice/internal/adapter/gateway"
	"github.com/polkiloo/boxoffice/internal/domain/model"
	testhelpers "github.com/polkiloo/boxoffice/internal/test"
)

const (
	buyerID = int64(11)
	otherID = int64(12)
)

var (
	gaEntry   = model.CatalogEntry{ID: 1, Type: model.ItemTypeTicket, Name: "General admission", UnitPrice: 500, Capacity: 10, Active: true}
	frontRow  = model.CatalogEntry{ID: 2, Type: model.ItemTypeTicket, Name: "Front row", UnitPrice: 2500, Capacity: 1, Active: true}
	tourShirt = model.CatalogEntry{ID: 3, Type: model.ItemTypeProduct, Name: "Tour shirt", UnitPrice: 1500, Capacity: 5, Active: true}
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fixture struct {
	store     *testhelpers.MemoryStore
	notifier  *testhelpers.NotifierStub
	gateway   *gateway.Client
	clock     *fakeClock
	lifecycle *OrderLifecycle
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func newFixture(t *testing.T, tune ...func(*LifecycleOptions)) *fixture {
	t.Helper()
	store := testhelpers.NewMemoryStore(gaEntry, frontRow, tourShirt)
	gw, err := gateway.NewClient(gateway.Settings{
		Endpoint:   "https://pay.example.com/checkout",
		MerchantID: "boxoffice",
		Secret:     "gateway-secret",
		NotifyURL:  "https://shop.example.com/api/payments/callback",
	}, discardLogger())
	if err != nil {
		t.Fatalf("gateway: %v", err)
	}
	clock := &fakeClock{now: time.Date(2026, 6, 1, 18, 0, 0, 0, time.UTC)}
	opts := LifecycleOptions{StrictPricing: true, Clock: clock.Now}
	for _, fn := range tune {
		fn(&opts)
	}
	notifier := &testhelpers.NotifierStub{}
	lifecycle := NewOrderLifecycle(store, NewPricingCalculator(store, 0), gw, notifier, nil, discardLogger(), opts)
	return &fixture{store: store, notifier: notifier, gateway: gw, clock: clock, lifecycle: lifecycle}
}

func checkoutRequest(userID int64, items ...model.CheckoutItem) model.CheckoutRequest {
	return model.CheckoutRequest{
		UserID:  userID,
		Items:   items,
		Billing: model.BillingContact{Name: "Ada Buyer", Email: "ada@example.com", Phone: "+100000000"},
	}
}

func ticket(entryID int64, qty int) model.CheckoutItem {
	return model.CheckoutItem{Type: model.ItemTypeTicket, EntryID: entryID, Quantity: qty}
}

func product(entryID int64, qty int) model.CheckoutItem {
	return model.CheckoutItem{Type: model.ItemTypeProduct, EntryID: entryID, Quantity: qty}
}

func (f *fixture) mustCreate(t *testing.T, req model.CheckoutRequest) *model.CheckoutResult {
	t.Helper()
	result, err := f.lifecycle.Create(context.Background(), req)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	return result
}

func (f *fixture) callback(result *model.CheckoutResult, status string, amount int64) []byte {
	return f.gateway.EncodeCallback(map[string]string{
		gateway.FieldOrderRef:       result.Redirect.Fields[gateway.FieldOrderRef],
		gateway.FieldAttemptRef:     result.Redirect.Fields[gateway.FieldAttemptRef],
		gateway.FieldAmount:         strconv.FormatInt(amount, 10),
		gateway.FieldStatus:         status,
		gateway.FieldTransactionRef: "txn-" + result.Redirect.Fields[gateway.FieldAttemptRef],
	})
}

func checkInventoryInvariant(t *testing.T, store *testhelpers.MemoryStore, entries ...model.CatalogEntry) {
	t.Helper()
	for _, e := range entries {
		got := store.Entry(e.ID)
		if got.Committed+got.Reserved > got.Capacity {
			t.Fatalf("entry %d oversold: committed %d reserved %d capacity %d", e.ID, got.Committed, got.Reserved, got.Capacity)
		}
		if active := store.ActiveReserved(e.ID); active != got.Reserved {
			t.Fatalf("entry %d reserved counter %d disagrees with active holds %d", e.ID, got.Reserved, active)
		}
	}
}
