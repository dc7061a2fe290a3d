package test

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	domainErrors "github.com/polkiloo/boxoffice/internal/domain/errors"
	"github.com/polkiloo/boxoffice/internal/domain/model"
	"github.com/polkiloo/boxoffice/internal/domain/repository"
)

// CatalogStub serves catalog entries and promo codes from memory.
type CatalogStub struct {
	Entries map[int64]model.CatalogEntry
	Promos  map[string]int64
	Err     error

	mu      sync.Mutex
	lookups int
}

// NewCatalogStub constructs a stub holding the given entries.
func NewCatalogStub(entries ...model.CatalogEntry) *CatalogStub {
	s := &CatalogStub{Entries: make(map[int64]model.CatalogEntry, len(entries)), Promos: map[string]int64{}}
	for _, e := range entries {
		s.Entries[e.ID] = e
	}
	return s
}

// Lookup returns the known subset of ids.
func (s *CatalogStub) Lookup(_ context.Context, ids []int64) (map[int64]model.CatalogEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lookups++
	if s.Err != nil {
		return nil, s.Err
	}
	out := make(map[int64]model.CatalogEntry, len(ids))
	for _, id := range ids {
		if e, ok := s.Entries[id]; ok {
			out[id] = e
		}
	}
	return out, nil
}

// PromoDiscount returns the configured amount or ErrNotFound.
func (s *CatalogStub) PromoDiscount(_ context.Context, code string, _ time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return 0, s.Err
	}
	amount, ok := s.Promos[code]
	if !ok {
		return 0, domainErrors.ErrNotFound
	}
	return amount, nil
}

// LookupCalls reports how many times Lookup was invoked.
func (s *CatalogStub) LookupCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lookups
}

// MemoryStore is an in-memory Transactor. Transactions are serialized and
// operate on a copy of the state that replaces the original only when fn
// succeeds, so failed transactions leave no trace.
type MemoryStore struct {
	mu      sync.Mutex
	state   *memState
	txErrs  []error
	txCount int
}

type memState struct {
	entries      map[int64]model.CatalogEntry
	promos       map[string]int64
	orders       map[int64]model.Order
	reservations []model.Reservation
	attempts     []model.PaymentAttempt
	tickets      []model.IssuedTicket
	nextID       int64
}

// NewMemoryStore seeds a store with catalog entries.
func NewMemoryStore(entries ...model.CatalogEntry) *MemoryStore {
	st := &memState{
		entries: make(map[int64]model.CatalogEntry),
		promos:  make(map[string]int64),
		orders:  make(map[int64]model.Order),
	}
	for _, e := range entries {
		st.entries[e.ID] = e
	}
	return &MemoryStore{state: st}
}

func (s *memState) clone() *memState {
	c := &memState{
		entries:      make(map[int64]model.CatalogEntry, len(s.entries)),
		promos:       make(map[string]int64, len(s.promos)),
		orders:       make(map[int64]model.Order, len(s.orders)),
		reservations: append([]model.Reservation(nil), s.reservations...),
		attempts:     append([]model.PaymentAttempt(nil), s.attempts...),
		tickets:      append([]model.IssuedTicket(nil), s.tickets...),
		nextID:       s.nextID,
	}
	for k, v := range s.entries {
		c.entries[k] = v
	}
	for k, v := range s.promos {
		c.promos[k] = v
	}
	for k, v := range s.orders {
		v.Items = append([]model.LineItem(nil), v.Items...)
		c.orders[k] = v
	}
	return c
}

func (s *memState) id() int64 {
	s.nextID++
	return s.nextID
}

// FailNextTransactions makes the next len(errs) transactions fail with errs in order
// before fn runs.
func (m *MemoryStore) FailNextTransactions(errs ...error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.txErrs = append(m.txErrs, errs...)
}

// Transactions reports how many transactions were started.
func (m *MemoryStore) Transactions() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.txCount
}

// WithinTransaction implements repository.Transactor.
func (m *MemoryStore) WithinTransaction(ctx context.Context, fn func(repository.Factory) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.txCount++
	if len(m.txErrs) > 0 {
		err := m.txErrs[0]
		m.txErrs = m.txErrs[1:]
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	working := m.state.clone()
	if err := fn(memFactory{st: working}); err != nil {
		return err
	}
	m.state = working
	return nil
}

// Lookup implements repository.CatalogReader over the store's entries.
func (m *MemoryStore) Lookup(_ context.Context, ids []int64) (map[int64]model.CatalogEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[int64]model.CatalogEntry, len(ids))
	for _, id := range ids {
		if e, ok := m.state.entries[id]; ok {
			out[id] = e
		}
	}
	return out, nil
}

// PromoDiscount implements repository.CatalogReader.
func (m *MemoryStore) PromoDiscount(_ context.Context, code string, _ time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	amount, ok := m.state.promos[code]
	if !ok {
		return 0, domainErrors.ErrNotFound
	}
	return amount, nil
}

// AddPromo registers a fixed-amount promo code.
func (m *MemoryStore) AddPromo(code string, amount int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.promos[code] = amount
}

// UpdateEntry replaces a catalog entry, keeping its ledger counters.
func (m *MemoryStore) UpdateEntry(entry model.CatalogEntry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cur, ok := m.state.entries[entry.ID]; ok {
		entry.Committed = cur.Committed
		entry.Reserved = cur.Reserved
	}
	m.state.entries[entry.ID] = entry
}

// Entry returns the current ledger view of a catalog entry.
func (m *MemoryStore) Entry(id int64) model.CatalogEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.entries[id]
}

// Order returns a copy of the stored order or nil.
func (m *MemoryStore) Order(id int64) *model.Order {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.state.orders[id]
	if !ok {
		return nil
	}
	o.Items = append([]model.LineItem(nil), o.Items...)
	return &o
}

// OrderCount reports how many orders exist.
func (m *MemoryStore) OrderCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.state.orders)
}

// Attempts returns the payment attempts of an order in creation order.
func (m *MemoryStore) Attempts(orderID int64) []model.PaymentAttempt {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.PaymentAttempt
	for _, a := range m.state.attempts {
		if a.OrderID == orderID {
			out = append(out, a)
		}
	}
	return out
}

// Tickets returns tickets issued for an order.
func (m *MemoryStore) Tickets(orderID int64) []model.IssuedTicket {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.IssuedTicket
	for _, t := range m.state.tickets {
		if t.OrderID == orderID {
			out = append(out, t)
		}
	}
	return out
}

// Reservations returns holds of an order.
func (m *MemoryStore) Reservations(orderID int64) []model.Reservation {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Reservation
	for _, r := range m.state.reservations {
		if r.OrderID == orderID {
			out = append(out, r)
		}
	}
	return out
}

// ActiveReserved sums active holds against an entry.
func (m *MemoryStore) ActiveReserved(entryID int64) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, r := range m.state.reservations {
		if r.EntryID == entryID && r.Status == model.ReservationActive {
			n += r.Quantity
		}
	}
	return n
}

type memFactory struct {
	st *memState
}

func (f memFactory) Orders() repository.OrderRepository { return memOrders{f.st} }
func (f memFactory) Inventory() repository.InventoryLedger { return memLedger{f.st} }
func (f memFactory) Payments() repository.PaymentRepository { return memPayments{f.st} }
func (f memFactory) Tickets() repository.TicketRepository { return memTickets{f.st} }

type memOrders struct{ st *memState }

func (r memOrders) Create(_ context.Context, order *model.Order) error {
	for _, o := range r.st.orders {
		if o.Number == order.Number {
			return domainErrors.ErrAlreadyExists
		}
	}
	order.ID = r.st.id()
	for i := range order.Items {
		order.Items[i].ID = r.st.id()
		order.Items[i].OrderID = order.ID
	}
	stored := *order
	stored.Items = append([]model.LineItem(nil), order.Items...)
	stored.Tickets = nil
	r.st.orders[order.ID] = stored
	return nil
}

func (r memOrders) get(id int64) (*model.Order, error) {
	o, ok := r.st.orders[id]
	if !ok {
		return nil, domainErrors.ErrNotFound
	}
	o.Items = append([]model.LineItem(nil), o.Items...)
	return &o, nil
}

func (r memOrders) GetByID(_ context.Context, id int64) (*model.Order, error) {
	return r.get(id)
}

func (r memOrders) GetForUpdate(_ context.Context, id int64) (*model.Order, error) {
	return r.get(id)
}

func (r memOrders) GetByNumberForUpdate(_ context.Context, number string) (*model.Order, error) {
	for id, o := range r.st.orders {
		if o.Number == number {
			return r.get(id)
		}
	}
	return nil, domainErrors.ErrNotFound
}

func (r memOrders) update(id int64, from model.OrderStatus, apply func(*model.Order)) error {
	o, ok := r.st.orders[id]
	if !ok || o.Status != from {
		return domainErrors.ErrNotFound
	}
	apply(&o)
	r.st.orders[id] = o
	return nil
}

func (r memOrders) MarkPaid(_ context.Context, id int64, at time.Time) error {
	return r.update(id, model.OrderStatusPending, func(o *model.Order) {
		o.Status = model.OrderStatusPaid
		o.PaidAt = &at
		o.ExpiresAt = nil
		o.UpdatedAt = at
	})
}

func (r memOrders) MarkCancelled(_ context.Context, id int64, reason string, at time.Time) error {
	return r.update(id, model.OrderStatusPending, func(o *model.Order) {
		o.Status = model.OrderStatusCancelled
		o.CancelledAt = &at
		o.CancelReason = reason
		o.ExpiresAt = nil
		o.UpdatedAt = at
	})
}

func (r memOrders) MarkCompleted(_ context.Context, id int64, at time.Time) error {
	return r.update(id, model.OrderStatusPaid, func(o *model.Order) {
		o.Status = model.OrderStatusCompleted
		o.CompletedAt = &at
		o.UpdatedAt = at
	})
}

func (r memOrders) ListDueForExpiry(_ context.Context, now time.Time, limit int) ([]int64, error) {
	var due []model.Order
	for _, o := range r.st.orders {
		if o.Status == model.OrderStatusPending && o.IsExpired(now) {
			due = append(due, o)
		}
	}
	sort.Slice(due, func(i, j int) bool {
		if due[i].ExpiresAt.Equal(*due[j].ExpiresAt) {
			return due[i].ID < due[j].ID
		}
		return due[i].ExpiresAt.Before(*due[j].ExpiresAt)
	})
	if limit > 0 && len(due) > limit {
		due = due[:limit]
	}
	ids := make([]int64, len(due))
	for i, o := range due {
		ids[i] = o.ID
	}
	return ids, nil
}

type memLedger struct{ st *memState }

func (l memLedger) Reserve(_ context.Context, entryID int64, qty int, orderID int64) error {
	if qty <= 0 {
		return fmt.Errorf("%w: reserve quantity %d", domainErrors.ErrInvalidRequest, qty)
	}
	e, ok := l.st.entries[entryID]
	if !ok || !e.Active {
		return &domainErrors.UnavailableError{EntryID: entryID, Reason: "is not available"}
	}
	if e.Remaining() < qty {
		return &domainErrors.StockError{EntryID: entryID, Requested: qty, Remaining: e.Remaining()}
	}
	e.Reserved += qty
	l.st.entries[entryID] = e
	l.st.reservations = append(l.st.reservations, model.Reservation{
		ID:       l.st.id(),
		EntryID:  entryID,
		OrderID:  orderID,
		Quantity: qty,
		Status:   model.ReservationActive,
	})
	return nil
}

func (l memLedger) resolve(orderID int64, status model.ReservationStatus) {
	for i, r := range l.st.reservations {
		if r.OrderID != orderID || r.Status != model.ReservationActive {
			continue
		}
		e := l.st.entries[r.EntryID]
		e.Reserved -= r.Quantity
		if status == model.ReservationCommitted {
			e.Committed += r.Quantity
		}
		l.st.entries[r.EntryID] = e
		l.st.reservations[i].Status = status
	}
}

func (l memLedger) Release(_ context.Context, orderID int64) error {
	l.resolve(orderID, model.ReservationReleased)
	return nil
}

func (l memLedger) Commit(_ context.Context, orderID int64) error {
	l.resolve(orderID, model.ReservationCommitted)
	return nil
}

type memPayments struct{ st *memState }

func (p memPayments) Create(_ context.Context, attempt *model.PaymentAttempt) error {
	for _, a := range p.st.attempts {
		if a.Reference == attempt.Reference {
			return domainErrors.ErrAlreadyExists
		}
		if a.OrderID == attempt.OrderID && a.Outcome == model.PaymentPending && attempt.Outcome == model.PaymentPending {
			return domainErrors.ErrAlreadyExists
		}
	}
	attempt.ID = p.st.id()
	p.st.attempts = append(p.st.attempts, *attempt)
	return nil
}

func (p memPayments) Active(_ context.Context, orderID int64) (*model.PaymentAttempt, error) {
	for _, a := range p.st.attempts {
		if a.OrderID == orderID && a.Outcome == model.PaymentPending {
			found := a
			return &found, nil
		}
	}
	return nil, domainErrors.ErrNotFound
}

func (p memPayments) GetByReference(_ context.Context, reference string) (*model.PaymentAttempt, error) {
	for _, a := range p.st.attempts {
		if a.Reference == reference {
			found := a
			return &found, nil
		}
	}
	return nil, domainErrors.ErrNotFound
}

func (p memPayments) setPending(orderID int64, outcome model.PaymentOutcome, at time.Time) {
	for i, a := range p.st.attempts {
		if a.OrderID == orderID && a.Outcome == model.PaymentPending {
			p.st.attempts[i].Outcome = outcome
			p.st.attempts[i].ResolvedAt = &at
		}
	}
}

func (p memPayments) SupersedeActive(_ context.Context, orderID int64, at time.Time) error {
	p.setPending(orderID, model.PaymentSuperseded, at)
	return nil
}

func (p memPayments) Resolve(_ context.Context, id int64, outcome model.PaymentOutcome, transactionRef string, raw []byte, at time.Time) error {
	for i, a := range p.st.attempts {
		if a.ID == id {
			p.st.attempts[i].Outcome = outcome
			p.st.attempts[i].TransactionRef = transactionRef
			p.st.attempts[i].RawCallback = append([]byte(nil), raw...)
			p.st.attempts[i].ResolvedAt = &at
			return nil
		}
	}
	return domainErrors.ErrNotFound
}

func (p memPayments) FailPending(_ context.Context, orderID int64, at time.Time) error {
	p.setPending(orderID, model.PaymentFailure, at)
	return nil
}

type memTickets struct{ st *memState }

func (t memTickets) Issue(_ context.Context, tickets []model.IssuedTicket) error {
	seen := make(map[string]struct{}, len(t.st.tickets))
	for _, existing := range t.st.tickets {
		seen[existing.Code] = struct{}{}
	}
	for i := range tickets {
		if _, dup := seen[tickets[i].Code]; dup {
			return domainErrors.ErrAlreadyExists
		}
		seen[tickets[i].Code] = struct{}{}
		tickets[i].ID = t.st.id()
		t.st.tickets = append(t.st.tickets, tickets[i])
	}
	return nil
}

func (t memTickets) ListByOrder(_ context.Context, orderID int64) ([]model.IssuedTicket, error) {
	var out []model.IssuedTicket
	for _, ticket := range t.st.tickets {
		if ticket.OrderID == orderID {
			out = append(out, ticket)
		}
	}
	return out, nil
}

func (t memTickets) CountByOrder(ctx context.Context, orderID int64) (int, error) {
	list, _ := t.ListByOrder(ctx, orderID)
	return len(list), nil
}

var (
	_ repository.Transactor    = (*MemoryStore)(nil)
	_ repository.CatalogReader = (*MemoryStore)(nil)
	_ repository.CatalogReader = (*CatalogStub)(nil)
)
