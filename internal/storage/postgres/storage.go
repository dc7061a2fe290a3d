package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	domainErrors "github.com/polkiloo/boxoffice/internal/domain/errors"
	"github.com/polkiloo/boxoffice/internal/domain/repository"
)

type pgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	BeginTx(ctx context.Context, opts pgx.TxOptions) (pgx.Tx, error)
	Ping(ctx context.Context) error
	Close()
}

// queryer is satisfied by both the pool and an open transaction.
type queryer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

var newPgxPool = func(ctx context.Context, cfg *pgxpool.Config) (pgxPool, error) {
	return pgxpool.NewWithConfig(ctx, cfg)
}

// Storage acts as repository facade backed by PostgreSQL.
type Storage struct {
	pool   pgxPool
	logger *slog.Logger
}

// New creates storage with schema initialization.
func New(ctx context.Context, dsn string, logger *slog.Logger) (*Storage, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}

	pool, err := newPgxPool(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect db: %w", err)
	}

	storage := &Storage{pool: pool, logger: logger}
	if err := storage.initSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return storage, nil
}

// Close releases database resources.
func (s *Storage) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Factory methods bound to the pool, outside any transaction.
func (s *Storage) Orders() repository.OrderRepository {
	return &orderRepository{db: s.pool}
}

func (s *Storage) Inventory() repository.InventoryLedger {
	return &inventoryLedger{db: s.pool}
}

func (s *Storage) Payments() repository.PaymentRepository {
	return &paymentRepository{db: s.pool}
}

func (s *Storage) Tickets() repository.TicketRepository {
	return &ticketRepository{db: s.pool}
}

// Catalog returns the read-only catalog view.
func (s *Storage) Catalog() repository.CatalogReader {
	return &catalogRepository{db: s.pool}
}

func (s *Storage) initSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS catalog_entries (
            id BIGSERIAL PRIMARY KEY,
            item_type TEXT NOT NULL,
            name TEXT NOT NULL,
            unit_price BIGINT NOT NULL CHECK (unit_price >= 0),
            capacity INTEGER NOT NULL CHECK (capacity >= 0),
            committed INTEGER NOT NULL DEFAULT 0 CHECK (committed >= 0),
            reserved INTEGER NOT NULL DEFAULT 0 CHECK (reserved >= 0),
            sale_starts_at TIMESTAMPTZ,
            sale_ends_at TIMESTAMPTZ,
            active BOOLEAN NOT NULL DEFAULT TRUE,
            CHECK (committed + reserved <= capacity)
        )`,
		`CREATE TABLE IF NOT EXISTS promo_codes (
            code TEXT PRIMARY KEY,
            amount_off BIGINT NOT NULL CHECK (amount_off >= 0),
            active BOOLEAN NOT NULL DEFAULT TRUE,
            starts_at TIMESTAMPTZ,
            ends_at TIMESTAMPTZ
        )`,
		`CREATE TABLE IF NOT EXISTS orders (
            id BIGSERIAL PRIMARY KEY,
            number TEXT UNIQUE NOT NULL,
            user_id BIGINT NOT NULL,
            status TEXT NOT NULL,
            subtotal BIGINT NOT NULL,
            discount BIGINT NOT NULL DEFAULT 0,
            total BIGINT NOT NULL,
            promo_code TEXT NOT NULL DEFAULT '',
            billing_name TEXT NOT NULL DEFAULT '',
            billing_phone TEXT NOT NULL DEFAULT '',
            billing_email TEXT NOT NULL DEFAULT '',
            billing_address TEXT NOT NULL DEFAULT '',
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            expires_at TIMESTAMPTZ,
            paid_at TIMESTAMPTZ,
            cancelled_at TIMESTAMPTZ,
            cancel_reason TEXT NOT NULL DEFAULT '',
            completed_at TIMESTAMPTZ,
            updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            CHECK (total = subtotal - discount),
            CHECK (status = 'pending' OR expires_at IS NULL)
        )`,
		`CREATE TABLE IF NOT EXISTS order_line_items (
            id BIGSERIAL PRIMARY KEY,
            order_id BIGINT NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
            item_type TEXT NOT NULL,
            entry_id BIGINT NOT NULL REFERENCES catalog_entries(id),
            name TEXT NOT NULL DEFAULT '',
            quantity INTEGER NOT NULL CHECK (quantity > 0),
            unit_price BIGINT NOT NULL
        )`,
		`CREATE TABLE IF NOT EXISTS inventory_reservations (
            id BIGSERIAL PRIMARY KEY,
            entry_id BIGINT NOT NULL REFERENCES catalog_entries(id),
            order_id BIGINT NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
            quantity INTEGER NOT NULL CHECK (quantity > 0),
            status TEXT NOT NULL,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            resolved_at TIMESTAMPTZ
        )`,
		`CREATE TABLE IF NOT EXISTS payment_attempts (
            id BIGSERIAL PRIMARY KEY,
            order_id BIGINT NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
            reference TEXT UNIQUE NOT NULL,
            transaction_ref TEXT NOT NULL DEFAULT '',
            outcome TEXT NOT NULL,
            raw_callback BYTEA,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            resolved_at TIMESTAMPTZ
        )`,
		`CREATE TABLE IF NOT EXISTS issued_tickets (
            id BIGSERIAL PRIMARY KEY,
            order_id BIGINT NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
            line_item_id BIGINT NOT NULL REFERENCES order_line_items(id),
            entry_id BIGINT NOT NULL,
            code TEXT UNIQUE NOT NULL,
            issued_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        )`,
		`CREATE INDEX IF NOT EXISTS idx_orders_due ON orders(expires_at) WHERE status = 'pending'`,
		`CREATE INDEX IF NOT EXISTS idx_reservations_order ON inventory_reservations(order_id) WHERE status = 'active'`,
		`CREATE UNIQUE INDEX IF NOT EXISTS ux_payment_attempts_pending ON payment_attempts(order_id) WHERE outcome = 'pending'`,
		`CREATE INDEX IF NOT EXISTS idx_tickets_order ON issued_tickets(order_id)`,
	}

	for _, stmt := range statements {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}

	return nil
}

// WithinTransaction runs fn with repositories bound to one transaction.
// Serialization failures, deadlocks and lock timeouts are wrapped with
// repository.ErrRetryable.
func (s *Storage) WithinTransaction(ctx context.Context, fn func(repository.Factory) error) error {
	err := s.withinTx(ctx, func(tx pgx.Tx) error {
		return fn(&txFactory{tx: tx})
	})
	return classify(err)
}

func (s *Storage) withinTx(ctx context.Context, fn func(pgx.Tx) error) (err error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		} else {
			err = tx.Commit(ctx)
		}
	}()

	err = fn(tx)
	return err
}

// HealthCheck verifies database connectivity.
func (s *Storage) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return s.pool.Ping(ctx)
}

// Logger returns storage logger.
func (s *Storage) Logger() *slog.Logger {
	return s.logger
}

type txFactory struct {
	tx pgx.Tx
}

func (f *txFactory) Orders() repository.OrderRepository {
	return &orderRepository{db: f.tx}
}

func (f *txFactory) Inventory() repository.InventoryLedger {
	return &inventoryLedger{db: f.tx}
}

func (f *txFactory) Payments() repository.PaymentRepository {
	return &paymentRepository{db: f.tx}
}

func (f *txFactory) Tickets() repository.TicketRepository {
	return &ticketRepository{db: f.tx}
}

const (
	codeUniqueViolation      = "23505"
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
	codeLockNotAvailable     = "55P03"
)

func classify(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeSerializationFailure, codeDeadlockDetected, codeLockNotAvailable:
			return fmt.Errorf("%w: %w", repository.ErrRetryable, err)
		}
	}
	return err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == codeUniqueViolation
}

func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return domainErrors.ErrNotFound
	}
	return err
}
