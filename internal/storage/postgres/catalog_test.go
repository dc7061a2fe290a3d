package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	pgxmockv3 "github.com/pashagolub/pgxmock/v3"

	domainErrors "github.com/polkiloo/boxoffice/internal/domain/errors"
	"github.com/polkiloo/boxoffice/internal/domain/model"
)

func TestCatalogLookup(t *testing.T) {
	storage, mock := newMockStorage(t)
	defer mock.Close()
	repo := storage.Catalog()

	ends := time.Now().Add(time.Hour)
	mock.ExpectQuery("FROM catalog_entries WHERE id = ANY").
		WithArgs([]int64{5, 6}).
		WillReturnRows(pgxmockv3.NewRows([]string{"id", "item_type", "name", "unit_price", "capacity", "committed", "reserved", "sale_starts_at", "sale_ends_at", "active"}).
			AddRow(int64(5), model.ItemTypeTicket, "GA", int64(500), 100, 10, 5, nil, &ends, true).
			AddRow(int64(6), model.ItemTypeProduct, "Shirt", int64(1500), 20, 0, 0, nil, nil, false))

	entries, err := repo.Lookup(context.Background(), []int64{5, 6})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if ga := entries[5]; ga.UnitPrice != 500 || ga.Remaining() != 85 || ga.SaleEndsAt == nil {
		t.Fatalf("unexpected entry %+v", ga)
	}
	if entries[6].Active {
		t.Fatalf("expected inactive product")
	}

	mock.ExpectQuery("FROM catalog_entries WHERE id = ANY").
		WithArgs([]int64{1}).
		WillReturnError(errors.New("db"))
	if _, err := repo.Lookup(context.Background(), []int64{1}); err == nil {
		t.Fatal("expected error")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations not met: %v", err)
	}
}

func TestCatalogPromoDiscount(t *testing.T) {
	storage, mock := newMockStorage(t)
	defer mock.Close()
	repo := storage.Catalog()
	now := time.Now()

	mock.ExpectQuery("SELECT amount_off FROM promo_codes").
		WithArgs("SPRING", now).
		WillReturnRows(pgxmockv3.NewRows([]string{"amount_off"}).AddRow(int64(200)))
	if amount, err := repo.PromoDiscount(context.Background(), "SPRING", now); err != nil || amount != 200 {
		t.Fatalf("unexpected discount %d err=%v", amount, err)
	}

	mock.ExpectQuery("SELECT amount_off FROM promo_codes").
		WithArgs("NOPE", now).
		WillReturnError(pgx.ErrNoRows)
	if _, err := repo.PromoDiscount(context.Background(), "NOPE", now); !errors.Is(err, domainErrors.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations not met: %v", err)
	}
}
