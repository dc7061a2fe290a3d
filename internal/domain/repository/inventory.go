package repository

import (
	"context"
	"time"

	"github.com/polkiloo/boxoffice/internal/domain/model"
)

// InventoryLedger grants and resolves capacity holds. Reserve fails with a
// *errors.StockError when the entry cannot cover qty and leaves no partial hold.
// A non-positive qty is rejected with errors.ErrInvalidRequest.
type InventoryLedger interface {
	Reserve(ctx context.Context, entryID int64, qty int, orderID int64) error
	Release(ctx context.Context, orderID int64) error
	Commit(ctx context.Context, orderID int64) error
}

// CatalogReader is the read-only view of catalog prices and sale windows.
type CatalogReader interface {
	Lookup(ctx context.Context, ids []int64) (map[int64]model.CatalogEntry, error)
	PromoDiscount(ctx context.Context, code string, now time.Time) (int64, error)
}
