package postgres

import (
	"context"
	"time"

	"github.com/polkiloo/boxoffice/internal/domain/model"
)

type catalogRepository struct {
	db queryer
}

func (r *catalogRepository) Lookup(ctx context.Context, ids []int64) (map[int64]model.CatalogEntry, error) {
	const query = `SELECT id, item_type, name, unit_price, capacity, committed, reserved, sale_starts_at, sale_ends_at, active
                   FROM catalog_entries WHERE id = ANY($1)`
	rows, err := r.db.Query(ctx, query, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make(map[int64]model.CatalogEntry, len(ids))
	for rows.Next() {
		var e model.CatalogEntry
		if err := rows.Scan(&e.ID, &e.Type, &e.Name, &e.UnitPrice, &e.Capacity, &e.Committed, &e.Reserved, &e.SaleStartsAt, &e.SaleEndsAt, &e.Active); err != nil {
			return nil, err
		}
		result[e.ID] = e
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *catalogRepository) PromoDiscount(ctx context.Context, code string, now time.Time) (int64, error) {
	const query = `SELECT amount_off FROM promo_codes
                   WHERE code=$1 AND active
                   AND (starts_at IS NULL OR starts_at <= $2)
                   AND (ends_at IS NULL OR ends_at > $2)`
	var amount int64
	if err := r.db.QueryRow(ctx, query, code, now).Scan(&amount); err != nil {
		return 0, notFound(err)
	}
	return amount, nil
}
