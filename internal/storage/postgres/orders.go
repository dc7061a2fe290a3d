package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	domainErrors "github.com/polkiloo/boxoffice/internal/domain/errors"
	"github.com/polkiloo/boxoffice/internal/domain/model"
)

type orderRepository struct {
	db queryer
}

const orderColumns = `id, number, user_id, status, subtotal, discount, total, promo_code,
        billing_name, billing_phone, billing_email, billing_address,
        created_at, expires_at, paid_at, cancelled_at, cancel_reason, completed_at, updated_at`

func scanOrder(row pgx.Row) (*model.Order, error) {
	var o model.Order
	err := row.Scan(
		&o.ID, &o.Number, &o.UserID, &o.Status, &o.Subtotal, &o.Discount, &o.Total, &o.PromoCode,
		&o.Billing.Name, &o.Billing.Phone, &o.Billing.Email, &o.Billing.Address,
		&o.CreatedAt, &o.ExpiresAt, &o.PaidAt, &o.CancelledAt, &o.CancelReason, &o.CompletedAt, &o.UpdatedAt,
	)
	if err != nil {
		return nil, notFound(err)
	}
	return &o, nil
}

func (r *orderRepository) Create(ctx context.Context, order *model.Order) error {
	const insertOrder = `INSERT INTO orders (number, user_id, status, subtotal, discount, total, promo_code,
                         billing_name, billing_phone, billing_email, billing_address, created_at, expires_at, updated_at)
                         VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $12)
                         RETURNING id`
	err := r.db.QueryRow(ctx, insertOrder,
		order.Number, order.UserID, order.Status, order.Subtotal, order.Discount, order.Total, order.PromoCode,
		order.Billing.Name, order.Billing.Phone, order.Billing.Email, order.Billing.Address,
		order.CreatedAt, order.ExpiresAt,
	).Scan(&order.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return domainErrors.ErrAlreadyExists
		}
		return err
	}
	order.UpdatedAt = order.CreatedAt

	const insertItem = `INSERT INTO order_line_items (order_id, item_type, entry_id, name, quantity, unit_price)
                        VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`
	for i := range order.Items {
		item := &order.Items[i]
		item.OrderID = order.ID
		if err := r.db.QueryRow(ctx, insertItem, order.ID, item.Type, item.EntryID, item.Name, item.Quantity, item.UnitPrice).Scan(&item.ID); err != nil {
			return err
		}
	}
	return nil
}

func (r *orderRepository) GetByID(ctx context.Context, id int64) (*model.Order, error) {
	return r.get(ctx, `SELECT `+orderColumns+` FROM orders WHERE id=$1`, id)
}

func (r *orderRepository) GetForUpdate(ctx context.Context, id int64) (*model.Order, error) {
	return r.get(ctx, `SELECT `+orderColumns+` FROM orders WHERE id=$1 FOR UPDATE`, id)
}

func (r *orderRepository) GetByNumberForUpdate(ctx context.Context, number string) (*model.Order, error) {
	return r.get(ctx, `SELECT `+orderColumns+` FROM orders WHERE number=$1 FOR UPDATE`, number)
}

func (r *orderRepository) get(ctx context.Context, query string, arg any) (*model.Order, error) {
	order, err := scanOrder(r.db.QueryRow(ctx, query, arg))
	if err != nil {
		return nil, err
	}
	if order.Items, err = r.items(ctx, order.ID); err != nil {
		return nil, err
	}
	return order, nil
}

func (r *orderRepository) items(ctx context.Context, orderID int64) ([]model.LineItem, error) {
	const query = `SELECT id, order_id, item_type, entry_id, name, quantity, unit_price
                   FROM order_line_items WHERE order_id=$1 ORDER BY id`
	rows, err := r.db.Query(ctx, query, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []model.LineItem
	for rows.Next() {
		var item model.LineItem
		if err := rows.Scan(&item.ID, &item.OrderID, &item.Type, &item.EntryID, &item.Name, &item.Quantity, &item.UnitPrice); err != nil {
			return nil, err
		}
		result = append(result, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *orderRepository) MarkPaid(ctx context.Context, id int64, at time.Time) error {
	const query = `UPDATE orders SET status=$2, paid_at=$3, expires_at=NULL, updated_at=$3
                   WHERE id=$1 AND status=$4 AND paid_at IS NULL`
	return r.transition(ctx, query, id, model.OrderStatusPaid, at, model.OrderStatusPending)
}

func (r *orderRepository) MarkCancelled(ctx context.Context, id int64, reason string, at time.Time) error {
	const query = `UPDATE orders SET status=$2, cancelled_at=$3, cancel_reason=$5, expires_at=NULL, updated_at=$3
                   WHERE id=$1 AND status=$4`
	return r.transition(ctx, query, id, model.OrderStatusCancelled, at, model.OrderStatusPending, reason)
}

func (r *orderRepository) MarkCompleted(ctx context.Context, id int64, at time.Time) error {
	const query = `UPDATE orders SET status=$2, completed_at=$3, updated_at=$3
                   WHERE id=$1 AND status=$4`
	return r.transition(ctx, query, id, model.OrderStatusCompleted, at, model.OrderStatusPaid)
}

func (r *orderRepository) transition(ctx context.Context, query string, args ...any) error {
	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domainErrors.ErrNotFound
	}
	return nil
}

func (r *orderRepository) ListDueForExpiry(ctx context.Context, now time.Time, limit int) ([]int64, error) {
	const query = `SELECT id FROM orders
                   WHERE status=$1 AND expires_at <= $2
                   ORDER BY expires_at
                   LIMIT $3`
	rows, err := r.db.Query(ctx, query, model.OrderStatusPending, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return ids, nil
}
