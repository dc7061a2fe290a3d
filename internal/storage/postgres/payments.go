package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	domainErrors "github.com/polkiloo/boxoffice/internal/domain/errors"
	"github.com/polkiloo/boxoffice/internal/domain/model"
)

type paymentRepository struct {
	db queryer
}

const attemptColumns = `id, order_id, reference, transaction_ref, outcome, raw_callback, created_at, resolved_at`

func scanAttempt(row pgx.Row) (*model.PaymentAttempt, error) {
	var a model.PaymentAttempt
	if err := row.Scan(&a.ID, &a.OrderID, &a.Reference, &a.TransactionRef, &a.Outcome, &a.RawCallback, &a.CreatedAt, &a.ResolvedAt); err != nil {
		return nil, notFound(err)
	}
	return &a, nil
}

func (r *paymentRepository) Create(ctx context.Context, attempt *model.PaymentAttempt) error {
	const query = `INSERT INTO payment_attempts (order_id, reference, outcome, created_at)
                   VALUES ($1, $2, $3, $4) RETURNING id`
	err := r.db.QueryRow(ctx, query, attempt.OrderID, attempt.Reference, attempt.Outcome, attempt.CreatedAt).Scan(&attempt.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return domainErrors.ErrAlreadyExists
		}
		return err
	}
	return nil
}

func (r *paymentRepository) Active(ctx context.Context, orderID int64) (*model.PaymentAttempt, error) {
	const query = `SELECT ` + attemptColumns + ` FROM payment_attempts WHERE order_id=$1 AND outcome=$2`
	return scanAttempt(r.db.QueryRow(ctx, query, orderID, model.PaymentPending))
}

func (r *paymentRepository) GetByReference(ctx context.Context, reference string) (*model.PaymentAttempt, error) {
	const query = `SELECT ` + attemptColumns + ` FROM payment_attempts WHERE reference=$1 FOR UPDATE`
	return scanAttempt(r.db.QueryRow(ctx, query, reference))
}

func (r *paymentRepository) SupersedeActive(ctx context.Context, orderID int64, at time.Time) error {
	const query = `UPDATE payment_attempts SET outcome=$2, resolved_at=$3 WHERE order_id=$1 AND outcome=$4`
	_, err := r.db.Exec(ctx, query, orderID, model.PaymentSuperseded, at, model.PaymentPending)
	return err
}

func (r *paymentRepository) Resolve(ctx context.Context, id int64, outcome model.PaymentOutcome, transactionRef string, raw []byte, at time.Time) error {
	const query = `UPDATE payment_attempts SET outcome=$2, transaction_ref=$3, raw_callback=$4, resolved_at=$5 WHERE id=$1`
	tag, err := r.db.Exec(ctx, query, id, outcome, transactionRef, raw, at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domainErrors.ErrNotFound
	}
	return nil
}

func (r *paymentRepository) FailPending(ctx context.Context, orderID int64, at time.Time) error {
	const query = `UPDATE payment_attempts SET outcome=$2, resolved_at=$3 WHERE order_id=$1 AND outcome=$4`
	_, err := r.db.Exec(ctx, query, orderID, model.PaymentFailure, at, model.PaymentPending)
	return err
}

type ticketRepository struct {
	db queryer
}

func (r *ticketRepository) Issue(ctx context.Context, tickets []model.IssuedTicket) error {
	const query = `INSERT INTO issued_tickets (order_id, line_item_id, entry_id, code, issued_at)
                   VALUES ($1, $2, $3, $4, $5) RETURNING id`
	for i := range tickets {
		t := &tickets[i]
		if err := r.db.QueryRow(ctx, query, t.OrderID, t.LineItemID, t.EntryID, t.Code, t.IssuedAt).Scan(&t.ID); err != nil {
			if isUniqueViolation(err) {
				return domainErrors.ErrAlreadyExists
			}
			return err
		}
	}
	return nil
}

func (r *ticketRepository) ListByOrder(ctx context.Context, orderID int64) ([]model.IssuedTicket, error) {
	const query = `SELECT id, order_id, line_item_id, entry_id, code, issued_at
                   FROM issued_tickets WHERE order_id=$1 ORDER BY id`
	rows, err := r.db.Query(ctx, query, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []model.IssuedTicket
	for rows.Next() {
		var t model.IssuedTicket
		if err := rows.Scan(&t.ID, &t.OrderID, &t.LineItemID, &t.EntryID, &t.Code, &t.IssuedAt); err != nil {
			return nil, err
		}
		result = append(result, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *ticketRepository) CountByOrder(ctx context.Context, orderID int64) (int, error) {
	const query = `SELECT COUNT(*) FROM issued_tickets WHERE order_id=$1`
	var n int
	if err := r.db.QueryRow(ctx, query, orderID).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}
