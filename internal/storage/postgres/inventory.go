package postgres

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/jackc/pgx/v5"

	domainErrors "github.com/polkiloo/boxoffice/internal/domain/errors"
	"github.com/polkiloo/boxoffice/internal/domain/model"
)

type inventoryLedger struct {
	db queryer
}

// Reserve takes the row lock on the entry through a conditional update, so two
// buyers racing for the last unit serialize on the same row and only one matches.
func (l *inventoryLedger) Reserve(ctx context.Context, entryID int64, qty int, orderID int64) error {
	if qty <= 0 {
		return fmt.Errorf("%w: reserve quantity %d", domainErrors.ErrInvalidRequest, qty)
	}
	const reserve = `UPDATE catalog_entries SET reserved = reserved + $2
                     WHERE id=$1 AND active AND capacity - committed - reserved >= $2`
	tag, err := l.db.Exec(ctx, reserve, entryID, qty)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return l.shortfall(ctx, entryID, qty)
	}

	const insert = `INSERT INTO inventory_reservations (entry_id, order_id, quantity, status)
                    VALUES ($1, $2, $3, $4)`
	if _, err := l.db.Exec(ctx, insert, entryID, orderID, qty, model.ReservationActive); err != nil {
		return err
	}
	return nil
}

func (l *inventoryLedger) shortfall(ctx context.Context, entryID int64, qty int) error {
	const query = `SELECT capacity - committed - reserved, active FROM catalog_entries WHERE id=$1`
	var (
		remaining int
		active    bool
	)
	if err := l.db.QueryRow(ctx, query, entryID).Scan(&remaining, &active); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return &domainErrors.UnavailableError{EntryID: entryID, Reason: "no longer exists"}
		}
		return err
	}
	if !active {
		return &domainErrors.UnavailableError{EntryID: entryID, Reason: "is not active"}
	}
	if remaining < 0 {
		remaining = 0
	}
	return &domainErrors.StockError{EntryID: entryID, Requested: qty, Remaining: remaining}
}

func (l *inventoryLedger) Release(ctx context.Context, orderID int64) error {
	const update = `UPDATE catalog_entries SET reserved = reserved - $2 WHERE id=$1`
	return l.resolve(ctx, orderID, model.ReservationReleased, update)
}

func (l *inventoryLedger) Commit(ctx context.Context, orderID int64) error {
	const update = `UPDATE catalog_entries SET reserved = reserved - $2, committed = committed + $2 WHERE id=$1`
	return l.resolve(ctx, orderID, model.ReservationCommitted, update)
}

// resolve moves every active hold of the order to status and applies update per
// entry in ascending id order.
func (l *inventoryLedger) resolve(ctx context.Context, orderID int64, status model.ReservationStatus, update string) error {
	const lockHolds = `SELECT entry_id, quantity FROM inventory_reservations
                       WHERE order_id=$1 AND status=$2
                       FOR UPDATE`
	rows, err := l.db.Query(ctx, lockHolds, orderID, model.ReservationActive)
	if err != nil {
		return err
	}

	held := make(map[int64]int)
	for rows.Next() {
		var (
			entryID int64
			qty     int
		)
		if err := rows.Scan(&entryID, &qty); err != nil {
			rows.Close()
			return err
		}
		held[entryID] += qty
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}
	if len(held) == 0 {
		return nil
	}

	entries := make([]int64, 0, len(held))
	for id := range held {
		entries = append(entries, id)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i] < entries[j] })

	for _, entryID := range entries {
		if _, err := l.db.Exec(ctx, update, entryID, held[entryID]); err != nil {
			return err
		}
	}

	const mark = `UPDATE inventory_reservations SET status=$2, resolved_at=NOW()
                  WHERE order_id=$1 AND status=$3`
	if _, err := l.db.Exec(ctx, mark, orderID, status, model.ReservationActive); err != nil {
		return err
	}
	return nil
}
