package quotes

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
)

// Every transition runs as one transaction: lock the quote row, re-check the
// guard against the fresh state, write the new status plus its timestamp,
// commit. The database is the only lock manager.

func (r *Repo) lockQuote(ctx context.Context, tx pgx.Tx, id string) (*Quote, error) {
	q, err := scanQuote(tx.QueryRow(ctx, `SELECT `+quoteColumns+` FROM quotes WHERE id=$1 FOR UPDATE`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	rows, err := tx.Query(ctx, `
		SELECT id, quote_id, product_id, name, qty, unit_price_cents, line_total_cents
		FROM quote_items WHERE quote_id=$1 ORDER BY product_id`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var it LineItem
		if err := rows.Scan(&it.ID, &it.QuoteID, &it.ProductID, &it.Name, &it.Qty, &it.UnitPriceCents, &it.LineTotalCents); err != nil {
			return nil, err
		}
		q.Items = append(q.Items, it)
	}
	return q, rows.Err()
}

func (r *Repo) transition(ctx context.Context, id string, fn func(tx pgx.Tx, q *Quote, now time.Time) error) (*Quote, error) {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	q, err := r.lockQuote(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	if err := fn(tx, q, now); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return q, nil
}

func (r *Repo) Send(ctx context.Context, id string) (*Quote, error) {
	return r.transition(ctx, id, func(tx pgx.Tx, q *Quote, now time.Time) error {
		if err := guardSend(q); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `UPDATE quotes SET status=$2, sent_at=$3 WHERE id=$1`, q.ID, StatusSent, now); err != nil {
			return err
		}
		q.Status, q.SentAt = StatusSent, &now
		return nil
	})
}

// MarkViewed records the first buyer open. Repeat opens stay where they are.
func (r *Repo) MarkViewed(ctx context.Context, id string) (*Quote, error) {
	return r.transition(ctx, id, func(tx pgx.Tx, q *Quote, now time.Time) error {
		apply, err := guardMarkViewed(q)
		if err != nil || !apply {
			return err
		}
		if _, err := tx.Exec(ctx, `UPDATE quotes SET status=$2, viewed_at=$3 WHERE id=$1`, q.ID, StatusViewed, now); err != nil {
			return err
		}
		q.Status, q.ViewedAt = StatusViewed, &now
		return nil
	})
}

// Accept flips the quote and reserves stock for every line item in the same
// transaction. Product rows are locked in item order (sorted by product_id);
// any shortfall aborts the whole thing, including the status change.
func (r *Repo) Accept(ctx context.Context, id string) (*Quote, error) {
	return r.transition(ctx, id, func(tx pgx.Tx, q *Quote, now time.Time) error {
		if err := guardAccept(q, now); err != nil {
			return err
		}
		var rejects []StockRejectedDetail
		for _, it := range q.Items {
			if done, err := alreadyReserved(ctx, tx, q.ID, it.ProductID); err != nil {
				return err
			} else if done {
				continue
			}
			var stock int
			if err := tx.QueryRow(ctx, `SELECT stock FROM products WHERE id=$1 FOR UPDATE`, it.ProductID).Scan(&stock); err != nil {
				return err
			}
			if stock < it.Qty {
				rejects = append(rejects, StockRejectedDetail{ProductID: it.ProductID, Required: it.Qty, Available: stock})
				continue
			}
			if _, err := tx.Exec(ctx, `UPDATE products SET stock = stock - $2, updated_at = $3 WHERE id=$1`, it.ProductID, it.Qty, now); err != nil {
				return err
			}
			if _, err := tx.Exec(ctx, `
				INSERT INTO reservations(quote_id, product_id, qty, status)
				VALUES ($1,$2,$3,'RESERVED')
				ON CONFLICT (quote_id, product_id) DO NOTHING`, q.ID, it.ProductID, it.Qty); err != nil {
				return err
			}
		}
		if len(rejects) > 0 {
			return &InsufficientStockError{Details: rejects}
		}
		if _, err := tx.Exec(ctx, `UPDATE quotes SET status=$2, accepted_at=$3 WHERE id=$1`, q.ID, StatusAccepted, now); err != nil {
			return err
		}
		q.Status, q.AcceptedAt = StatusAccepted, &now
		return nil
	})
}

func (r *Repo) RequestBalance(ctx context.Context, id string) (*Quote, error) {
	return r.transition(ctx, id, func(tx pgx.Tx, q *Quote, now time.Time) error {
		if err := guardRequestBalance(q); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `UPDATE quotes SET status=$2, balance_requested_at=$3 WHERE id=$1`, q.ID, StatusBalanceDue, now); err != nil {
			return err
		}
		q.Status, q.BalanceRequestedAt = StatusBalanceDue, &now
		return nil
	})
}

func (r *Repo) Cancel(ctx context.Context, id, reason string) (*Quote, error) {
	return r.transition(ctx, id, func(tx pgx.Tx, q *Quote, now time.Time) error {
		if err := guardCancel(q); err != nil {
			return err
		}
		if err := releaseInTx(ctx, tx, q.ID, now); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `UPDATE quotes SET status=$2, cancelled_at=$3, cancel_reason=$4 WHERE id=$1`,
			q.ID, StatusCancelled, now, reason); err != nil {
			return err
		}
		q.Status, q.CancelledAt, q.CancelReason = StatusCancelled, &now, reason
		return nil
	})
}

func (r *Repo) Complete(ctx context.Context, id string) (*Quote, error) {
	return r.transition(ctx, id, func(tx pgx.Tx, q *Quote, now time.Time) error {
		if err := guardComplete(q); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `UPDATE quotes SET status=$2, completed_at=$3 WHERE id=$1`, q.ID, StatusCompleted, now); err != nil {
			return err
		}
		q.Status, q.CompletedAt = StatusCompleted, &now
		return nil
	})
}

// Expire transitions a single overdue quote. Used by the sweeper and safe to
// call concurrently with buyer actions: the row lock decides who wins.
func (r *Repo) Expire(ctx context.Context, id string) (*Quote, error) {
	return r.transition(ctx, id, func(tx pgx.Tx, q *Quote, now time.Time) error {
		if err := guardExpire(q, now); err != nil {
			return err
		}
		if err := releaseInTx(ctx, tx, q.ID, now); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `UPDATE quotes SET status=$2, expired_at=$3 WHERE id=$1`, q.ID, StatusExpired, now); err != nil {
			return err
		}
		q.Status, q.ExpiredAt = StatusExpired, &now
		return nil
	})
}

// ExpireDueIDs lists quotes past valid_until that the sweeper should expire.
func (r *Repo) ExpireDueIDs(ctx context.Context, now time.Time, limit int) ([]string, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT id FROM quotes
		WHERE status IN ($1,$2,$3) AND valid_until IS NOT NULL AND valid_until < $4
		ORDER BY valid_until ASC
		LIMIT $5`, StatusSent, StatusViewed, StatusAccepted, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
