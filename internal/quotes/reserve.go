package quotes

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
)

// Reserve decrements stock for a single product iff enough is available.
// Read and decrement happen under the product row lock, so with stock=N and
// M concurrent single-unit calls exactly N succeed; stock never goes negative.
func (r *Repo) Reserve(ctx context.Context, quoteID, productID string, qty int) error {
	if qty < 1 {
		return guardErr("qty must be at least 1")
	}
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// Retry short-circuit: the first call already decremented stock; doing it
	// again would leak units the later Release never restores.
	if done, err := alreadyReserved(ctx, tx, quoteID, productID); err != nil {
		return err
	} else if done {
		return nil
	}

	var stock int
	if err := tx.QueryRow(ctx, `SELECT stock FROM products WHERE id=$1 FOR UPDATE`, productID).Scan(&stock); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	if stock < qty {
		return &InsufficientStockError{Details: []StockRejectedDetail{
			{ProductID: productID, Required: qty, Available: stock},
		}}
	}
	now := time.Now().UTC()
	if _, err := tx.Exec(ctx, `UPDATE products SET stock = stock - $2, updated_at=$3 WHERE id=$1`, productID, qty, now); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `
		INSERT INTO reservations(quote_id, product_id, qty, status)
		VALUES ($1,$2,$3,'RESERVED')
		ON CONFLICT (quote_id, product_id) DO NOTHING`, quoteID, productID, qty); err != nil {
		return translatePG(err)
	}
	return tx.Commit(ctx)
}

// Release restores stock for every RESERVED row of the quote.
func (r *Repo) Release(ctx context.Context, quoteID string) error {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := releaseInTx(ctx, tx, quoteID, time.Now().UTC()); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func alreadyReserved(ctx context.Context, tx pgx.Tx, quoteID, productID string) (bool, error) {
	var n int
	err := tx.QueryRow(ctx, `
		SELECT COUNT(*) FROM reservations
		WHERE quote_id=$1 AND product_id=$2 AND status='RESERVED'`, quoteID, productID).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func releaseInTx(ctx context.Context, tx pgx.Tx, quoteID string, now time.Time) error {
	rows, err := tx.Query(ctx, `
		SELECT product_id, qty FROM reservations
		WHERE quote_id=$1 AND status='RESERVED'
		ORDER BY product_id
		FOR UPDATE`, quoteID)
	if err != nil {
		return err
	}
	type rec struct {
		pid string
		qty int
	}
	var recs []rec
	for rows.Next() {
		var x rec
		if err := rows.Scan(&x.pid, &x.qty); err != nil {
			rows.Close()
			return err
		}
		recs = append(recs, x)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	for _, x := range recs {
		if _, err := tx.Exec(ctx, `UPDATE products SET stock = stock + $2, updated_at=$3 WHERE id=$1`, x.pid, x.qty, now); err != nil {
			return err
		}
	}
	if len(recs) > 0 {
		if _, err := tx.Exec(ctx, `UPDATE reservations SET status='RELEASED' WHERE quote_id=$1 AND status='RESERVED'`, quoteID); err != nil {
			return err
		}
	}
	return nil
}
