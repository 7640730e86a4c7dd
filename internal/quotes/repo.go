package quotes

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ItemInput struct {
	ProductID string `json:"product_id"`
	Qty       int    `json:"qty"`
}

type CreateInput struct {
	ExternalID    string
	SellerID      string
	BuyerEmail    string
	Currency      string
	TaxCents      int64
	ShippingCents int64
	DepositCents  int64
	ValidUntil    *time.Time
	Items         []ItemInput
}

type Repo struct{ DB *pgxpool.Pool }

const quoteColumns = `id, number, external_id, seller_id, buyer_email, currency,
	subtotal_cents, tax_cents, shipping_cents, total_cents, deposit_cents, balance_cents,
	status, valid_until, cancel_reason, created_at, sent_at, viewed_at, accepted_at,
	deposit_paid_at, balance_requested_at, balance_paid_at, completed_at, cancelled_at, expired_at`

func newQuoteNumber() string {
	return "Q-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

// CreateQuote is idempotent via external_id: a retried create returns the
// existing quote instead of opening a second one. Prices come from the
// products table inside the transaction, never from the client.
func (r *Repo) CreateQuote(ctx context.Context, in CreateInput) (q *Quote, existed bool, err error) {
	if len(in.Items) == 0 {
		return nil, false, guardErr("at least one line item required")
	}
	q, err = r.getByExternalID(ctx, in.ExternalID)
	if err == nil {
		return q, true, nil
	} else if !errors.Is(err, ErrNotFound) {
		return nil, false, err
	}

	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, false, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	type priced struct {
		name   string
		price  int64
		minQty int
		seller string
	}
	ids := make([]any, 0, len(in.Items))
	params := ""
	for i, it := range in.Items {
		if i > 0 {
			params += ","
		}
		params += fmt.Sprintf("$%d", i+1)
		ids = append(ids, it.ProductID)
	}
	rows, err := tx.Query(ctx, `SELECT id, name, price_cents, min_qty, seller_id FROM products WHERE id IN (`+params+`)`, ids...)
	if err != nil {
		return nil, false, err
	}
	prices := map[string]priced{}
	for rows.Next() {
		var id string
		var p priced
		if err := rows.Scan(&id, &p.name, &p.price, &p.minQty, &p.seller); err != nil {
			return nil, false, err
		}
		prices[id] = p
	}
	if err := rows.Err(); err != nil {
		return nil, false, err
	}

	q = &Quote{
		ID:            uuid.NewString(),
		Number:        newQuoteNumber(),
		SellerID:      in.SellerID,
		BuyerEmail:    in.BuyerEmail,
		Currency:      in.Currency,
		TaxCents:      in.TaxCents,
		ShippingCents: in.ShippingCents,
		DepositCents:  in.DepositCents,
		Status:        StatusDraft,
		ValidUntil:    in.ValidUntil,
	}
	for _, it := range in.Items {
		p, ok := prices[it.ProductID]
		if !ok {
			return nil, false, fmt.Errorf("product not found: %s", it.ProductID)
		}
		if p.seller != in.SellerID {
			return nil, false, guardErr("product %s belongs to another seller", it.ProductID)
		}
		if it.Qty < p.minQty {
			return nil, false, guardErr("qty %d below minimum %d for product %s", it.Qty, p.minQty, it.ProductID)
		}
		lineTotal := p.price * int64(it.Qty)
		q.SubtotalCents += lineTotal
		q.Items = append(q.Items, LineItem{
			ID:             uuid.NewString(),
			QuoteID:        q.ID,
			ProductID:      it.ProductID,
			Name:           p.name,
			Qty:            it.Qty,
			UnitPriceCents: p.price,
			LineTotalCents: lineTotal,
		})
	}
	q.TotalCents = q.SubtotalCents + q.TaxCents + q.ShippingCents
	q.BalanceCents = q.TotalCents - q.DepositCents
	if err := ValidateTotals(q); err != nil {
		return nil, false, err
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO quotes(id, number, external_id, seller_id, buyer_email, currency,
			subtotal_cents, tax_cents, shipping_cents, total_cents, deposit_cents, balance_cents,
			status, valid_until)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
	`, q.ID, q.Number, in.ExternalID, q.SellerID, q.BuyerEmail, q.Currency,
		q.SubtotalCents, q.TaxCents, q.ShippingCents, q.TotalCents, q.DepositCents, q.BalanceCents,
		q.Status, q.ValidUntil)
	if err != nil {
		insertErr := translatePG(err)
		if errors.Is(insertErr, ErrAlreadyExists) {
			// Lost a create race on external_id: the pre-read missed the
			// winner's row. Return the winner's quote like any other retry.
			_ = tx.Rollback(ctx)
			if winner, rerr := r.getByExternalID(ctx, in.ExternalID); rerr == nil {
				return winner, true, nil
			}
		}
		return nil, false, insertErr
	}
	for _, it := range q.Items {
		_, err = tx.Exec(ctx, `
			INSERT INTO quote_items(id, quote_id, product_id, name, qty, unit_price_cents, line_total_cents)
			VALUES ($1,$2,$3,$4,$5,$6,$7)`,
			it.ID, q.ID, it.ProductID, it.Name, it.Qty, it.UnitPriceCents, it.LineTotalCents)
		if err != nil {
			return nil, false, translatePG(err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, false, err
	}
	q.CreatedAt = time.Now().UTC()
	return q, false, nil
}

func (r *Repo) getByExternalID(ctx context.Context, externalID string) (*Quote, error) {
	var id string
	err := r.DB.QueryRow(ctx, `SELECT id FROM quotes WHERE external_id=$1`, externalID).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return r.GetQuote(ctx, id)
}

func (r *Repo) GetQuote(ctx context.Context, id string) (*Quote, error) {
	q, err := scanQuote(r.DB.QueryRow(ctx, `SELECT `+quoteColumns+` FROM quotes WHERE id=$1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	rows, err := r.DB.Query(ctx, `
		SELECT id, quote_id, product_id, name, qty, unit_price_cents, line_total_cents
		FROM quote_items WHERE quote_id=$1 ORDER BY id`, id)
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

func (r *Repo) GetStatus(ctx context.Context, id string) (Status, error) {
	var s string
	err := r.DB.QueryRow(ctx, `SELECT status FROM quotes WHERE id=$1`, id).Scan(&s)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", err
	}
	return Status(s), nil
}

func (r *Repo) ListBySeller(ctx context.Context, sellerID string) ([]Quote, error) {
	rows, err := r.DB.Query(ctx, `SELECT `+quoteColumns+` FROM quotes WHERE seller_id=$1 ORDER BY created_at DESC`, sellerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Quote
	for rows.Next() {
		q, err := scanQuote(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *q)
	}
	return out, rows.Err()
}

// DeleteDraft removes a quote that never left draft. Anything sent is a
// business record and stays.
func (r *Repo) DeleteDraft(ctx context.Context, id string) error {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var status string
	err = tx.QueryRow(ctx, `SELECT status FROM quotes WHERE id=$1 FOR UPDATE`, id).Scan(&status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	if Status(status) != StatusDraft {
		return transitionErr(Status(status), "delete")
	}
	if _, err := tx.Exec(ctx, `DELETE FROM quote_items WHERE quote_id=$1`, id); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `DELETE FROM quotes WHERE id=$1`, id); err != nil {
		return translatePG(err)
	}
	return tx.Commit(ctx)
}

func (r *Repo) ListProducts(ctx context.Context, sellerID string) ([]Product, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT id, seller_id, sku, name, stock, price_cents, min_qty, created_at, updated_at
		FROM products WHERE seller_id=$1 ORDER BY sku`, sellerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Product
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.SellerID, &p.SKU, &p.Name, &p.Stock, &p.PriceCents, &p.MinQty, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func scanQuote(row pgx.Row) (*Quote, error) {
	var q Quote
	var externalID string
	err := row.Scan(&q.ID, &q.Number, &externalID, &q.SellerID, &q.BuyerEmail, &q.Currency,
		&q.SubtotalCents, &q.TaxCents, &q.ShippingCents, &q.TotalCents, &q.DepositCents, &q.BalanceCents,
		&q.Status, &q.ValidUntil, &q.CancelReason, &q.CreatedAt, &q.SentAt, &q.ViewedAt, &q.AcceptedAt,
		&q.DepositPaidAt, &q.BalanceRequestedAt, &q.BalancePaidAt, &q.CompletedAt, &q.CancelledAt, &q.ExpiredAt)
	if err != nil {
		return nil, err
	}
	return &q, nil
}
