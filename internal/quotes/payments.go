package quotes

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// RecordDepositPayment applies a successful deposit payment. The idempotency
// key is enforced by the unique index on payments.idempotency_key: a retried
// key fails the insert with ErrDuplicatePayment and the status is untouched.
func (r *Repo) RecordDepositPayment(ctx context.Context, id string, amountCents int64, idemKey, providerRef string) (*Quote, *Payment, error) {
	return r.recordPayment(ctx, id, PaymentDeposit, amountCents, idemKey, providerRef)
}

func (r *Repo) RecordBalancePayment(ctx context.Context, id string, amountCents int64, idemKey, providerRef string) (*Quote, *Payment, error) {
	return r.recordPayment(ctx, id, PaymentBalance, amountCents, idemKey, providerRef)
}

func (r *Repo) recordPayment(ctx context.Context, id string, typ PaymentType, amountCents int64, idemKey, providerRef string) (*Quote, *Payment, error) {
	if idemKey == "" {
		return nil, nil, guardErr("idempotency key required")
	}
	if amountCents <= 0 {
		return nil, nil, guardErr("payment amount must be positive")
	}

	var pay *Payment
	q, err := r.transition(ctx, id, func(tx pgx.Tx, q *Quote, now time.Time) error {
		// The key check runs before the status guard: after the first success
		// the quote has moved on, and a retry must classify as a duplicate,
		// not as an invalid transition.
		var one int
		keyErr := tx.QueryRow(ctx, `SELECT 1 FROM payments WHERE idempotency_key=$1`, idemKey).Scan(&one)
		if keyErr == nil {
			return ErrDuplicatePayment
		} else if !errors.Is(keyErr, pgx.ErrNoRows) {
			return keyErr
		}

		var next Status
		var stampCol string
		switch typ {
		case PaymentDeposit:
			if err := guardDepositPayment(q, amountCents); err != nil {
				return err
			}
			next, stampCol = StatusDepositPaid, "deposit_paid_at"
		case PaymentBalance:
			if err := guardBalancePayment(q, amountCents); err != nil {
				return err
			}
			next, stampCol = StatusFullyPaid, "balance_paid_at"
		default:
			return guardErr("unknown payment type %q", typ)
		}

		pay = &Payment{
			ID:             uuid.NewString(),
			QuoteID:        q.ID,
			Type:           typ,
			AmountCents:    amountCents,
			Currency:       q.Currency,
			ProviderRef:    providerRef,
			IdempotencyKey: idemKey,
			CreatedAt:      now,
		}
		_, err := tx.Exec(ctx, `
			INSERT INTO payments(id, quote_id, type, amount_cents, currency, provider_ref, idempotency_key, created_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
			pay.ID, pay.QuoteID, pay.Type, pay.AmountCents, pay.Currency, pay.ProviderRef, pay.IdempotencyKey, pay.CreatedAt)
		if err != nil {
			return translatePG(err)
		}
		if _, err := tx.Exec(ctx, `UPDATE quotes SET status=$2, `+stampCol+`=$3 WHERE id=$1`, q.ID, next, now); err != nil {
			return err
		}
		q.Status = next
		switch typ {
		case PaymentDeposit:
			q.DepositPaidAt = &now
		case PaymentBalance:
			q.BalancePaidAt = &now
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return q, pay, nil
}

// GetPaymentByKey returns the original record for a replayed idempotency key,
// so the caller can answer a retry with the first success.
func (r *Repo) GetPaymentByKey(ctx context.Context, idemKey string) (*Payment, error) {
	var p Payment
	err := r.DB.QueryRow(ctx, `
		SELECT id, quote_id, type, amount_cents, currency, provider_ref, idempotency_key, created_at
		FROM payments WHERE idempotency_key=$1`, idemKey).
		Scan(&p.ID, &p.QuoteID, &p.Type, &p.AmountCents, &p.Currency, &p.ProviderRef, &p.IdempotencyKey, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *Repo) ListPayments(ctx context.Context, quoteID string) ([]Payment, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT id, quote_id, type, amount_cents, currency, provider_ref, idempotency_key, created_at
		FROM payments WHERE quote_id=$1 ORDER BY created_at`, quoteID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Payment
	for rows.Next() {
		var p Payment
		if err := rows.Scan(&p.ID, &p.QuoteID, &p.Type, &p.AmountCents, &p.Currency, &p.ProviderRef, &p.IdempotencyKey, &p.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
