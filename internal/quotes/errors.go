package quotes

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrNotFound            = errors.New("quote not found")
	ErrAlreadyExists       = errors.New("quote already exists")
	ErrInvalidTransition   = errors.New("invalid status transition")
	ErrGuardViolation      = errors.New("guard violation")
	ErrDuplicatePayment    = errors.New("duplicate idempotency key")
	ErrConstraintViolation = errors.New("constraint violation")
)

// InsufficientStockError reports which items could not be reserved.
// The whole reservation rolls back; Details covers every short product.
type InsufficientStockError struct {
	Details []StockRejectedDetail
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %d product(s)", len(e.Details))
}

func transitionErr(from Status, event string) error {
	return fmt.Errorf("%w: %s not allowed from %s", ErrInvalidTransition, event, from)
}

func guardErr(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrGuardViolation, fmt.Sprintf(format, args...))
}

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgCheckViolation      = "23514"
)

// translatePG maps storage-layer constraint errors to the nearest typed error.
// The unique index on payments.idempotency_key is the authoritative payment
// dedup; it must surface as ErrDuplicatePayment, never be swallowed.
func translatePG(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case pgUniqueViolation:
		if pgErr.ConstraintName == "payments_idempotency_key_key" {
			return ErrDuplicatePayment
		}
		return fmt.Errorf("%w: %s", ErrAlreadyExists, pgErr.ConstraintName)
	case pgForeignKeyViolation, pgCheckViolation:
		return fmt.Errorf("%w: %s", ErrConstraintViolation, pgErr.ConstraintName)
	}
	return err
}
