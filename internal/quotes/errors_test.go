package quotes

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
)

func TestTranslatePG(t *testing.T) {
	t.Run("duplicate idempotency key", func(t *testing.T) {
		err := translatePG(&pgconn.PgError{Code: "23505", ConstraintName: "payments_idempotency_key_key"})
		require.ErrorIs(t, err, ErrDuplicatePayment)
	})

	t.Run("other unique violation", func(t *testing.T) {
		err := translatePG(&pgconn.PgError{Code: "23505", ConstraintName: "quotes_external_id_key"})
		require.ErrorIs(t, err, ErrAlreadyExists)
	})

	t.Run("foreign key", func(t *testing.T) {
		err := translatePG(&pgconn.PgError{Code: "23503", ConstraintName: "quote_items_product_id_fkey"})
		require.ErrorIs(t, err, ErrConstraintViolation)
	})

	t.Run("check constraint", func(t *testing.T) {
		err := translatePG(&pgconn.PgError{Code: "23514", ConstraintName: "products_stock_check"})
		require.ErrorIs(t, err, ErrConstraintViolation)
	})

	t.Run("wrapped pg error", func(t *testing.T) {
		wrapped := fmt.Errorf("insert payment: %w", &pgconn.PgError{Code: "23505", ConstraintName: "payments_idempotency_key_key"})
		require.ErrorIs(t, translatePG(wrapped), ErrDuplicatePayment)
	})

	t.Run("non-pg error passes through", func(t *testing.T) {
		plain := errors.New("connection reset")
		require.Equal(t, plain, translatePG(plain))
	})
}

func TestInsufficientStockError(t *testing.T) {
	err := &InsufficientStockError{Details: []StockRejectedDetail{
		{ProductID: "p1", Required: 2, Available: 1},
	}}
	var target *InsufficientStockError
	require.True(t, errors.As(error(err), &target))
	require.Contains(t, err.Error(), "1 product")
}
