//go:build integration

package quotes

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"

	"tradeorders/internal/postgres"
)

// Run with: TEST_POSTGRES_DSN=postgres://... go test -tags integration ./internal/quotes/

func testRepo(t *testing.T) *Repo {
	t.Helper()
	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TEST_POSTGRES_DSN not set")
	}
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	require.NoError(t, postgres.InitSchema(ctx, pool))
	return &Repo{DB: pool}
}

func seedProduct(t *testing.T, r *Repo, sellerID string, stock int, priceCents int64) string {
	t.Helper()
	id := uuid.NewString()
	_, err := r.DB.Exec(context.Background(), `
		INSERT INTO products(id, seller_id, sku, name, stock, price_cents, min_qty)
		VALUES ($1,$2,$3,$4,$5,$6,1)`,
		id, sellerID, "SKU-"+id[:8], "Widget", stock, priceCents)
	require.NoError(t, err)
	return id
}

func productStock(t *testing.T, r *Repo, productID string) int {
	t.Helper()
	var stock int
	require.NoError(t, r.DB.QueryRow(context.Background(),
		`SELECT stock FROM products WHERE id=$1`, productID).Scan(&stock))
	return stock
}

// acceptedQuote drives a fresh quote to DEPOSIT-ready state: one line of 10
// units at 1000c, no tax or shipping, deposit 4000c / balance 6000c.
func acceptedQuote(t *testing.T, r *Repo) *Quote {
	t.Helper()
	ctx := context.Background()
	sellerID := uuid.NewString()
	productID := seedProduct(t, r, sellerID, 100, 1000)

	q, existed, err := r.CreateQuote(ctx, CreateInput{
		ExternalID:   uuid.NewString(),
		SellerID:     sellerID,
		BuyerEmail:   "buyer@example.com",
		Currency:     "USD",
		DepositCents: 4000,
		Items:        []ItemInput{{ProductID: productID, Qty: 10}},
	})
	require.NoError(t, err)
	require.False(t, existed)

	_, err = r.Send(ctx, q.ID)
	require.NoError(t, err)
	_, err = r.MarkViewed(ctx, q.ID)
	require.NoError(t, err)
	q, err = r.Accept(ctx, q.ID)
	require.NoError(t, err)
	return q
}

func TestRecordDepositPaymentReplay(t *testing.T) {
	r := testRepo(t)
	ctx := context.Background()
	q := acceptedQuote(t, r)
	key := uuid.NewString()

	q1, pay, err := r.RecordDepositPayment(ctx, q.ID, 4000, key, "pi_1")
	require.NoError(t, err)
	require.Equal(t, StatusDepositPaid, q1.Status)

	// A retried key is a duplicate even though the quote has moved on.
	_, _, err = r.RecordDepositPayment(ctx, q.ID, 4000, key, "pi_1")
	require.ErrorIs(t, err, ErrDuplicatePayment)
	require.NotErrorIs(t, err, ErrInvalidTransition)

	got, err := r.GetPaymentByKey(ctx, key)
	require.NoError(t, err)
	require.Equal(t, pay.ID, got.ID)

	status, err := r.GetStatus(ctx, q.ID)
	require.NoError(t, err)
	require.Equal(t, StatusDepositPaid, status)

	all, err := r.ListPayments(ctx, q.ID)
	require.NoError(t, err)
	require.Len(t, all, 1)
}

func TestConcurrentReserveSingleWinner(t *testing.T) {
	r := testRepo(t)
	ctx := context.Background()
	productID := seedProduct(t, r, uuid.NewString(), 1, 1000)

	const callers = 4
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = r.Reserve(ctx, uuid.NewString(), productID, 1)
		}(i)
	}
	wg.Wait()

	var ok, short int
	for _, err := range errs {
		if err == nil {
			ok++
			continue
		}
		var stockErr *InsufficientStockError
		require.ErrorAs(t, err, &stockErr)
		short++
	}
	require.Equal(t, 1, ok)
	require.Equal(t, callers-1, short)
	require.Equal(t, 0, productStock(t, r, productID))
}

func TestReserveRetryDecrementsOnce(t *testing.T) {
	r := testRepo(t)
	ctx := context.Background()
	productID := seedProduct(t, r, uuid.NewString(), 5, 1000)
	quoteID := uuid.NewString()

	require.NoError(t, r.Reserve(ctx, quoteID, productID, 2))
	require.NoError(t, r.Reserve(ctx, quoteID, productID, 2))
	require.Equal(t, 3, productStock(t, r, productID))

	require.NoError(t, r.Release(ctx, quoteID))
	require.Equal(t, 5, productStock(t, r, productID))
}

func TestConcurrentCreateSameExternalID(t *testing.T) {
	r := testRepo(t)
	ctx := context.Background()
	sellerID := uuid.NewString()
	productID := seedProduct(t, r, sellerID, 100, 1000)
	externalID := uuid.NewString()

	in := CreateInput{
		ExternalID:   externalID,
		SellerID:     sellerID,
		BuyerEmail:   "buyer@example.com",
		Currency:     "USD",
		DepositCents: 4000,
		Items:        []ItemInput{{ProductID: productID, Qty: 10}},
	}

	const callers = 4
	ids := make([]string, callers)
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			q, _, err := r.CreateQuote(ctx, in)
			if err == nil {
				ids[i] = q.ID
			}
			errs[i] = err
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		require.NoError(t, err, fmt.Sprintf("caller %d", i))
		require.Equal(t, ids[0], ids[i])
	}

	var n int
	require.NoError(t, r.DB.QueryRow(ctx,
		`SELECT COUNT(*) FROM quotes WHERE external_id=$1`, externalID).Scan(&n))
	require.Equal(t, 1, n)
}

func TestAcceptExpiredQuoteRejected(t *testing.T) {
	r := testRepo(t)
	ctx := context.Background()
	sellerID := uuid.NewString()
	productID := seedProduct(t, r, sellerID, 100, 1000)
	past := time.Now().UTC().Add(-time.Hour)

	q, _, err := r.CreateQuote(ctx, CreateInput{
		ExternalID:   uuid.NewString(),
		SellerID:     sellerID,
		BuyerEmail:   "buyer@example.com",
		Currency:     "USD",
		DepositCents: 4000,
		ValidUntil:   &past,
		Items:        []ItemInput{{ProductID: productID, Qty: 10}},
	})
	require.NoError(t, err)
	_, err = r.Send(ctx, q.ID)
	require.NoError(t, err)

	_, err = r.Accept(ctx, q.ID)
	require.ErrorIs(t, err, ErrGuardViolation)
	require.Equal(t, 100, productStock(t, r, productID))
}
