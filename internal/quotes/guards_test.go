package quotes

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func testQuote(status Status) *Quote {
	return &Quote{
		ID:            "q1",
		Number:        "Q-TEST0001",
		BuyerEmail:    "buyer@example.com",
		Currency:      "USD",
		SubtotalCents: 9000,
		TaxCents:      1000,
		TotalCents:    10000,
		DepositCents:  4000,
		BalanceCents:  6000,
		Status:        status,
		Items:         []LineItem{{ProductID: "p1", Qty: 2, UnitPriceCents: 4500, LineTotalCents: 9000}},
	}
}

func TestValidateTotals(t *testing.T) {
	q := testQuote(StatusDraft)
	require.NoError(t, ValidateTotals(q))

	t.Run("deposit exceeds total", func(t *testing.T) {
		q := testQuote(StatusDraft)
		q.DepositCents = 10001
		q.BalanceCents = -1
		err := ValidateTotals(q)
		require.ErrorIs(t, err, ErrGuardViolation)
	})

	t.Run("deposit equals total", func(t *testing.T) {
		q := testQuote(StatusDraft)
		q.DepositCents = 10000
		q.BalanceCents = 0
		require.NoError(t, ValidateTotals(q))
	})

	t.Run("zero deposit rejected", func(t *testing.T) {
		q := testQuote(StatusDraft)
		q.DepositCents = 0
		q.BalanceCents = 10000
		require.ErrorIs(t, ValidateTotals(q), ErrGuardViolation)
	})

	t.Run("split must equal total within one minor unit", func(t *testing.T) {
		q := testQuote(StatusDraft)
		q.BalanceCents = 6001 // off by one: rounding tolerance
		require.NoError(t, ValidateTotals(q))
		q.BalanceCents = 6002
		require.ErrorIs(t, ValidateTotals(q), ErrGuardViolation)
	})

	t.Run("total must match components", func(t *testing.T) {
		q := testQuote(StatusDraft)
		q.TaxCents = 500
		require.ErrorIs(t, ValidateTotals(q), ErrGuardViolation)
	})

	t.Run("negative amount", func(t *testing.T) {
		q := testQuote(StatusDraft)
		q.ShippingCents = -1
		require.ErrorIs(t, ValidateTotals(q), ErrGuardViolation)
	})
}

func TestGuardSend(t *testing.T) {
	require.NoError(t, guardSend(testQuote(StatusDraft)))

	q := testQuote(StatusDraft)
	q.Items = nil
	require.ErrorIs(t, guardSend(q), ErrGuardViolation)

	q = testQuote(StatusDraft)
	q.BuyerEmail = "not-an-email"
	require.ErrorIs(t, guardSend(q), ErrGuardViolation)

	require.ErrorIs(t, guardSend(testQuote(StatusSent)), ErrInvalidTransition)
	require.ErrorIs(t, guardSend(testQuote(StatusCancelled)), ErrInvalidTransition)
}

func TestGuardMarkViewedIdempotent(t *testing.T) {
	apply, err := guardMarkViewed(testQuote(StatusSent))
	require.NoError(t, err)
	require.True(t, apply)

	// repeat opens after the first view are no-ops, not errors
	for _, s := range []Status{StatusViewed, StatusAccepted, StatusDepositPaid, StatusBalanceDue, StatusFullyPaid, StatusCompleted} {
		apply, err = guardMarkViewed(testQuote(s))
		require.NoError(t, err, "open at %s", s)
		require.False(t, apply, "open at %s must not rewrite status", s)
	}

	_, err = guardMarkViewed(testQuote(StatusDraft))
	require.ErrorIs(t, err, ErrInvalidTransition)
	_, err = guardMarkViewed(testQuote(StatusExpired))
	require.ErrorIs(t, err, ErrInvalidTransition)
}

func TestGuardAccept(t *testing.T) {
	now := time.Now().UTC()

	require.NoError(t, guardAccept(testQuote(StatusSent), now))
	require.NoError(t, guardAccept(testQuote(StatusViewed), now))

	t.Run("accept past validUntil fails", func(t *testing.T) {
		q := testQuote(StatusSent)
		past := now.Add(-time.Hour)
		q.ValidUntil = &past
		err := guardAccept(q, now)
		require.ErrorIs(t, err, ErrGuardViolation)
	})

	t.Run("accept before validUntil passes", func(t *testing.T) {
		q := testQuote(StatusViewed)
		future := now.Add(time.Hour)
		q.ValidUntil = &future
		require.NoError(t, guardAccept(q, now))
	})

	require.ErrorIs(t, guardAccept(testQuote(StatusDraft), now), ErrInvalidTransition)
	require.ErrorIs(t, guardAccept(testQuote(StatusAccepted), now), ErrInvalidTransition)
}

func TestGuardDepositPayment(t *testing.T) {
	require.NoError(t, guardDepositPayment(testQuote(StatusAccepted), 4000))

	t.Run("amount mismatch", func(t *testing.T) {
		err := guardDepositPayment(testQuote(StatusAccepted), 3999)
		require.ErrorIs(t, err, ErrGuardViolation)
	})

	t.Run("wrong state", func(t *testing.T) {
		for _, s := range []Status{StatusDraft, StatusSent, StatusViewed, StatusDepositPaid, StatusCancelled} {
			require.ErrorIs(t, guardDepositPayment(testQuote(s), 4000), ErrInvalidTransition)
		}
	})
}

func TestGuardBalancePayment(t *testing.T) {
	require.NoError(t, guardBalancePayment(testQuote(StatusBalanceDue), 6000))

	// balance while only accepted (deposit skipped) is an invalid transition
	require.ErrorIs(t, guardBalancePayment(testQuote(StatusAccepted), 6000), ErrInvalidTransition)
	require.ErrorIs(t, guardBalancePayment(testQuote(StatusDepositPaid), 6000), ErrInvalidTransition)

	require.ErrorIs(t, guardBalancePayment(testQuote(StatusBalanceDue), 5999), ErrGuardViolation)
}

func TestGuardRequestBalance(t *testing.T) {
	require.NoError(t, guardRequestBalance(testQuote(StatusDepositPaid)))

	t.Run("only after deposit", func(t *testing.T) {
		require.ErrorIs(t, guardRequestBalance(testQuote(StatusAccepted)), ErrInvalidTransition)
	})

	t.Run("only once", func(t *testing.T) {
		q := testQuote(StatusDepositPaid)
		ts := time.Now()
		q.BalanceRequestedAt = &ts
		require.ErrorIs(t, guardRequestBalance(q), ErrGuardViolation)
	})

	t.Run("nothing outstanding", func(t *testing.T) {
		q := testQuote(StatusDepositPaid)
		q.DepositCents = 10000
		q.BalanceCents = 0
		require.ErrorIs(t, guardRequestBalance(q), ErrGuardViolation)
	})
}

func TestGuardCancel(t *testing.T) {
	for _, s := range []Status{StatusDraft, StatusSent, StatusViewed, StatusAccepted, StatusDepositPaid, StatusBalanceDue} {
		require.NoError(t, guardCancel(testQuote(s)), "cancel from %s", s)
	}
	for _, s := range []Status{StatusFullyPaid, StatusCompleted, StatusCancelled, StatusExpired} {
		require.ErrorIs(t, guardCancel(testQuote(s)), ErrInvalidTransition, "cancel from %s", s)
	}
}

func TestGuardComplete(t *testing.T) {
	require.NoError(t, guardComplete(testQuote(StatusFullyPaid)))

	t.Run("deposit covered the whole total", func(t *testing.T) {
		q := testQuote(StatusDepositPaid)
		q.DepositCents = 10000
		q.BalanceCents = 0
		require.NoError(t, guardComplete(q))
	})

	t.Run("deposit paid with balance outstanding", func(t *testing.T) {
		require.ErrorIs(t, guardComplete(testQuote(StatusDepositPaid)), ErrInvalidTransition)
	})

	require.ErrorIs(t, guardComplete(testQuote(StatusAccepted)), ErrInvalidTransition)
	require.ErrorIs(t, guardComplete(testQuote(StatusCompleted)), ErrInvalidTransition)
}

func TestGuardExpire(t *testing.T) {
	now := time.Now().UTC()
	past := now.Add(-time.Minute)
	future := now.Add(time.Minute)

	q := testQuote(StatusSent)
	q.ValidUntil = &past
	require.NoError(t, guardExpire(q, now))

	q = testQuote(StatusSent)
	q.ValidUntil = &future
	require.ErrorIs(t, guardExpire(q, now), ErrGuardViolation)

	q = testQuote(StatusSent)
	require.ErrorIs(t, guardExpire(q, now), ErrGuardViolation) // no deadline set

	q = testQuote(StatusDepositPaid)
	q.ValidUntil = &past
	require.ErrorIs(t, guardExpire(q, now), ErrInvalidTransition)
}
