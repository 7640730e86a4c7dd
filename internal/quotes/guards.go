package quotes

import (
	"net/mail"
	"time"
)

// Rounding tolerance for the deposit+balance split, in minor units.
const splitTolerance = 1

// ValidateTotals checks the money invariants enforced at creation time.
// The deposit bound lives here, server-side: the client form check is UX only.
func ValidateTotals(q *Quote) error {
	for _, v := range []int64{q.SubtotalCents, q.TaxCents, q.ShippingCents, q.TotalCents, q.DepositCents, q.BalanceCents} {
		if v < 0 {
			return guardErr("negative amount")
		}
	}
	if q.TotalCents != q.SubtotalCents+q.TaxCents+q.ShippingCents {
		return guardErr("total %d != subtotal+tax+shipping %d", q.TotalCents, q.SubtotalCents+q.TaxCents+q.ShippingCents)
	}
	if q.DepositCents == 0 {
		return guardErr("deposit must be positive")
	}
	if q.DepositCents > q.TotalCents {
		return guardErr("deposit %d exceeds total %d", q.DepositCents, q.TotalCents)
	}
	diff := q.DepositCents + q.BalanceCents - q.TotalCents
	if diff < -splitTolerance || diff > splitTolerance {
		return guardErr("deposit %d + balance %d does not equal total %d", q.DepositCents, q.BalanceCents, q.TotalCents)
	}
	return nil
}

func guardSend(q *Quote) error {
	if q.Status != StatusDraft {
		return transitionErr(q.Status, "send")
	}
	if len(q.Items) == 0 {
		return guardErr("quote has no line items")
	}
	if _, err := mail.ParseAddress(q.BuyerEmail); err != nil {
		return guardErr("invalid buyer email %q", q.BuyerEmail)
	}
	return nil
}

// guardMarkViewed returns (apply, error): repeat opens after the first view,
// or opens of an already accepted/paid quote, are idempotent no-ops.
func guardMarkViewed(q *Quote) (bool, error) {
	switch q.Status {
	case StatusSent:
		return true, nil
	case StatusViewed, StatusAccepted, StatusDepositPaid, StatusBalanceDue, StatusFullyPaid, StatusCompleted:
		return false, nil
	}
	return false, transitionErr(q.Status, "markViewed")
}

func guardAccept(q *Quote, now time.Time) error {
	if q.Status != StatusSent && q.Status != StatusViewed {
		return transitionErr(q.Status, "accept")
	}
	if q.ValidUntil != nil && now.After(*q.ValidUntil) {
		return guardErr("quote expired at %s", q.ValidUntil.Format(time.RFC3339))
	}
	return nil
}

func guardDepositPayment(q *Quote, amountCents int64) error {
	if q.Status != StatusAccepted {
		return transitionErr(q.Status, "recordDepositPayment")
	}
	if q.DepositCents <= 0 {
		return guardErr("no deposit configured")
	}
	if amountCents != q.DepositCents {
		return guardErr("payment %d does not match deposit %d", amountCents, q.DepositCents)
	}
	return nil
}

func guardRequestBalance(q *Quote) error {
	if q.Status != StatusDepositPaid {
		return transitionErr(q.Status, "requestBalance")
	}
	if q.BalanceRequestedAt != nil {
		return guardErr("balance already requested")
	}
	if q.BalanceCents == 0 {
		return guardErr("no balance outstanding")
	}
	return nil
}

func guardBalancePayment(q *Quote, amountCents int64) error {
	if q.Status != StatusBalanceDue {
		return transitionErr(q.Status, "recordBalancePayment")
	}
	if amountCents != q.BalanceCents {
		return guardErr("payment %d does not match balance %d", amountCents, q.BalanceCents)
	}
	return nil
}

func guardCancel(q *Quote) error {
	switch q.Status {
	case StatusDraft, StatusSent, StatusViewed, StatusAccepted, StatusDepositPaid, StatusBalanceDue:
		return nil
	}
	return transitionErr(q.Status, "cancel")
}

func guardComplete(q *Quote) error {
	if q.Status == StatusFullyPaid {
		return nil
	}
	// Fully paid by deposit alone: nothing left to collect.
	if q.Status == StatusDepositPaid && q.BalanceCents == 0 {
		return nil
	}
	return transitionErr(q.Status, "complete")
}

func guardExpire(q *Quote, now time.Time) error {
	switch q.Status {
	case StatusSent, StatusViewed, StatusAccepted:
	default:
		return transitionErr(q.Status, "expire")
	}
	if q.ValidUntil == nil || now.Before(*q.ValidUntil) {
		return guardErr("valid until %v has not passed", q.ValidUntil)
	}
	return nil
}
