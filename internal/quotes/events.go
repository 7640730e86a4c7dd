package quotes

import (
	"encoding/json"
	"time"
)

const (
	EventQuoteSent        = "QuoteSent"
	EventQuoteViewed      = "QuoteViewed"
	EventQuoteAccepted    = "QuoteAccepted"
	EventDepositPaid      = "DepositPaid"
	EventBalanceRequested = "BalanceRequested"
	EventBalancePaid      = "BalancePaid"
	EventQuoteCompleted   = "QuoteCompleted"
	EventQuoteCancelled   = "QuoteCancelled"
	EventQuoteExpired     = "QuoteExpired"
	EventStockRejected    = "StockRejected"
)

type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"` // quote_id
	Payload       json.RawMessage `json:"payload"`
}

type ItemQty struct {
	ProductID string `json:"product_id"`
	Qty       int    `json:"qty"`
}

// QuoteEventPayload is shared by every lifecycle event; the notifier renders
// the email from it without re-querying the API.
type QuoteEventPayload struct {
	QuoteID      string `json:"quote_id"`
	Number       string `json:"number"`
	SellerID     string `json:"seller_id"`
	BuyerEmail   string `json:"buyer_email"`
	Currency     string `json:"currency"`
	TotalCents   int64  `json:"total_cents"`
	DepositCents int64  `json:"deposit_cents"`
	BalanceCents int64  `json:"balance_cents"`
	Status       string `json:"status"`
	Reason       string `json:"reason,omitempty"`
}

type PaymentEventPayload struct {
	QuoteEventPayload
	PaymentID   string `json:"payment_id"`
	PaymentType string `json:"payment_type"`
	AmountCents int64  `json:"amount_cents"`
	ProviderRef string `json:"provider_ref,omitempty"`
}

type StockRejectedDetail struct {
	ProductID string `json:"product_id"`
	Required  int    `json:"required"`
	Available int    `json:"available"`
}

type StockRejectedPayload struct {
	QuoteID string                `json:"quote_id"`
	Reason  string                `json:"reason"` // e.g. OUT_OF_STOCK
	Details []StockRejectedDetail `json:"details,omitempty"`
}

// NewQuotePayload snapshots a quote for the event bus.
func NewQuotePayload(q *Quote) QuoteEventPayload {
	return QuoteEventPayload{
		QuoteID:      q.ID,
		Number:       q.Number,
		SellerID:     q.SellerID,
		BuyerEmail:   q.BuyerEmail,
		Currency:     q.Currency,
		TotalCents:   q.TotalCents,
		DepositCents: q.DepositCents,
		BalanceCents: q.BalanceCents,
		Status:       string(q.Status),
		Reason:       q.CancelReason,
	}
}
