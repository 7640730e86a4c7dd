package webhook

// PaymentEvent is the provider's webhook body for a settled payment.
type PaymentEvent struct {
	Type           string `json:"type"` // payment_intent.succeeded
	QuoteID        string `json:"quote_id"`
	PaymentType    string `json:"payment_type"` // DEPOSIT | BALANCE
	AmountCents    int64  `json:"amount_cents"`
	IdempotencyKey string `json:"idempotency_key"`
	ProviderRef    string `json:"provider_ref"`
}

const TypePaymentSucceeded = "payment_intent.succeeded"
