package httpx

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"tradeorders/internal/quotes"
	"tradeorders/internal/webhook"
)

// paymentWebhook applies provider-confirmed payments. The signature covers
// the raw body, so it is verified before any JSON decoding.
func (h *QuotesHandler) paymentWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "failed to read body"})
		return
	}
	if err := webhook.Verify(h.WebhookSecret, r.Header.Get("X-Signature"), body, time.Now()); err != nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": err.Error()})
		return
	}

	var ev webhook.PaymentEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if ev.Type != webhook.TypePaymentSucceeded {
		// Acknowledge unhandled event types so the provider stops retrying.
		writeJSON(w, http.StatusOK, map[string]string{"status": "ignored"})
		return
	}

	var typ quotes.PaymentType
	switch ev.PaymentType {
	case string(quotes.PaymentDeposit):
		typ = quotes.PaymentDeposit
	case string(quotes.PaymentBalance):
		typ = quotes.PaymentBalance
	default:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unknown payment_type"})
		return
	}
	req := PaymentReq{AmountCents: ev.AmountCents, IdempotencyKey: ev.IdempotencyKey, ProviderRef: ev.ProviderRef}
	if err := validatePaymentReq(req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	h.recordPayment(r.Context(), w, r, ev.QuoteID, typ, req)
}
