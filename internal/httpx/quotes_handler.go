package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"

	kafkax "tradeorders/internal/kafka"
	"tradeorders/internal/quotes"
	"tradeorders/internal/redisx"
)

type QuotesHandler struct {
	Repo          *quotes.Repo
	Bus           *kafkax.Bus
	Redis         *redis.Client
	Service       string
	WebhookSecret []byte
}

func (h *QuotesHandler) Register(r *chi.Mux) {
	r.Post("/quotes", h.createQuote)
	r.Get("/quotes", h.listQuotes)
	r.Get("/quotes/{id}", h.getQuote)
	r.Get("/quotes/{id}/status", h.getStatus)
	r.Delete("/quotes/{id}", h.deleteQuote)
	r.Post("/quotes/{id}/send", h.transition(quotes.TopicQuoteSent, quotes.EventQuoteSent, func(ctx context.Context, id string) (*quotes.Quote, error) {
		return h.Repo.Send(ctx, id)
	}))
	r.Post("/quotes/{id}/view", h.transition(quotes.TopicQuoteViewed, quotes.EventQuoteViewed, func(ctx context.Context, id string) (*quotes.Quote, error) {
		return h.Repo.MarkViewed(ctx, id)
	}))
	r.Post("/quotes/{id}/accept", h.acceptQuote)
	r.Post("/quotes/{id}/balance-request", h.transition(quotes.TopicBalanceRequested, quotes.EventBalanceRequested, func(ctx context.Context, id string) (*quotes.Quote, error) {
		return h.Repo.RequestBalance(ctx, id)
	}))
	r.Post("/quotes/{id}/cancel", h.cancelQuote)
	r.Post("/quotes/{id}/complete", h.transition(quotes.TopicQuoteCompleted, quotes.EventQuoteCompleted, func(ctx context.Context, id string) (*quotes.Quote, error) {
		return h.Repo.Complete(ctx, id)
	}))
	r.Post("/quotes/{id}/payments/deposit", h.payment(quotes.PaymentDeposit))
	r.Post("/quotes/{id}/payments/balance", h.payment(quotes.PaymentBalance))
	r.Post("/reservations", h.reserve)
	r.Get("/products", h.listProducts)
	r.Post("/webhooks/payment", h.paymentWebhook)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, err error) {
	var stockErr *quotes.InsufficientStockError
	switch {
	case errors.Is(err, quotes.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
	case errors.As(err, &stockErr):
		writeJSON(w, http.StatusConflict, map[string]any{"error": "out of stock", "details": stockErr.Details})
	case errors.Is(err, quotes.ErrInvalidTransition):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	case errors.Is(err, quotes.ErrGuardViolation):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
	case errors.Is(err, quotes.ErrAlreadyExists), errors.Is(err, quotes.ErrConstraintViolation):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	default:
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
}

func (h *QuotesHandler) createQuote(w http.ResponseWriter, r *http.Request) {
	var req CreateQuoteReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if err := validateCreateReq(req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	q, existed, err := h.Repo.CreateQuote(ctx, quotes.CreateInput{
		ExternalID:    req.ExternalID,
		SellerID:      req.SellerID,
		BuyerEmail:    req.BuyerEmail,
		Currency:      req.Currency,
		TaxCents:      req.TaxCents,
		ShippingCents: req.ShippingCents,
		DepositCents:  req.DepositCents,
		ValidUntil:    req.ValidUntil,
		Items:         req.Items,
	})
	if err != nil {
		writeErr(w, err)
		return
	}

	idemKey := fmt.Sprintf(redisx.KeyIdemQuoteCreate, req.ExternalID)
	_ = h.Redis.Set(ctx, idemKey, q.ID, redisx.TTLIdempotency).Err()
	h.cacheStatus(ctx, q)

	code := http.StatusCreated
	if existed {
		code = http.StatusOK
	}
	writeJSON(w, code, map[string]any{"quote": q, "idempotent": existed})
}

func (h *QuotesHandler) getQuote(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()
	q, err := h.Repo.GetQuote(ctx, chi.URLParam(r, "id"))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

// getStatus serves from the Redis cache first; the DB is the fallback and
// refills the cache.
func (h *QuotesHandler) getStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	key := fmt.Sprintf(redisx.KeyQuoteStatus, id)
	if s, err := h.Redis.Get(ctx, key).Result(); err == nil && s != "" {
		writeJSON(w, http.StatusOK, json.RawMessage(s))
		return
	}

	status, err := h.Repo.GetStatus(ctx, id)
	if err != nil {
		writeErr(w, err)
		return
	}
	b, _ := json.Marshal(map[string]any{"status": status})
	_ = h.Redis.Set(ctx, key, b, redisx.TTLStatusCache).Err()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(b)
}

func (h *QuotesHandler) listQuotes(w http.ResponseWriter, r *http.Request) {
	sellerID := r.URL.Query().Get("seller")
	if err := validUUID(sellerID); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "seller query param required"})
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()
	qs, err := h.Repo.ListBySeller(ctx, sellerID)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, qs)
}

func (h *QuotesHandler) deleteQuote(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()
	if err := h.Repo.DeleteDraft(ctx, chi.URLParam(r, "id")); err != nil {
		writeErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *QuotesHandler) listProducts(w http.ResponseWriter, r *http.Request) {
	sellerID := r.URL.Query().Get("seller")
	if err := validUUID(sellerID); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "seller query param required"})
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()
	ps, err := h.Repo.ListProducts(ctx, sellerID)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ps)
}

// transition wraps the plain lifecycle endpoints: run the repo op, refresh the
// status cache, publish the event, return the quote.
func (h *QuotesHandler) transition(topic, eventType string, op func(ctx context.Context, id string) (*quotes.Quote, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		q, err := op(ctx, chi.URLParam(r, "id"))
		if err != nil {
			writeErr(w, err)
			return
		}
		h.cacheStatus(ctx, q)
		h.publish(topic, eventType, q.ID, r.Header.Get("X-Request-Id"), quotes.NewQuotePayload(q))
		writeJSON(w, http.StatusOK, q)
	}
}

func (h *QuotesHandler) acceptQuote(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	q, err := h.Repo.Accept(ctx, id)
	if err != nil {
		var stockErr *quotes.InsufficientStockError
		if errors.As(err, &stockErr) {
			h.publish(quotes.TopicStockRejected, quotes.EventStockRejected, id, r.Header.Get("X-Request-Id"),
				quotes.StockRejectedPayload{QuoteID: id, Reason: "OUT_OF_STOCK", Details: stockErr.Details})
		}
		writeErr(w, err)
		return
	}
	h.cacheStatus(ctx, q)
	h.publish(quotes.TopicQuoteAccepted, quotes.EventQuoteAccepted, q.ID, r.Header.Get("X-Request-Id"), quotes.NewQuotePayload(q))
	writeJSON(w, http.StatusOK, q)
}

func (h *QuotesHandler) cancelQuote(w http.ResponseWriter, r *http.Request) {
	var req CancelReq
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	q, err := h.Repo.Cancel(ctx, chi.URLParam(r, "id"), req.Reason)
	if err != nil {
		writeErr(w, err)
		return
	}
	h.cacheStatus(ctx, q)
	h.publish(quotes.TopicQuoteCancelled, quotes.EventQuoteCancelled, q.ID, r.Header.Get("X-Request-Id"), quotes.NewQuotePayload(q))
	writeJSON(w, http.StatusOK, q)
}

func (h *QuotesHandler) payment(typ quotes.PaymentType) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req PaymentReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
			return
		}
		if err := validatePaymentReq(req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		id := chi.URLParam(r, "id")
		h.recordPayment(ctx, w, r, id, typ, req)
	}
}

func (h *QuotesHandler) recordPayment(ctx context.Context, w http.ResponseWriter, r *http.Request, id string, typ quotes.PaymentType, req PaymentReq) {
	var (
		q   *quotes.Quote
		pay *quotes.Payment
		err error
	)
	switch typ {
	case quotes.PaymentDeposit:
		q, pay, err = h.Repo.RecordDepositPayment(ctx, id, req.AmountCents, req.IdempotencyKey, req.ProviderRef)
	default:
		q, pay, err = h.Repo.RecordBalancePayment(ctx, id, req.AmountCents, req.IdempotencyKey, req.ProviderRef)
	}
	if errors.Is(err, quotes.ErrDuplicatePayment) {
		// Retry of an applied payment: answer with the original record.
		orig, lookupErr := h.Repo.GetPaymentByKey(ctx, req.IdempotencyKey)
		if lookupErr != nil {
			writeErr(w, lookupErr)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"payment": orig, "idempotent": true})
		return
	}
	if err != nil {
		writeErr(w, err)
		return
	}

	h.cacheStatus(ctx, q)
	topic, event := quotes.TopicPaymentDeposit, quotes.EventDepositPaid
	if typ == quotes.PaymentBalance {
		topic, event = quotes.TopicPaymentBalance, quotes.EventBalancePaid
	}
	h.publish(topic, event, q.ID, r.Header.Get("X-Request-Id"), quotes.PaymentEventPayload{
		QuoteEventPayload: quotes.NewQuotePayload(q),
		PaymentID:         pay.ID,
		PaymentType:       string(pay.Type),
		AmountCents:       pay.AmountCents,
		ProviderRef:       pay.ProviderRef,
	})
	writeJSON(w, http.StatusOK, map[string]any{"quote": q, "payment": pay, "idempotent": false})
}

func (h *QuotesHandler) reserve(w http.ResponseWriter, r *http.Request) {
	var req ReserveReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if err := validateReserveReq(req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()
	if err := h.Repo.Reserve(ctx, req.QuoteID, req.ProductID, req.Qty); err != nil {
		writeErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// PublishExpired is the sweeper hook: refresh the cache and emit the event
// for a quote the background worker just expired.
func (h *QuotesHandler) PublishExpired(q *quotes.Quote) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	h.cacheStatus(ctx, q)
	h.publish(quotes.TopicQuoteExpired, quotes.EventQuoteExpired, q.ID, "", quotes.NewQuotePayload(q))
}

func (h *QuotesHandler) cacheStatus(ctx context.Context, q *quotes.Quote) {
	key := fmt.Sprintf(redisx.KeyQuoteStatus, q.ID)
	b, _ := json.Marshal(map[string]any{"status": q.Status})
	_ = h.Redis.Set(ctx, key, b, redisx.TTLStatusCache).Err()
}

func (h *QuotesHandler) publish(topic, eventType, quoteID, traceID string, payload any) {
	ev := quotes.Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      h.Service,
		TraceID:       traceID,
		CorrelationID: quoteID,
		Payload:       kafkax.MustMarshal(payload),
	}
	h.Bus.Publish(topic, quotes.PartitionKey(quoteID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(eventType)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}
