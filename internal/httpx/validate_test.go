package httpx

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"tradeorders/internal/quotes"
)

func validCreateReq() CreateQuoteReq {
	return CreateQuoteReq{
		ExternalID:   "ext-1",
		SellerID:     uuid.NewString(),
		BuyerEmail:   "buyer@example.com",
		Currency:     "USD",
		DepositCents: 4000,
		Items:        []quotes.ItemInput{{ProductID: uuid.NewString(), Qty: 2}},
	}
}

func TestValidateCreateReq(t *testing.T) {
	require.NoError(t, validateCreateReq(validCreateReq()))

	cases := []struct {
		name   string
		mutate func(*CreateQuoteReq)
	}{
		{"missing external id", func(r *CreateQuoteReq) { r.ExternalID = "" }},
		{"bad seller id", func(r *CreateQuoteReq) { r.SellerID = "not-a-uuid" }},
		{"bad email", func(r *CreateQuoteReq) { r.BuyerEmail = "nope" }},
		{"bad currency", func(r *CreateQuoteReq) { r.Currency = "usd" }},
		{"long currency", func(r *CreateQuoteReq) { r.Currency = "USDT" }},
		{"negative tax", func(r *CreateQuoteReq) { r.TaxCents = -1 }},
		{"negative deposit", func(r *CreateQuoteReq) { r.DepositCents = -1 }},
		{"no items", func(r *CreateQuoteReq) { r.Items = nil }},
		{"bad product id", func(r *CreateQuoteReq) { r.Items[0].ProductID = "xyz" }},
		{"zero qty", func(r *CreateQuoteReq) { r.Items[0].Qty = 0 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := validCreateReq()
			tc.mutate(&req)
			require.Error(t, validateCreateReq(req))
		})
	}
}

func TestValidatePaymentReq(t *testing.T) {
	require.NoError(t, validatePaymentReq(PaymentReq{AmountCents: 4000, IdempotencyKey: "key1"}))
	require.Error(t, validatePaymentReq(PaymentReq{AmountCents: 0, IdempotencyKey: "key1"}))
	require.Error(t, validatePaymentReq(PaymentReq{AmountCents: -5, IdempotencyKey: "key1"}))
	require.Error(t, validatePaymentReq(PaymentReq{AmountCents: 4000}))
}

func TestValidateReserveReq(t *testing.T) {
	req := ReserveReq{QuoteID: uuid.NewString(), ProductID: uuid.NewString(), Qty: 1}
	require.NoError(t, validateReserveReq(req))

	req.Qty = 0
	require.Error(t, validateReserveReq(req))
	req.Qty = 1
	req.ProductID = "bad"
	require.Error(t, validateReserveReq(req))
}

func TestValidCurrency(t *testing.T) {
	require.True(t, validCurrency("USD"))
	require.True(t, validCurrency("IDR"))
	require.False(t, validCurrency("US"))
	require.False(t, validCurrency("usd"))
	require.False(t, validCurrency("U5D"))
}
