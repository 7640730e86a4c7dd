package httpx

import (
	"fmt"
	"net/mail"
	"time"

	"github.com/google/uuid"

	"tradeorders/internal/quotes"
)

type CreateQuoteReq struct {
	ExternalID    string             `json:"external_id"`
	SellerID      string             `json:"seller_id"`
	BuyerEmail    string             `json:"buyer_email"`
	Currency      string             `json:"currency"`
	TaxCents      int64              `json:"tax_cents"`
	ShippingCents int64              `json:"shipping_cents"`
	DepositCents  int64              `json:"deposit_cents"`
	ValidUntil    *time.Time         `json:"valid_until,omitempty"`
	Items         []quotes.ItemInput `json:"items"`
}

type PaymentReq struct {
	AmountCents    int64  `json:"amount_cents"`
	IdempotencyKey string `json:"idempotency_key"`
	ProviderRef    string `json:"provider_ref"`
}

type CancelReq struct {
	Reason string `json:"reason"`
}

type ReserveReq struct {
	QuoteID   string `json:"quote_id"`
	ProductID string `json:"product_id"`
	Qty       int    `json:"qty"`
}

// Boundary validation: shape only. The money and transition guards live in
// the quotes package and run against DB state.
func validateCreateReq(req CreateQuoteReq) error {
	if req.ExternalID == "" {
		return fmt.Errorf("external_id required")
	}
	if err := validUUID(req.SellerID); err != nil {
		return fmt.Errorf("seller_id: %w", err)
	}
	if _, err := mail.ParseAddress(req.BuyerEmail); err != nil {
		return fmt.Errorf("buyer_email invalid")
	}
	if !validCurrency(req.Currency) {
		return fmt.Errorf("currency must be a 3-letter ISO 4217 code")
	}
	for _, v := range []int64{req.TaxCents, req.ShippingCents, req.DepositCents} {
		if v < 0 {
			return fmt.Errorf("amounts must be non-negative")
		}
	}
	if len(req.Items) == 0 {
		return fmt.Errorf("at least one item required")
	}
	for i, it := range req.Items {
		if err := validUUID(it.ProductID); err != nil {
			return fmt.Errorf("items[%d].product_id: %w", i, err)
		}
		if it.Qty < 1 {
			return fmt.Errorf("items[%d].qty must be >= 1", i)
		}
	}
	return nil
}

func validatePaymentReq(req PaymentReq) error {
	if req.AmountCents <= 0 {
		return fmt.Errorf("amount_cents must be positive")
	}
	if req.IdempotencyKey == "" {
		return fmt.Errorf("idempotency_key required")
	}
	return nil
}

func validateReserveReq(req ReserveReq) error {
	if err := validUUID(req.QuoteID); err != nil {
		return fmt.Errorf("quote_id: %w", err)
	}
	if err := validUUID(req.ProductID); err != nil {
		return fmt.Errorf("product_id: %w", err)
	}
	if req.Qty < 1 {
		return fmt.Errorf("qty must be >= 1")
	}
	return nil
}

func validUUID(s string) error {
	if _, err := uuid.Parse(s); err != nil {
		return fmt.Errorf("not a valid uuid")
	}
	return nil
}

func validCurrency(c string) bool {
	if len(c) != 3 {
		return false
	}
	for _, r := range c {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}
