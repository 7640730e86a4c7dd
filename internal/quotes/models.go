package quotes

import "time"

type Product struct {
	ID         string
	SellerID   string
	SKU        string
	Name       string
	Stock      int
	PriceCents int64
	MinQty     int
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Quote is a trade quotation / wholesale order with a deposit+balance split.
// All money fields are minor currency units.
type Quote struct {
	ID            string
	Number        string // unique human-readable, e.g. Q-4F7A21C9
	SellerID      string
	BuyerEmail    string
	Currency      string
	SubtotalCents int64
	TaxCents      int64
	ShippingCents int64
	TotalCents    int64
	DepositCents  int64
	BalanceCents  int64
	Status        Status
	ValidUntil    *time.Time
	CancelReason  string

	CreatedAt          time.Time
	SentAt             *time.Time
	ViewedAt           *time.Time
	AcceptedAt         *time.Time
	DepositPaidAt      *time.Time
	BalanceRequestedAt *time.Time
	BalancePaidAt      *time.Time
	CompletedAt        *time.Time
	CancelledAt        *time.Time
	ExpiredAt          *time.Time

	Items []LineItem
}

type LineItem struct {
	ID             string
	QuoteID        string
	ProductID      string
	Name           string
	Qty            int
	UnitPriceCents int64
	LineTotalCents int64
}

type PaymentType string

const (
	PaymentDeposit PaymentType = "DEPOSIT"
	PaymentBalance PaymentType = "BALANCE"
)

// Payment is an immutable financial fact tied to exactly one quote.
type Payment struct {
	ID             string
	QuoteID        string
	Type           PaymentType
	AmountCents    int64
	Currency       string
	ProviderRef    string
	IdempotencyKey string
	CreatedAt      time.Time
}

type Reservation struct {
	ID        string
	QuoteID   string
	ProductID string
	Qty       int
	Status    string // RESERVED | RELEASED
	CreatedAt time.Time
}
