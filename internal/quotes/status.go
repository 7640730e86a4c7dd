package quotes

// Status of a trade quotation / wholesale order.
type Status string

const (
	StatusDraft       Status = "DRAFT"
	StatusSent        Status = "SENT"
	StatusViewed      Status = "VIEWED"
	StatusAccepted    Status = "ACCEPTED"
	StatusDepositPaid Status = "DEPOSIT_PAID"
	StatusBalanceDue  Status = "BALANCE_DUE"
	StatusFullyPaid   Status = "FULLY_PAID"
	StatusCompleted   Status = "COMPLETED"
	StatusCancelled   Status = "CANCELLED"
	StatusExpired     Status = "EXPIRED"
)

var validNext = map[Status]map[Status]bool{
	StatusDraft:       {StatusSent: true, StatusCancelled: true},
	StatusSent:        {StatusViewed: true, StatusAccepted: true, StatusCancelled: true, StatusExpired: true},
	StatusViewed:      {StatusAccepted: true, StatusCancelled: true, StatusExpired: true},
	StatusAccepted:    {StatusDepositPaid: true, StatusCancelled: true, StatusExpired: true},
	StatusDepositPaid: {StatusBalanceDue: true, StatusCompleted: true, StatusCancelled: true},
	StatusBalanceDue:  {StatusFullyPaid: true, StatusCancelled: true},
	StatusFullyPaid:   {StatusCompleted: true},
	StatusCompleted:   {},
	StatusCancelled:   {},
	StatusExpired:     {},
}

func CanTransition(from, to Status) bool {
	return validNext[from][to]
}

// IsTerminal reports whether no further transition is permitted.
func IsTerminal(s Status) bool {
	return len(validNext[s]) == 0
}

// Retail order subset. Kept as its own table: simple orders move forward
// through fulfilment and never re-enter the quotation flow.
type RetailStatus string

const (
	RetailPending    RetailStatus = "PENDING"
	RetailProcessing RetailStatus = "PROCESSING"
	RetailShipped    RetailStatus = "SHIPPED"
	RetailDelivered  RetailStatus = "DELIVERED"
	RetailCancelled  RetailStatus = "CANCELLED"
	RetailRefunded   RetailStatus = "REFUNDED"
)

var validNextRetail = map[RetailStatus]map[RetailStatus]bool{
	RetailPending:    {RetailProcessing: true, RetailCancelled: true},
	RetailProcessing: {RetailShipped: true, RetailCancelled: true},
	RetailShipped:    {RetailDelivered: true},
	RetailDelivered:  {RetailRefunded: true},
	RetailCancelled:  {},
	RetailRefunded:   {},
}

func CanTransitionRetail(from, to RetailStatus) bool {
	return validNextRetail[from][to]
}
