package quotes

const (
	TopicQuoteSent        = "quote.sent"
	TopicQuoteViewed      = "quote.viewed"
	TopicQuoteAccepted    = "quote.accepted"
	TopicPaymentDeposit   = "quote.payment.deposit"
	TopicBalanceRequested = "quote.balance.requested"
	TopicPaymentBalance   = "quote.payment.balance"
	TopicQuoteCompleted   = "quote.completed"
	TopicQuoteCancelled   = "quote.cancelled"
	TopicQuoteExpired     = "quote.expired"
	TopicStockRejected    = "quote.stock.rejected"
)

// Partition key = quote_id so every event of one quote keeps its order.
func PartitionKey(quoteID string) []byte { return []byte(quoteID) }
