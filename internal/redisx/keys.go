package redisx

import "time"

const (
	// Idempotent quote create fast-path: idem:quote:create:{external_id} -> quote_id.
	// The unique column in Postgres stays the source of truth.
	KeyIdemQuoteCreate = "idem:quote:create:%s"

	// Status cache: quote_status:{quote_id} -> {"status": "..."}
	KeyQuoteStatus = "quote_status:%s"

	// Event dedup on the consumer side: dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"
)

var (
	TTLIdempotency = 24 * time.Hour
	TTLStatusCache = 5 * time.Minute
	TTLDedup       = 48 * time.Hour
)
