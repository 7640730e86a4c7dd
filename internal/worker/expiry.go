package worker

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"tradeorders/internal/quotes"
)

// ExpiryStore is the slice of the quote repo the sweeper needs.
type ExpiryStore interface {
	ExpireDueIDs(ctx context.Context, now time.Time, limit int) ([]string, error)
	Expire(ctx context.Context, id string) (*quotes.Quote, error)
}

// ExpirySweeper flips quotes past valid_until to EXPIRED in batches.
// Losing a race against a concurrent accept is fine: the row lock decides,
// and the resulting invalid-transition error is skipped.
type ExpirySweeper struct {
	Store     ExpiryStore
	Interval  time.Duration
	BatchSize int
	OnExpired func(q *quotes.Quote) // cache refresh + event publish, wired in main
}

func (w *ExpirySweeper) Start(ctx context.Context) {
	slog.Info("expiry sweeper started", "interval", w.Interval, "batch", w.BatchSize)
	ticker := time.NewTicker(w.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("expiry sweeper stopped")
			return
		case <-ticker.C:
			if n, err := w.Sweep(ctx); err != nil {
				slog.Error("expiry sweep failed", "error", err)
			} else if n > 0 {
				slog.Info("quotes expired", "count", n)
			}
		}
	}
}

func (w *ExpirySweeper) Sweep(ctx context.Context) (int, error) {
	now := time.Now().UTC()
	ids, err := w.Store.ExpireDueIDs(ctx, now, w.BatchSize)
	if err != nil {
		return 0, err
	}

	expired := 0
	for _, id := range ids {
		q, err := w.Store.Expire(ctx, id)
		if err != nil {
			// Someone accepted or cancelled between the scan and the lock.
			if errors.Is(err, quotes.ErrInvalidTransition) || errors.Is(err, quotes.ErrGuardViolation) || errors.Is(err, quotes.ErrNotFound) {
				continue
			}
			return expired, err
		}
		expired++
		if w.OnExpired != nil {
			w.OnExpired(q)
		}
	}
	return expired, nil
}
