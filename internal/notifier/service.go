package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"

	kafkax "tradeorders/internal/kafka"
	"tradeorders/internal/quotes"
	"tradeorders/internal/redisx"
)

// Service turns lifecycle events into buyer/seller emails. It runs as a
// consumer-group handler; dedup by event id keeps redelivered messages from
// mailing twice.
type Service struct {
	Redis       *redis.Client
	Mailer      Mailer
	ServiceName string
}

func (s *Service) Handle(ctx context.Context, m kafkago.Message) error {
	var env quotes.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		return err
	}

	dkey := fmt.Sprintf(redisx.KeyDedup, "notifier", env.EventID)
	if exists, _ := redisx.Exists(ctx, s.Redis, dkey); exists {
		return nil
	}
	_ = s.Redis.Set(ctx, dkey, "1", redisx.TTLDedup).Err()

	email, ok, err := BuildEmail(env)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	if err := s.Mailer.Send(email); err != nil {
		// The transition is already committed; log and move on.
		slog.Error("mail delivery failed", "event", env.EventType, "quote", env.CorrelationID, "error", err)
	}
	return nil
}

func dollars(cents int64, currency string) string {
	return fmt.Sprintf("%s %d.%02d", currency, cents/100, cents%100)
}

// BuildEmail renders the notification for one event. ok=false means the
// event type carries no mail.
func BuildEmail(env quotes.Envelope) (Email, bool, error) {
	switch env.EventType {
	case quotes.EventQuoteSent:
		p, err := kafkax.UnwrapPayload[quotes.QuoteEventPayload](env.Payload)
		if err != nil {
			return Email{}, false, err
		}
		return Email{
			To:      p.BuyerEmail,
			Subject: fmt.Sprintf("Quotation %s", p.Number),
			Body: fmt.Sprintf("You have received quotation %s for %s.\nDeposit due: %s.",
				p.Number, dollars(p.TotalCents, p.Currency), dollars(p.DepositCents, p.Currency)),
		}, true, nil
	case quotes.EventQuoteAccepted:
		p, err := kafkax.UnwrapPayload[quotes.QuoteEventPayload](env.Payload)
		if err != nil {
			return Email{}, false, err
		}
		return Email{
			To:      p.BuyerEmail,
			Subject: fmt.Sprintf("Quotation %s accepted", p.Number),
			Body: fmt.Sprintf("Quotation %s is accepted. Please pay the deposit of %s to confirm your order.",
				p.Number, dollars(p.DepositCents, p.Currency)),
		}, true, nil
	case quotes.EventDepositPaid:
		p, err := kafkax.UnwrapPayload[quotes.PaymentEventPayload](env.Payload)
		if err != nil {
			return Email{}, false, err
		}
		return Email{
			To:      p.BuyerEmail,
			Subject: fmt.Sprintf("Deposit received for %s", p.Number),
			Body: fmt.Sprintf("We received your deposit of %s for quotation %s.\nRemaining balance: %s.",
				dollars(p.AmountCents, p.Currency), p.Number, dollars(p.BalanceCents, p.Currency)),
		}, true, nil
	case quotes.EventBalanceRequested:
		p, err := kafkax.UnwrapPayload[quotes.QuoteEventPayload](env.Payload)
		if err != nil {
			return Email{}, false, err
		}
		return Email{
			To:      p.BuyerEmail,
			Subject: fmt.Sprintf("Balance due for %s", p.Number),
			Body: fmt.Sprintf("The balance of %s for quotation %s is now due.",
				dollars(p.BalanceCents, p.Currency), p.Number),
		}, true, nil
	case quotes.EventBalancePaid:
		p, err := kafkax.UnwrapPayload[quotes.PaymentEventPayload](env.Payload)
		if err != nil {
			return Email{}, false, err
		}
		return Email{
			To:      p.BuyerEmail,
			Subject: fmt.Sprintf("Payment complete for %s", p.Number),
			Body: fmt.Sprintf("We received your balance payment of %s. Quotation %s is fully paid.",
				dollars(p.AmountCents, p.Currency), p.Number),
		}, true, nil
	case quotes.EventQuoteCancelled:
		p, err := kafkax.UnwrapPayload[quotes.QuoteEventPayload](env.Payload)
		if err != nil {
			return Email{}, false, err
		}
		body := fmt.Sprintf("Quotation %s has been cancelled.", p.Number)
		if p.Reason != "" {
			body += " Reason: " + p.Reason
		}
		return Email{To: p.BuyerEmail, Subject: fmt.Sprintf("Quotation %s cancelled", p.Number), Body: body}, true, nil
	case quotes.EventQuoteExpired:
		p, err := kafkax.UnwrapPayload[quotes.QuoteEventPayload](env.Payload)
		if err != nil {
			return Email{}, false, err
		}
		return Email{
			To:      p.BuyerEmail,
			Subject: fmt.Sprintf("Quotation %s expired", p.Number),
			Body:    fmt.Sprintf("Quotation %s has expired. Contact the seller for a new quotation.", p.Number),
		}, true, nil
	case quotes.EventQuoteCompleted:
		p, err := kafkax.UnwrapPayload[quotes.QuoteEventPayload](env.Payload)
		if err != nil {
			return Email{}, false, err
		}
		return Email{
			To:      p.BuyerEmail,
			Subject: fmt.Sprintf("Order %s fulfilled", p.Number),
			Body:    fmt.Sprintf("Your order %s has been marked fulfilled by the seller.", p.Number),
		}, true, nil
	}
	return Email{}, false, nil
}
