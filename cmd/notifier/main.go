package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"tradeorders/internal/config"
	kafkax "tradeorders/internal/kafka"
	"tradeorders/internal/notifier"
	"tradeorders/internal/quotes"
	"tradeorders/internal/redisx"
)

var notifyTopics = []string{
	quotes.TopicQuoteSent,
	quotes.TopicQuoteAccepted,
	quotes.TopicPaymentDeposit,
	quotes.TopicBalanceRequested,
	quotes.TopicPaymentBalance,
	quotes.TopicQuoteCompleted,
	quotes.TopicQuoteCancelled,
	quotes.TopicQuoteExpired,
}

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	var mailer notifier.Mailer = notifier.LogMailer{}
	if cfg.SMTPAddr != "" {
		mailer = &notifier.SMTPMailer{Addr: cfg.SMTPAddr, From: cfg.MailFrom}
	}

	svc := &notifier.Service{
		Redis:       rdb,
		Mailer:      mailer,
		ServiceName: cfg.ServiceName + "-notifier",
	}

	// one consumer per topic, all in the same group
	var wg sync.WaitGroup
	for _, topic := range notifyTopics {
		cons := kafkax.NewConsumer(cfg.KafkaBrokers, cfg.NotifierGroup, topic, cfg.NotifierWorkers)
		wg.Add(1)
		go func(topic string) {
			defer wg.Done()
			log.Printf("notifier consumer started: group=%s topic=%s workers=%d", cfg.NotifierGroup, topic, cfg.NotifierWorkers)
			if err := cons.Start(ctx, svc.Handle); err != nil {
				log.Printf("consumer exit (%s): %v", topic, err)
				cancel()
			}
		}(topic)
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sig:
	case <-ctx.Done():
	}
	log.Println("shutting down notifier...")
	cancel()

	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(3 * time.Second):
	}
}
