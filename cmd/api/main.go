package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"tradeorders/internal/config"
	"tradeorders/internal/httpx"
	kafkax "tradeorders/internal/kafka"
	"tradeorders/internal/postgres"
	"tradeorders/internal/quotes"
	"tradeorders/internal/redisx"
	"tradeorders/internal/worker"
)

var apiTopics = []string{
	quotes.TopicQuoteSent,
	quotes.TopicQuoteViewed,
	quotes.TopicQuoteAccepted,
	quotes.TopicPaymentDeposit,
	quotes.TopicBalanceRequested,
	quotes.TopicPaymentBalance,
	quotes.TopicQuoteCompleted,
	quotes.TopicQuoteCancelled,
	quotes.TopicQuoteExpired,
	quotes.TopicStockRejected,
}

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}
	defer db.Close()
	if err := postgres.InitSchema(ctx, db); err != nil {
		log.Fatalf("schema: %v", err)
	}

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Kafka producers, one per lifecycle topic
	bus := kafkax.NewBus(cfg.KafkaBrokers, apiTopics, 1024)
	bus.Start(ctx)

	repo := &quotes.Repo{DB: db}
	router := httpx.NewRouter()
	qh := &httpx.QuotesHandler{
		Repo:          repo,
		Bus:           bus,
		Redis:         rdb,
		Service:       cfg.ServiceName,
		WebhookSecret: []byte(cfg.WebhookSecret),
	}
	qh.Register(router)

	// expiry sweeper shares the process with the API
	sweeper := &worker.ExpirySweeper{
		Store:     repo,
		Interval:  cfg.ExpiryInterval,
		BatchSize: cfg.ExpiryBatch,
		OnExpired: qh.PublishExpired,
	}
	sweeperDone := make(chan struct{})
	go func() {
		sweeper.Start(ctx)
		close(sweeperDone)
	}()

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	go func() {
		log.Printf("HTTP listening at %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Println("shutting down...")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)

	// The sweeper publishes through the bus; it must be fully stopped before
	// the producer inboxes close.
	cancel()
	select {
	case <-sweeperDone:
	case <-time.After(5 * time.Second):
	}
	bus.Close()
	bus.WaitClosed()
}
