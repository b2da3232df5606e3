package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/stitchkart/checkout/internal/catalog"
	"github.com/stitchkart/checkout/internal/checkout"
	"github.com/stitchkart/checkout/internal/config"
	"github.com/stitchkart/checkout/internal/httpx"
	kafkax "github.com/stitchkart/checkout/internal/kafka"
	"github.com/stitchkart/checkout/internal/orders"
	"github.com/stitchkart/checkout/internal/payment"
	"github.com/stitchkart/checkout/internal/postgres"
	"github.com/stitchkart/checkout/internal/redisx"
	"github.com/stitchkart/checkout/internal/stock"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	log, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()
	log = log.With(zap.String("service", cfg.ServiceName))

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatal("db connect", zap.Error(err))
	}
	defer db.Close()
	if err := postgres.Migrate(ctx, db); err != nil {
		log.Fatal("db migrate", zap.Error(err))
	}

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Kafka producers, one per topic
	created := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderCreated, 1024, log)
	created.Start(ctx)
	reconcile := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicStockDecrementFail, 1024, log)
	reconcile.Start(ctx)

	// Wiring
	catalogRepo := &catalog.Repo{DB: db}
	ledger := stock.NewLedger(catalogRepo, rdb, log)
	svc := &checkout.Service{
		Orders:          &orders.Repo{DB: db},
		Ledger:          ledger,
		Verifier:        payment.NewVerifier(cfg.RazorpayKeySecret),
		Catalog:         catalogRepo,
		CreatedEvents:   created,
		ReconcileEvents: reconcile,
		ServiceName:     cfg.ServiceName,
		DefaultCountry:  cfg.DefaultCountry,
		Log:             log,
	}

	router := httpx.NewRouter()
	oh := &httpx.OrdersHandler{Service: svc, Redis: rdb, Log: log}
	oh.Register(router)
	ph := &httpx.PaymentsHandler{Verifier: svc.Verifier, KeyID: cfg.RazorpayKeyID}
	ph.Register(router)
	sh := &httpx.StockHandler{Catalog: catalogRepo, Redis: rdb}
	sh.Register(router)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	go func() {
		log.Info("HTTP listening", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("listen", zap.Error(err))
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info("shutting down")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)
	created.Close()
	reconcile.Close()
	cancel()
	created.WaitClosed()
	reconcile.WaitClosed()
}
