package main

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/stitchkart/checkout/internal/catalog"
	"github.com/stitchkart/checkout/internal/config"
	kafkax "github.com/stitchkart/checkout/internal/kafka"
	"github.com/stitchkart/checkout/internal/orders"
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
	log = log.With(zap.String("service", cfg.ServiceName+"-reconciler"))

	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatal("db connect", zap.Error(err))
	}
	defer db.Close()
	if err := postgres.Migrate(ctx, db); err != nil {
		log.Fatal("db migrate", zap.Error(err))
	}

	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	rec := &stock.Reconciler{
		Ledger: stock.NewLedger(&catalog.Repo{DB: db}, rdb, log),
		Redis:  rdb,
		Log:    log,
	}

	group := getenv("RECONCILER_GROUP", "stock-reconciler")
	workers := mustAtoi(os.Getenv("RECONCILER_WORKERS"), 4)
	cons := kafkax.NewConsumer(cfg.KafkaBrokers, group, orders.TopicStockDecrementFail, workers, log)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("reconciler consumer started",
			zap.String("group", group),
			zap.Int("workers", workers),
		)
		return cons.Start(gctx, rec.HandleDecrementFailed)
	})
	g.Go(func() error {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		select {
		case <-sig:
			cancel()
		case <-gctx.Done():
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Error("consumer exit", zap.Error(err))
	}
	log.Info("reconciler stopped")
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func mustAtoi(s string, def int) int {
	if s == "" {
		return def
	}
	i, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return i
}
