package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/shopspring/decimal"

	"vela/internal/broker"
	"vela/internal/config"
	"vela/internal/engine"
	"vela/internal/notify"
	"vela/internal/pricing"
	"vela/internal/store"
	"vela/internal/util"
)

func main() {
	cfgPath := "config/vela.yaml"
	if p := os.Getenv("VELA_CONFIG"); p != "" {
		cfgPath = p
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := util.NewLogger(cfg.Logging.Level, cfg.Logging.Format)
	slog.SetDefault(logger)

	if dir := filepath.Dir(cfg.Storage.SQLitePath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			log.Fatalf("failed to create data directory: %v", err)
		}
	}
	sqlStore, err := store.NewSQLiteStore(cfg.Storage.SQLitePath)
	if err != nil {
		log.Fatalf("failed to open trade store: %v", err)
	}
	defer sqlStore.Close()

	var trades store.TradeStore = sqlStore
	if cfg.Storage.DataDir != "" {
		trades = &store.Tee{
			Primary: sqlStore,
			Journal: store.NewParquetJournal(cfg.Storage.DataDir),
		}
	}

	prices := pricing.NewAlpacaSource(cfg.Alpaca.APIKey, cfg.Alpaca.APISecret, cfg.Alpaca.DataURL)

	var submitter broker.Submitter
	if cfg.Trading.LiveTrading {
		submitter = broker.NewAlpaca(cfg.Alpaca.APIKey, cfg.Alpaca.APISecret, cfg.Alpaca.BaseURL)
	} else {
		submitter = broker.NewPaper(prices, decimal.NewFromFloat(cfg.Trading.DefaultPrice))
	}

	var notifier notify.Notifier = notify.Nop{}
	if cfg.Discord.Enabled {
		notifier = notify.NewDiscord(cfg.Discord.WebhookURL, cfg.Discord.RateLimitPerMin)
	}

	eng := engine.New(engine.Options{
		Submitter:       submitter,
		Prices:          prices,
		Trades:          trades,
		Notifier:        notifier,
		Live:            cfg.Trading.LiveTrading,
		DefaultPrice:    decimal.NewFromFloat(cfg.Trading.DefaultPrice),
		MaxPositionSize: decimal.NewFromFloat(cfg.Trading.MaxPositionSize),
		MaxSessionLoss:  decimal.NewFromFloat(cfg.Trading.MaxDailyLoss),
		FeeRate:         decimal.NewFromFloat(cfg.Trading.FeeRate),
		FeeCurrency:     cfg.Trading.FeeCurrency,
		MonitorInterval: cfg.Trading.Interval(),
		Logger:          logger,
	})

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := eng.Start(ctx); err != nil {
		log.Fatalf("engine start failed: %v", err)
	}
	fmt.Printf("vela-trader running (%s mode)\n", submitter.Name())

	<-ctx.Done()
	if err := eng.Stop(); err != nil {
		log.Fatalf("engine stop failed: %v", err)
	}
}
