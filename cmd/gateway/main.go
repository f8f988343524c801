package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/MilaKyr/trading-app/params"
	"github.com/MilaKyr/trading-app/pkg/exchange"
	"github.com/MilaKyr/trading-app/pkg/feed"
	"github.com/MilaKyr/trading-app/pkg/server"
	"github.com/MilaKyr/trading-app/pkg/util"
)

func main() {
	// Load config from .env file and environment variables
	cfg := params.LoadFromEnv("")

	var logger *zap.Logger
	var err error
	if logFile := os.Getenv("LOG_FILE"); logFile != "" {
		logger, err = util.NewLoggerWithFile(logFile)
	} else {
		logger, err = util.NewLogger()
	}
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()
	sugar := logger.Sugar()

	registry := exchange.NewRegistry(sugar, cfg.Feed.TradeHistory)

	// ---- Market-data feed (optional) ----
	if cfg.Feed.Enabled {
		feedSrv := feed.NewServer(registry, sugar)
		registry.AddSink(feedSrv.Hub())
		go func() {
			if err := feedSrv.Start(cfg.Feed.HTTPAddr); err != nil {
				sugar.Errorw("feed_server_failed", "err", err)
			}
		}()
	}

	// ---- Kafka trade publisher (optional) ----
	if cfg.Kafka.Enabled {
		publisher, err := feed.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		if err != nil {
			sugar.Fatalw("kafka_init_failed", "brokers", cfg.Kafka.Brokers, "err", err)
		}
		defer publisher.Close()
		registry.AddSink(publisher)
		sugar.Infow("kafka_publisher_enabled", "topic", cfg.Kafka.Topic)
	}

	// ---- Line-protocol gateway ----
	srv := server.New(cfg.Server, registry, sugar)
	if err := srv.Listen(); err != nil {
		sugar.Fatalw("bind_failed", "err", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := srv.Serve(ctx); err != nil {
		sugar.Fatalw("serve_failed", "err", err)
	}
	sugar.Info("gateway stopped")
}
