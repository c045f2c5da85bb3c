package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/daveteshome/tgshe/internal/config"
	"github.com/daveteshome/tgshe/internal/messaging"
	"github.com/daveteshome/tgshe/internal/notifier"
	"github.com/daveteshome/tgshe/internal/telemetry"
)

const serviceVersion = "0.1.0"

func main() {
	ctx := context.Background()
	cfg := config.Load()
	logger := telemetry.NewLogger()

	shutdownTracer, err := telemetry.InitTracerProvider(ctx, "store-worker", serviceVersion)
	if err != nil {
		logger.Error("failed to initialize tracer", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownTracer(ctx) }()

	if len(cfg.KafkaBrokers) == 0 {
		logger.Error("KAFKA_BROKERS environment variable is required")
		os.Exit(1)
	}

	createdConsumer := messaging.NewConsumer(cfg.KafkaBrokers, messaging.TopicOrderCreated, "store-notifier")
	defer func() { _ = createdConsumer.Close() }()

	statusConsumer := messaging.NewConsumer(cfg.KafkaBrokers, messaging.TopicOrderStatusChanged, "store-notifier")
	defer func() { _ = statusConsumer.Close() }()

	httpClient := &http.Client{
		Timeout: 10 * time.Second,
	}

	handler := notifier.NewHandler(cfg.BuyerWebhookURL, cfg.OperatorWebhookURL, httpClient, logger)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		stop := make(chan os.Signal, 1)
		signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
		<-stop
		logger.Info("shutting down")
		cancel()
	}()

	logger.Info("starting notification worker", "brokers", cfg.KafkaBrokers)

	g, gCtx := errgroup.WithContext(runCtx)
	g.Go(func() error {
		return createdConsumer.Consume(gCtx, handler.HandleOrderCreated)
	})
	g.Go(func() error {
		return statusConsumer.Consume(gCtx, handler.HandleStatusChanged)
	})

	if err := g.Wait(); err != nil {
		if runCtx.Err() == context.Canceled {
			logger.Info("consumers stopped")
			return
		}
		logger.Error("consumer error", "error", err)
		os.Exit(1)
	}
}
