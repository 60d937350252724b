package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/kmadira/ledgerstream/internal/config"
	"github.com/kmadira/ledgerstream/internal/events"
	"github.com/kmadira/ledgerstream/internal/ledger"
	"github.com/kmadira/ledgerstream/internal/logging"
	"github.com/kmadira/ledgerstream/internal/pubsub"
	"github.com/kmadira/ledgerstream/internal/server"
	"github.com/kmadira/ledgerstream/internal/stream"
	"github.com/kmadira/ledgerstream/internal/summary"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.Logging)

	store, err := buildStore(cfg.Store)
	if err != nil {
		logger.Error("failed to open ledger store", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Warn("closing ledger store failed", "error", err)
		}
	}()

	broker, err := buildBroker(ctx, cfg.Broker)
	if err != nil {
		logger.Error("failed to connect broker", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := broker.Close(); err != nil {
			logger.Warn("closing broker failed", "error", err)
		}
	}()

	publisher := events.NewPublisher(broker, cfg.Broker.Topic)
	gateway := stream.NewGateway(logger.With("component", "stream"), broker, cfg.Broker.Topic)
	engine := summary.NewEngine(store)
	cache := summary.NewCache(logger.With("component", "summary"), engine, cfg.Summary.CacheTTL)
	apiHandlers := server.NewAPIHandlers(logger, store, publisher, cache)

	router := server.NewRouter(logger, server.RouterDependencies{
		Health:         server.CoreHealthService{Store: store, Broker: broker},
		API:            apiHandlers,
		Stream:         gateway,
		AllowedOrigins: server.ParseAllowedOrigins(cfg.HTTP.AllowedOriginsCSV),
		MetricsEnabled: cfg.HTTP.MetricsEnabled,
	})

	srv := server.New(logger, cfg.HTTP, router)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("received shutdown signal", "signal", sig.String())
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("server stopped unexpectedly", "error", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	}
}

func buildStore(cfg config.StoreConfig) (ledger.Store, error) {
	switch cfg.Driver {
	case "memory":
		return ledger.NewMemoryStore(), nil
	default:
		return ledger.NewSQLiteStore(cfg.Path)
	}
}

func buildBroker(ctx context.Context, cfg config.BrokerConfig) (pubsub.Broker, error) {
	switch cfg.Driver {
	case "redis":
		return pubsub.NewRedisBroker(ctx, pubsub.RedisOptions{
			Addr:     cfg.Addr,
			Password: cfg.Password,
			DB:       cfg.DB,
		})
	default:
		return pubsub.NewMemoryBroker(), nil
	}
}
