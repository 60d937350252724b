package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/kmadira/ledgerstream/internal/config"
	"github.com/kmadira/ledgerstream/internal/domain"
	"github.com/kmadira/ledgerstream/internal/events"
	"github.com/kmadira/ledgerstream/internal/ingest"
	"github.com/kmadira/ledgerstream/internal/ledger"
	"github.com/kmadira/ledgerstream/internal/logging"
	"github.com/kmadira/ledgerstream/internal/pubsub"
)

var errMissingDataset = errors.New("dataset not found")

func main() {
	var (
		datasetDir   = flag.String("dataset-dir", "./data", "Directory containing transactions.json")
		transactions = flag.String("transactions", "", "Path to transactions.json (overrides dataset-dir)")
		workers      = flag.Int("workers", 4, "Number of concurrent workers for ingestion")
		publish      = flag.Bool("publish", false, "Publish a transaction event per inserted row")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.Logging).With("component", "ingest")

	txFile, err := resolveDatasetPath(*datasetDir, *transactions)
	if err != nil {
		logger.Error("dataset resolution failed", "error", err)
		os.Exit(1)
	}

	txs, err := loadTransactions(txFile)
	if err != nil {
		logger.Error("failed to load transactions", "error", err, "path", txFile)
		os.Exit(1)
	}
	if len(txs) == 0 {
		logger.Error("transactions dataset empty", "path", txFile)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, err := ledger.NewSQLiteStore(cfg.Store.Path)
	if err != nil {
		logger.Error("failed to open ledger store", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Warn("closing ledger store failed", "error", err)
		}
	}()

	var publisher ingest.Publisher
	if *publish {
		broker, err := buildBroker(ctx, cfg.Broker)
		if err != nil {
			logger.Error("failed to connect broker", "error", err)
			os.Exit(1)
		}
		defer broker.Close()
		publisher = events.NewPublisher(broker, cfg.Broker.Topic)
	}

	ingestor := ingest.New(store, publisher, *workers)

	start := time.Now()
	logger.Info("ingesting transactions", "count", len(txs), "workers", *workers)
	if err := ingestor.IngestTransactions(ctx, txs); err != nil {
		logger.Error("transaction ingestion failed", "error", err)
		os.Exit(1)
	}

	logger.Info("ingestion complete", "duration", time.Since(start).String(), "transactions", len(txs))
}

func resolveDatasetPath(baseDir, explicitPath string) (string, error) {
	if explicitPath != "" {
		if _, err := os.Stat(explicitPath); err != nil {
			return "", fmt.Errorf("stat %s: %w", explicitPath, err)
		}
		return explicitPath, nil
	}
	path := filepath.Join(baseDir, "transactions.json")
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("%w: %s", errMissingDataset, path)
	}
	return path, nil
}

func loadTransactions(path string) ([]domain.Transaction, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	var txs []domain.Transaction
	if err := json.NewDecoder(file).Decode(&txs); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return txs, nil
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
