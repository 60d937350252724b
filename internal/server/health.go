package server

import (
	"context"
	"fmt"

	"github.com/kmadira/ledgerstream/internal/ledger"
	"github.com/kmadira/ledgerstream/internal/pubsub"
)

// HealthService defines behaviour for readiness probes.
type HealthService interface {
	Probe(ctx context.Context) error
}

// CoreHealthService verifies the ledger store and the broadcast broker as
// part of health checks.
type CoreHealthService struct {
	Store  ledger.Store
	Broker pubsub.Broker
}

// Probe implements the HealthService interface.
func (s CoreHealthService) Probe(ctx context.Context) error {
	if s.Store != nil {
		if err := s.Store.Ping(ctx); err != nil {
			return fmt.Errorf("ledger store: %w", err)
		}
	}
	if s.Broker != nil {
		if err := s.Broker.Ping(ctx); err != nil {
			return fmt.Errorf("broker: %w", err)
		}
	}
	return nil
}
