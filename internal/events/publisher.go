// Package events publishes transaction-created notifications onto the
// broadcast broker.
package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/kmadira/ledgerstream/internal/domain"
	"github.com/kmadira/ledgerstream/internal/metrics"
	"github.com/kmadira/ledgerstream/internal/pubsub"
)

// Publisher serializes committed transactions and hands them to the broker
// under a fixed topic. Publishing is decoupled from the ledger write: the
// caller commits first, then notifies, and a notification failure never undoes
// the commit.
type Publisher struct {
	broker pubsub.Broker
	topic  string
}

// NewPublisher returns a Publisher bound to topic.
func NewPublisher(broker pubsub.Broker, topic string) *Publisher {
	return &Publisher{broker: broker, topic: topic}
}

// Topic returns the topic events are published on.
func (p *Publisher) Topic() string { return p.topic }

// Publish emits exactly one event for the committed transaction. It succeeds
// as soon as the broker accepts the message; zero attached subscribers is not
// an error. An unreachable broker yields domain.ErrBrokerUnavailable, which
// callers on the write path log and swallow.
func (p *Publisher) Publish(ctx context.Context, tx domain.Transaction) error {
	payload, err := json.Marshal(tx)
	if err != nil {
		metrics.EventPublishFailuresTotal.Inc()
		return fmt.Errorf("marshal transaction event: %w", err)
	}

	if err := p.broker.Publish(ctx, p.topic, payload); err != nil {
		metrics.EventPublishFailuresTotal.Inc()
		return err
	}
	metrics.EventsPublishedTotal.Inc()
	return nil
}
