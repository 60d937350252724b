package pubsub

import (
	"context"
	"sync"

	"github.com/kmadira/ledgerstream/internal/domain"
)

// subscriptionBuffer bounds how far one subscriber may fall behind before its
// oldest undelivered messages are dropped. Dropping instead of blocking keeps
// one slow consumer from stalling delivery to the rest.
const subscriptionBuffer = 1024

// MemoryBroker is an in-process Broker built on per-subscriber channels. It
// backs unit tests and single-process deployments (BROKER_DRIVER=memory).
type MemoryBroker struct {
	mu     sync.Mutex
	topics map[string]map[*Subscription]struct{}
	closed bool
}

// NewMemoryBroker returns an empty in-process broker.
func NewMemoryBroker() *MemoryBroker {
	return &MemoryBroker{topics: make(map[string]map[*Subscription]struct{})}
}

func (b *MemoryBroker) Publish(_ context.Context, topic string, payload []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return domain.ErrBrokerUnavailable
	}

	for sub := range b.topics[topic] {
		select {
		case sub.ch <- payload:
		default:
			// Subscriber buffer full: drop for this subscriber only.
		}
	}
	return nil
}

func (b *MemoryBroker) Subscribe(_ context.Context, topic string) (*Subscription, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, domain.ErrBrokerUnavailable
	}

	subs, ok := b.topics[topic]
	if !ok {
		subs = make(map[*Subscription]struct{})
		b.topics[topic] = subs
	}

	var sub *Subscription
	sub = newSubscription(subscriptionBuffer, func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if _, ok := b.topics[topic][sub]; !ok {
			return
		}
		delete(b.topics[topic], sub)
		close(sub.ch)
	})
	subs[sub] = struct{}{}
	return sub, nil
}

func (b *MemoryBroker) Ping(context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return domain.ErrBrokerUnavailable
	}
	return nil
}

func (b *MemoryBroker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	for _, subs := range b.topics {
		for sub := range subs {
			delete(subs, sub)
			close(sub.ch)
		}
	}
	return nil
}
