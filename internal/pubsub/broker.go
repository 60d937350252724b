// Package pubsub abstracts the broadcast substrate that decouples the write
// path from streaming subscribers. Delivery is at-most-once: a subscriber only
// sees messages published while it is attached, in per-publisher order, and
// nothing is replayed after a disconnect.
package pubsub

import (
	"context"
	"sync"
)

// Broker is a named-topic publish/subscribe relay.
type Broker interface {
	// Publish delivers payload to every subscriber currently attached to
	// topic. Zero attached subscribers is a normal, non-error outcome.
	// An unreachable broker yields domain.ErrBrokerUnavailable.
	Publish(ctx context.Context, topic string, payload []byte) error

	// Subscribe attaches a new handle to topic. Messages published from this
	// moment on are delivered to the handle's channel.
	Subscribe(ctx context.Context, topic string) (*Subscription, error)

	// Ping reports whether the broker is reachable.
	Ping(ctx context.Context) error

	// Close tears down the broker and every open subscription.
	Close() error
}

// Subscription is one attached consumer handle. The channel is closed when the
// subscription or its broker is closed.
type Subscription struct {
	ch     chan []byte
	cancel func()
	once   sync.Once
}

func newSubscription(buffer int, cancel func()) *Subscription {
	return &Subscription{
		ch:     make(chan []byte, buffer),
		cancel: cancel,
	}
}

// C returns the receive channel for this subscription.
func (s *Subscription) C() <-chan []byte { return s.ch }

// Close detaches the subscription and releases its resources. It is safe to
// call more than once.
func (s *Subscription) Close() {
	s.once.Do(s.cancel)
}
