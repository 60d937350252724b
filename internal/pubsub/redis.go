package pubsub

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/kmadira/ledgerstream/internal/domain"
)

// RedisBroker relays messages through Redis pub/sub channels. Redis gives the
// exact semantics this service needs: fan-out to currently-connected
// subscribers, per-publisher ordering, no durability, no replay.
type RedisBroker struct {
	client *redis.Client
}

// RedisOptions configures the Redis connection.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
}

// NewRedisBroker connects to Redis and verifies the connection.
func NewRedisBroker(ctx context.Context, opts RedisOptions) (*RedisBroker, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: %v", domain.ErrBrokerUnavailable, err)
	}
	return &RedisBroker{client: client}, nil
}

func (b *RedisBroker) Publish(ctx context.Context, topic string, payload []byte) error {
	if err := b.client.Publish(ctx, topic, payload).Err(); err != nil {
		return fmt.Errorf("%w: publish to %s: %v", domain.ErrBrokerUnavailable, topic, err)
	}
	return nil
}

func (b *RedisBroker) Subscribe(ctx context.Context, topic string) (*Subscription, error) {
	ps := b.client.Subscribe(ctx, topic)

	// Wait for the subscription confirmation so the caller knows it is
	// attached before any messages it expects are published.
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("%w: subscribe to %s: %v", domain.ErrBrokerUnavailable, topic, err)
	}

	sub := newSubscription(subscriptionBuffer, func() { _ = ps.Close() })
	go func() {
		defer close(sub.ch)
		for msg := range ps.Channel() {
			select {
			case sub.ch <- []byte(msg.Payload):
			default:
				// Consumer gone or too far behind; drop rather than block
				// the pump after the handle is closed.
			}
		}
	}()
	return sub, nil
}

func (b *RedisBroker) Ping(ctx context.Context) error {
	if err := b.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrBrokerUnavailable, err)
	}
	return nil
}

func (b *RedisBroker) Close() error {
	return b.client.Close()
}
