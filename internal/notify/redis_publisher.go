package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/katlegobruce88/quickcart/internal/domain"
)

const DefaultOrderChannel = "quickcart:orders"

// RedisPublisher emits order-created events on a Redis pub/sub channel for
// downstream fulfillment and notification consumers.
type RedisPublisher struct {
	client  *redis.Client
	channel string
	logger  *zap.Logger
}

func NewRedisPublisher(client *redis.Client, channel string, logger *zap.Logger) *RedisPublisher {
	if channel == "" {
		channel = DefaultOrderChannel
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisPublisher{client: client, channel: channel, logger: logger}
}

func (p *RedisPublisher) OrderCreated(ctx context.Context, event domain.OrderCreatedEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal order event: %w", err)
	}
	if err := p.client.Publish(ctx, p.channel, payload).Err(); err != nil {
		return fmt.Errorf("publish order event: %w", err)
	}
	p.logger.Info("order event published",
		zap.String("order", event.OrderNumber),
		zap.String("channel", p.channel),
	)
	return nil
}

// NoopNotifier drops events; used when no broker is configured.
type NoopNotifier struct{}

func (NoopNotifier) OrderCreated(context.Context, domain.OrderCreatedEvent) error {
	return nil
}
