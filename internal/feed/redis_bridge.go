package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"learnhub/internal/shared"

	"github.com/redis/go-redis/v9"
)

// RedisBridge connects the local Hub to a redis Pub/Sub channel so an event
// published on any instance reaches the subscribers of every instance.
type RedisBridge struct {
	client  *redis.Client
	channel string
	local   Publisher
	logger  *slog.Logger
}

func NewRedisBridge(client *redis.Client, local Publisher, logger *slog.Logger) *RedisBridge {
	return &RedisBridge{
		client:  client,
		channel: DefaultChannel,
		local:   local,
		logger:  logger,
	}
}

// Publish sends ev to the shared channel. Delivery to local subscribers happens
// when Run receives it back.
func (b *RedisBridge) Publish(ctx context.Context, ev shared.ChangeEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode change event: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := b.client.Publish(ctx, b.channel, body).Err(); err != nil {
		return fmt.Errorf("redis publish %s: %w", b.channel, err)
	}
	return nil
}

// Run forwards messages from the shared channel into the local hub until ctx is done.
func (b *RedisBridge) Run(ctx context.Context) error {
	pubsub := b.client.Subscribe(ctx, b.channel)
	defer pubsub.Close()

	// Ensure subscription is established before reading messages.
	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", b.channel, err)
	}
	b.logger.Info("redis_bridge_subscribed", "channel", b.channel)

	msgs := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return fmt.Errorf("redis channel %s closed", b.channel)
			}
			ev, err := shared.DecodeChangeEvent([]byte(msg.Payload))
			if err != nil {
				b.logger.Warn("redis_bridge_bad_payload", "channel", b.channel, "error", err)
				continue
			}
			if err := b.local.Publish(ctx, ev); err != nil {
				b.logger.Error("redis_bridge_forward_failed", "user_id", ev.UserID, "error", err)
			}
		}
	}
}
