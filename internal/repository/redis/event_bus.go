package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/AnriTapel/logitrades/internal/domain"
)

type EventBus struct {
	client *redis.Client
}

func NewEventBus(client *redis.Client) *EventBus {
	return &EventBus{client: client}
}

func Channel(userID uuid.UUID) string {
	return "trades." + userID.String()
}

func (b *EventBus) Publish(ctx context.Context, userID uuid.UUID, ev domain.TradeEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	if err := b.client.Publish(ctx, Channel(userID), data).Err(); err != nil {
		return fmt.Errorf("redis publish trade event: %w", err)
	}
	return nil
}

func (b *EventBus) Subscribe(ctx context.Context, userID uuid.UUID) *redis.PubSub {
	return b.client.Subscribe(ctx, Channel(userID))
}

// Stream relays the raw payloads published for userID until ctx ends.
func (b *EventBus) Stream(ctx context.Context, userID uuid.UUID) (<-chan []byte, error) {
	pubsub := b.Subscribe(ctx, userID)
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("redis subscribe %s: %w", Channel(userID), err)
	}

	out := make(chan []byte, 16)
	go func() {
		defer close(out)
		defer pubsub.Close()
		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				select {
				case out <- []byte(msg.Payload):
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}
