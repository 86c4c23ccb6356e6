package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type RedisPublisher struct {
	client *redis.Client
}

func NewRedisPublisher(client *redis.Client) *RedisPublisher {
	return &RedisPublisher{client: client}
}

func (p *RedisPublisher) PublishProgress(ctx context.Context, event ProgressEvent) error {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal progress event: %w", err)
	}
	return p.client.Publish(ctx, Channel(event.JobID), payload).Err()
}

// NopPublisher drops events. Used when redis is not configured and in tests.
type NopPublisher struct{}

func (NopPublisher) PublishProgress(ctx context.Context, event ProgressEvent) error {
	return nil
}
