package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// QueueDispatcher pushes messages onto a Redis list for a downstream
// delivery worker.
type QueueDispatcher struct {
	client *redis.Client
	queue  string
}

// NewQueueDispatcher creates a Redis-backed dispatcher.
func NewQueueDispatcher(client *redis.Client, queue string) *QueueDispatcher {
	return &QueueDispatcher{client: client, queue: queue}
}

// Dispatch serializes the message and pushes it onto the queue.
func (d *QueueDispatcher) Dispatch(ctx context.Context, msg Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	if err := d.client.RPush(ctx, d.queue, payload).Err(); err != nil {
		return fmt.Errorf("enqueue notification: %w", err)
	}
	return nil
}

// Ping verifies the Redis connection. Used by readiness checks.
func (d *QueueDispatcher) Ping(ctx context.Context) error {
	return d.client.Ping(ctx).Err()
}

// HealthCheck implements the readiness checker interface.
func (d *QueueDispatcher) HealthCheck(ctx context.Context) error {
	return d.Ping(ctx)
}
