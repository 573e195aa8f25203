package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	QueueKey        = "securepulse:tasks"
	resultKeyPrefix = "securepulse:task:"

	// ResultTTL bounds how long outcomes stay queryable.
	ResultTTL = 24 * time.Hour
)

// RedisBroker keeps the queue in a Redis list (LPUSH in, BRPOP out) and each
// result under its own expiring key.
type RedisBroker struct {
	client *redis.Client
	queue  string
}

func NewRedisBroker(client *redis.Client) *RedisBroker {
	return &RedisBroker{client: client, queue: QueueKey}
}

func resultKey(id string) string {
	return resultKeyPrefix + id
}

func (b *RedisBroker) Enqueue(ctx context.Context, job Job) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}
	pending, err := json.Marshal(TaskResult{
		ID:         job.ID,
		Name:       job.Name,
		Status:     StatusPending,
		EnqueuedAt: job.EnqueuedAt,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}

	pipe := b.client.TxPipeline()
	pipe.Set(ctx, resultKey(job.ID), pending, ResultTTL)
	pipe.LPush(ctx, b.queue, payload)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to enqueue %s: %w", job.Name, err)
	}
	return nil
}

func (b *RedisBroker) Dequeue(ctx context.Context, timeout time.Duration) (*Job, error) {
	res, err := b.client.BRPop(ctx, timeout, b.queue).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to dequeue: %w", err)
	}

	// res is [key, value]
	var job Job
	if err := json.Unmarshal([]byte(res[1]), &job); err != nil {
		return nil, fmt.Errorf("failed to decode job: %w", err)
	}
	return &job, nil
}

func (b *RedisBroker) SetResult(ctx context.Context, result TaskResult) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}
	if err := b.client.Set(ctx, resultKey(result.ID), payload, ResultTTL).Err(); err != nil {
		return fmt.Errorf("failed to store result: %w", err)
	}
	return nil
}

func (b *RedisBroker) Result(ctx context.Context, id string) (*TaskResult, error) {
	raw, err := b.client.Get(ctx, resultKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrTaskNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load result: %w", err)
	}

	var result TaskResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("failed to decode result: %w", err)
	}
	return &result, nil
}
