package tasks

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestRedisBroker needs a disposable Redis at TEST_REDIS_URL.
func newTestRedisBroker(t *testing.T) *RedisBroker {
	t.Helper()
	url := os.Getenv("TEST_REDIS_URL")
	if url == "" {
		t.Skip("TEST_REDIS_URL not set")
	}
	opts, err := redis.ParseURL(url)
	require.NoError(t, err)
	client := redis.NewClient(opts)
	t.Cleanup(func() { _ = client.Close() })

	b := NewRedisBroker(client)
	b.queue = "securepulse:test:" + t.Name()
	require.NoError(t, client.Del(context.Background(), b.queue).Err())
	return b
}

func TestRedisBrokerRoundTrip(t *testing.T) {
	b := newTestRedisBroker(t)
	ctx := context.Background()

	job := NewJob(PollAlertsTask)
	require.NoError(t, b.Enqueue(ctx, job))

	pending, err := b.Result(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, pending.Status)

	got, err := b.Dequeue(ctx, time.Second)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, job.ID, got.ID)

	done := time.Now().UTC()
	require.NoError(t, b.SetResult(ctx, TaskResult{ID: job.ID, Name: job.Name, Status: StatusSuccess, Result: "Polled 0 alerts", CompletedAt: &done}))

	res, err := b.Result(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, res.Status)
	assert.Equal(t, "Polled 0 alerts", res.Result)

	ttl, err := b.client.TTL(ctx, resultKey(job.ID)).Result()
	require.NoError(t, err)
	assert.InDelta(t, ResultTTL.Seconds(), ttl.Seconds(), 5)
}

func TestRedisBrokerEmptyQueueTimesOut(t *testing.T) {
	b := newTestRedisBroker(t)

	job, err := b.Dequeue(context.Background(), time.Second)
	require.NoError(t, err)
	assert.Nil(t, job)

	_, err = b.Result(context.Background(), "does-not-exist")
	assert.ErrorIs(t, err, ErrTaskNotFound)
}
