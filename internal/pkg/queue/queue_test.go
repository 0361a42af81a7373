package queue

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*redis.Client, func()) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})

	cleanup := func() {
		client.Close()
		mr.Close()
	}

	return client, cleanup
}

func TestQueue_PushPop(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	defer cleanup()

	q := NewQueue(client, "test_dispatch_queue")
	ctx := context.Background()

	err := q.Push(ctx, &DispatchMessage{BatchID: 42, UserID: 7})
	require.NoError(t, err)

	length, err := q.Length(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), length)

	result, err := q.Pop(ctx, time.Second)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, int64(42), result.BatchID)
	assert.Equal(t, int64(7), result.UserID)
}

func TestQueue_FIFOOrder(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	defer cleanup()

	q := NewQueue(client, "test_fifo_queue")
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		err := q.Push(ctx, &DispatchMessage{BatchID: int64(i)})
		require.NoError(t, err)
	}

	for i := 1; i <= 3; i++ {
		result, err := q.Pop(ctx, time.Second)
		require.NoError(t, err)
		require.NotNil(t, result)
		assert.Equal(t, int64(i), result.BatchID)
	}
}

func TestQueue_EmptyPop(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	defer cleanup()

	q := NewQueue(client, "test_empty_queue")

	// miniredis 对 BRPop 超时支持不完整，空队列只要求不 panic
	result, err := q.Pop(context.Background(), 10*time.Millisecond)
	if err == nil {
		assert.Nil(t, result)
	}
}
