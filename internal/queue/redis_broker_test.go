package queue

import (
	"chatview/backend/internal/errs"
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Requires Redis on localhost:6379; skipped otherwise.
const testRedisAddr = "localhost:6379"

func setupRedisBroker(t *testing.T) *RedisBroker {
	t.Helper()

	client := redis.NewClient(&redis.Options{Addr: testRedisAddr})
	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available at %s: %v", testRedisAddr, err)
	}

	prefix := "test:" + uuid.NewString()
	t.Cleanup(func() {
		var cursor uint64
		for {
			keys, next, err := client.Scan(ctx, cursor, prefix+"*", 100).Result()
			if err != nil {
				break
			}
			if len(keys) > 0 {
				client.Del(ctx, keys...)
			}
			cursor = next
			if cursor == 0 {
				break
			}
		}
		client.Close()
	})

	return NewRedisBroker(client, prefix)
}

func TestRedisBroker_Lifecycle(t *testing.T) {
	ctx := context.Background()
	b := setupRedisBroker(t)
	q := Name("c1", "bob")

	ok, err := b.Exists(ctx, q)
	require.NoError(t, err)
	assert.False(t, ok)

	err = b.Send(ctx, q, []byte("early"))
	assert.ErrorIs(t, err, errs.ErrQueueNotDeclared)

	require.NoError(t, b.Declare(ctx, q))
	ok, err = b.Exists(ctx, q)
	require.NoError(t, err)
	assert.True(t, ok, "declared empty queue exists")

	require.NoError(t, b.Send(ctx, q, []byte("a")))
	require.NoError(t, b.Send(ctx, q, []byte("b")))

	body, ok, err := b.Receive(ctx, q, 50*time.Millisecond)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "a", string(body))

	require.NoError(t, b.Purge(ctx, q))
	_, ok, err = b.Receive(ctx, q, 50*time.Millisecond)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, b.Delete(ctx, q))
	require.NoError(t, b.Delete(ctx, q))
	ok, err = b.Exists(ctx, q)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisBroker_ShortReceiveWaitsAtMostTimeout(t *testing.T) {
	b := setupRedisBroker(t)
	q := Name("c1", "idle")
	require.NoError(t, b.Declare(context.Background(), q))

	start := time.Now()
	_, ok, err := b.Receive(context.Background(), q, 100*time.Millisecond)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Less(t, time.Since(start), 900*time.Millisecond)
}
