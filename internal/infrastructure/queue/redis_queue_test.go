package queue

import (
	"context"
	"os"
	"testing"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"OboGraphLoader/internal/logging"
)

func TestNewRedisQueueRequiresAddress(t *testing.T) {
	t.Parallel()

	_, err := NewRedisQueue(context.Background(), Config{}, logging.Nop())
	assert.Error(t, err)
}

func TestRedisQueueNoopsWithoutServer(t *testing.T) {
	t.Parallel()

	q := newRedisQueue(goredis.NewClient(&goredis.Options{Addr: "127.0.0.1:1"}), "", logging.Nop())
	t.Cleanup(func() { _ = q.Close() })

	assert.Equal(t, DefaultKey, q.key)
	assert.NoError(t, q.Enqueue(context.Background()))
	ids, err := q.Dequeue(context.Background(), 0)
	assert.NoError(t, err)
	assert.Nil(t, ids)
}

// Runs against a real server when REDIS_ADDR is set.
func TestRedisQueueRoundTrip(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	ctx := context.Background()

	q, err := NewRedisQueue(ctx, Config{Addr: addr, Key: "obo:test:" + t.Name()}, logging.Nop())
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = q.rdb.Del(ctx, q.key).Err()
		_ = q.Close()
	})

	require.NoError(t, q.Enqueue(ctx, "1", "2", "2"))
	n, err := q.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	ids, err := q.Dequeue(ctx, 10)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"1", "2"}, ids)

	ids, err = q.Dequeue(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, ids)
}
