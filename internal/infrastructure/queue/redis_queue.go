package queue

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"OboGraphLoader/internal/logging"
	"OboGraphLoader/internal/ports"
)

// DefaultKey names the Redis set holding publication ids awaiting enrichment.
const DefaultKey = "obo:publications:pending"

// Config locates the Redis server.
type Config struct {
	Addr     string
	Password string
	DB       int
	Key      string
}

// RedisQueue keeps pending publication ids in a Redis set, so an id linked
// by many terms is queued once.
type RedisQueue struct {
	rdb *goredis.Client
	key string
	log *logging.Logger
}

var _ ports.PublicationQueue = (*RedisQueue)(nil)

// NewRedisQueue connects and pings the server.
func NewRedisQueue(ctx context.Context, cfg Config, log *logging.Logger) (*RedisQueue, error) {
	addr := strings.TrimSpace(cfg.Addr)
	if addr == "" {
		return nil, fmt.Errorf("redis queue: missing address")
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: 5 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return newRedisQueue(rdb, cfg.Key, log), nil
}

func newRedisQueue(rdb *goredis.Client, key string, log *logging.Logger) *RedisQueue {
	if key == "" {
		key = DefaultKey
	}
	return &RedisQueue{rdb: rdb, key: key, log: log.With("component", "queue.redis", "key", key)}
}

// Enqueue adds ids to the pending set.
func (q *RedisQueue) Enqueue(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	members := make([]any, len(ids))
	for i, id := range ids {
		members[i] = id
	}
	if err := q.rdb.SAdd(ctx, q.key, members...).Err(); err != nil {
		return fmt.Errorf("redis sadd: %w", err)
	}
	return nil
}

// Dequeue removes and returns up to count ids in no particular order.
func (q *RedisQueue) Dequeue(ctx context.Context, count int) ([]string, error) {
	if count <= 0 {
		return nil, nil
	}
	ids, err := q.rdb.SPopN(ctx, q.key, int64(count)).Result()
	if errors.Is(err, goredis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis spop: %w", err)
	}
	q.log.Debug("dequeued publications", "count", len(ids))
	return ids, nil
}

// Len reports how many ids are waiting.
func (q *RedisQueue) Len(ctx context.Context) (int64, error) {
	n, err := q.rdb.SCard(ctx, q.key).Result()
	if err != nil {
		return 0, fmt.Errorf("redis scard: %w", err)
	}
	return n, nil
}

// Close releases the client.
func (q *RedisQueue) Close() error {
	return q.rdb.Close()
}
