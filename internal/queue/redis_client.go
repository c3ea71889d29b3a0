package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const popTimeout = 30 * time.Second

// RedisClient consumes and produces ingest jobs on a Redis list.
type RedisClient struct {
	client    *redis.Client
	queueName string
}

// NewRedisClient connects to Redis using the given URL and queue (list) name.
func NewRedisClient(ctx context.Context, redisURL, queueName string) (*RedisClient, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &RedisClient{client: client, queueName: queueName}, nil
}

// Pop blocks on BRPOP for up to 30 seconds. ok=false means the timeout
// elapsed with no job; callers loop.
func (c *RedisClient) Pop(ctx context.Context) ([]byte, bool, error) {
	res, err := c.client.BRPop(ctx, popTimeout, c.queueName).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("brpop %s: %w", c.queueName, err)
	}
	// BRPOP returns [key, value].
	if len(res) != 2 {
		return nil, false, fmt.Errorf("brpop %s: unexpected reply length %d", c.queueName, len(res))
	}
	return []byte(res[1]), true, nil
}

// Push delivers a job to the head of the list (LPUSH pairs with BRPOP for FIFO).
func (c *RedisClient) Push(ctx context.Context, job Job) error {
	payload, err := EncodeJob(job)
	if err != nil {
		return fmt.Errorf("encode job: %w", err)
	}
	if err := c.client.LPush(ctx, c.queueName, payload).Err(); err != nil {
		return fmt.Errorf("lpush %s: %w", c.queueName, err)
	}
	return nil
}

// Ping verifies connectivity, used by the ops health endpoint.
func (c *RedisClient) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close releases the underlying connection pool.
func (c *RedisClient) Close() error {
	return c.client.Close()
}

var (
	_ Consumer = (*RedisClient)(nil)
	_ Producer = (*RedisClient)(nil)
)
