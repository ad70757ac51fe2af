package database

import (
	"context"
	"fmt"
	"time"

	"tracker-bot/models"

	"github.com/redis/go-redis/v9"
)

// DefaultPendingKey is the Redis key holding the pending-update set.
const DefaultPendingKey = "tracker:pending_updates"

// RedisPending keeps the pending-update set in a Redis sorted set scored by the
// time a thread was first queued.
type RedisPending struct {
	client *redis.Client
	key    string
	now    func() time.Time
}

// NewRedisPending connects to Redis and returns a pending-update set stored under key.
func NewRedisPending(ctx context.Context, redisURL, key string) (*RedisPending, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	if key == "" {
		key = DefaultPendingKey
	}
	return &RedisPending{client: client, key: key, now: time.Now}, nil
}

// Enqueue adds a thread to the set, keeping its original queue time if present.
func (r *RedisPending) Enqueue(ctx context.Context, threadID string) error {
	z := redis.Z{Score: float64(r.now().UnixNano()), Member: threadID}
	if err := r.client.ZAddNX(ctx, r.key, z).Err(); err != nil {
		return fmt.Errorf("enqueue thread %s: %w: %w", threadID, models.ErrStoreUnavailable, err)
	}
	return nil
}

// Dequeue removes a thread from the set.
func (r *RedisPending) Dequeue(ctx context.Context, threadID string) error {
	if err := r.client.ZRem(ctx, r.key, threadID).Err(); err != nil {
		return fmt.Errorf("dequeue thread %s: %w: %w", threadID, models.ErrStoreUnavailable, err)
	}
	return nil
}

// Pending lists queued threads, oldest first.
func (r *RedisPending) Pending(ctx context.Context) ([]string, error) {
	ids, err := r.client.ZRange(ctx, r.key, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list pending threads: %w: %w", models.ErrStoreUnavailable, err)
	}
	return ids, nil
}

// Close closes the Redis connection.
func (r *RedisPending) Close() error {
	return r.client.Close()
}

// Ping checks if Redis is reachable.
func (r *RedisPending) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
