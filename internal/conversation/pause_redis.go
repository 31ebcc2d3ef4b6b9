package conversation

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const pauseKeyPrefix = "leadpipe:pause:"

// RedisPauseRegistry is a PauseStore backed by Redis key TTLs, so pause
// windows survive process restarts and are shared across replicas.
type RedisPauseRegistry struct {
	client *redis.Client
}

// NewRedisPauseRegistry connects to the Redis instance named by redisURL
// (for example redis://localhost:6379/0) and verifies the connection.
func NewRedisPauseRegistry(ctx context.Context, redisURL string) (*RedisPauseRegistry, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return &RedisPauseRegistry{client: client}, nil
}

func (r *RedisPauseRegistry) Pause(ctx context.Context, participantID string, window time.Duration) error {
	if err := r.client.Set(ctx, pauseKeyPrefix+participantID, "1", window).Err(); err != nil {
		return fmt.Errorf("failed to set pause window: %w", err)
	}
	return nil
}

func (r *RedisPauseRegistry) IsPaused(ctx context.Context, participantID string) (bool, error) {
	if err := r.client.Get(ctx, pauseKeyPrefix+participantID).Err(); err != nil {
		if err == redis.Nil {
			return false, nil
		}
		return false, fmt.Errorf("failed to read pause window: %w", err)
	}
	return true, nil
}

func (r *RedisPauseRegistry) Resume(ctx context.Context, participantID string) error {
	if err := r.client.Del(ctx, pauseKeyPrefix+participantID).Err(); err != nil {
		return fmt.Errorf("failed to clear pause window: %w", err)
	}
	return nil
}

// Close releases the underlying Redis connection.
func (r *RedisPauseRegistry) Close() error {
	return r.client.Close()
}
