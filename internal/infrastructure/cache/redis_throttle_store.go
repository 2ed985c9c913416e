package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// RedisThrottleStore records per-plan rate-limit cooldowns in Redis so that
// every instance short-circuits re-invocations inside the window instead of
// burning another remote call.
type RedisThrottleStore struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisThrottleStore creates a new Redis-based throttle store
func NewRedisThrottleStore(cfg RedisConfig) (*RedisThrottleStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisThrottleStore{
		client:    client,
		keyPrefix: "spapi:throttle:",
	}, nil
}

// NewRedisThrottleStoreWithClient creates a store with an existing Redis client
func NewRedisThrottleStoreWithClient(client *redis.Client, keyPrefix string) *RedisThrottleStore {
	if keyPrefix == "" {
		keyPrefix = "spapi:throttle:"
	}
	return &RedisThrottleStore{client: client, keyPrefix: keyPrefix}
}

// Cooldown returns the remaining cooldown for a plan, if any. The key's
// remaining TTL is the remaining wait.
func (s *RedisThrottleStore) Cooldown(ctx context.Context, planID string) (time.Duration, bool, error) {
	ttl, err := s.client.TTL(ctx, s.keyPrefix+planID).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("failed to read throttle cooldown: %w", err)
	}
	if ttl <= 0 {
		return 0, false, nil
	}
	return ttl, true, nil
}

// SetCooldown records a plan's cooldown window.
func (s *RedisThrottleStore) SetCooldown(ctx context.Context, planID string, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	if err := s.client.Set(ctx, s.keyPrefix+planID, "1", d).Err(); err != nil {
		return fmt.Errorf("failed to record throttle cooldown: %w", err)
	}
	return nil
}

// Close closes the Redis client
func (s *RedisThrottleStore) Close() error {
	return s.client.Close()
}
