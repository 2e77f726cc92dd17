package data

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/campuskit/courserestore/internal/domain/model"
)

// RedisProgressCache caches restore progress snapshots in Redis so the
// status view does not query the engine on every poll.
type RedisProgressCache struct {
	client redis.UniversalClient
	ttl    time.Duration
}

const defaultProgressTTL = 5 * time.Second

// NewRedisProgressCache creates a cache with the given TTL. A zero TTL
// falls back to a short default.
func NewRedisProgressCache(client redis.UniversalClient, ttl time.Duration) *RedisProgressCache {
	if ttl <= 0 {
		ttl = defaultProgressTTL
	}
	return &RedisProgressCache{client: client, ttl: ttl}
}

func progressKey(restoreID string) string {
	return "restore_progress:" + restoreID
}

// Get returns the cached snapshot for the restore id.
func (c *RedisProgressCache) Get(ctx context.Context, restoreID string) (model.RestoreProgress, bool, error) {
	if restoreID == "" {
		return model.RestoreProgress{}, false, errors.New("restore id cannot be empty")
	}

	raw, err := c.client.Get(ctx, progressKey(restoreID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return model.RestoreProgress{}, false, nil
		}
		return model.RestoreProgress{}, false, fmt.Errorf("redis get: %w", err)
	}

	var progress model.RestoreProgress
	if err := json.Unmarshal([]byte(raw), &progress); err != nil {
		return model.RestoreProgress{}, false, fmt.Errorf("decode cached progress: %w", err)
	}
	return progress, true, nil
}

// Set caches a snapshot for the configured TTL. Terminal snapshots get a
// longer TTL since they never change again.
func (c *RedisProgressCache) Set(ctx context.Context, progress model.RestoreProgress) error {
	if progress.RestoreID == "" {
		return errors.New("restore id cannot be empty")
	}

	raw, err := json.Marshal(progress)
	if err != nil {
		return fmt.Errorf("encode progress: %w", err)
	}

	ttl := c.ttl
	if progress.Status.Terminal() {
		ttl = time.Hour
	}
	return c.client.Set(ctx, progressKey(progress.RestoreID), raw, ttl).Err()
}
