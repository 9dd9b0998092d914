package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"practice-service/internal/models"
)

// ProgressCache keeps per-user progress snapshots in Redis so session opens
// do not always round-trip to the learning backend. Every reconciliation
// overwrites the cached value; the TTL bounds staleness if invalidation is
// ever missed.
type ProgressCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewProgressCache(client *redis.Client, ttl time.Duration) *ProgressCache {
	return &ProgressCache{client: client, ttl: ttl}
}

func progressKey(userID string) string {
	return "practice:progress:" + userID
}

func (c *ProgressCache) Get(ctx context.Context, userID string) (*models.UserProgress, error) {
	raw, err := c.client.Get(ctx, progressKey(userID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get cached progress: %w", err)
	}
	var snap models.UserProgress
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, fmt.Errorf("decode cached progress: %w", err)
	}
	return &snap, nil
}

func (c *ProgressCache) Set(ctx context.Context, snap models.UserProgress) error {
	raw, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode progress for cache: %w", err)
	}
	if err := c.client.Set(ctx, progressKey(snap.UserID), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("set cached progress: %w", err)
	}
	return nil
}

func (c *ProgressCache) Invalidate(ctx context.Context, userID string) error {
	return c.client.Del(ctx, progressKey(userID)).Err()
}
