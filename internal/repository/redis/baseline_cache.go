package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/pratik-mahalle/usagepulse/internal/domain/baseline"
	"github.com/pratik-mahalle/usagepulse/internal/domain/usage"
)

// DefaultKeyPrefix namespaces baseline keys
const DefaultKeyPrefix = "usagepulse:baseline"

var _ baseline.Cache = (*BaselineCache)(nil)

// BaselineCache keeps fresh baselines in Redis.
// Entries expire when the baseline stops being fresh.
type BaselineCache struct {
	client    redis.UniversalClient
	keyPrefix string
	now       func() time.Time
}

// NewBaselineCache creates a Redis-backed baseline cache
func NewBaselineCache(client redis.UniversalClient, keyPrefix string) *BaselineCache {
	if keyPrefix == "" {
		keyPrefix = DefaultKeyPrefix
	}
	return &BaselineCache{
		client:    client,
		keyPrefix: keyPrefix,
		now:       time.Now,
	}
}

// NewClient opens a Redis client and verifies connectivity
func NewClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return client, nil
}

func (c *BaselineCache) key(customerID string, metric usage.MetricType) string {
	return fmt.Sprintf("%s:%s:%s", c.keyPrefix, customerID, metric)
}

// Get returns the cached baseline or nil on a miss
func (c *BaselineCache) Get(ctx context.Context, customerID string, metric usage.MetricType) (*baseline.CustomerBaseline, error) {
	data, err := c.client.Get(ctx, c.key(customerID, metric)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cached baseline: %w", err)
	}

	var b baseline.CustomerBaseline
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("failed to decode cached baseline: %w", err)
	}
	return &b, nil
}

// Set caches b until its freshness window ends. Stale baselines are not cached.
func (c *BaselineCache) Set(ctx context.Context, b *baseline.CustomerBaseline) error {
	ttl := baseline.FreshnessWindow - c.now().Sub(b.CalculatedAt)
	if ttl <= 0 {
		return nil
	}

	data, err := json.Marshal(b)
	if err != nil {
		return fmt.Errorf("failed to encode baseline: %w", err)
	}
	if err := c.client.Set(ctx, c.key(b.CustomerID, b.MetricType), data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache baseline: %w", err)
	}
	return nil
}
