// cache/redis_cache.go
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	logger "github.com/ameet-kotian/citadel/logging"
	"github.com/ameet-kotian/citadel/model"
)

// RedisCache stores policy lookups as JSON values. Every cached key is also
// added to a per-tenant index set so InvalidateTenant can delete exactly the
// tenant's entries without scanning the keyspace.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &RedisCache{client: client, ttl: ttl}
}

func tenantIndexKey(tenantID string) string {
	return fmt.Sprintf("policies:index:%s", tenantID)
}

func (c *RedisCache) Get(ctx context.Context, key Key) ([]*model.Policy, bool, error) {
	data, err := c.client.Get(ctx, key.String()).Result()
	if err == redis.Nil {
		return nil, false, nil
	} else if err != nil {
		return nil, false, fmt.Errorf("failed to get policies from cache: %w", err)
	}

	var policies []*model.Policy
	if err := json.Unmarshal([]byte(data), &policies); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal cached policies: %w", err)
	}
	return policies, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key Key, policies []*model.Policy) error {
	data, err := json.Marshal(policies)
	if err != nil {
		return fmt.Errorf("failed to marshal policies: %w", err)
	}

	pipe := c.client.TxPipeline()
	pipe.Set(ctx, key.String(), data, c.ttl)
	pipe.SAdd(ctx, tenantIndexKey(key.TenantID), key.String())
	// Keep the index from outliving its entries forever.
	pipe.Expire(ctx, tenantIndexKey(key.TenantID), 2*c.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to cache policies: %w", err)
	}

	logger.Debug("Policies cached", zap.String("key", key.String()), zap.Int("count", len(policies)))
	return nil
}

func (c *RedisCache) InvalidateTenant(ctx context.Context, tenantID string) error {
	indexKey := tenantIndexKey(tenantID)
	keys, err := c.client.SMembers(ctx, indexKey).Result()
	if err != nil && err != redis.Nil {
		return fmt.Errorf("failed to read tenant cache index: %w", err)
	}

	keys = append(keys, indexKey)
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to invalidate tenant cache: %w", err)
	}

	logger.Debug("Tenant policy cache invalidated",
		zap.String("tenantID", tenantID),
		zap.Int("keys", len(keys)-1))
	return nil
}
