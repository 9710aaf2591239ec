package jurisdiction

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	id "fieldops/pkg/domain"
)

const scopeKeyPrefix = "fieldops:scope:"

// RedisCache stores closures as JSON arrays with a TTL.
type RedisCache struct {
	client redis.Cmdable
}

func NewRedisCache(client redis.Cmdable) *RedisCache {
	return &RedisCache{client: client}
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]id.JurisdictionID, bool, error) {
	raw, err := c.client.Get(ctx, scopeKeyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get scope: %w", err)
	}
	var members []id.JurisdictionID
	if err := json.Unmarshal(raw, &members); err != nil {
		return nil, false, fmt.Errorf("decode cached scope: %w", err)
	}
	return members, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, members []id.JurisdictionID, ttl time.Duration) error {
	raw, err := json.Marshal(members)
	if err != nil {
		return fmt.Errorf("encode scope: %w", err)
	}
	if err := c.client.Set(ctx, scopeKeyPrefix+key, raw, ttl).Err(); err != nil {
		return fmt.Errorf("redis set scope: %w", err)
	}
	return nil
}
