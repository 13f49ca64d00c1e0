package biz

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/kart-io/logger"
	goredis "github.com/redis/go-redis/v9"

	"github.com/kart-io/lectern/internal/model"
	"github.com/kart-io/lectern/pkg/utils/json"
)

// QueryCacheConfig configures the answer cache.
type QueryCacheConfig struct {
	// Enabled turns the cache on.
	Enabled bool
	// TTL is the cache entry lifetime.
	TTL time.Duration
	// KeyPrefix prefixes all cache keys.
	KeyPrefix string
}

// QueryCache caches answers to sessionless queries in Redis. Queries
// carrying conversation history are never cached since the same text
// can mean different things in different conversations.
type QueryCache struct {
	redis  *goredis.Client
	config *QueryCacheConfig
}

// NewQueryCache creates a cache instance. A nil config disables it.
func NewQueryCache(redis *goredis.Client, config *QueryCacheConfig) *QueryCache {
	if config == nil {
		config = &QueryCacheConfig{
			Enabled:   false,
			TTL:       time.Hour,
			KeyPrefix: "lectern:query:",
		}
	}
	if config.KeyPrefix == "" {
		config.KeyPrefix = "lectern:query:"
	}
	if config.TTL <= 0 {
		config.TTL = time.Hour
	}
	return &QueryCache{redis: redis, config: config}
}

func (c *QueryCache) cacheKey(query string) string {
	hash := sha256.Sum256([]byte(query))
	return c.config.KeyPrefix + hex.EncodeToString(hash[:])
}

// Get returns the cached result for query, or nil on a miss.
func (c *QueryCache) Get(ctx context.Context, query string) (*model.QueryResult, error) {
	if !c.config.Enabled || c.redis == nil {
		return nil, nil
	}

	key := c.cacheKey(query)
	data, err := c.redis.Get(ctx, key).Bytes()
	if err != nil {
		if err == goredis.Nil {
			return nil, nil
		}
		logger.Warnw("query cache read failed", "error", err, "key", key)
		return nil, err
	}

	var result model.QueryResult
	if err := json.Unmarshal(data, &result); err != nil {
		logger.Warnw("dropping undecodable cache entry", "error", err, "key", key)
		_ = c.redis.Del(ctx, key).Err()
		return nil, err
	}
	return &result, nil
}

// Set stores the result for query.
func (c *QueryCache) Set(ctx context.Context, query string, result *model.QueryResult) error {
	if !c.config.Enabled || c.redis == nil {
		return nil
	}

	data, err := json.Marshal(result)
	if err != nil {
		return err
	}
	key := c.cacheKey(query)
	if err := c.redis.Set(ctx, key, data, c.config.TTL).Err(); err != nil {
		logger.Warnw("query cache write failed", "error", err, "key", key)
		return err
	}
	return nil
}

// Clear removes all cached answers. Called after ingestion so stale
// answers never outlive a corpus change.
func (c *QueryCache) Clear(ctx context.Context) error {
	if !c.config.Enabled || c.redis == nil {
		return nil
	}

	iter := c.redis.Scan(ctx, 0, c.config.KeyPrefix+"*", 0).Iterator()
	deleted := 0
	for iter.Next(ctx) {
		if err := c.redis.Del(ctx, iter.Val()).Err(); err != nil {
			logger.Warnw("failed to delete cache key", "error", err, "key", iter.Val())
			continue
		}
		deleted++
	}
	if err := iter.Err(); err != nil {
		return err
	}
	logger.Infow("query cache cleared", "deleted", deleted)
	return nil
}
