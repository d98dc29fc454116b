package cache

import (
	"context"
	"errors"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/redis/go-redis/v9"

	redisclient "github.com/spahub/billing/internal/redis"

	"github.com/spahub/billing/internal/logger"
)

// ScanCount determines how many keys to scan per SCAN iteration
const ScanCount = 100

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// RedisCache implements Cache using Redis. Values are stored as JSON strings;
// use UnmarshalCacheValue on the read side to get typed values back.
type RedisCache struct {
	client *redis.Client
	log    *logger.Logger
}

var redisCache *RedisCache

// NewRedisCache creates a new Redis cache
func NewRedisCache(client *redisclient.Client, log *logger.Logger) *RedisCache {
	return &RedisCache{client: client.GetClient(), log: log}
}

// InitializeRedisCache initializes the global Redis cache instance
func InitializeRedisCache(client *redisclient.Client, log *logger.Logger) {
	if redisCache == nil {
		redisCache = NewRedisCache(client, log)
	}
}

// GetRedisCache returns the global Redis cache instance
func GetRedisCache() *RedisCache {
	return redisCache
}

func (c *RedisCache) Get(ctx context.Context, key string) (interface{}, bool) {
	value, err := c.client.Get(ctx, key).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.Errorw("redis GET failed", "key", key, "error", err)
		}
		return nil, false
	}
	return value, true
}

func (c *RedisCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) {
	if expiration == 0 {
		expiration = ExpiryDefaultRedis
	}

	var strValue string
	switch v := value.(type) {
	case string:
		strValue = v
	default:
		raw, err := json.Marshal(value)
		if err != nil {
			c.log.Errorw("failed to marshal cache value", "key", key, "error", err)
			return
		}
		strValue = string(raw)
	}

	if err := c.client.Set(ctx, key, strValue, expiration).Err(); err != nil {
		c.log.Errorw("redis SET failed", "key", key, "error", err)
	}
}

func (c *RedisCache) Delete(ctx context.Context, key string) {
	if err := c.client.Del(ctx, key).Err(); err != nil {
		c.log.Errorw("redis DEL failed", "key", key, "error", err)
	}
}

func (c *RedisCache) DeleteByPrefix(ctx context.Context, prefix string) {
	iter := c.client.Scan(ctx, 0, prefix+"*", ScanCount).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			c.log.Errorw("redis DEL failed", "key", iter.Val(), "error", err)
		}
	}
	if err := iter.Err(); err != nil {
		c.log.Errorw("redis SCAN failed", "prefix", prefix, "error", err)
	}
}
