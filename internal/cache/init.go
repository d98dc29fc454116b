package cache

import (
	"github.com/spahub/billing/internal/config"
	"github.com/spahub/billing/internal/logger"
	redisclient "github.com/spahub/billing/internal/redis"
)

// CacheType represents the type of cache backend to use
type CacheType string

const (
	CacheTypeInMemory CacheType = "inmemory"
	CacheTypeRedis    CacheType = "redis"
)

// Initialize sets up the cache backend selected in configuration
func Initialize(cfg *config.Configuration, client *redisclient.Client, log *logger.Logger) Cache {
	if !cfg.Cache.Enabled {
		log.Infow("caching disabled")
		return NewNoopCache()
	}

	var c Cache
	switch CacheType(cfg.Cache.Type) {
	case CacheTypeRedis:
		InitializeRedisCache(client, log)
		c = GetRedisCache()
	case CacheTypeInMemory:
		fallthrough
	default:
		InitializeInMemoryCache()
		c = GetInMemoryCache()
	}

	log.Infow("cache initialized", "type", cfg.Cache.Type)
	return c
}
