package cache

import (
	"context"
	"time"
)

// Cache is a get/set/delete cache used on read paths that tolerate staleness
// (entitlement lookups, analytics snapshots). It is never a source of truth.
type Cache interface {
	Get(ctx context.Context, key string) (interface{}, bool)
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration)
	Delete(ctx context.Context, key string)
	DeleteByPrefix(ctx context.Context, prefix string)
}
