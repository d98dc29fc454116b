package cache

import (
	"context"
	"time"
)

// UnmarshalCacheValue converts a cached value to the requested type. It handles
// both the in-memory backend (stores live objects) and the redis backend
// (stores JSON strings). Returns nil, false when the value does not convert.
func UnmarshalCacheValue[T any](value interface{}) (*T, bool) {
	if value == nil {
		return nil, false
	}

	if typed, ok := value.(*T); ok {
		return typed, true
	}

	if str, ok := value.(string); ok {
		var result T
		if err := json.Unmarshal([]byte(str), &result); err == nil {
			return &result, true
		}
	}

	return nil, false
}

// NoopCache satisfies Cache while storing nothing
type NoopCache struct{}

func NewNoopCache() *NoopCache {
	return &NoopCache{}
}

func (n *NoopCache) Get(ctx context.Context, key string) (interface{}, bool) { return nil, false }

func (n *NoopCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) {
}

func (n *NoopCache) Delete(ctx context.Context, key string) {}

func (n *NoopCache) DeleteByPrefix(ctx context.Context, prefix string) {}
