package cache

import "time"

const (
	ExpiryDefaultInMemory = 30 * time.Minute
	ExpiryDefaultRedis    = 5 * time.Minute

	// ExpiryEntitlement is deliberately short: a resource count a few seconds
	// stale is acceptable, minutes is not.
	ExpiryEntitlement = 30 * time.Second

	// ExpiryAnalytics caches the statistics snapshot between dashboard loads
	ExpiryAnalytics = 2 * time.Minute
)
