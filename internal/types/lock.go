package types

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// LockScope represents the scope of a database advisory lock
type LockScope string

const (
	// LockScopeProfile serializes lifecycle mutations per profile
	LockScopeProfile LockScope = "profile"
	// LockScopeSubscription serializes renew/change-plan per subscription
	LockScopeSubscription LockScope = "subscription"
)

const DefaultLockTimeout = 30 * time.Second

// LockRequest describes an advisory lock to acquire inside a transaction
type LockRequest struct {
	Key     string
	Timeout *time.Duration
}

func (r LockRequest) GetTimeout() time.Duration {
	if r.Timeout == nil {
		return DefaultLockTimeout
	}
	return *r.Timeout
}

// GenerateLockKey builds a deterministic lock key from a scope and parameters.
// The key is a plain string; Postgres hashes it internally via hashtext().
func GenerateLockKey(scope LockScope, params map[string]interface{}) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(string(scope))
	for _, k := range keys {
		b.WriteString(fmt.Sprintf(":%s=%v", k, params[k]))
	}
	return b.String()
}

// TableName represents a database table name
type TableName string

const (
	TableNameSubscriptions       TableName = "subscriptions"
	TableNameSubscriptionHistory TableName = "subscription_history"
	TableNameProfiles            TableName = "master_profiles"
)
