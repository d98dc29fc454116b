package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSubscriptionStatusValidate(t *testing.T) {
	for _, status := range []SubscriptionStatus{
		SubscriptionStatusPending,
		SubscriptionStatusTrial,
		SubscriptionStatusActive,
		SubscriptionStatusExpired,
		SubscriptionStatusCancelled,
	} {
		assert.True(t, status.Validate(), status)
	}
	assert.False(t, SubscriptionStatus("paused").Validate())
	assert.False(t, SubscriptionStatus("").Validate())
}

func TestSubscriptionStatusIsLive(t *testing.T) {
	assert.True(t, SubscriptionStatusPending.IsLive())
	assert.True(t, SubscriptionStatusTrial.IsLive())
	assert.True(t, SubscriptionStatusActive.IsLive())
	assert.False(t, SubscriptionStatusExpired.IsLive())
	assert.False(t, SubscriptionStatusCancelled.IsLive())
}

func TestSubscriptionStatusCanTransitionTo(t *testing.T) {
	tests := []struct {
		from    SubscriptionStatus
		to      SubscriptionStatus
		allowed bool
	}{
		{SubscriptionStatusPending, SubscriptionStatusActive, true},
		{SubscriptionStatusPending, SubscriptionStatusCancelled, true},
		{SubscriptionStatusPending, SubscriptionStatusExpired, false},
		{SubscriptionStatusPending, SubscriptionStatusTrial, false},
		{SubscriptionStatusTrial, SubscriptionStatusActive, true},
		{SubscriptionStatusTrial, SubscriptionStatusExpired, true},
		{SubscriptionStatusTrial, SubscriptionStatusCancelled, true},
		{SubscriptionStatusTrial, SubscriptionStatusPending, false},
		// renewal is modeled as ACTIVE -> ACTIVE
		{SubscriptionStatusActive, SubscriptionStatusActive, true},
		{SubscriptionStatusActive, SubscriptionStatusExpired, true},
		{SubscriptionStatusActive, SubscriptionStatusCancelled, true},
		{SubscriptionStatusActive, SubscriptionStatusTrial, false},
		// terminal states never leave
		{SubscriptionStatusExpired, SubscriptionStatusActive, false},
		{SubscriptionStatusExpired, SubscriptionStatusCancelled, false},
		{SubscriptionStatusCancelled, SubscriptionStatusActive, false},
		{SubscriptionStatusCancelled, SubscriptionStatusExpired, false},
	}

	for _, tt := range tests {
		got := tt.from.CanTransitionTo(tt.to)
		assert.Equal(t, tt.allowed, got, "%s -> %s", tt.from, tt.to)
	}
}

func TestSubscriptionStatusIsTerminal(t *testing.T) {
	assert.True(t, SubscriptionStatusExpired.IsTerminal())
	assert.True(t, SubscriptionStatusCancelled.IsTerminal())
	assert.False(t, SubscriptionStatusActive.IsTerminal())
	assert.False(t, SubscriptionStatusPending.IsTerminal())
	assert.False(t, SubscriptionStatusTrial.IsTerminal())
}
