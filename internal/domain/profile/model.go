package profile

import (
	"time"

	"github.com/spahub/billing/internal/types"
)

// Profile is the slice of the catalog-owned profile entity this subsystem
// reads, plus the premium projection it writes. The projection (IsPremium,
// PremiumUntil, SubscriptionPlan) is a cache derived from the current live
// subscription; it can be rebuilt at any time and is never a source of truth.
type Profile struct {
	ID         string `json:"id"`
	Email      string `json:"email"`
	IsVerified bool   `json:"is_verified"`

	IsPremium        bool         `json:"is_premium"`
	PremiumUntil     *time.Time   `json:"premium_until,omitempty"`
	SubscriptionPlan types.PlanID `json:"subscription_plan,omitempty"`
}

// Projection is the premium state written back onto the profile
type Projection struct {
	IsPremium        bool
	PremiumUntil     *time.Time
	SubscriptionPlan types.PlanID
}

// EmptyProjection clears the premium state
func EmptyProjection() Projection {
	return Projection{}
}
