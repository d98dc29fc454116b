package types

// PlanID identifies a plan tier in the static catalog
type PlanID string

const (
	PlanFree    PlanID = "free"
	PlanPremium PlanID = "premium"
	PlanVIP     PlanID = "vip"
)

func (p PlanID) String() string {
	return string(p)
}

func (p PlanID) Validate() bool {
	switch p {
	case PlanFree, PlanPremium, PlanVIP:
		return true
	}
	return false
}

// IsPremiumTier reports whether the plan flips the profile's premium flag
func (p PlanID) IsPremiumTier() bool {
	return p == PlanPremium || p == PlanVIP
}

// FeatureKey names a boolean plan feature
type FeatureKey string

const (
	FeatureHighlighted     FeatureKey = "highlighted"
	FeaturePrioritySearch  FeatureKey = "priority_search"
	FeatureVerifiedBadge   FeatureKey = "verified_badge"
	FeatureAnalyticsAccess FeatureKey = "analytics_access"
)
