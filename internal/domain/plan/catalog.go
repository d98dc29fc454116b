package plan

import (
	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	ierr "github.com/spahub/billing/internal/errors"
	"github.com/spahub/billing/internal/types"
)

// The catalog is defined in code: three tiers, one of which (Free) is the
// default applied when a profile has no live subscription.
var catalog = map[types.PlanID]*Plan{
	types.PlanFree: {
		ID:           types.PlanFree,
		Name:         "Free",
		MonthlyPrice: decimal.Zero,
		Discounts:    map[int]decimal.Decimal{},
		Features: map[types.FeatureKey]bool{
			types.FeatureHighlighted:     false,
			types.FeaturePrioritySearch:  false,
			types.FeatureVerifiedBadge:   false,
			types.FeatureAnalyticsAccess: false,
		},
		ResourceLimits: map[types.ResourceType]int{
			types.ResourcePhotos:        5,
			types.ResourceVideos:        1,
			types.ResourceServices:      3,
			types.ResourceWorkZones:     1,
			types.ResourceGalleryVideos: 0,
		},
	},
	types.PlanPremium: {
		ID:           types.PlanPremium,
		Name:         "Premium",
		MonthlyPrice: decimal.NewFromInt(1000),
		Discounts: map[int]decimal.Decimal{
			3:  decimal.NewFromFloat(0.10),
			6:  decimal.NewFromFloat(0.15),
			12: decimal.NewFromFloat(0.25),
		},
		Features: map[types.FeatureKey]bool{
			types.FeatureHighlighted:     true,
			types.FeaturePrioritySearch:  true,
			types.FeatureVerifiedBadge:   false,
			types.FeatureAnalyticsAccess: true,
		},
		ResourceLimits: map[types.ResourceType]int{
			types.ResourcePhotos:        20,
			types.ResourceVideos:        5,
			types.ResourceServices:      10,
			types.ResourceWorkZones:     5,
			types.ResourceGalleryVideos: 3,
		},
	},
	types.PlanVIP: {
		ID:           types.PlanVIP,
		Name:         "VIP",
		MonthlyPrice: decimal.NewFromInt(2500),
		Discounts: map[int]decimal.Decimal{
			3:  decimal.NewFromFloat(0.10),
			6:  decimal.NewFromFloat(0.20),
			12: decimal.NewFromFloat(0.30),
		},
		Features: map[types.FeatureKey]bool{
			types.FeatureHighlighted:     true,
			types.FeaturePrioritySearch:  true,
			types.FeatureVerifiedBadge:   true,
			types.FeatureAnalyticsAccess: true,
		},
		ResourceLimits: map[types.ResourceType]int{
			types.ResourcePhotos:        types.UnlimitedQuota,
			types.ResourceVideos:        types.UnlimitedQuota,
			types.ResourceServices:      types.UnlimitedQuota,
			types.ResourceWorkZones:     types.UnlimitedQuota,
			types.ResourceGalleryVideos: types.UnlimitedQuota,
		},
	},
}

// GetPlan resolves a plan id against the catalog
func GetPlan(id types.PlanID) (*Plan, error) {
	p, ok := catalog[id]
	if !ok {
		return nil, ierr.NewErrorf("unknown plan %q", id).
			WithHint("Plan must be one of free, premium, vip").
			Mark(ierr.ErrNotFound)
	}
	return p, nil
}

// DefaultPlan returns the free tier applied when no subscription exists
func DefaultPlan() *Plan {
	return catalog[types.PlanFree]
}

// AllPlans returns every plan, cheapest first
func AllPlans() []*Plan {
	plans := lo.Values(catalog)
	// stable order: by monthly price ascending
	for i := 0; i < len(plans); i++ {
		for j := i + 1; j < len(plans); j++ {
			if plans[j].MonthlyPrice.LessThan(plans[i].MonthlyPrice) {
				plans[i], plans[j] = plans[j], plans[i]
			}
		}
	}
	return plans
}
