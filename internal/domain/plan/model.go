package plan

import (
	"github.com/shopspring/decimal"

	"github.com/spahub/billing/internal/types"
)

// Plan is one tier of the static plan catalog. Plans are immutable; price and
// limits never change for an existing plan id.
type Plan struct {
	ID   types.PlanID `json:"id"`
	Name string       `json:"name"`

	// MonthlyPrice is in minor currency units
	MonthlyPrice decimal.Decimal `json:"monthly_price"`

	// Discounts maps a term length threshold in months to a discount fraction.
	// The largest threshold not exceeding the requested term applies.
	Discounts map[int]decimal.Decimal `json:"discounts"`

	Features map[types.FeatureKey]bool `json:"features"`

	// ResourceLimits maps resource to quota; types.UnlimitedQuota (-1) means no cap
	ResourceLimits map[types.ResourceType]int `json:"resource_limits"`
}

// IsFree reports whether this is the zero-price default tier
func (p *Plan) IsFree() bool {
	return p.MonthlyPrice.IsZero()
}

// HasFeature reports whether the plan enables a named feature
func (p *Plan) HasFeature(key types.FeatureKey) bool {
	return p.Features[key]
}

// Limit returns the quota for a resource. Resources the plan does not mention
// are capped at zero, never unlimited.
func (p *Plan) Limit(resource types.ResourceType) int {
	if limit, ok := p.ResourceLimits[resource]; ok {
		return limit
	}
	return 0
}

// DiscountFor returns the discount fraction for a term of the given length
func (p *Plan) DiscountFor(periodMonths int) decimal.Decimal {
	best := decimal.Zero
	bestThreshold := 0
	for threshold, discount := range p.Discounts {
		if threshold <= periodMonths && threshold > bestThreshold {
			best = discount
			bestThreshold = threshold
		}
	}
	return best
}

// CalculateTotal computes the price of a term in minor units:
// monthly_price x months x (1 - discount), rounded to a whole unit.
func (p *Plan) CalculateTotal(periodMonths int) decimal.Decimal {
	if periodMonths <= 0 {
		return decimal.Zero
	}
	months := decimal.NewFromInt(int64(periodMonths))
	discount := p.DiscountFor(periodMonths)
	return p.MonthlyPrice.
		Mul(months).
		Mul(decimal.NewFromInt(1).Sub(discount)).
		Round(0)
}
