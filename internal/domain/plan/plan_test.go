package plan

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ierr "github.com/spahub/billing/internal/errors"
	"github.com/spahub/billing/internal/types"
)

func TestGetPlan(t *testing.T) {
	t.Run("known plans resolve", func(t *testing.T) {
		for _, id := range []types.PlanID{types.PlanFree, types.PlanPremium, types.PlanVIP} {
			p, err := GetPlan(id)
			require.NoError(t, err)
			assert.Equal(t, id, p.ID)
		}
	})

	t.Run("unknown plan is not found", func(t *testing.T) {
		_, err := GetPlan("enterprise")
		assert.True(t, ierr.IsNotFound(err))
	})
}

func TestDefaultPlan(t *testing.T) {
	p := DefaultPlan()
	assert.Equal(t, types.PlanFree, p.ID)
	assert.True(t, p.IsFree())

	// exactly one zero-price tier in the catalog
	freeCount := 0
	for _, p := range AllPlans() {
		if p.IsFree() {
			freeCount++
		}
	}
	assert.Equal(t, 1, freeCount)
}

func TestDefaultPlanHasNarrowestLimits(t *testing.T) {
	free := DefaultPlan()
	for _, other := range AllPlans() {
		if other.IsFree() {
			continue
		}
		for _, resource := range types.AllResourceTypes() {
			otherLimit := other.Limit(resource)
			if otherLimit == types.UnlimitedQuota {
				continue
			}
			assert.LessOrEqual(t, free.Limit(resource), otherLimit,
				"free plan should never allow more %s than %s", resource, other.ID)
		}
	}
}

func TestAllPlansOrder(t *testing.T) {
	plans := AllPlans()
	require.Len(t, plans, 3)
	for i := 1; i < len(plans); i++ {
		assert.True(t, plans[i-1].MonthlyPrice.LessThanOrEqual(plans[i].MonthlyPrice))
	}
}

func TestCalculateTotal(t *testing.T) {
	premium, err := GetPlan(types.PlanPremium)
	require.NoError(t, err)

	t.Run("three month term with 10% discount", func(t *testing.T) {
		// 1000 x 3 x 0.9 = 2700
		total := premium.CalculateTotal(3)
		assert.True(t, decimal.NewFromInt(2700).Equal(total), "got %s", total)
	})

	t.Run("single month has no discount", func(t *testing.T) {
		total := premium.CalculateTotal(1)
		assert.True(t, premium.MonthlyPrice.Equal(total))
	})

	t.Run("term between thresholds uses the largest threshold below it", func(t *testing.T) {
		// 4 months picks the 3-month discount: 1000 x 4 x 0.9 = 3600
		total := premium.CalculateTotal(4)
		assert.True(t, decimal.NewFromInt(3600).Equal(total), "got %s", total)
	})

	t.Run("twelve month term with 25% discount", func(t *testing.T) {
		// 1000 x 12 x 0.75 = 9000
		total := premium.CalculateTotal(12)
		assert.True(t, decimal.NewFromInt(9000).Equal(total), "got %s", total)
	})

	t.Run("non-positive term is free", func(t *testing.T) {
		assert.True(t, premium.CalculateTotal(0).IsZero())
		assert.True(t, premium.CalculateTotal(-1).IsZero())
	})
}

func TestDiscountFor(t *testing.T) {
	premium, err := GetPlan(types.PlanPremium)
	require.NoError(t, err)

	tests := []struct {
		months int
		want   decimal.Decimal
	}{
		{1, decimal.Zero},
		{2, decimal.Zero},
		{3, decimal.NewFromFloat(0.10)},
		{5, decimal.NewFromFloat(0.10)},
		{6, decimal.NewFromFloat(0.15)},
		{11, decimal.NewFromFloat(0.15)},
		{12, decimal.NewFromFloat(0.25)},
		{24, decimal.NewFromFloat(0.25)},
	}
	for _, tt := range tests {
		got := premium.DiscountFor(tt.months)
		assert.True(t, tt.want.Equal(got), "months=%d want=%s got=%s", tt.months, tt.want, got)
	}
}

func TestLimit(t *testing.T) {
	free := DefaultPlan()

	t.Run("known resource", func(t *testing.T) {
		assert.Equal(t, 5, free.Limit(types.ResourcePhotos))
	})

	t.Run("resource absent from the plan caps at zero", func(t *testing.T) {
		assert.Equal(t, 0, free.Limit("podcasts"))
	})

	t.Run("vip is unlimited everywhere", func(t *testing.T) {
		vip, err := GetPlan(types.PlanVIP)
		require.NoError(t, err)
		for _, resource := range types.AllResourceTypes() {
			assert.Equal(t, types.UnlimitedQuota, vip.Limit(resource))
		}
	})
}

func TestHasFeature(t *testing.T) {
	free := DefaultPlan()
	vip, err := GetPlan(types.PlanVIP)
	require.NoError(t, err)

	assert.False(t, free.HasFeature(types.FeatureHighlighted))
	assert.True(t, vip.HasFeature(types.FeatureVerifiedBadge))
	assert.False(t, free.HasFeature("unknown_feature"))
}
