package proration

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ierr "github.com/spahub/billing/internal/errors"
	"github.com/spahub/billing/internal/types"
)

func TestCalculate(t *testing.T) {
	calc := NewCalculator()
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	t.Run("mid-term upgrade is a prorated charge", func(t *testing.T) {
		// 10 of 30 days left on a 1000 premium term, target vip costs 2500:
		// credit = 1000 x 1/3 = 333.33, cost = 2500 x 1/3 = 833.33, diff = 500
		end := now.AddDate(0, 0, 10)
		result, err := calc.Calculate(Params{
			SubscriptionID: "subs_test",
			CurrentPlanID:  types.PlanPremium,
			TargetPlanID:   types.PlanVIP,
			CurrentPrice:   decimal.NewFromInt(1000),
			PeriodMonths:   1,
			EndDate:        &end,
			AsOf:           now,
		})
		require.NoError(t, err)

		assert.Equal(t, ResultTypeCharge, result.Type)
		assert.Equal(t, 10, result.RemainingDays)
		assert.Equal(t, 30, result.TotalDays)
		assert.True(t, decimal.NewFromFloat(333.33).Equal(result.OldPlanCredit), "credit %s", result.OldPlanCredit)
		assert.True(t, decimal.NewFromFloat(833.33).Equal(result.NewPlanCost), "cost %s", result.NewPlanCost)
		assert.True(t, decimal.NewFromInt(500).Equal(result.Difference), "diff %s", result.Difference)
	})

	t.Run("downgrade is a credit", func(t *testing.T) {
		end := now.AddDate(0, 0, 15)
		result, err := calc.Calculate(Params{
			CurrentPlanID: types.PlanVIP,
			TargetPlanID:  types.PlanPremium,
			CurrentPrice:  decimal.NewFromInt(2500),
			PeriodMonths:  1,
			EndDate:       &end,
			AsOf:          now,
		})
		require.NoError(t, err)

		assert.Equal(t, ResultTypeCredit, result.Type)
		// credit = 2500 x 0.5 = 1250, cost = 1000 x 0.5 = 500, diff = -750
		assert.True(t, decimal.NewFromInt(-750).Equal(result.Difference), "diff %s", result.Difference)
	})

	t.Run("sign reverses between the two directions", func(t *testing.T) {
		end := now.AddDate(0, 0, 10)
		upPrice := decimal.NewFromInt(1000)
		downPrice := decimal.NewFromInt(2500)

		up, err := calc.Calculate(Params{
			CurrentPlanID: types.PlanPremium,
			TargetPlanID:  types.PlanVIP,
			CurrentPrice:  upPrice,
			PeriodMonths:  1,
			EndDate:       &end,
			AsOf:          now,
		})
		require.NoError(t, err)

		down, err := calc.Calculate(Params{
			CurrentPlanID: types.PlanVIP,
			TargetPlanID:  types.PlanPremium,
			CurrentPrice:  downPrice,
			PeriodMonths:  1,
			EndDate:       &end,
			AsOf:          now,
		})
		require.NoError(t, err)

		assert.Equal(t, ResultTypeCharge, up.Type)
		assert.Equal(t, ResultTypeCredit, down.Type)
		assert.True(t, up.Difference.Equal(down.Difference.Neg()),
			"up %s, down %s", up.Difference, down.Difference)
	})

	t.Run("expired term has no proration", func(t *testing.T) {
		end := now.AddDate(0, 0, -1)
		result, err := calc.Calculate(Params{
			CurrentPlanID: types.PlanPremium,
			TargetPlanID:  types.PlanVIP,
			CurrentPrice:  decimal.NewFromInt(1000),
			PeriodMonths:  1,
			EndDate:       &end,
			AsOf:          now,
		})
		require.NoError(t, err)

		assert.Equal(t, ResultTypeNoChange, result.Type)
		assert.True(t, result.Difference.IsZero())
		assert.Equal(t, 0, result.RemainingDays)
	})

	t.Run("missing end date has no proration", func(t *testing.T) {
		result, err := calc.Calculate(Params{
			CurrentPlanID: types.PlanPremium,
			TargetPlanID:  types.PlanVIP,
			CurrentPrice:  decimal.NewFromInt(1000),
			PeriodMonths:  1,
			AsOf:          now,
		})
		require.NoError(t, err)
		assert.Equal(t, ResultTypeNoChange, result.Type)
	})

	t.Run("zero period has no proration", func(t *testing.T) {
		end := now.AddDate(0, 0, 10)
		result, err := calc.Calculate(Params{
			CurrentPlanID: types.PlanPremium,
			TargetPlanID:  types.PlanVIP,
			CurrentPrice:  decimal.Zero,
			PeriodMonths:  0,
			EndDate:       &end,
			AsOf:          now,
		})
		require.NoError(t, err)
		assert.Equal(t, ResultTypeNoChange, result.Type)
	})

	t.Run("same plan is a validation error", func(t *testing.T) {
		_, err := calc.Calculate(Params{
			CurrentPlanID: types.PlanPremium,
			TargetPlanID:  types.PlanPremium,
			CurrentPrice:  decimal.NewFromInt(1000),
			PeriodMonths:  1,
			AsOf:          now,
		})
		assert.True(t, ierr.IsValidation(err))
	})

	t.Run("unknown target plan is not found", func(t *testing.T) {
		_, err := calc.Calculate(Params{
			CurrentPlanID: types.PlanPremium,
			TargetPlanID:  "enterprise",
			CurrentPrice:  decimal.NewFromInt(1000),
			PeriodMonths:  1,
			AsOf:          now,
		})
		assert.True(t, ierr.IsNotFound(err))
	})
}
