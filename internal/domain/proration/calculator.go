package proration

import (
	"github.com/shopspring/decimal"

	ierr "github.com/spahub/billing/internal/errors"
	"github.com/spahub/billing/internal/domain/plan"
)

// daysPerMonth is the flat month length used for proration; terms are sold in
// whole months so calendar drift is not worth the precision
const daysPerMonth = 30

type calculator struct{}

// NewCalculator returns the standard day-based proration calculator
func NewCalculator() Calculator {
	return &calculator{}
}

// Calculate prorates the current term against the target plan.
// remaining_fraction = remaining_days / total_days; the old plan's unused
// value is credited and the new plan's cost for the same window is charged.
func (c *calculator) Calculate(params Params) (*Result, error) {
	if params.TargetPlanID == params.CurrentPlanID {
		return nil, ierr.NewError("target plan equals current plan").
			WithHint("Choose a different plan").
			Mark(ierr.ErrValidation)
	}

	targetPlan, err := plan.GetPlan(params.TargetPlanID)
	if err != nil {
		return nil, err
	}

	totalDays := params.PeriodMonths * daysPerMonth

	remainingDays := 0
	if params.EndDate != nil && params.EndDate.After(params.AsOf) {
		remainingDays = int(params.EndDate.Sub(params.AsOf).Hours() / 24)
	}

	result := &Result{
		Type:              ResultTypeNoChange,
		RemainingDays:     remainingDays,
		TotalDays:         totalDays,
		RemainingFraction: decimal.Zero,
		OldPlanCredit:     decimal.Zero,
		NewPlanCost:       decimal.Zero,
		Difference:        decimal.Zero,
	}

	if remainingDays == 0 || totalDays == 0 {
		return result, nil
	}

	fraction := decimal.NewFromInt(int64(remainingDays)).
		Div(decimal.NewFromInt(int64(totalDays)))

	result.RemainingFraction = fraction
	result.OldPlanCredit = params.CurrentPrice.Mul(fraction).Round(2)
	result.NewPlanCost = targetPlan.CalculateTotal(params.PeriodMonths).Mul(fraction).Round(2)
	result.Difference = result.NewPlanCost.Sub(result.OldPlanCredit)

	switch {
	case result.Difference.IsPositive():
		result.Type = ResultTypeCharge
	case result.Difference.IsNegative():
		result.Type = ResultTypeCredit
	}

	return result, nil
}
