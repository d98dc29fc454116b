// Package proration computes the credit or charge owed when a subscription
// changes plan mid-term. The calculation is pure: it persists nothing and
// depends only on its inputs.
package proration

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/spahub/billing/internal/types"
)

// ResultType classifies the sign of a proration outcome
type ResultType string

const (
	ResultTypeCharge   ResultType = "charge"
	ResultTypeCredit   ResultType = "credit"
	ResultTypeNoChange ResultType = "no_change"
)

// Params is a snapshot of the subscription at the moment of the plan change
type Params struct {
	SubscriptionID string
	CurrentPlanID  types.PlanID
	TargetPlanID   types.PlanID

	// CurrentPrice is the total the subscriber paid for the running term
	CurrentPrice decimal.Decimal
	PeriodMonths int
	EndDate      *time.Time

	// AsOf pins "today" so two opposite calculations can share a snapshot
	AsOf time.Time
}

// Result carries the signed difference plus both intermediate values for
// auditability. Positive Difference means an additional charge is owed;
// negative means a credit.
type Result struct {
	Type              ResultType      `json:"type"`
	RemainingDays     int             `json:"remaining_days"`
	TotalDays         int             `json:"total_days"`
	RemainingFraction decimal.Decimal `json:"remaining_fraction"`
	OldPlanCredit     decimal.Decimal `json:"old_plan_credit"`
	NewPlanCost       decimal.Decimal `json:"new_plan_cost"`
	Difference        decimal.Decimal `json:"difference"`
}

// Calculator performs proration calculations. Kept behind an interface so the
// lifecycle service can be tested with fixed outcomes.
type Calculator interface {
	Calculate(params Params) (*Result, error)
}
