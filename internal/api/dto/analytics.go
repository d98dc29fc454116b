package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/spahub/billing/internal/types"
)

// RevenueStats aggregates recurring revenue across live paid subscriptions
type RevenueStats struct {
	MRR          decimal.Decimal                  `json:"mrr"`
	ARR          decimal.Decimal                  `json:"arr"`
	TotalRevenue decimal.Decimal                  `json:"total_revenue"`
	ARPU         decimal.Decimal                  `json:"arpu"`
	ByPlan       map[types.PlanID]decimal.Decimal `json:"by_plan"`
}

type SubscriberStats struct {
	Total     int64                  `json:"total"`
	Active    int64                  `json:"active"`
	Trialing  int64                  `json:"trialing"`
	Cancelled int64                  `json:"cancelled"`
	Expired   int64                  `json:"expired"`
	ByPlan    map[types.PlanID]int64 `json:"by_plan"`
}

// ConversionStats measures trial to paid conversion
type ConversionStats struct {
	TrialsStarted   int64           `json:"trials_started"`
	TrialsActive    int64           `json:"trials_active"`
	TrialsConverted int64           `json:"trials_converted"`
	ConversionRate  decimal.Decimal `json:"conversion_rate"`
}

// ChurnStats measures cancellations against the live base over a window
type ChurnStats struct {
	Cancellations int64           `json:"cancellations"`
	LiveAtStart   int64           `json:"live_at_start"`
	ChurnRate     decimal.Decimal `json:"churn_rate"`
	AvgLifetime   decimal.Decimal `json:"avg_lifetime_months"`
	LTV           decimal.Decimal `json:"ltv"`
}

// GrowthStats compares net new subscriptions month over month
type GrowthStats struct {
	CurrentMonth  int64           `json:"current_month"`
	PreviousMonth int64           `json:"previous_month"`
	GrowthRate    decimal.Decimal `json:"growth_rate"`
}

// CohortRow is one month of signups and what they are worth today
type CohortRow struct {
	Month     string          `json:"month" csv:"month"`
	Signups   int64           `json:"signups" csv:"signups"`
	StillLive int64           `json:"still_live" csv:"still_live"`
	Retention decimal.Decimal `json:"retention" csv:"retention"`
	Revenue   decimal.Decimal `json:"revenue" csv:"revenue"`
}

// ForecastPoint projects MRR for one future month from trailing growth.
// Confidence decays linearly with distance from today.
type ForecastPoint struct {
	Month      string          `json:"month" csv:"month"`
	MRR        decimal.Decimal `json:"mrr" csv:"mrr"`
	Confidence decimal.Decimal `json:"confidence" csv:"confidence"`
}

// AnalyticsSnapshot is the full dashboard payload
type AnalyticsSnapshot struct {
	GeneratedAt time.Time       `json:"generated_at"`
	Revenue     RevenueStats    `json:"revenue"`
	Subscribers SubscriberStats `json:"subscribers"`
	Conversion  ConversionStats `json:"conversion"`
	Churn       ChurnStats      `json:"churn"`
	Growth      GrowthStats     `json:"growth"`
	Cohorts     []CohortRow     `json:"cohorts"`
	Forecast    []ForecastPoint `json:"forecast"`
}

// RevenueExportRow is the flattened CSV shape for finance exports
type RevenueExportRow struct {
	SubscriptionID string          `csv:"subscription_id"`
	ProfileID      string          `csv:"profile_id"`
	PlanID         string          `csv:"plan_id"`
	Status         string          `csv:"status"`
	Price          decimal.Decimal `csv:"price"`
	PeriodMonths   int             `csv:"period_months"`
	StartDate      string          `csv:"start_date"`
	EndDate        string          `csv:"end_date"`
}
