package service

import (
	"context"
	"io"
	"sort"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/shopspring/decimal"

	"github.com/spahub/billing/internal/api/dto"
	"github.com/spahub/billing/internal/cache"
	"github.com/spahub/billing/internal/domain/subscription"
	ierr "github.com/spahub/billing/internal/errors"
	"github.com/spahub/billing/internal/types"
)

const (
	analyticsCacheKey = "analytics:snapshot"

	// cohortMonths bounds the retention table to the last year of signups
	cohortMonths = 12

	// avgDaysPerMonth converts observed lifespans to months for LTV
	avgDaysPerMonth = 30.0
)

// AnalyticsService aggregates the subscription store into revenue and
// retention metrics. Strictly read-only; heavy aggregates are cached briefly.
type AnalyticsService interface {
	GetStatistics(ctx context.Context) (*dto.AnalyticsSnapshot, error)
	// ExportRevenueCSV streams the full per-subscription revenue table
	ExportRevenueCSV(ctx context.Context, w io.Writer) error
}

type analyticsService struct {
	ServiceParams
}

func NewAnalyticsService(params ServiceParams) AnalyticsService {
	return &analyticsService{ServiceParams: params}
}

func (s *analyticsService) GetStatistics(ctx context.Context) (*dto.AnalyticsSnapshot, error) {
	if cached, ok := s.Cache.Get(ctx, analyticsCacheKey); ok {
		if snap, ok := cache.UnmarshalCacheValue[dto.AnalyticsSnapshot](cached); ok {
			return snap, nil
		}
	}

	subs, err := s.loadAll(ctx)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	mrr, err := s.SubRepo.ActiveMRR(ctx)
	if err != nil {
		return nil, err
	}

	snap := &dto.AnalyticsSnapshot{
		GeneratedAt: now,
		Revenue:     s.revenueStats(subs, mrr, now),
		Subscribers: subscriberStats(subs, now),
		Conversion:  conversionStats(subs, now),
		Churn:       churnStats(subs, now),
		Growth:      growthStats(subs, now),
		Cohorts:     cohortRows(subs, now),
		Forecast:    s.forecast(subs, mrr, now),
	}

	s.Cache.Set(ctx, analyticsCacheKey, snap, cache.ExpiryAnalytics)
	return snap, nil
}

// loadAll pages the whole record set into memory. The store holds one row per
// subscription ever created; the aggregation works on the full history.
func (s *analyticsService) loadAll(ctx context.Context) ([]*subscription.Subscription, error) {
	batchSize := s.Config.Subscription.SweepBatchSize
	var all []*subscription.Subscription
	for offset := 0; ; offset += batchSize {
		page, err := s.SubRepo.List(ctx, subscription.Filter{Limit: batchSize, Offset: offset})
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if len(page) < batchSize {
			return all, nil
		}
	}
}

func (s *analyticsService) revenueStats(subs []*subscription.Subscription, mrr decimal.Decimal, now time.Time) dto.RevenueStats {
	stats := dto.RevenueStats{
		MRR:    mrr,
		ARR:    mrr.Mul(decimal.NewFromInt(12)),
		ByPlan: map[types.PlanID]decimal.Decimal{},
	}

	var activeCount int64
	for _, sub := range subs {
		if sub.Price.IsZero() {
			continue
		}
		stats.TotalRevenue = stats.TotalRevenue.Add(sub.Price)
		stats.ByPlan[sub.PlanID] = stats.ByPlan[sub.PlanID].Add(sub.Price)
		if sub.Status == types.SubscriptionStatusActive {
			activeCount++
		}
	}
	if activeCount > 0 {
		stats.ARPU = mrr.Div(decimal.NewFromInt(activeCount)).Round(2)
	}
	return stats
}

func subscriberStats(subs []*subscription.Subscription, now time.Time) dto.SubscriberStats {
	stats := dto.SubscriberStats{ByPlan: map[types.PlanID]int64{}}
	for _, sub := range subs {
		stats.Total++
		switch sub.Status {
		case types.SubscriptionStatusActive:
			stats.Active++
			stats.ByPlan[sub.PlanID]++
		case types.SubscriptionStatusTrial:
			stats.Trialing++
		case types.SubscriptionStatusCancelled:
			stats.Cancelled++
		case types.SubscriptionStatusExpired:
			stats.Expired++
		}
	}
	return stats
}

// conversionStats counts every subscription that ever held a trial window and
// reports how many of them went on to pay
func conversionStats(subs []*subscription.Subscription, now time.Time) dto.ConversionStats {
	var stats dto.ConversionStats
	for _, sub := range subs {
		if sub.TrialEndsAt == nil {
			continue
		}
		stats.TrialsStarted++
		if sub.Status == types.SubscriptionStatusTrial && sub.IsEntitledAt(now) {
			stats.TrialsActive++
		}
		if sub.PeriodMonths > 0 && sub.Price.IsPositive() {
			stats.TrialsConverted++
		}
	}
	if stats.TrialsStarted > 0 {
		stats.ConversionRate = decimal.NewFromInt(stats.TrialsConverted).
			Div(decimal.NewFromInt(stats.TrialsStarted)).
			Mul(decimal.NewFromInt(100)).
			Round(2)
	}
	return stats
}

func churnStats(subs []*subscription.Subscription, now time.Time) dto.ChurnStats {
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	var stats dto.ChurnStats

	var (
		lifetimeMonths decimal.Decimal
		monthlyPrices  decimal.Decimal
		measured       int64
	)

	for _, sub := range subs {
		if sub.Price.IsZero() {
			continue
		}

		if sub.CancelledAt != nil && !sub.CancelledAt.Before(monthStart) {
			stats.Cancellations++
		}
		if wasLiveAt(sub, monthStart) {
			stats.LiveAtStart++
		}

		// observed lifespan: start to cancellation, expiry, or today
		endpoint := now
		switch {
		case sub.CancelledAt != nil:
			endpoint = *sub.CancelledAt
		case sub.EndDate != nil && sub.EndDate.Before(now):
			endpoint = *sub.EndDate
		}
		if endpoint.After(sub.StartDate) && sub.PeriodMonths > 0 {
			months := decimal.NewFromFloat(endpoint.Sub(sub.StartDate).Hours() / 24 / avgDaysPerMonth)
			lifetimeMonths = lifetimeMonths.Add(months)
			monthlyPrices = monthlyPrices.Add(sub.Price.Div(decimal.NewFromInt(int64(sub.PeriodMonths))))
			measured++
		}
	}

	if stats.LiveAtStart > 0 {
		stats.ChurnRate = decimal.NewFromInt(stats.Cancellations).
			Div(decimal.NewFromInt(stats.LiveAtStart)).
			Mul(decimal.NewFromInt(100)).
			Round(2)
	}
	if measured > 0 {
		n := decimal.NewFromInt(measured)
		stats.AvgLifetime = lifetimeMonths.Div(n).Round(2)
		stats.LTV = stats.AvgLifetime.Mul(monthlyPrices.Div(n)).Round(2)
	}
	return stats
}

// wasLiveAt reports whether the subscription was paid-live at a past instant
func wasLiveAt(sub *subscription.Subscription, at time.Time) bool {
	if sub.StartDate.After(at) {
		return false
	}
	if sub.CancelledAt != nil && sub.CancelledAt.Before(at) {
		return false
	}
	expiry := sub.ExpiryDate()
	return expiry == nil || expiry.After(at)
}

func growthStats(subs []*subscription.Subscription, now time.Time) dto.GrowthStats {
	thisMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	lastMonth := thisMonth.AddDate(0, -1, 0)

	var stats dto.GrowthStats
	for _, sub := range subs {
		if sub.Price.IsZero() {
			continue
		}
		switch {
		case !sub.StartDate.Before(thisMonth):
			stats.CurrentMonth++
		case !sub.StartDate.Before(lastMonth):
			stats.PreviousMonth++
		}
	}
	if stats.PreviousMonth > 0 {
		stats.GrowthRate = decimal.NewFromInt(stats.CurrentMonth - stats.PreviousMonth).
			Div(decimal.NewFromInt(stats.PreviousMonth)).
			Mul(decimal.NewFromInt(100)).
			Round(2)
	}
	return stats
}

func cohortRows(subs []*subscription.Subscription, now time.Time) []dto.CohortRow {
	type cohort struct {
		signups int64
		live    int64
		revenue decimal.Decimal
	}
	cohorts := map[string]*cohort{}

	horizon := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -(cohortMonths - 1), 0)
	for _, sub := range subs {
		if sub.StartDate.Before(horizon) {
			continue
		}
		month := sub.StartDate.Format("2006-01")
		c, ok := cohorts[month]
		if !ok {
			c = &cohort{}
			cohorts[month] = c
		}
		c.signups++
		c.revenue = c.revenue.Add(sub.Price)
		if sub.IsEntitledAt(now) {
			c.live++
		}
	}

	months := make([]string, 0, len(cohorts))
	for m := range cohorts {
		months = append(months, m)
	}
	sort.Strings(months)

	rows := make([]dto.CohortRow, 0, len(months))
	for _, m := range months {
		c := cohorts[m]
		row := dto.CohortRow{
			Month:     m,
			Signups:   c.signups,
			StillLive: c.live,
			Revenue:   c.revenue,
		}
		if c.signups > 0 {
			row.Retention = decimal.NewFromInt(c.live).
				Div(decimal.NewFromInt(c.signups)).
				Mul(decimal.NewFromInt(100)).
				Round(2)
		}
		rows = append(rows, row)
	}
	return rows
}

// forecast compounds the average month-over-month MRR growth over the
// configured trailing window, with confidence decaying linearly per month out
func (s *analyticsService) forecast(subs []*subscription.Subscription, currentMRR decimal.Decimal, now time.Time) []dto.ForecastPoint {
	trail := s.Config.Subscription.ForecastTrailWindow
	horizon := s.Config.Subscription.ForecastMonths
	if horizon <= 0 {
		return nil
	}

	// reconstruct historical MRR at each trailing month boundary
	series := make([]decimal.Decimal, 0, trail+1)
	for i := trail; i >= 1; i-- {
		at := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -i+1, 0)
		series = append(series, mrrAt(subs, at))
	}
	series = append(series, currentMRR)

	growth := decimal.Zero
	samples := 0
	for i := 1; i < len(series); i++ {
		if series[i-1].IsPositive() {
			growth = growth.Add(series[i].Sub(series[i-1]).Div(series[i-1]))
			samples++
		}
	}
	if samples > 0 {
		growth = growth.Div(decimal.NewFromInt(int64(samples)))
	}

	points := make([]dto.ForecastPoint, 0, horizon)
	projected := currentMRR
	one := decimal.NewFromInt(1)
	step := decimal.NewFromInt(1).Div(decimal.NewFromInt(int64(horizon + 1)))
	for i := 1; i <= horizon; i++ {
		projected = projected.Mul(one.Add(growth))
		points = append(points, dto.ForecastPoint{
			Month:      now.AddDate(0, i, 0).Format("2006-01"),
			MRR:        projected.Round(2),
			Confidence: one.Sub(step.Mul(decimal.NewFromInt(int64(i)))).Round(2),
		})
	}
	return points
}

// mrrAt recomputes MRR as it stood at a past instant
func mrrAt(subs []*subscription.Subscription, at time.Time) decimal.Decimal {
	total := decimal.Zero
	for _, sub := range subs {
		if sub.Price.IsZero() || sub.PeriodMonths <= 0 {
			continue
		}
		if wasLiveAt(sub, at) {
			total = total.Add(sub.Price.Div(decimal.NewFromInt(int64(sub.PeriodMonths))))
		}
	}
	return total
}

func (s *analyticsService) ExportRevenueCSV(ctx context.Context, w io.Writer) error {
	subs, err := s.loadAll(ctx)
	if err != nil {
		return err
	}

	rows := make([]*dto.RevenueExportRow, 0, len(subs))
	for _, sub := range subs {
		row := &dto.RevenueExportRow{
			SubscriptionID: sub.ID,
			ProfileID:      sub.ProfileID,
			PlanID:         sub.PlanID.String(),
			Status:         sub.Status.String(),
			Price:          sub.Price,
			PeriodMonths:   sub.PeriodMonths,
			StartDate:      sub.StartDate.Format(time.RFC3339),
		}
		if sub.EndDate != nil {
			row.EndDate = sub.EndDate.Format(time.RFC3339)
		}
		rows = append(rows, row)
	}

	if err := gocsv.Marshal(rows, w); err != nil {
		return ierr.WithError(err).
			WithHint("Failed to write revenue export").
			Mark(ierr.ErrSystem)
	}
	return nil
}
