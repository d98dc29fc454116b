package service

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"github.com/spahub/billing/internal/cache"
	"github.com/spahub/billing/internal/domain/subscription"
	"github.com/spahub/billing/internal/testutil"
	"github.com/spahub/billing/internal/types"
)

type AnalyticsServiceSuite struct {
	testutil.BaseServiceTestSuite
	service AnalyticsService
	params  ServiceParams
}

func TestAnalyticsService(t *testing.T) {
	suite.Run(t, new(AnalyticsServiceSuite))
}

func (s *AnalyticsServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	s.params = ServiceParams{
		Logger:      s.GetLogger(),
		Config:      s.GetConfig(),
		DB:          s.GetDB(),
		SubRepo:     s.GetSubscriptionStore(),
		ProfileRepo: s.GetProfileStore(),
		Cache:       cache.NewNoopCache(),
	}
	s.service = NewAnalyticsService(s.params)
}

func (s *AnalyticsServiceSuite) seed(sub *subscription.Subscription) *subscription.Subscription {
	if sub.ID == "" {
		sub.ID = types.GenerateUUIDWithPrefix(types.UUID_PREFIX_SUBSCRIPTION)
	}
	if sub.ProfileID == "" {
		sub.ProfileID = types.GenerateUUIDWithPrefix(types.UUID_PREFIX_PROFILE)
	}
	if sub.CreatedAt.IsZero() {
		sub.BaseModel = types.GetDefaultBaseModel(s.GetContext())
	}
	s.NoError(s.GetSubscriptionStore().Create(s.GetContext(), sub))
	return sub
}

func (s *AnalyticsServiceSuite) seedActive(planID types.PlanID, price int64, months int, start time.Time) *subscription.Subscription {
	end := start.AddDate(0, months, 0)
	for !end.After(time.Now().UTC()) {
		end = end.AddDate(0, months, 0)
	}
	return s.seed(&subscription.Subscription{
		PlanID:       planID,
		Status:       types.SubscriptionStatusActive,
		Price:        decimal.NewFromInt(price),
		PeriodMonths: months,
		StartDate:    start,
		EndDate:      &end,
	})
}

func (s *AnalyticsServiceSuite) TestRevenueStats() {
	now := time.Now().UTC()
	s.seedActive(types.PlanPremium, 1000, 1, now.AddDate(0, 0, -10))
	s.seedActive(types.PlanPremium, 2700, 3, now.AddDate(0, 0, -10))
	s.seedActive(types.PlanVIP, 2500, 1, now.AddDate(0, 0, -10))

	snap, err := s.service.GetStatistics(s.GetContext())
	s.NoError(err)

	// MRR normalizes multi-month terms: 1000 + 2700/3 + 2500
	s.True(decimal.NewFromInt(4400).Equal(snap.Revenue.MRR), "mrr %s", snap.Revenue.MRR)
	s.True(decimal.NewFromInt(52800).Equal(snap.Revenue.ARR))
	s.True(decimal.NewFromInt(6200).Equal(snap.Revenue.TotalRevenue))
	s.True(decimal.NewFromInt(3700).Equal(snap.Revenue.ByPlan[types.PlanPremium]))
	s.True(decimal.NewFromInt(2500).Equal(snap.Revenue.ByPlan[types.PlanVIP]))
	s.True(decimal.NewFromFloat(1466.67).Equal(snap.Revenue.ARPU), "arpu %s", snap.Revenue.ARPU)
}

func (s *AnalyticsServiceSuite) TestSubscriberStats() {
	now := time.Now().UTC()
	s.seedActive(types.PlanPremium, 1000, 1, now.AddDate(0, 0, -5))
	s.seedActive(types.PlanVIP, 2500, 1, now.AddDate(0, 0, -5))

	trialEnd := now.AddDate(0, 0, 7)
	s.seed(&subscription.Subscription{
		PlanID:      types.PlanPremium,
		Status:      types.SubscriptionStatusTrial,
		Price:       decimal.Zero,
		StartDate:   now.AddDate(0, 0, -7),
		TrialEndsAt: &trialEnd,
	})

	cancelled := now.AddDate(0, 0, -3)
	s.seed(&subscription.Subscription{
		PlanID:       types.PlanPremium,
		Status:       types.SubscriptionStatusCancelled,
		Price:        decimal.NewFromInt(1000),
		PeriodMonths: 1,
		StartDate:    now.AddDate(0, -2, 0),
		CancelledAt:  &cancelled,
	})

	snap, err := s.service.GetStatistics(s.GetContext())
	s.NoError(err)

	s.Equal(int64(4), snap.Subscribers.Total)
	s.Equal(int64(2), snap.Subscribers.Active)
	s.Equal(int64(1), snap.Subscribers.Trialing)
	s.Equal(int64(1), snap.Subscribers.Cancelled)
	s.Equal(int64(1), snap.Subscribers.ByPlan[types.PlanPremium])
	s.Equal(int64(1), snap.Subscribers.ByPlan[types.PlanVIP])
}

func (s *AnalyticsServiceSuite) TestConversionStats() {
	now := time.Now().UTC()

	// converted: trialed, then paid on the same record
	trialEnded := now.AddDate(0, 0, -20)
	end := now.AddDate(0, 0, 10)
	s.seed(&subscription.Subscription{
		PlanID:       types.PlanPremium,
		Status:       types.SubscriptionStatusActive,
		Price:        decimal.NewFromInt(1000),
		PeriodMonths: 1,
		StartDate:    now.AddDate(0, -1, 0),
		EndDate:      &end,
		TrialEndsAt:  &trialEnded,
	})

	// still trialing
	trialActive := now.AddDate(0, 0, 7)
	s.seed(&subscription.Subscription{
		PlanID:      types.PlanPremium,
		Status:      types.SubscriptionStatusTrial,
		Price:       decimal.Zero,
		StartDate:   now.AddDate(0, 0, -7),
		TrialEndsAt: &trialActive,
	})

	// trial that lapsed without paying
	trialLapsed := now.AddDate(0, 0, -2)
	s.seed(&subscription.Subscription{
		PlanID:      types.PlanPremium,
		Status:      types.SubscriptionStatusExpired,
		Price:       decimal.Zero,
		StartDate:   now.AddDate(0, 0, -16),
		TrialEndsAt: &trialLapsed,
	})

	// never trialed at all
	s.seedActive(types.PlanVIP, 2500, 1, now.AddDate(0, 0, -5))

	snap, err := s.service.GetStatistics(s.GetContext())
	s.NoError(err)

	s.Equal(int64(3), snap.Conversion.TrialsStarted)
	s.Equal(int64(1), snap.Conversion.TrialsActive)
	s.Equal(int64(1), snap.Conversion.TrialsConverted)
	s.True(decimal.NewFromFloat(33.33).Equal(snap.Conversion.ConversionRate),
		"rate %s", snap.Conversion.ConversionRate)
}

func (s *AnalyticsServiceSuite) TestChurnStats() {
	now := time.Now().UTC()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)

	// four paid subscriptions live before this month started
	for i := 0; i < 4; i++ {
		s.seedActive(types.PlanPremium, 1000, 1, monthStart.AddDate(0, -2, 0))
	}
	// one of them cancelled this month
	cancelledAt := monthStart.Add(time.Hour)
	s.seed(&subscription.Subscription{
		PlanID:             types.PlanPremium,
		Status:             types.SubscriptionStatusCancelled,
		Price:              decimal.NewFromInt(1000),
		PeriodMonths:       1,
		StartDate:          monthStart.AddDate(0, -2, 0),
		CancelledAt:        &cancelledAt,
		CancellationReason: "budget cut",
	})

	snap, err := s.service.GetStatistics(s.GetContext())
	s.NoError(err)

	s.Equal(int64(1), snap.Churn.Cancellations)
	s.Equal(int64(5), snap.Churn.LiveAtStart)
	s.True(decimal.NewFromInt(20).Equal(snap.Churn.ChurnRate), "churn %s", snap.Churn.ChurnRate)
	s.True(snap.Churn.AvgLifetime.IsPositive())
	s.True(snap.Churn.LTV.IsPositive())
}

func (s *AnalyticsServiceSuite) TestGrowthStats() {
	now := time.Now().UTC()
	thisMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)

	s.seedActive(types.PlanPremium, 1000, 1, thisMonth.Add(time.Hour))
	s.seedActive(types.PlanPremium, 1000, 1, thisMonth.Add(2*time.Hour))
	s.seedActive(types.PlanVIP, 2500, 1, thisMonth.Add(3*time.Hour))
	s.seedActive(types.PlanPremium, 1000, 1, thisMonth.AddDate(0, -1, 0).Add(time.Hour))
	s.seedActive(types.PlanPremium, 1000, 1, thisMonth.AddDate(0, -1, 0).Add(2*time.Hour))

	snap, err := s.service.GetStatistics(s.GetContext())
	s.NoError(err)

	s.Equal(int64(3), snap.Growth.CurrentMonth)
	s.Equal(int64(2), snap.Growth.PreviousMonth)
	s.True(decimal.NewFromInt(50).Equal(snap.Growth.GrowthRate), "growth %s", snap.Growth.GrowthRate)
}

func (s *AnalyticsServiceSuite) TestCohorts() {
	now := time.Now().UTC()
	thisMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	lastMonth := thisMonth.AddDate(0, -1, 0)

	// last month's cohort: two signups, one still live
	s.seedActive(types.PlanPremium, 1000, 1, lastMonth.Add(time.Hour))
	expired := lastMonth.AddDate(0, 0, 20)
	s.seed(&subscription.Subscription{
		PlanID:       types.PlanPremium,
		Status:       types.SubscriptionStatusExpired,
		Price:        decimal.NewFromInt(1000),
		PeriodMonths: 1,
		StartDate:    lastMonth.Add(2 * time.Hour),
		EndDate:      &expired,
	})

	// this month's cohort: one signup, live
	s.seedActive(types.PlanVIP, 2500, 1, thisMonth.Add(time.Hour))

	snap, err := s.service.GetStatistics(s.GetContext())
	s.NoError(err)
	s.Len(snap.Cohorts, 2)

	first := snap.Cohorts[0]
	s.Equal(lastMonth.Format("2006-01"), first.Month)
	s.Equal(int64(2), first.Signups)
	s.Equal(int64(1), first.StillLive)
	s.True(decimal.NewFromInt(50).Equal(first.Retention), "retention %s", first.Retention)
	s.True(decimal.NewFromInt(2000).Equal(first.Revenue))

	second := snap.Cohorts[1]
	s.Equal(thisMonth.Format("2006-01"), second.Month)
	s.Equal(int64(1), second.Signups)
	s.Equal(int64(1), second.StillLive)
}

func (s *AnalyticsServiceSuite) TestForecast() {
	now := time.Now().UTC()
	s.seedActive(types.PlanPremium, 1000, 1, now.AddDate(0, -3, 0))

	snap, err := s.service.GetStatistics(s.GetContext())
	s.NoError(err)

	horizon := s.GetConfig().Subscription.ForecastMonths
	s.Len(snap.Forecast, horizon)

	// flat history projects flat MRR with linearly decaying confidence
	prev := decimal.NewFromInt(1)
	for i, point := range snap.Forecast {
		s.Equal(now.AddDate(0, i+1, 0).Format("2006-01"), point.Month)
		s.True(decimal.NewFromInt(1000).Equal(point.MRR), "month %d mrr %s", i+1, point.MRR)
		s.True(point.Confidence.LessThan(prev), "confidence must decay")
		s.True(point.Confidence.IsPositive())
		prev = point.Confidence
	}
}

func (s *AnalyticsServiceSuite) TestExportRevenueCSV() {
	now := time.Now().UTC()
	sub := s.seedActive(types.PlanPremium, 2700, 3, now.AddDate(0, 0, -10))

	var buf bytes.Buffer
	s.NoError(s.service.ExportRevenueCSV(s.GetContext(), &buf))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	s.Len(lines, 2, "header plus one row")
	s.Contains(lines[0], "subscription_id")
	s.Contains(lines[1], sub.ID)
	s.Contains(lines[1], "premium")
	s.Contains(lines[1], "2700")
}
