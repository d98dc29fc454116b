package service

import (
	"testing"
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"github.com/spahub/billing/internal/api/dto"
	"github.com/spahub/billing/internal/cache"
	"github.com/spahub/billing/internal/domain/notification"
	"github.com/spahub/billing/internal/domain/plan"
	"github.com/spahub/billing/internal/domain/profile"
	"github.com/spahub/billing/internal/domain/proration"
	"github.com/spahub/billing/internal/domain/subscription"
	ierr "github.com/spahub/billing/internal/errors"
	"github.com/spahub/billing/internal/testutil"
	"github.com/spahub/billing/internal/types"
)

const testProfileID = "prof_01hx3k9test0000000000000001"

type SubscriptionServiceSuite struct {
	testutil.BaseServiceTestSuite
	service SubscriptionService
	params  ServiceParams
}

func TestSubscriptionService(t *testing.T) {
	suite.Run(t, new(SubscriptionServiceSuite))
}

func (s *SubscriptionServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	s.params = ServiceParams{
		Logger:         s.GetLogger(),
		Config:         s.GetConfig(),
		DB:             s.GetDB(),
		SubRepo:        s.GetSubscriptionStore(),
		ProfileRepo:    s.GetProfileStore(),
		ProrationCalc:  proration.NewCalculator(),
		PaymentGateway: s.GetPaymentGateway(),
		Notifier:       s.GetNotifier(),
		Cache:          cache.NewNoopCache(),
	}
	s.service = NewSubscriptionService(s.params)

	s.NoError(s.GetProfileStore().AddProfile(&profile.Profile{
		ID:    testProfileID,
		Email: "provider@example.com",
	}))
}

// seedSubscription writes a record straight into the store, bypassing the
// service, so tests can start from arbitrary states
func (s *SubscriptionServiceSuite) seedSubscription(sub *subscription.Subscription) *subscription.Subscription {
	if sub.ID == "" {
		sub.ID = types.GenerateUUIDWithPrefix(types.UUID_PREFIX_SUBSCRIPTION)
	}
	if sub.ProfileID == "" {
		sub.ProfileID = testProfileID
	}
	if sub.CreatedAt.IsZero() {
		sub.BaseModel = types.GetDefaultBaseModel(s.GetContext())
	}
	s.NoError(s.GetSubscriptionStore().Create(s.GetContext(), sub))
	return sub
}

// createActive provisions a paid subscription and runs the explicit
// activation step, mirroring the checkout flow
func (s *SubscriptionServiceSuite) createActive(planID types.PlanID, months int, txnID string) *dto.SubscriptionResponse {
	created, err := s.service.Create(s.GetContext(), &dto.CreateSubscriptionRequest{
		ProfileID:    testProfileID,
		PlanID:       planID,
		PeriodMonths: months,
		Payment:      dto.PaymentData{Method: "card"},
	})
	s.NoError(err)

	resp, err := s.service.Activate(s.GetContext(), &dto.ActivateSubscriptionRequest{
		SubscriptionID: created.ID,
		Payment:        dto.PaymentData{Method: "card", TransactionID: txnID},
	})
	s.NoError(err)
	return resp
}

func (s *SubscriptionServiceSuite) liveSubscriptions(profileID string) []*subscription.Subscription {
	live, err := s.GetSubscriptionStore().ListLiveByProfile(s.GetContext(), profileID)
	s.NoError(err)
	return live
}

func (s *SubscriptionServiceSuite) TestCreate() {
	s.Run("paid plan without payment stays pending", func() {
		resp, err := s.service.Create(s.GetContext(), &dto.CreateSubscriptionRequest{
			ProfileID:    testProfileID,
			PlanID:       types.PlanPremium,
			PeriodMonths: 3,
		})
		s.NoError(err)
		s.Equal(types.SubscriptionStatusPending, resp.Status)
		s.True(decimal.NewFromInt(2700).Equal(resp.Price), "price %s", resp.Price)
		s.Nil(resp.EndDate)
	})

	s.Run("paid plan stays pending even with a settled payment attached", func() {
		resp, err := s.service.Create(s.GetContext(), &dto.CreateSubscriptionRequest{
			ProfileID:    testProfileID,
			PlanID:       types.PlanPremium,
			PeriodMonths: 1,
			Payment:      dto.PaymentData{Method: "card", TransactionID: "txn_abc"},
		})
		s.NoError(err)
		s.Equal(types.SubscriptionStatusPending, resp.Status)
		s.Nil(resp.EndDate)
		s.Equal("txn_abc", s.mustGet(resp.ID).TransactionID)

		prof, err := s.GetProfileStore().Get(s.GetContext(), testProfileID)
		s.NoError(err)
		s.False(prof.IsPremium, "pending records grant nothing")

		// activation is the explicit second step
		activated, err := s.service.Activate(s.GetContext(), &dto.ActivateSubscriptionRequest{
			SubscriptionID: resp.ID,
		})
		s.NoError(err)
		s.Equal(types.SubscriptionStatusActive, activated.Status)
		s.NotNil(activated.EndDate)

		prof, err = s.GetProfileStore().Get(s.GetContext(), testProfileID)
		s.NoError(err)
		s.True(prof.IsPremium)
		s.Equal(types.PlanPremium, prof.SubscriptionPlan)
	})

	s.Run("free plan activates without payment", func() {
		resp, err := s.service.Create(s.GetContext(), &dto.CreateSubscriptionRequest{
			ProfileID:    testProfileID,
			PlanID:       types.PlanFree,
			PeriodMonths: 1,
		})
		s.NoError(err)
		s.Equal(types.SubscriptionStatusActive, resp.Status)
		s.True(resp.Price.IsZero())
	})

	s.Run("a new subscription supersedes the previous live one", func() {
		first, err := s.service.Create(s.GetContext(), &dto.CreateSubscriptionRequest{
			ProfileID:    testProfileID,
			PlanID:       types.PlanPremium,
			PeriodMonths: 1,
			Payment:      dto.PaymentData{Method: "card", TransactionID: "txn_1"},
		})
		s.NoError(err)

		second, err := s.service.Create(s.GetContext(), &dto.CreateSubscriptionRequest{
			ProfileID:    testProfileID,
			PlanID:       types.PlanVIP,
			PeriodMonths: 1,
			Payment:      dto.PaymentData{Method: "card", TransactionID: "txn_2"},
		})
		s.NoError(err)

		live := s.liveSubscriptions(testProfileID)
		s.Len(live, 1)
		s.Equal(second.ID, live[0].ID)

		old, err := s.GetSubscriptionStore().Get(s.GetContext(), first.ID)
		s.NoError(err)
		s.Equal(types.SubscriptionStatusCancelled, old.Status)
		s.NotNil(old.CancelledAt)
	})

	s.Run("unknown profile is rejected", func() {
		_, err := s.service.Create(s.GetContext(), &dto.CreateSubscriptionRequest{
			ProfileID:    "prof_missing",
			PlanID:       types.PlanPremium,
			PeriodMonths: 1,
		})
		s.True(ierr.IsNotFound(err))
	})

	s.Run("unknown plan is rejected", func() {
		_, err := s.service.Create(s.GetContext(), &dto.CreateSubscriptionRequest{
			ProfileID:    testProfileID,
			PlanID:       "enterprise",
			PeriodMonths: 1,
		})
		s.True(ierr.IsNotFound(err))
	})
}

func (s *SubscriptionServiceSuite) TestStartTrial() {
	var first *dto.SubscriptionResponse

	s.Run("first trial succeeds", func() {
		resp, err := s.service.StartTrial(s.GetContext(), &dto.StartTrialRequest{
			ProfileID: testProfileID,
			Days:      14,
		})
		s.NoError(err)
		s.Equal(types.SubscriptionStatusTrial, resp.Status)
		s.Equal(types.PlanPremium, resp.PlanID)
		s.True(resp.Price.IsZero())
		s.Equal(0, resp.PeriodMonths)
		s.NotNil(resp.TrialEndsAt)

		prof, err := s.GetProfileStore().Get(s.GetContext(), testProfileID)
		s.NoError(err)
		s.True(prof.IsPremium)
		first = resp
	})

	s.Run("second trial always fails, cancellations included", func() {
		_, err := s.service.Cancel(s.GetContext(), &dto.CancelSubscriptionRequest{
			SubscriptionID: first.ID,
			Immediate:      true,
		})
		s.NoError(err)

		_, err = s.service.StartTrial(s.GetContext(), &dto.StartTrialRequest{
			ProfileID: testProfileID,
		})
		s.True(ierr.IsValidation(err))
	})

	s.Run("free tier has no trial", func() {
		other := &profile.Profile{ID: "prof_01hx3k9test0000000000000002", Email: "other@example.com"}
		s.NoError(s.GetProfileStore().AddProfile(other))

		_, err := s.service.StartTrial(s.GetContext(), &dto.StartTrialRequest{
			ProfileID: other.ID,
			PlanID:    types.PlanFree,
		})
		s.True(ierr.IsValidation(err))
	})
}

func (s *SubscriptionServiceSuite) TestActivate() {
	s.Run("pending subscription activates and sets the term end", func() {
		created, err := s.service.Create(s.GetContext(), &dto.CreateSubscriptionRequest{
			ProfileID:    testProfileID,
			PlanID:       types.PlanPremium,
			PeriodMonths: 3,
		})
		s.NoError(err)
		s.Equal(types.SubscriptionStatusPending, created.Status)

		resp, err := s.service.Activate(s.GetContext(), &dto.ActivateSubscriptionRequest{
			SubscriptionID: created.ID,
			Payment:        dto.PaymentData{Method: "card", TransactionID: "txn_pay"},
		})
		s.NoError(err)
		s.Equal(types.SubscriptionStatusActive, resp.Status)
		s.NotNil(resp.EndDate)
		s.Equal("txn_pay", s.mustGet(created.ID).TransactionID)
		s.Equal(1, s.GetNotifier().CountByKind(notification.KindSubscriptionActive))
	})

	s.Run("activating an active subscription is a no-op", func() {
		active := s.createActive(types.PlanPremium, 1, "txn_x")

		before := s.GetNotifier().CountByKind(notification.KindSubscriptionActive)
		resp, err := s.service.Activate(s.GetContext(), &dto.ActivateSubscriptionRequest{
			SubscriptionID: active.ID,
		})
		s.NoError(err)
		s.Equal(types.SubscriptionStatusActive, resp.Status)
		s.Equal(before, s.GetNotifier().CountByKind(notification.KindSubscriptionActive))
		s.Equal(1, s.GetSubscriptionStore().CountHistory(active.ID, types.HistoryActionActivated))
	})

	s.Run("cancelled subscription cannot activate", func() {
		created, err := s.service.Create(s.GetContext(), &dto.CreateSubscriptionRequest{
			ProfileID:    testProfileID,
			PlanID:       types.PlanPremium,
			PeriodMonths: 1,
		})
		s.NoError(err)
		_, err = s.service.Cancel(s.GetContext(), &dto.CancelSubscriptionRequest{
			SubscriptionID: created.ID,
			Immediate:      true,
		})
		s.NoError(err)

		_, err = s.service.Activate(s.GetContext(), &dto.ActivateSubscriptionRequest{
			SubscriptionID: created.ID,
		})
		s.True(ierr.IsInvalidOperation(err))
	})
}

func (s *SubscriptionServiceSuite) TestRenew() {
	s.Run("live term extends from its end date", func() {
		end := time.Now().UTC().AddDate(0, 0, 10)
		sub := s.seedSubscription(&subscription.Subscription{
			PlanID:       types.PlanPremium,
			Status:       types.SubscriptionStatusActive,
			Price:        decimal.NewFromInt(1000),
			PeriodMonths: 1,
			StartDate:    time.Now().UTC().AddDate(0, -1, 0),
			EndDate:      &end,
		})

		resp, err := s.service.Renew(s.GetContext(), &dto.RenewSubscriptionRequest{
			SubscriptionID: sub.ID,
		})
		s.NoError(err)
		s.Equal(types.SubscriptionStatusActive, resp.Status)
		s.True(resp.EndDate.After(end), "renewal should extend beyond the old end")
	})

	s.Run("expired subscription renews from now with a recomputed price", func() {
		end := time.Now().UTC().AddDate(0, 0, -5)
		sub := s.seedSubscription(&subscription.Subscription{
			PlanID:       types.PlanPremium,
			Status:       types.SubscriptionStatusExpired,
			Price:        decimal.NewFromInt(1000),
			PeriodMonths: 1,
			StartDate:    time.Now().UTC().AddDate(0, -1, -5),
			EndDate:      &end,
		})

		months := 3
		resp, err := s.service.Renew(s.GetContext(), &dto.RenewSubscriptionRequest{
			SubscriptionID: sub.ID,
			PeriodMonths:   &months,
		})
		s.NoError(err)
		s.Equal(types.SubscriptionStatusActive, resp.Status)
		s.Equal(3, resp.PeriodMonths)
		s.True(decimal.NewFromInt(2700).Equal(resp.Price), "price %s", resp.Price)
		s.True(resp.EndDate.After(time.Now().UTC()))
	})

	s.Run("cancelled subscription cannot renew", func() {
		sub := s.seedSubscription(&subscription.Subscription{
			PlanID:       types.PlanPremium,
			Status:       types.SubscriptionStatusCancelled,
			Price:        decimal.NewFromInt(1000),
			PeriodMonths: 1,
			StartDate:    time.Now().UTC().AddDate(0, -2, 0),
		})

		_, err := s.service.Renew(s.GetContext(), &dto.RenewSubscriptionRequest{
			SubscriptionID: sub.ID,
		})
		s.True(ierr.IsInvalidOperation(err))
	})
}

func (s *SubscriptionServiceSuite) TestChangePlan() {
	activeSub := func() *subscription.Subscription {
		end := time.Now().UTC().AddDate(0, 0, 10)
		return s.seedSubscription(&subscription.Subscription{
			PlanID:       types.PlanPremium,
			Status:       types.SubscriptionStatusActive,
			Price:        decimal.NewFromInt(1000),
			PeriodMonths: 1,
			StartDate:    time.Now().UTC().AddDate(0, 0, -20),
			EndDate:      &end,
		})
	}

	s.Run("upgrade records proration and switches the plan", func() {
		sub := activeSub()
		resp, err := s.service.ChangePlan(s.GetContext(), &dto.ChangePlanRequest{
			SubscriptionID: sub.ID,
			PlanID:         types.PlanVIP,
		})
		s.NoError(err)
		s.Equal(types.PlanVIP, resp.Subscription.PlanID)
		s.Equal(proration.ResultTypeCharge, resp.Proration.Type)
		s.True(resp.Proration.Difference.IsPositive())

		stored := s.mustGet(sub.ID)
		s.Equal("premium", stored.Metadata["plan_change_from"])
		s.Equal("vip", stored.Metadata["plan_change_to"])
		s.Equal(string(proration.ResultTypeCharge), stored.Metadata["plan_change_type"])
		vipTotal := lo.Must(plan.GetPlan(types.PlanVIP)).CalculateTotal(1)
		s.True(vipTotal.Equal(stored.Price))
	})

	s.Run("same plan is rejected", func() {
		sub := activeSub()
		_, err := s.service.ChangePlan(s.GetContext(), &dto.ChangePlanRequest{
			SubscriptionID: sub.ID,
			PlanID:         types.PlanPremium,
		})
		s.True(ierr.IsValidation(err))
	})

	s.Run("pending subscription cannot change plan", func() {
		sub := s.seedSubscription(&subscription.Subscription{
			PlanID:       types.PlanPremium,
			Status:       types.SubscriptionStatusPending,
			Price:        decimal.NewFromInt(1000),
			PeriodMonths: 1,
			StartDate:    time.Now().UTC(),
		})
		_, err := s.service.ChangePlan(s.GetContext(), &dto.ChangePlanRequest{
			SubscriptionID: sub.ID,
			PlanID:         types.PlanVIP,
		})
		s.True(ierr.IsInvalidOperation(err))
	})
}

func (s *SubscriptionServiceSuite) TestCancel() {
	s.Run("immediate cancel clears the premium flag in the same commit", func() {
		created := s.createActive(types.PlanPremium, 1, "txn_c")

		resp, err := s.service.Cancel(s.GetContext(), &dto.CancelSubscriptionRequest{
			SubscriptionID: created.ID,
			Reason:         "too expensive",
			Immediate:      true,
		})
		s.NoError(err)
		s.Equal(types.SubscriptionStatusCancelled, resp.Status)
		s.Equal("too expensive", resp.CancellationReason)
		s.NotNil(resp.CancelledAt)

		prof, err := s.GetProfileStore().Get(s.GetContext(), testProfileID)
		s.NoError(err)
		s.False(prof.IsPremium)
		s.Empty(prof.SubscriptionPlan)
	})

	s.Run("scheduled cancel keeps the subscription active without renewal", func() {
		created := s.createActive(types.PlanPremium, 1, "txn_s")

		resp, err := s.service.Cancel(s.GetContext(), &dto.CancelSubscriptionRequest{
			SubscriptionID: created.ID,
			Reason:         "switching providers",
		})
		s.NoError(err)
		s.Equal(types.SubscriptionStatusActive, resp.Status)
		s.False(resp.AutoRenew)
		s.Equal(1, s.GetSubscriptionStore().CountHistory(created.ID, types.HistoryActionCancelScheduled))

		prof, err := s.GetProfileStore().Get(s.GetContext(), testProfileID)
		s.NoError(err)
		s.True(prof.IsPremium, "premium runs until natural expiry")
	})

	s.Run("scheduled cancel is reversible while still active", func() {
		created := s.createActive(types.PlanPremium, 1, "txn_r")

		_, err := s.service.Cancel(s.GetContext(), &dto.CancelSubscriptionRequest{
			SubscriptionID: created.ID,
		})
		s.NoError(err)

		resp, err := s.service.SetAutoRenew(s.GetContext(), &dto.SetAutoRenewRequest{
			SubscriptionID: created.ID,
			AutoRenew:      true,
		})
		s.NoError(err)
		s.True(resp.AutoRenew)
		s.Equal(1, s.GetSubscriptionStore().CountHistory(created.ID, types.HistoryActionAutoRenewEnabled))
	})

	s.Run("cancelling a terminal subscription fails", func() {
		sub := s.seedSubscription(&subscription.Subscription{
			PlanID:    types.PlanPremium,
			Status:    types.SubscriptionStatusExpired,
			Price:     decimal.NewFromInt(1000),
			StartDate: time.Now().UTC().AddDate(0, -2, 0),
		})
		_, err := s.service.Cancel(s.GetContext(), &dto.CancelSubscriptionRequest{
			SubscriptionID: sub.ID,
			Immediate:      true,
		})
		s.True(ierr.IsInvalidOperation(err))
	})
}

func (s *SubscriptionServiceSuite) TestCheckExpirations() {
	pastEnd := time.Now().UTC().AddDate(0, 0, -1)
	pastTrial := time.Now().UTC().Add(-2 * time.Hour)
	futureEnd := time.Now().UTC().AddDate(0, 1, 0)

	expired := s.seedSubscription(&subscription.Subscription{
		PlanID:       types.PlanPremium,
		Status:       types.SubscriptionStatusActive,
		Price:        decimal.NewFromInt(1000),
		PeriodMonths: 1,
		StartDate:    time.Now().UTC().AddDate(0, -1, -1),
		EndDate:      &pastEnd,
	})
	overdueTrial := s.seedSubscription(&subscription.Subscription{
		ID:          types.GenerateUUIDWithPrefix(types.UUID_PREFIX_SUBSCRIPTION),
		ProfileID:   testProfileID,
		PlanID:      types.PlanPremium,
		Status:      types.SubscriptionStatusTrial,
		Price:       decimal.Zero,
		StartDate:   time.Now().UTC().AddDate(0, 0, -15),
		TrialEndsAt: &pastTrial,
	})
	current := s.seedSubscription(&subscription.Subscription{
		PlanID:       types.PlanVIP,
		Status:       types.SubscriptionStatusActive,
		Price:        decimal.NewFromInt(2500),
		PeriodMonths: 1,
		StartDate:    time.Now().UTC(),
		EndDate:      &futureEnd,
	})

	count, err := s.service.CheckExpirations(s.GetContext())
	s.NoError(err)
	s.Equal(2, count)

	s.Equal(types.SubscriptionStatusExpired, s.mustGet(expired.ID).Status)
	s.Equal(types.SubscriptionStatusExpired, s.mustGet(overdueTrial.ID).Status)
	s.Equal(types.SubscriptionStatusActive, s.mustGet(current.ID).Status)

	// re-running the sweep is a no-op
	count, err = s.service.CheckExpirations(s.GetContext())
	s.NoError(err)
	s.Equal(0, count)
	s.Equal(1, s.GetSubscriptionStore().CountHistory(expired.ID, types.HistoryActionExpired))
}

func (s *SubscriptionServiceSuite) TestProcessAutoRenewals() {
	s.Run("eligible subscription is charged once and renewed", func() {
		end := time.Now().UTC().AddDate(0, 0, 2)
		sub := s.seedSubscription(&subscription.Subscription{
			PlanID:        types.PlanPremium,
			Status:        types.SubscriptionStatusActive,
			Price:         decimal.NewFromInt(1000),
			PeriodMonths:  1,
			StartDate:     time.Now().UTC().AddDate(0, -1, 2),
			EndDate:       &end,
			AutoRenew:     true,
			PaymentMethod: "card_saved",
		})

		count, err := s.service.ProcessAutoRenewals(s.GetContext())
		s.NoError(err)
		s.Equal(1, count)
		s.Equal(1, s.GetPaymentGateway().ChargeCount())

		renewed := s.mustGet(sub.ID)
		s.True(renewed.EndDate.After(end))
		s.NotEmpty(renewed.TransactionID)

		// the extended term is outside the window, so a second run is a no-op
		count, err = s.service.ProcessAutoRenewals(s.GetContext())
		s.NoError(err)
		s.Equal(0, count)
		s.Equal(1, s.GetPaymentGateway().ChargeCount())
	})

	s.Run("subscriptions without a saved method are skipped", func() {
		end := time.Now().UTC().AddDate(0, 0, 2)
		s.seedSubscription(&subscription.Subscription{
			PlanID:       types.PlanPremium,
			Status:       types.SubscriptionStatusActive,
			Price:        decimal.NewFromInt(1000),
			PeriodMonths: 1,
			StartDate:    time.Now().UTC().AddDate(0, -1, 2),
			EndDate:      &end,
			AutoRenew:    true,
		})

		before := s.GetPaymentGateway().ChargeCount()
		count, err := s.service.ProcessAutoRenewals(s.GetContext())
		s.NoError(err)
		s.Equal(0, count)
		s.Equal(before, s.GetPaymentGateway().ChargeCount())
	})

	s.Run("declined charge is recorded and the term left to expire", func() {
		s.GetPaymentGateway().Decline = true
		defer func() { s.GetPaymentGateway().Decline = false }()

		end := time.Now().UTC().AddDate(0, 0, 1)
		sub := s.seedSubscription(&subscription.Subscription{
			PlanID:        types.PlanPremium,
			Status:        types.SubscriptionStatusActive,
			Price:         decimal.NewFromInt(1000),
			PeriodMonths:  1,
			StartDate:     time.Now().UTC().AddDate(0, -1, 1),
			EndDate:       &end,
			AutoRenew:     true,
			PaymentMethod: "card_saved",
		})

		count, err := s.service.ProcessAutoRenewals(s.GetContext())
		s.NoError(err)
		s.Equal(0, count)

		after := s.mustGet(sub.ID)
		s.True(after.EndDate.Equal(end), "a failed charge must not extend the term")
		s.Equal(1, s.GetSubscriptionStore().CountHistory(sub.ID, types.HistoryActionAutoRenewalFailed))
		s.Equal(1, s.GetNotifier().CountByKind(notification.KindAutoRenewalFailed))
	})
}

func (s *SubscriptionServiceSuite) TestSendExpirationReminders() {
	end := time.Now().UTC().AddDate(0, 0, 5)
	sub := s.seedSubscription(&subscription.Subscription{
		PlanID:       types.PlanPremium,
		Status:       types.SubscriptionStatusActive,
		Price:        decimal.NewFromInt(1000),
		PeriodMonths: 1,
		StartDate:    time.Now().UTC().AddDate(0, -1, 5),
		EndDate:      &end,
	})

	farEnd := time.Now().UTC().AddDate(0, 1, 0)
	s.seedSubscription(&subscription.Subscription{
		PlanID:       types.PlanVIP,
		Status:       types.SubscriptionStatusActive,
		Price:        decimal.NewFromInt(2500),
		PeriodMonths: 1,
		StartDate:    time.Now().UTC(),
		EndDate:      &farEnd,
	})

	count, err := s.service.SendExpirationReminders(s.GetContext())
	s.NoError(err)
	s.Equal(1, count)
	s.Equal(1, s.GetNotifier().CountByKind(notification.KindExpirationReminder))

	// within the cooldown the reminder is suppressed
	count, err = s.service.SendExpirationReminders(s.GetContext())
	s.NoError(err)
	s.Equal(0, count)
	s.Equal(1, s.GetSubscriptionStore().CountHistory(sub.ID, types.HistoryActionExpirationReminder))
}

func (s *SubscriptionServiceSuite) TestGetActiveSubscription() {
	s.Run("free tier profile has no live subscription", func() {
		resp, err := s.service.GetActiveSubscription(s.GetContext(), testProfileID)
		s.NoError(err)
		s.Nil(resp)
	})

	s.Run("live subscription is returned", func() {
		created, err := s.service.Create(s.GetContext(), &dto.CreateSubscriptionRequest{
			ProfileID:    testProfileID,
			PlanID:       types.PlanPremium,
			PeriodMonths: 1,
			Payment:      dto.PaymentData{Method: "card", TransactionID: "txn_g"},
		})
		s.NoError(err)

		resp, err := s.service.GetActiveSubscription(s.GetContext(), testProfileID)
		s.NoError(err)
		s.Equal(created.ID, resp.ID)
	})

	s.Run("lapsed term not yet swept reads as no subscription", func() {
		end := time.Now().UTC().AddDate(0, 0, -2)
		s.seedSubscription(&subscription.Subscription{
			ProfileID:    "prof_01hx3k9test0000000000000009",
			PlanID:       types.PlanPremium,
			Status:       types.SubscriptionStatusActive,
			Price:        decimal.NewFromInt(1000),
			PeriodMonths: 1,
			StartDate:    time.Now().UTC().AddDate(0, -1, -2),
			EndDate:      &end,
		})

		resp, err := s.service.GetActiveSubscription(s.GetContext(), "prof_01hx3k9test0000000000000009")
		s.NoError(err)
		s.Nil(resp)
	})
}

func (s *SubscriptionServiceSuite) mustGet(id string) *subscription.Subscription {
	sub, err := s.GetSubscriptionStore().Get(s.GetContext(), id)
	s.NoError(err)
	return sub
}
