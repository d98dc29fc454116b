package service

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/spahub/billing/internal/api/dto"
	"github.com/spahub/billing/internal/domain/notification"
	"github.com/spahub/billing/internal/domain/plan"
	"github.com/spahub/billing/internal/domain/proration"
	"github.com/spahub/billing/internal/domain/subscription"
	ierr "github.com/spahub/billing/internal/errors"
	"github.com/spahub/billing/internal/types"
)

// SubscriptionService owns the lifecycle state machine. Every mutating
// operation runs inside a transaction under a per-profile (or per-subscription)
// advisory lock, so the one-live-subscription invariant and the history append
// are never observed half-done.
type SubscriptionService interface {
	Create(ctx context.Context, req *dto.CreateSubscriptionRequest) (*dto.SubscriptionResponse, error)
	StartTrial(ctx context.Context, req *dto.StartTrialRequest) (*dto.SubscriptionResponse, error)
	Activate(ctx context.Context, req *dto.ActivateSubscriptionRequest) (*dto.SubscriptionResponse, error)
	Renew(ctx context.Context, req *dto.RenewSubscriptionRequest) (*dto.SubscriptionResponse, error)
	ChangePlan(ctx context.Context, req *dto.ChangePlanRequest) (*dto.ChangePlanResponse, error)
	Cancel(ctx context.Context, req *dto.CancelSubscriptionRequest) (*dto.SubscriptionResponse, error)
	SetAutoRenew(ctx context.Context, req *dto.SetAutoRenewRequest) (*dto.SubscriptionResponse, error)

	GetSubscription(ctx context.Context, id string) (*dto.SubscriptionResponse, error)
	// GetActiveSubscription returns the profile's live subscription, or nil
	// when the profile is on the free tier
	GetActiveSubscription(ctx context.Context, profileID string) (*dto.SubscriptionResponse, error)
	ListHistory(ctx context.Context, subscriptionID string) ([]*subscription.HistoryEntry, error)

	// Sweeps. Each returns the number of records it transitioned; re-running a
	// sweep is a no-op for records already handled.
	CheckExpirations(ctx context.Context) (int, error)
	ProcessAutoRenewals(ctx context.Context) (int, error)
	SendExpirationReminders(ctx context.Context) (int, error)
}

type subscriptionService struct {
	ServiceParams
	projector ProjectionService
}

func NewSubscriptionService(params ServiceParams) SubscriptionService {
	return &subscriptionService{
		ServiceParams: params,
		projector:     NewProjectionService(params),
	}
}

func (s *subscriptionService) Create(ctx context.Context, req *dto.CreateSubscriptionRequest) (*dto.SubscriptionResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	p, err := plan.GetPlan(req.PlanID)
	if err != nil {
		return nil, err
	}
	if _, err := s.ProfileRepo.Get(ctx, req.ProfileID); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	autoRenew := true
	if req.AutoRenew != nil {
		autoRenew = *req.AutoRenew
	}

	sub := &subscription.Subscription{
		ID:            types.GenerateUUIDWithPrefix(types.UUID_PREFIX_SUBSCRIPTION),
		ProfileID:     req.ProfileID,
		PlanID:        p.ID,
		Status:        types.SubscriptionStatusPending,
		Price:         p.CalculateTotal(req.PeriodMonths),
		PeriodMonths:  req.PeriodMonths,
		StartDate:     now,
		AutoRenew:     autoRenew,
		PaymentMethod: req.Payment.Method,
		TransactionID: req.Payment.TransactionID,
		Metadata:      req.Payment.Metadata,
		BaseModel:     types.GetDefaultBaseModel(ctx),
	}
	if err := sub.Validate(); err != nil {
		return nil, err
	}

	err = s.DB.WithTx(ctx, func(ctx context.Context) error {
		if err := s.lockProfile(ctx, req.ProfileID); err != nil {
			return err
		}
		if err := s.supersedeLiveSubscriptions(ctx, req.ProfileID, now); err != nil {
			return err
		}

		// only the free tier activates on creation. Paid records stay PENDING
		// even when a settled transaction id is attached; activation is the
		// caller's explicit Activate step.
		if p.IsFree() {
			end := now.AddDate(0, req.PeriodMonths, 0)
			sub.Status = types.SubscriptionStatusActive
			sub.EndDate = &end
		}

		if err := s.SubRepo.Create(ctx, sub); err != nil {
			return err
		}
		if err := s.appendHistory(ctx, sub, types.HistoryActionCreated,
			fmt.Sprintf("created on plan %s for %d months", sub.PlanID, sub.PeriodMonths)); err != nil {
			return err
		}
		if sub.Status == types.SubscriptionStatusActive {
			if err := s.appendHistory(ctx, sub, types.HistoryActionActivated, "activated on creation"); err != nil {
				return err
			}
		}
		return s.projector.ApplySubscription(ctx, sub.ProfileID, sub)
	})
	if err != nil {
		return nil, err
	}

	s.invalidateProfileCaches(ctx, sub.ProfileID)
	s.Logger.WithContext(ctx).Infow("subscription created",
		"subscription_id", sub.ID,
		"profile_id", sub.ProfileID,
		"plan_id", sub.PlanID,
		"status", sub.Status,
		"price", sub.Price)

	return dto.NewSubscriptionResponse(sub), nil
}

func (s *subscriptionService) StartTrial(ctx context.Context, req *dto.StartTrialRequest) (*dto.SubscriptionResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	planID := req.PlanID
	if planID == "" {
		planID = types.PlanPremium
	}
	p, err := plan.GetPlan(planID)
	if err != nil {
		return nil, err
	}
	if p.IsFree() {
		return nil, ierr.NewError("the free tier has no trial").
			WithHint("Trials apply to paid plans only").
			Mark(ierr.ErrValidation)
	}
	if _, err := s.ProfileRepo.Get(ctx, req.ProfileID); err != nil {
		return nil, err
	}

	days := req.Days
	if days <= 0 {
		days = s.Config.Subscription.TrialDays
	}

	now := time.Now().UTC()
	trialEnd := now.AddDate(0, 0, days)
	sub := &subscription.Subscription{
		ID:          types.GenerateUUIDWithPrefix(types.UUID_PREFIX_SUBSCRIPTION),
		ProfileID:   req.ProfileID,
		PlanID:      p.ID,
		Status:      types.SubscriptionStatusTrial,
		Price:       decimal.Zero,
		StartDate:   now,
		TrialEndsAt: &trialEnd,
		BaseModel:   types.GetDefaultBaseModel(ctx),
	}

	err = s.DB.WithTx(ctx, func(ctx context.Context) error {
		if err := s.lockProfile(ctx, req.ProfileID); err != nil {
			return err
		}

		// the lifetime trial is consumed once, cancellations included
		used, err := s.SubRepo.HasEverTrialed(ctx, req.ProfileID)
		if err != nil {
			return err
		}
		if used {
			return ierr.NewError("trial already used").
				WithHint("Each profile can use the trial period only once").
				WithReportableDetails(map[string]interface{}{"profile_id": req.ProfileID}).
				Mark(ierr.ErrValidation)
		}

		if err := s.supersedeLiveSubscriptions(ctx, req.ProfileID, now); err != nil {
			return err
		}
		if err := s.SubRepo.Create(ctx, sub); err != nil {
			return err
		}
		if err := s.appendHistory(ctx, sub, types.HistoryActionTrialStarted,
			fmt.Sprintf("%d day trial of plan %s", days, sub.PlanID)); err != nil {
			return err
		}
		return s.projector.ApplySubscription(ctx, sub.ProfileID, sub)
	})
	if err != nil {
		return nil, err
	}

	s.invalidateProfileCaches(ctx, sub.ProfileID)
	s.Logger.WithContext(ctx).Infow("trial started",
		"subscription_id", sub.ID,
		"profile_id", sub.ProfileID,
		"plan_id", sub.PlanID,
		"trial_ends_at", trialEnd)

	return dto.NewSubscriptionResponse(sub), nil
}

func (s *subscriptionService) Activate(ctx context.Context, req *dto.ActivateSubscriptionRequest) (*dto.SubscriptionResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var (
		sub       *subscription.Subscription
		activated bool
	)
	err := s.DB.WithTx(ctx, func(ctx context.Context) error {
		if err := s.lockSubscription(ctx, req.SubscriptionID); err != nil {
			return err
		}
		var err error
		sub, err = s.SubRepo.GetForUpdate(ctx, req.SubscriptionID)
		if err != nil {
			return err
		}

		// activating an already-active subscription is a no-op
		if sub.Status == types.SubscriptionStatusActive {
			return nil
		}
		if !sub.Status.CanTransitionTo(types.SubscriptionStatusActive) {
			return s.transitionError(sub, types.SubscriptionStatusActive)
		}

		now := time.Now().UTC()
		sub.Status = types.SubscriptionStatusActive
		if sub.EndDate == nil {
			months := sub.PeriodMonths
			if months <= 0 {
				months = 1
				sub.PeriodMonths = 1
			}
			end := now.AddDate(0, months, 0)
			sub.EndDate = &end
		}
		mergePaymentData(sub, req.Payment)
		sub.UpdatedAt = now
		sub.UpdatedBy = types.GetUserID(ctx)

		if err := s.SubRepo.Update(ctx, sub); err != nil {
			return err
		}
		if err := s.appendHistory(ctx, sub, types.HistoryActionActivated, "payment confirmed"); err != nil {
			return err
		}
		activated = true
		return s.projector.ApplySubscription(ctx, sub.ProfileID, sub)
	})
	if err != nil {
		return nil, err
	}

	if activated {
		s.invalidateProfileCaches(ctx, sub.ProfileID)
		s.Notifier.Notify(ctx, sub.ProfileID, notification.KindSubscriptionActive, map[string]interface{}{
			"subscription_id": sub.ID,
			"plan_id":         sub.PlanID.String(),
		})
	}

	return dto.NewSubscriptionResponse(sub), nil
}

func (s *subscriptionService) Renew(ctx context.Context, req *dto.RenewSubscriptionRequest) (*dto.SubscriptionResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var sub *subscription.Subscription
	err := s.DB.WithTx(ctx, func(ctx context.Context) error {
		if err := s.lockSubscription(ctx, req.SubscriptionID); err != nil {
			return err
		}
		var err error
		sub, err = s.SubRepo.GetForUpdate(ctx, req.SubscriptionID)
		if err != nil {
			return err
		}
		return s.renewLocked(ctx, sub, req.PeriodMonths, req.Payment, "renewed")
	})
	if err != nil {
		return nil, err
	}

	s.invalidateProfileCaches(ctx, sub.ProfileID)
	return dto.NewSubscriptionResponse(sub), nil
}

// renewLocked extends a subscription already fetched under lock. Shared by the
// request path and the auto-renewal sweep.
func (s *subscriptionService) renewLocked(ctx context.Context, sub *subscription.Subscription, periodMonths *int, pay dto.PaymentData, note string) error {
	if sub.Status != types.SubscriptionStatusActive && sub.Status != types.SubscriptionStatusExpired {
		return s.transitionError(sub, types.SubscriptionStatusActive)
	}

	p, err := plan.GetPlan(sub.PlanID)
	if err != nil {
		return err
	}

	months := sub.PeriodMonths
	if periodMonths != nil && *periodMonths > 0 {
		months = *periodMonths
	}
	if months <= 0 {
		months = 1
	}

	now := time.Now().UTC()
	// an expired or lapsed term restarts from now; a live term extends
	base := now
	if sub.EndDate != nil && sub.EndDate.After(now) {
		base = *sub.EndDate
	}
	end := base.AddDate(0, months, 0)

	sub.Status = types.SubscriptionStatusActive
	sub.PeriodMonths = months
	sub.Price = p.CalculateTotal(months)
	sub.EndDate = &end
	mergePaymentData(sub, pay)
	sub.UpdatedAt = now
	sub.UpdatedBy = types.GetUserID(ctx)

	if err := s.SubRepo.Update(ctx, sub); err != nil {
		return err
	}
	if err := s.appendHistory(ctx, sub, types.HistoryActionRenewed,
		fmt.Sprintf("%s for %d months until %s", note, months, end.Format(time.RFC3339))); err != nil {
		return err
	}
	return s.projector.ApplySubscription(ctx, sub.ProfileID, sub)
}

func (s *subscriptionService) ChangePlan(ctx context.Context, req *dto.ChangePlanRequest) (*dto.ChangePlanResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	target, err := plan.GetPlan(req.PlanID)
	if err != nil {
		return nil, err
	}

	var (
		sub    *subscription.Subscription
		result *proration.Result
	)
	err = s.DB.WithTx(ctx, func(ctx context.Context) error {
		if err := s.lockSubscription(ctx, req.SubscriptionID); err != nil {
			return err
		}
		var err error
		sub, err = s.SubRepo.GetForUpdate(ctx, req.SubscriptionID)
		if err != nil {
			return err
		}
		if sub.Status != types.SubscriptionStatusActive {
			return ierr.NewErrorf("cannot change plan of a %s subscription", sub.Status).
				WithHint("Only active subscriptions can change plan").
				Mark(ierr.ErrInvalidOperation)
		}
		if sub.PlanID == target.ID {
			return ierr.NewError("subscription is already on this plan").
				Mark(ierr.ErrValidation)
		}

		now := time.Now().UTC()
		result, err = s.ProrationCalc.Calculate(proration.Params{
			SubscriptionID: sub.ID,
			CurrentPlanID:  sub.PlanID,
			TargetPlanID:   target.ID,
			CurrentPrice:   sub.Price,
			PeriodMonths:   sub.PeriodMonths,
			EndDate:        sub.EndDate,
			AsOf:           now,
		})
		if err != nil {
			return err
		}

		oldPlan := sub.PlanID
		sub.PlanID = target.ID
		sub.Price = target.CalculateTotal(sub.PeriodMonths)
		if sub.Metadata == nil {
			sub.Metadata = types.Metadata{}
		}
		sub.Metadata["plan_change_from"] = oldPlan.String()
		sub.Metadata["plan_change_to"] = target.ID.String()
		sub.Metadata["plan_change_type"] = string(result.Type)
		sub.Metadata["plan_change_difference"] = result.Difference.String()
		sub.Metadata["plan_change_at"] = now.Format(time.RFC3339)
		sub.UpdatedAt = now
		sub.UpdatedBy = types.GetUserID(ctx)

		if err := s.SubRepo.Update(ctx, sub); err != nil {
			return err
		}
		if err := s.appendHistory(ctx, sub, types.HistoryActionPlanChanged,
			fmt.Sprintf("%s to %s, %s of %s", oldPlan, target.ID, result.Type, result.Difference.Abs())); err != nil {
			return err
		}
		return s.projector.ApplySubscription(ctx, sub.ProfileID, sub)
	})
	if err != nil {
		return nil, err
	}

	s.invalidateProfileCaches(ctx, sub.ProfileID)
	s.Logger.WithContext(ctx).Infow("plan changed",
		"subscription_id", sub.ID,
		"plan_id", sub.PlanID,
		"proration_type", result.Type,
		"difference", result.Difference)

	return &dto.ChangePlanResponse{
		Subscription: dto.NewSubscriptionResponse(sub),
		Proration:    result,
	}, nil
}

func (s *subscriptionService) Cancel(ctx context.Context, req *dto.CancelSubscriptionRequest) (*dto.SubscriptionResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var sub *subscription.Subscription
	err := s.DB.WithTx(ctx, func(ctx context.Context) error {
		if err := s.lockSubscription(ctx, req.SubscriptionID); err != nil {
			return err
		}
		var err error
		sub, err = s.SubRepo.GetForUpdate(ctx, req.SubscriptionID)
		if err != nil {
			return err
		}
		if sub.Status.IsTerminal() {
			return ierr.NewErrorf("subscription is already %s", sub.Status).
				Mark(ierr.ErrInvalidOperation)
		}

		now := time.Now().UTC()
		if req.Immediate {
			if !sub.Status.CanTransitionTo(types.SubscriptionStatusCancelled) {
				return s.transitionError(sub, types.SubscriptionStatusCancelled)
			}
			sub.Status = types.SubscriptionStatusCancelled
			sub.CancelledAt = &now
			sub.CancellationReason = req.Reason
			sub.AutoRenew = false
			sub.UpdatedAt = now
			sub.UpdatedBy = types.GetUserID(ctx)

			if err := s.SubRepo.Update(ctx, sub); err != nil {
				return err
			}
			if err := s.appendHistory(ctx, sub, types.HistoryActionCancelled, req.Reason); err != nil {
				return err
			}
			// premium access ends with the cancellation, in the same commit
			return s.projector.ApplySubscription(ctx, sub.ProfileID, nil)
		}

		sub.AutoRenew = false
		sub.CancellationReason = req.Reason
		sub.UpdatedAt = now
		sub.UpdatedBy = types.GetUserID(ctx)
		if err := s.SubRepo.Update(ctx, sub); err != nil {
			return err
		}
		return s.appendHistory(ctx, sub, types.HistoryActionCancelScheduled,
			fmt.Sprintf("will not renew; runs until natural expiry. %s", req.Reason))
	})
	if err != nil {
		return nil, err
	}

	s.invalidateProfileCaches(ctx, sub.ProfileID)
	return dto.NewSubscriptionResponse(sub), nil
}

func (s *subscriptionService) SetAutoRenew(ctx context.Context, req *dto.SetAutoRenewRequest) (*dto.SubscriptionResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var sub *subscription.Subscription
	err := s.DB.WithTx(ctx, func(ctx context.Context) error {
		if err := s.lockSubscription(ctx, req.SubscriptionID); err != nil {
			return err
		}
		var err error
		sub, err = s.SubRepo.GetForUpdate(ctx, req.SubscriptionID)
		if err != nil {
			return err
		}
		// a scheduled cancellation stays reversible until the record actually
		// reaches a terminal state
		if sub.Status != types.SubscriptionStatusActive {
			return ierr.NewErrorf("cannot toggle auto-renew on a %s subscription", sub.Status).
				Mark(ierr.ErrInvalidOperation)
		}
		if sub.AutoRenew == req.AutoRenew {
			return nil
		}

		sub.AutoRenew = req.AutoRenew
		sub.UpdatedAt = time.Now().UTC()
		sub.UpdatedBy = types.GetUserID(ctx)
		if err := s.SubRepo.Update(ctx, sub); err != nil {
			return err
		}

		action := types.HistoryActionAutoRenewDisabled
		if req.AutoRenew {
			action = types.HistoryActionAutoRenewEnabled
		}
		return s.appendHistory(ctx, sub, action, "")
	})
	if err != nil {
		return nil, err
	}
	return dto.NewSubscriptionResponse(sub), nil
}

func (s *subscriptionService) GetSubscription(ctx context.Context, id string) (*dto.SubscriptionResponse, error) {
	sub, err := s.SubRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return dto.NewSubscriptionResponse(sub), nil
}

func (s *subscriptionService) GetActiveSubscription(ctx context.Context, profileID string) (*dto.SubscriptionResponse, error) {
	sub, err := s.SubRepo.GetLiveByProfile(ctx, profileID)
	if err != nil {
		if ierr.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	// a live-status row whose term lapsed before the expiration sweep ran
	// is already dead to the caller
	if !sub.IsLiveAt(time.Now().UTC()) {
		return nil, nil
	}
	return dto.NewSubscriptionResponse(sub), nil
}

func (s *subscriptionService) ListHistory(ctx context.Context, subscriptionID string) ([]*subscription.HistoryEntry, error) {
	if _, err := s.SubRepo.Get(ctx, subscriptionID); err != nil {
		return nil, err
	}
	return s.SubRepo.ListHistory(ctx, subscriptionID)
}

// CheckExpirations transitions every ACTIVE or TRIAL subscription whose
// effective expiry has passed to EXPIRED and clears the profile projection.
// Chunked and re-entrant: a record expired by an overlapping run fails the
// status precondition and is skipped.
func (s *subscriptionService) CheckExpirations(ctx context.Context) (int, error) {
	now := time.Now().UTC()
	processed := 0

	err := s.sweep(ctx, subscription.Filter{
		Statuses:      []types.SubscriptionStatus{types.SubscriptionStatusActive, types.SubscriptionStatusTrial},
		ExpiresBefore: &now,
	}, func(ctx context.Context, id string) error {
		return s.DB.WithTx(ctx, func(ctx context.Context) error {
			sub, err := s.SubRepo.GetForUpdate(ctx, id)
			if err != nil {
				return err
			}
			expiry := sub.ExpiryDate()
			if !sub.Status.IsLive() || expiry == nil || expiry.After(now) {
				return nil
			}
			if !sub.Status.CanTransitionTo(types.SubscriptionStatusExpired) {
				return nil
			}

			sub.Status = types.SubscriptionStatusExpired
			sub.UpdatedAt = now
			sub.UpdatedBy = types.GetUserID(ctx)
			if err := s.SubRepo.Update(ctx, sub); err != nil {
				return err
			}
			if err := s.appendHistory(ctx, sub, types.HistoryActionExpired, ""); err != nil {
				return err
			}
			if err := s.projector.ApplySubscription(ctx, sub.ProfileID, nil); err != nil {
				return err
			}
			s.invalidateProfileCaches(ctx, sub.ProfileID)
			processed++
			return nil
		})
	})
	return processed, err
}

// ProcessAutoRenewals charges and renews every ACTIVE subscription with
// auto-renew on, a saved payment method, and an expiry inside the configured
// window. One charge attempt per cycle; a declined charge is recorded and the
// record is left to expire naturally.
func (s *subscriptionService) ProcessAutoRenewals(ctx context.Context) (int, error) {
	now := time.Now().UTC()
	windowEnd := now.AddDate(0, 0, s.Config.Subscription.AutoRenewWindowDays)
	autoRenew := true
	hasMethod := true
	processed := 0

	err := s.sweep(ctx, subscription.Filter{
		Statuses:         []types.SubscriptionStatus{types.SubscriptionStatusActive},
		ExpiresAfter:     &now,
		ExpiresBefore:    &windowEnd,
		AutoRenew:        &autoRenew,
		HasPaymentMethod: &hasMethod,
	}, func(ctx context.Context, id string) error {
		return s.DB.WithTx(ctx, func(ctx context.Context) error {
			sub, err := s.SubRepo.GetForUpdate(ctx, id)
			if err != nil {
				return err
			}
			// a successful renewal pushes the expiry past the window, so an
			// overlapping run re-reading this record does nothing
			if sub.Status != types.SubscriptionStatusActive || !sub.AutoRenew || sub.PaymentMethod == "" {
				return nil
			}
			expiry := sub.ExpiryDate()
			if expiry == nil || !expiry.After(now) || expiry.After(windowEnd) {
				return nil
			}

			p, err := plan.GetPlan(sub.PlanID)
			if err != nil {
				return err
			}
			amount := p.CalculateTotal(sub.PeriodMonths)

			charge, err := s.PaymentGateway.ChargeSavedMethod(ctx, sub.ID, amount, sub.PaymentMethod)
			if err != nil || !charge.Success {
				s.Logger.WithContext(ctx).Warnw("auto-renewal charge declined",
					"subscription_id", sub.ID,
					"profile_id", sub.ProfileID,
					"amount", amount,
					"error", err)
				if histErr := s.appendHistory(ctx, sub, types.HistoryActionAutoRenewalFailed,
					"charge declined; subscription will expire naturally"); histErr != nil {
					return histErr
				}
				s.Notifier.Notify(ctx, sub.ProfileID, notification.KindAutoRenewalFailed, map[string]interface{}{
					"subscription_id": sub.ID,
					"amount":          amount.String(),
				})
				return nil
			}

			pay := dto.PaymentData{Method: sub.PaymentMethod, TransactionID: charge.TransactionID}
			if err := s.renewLocked(ctx, sub, nil, pay, "auto-renewed"); err != nil {
				return err
			}
			s.invalidateProfileCaches(ctx, sub.ProfileID)
			processed++
			return nil
		})
	})
	return processed, err
}

// SendExpirationReminders notifies holders of subscriptions expiring within
// the reminder window, at most once per cooldown period. Deduplication is by
// history lookup, so overlapping runs never double-notify.
func (s *subscriptionService) SendExpirationReminders(ctx context.Context) (int, error) {
	now := time.Now().UTC()
	windowEnd := now.AddDate(0, 0, s.Config.Subscription.ReminderWindowDays)
	cooldownStart := now.AddDate(0, 0, -s.Config.Subscription.ReminderCooldownDays)
	processed := 0

	err := s.sweep(ctx, subscription.Filter{
		Statuses:      []types.SubscriptionStatus{types.SubscriptionStatusActive, types.SubscriptionStatusTrial},
		ExpiresAfter:  &now,
		ExpiresBefore: &windowEnd,
	}, func(ctx context.Context, id string) error {
		sub, err := s.SubRepo.Get(ctx, id)
		if err != nil {
			return err
		}
		if !sub.ExpiringWithin(s.Config.Subscription.ReminderWindowDays, now) {
			return nil
		}
		sent, err := s.SubRepo.HasRecentHistory(ctx, sub.ID, types.HistoryActionExpirationReminder, cooldownStart)
		if err != nil {
			return err
		}
		if sent {
			return nil
		}

		remaining := sub.RemainingDays(now)
		if err := s.appendHistory(ctx, sub, types.HistoryActionExpirationReminder,
			fmt.Sprintf("%d days remaining", remaining)); err != nil {
			return err
		}
		s.Notifier.Notify(ctx, sub.ProfileID, notification.KindExpirationReminder, map[string]interface{}{
			"subscription_id": sub.ID,
			"plan_id":         sub.PlanID.String(),
			"days_remaining":  remaining,
		})
		processed++
		return nil
	})
	return processed, err
}

// sweep pages through the filtered record set in fixed-size chunks and hands
// each record to the handler, isolating per-record failures so one bad row
// never aborts the batch. Candidate ids are collected before any mutation:
// handlers change which rows match the filter, which would skew offset paging
// done concurrently with the updates.
func (s *subscriptionService) sweep(ctx context.Context, filter subscription.Filter, handle func(ctx context.Context, id string) error) error {
	batchSize := s.Config.Subscription.SweepBatchSize
	filter.Limit = batchSize

	var ids []string
	for offset := 0; ; offset += batchSize {
		filter.Offset = offset
		subs, err := s.SubRepo.List(ctx, filter)
		if err != nil {
			return err
		}
		for _, sub := range subs {
			ids = append(ids, sub.ID)
		}
		if len(subs) < batchSize {
			break
		}
	}

	for _, id := range ids {
		if err := handle(ctx, id); err != nil {
			s.Logger.WithContext(ctx).Errorw("sweep record failed",
				"subscription_id", id,
				"error", err)
		}
	}
	return nil
}

// supersedeLiveSubscriptions force-cancels any live record for the profile so
// a new one can take its place. Caller holds the profile lock.
func (s *subscriptionService) supersedeLiveSubscriptions(ctx context.Context, profileID string, now time.Time) error {
	live, err := s.SubRepo.ListLiveByProfile(ctx, profileID)
	if err != nil {
		return err
	}
	for _, old := range live {
		old.Status = types.SubscriptionStatusCancelled
		old.CancelledAt = &now
		old.CancellationReason = "superseded by a new subscription"
		old.AutoRenew = false
		old.UpdatedAt = now
		old.UpdatedBy = types.GetUserID(ctx)
		if err := s.SubRepo.Update(ctx, old); err != nil {
			return err
		}
		if err := s.appendHistory(ctx, old, types.HistoryActionCancelled, old.CancellationReason); err != nil {
			return err
		}
	}
	return nil
}

func (s *subscriptionService) appendHistory(ctx context.Context, sub *subscription.Subscription, action types.HistoryAction, note string) error {
	return s.SubRepo.AppendHistory(ctx, &subscription.HistoryEntry{
		ID:             types.GenerateUUIDWithPrefix(types.UUID_PREFIX_SUBSCRIPTION_HISTORY),
		SubscriptionID: sub.ID,
		Action:         action,
		Note:           note,
		PlanID:         sub.PlanID,
		Status:         sub.Status,
		CreatedAt:      time.Now().UTC(),
		CreatedBy:      types.GetUserID(ctx),
	})
}

func (s *subscriptionService) lockProfile(ctx context.Context, profileID string) error {
	return s.DB.LockKey(ctx, types.LockRequest{
		Key: types.GenerateLockKey(types.LockScopeProfile, map[string]interface{}{"profile_id": profileID}),
	})
}

func (s *subscriptionService) lockSubscription(ctx context.Context, subscriptionID string) error {
	return s.DB.LockKey(ctx, types.LockRequest{
		Key: types.GenerateLockKey(types.LockScopeSubscription, map[string]interface{}{"subscription_id": subscriptionID}),
	})
}

func (s *subscriptionService) invalidateProfileCaches(ctx context.Context, profileID string) {
	s.Cache.DeleteByPrefix(ctx, entitlementCachePrefix(profileID))
	s.Cache.Delete(ctx, analyticsCacheKey)
}

func (s *subscriptionService) transitionError(sub *subscription.Subscription, target types.SubscriptionStatus) error {
	return ierr.NewErrorf("cannot transition subscription from %s to %s", sub.Status, target).
		WithHint("Re-fetch the subscription; its state has moved on").
		WithReportableDetails(map[string]interface{}{
			"subscription_id": sub.ID,
			"status":          sub.Status,
		}).
		Mark(ierr.ErrInvalidOperation)
}

func mergePaymentData(sub *subscription.Subscription, pay dto.PaymentData) {
	if pay.Method != "" {
		sub.PaymentMethod = pay.Method
	}
	if pay.TransactionID != "" {
		sub.TransactionID = pay.TransactionID
	}
	if len(pay.Metadata) > 0 {
		if sub.Metadata == nil {
			sub.Metadata = types.Metadata{}
		}
		for k, v := range pay.Metadata {
			sub.Metadata[k] = v
		}
	}
}
