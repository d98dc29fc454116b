package service

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/sourcegraph/conc/pool"

	"github.com/spahub/billing/internal/api/dto"
	"github.com/spahub/billing/internal/domain/profile"
	"github.com/spahub/billing/internal/domain/subscription"
	ierr "github.com/spahub/billing/internal/errors"
	"github.com/spahub/billing/internal/types"
)

// bulkProjectionWorkers bounds the reconciliation fan-out
const bulkProjectionWorkers = 8

// ProjectionService keeps the denormalized premium state on the profile
// (is_premium, premium_until, subscription_plan) in step with the subscription
// store. The projection is a cache: every method here recomputes it from
// subscription records, never the other way around.
type ProjectionService interface {
	// ApplySubscription writes the projection derived from the given
	// subscription (nil clears it). Runs in the caller's transaction.
	ApplySubscription(ctx context.Context, profileID string, sub *subscription.Subscription) error

	// UpdateProfileStatus recomputes one profile's projection from its
	// current live subscription
	UpdateProfileStatus(ctx context.Context, profileID string) error

	// BulkUpdateStatuses re-asserts the projection for every entitled
	// subscription and clears profiles flagged premium with nothing backing
	// the flag. Corrects drift from missed events.
	BulkUpdateStatuses(ctx context.Context) (*dto.ProjectionSyncResponse, error)

	// ValidateProfileStatus reports projection drift without fixing it
	ValidateProfileStatus(ctx context.Context, profileID string) (*dto.ValidateProjectionResponse, error)
}

type projectionService struct {
	ServiceParams
}

func NewProjectionService(params ServiceParams) ProjectionService {
	return &projectionService{ServiceParams: params}
}

// projectionFor derives the premium state from a subscription snapshot
func projectionFor(sub *subscription.Subscription, now time.Time) profile.Projection {
	if sub == nil || !sub.IsEntitledAt(now) {
		return profile.EmptyProjection()
	}
	return profile.Projection{
		IsPremium:        sub.PlanID.IsPremiumTier(),
		PremiumUntil:     sub.ExpiryDate(),
		SubscriptionPlan: sub.PlanID,
	}
}

func (s *projectionService) ApplySubscription(ctx context.Context, profileID string, sub *subscription.Subscription) error {
	return s.ProfileRepo.UpdateProjection(ctx, profileID, projectionFor(sub, time.Now().UTC()))
}

func (s *projectionService) UpdateProfileStatus(ctx context.Context, profileID string) error {
	sub, err := s.SubRepo.GetLiveByProfile(ctx, profileID)
	if err != nil && !ierr.IsNotFound(err) {
		return err
	}
	return s.ApplySubscription(ctx, profileID, sub)
}

func (s *projectionService) BulkUpdateStatuses(ctx context.Context) (*dto.ProjectionSyncResponse, error) {
	now := time.Now().UTC()
	batchSize := s.Config.Subscription.SweepBatchSize

	var asserted, cleared, failed atomic.Int64

	// pass 1: re-assert the projection for every currently entitled record
	for offset := 0; ; offset += batchSize {
		subs, err := s.SubRepo.List(ctx, subscription.Filter{
			Statuses:     []types.SubscriptionStatus{types.SubscriptionStatusActive, types.SubscriptionStatusTrial},
			ExpiresAfter: &now,
			Limit:        batchSize,
			Offset:       offset,
		})
		if err != nil {
			return nil, err
		}

		p := pool.New().WithMaxGoroutines(bulkProjectionWorkers)
		for _, sub := range subs {
			sub := sub
			p.Go(func() {
				if err := s.ApplySubscription(ctx, sub.ProfileID, sub); err != nil {
					failed.Add(1)
					s.Logger.WithContext(ctx).Errorw("projection assert failed",
						"profile_id", sub.ProfileID,
						"subscription_id", sub.ID,
						"error", err)
					return
				}
				asserted.Add(1)
			})
		}
		p.Wait()

		if len(subs) < batchSize {
			break
		}
	}

	// pass 2: clear profiles flagged premium with no entitled subscription
	for offset := 0; ; offset += batchSize {
		ids, err := s.ProfileRepo.ListFlaggedPremium(ctx, batchSize, offset)
		if err != nil {
			return nil, err
		}

		p := pool.New().WithMaxGoroutines(bulkProjectionWorkers)
		for _, id := range ids {
			id := id
			p.Go(func() {
				sub, err := s.SubRepo.GetLiveByProfile(ctx, id)
				if err != nil && !ierr.IsNotFound(err) {
					failed.Add(1)
					s.Logger.WithContext(ctx).Errorw("projection lookup failed",
						"profile_id", id, "error", err)
					return
				}
				if sub != nil && sub.IsEntitledAt(now) && sub.PlanID.IsPremiumTier() {
					return
				}
				if err := s.ApplySubscription(ctx, id, sub); err != nil {
					failed.Add(1)
					s.Logger.WithContext(ctx).Errorw("projection clear failed",
						"profile_id", id, "error", err)
					return
				}
				cleared.Add(1)
			})
		}
		p.Wait()

		if len(ids) < batchSize {
			break
		}
	}

	resp := &dto.ProjectionSyncResponse{
		Asserted: int(asserted.Load()),
		Cleared:  int(cleared.Load()),
		Failed:   int(failed.Load()),
	}
	s.Logger.WithContext(ctx).Infow("projection reconciliation finished",
		"asserted", resp.Asserted,
		"cleared", resp.Cleared,
		"failed", resp.Failed)
	return resp, nil
}

func (s *projectionService) ValidateProfileStatus(ctx context.Context, profileID string) (*dto.ValidateProjectionResponse, error) {
	prof, err := s.ProfileRepo.Get(ctx, profileID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	sub, err := s.SubRepo.GetLiveByProfile(ctx, profileID)
	if err != nil && !ierr.IsNotFound(err) {
		return nil, err
	}

	var mismatches []dto.ProjectionMismatch
	add := func(kind dto.MismatchKind, detail string) {
		mismatches = append(mismatches, dto.ProjectionMismatch{ProfileID: profileID, Kind: kind, Detail: detail})
	}

	entitledPremium := sub != nil && sub.IsEntitledAt(now) && sub.PlanID.IsPremiumTier()

	switch {
	case prof.IsPremium && sub == nil:
		add(dto.MismatchFlaggedWithoutSubscription, "profile is flagged premium but holds no live subscription")
	case prof.IsPremium && !entitledPremium:
		add(dto.MismatchFlaggedWithoutSubscription,
			fmt.Sprintf("profile is flagged premium but its subscription is %s", sub.Status))
	case !prof.IsPremium && entitledPremium:
		add(dto.MismatchEntitledButNotFlagged,
			fmt.Sprintf("subscription %s entitles plan %s but the profile is not flagged", sub.ID, sub.PlanID))
	}

	if prof.IsPremium && prof.PremiumUntil != nil && prof.PremiumUntil.Before(now) {
		add(dto.MismatchPremiumWindowElapsed,
			fmt.Sprintf("premium window ended %s but the flag is still set", prof.PremiumUntil.Format(time.RFC3339)))
	}
	if entitledPremium && prof.IsPremium && prof.SubscriptionPlan != sub.PlanID {
		add(dto.MismatchPlanOutOfSync,
			fmt.Sprintf("profile records plan %s, subscription is on %s", prof.SubscriptionPlan, sub.PlanID))
	}

	return &dto.ValidateProjectionResponse{
		ProfileID:  profileID,
		Consistent: len(mismatches) == 0,
		Mismatches: mismatches,
	}, nil
}
