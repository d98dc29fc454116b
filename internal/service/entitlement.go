package service

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/spahub/billing/internal/api/dto"
	"github.com/spahub/billing/internal/cache"
	"github.com/spahub/billing/internal/domain/plan"
	ierr "github.com/spahub/billing/internal/errors"
	"github.com/spahub/billing/internal/types"
)

// recommendationThreshold is the utilization above which an upgrade is suggested
var recommendationThreshold = decimal.NewFromInt(80)

// EntitlementService answers quota and feature questions for a profile from
// its live subscription, falling back to the Free plan when there is none.
// "No subscription" never means "no limits".
type EntitlementService interface {
	CheckLimit(ctx context.Context, req *dto.CheckLimitRequest) (*dto.CheckLimitResponse, error)
	// CanAddResource reports whether adding count more of the resource stays
	// within the plan's quota
	CanAddResource(ctx context.Context, profileID string, resource types.ResourceType, count int) (bool, error)
	CheckFeature(ctx context.Context, req *dto.CheckFeatureRequest) (*dto.CheckFeatureResponse, error)
	// GetPlanRecommendations proposes costlier plans for every resource above
	// 80% utilization
	GetPlanRecommendations(ctx context.Context, profileID string) (*dto.PlanRecommendationsResponse, error)
}

type entitlementService struct {
	ServiceParams
}

func NewEntitlementService(params ServiceParams) EntitlementService {
	return &entitlementService{ServiceParams: params}
}

func entitlementCachePrefix(profileID string) string {
	return fmt.Sprintf("entitlement:%s:", profileID)
}

func entitlementCacheKey(profileID string, resource types.ResourceType) string {
	return entitlementCachePrefix(profileID) + resource.String()
}

// resolvePlan returns the plan backing the profile's entitlements right now
func (s *entitlementService) resolvePlan(ctx context.Context, profileID string) (*plan.Plan, error) {
	sub, err := s.SubRepo.GetLiveByProfile(ctx, profileID)
	if err != nil {
		if ierr.IsNotFound(err) {
			return plan.DefaultPlan(), nil
		}
		return nil, err
	}
	if !sub.IsEntitledAt(time.Now().UTC()) {
		return plan.DefaultPlan(), nil
	}
	return plan.GetPlan(sub.PlanID)
}

func (s *entitlementService) CheckLimit(ctx context.Context, req *dto.CheckLimitRequest) (*dto.CheckLimitResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	key := entitlementCacheKey(req.ProfileID, req.Resource)
	if cached, ok := s.Cache.Get(ctx, key); ok {
		if resp, ok := cache.UnmarshalCacheValue[dto.CheckLimitResponse](cached); ok {
			return resp, nil
		}
	}

	p, err := s.resolvePlan(ctx, req.ProfileID)
	if err != nil {
		return nil, err
	}
	current, err := s.ProfileRepo.GetResourceCount(ctx, req.ProfileID, req.Resource)
	if err != nil {
		return nil, err
	}

	resp := buildLimitInfo(p, req.Resource, current)
	s.Cache.Set(ctx, key, resp, cache.ExpiryEntitlement)
	return resp, nil
}

// buildLimitInfo computes the quota arithmetic for one resource. Unlimited
// quotas report remaining -1, never reached, zero percentage.
func buildLimitInfo(p *plan.Plan, resource types.ResourceType, current int) *dto.CheckLimitResponse {
	limit := p.Limit(resource)
	resp := &dto.CheckLimitResponse{
		Resource:   resource,
		PlanID:     p.ID,
		Limit:      limit,
		Current:    current,
		Percentage: decimal.Zero,
	}

	if limit == types.UnlimitedQuota {
		resp.Remaining = types.UnlimitedQuota
		return resp
	}

	resp.Reached = current >= limit
	if remaining := limit - current; remaining > 0 {
		resp.Remaining = remaining
	}
	if limit > 0 {
		pct := decimal.NewFromInt(int64(current)).
			Div(decimal.NewFromInt(int64(limit))).
			Mul(decimal.NewFromInt(100))
		if pct.GreaterThan(decimal.NewFromInt(100)) {
			pct = decimal.NewFromInt(100)
		}
		resp.Percentage = pct
	} else if current > 0 {
		resp.Percentage = decimal.NewFromInt(100)
	}
	return resp
}

func (s *entitlementService) CanAddResource(ctx context.Context, profileID string, resource types.ResourceType, count int) (bool, error) {
	if count <= 0 {
		return true, nil
	}
	info, err := s.CheckLimit(ctx, &dto.CheckLimitRequest{ProfileID: profileID, Resource: resource})
	if err != nil {
		return false, err
	}
	if info.Unlimited() {
		return true, nil
	}
	return info.Current+count <= info.Limit, nil
}

func (s *entitlementService) CheckFeature(ctx context.Context, req *dto.CheckFeatureRequest) (*dto.CheckFeatureResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	p, err := s.resolvePlan(ctx, req.ProfileID)
	if err != nil {
		return nil, err
	}
	return &dto.CheckFeatureResponse{
		Feature: req.Feature,
		PlanID:  p.ID,
		Allowed: p.HasFeature(req.Feature),
	}, nil
}

func (s *entitlementService) GetPlanRecommendations(ctx context.Context, profileID string) (*dto.PlanRecommendationsResponse, error) {
	current, err := s.resolvePlan(ctx, profileID)
	if err != nil {
		return nil, err
	}

	resp := &dto.PlanRecommendationsResponse{
		ProfileID:       profileID,
		Recommendations: []dto.PlanRecommendation{},
	}

	for _, resource := range types.AllResourceTypes() {
		count, err := s.ProfileRepo.GetResourceCount(ctx, profileID, resource)
		if err != nil {
			return nil, err
		}
		info := buildLimitInfo(current, resource, count)
		if info.Unlimited() || info.Percentage.LessThanOrEqual(recommendationThreshold) {
			continue
		}

		for _, candidate := range plan.AllPlans() {
			if !candidate.MonthlyPrice.GreaterThan(current.MonthlyPrice) {
				continue
			}
			resp.Recommendations = append(resp.Recommendations, dto.PlanRecommendation{
				Resource:    resource,
				CurrentPlan: current.ID,
				Suggested:   candidate.ID,
				Limit:       info.Limit,
				Current:     info.Current,
				Reason: fmt.Sprintf("%s at %s%% of the %s plan limit",
					resource, info.Percentage.Round(0), current.Name),
			})
		}
	}
	return resp, nil
}
