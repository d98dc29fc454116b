package dto

import (
	"github.com/shopspring/decimal"

	ierr "github.com/spahub/billing/internal/errors"
	"github.com/spahub/billing/internal/types"
	"github.com/spahub/billing/internal/validator"
)

type CheckLimitRequest struct {
	ProfileID string             `json:"profile_id" validate:"required"`
	Resource  types.ResourceType `json:"resource" validate:"required"`
}

func (r *CheckLimitRequest) Validate() error {
	if err := validator.ValidateRequest(r); err != nil {
		return err
	}
	if !r.Resource.Validate() {
		return ierr.NewErrorf("unknown resource %q", r.Resource).
			WithHint("Resource must be one of photos, videos, services, work_zones, gallery_videos").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// CheckLimitResponse reports quota usage for one resource type.
// Unlimited quotas report Limit=-1, Remaining=-1 and Percentage=0.
type CheckLimitResponse struct {
	Resource   types.ResourceType `json:"resource"`
	PlanID     types.PlanID       `json:"plan_id"`
	Limit      int                `json:"limit"`
	Current    int                `json:"current"`
	Remaining  int                `json:"remaining"`
	Reached    bool               `json:"reached"`
	Percentage decimal.Decimal    `json:"percentage"`
}

func (r *CheckLimitResponse) Unlimited() bool {
	return r.Limit == types.UnlimitedQuota
}

type CheckFeatureRequest struct {
	ProfileID string           `json:"profile_id" validate:"required"`
	Feature   types.FeatureKey `json:"feature" validate:"required"`
}

func (r *CheckFeatureRequest) Validate() error {
	return validator.ValidateRequest(r)
}

type CheckFeatureResponse struct {
	Feature types.FeatureKey `json:"feature"`
	PlanID  types.PlanID     `json:"plan_id"`
	Allowed bool             `json:"allowed"`
}

// PlanRecommendation suggests an upgrade when a quota is near or at its cap
type PlanRecommendation struct {
	Resource    types.ResourceType `json:"resource"`
	CurrentPlan types.PlanID       `json:"current_plan"`
	Suggested   types.PlanID       `json:"suggested_plan"`
	Limit       int                `json:"limit"`
	Current     int                `json:"current"`
	Reason      string             `json:"reason"`
}

type PlanRecommendationsResponse struct {
	ProfileID       string               `json:"profile_id"`
	Recommendations []PlanRecommendation `json:"recommendations"`
}
