package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/spahub/billing/internal/domain/proration"
	"github.com/spahub/billing/internal/domain/subscription"
	"github.com/spahub/billing/internal/types"
	"github.com/spahub/billing/internal/validator"
)

// PaymentData carries already-validated payment details from the checkout
// flow; this subsystem never charges through it
type PaymentData struct {
	Method        string         `json:"method,omitempty"`
	TransactionID string         `json:"transaction_id,omitempty"`
	Metadata      types.Metadata `json:"metadata,omitempty"`
}

type CreateSubscriptionRequest struct {
	ProfileID    string       `json:"profile_id" validate:"required"`
	PlanID       types.PlanID `json:"plan_id" validate:"required"`
	PeriodMonths int          `json:"period_months" validate:"required,min=1,max=24"`
	AutoRenew    *bool        `json:"auto_renew,omitempty"`
	Payment      PaymentData  `json:"payment,omitempty"`
}

func (r *CreateSubscriptionRequest) Validate() error {
	return validator.ValidateRequest(r)
}

type StartTrialRequest struct {
	ProfileID string       `json:"profile_id" validate:"required"`
	PlanID    types.PlanID `json:"plan_id,omitempty"`
	Days      int          `json:"days,omitempty" validate:"omitempty,min=1,max=90"`
}

func (r *StartTrialRequest) Validate() error {
	return validator.ValidateRequest(r)
}

type ActivateSubscriptionRequest struct {
	SubscriptionID string      `json:"subscription_id" validate:"required"`
	Payment        PaymentData `json:"payment,omitempty"`
}

func (r *ActivateSubscriptionRequest) Validate() error {
	return validator.ValidateRequest(r)
}

type RenewSubscriptionRequest struct {
	SubscriptionID string      `json:"subscription_id" validate:"required"`
	PeriodMonths   *int        `json:"period_months,omitempty" validate:"omitempty,min=1,max=24"`
	Payment        PaymentData `json:"payment,omitempty"`
}

func (r *RenewSubscriptionRequest) Validate() error {
	return validator.ValidateRequest(r)
}

type ChangePlanRequest struct {
	SubscriptionID string       `json:"subscription_id" validate:"required"`
	PlanID         types.PlanID `json:"plan_id" validate:"required"`
}

func (r *ChangePlanRequest) Validate() error {
	return validator.ValidateRequest(r)
}

type CancelSubscriptionRequest struct {
	SubscriptionID string `json:"subscription_id" validate:"required"`
	Reason         string `json:"reason,omitempty"`
	Immediate      bool   `json:"immediate,omitempty"`
}

func (r *CancelSubscriptionRequest) Validate() error {
	return validator.ValidateRequest(r)
}

type SetAutoRenewRequest struct {
	SubscriptionID string `json:"subscription_id" validate:"required"`
	AutoRenew      bool   `json:"auto_renew"`
}

func (r *SetAutoRenewRequest) Validate() error {
	return validator.ValidateRequest(r)
}

// SubscriptionResponse is the external shape of a subscription record
type SubscriptionResponse struct {
	ID                 string                   `json:"id"`
	ProfileID          string                   `json:"profile_id"`
	PlanID             types.PlanID             `json:"plan_id"`
	Status             types.SubscriptionStatus `json:"status"`
	Price              decimal.Decimal          `json:"price"`
	PeriodMonths       int                      `json:"period_months"`
	StartDate          time.Time                `json:"start_date"`
	EndDate            *time.Time               `json:"end_date,omitempty"`
	TrialEndsAt        *time.Time               `json:"trial_ends_at,omitempty"`
	CancelledAt        *time.Time               `json:"cancelled_at,omitempty"`
	CancellationReason string                   `json:"cancellation_reason,omitempty"`
	AutoRenew          bool                     `json:"auto_renew"`
	Metadata           types.Metadata           `json:"metadata,omitempty"`
}

// NewSubscriptionResponse converts a domain subscription to its API shape
func NewSubscriptionResponse(s *subscription.Subscription) *SubscriptionResponse {
	if s == nil {
		return nil
	}
	return &SubscriptionResponse{
		ID:                 s.ID,
		ProfileID:          s.ProfileID,
		PlanID:             s.PlanID,
		Status:             s.Status,
		Price:              s.Price,
		PeriodMonths:       s.PeriodMonths,
		StartDate:          s.StartDate,
		EndDate:            s.EndDate,
		TrialEndsAt:        s.TrialEndsAt,
		CancelledAt:        s.CancelledAt,
		CancellationReason: s.CancellationReason,
		AutoRenew:          s.AutoRenew,
		Metadata:           s.Metadata,
	}
}

// ChangePlanResponse returns the mutated subscription plus the proration audit
type ChangePlanResponse struct {
	Subscription *SubscriptionResponse `json:"subscription"`
	Proration    *proration.Result     `json:"proration"`
}

// SweepResponse reports how many records a batch sweep touched
type SweepResponse struct {
	Processed int `json:"processed"`
}
