package subscription

import (
	"time"

	"github.com/shopspring/decimal"

	ierr "github.com/spahub/billing/internal/errors"
	"github.com/spahub/billing/internal/types"
)

// Subscription is one paid (or trial) period for a profile. A profile may
// accumulate many records over time but holds at most one live record
// (PENDING, TRIAL or ACTIVE) at any instant. Records are never deleted;
// they are financial history.
type Subscription struct {
	ID        string                   `json:"id"`
	ProfileID string                   `json:"profile_id"`
	PlanID    types.PlanID             `json:"plan_id"`
	Status    types.SubscriptionStatus `json:"status"`

	// Price is the computed total for the whole term, in minor currency units
	Price decimal.Decimal `json:"price"`

	// PeriodMonths is zero for trial subscriptions
	PeriodMonths int `json:"period_months"`

	StartDate   time.Time  `json:"start_date"`
	EndDate     *time.Time `json:"end_date,omitempty"`
	TrialEndsAt *time.Time `json:"trial_ends_at,omitempty"`
	CancelledAt *time.Time `json:"cancelled_at,omitempty"`

	CancellationReason string `json:"cancellation_reason,omitempty"`

	AutoRenew     bool   `json:"auto_renew"`
	PaymentMethod string `json:"payment_method,omitempty"`
	TransactionID string `json:"transaction_id,omitempty"`

	// Metadata carries proration notes and payment-update details
	Metadata types.Metadata `json:"metadata,omitempty"`

	types.BaseModel
}

// HistoryEntry is an immutable, append-only audit record of a state-changing
// event on a subscription. Entries are also used for idempotency checks, e.g.
// "was a reminder already sent in the last 3 days".
type HistoryEntry struct {
	ID             string                   `json:"id"`
	SubscriptionID string                   `json:"subscription_id"`
	Action         types.HistoryAction      `json:"action"`
	Note           string                   `json:"note,omitempty"`
	PlanID         types.PlanID             `json:"plan_id"`
	Status         types.SubscriptionStatus `json:"status"`
	CreatedAt      time.Time                `json:"created_at"`
	CreatedBy      string                   `json:"created_by"`
}

// ExpiryDate returns when the subscription runs out: the trial deadline for
// trials, the period end otherwise. Nil when neither is set.
func (s *Subscription) ExpiryDate() *time.Time {
	if s.Status == types.SubscriptionStatusTrial {
		return s.TrialEndsAt
	}
	return s.EndDate
}

// IsLiveAt reports whether the subscription grants entitlements at the given
// instant: a live status whose expiry has not passed.
func (s *Subscription) IsLiveAt(now time.Time) bool {
	if !s.Status.IsLive() {
		return false
	}
	if s.Status == types.SubscriptionStatusPending {
		return true
	}
	expiry := s.ExpiryDate()
	return expiry != nil && expiry.After(now)
}

// IsEntitledAt reports whether the subscription grants premium entitlements:
// ACTIVE or TRIAL and not yet expired. PENDING does not entitle.
func (s *Subscription) IsEntitledAt(now time.Time) bool {
	if s.Status != types.SubscriptionStatusActive && s.Status != types.SubscriptionStatusTrial {
		return false
	}
	expiry := s.ExpiryDate()
	return expiry != nil && expiry.After(now)
}

// RemainingDays returns the number of whole days until expiry, zero when
// already past or when no expiry is set
func (s *Subscription) RemainingDays(now time.Time) int {
	expiry := s.ExpiryDate()
	if expiry == nil || !expiry.After(now) {
		return 0
	}
	return int(expiry.Sub(now).Hours() / 24)
}

// ExpiringWithin reports whether a live subscription's expiry falls inside
// the next `days` days
func (s *Subscription) ExpiringWithin(days int, now time.Time) bool {
	if !s.IsEntitledAt(now) {
		return false
	}
	expiry := s.ExpiryDate()
	return !expiry.After(now.AddDate(0, 0, days))
}

// Validate checks the record invariants before persisting
func (s *Subscription) Validate() error {
	if s.ProfileID == "" {
		return ierr.NewError("profile_id is required").Mark(ierr.ErrValidation)
	}
	if !s.PlanID.Validate() {
		return ierr.NewErrorf("invalid plan %q", s.PlanID).Mark(ierr.ErrValidation)
	}
	if !s.Status.Validate() {
		return ierr.NewErrorf("invalid subscription status %q", s.Status).Mark(ierr.ErrValidation)
	}
	if s.Price.IsNegative() {
		return ierr.NewError("price cannot be negative").Mark(ierr.ErrValidation)
	}
	if s.PeriodMonths < 0 {
		return ierr.NewError("period_months cannot be negative").Mark(ierr.ErrValidation)
	}
	return nil
}
