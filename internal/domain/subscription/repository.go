package subscription

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/spahub/billing/internal/types"
)

// Filter narrows subscription queries. Zero values mean "no constraint".
type Filter struct {
	ProfileID string
	PlanID    types.PlanID
	Statuses  []types.SubscriptionStatus

	// ExpiresBefore/ExpiresAfter match against the effective expiry:
	// trial_ends_at for trials, end_date otherwise
	ExpiresBefore *time.Time
	ExpiresAfter  *time.Time

	CreatedAfter    *time.Time
	CreatedBefore   *time.Time
	CancelledAfter  *time.Time
	CancelledBefore *time.Time

	AutoRenew        *bool
	HasPaymentMethod *bool

	Limit  int
	Offset int
}

// Repository is the persistence surface for subscriptions and their history.
// History is append-only: there is no update or delete for entries.
type Repository interface {
	Create(ctx context.Context, sub *Subscription) error
	Get(ctx context.Context, id string) (*Subscription, error)
	// GetForUpdate fetches the row under a FOR UPDATE lock; callers must be
	// inside a transaction
	GetForUpdate(ctx context.Context, id string) (*Subscription, error)
	Update(ctx context.Context, sub *Subscription) error

	// GetLiveByProfile returns the most recent live (PENDING/TRIAL/ACTIVE)
	// subscription for a profile, or ErrNotFound
	GetLiveByProfile(ctx context.Context, profileID string) (*Subscription, error)
	// ListLiveByProfile returns every live subscription for a profile; more
	// than one indicates invariant drift the Lifecycle Manager repairs
	ListLiveByProfile(ctx context.Context, profileID string) ([]*Subscription, error)
	// HasEverTrialed reports whether the profile has ever consumed its trial:
	// any record with TRIAL status or a non-null trial_ends_at
	HasEverTrialed(ctx context.Context, profileID string) (bool, error)

	List(ctx context.Context, filter Filter) ([]*Subscription, error)
	Count(ctx context.Context, filter Filter) (int64, error)
	SumPrice(ctx context.Context, filter Filter) (decimal.Decimal, error)
	// ActiveMRR computes SUM(price / period_months) over ACTIVE records with
	// a positive period
	ActiveMRR(ctx context.Context) (decimal.Decimal, error)

	AppendHistory(ctx context.Context, entry *HistoryEntry) error
	ListHistory(ctx context.Context, subscriptionID string) ([]*HistoryEntry, error)
	// HasRecentHistory reports whether an entry with the given action exists
	// for the subscription at or after `since`
	HasRecentHistory(ctx context.Context, subscriptionID string, action types.HistoryAction, since time.Time) (bool, error)
}
