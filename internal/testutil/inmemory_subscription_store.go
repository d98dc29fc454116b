package testutil

import (
	"context"
	"sort"
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/spahub/billing/internal/domain/subscription"
	ierr "github.com/spahub/billing/internal/errors"
	"github.com/spahub/billing/internal/types"
)

// InMemorySubscriptionStore implements subscription.Repository
type InMemorySubscriptionStore struct {
	subs    *InMemoryStore[*subscription.Subscription]
	history *InMemoryStore[*subscription.HistoryEntry]
}

func NewInMemorySubscriptionStore() *InMemorySubscriptionStore {
	return &InMemorySubscriptionStore{
		subs:    NewInMemoryStore[*subscription.Subscription](),
		history: NewInMemoryStore[*subscription.HistoryEntry](),
	}
}

func copySubscription(sub *subscription.Subscription) *subscription.Subscription {
	if sub == nil {
		return nil
	}
	copied := *sub
	copied.Metadata = lo.Assign(types.Metadata{}, sub.Metadata)
	return &copied
}

func copyHistoryEntry(e *subscription.HistoryEntry) *subscription.HistoryEntry {
	if e == nil {
		return nil
	}
	copied := *e
	return &copied
}

func (s *InMemorySubscriptionStore) Create(ctx context.Context, sub *subscription.Subscription) error {
	if sub == nil {
		return ierr.NewError("subscription cannot be nil").
			Mark(ierr.ErrValidation)
	}
	return s.subs.Create(ctx, sub.ID, copySubscription(sub))
}

func (s *InMemorySubscriptionStore) Get(ctx context.Context, id string) (*subscription.Subscription, error) {
	sub, err := s.subs.Get(ctx, id)
	if err != nil {
		return nil, ierr.NewErrorf("subscription %s not found", id).
			Mark(ierr.ErrNotFound)
	}
	return copySubscription(sub), nil
}

func (s *InMemorySubscriptionStore) GetForUpdate(ctx context.Context, id string) (*subscription.Subscription, error) {
	return s.Get(ctx, id)
}

func (s *InMemorySubscriptionStore) Update(ctx context.Context, sub *subscription.Subscription) error {
	if sub == nil {
		return ierr.NewError("subscription cannot be nil").
			Mark(ierr.ErrValidation)
	}
	return s.subs.Update(ctx, sub.ID, copySubscription(sub))
}

func (s *InMemorySubscriptionStore) GetLiveByProfile(ctx context.Context, profileID string) (*subscription.Subscription, error) {
	live := s.subs.List(ctx, func(sub *subscription.Subscription) bool {
		return sub.ProfileID == profileID && sub.Status.IsLive()
	})
	if len(live) == 0 {
		return nil, ierr.NewErrorf("no live subscription for profile %s", profileID).
			Mark(ierr.ErrNotFound)
	}
	sort.Slice(live, func(i, j int) bool {
		return live[i].CreatedAt.After(live[j].CreatedAt)
	})
	return copySubscription(live[0]), nil
}

func (s *InMemorySubscriptionStore) ListLiveByProfile(ctx context.Context, profileID string) ([]*subscription.Subscription, error) {
	live := s.subs.List(ctx, func(sub *subscription.Subscription) bool {
		return sub.ProfileID == profileID && sub.Status.IsLive()
	})
	sortSubscriptions(live)
	return lo.Map(live, func(sub *subscription.Subscription, _ int) *subscription.Subscription {
		return copySubscription(sub)
	}), nil
}

func (s *InMemorySubscriptionStore) HasEverTrialed(ctx context.Context, profileID string) (bool, error) {
	trialed := s.subs.List(ctx, func(sub *subscription.Subscription) bool {
		return sub.ProfileID == profileID &&
			(sub.Status == types.SubscriptionStatusTrial || sub.TrialEndsAt != nil)
	})
	return len(trialed) > 0, nil
}

func (s *InMemorySubscriptionStore) List(ctx context.Context, filter subscription.Filter) ([]*subscription.Subscription, error) {
	matched := s.subs.List(ctx, func(sub *subscription.Subscription) bool {
		return matchesFilter(sub, filter)
	})
	sortSubscriptions(matched)

	if filter.Offset > 0 {
		if filter.Offset >= len(matched) {
			return nil, nil
		}
		matched = matched[filter.Offset:]
	}
	if filter.Limit > 0 && len(matched) > filter.Limit {
		matched = matched[:filter.Limit]
	}
	return lo.Map(matched, func(sub *subscription.Subscription, _ int) *subscription.Subscription {
		return copySubscription(sub)
	}), nil
}

func (s *InMemorySubscriptionStore) Count(ctx context.Context, filter subscription.Filter) (int64, error) {
	filter.Limit = 0
	filter.Offset = 0
	return int64(s.subs.Count(ctx, func(sub *subscription.Subscription) bool {
		return matchesFilter(sub, filter)
	})), nil
}

func (s *InMemorySubscriptionStore) SumPrice(ctx context.Context, filter subscription.Filter) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, sub := range s.subs.List(ctx, func(sub *subscription.Subscription) bool {
		return matchesFilter(sub, filter)
	}) {
		total = total.Add(sub.Price)
	}
	return total, nil
}

func (s *InMemorySubscriptionStore) ActiveMRR(ctx context.Context) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, sub := range s.subs.List(ctx, func(sub *subscription.Subscription) bool {
		return sub.Status == types.SubscriptionStatusActive && sub.PeriodMonths > 0
	}) {
		total = total.Add(sub.Price.Div(decimal.NewFromInt(int64(sub.PeriodMonths))))
	}
	return total, nil
}

func (s *InMemorySubscriptionStore) AppendHistory(ctx context.Context, entry *subscription.HistoryEntry) error {
	if entry == nil {
		return ierr.NewError("history entry cannot be nil").
			Mark(ierr.ErrValidation)
	}
	return s.history.Create(ctx, entry.ID, copyHistoryEntry(entry))
}

func (s *InMemorySubscriptionStore) ListHistory(ctx context.Context, subscriptionID string) ([]*subscription.HistoryEntry, error) {
	entries := s.history.List(ctx, func(e *subscription.HistoryEntry) bool {
		return e.SubscriptionID == subscriptionID
	})
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].CreatedAt.Equal(entries[j].CreatedAt) {
			return entries[i].ID < entries[j].ID
		}
		return entries[i].CreatedAt.Before(entries[j].CreatedAt)
	})
	return lo.Map(entries, func(e *subscription.HistoryEntry, _ int) *subscription.HistoryEntry {
		return copyHistoryEntry(e)
	}), nil
}

func (s *InMemorySubscriptionStore) HasRecentHistory(ctx context.Context, subscriptionID string, action types.HistoryAction, since time.Time) (bool, error) {
	matched := s.history.List(ctx, func(e *subscription.HistoryEntry) bool {
		return e.SubscriptionID == subscriptionID &&
			e.Action == action &&
			!e.CreatedAt.Before(since)
	})
	return len(matched) > 0, nil
}

// CountHistory returns how many entries with the given action exist; tests use
// it for idempotency assertions
func (s *InMemorySubscriptionStore) CountHistory(subscriptionID string, action types.HistoryAction) int {
	return s.history.Count(context.Background(), func(e *subscription.HistoryEntry) bool {
		return e.SubscriptionID == subscriptionID && e.Action == action
	})
}

func (s *InMemorySubscriptionStore) Clear() {
	s.subs.Clear()
	s.history.Clear()
}

func sortSubscriptions(subs []*subscription.Subscription) {
	sort.Slice(subs, func(i, j int) bool {
		if subs[i].CreatedAt.Equal(subs[j].CreatedAt) {
			return subs[i].ID < subs[j].ID
		}
		return subs[i].CreatedAt.Before(subs[j].CreatedAt)
	})
}

func matchesFilter(sub *subscription.Subscription, filter subscription.Filter) bool {
	if filter.ProfileID != "" && sub.ProfileID != filter.ProfileID {
		return false
	}
	if filter.PlanID != "" && sub.PlanID != filter.PlanID {
		return false
	}
	if len(filter.Statuses) > 0 && !lo.Contains(filter.Statuses, sub.Status) {
		return false
	}

	expiry := sub.ExpiryDate()
	if filter.ExpiresBefore != nil && (expiry == nil || !expiry.Before(*filter.ExpiresBefore)) {
		return false
	}
	if filter.ExpiresAfter != nil && (expiry == nil || !expiry.After(*filter.ExpiresAfter)) {
		return false
	}

	if filter.CreatedAfter != nil && sub.CreatedAt.Before(*filter.CreatedAfter) {
		return false
	}
	if filter.CreatedBefore != nil && sub.CreatedAt.After(*filter.CreatedBefore) {
		return false
	}
	if filter.CancelledAfter != nil && (sub.CancelledAt == nil || sub.CancelledAt.Before(*filter.CancelledAfter)) {
		return false
	}
	if filter.CancelledBefore != nil && (sub.CancelledAt == nil || sub.CancelledAt.After(*filter.CancelledBefore)) {
		return false
	}

	if filter.AutoRenew != nil && sub.AutoRenew != *filter.AutoRenew {
		return false
	}
	if filter.HasPaymentMethod != nil && (sub.PaymentMethod != "") != *filter.HasPaymentMethod {
		return false
	}
	return true
}
