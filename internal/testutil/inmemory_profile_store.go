package testutil

import (
	"context"
	"sort"
	"sync"

	"github.com/spahub/billing/internal/domain/profile"
	ierr "github.com/spahub/billing/internal/errors"
	"github.com/spahub/billing/internal/types"
)

// InMemoryProfileStore implements profile.Repository with settable resource counts
type InMemoryProfileStore struct {
	profiles *InMemoryStore[*profile.Profile]

	mu     sync.RWMutex
	counts map[string]map[types.ResourceType]int
}

func NewInMemoryProfileStore() *InMemoryProfileStore {
	return &InMemoryProfileStore{
		profiles: NewInMemoryStore[*profile.Profile](),
		counts:   make(map[string]map[types.ResourceType]int),
	}
}

func copyProfile(p *profile.Profile) *profile.Profile {
	if p == nil {
		return nil
	}
	copied := *p
	return &copied
}

// AddProfile seeds a profile for a test
func (s *InMemoryProfileStore) AddProfile(p *profile.Profile) error {
	return s.profiles.Create(context.Background(), p.ID, copyProfile(p))
}

// SetResourceCount seeds a resource count for a test
func (s *InMemoryProfileStore) SetResourceCount(profileID string, resource types.ResourceType, count int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.counts[profileID] == nil {
		s.counts[profileID] = make(map[types.ResourceType]int)
	}
	s.counts[profileID][resource] = count
}

func (s *InMemoryProfileStore) Get(ctx context.Context, profileID string) (*profile.Profile, error) {
	p, err := s.profiles.Get(ctx, profileID)
	if err != nil {
		return nil, ierr.NewErrorf("profile %s not found", profileID).
			Mark(ierr.ErrNotFound)
	}
	return copyProfile(p), nil
}

func (s *InMemoryProfileStore) GetResourceCount(ctx context.Context, profileID string, resource types.ResourceType) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.counts[profileID][resource], nil
}

func (s *InMemoryProfileStore) UpdateProjection(ctx context.Context, profileID string, projection profile.Projection) error {
	p, err := s.profiles.Get(ctx, profileID)
	if err != nil {
		return ierr.NewErrorf("profile %s not found", profileID).
			Mark(ierr.ErrNotFound)
	}

	updated := copyProfile(p)
	updated.IsPremium = projection.IsPremium
	updated.PremiumUntil = projection.PremiumUntil
	updated.SubscriptionPlan = projection.SubscriptionPlan
	return s.profiles.Update(ctx, profileID, updated)
}

func (s *InMemoryProfileStore) ListFlaggedPremium(ctx context.Context, limit, offset int) ([]string, error) {
	flagged := s.profiles.List(ctx, func(p *profile.Profile) bool {
		return p.IsPremium
	})

	ids := make([]string, 0, len(flagged))
	for _, p := range flagged {
		ids = append(ids, p.ID)
	}
	sort.Strings(ids)

	if offset > 0 {
		if offset >= len(ids) {
			return nil, nil
		}
		ids = ids[offset:]
	}
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}

func (s *InMemoryProfileStore) Clear() {
	s.profiles.Clear()
	s.mu.Lock()
	s.counts = make(map[string]map[types.ResourceType]int)
	s.mu.Unlock()
}
