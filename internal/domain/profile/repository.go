package profile

import (
	"context"

	"github.com/spahub/billing/internal/types"
)

// Repository is the narrow surface consumed from the profile catalog
// collaborator. Reads cover entitlement checks; the only write is the premium
// projection, which this subsystem owns.
type Repository interface {
	Get(ctx context.Context, profileID string) (*Profile, error)
	// GetResourceCount returns the profile's current count for a resource;
	// unknown resources count as zero
	GetResourceCount(ctx context.Context, profileID string, resource types.ResourceType) (int, error)
	// UpdateProjection writes the denormalized premium state onto the profile
	UpdateProjection(ctx context.Context, profileID string, projection Projection) error
	// ListFlaggedPremium returns ids of profiles currently flagged premium,
	// paged; used by the reconciliation job to detect drift
	ListFlaggedPremium(ctx context.Context, limit, offset int) ([]string, error)
}
