package postgres

import (
	"context"
	"time"

	"gorm.io/gorm"

	domainprofile "github.com/spahub/billing/internal/domain/profile"
	ierr "github.com/spahub/billing/internal/errors"
	"github.com/spahub/billing/internal/logger"
	"github.com/spahub/billing/internal/postgres"
	"github.com/spahub/billing/internal/types"
)

type profileRow struct {
	ID               string     `gorm:"column:id;primaryKey"`
	Email            string     `gorm:"column:email"`
	IsVerified       bool       `gorm:"column:is_verified"`
	IsPremium        bool       `gorm:"column:is_premium;index"`
	PremiumUntil     *time.Time `gorm:"column:premium_until"`
	SubscriptionPlan string     `gorm:"column:subscription_plan"`
}

func (profileRow) TableName() string {
	return string(types.TableNameProfiles)
}

// resourceTables maps metered resources to the catalog tables holding them.
// The catalog owns these tables; this subsystem only counts rows.
var resourceTables = map[types.ResourceType]string{
	types.ResourcePhotos:        "master_photos",
	types.ResourceVideos:        "master_videos",
	types.ResourceServices:      "master_services",
	types.ResourceWorkZones:     "master_work_zones",
	types.ResourceGalleryVideos: "master_gallery_videos",
}

type profileRepository struct {
	client postgres.IClient
	logger *logger.Logger
}

// NewProfileRepository creates the catalog-collaborator repository
func NewProfileRepository(client postgres.IClient, logger *logger.Logger) domainprofile.Repository {
	return &profileRepository{client: client, logger: logger}
}

func (r *profileRepository) Get(ctx context.Context, profileID string) (*domainprofile.Profile, error) {
	span := StartRepositorySpan(ctx, "profile", "get", map[string]interface{}{
		"profile_id": profileID,
	})
	defer FinishSpan(span)

	var row profileRow
	err := r.client.Querier(ctx).Where("id = ?", profileID).First(&row).Error
	if err != nil {
		SetSpanError(span, err)
		if err == gorm.ErrRecordNotFound {
			return nil, ierr.NewErrorf("profile %s not found", profileID).
				WithHint("Profile does not exist").
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to get profile").
			Mark(ierr.ErrDatabase)
	}

	SetSpanSuccess(span)
	return &domainprofile.Profile{
		ID:               row.ID,
		Email:            row.Email,
		IsVerified:       row.IsVerified,
		IsPremium:        row.IsPremium,
		PremiumUntil:     row.PremiumUntil,
		SubscriptionPlan: types.PlanID(row.SubscriptionPlan),
	}, nil
}

func (r *profileRepository) GetResourceCount(ctx context.Context, profileID string, resource types.ResourceType) (int, error) {
	table, ok := resourceTables[resource]
	if !ok {
		// unknown resources count as zero, not an error
		return 0, nil
	}

	span := StartRepositorySpan(ctx, "profile", "get_resource_count", map[string]interface{}{
		"profile_id": profileID,
		"resource":   resource.String(),
	})
	defer FinishSpan(span)

	var count int64
	err := r.client.Querier(ctx).
		Table(table).
		Where("profile_id = ?", profileID).
		Count(&count).Error
	if err != nil {
		SetSpanError(span, err)
		return 0, ierr.WithError(err).
			WithHint("Failed to count profile resources").
			WithReportableDetails(map[string]interface{}{
				"profile_id": profileID,
				"resource":   resource.String(),
			}).
			Mark(ierr.ErrDatabase)
	}

	SetSpanSuccess(span)
	return int(count), nil
}

func (r *profileRepository) UpdateProjection(ctx context.Context, profileID string, projection domainprofile.Projection) error {
	r.logger.Debugw("updating premium projection",
		"profile_id", profileID,
		"is_premium", projection.IsPremium,
		"plan", projection.SubscriptionPlan)

	span := StartRepositorySpan(ctx, "profile", "update_projection", map[string]interface{}{
		"profile_id": profileID,
	})
	defer FinishSpan(span)

	res := r.client.Querier(ctx).
		Model(&profileRow{}).
		Where("id = ?", profileID).
		Updates(map[string]interface{}{
			"is_premium":        projection.IsPremium,
			"premium_until":     projection.PremiumUntil,
			"subscription_plan": projection.SubscriptionPlan.String(),
		})
	if res.Error != nil {
		SetSpanError(span, res.Error)
		return ierr.WithError(res.Error).
			WithHint("Failed to update premium projection").
			Mark(ierr.ErrDatabase)
	}
	if res.RowsAffected == 0 {
		return ierr.NewErrorf("profile %s not found", profileID).
			Mark(ierr.ErrNotFound)
	}

	SetSpanSuccess(span)
	return nil
}

func (r *profileRepository) ListFlaggedPremium(ctx context.Context, limit, offset int) ([]string, error) {
	span := StartRepositorySpan(ctx, "profile", "list_flagged_premium", nil)
	defer FinishSpan(span)

	var ids []string
	err := r.client.Querier(ctx).
		Model(&profileRow{}).
		Where("is_premium = ?", true).
		Order("id ASC").
		Limit(limit).
		Offset(offset).
		Pluck("id", &ids).Error
	if err != nil {
		SetSpanError(span, err)
		return nil, ierr.WithError(err).
			WithHint("Failed to list premium profiles").
			Mark(ierr.ErrDatabase)
	}

	SetSpanSuccess(span)
	return ids, nil
}
