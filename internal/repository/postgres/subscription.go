package postgres

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	domainsub "github.com/spahub/billing/internal/domain/subscription"
	ierr "github.com/spahub/billing/internal/errors"
	"github.com/spahub/billing/internal/logger"
	"github.com/spahub/billing/internal/postgres"
	"github.com/spahub/billing/internal/types"
)

// effectiveExpiry is the SQL expression for a subscription's real deadline:
// trial records expire at trial_ends_at, everything else at end_date
const effectiveExpiry = "(CASE WHEN status = 'trial' THEN trial_ends_at ELSE end_date END)"

type subscriptionRow struct {
	ID                 string          `gorm:"column:id;primaryKey"`
	ProfileID          string          `gorm:"column:profile_id;index"`
	Plan               string          `gorm:"column:plan"`
	Status             string          `gorm:"column:status;index"`
	Price              decimal.Decimal `gorm:"column:price;type:numeric(14,2)"`
	PeriodMonths       int             `gorm:"column:period_months"`
	StartDate          time.Time       `gorm:"column:start_date"`
	EndDate            *time.Time      `gorm:"column:end_date"`
	TrialEndsAt        *time.Time      `gorm:"column:trial_ends_at"`
	CancelledAt        *time.Time      `gorm:"column:cancelled_at"`
	CancellationReason string          `gorm:"column:cancellation_reason"`
	AutoRenew          bool            `gorm:"column:auto_renew"`
	PaymentMethod      string          `gorm:"column:payment_method"`
	TransactionID      string          `gorm:"column:transaction_id"`
	Metadata           types.Metadata  `gorm:"column:metadata;type:jsonb;serializer:json"`
	RecordStatus       string          `gorm:"column:record_status"`
	CreatedAt          time.Time       `gorm:"column:created_at"`
	UpdatedAt          time.Time       `gorm:"column:updated_at"`
	CreatedBy          string          `gorm:"column:created_by"`
	UpdatedBy          string          `gorm:"column:updated_by"`
}

func (subscriptionRow) TableName() string {
	return string(types.TableNameSubscriptions)
}

type historyRow struct {
	ID             string    `gorm:"column:id;primaryKey"`
	SubscriptionID string    `gorm:"column:subscription_id;index"`
	Action         string    `gorm:"column:action;index"`
	Note           string    `gorm:"column:note"`
	Plan           string    `gorm:"column:plan"`
	Status         string    `gorm:"column:status"`
	CreatedAt      time.Time `gorm:"column:created_at"`
	CreatedBy      string    `gorm:"column:created_by"`
}

func (historyRow) TableName() string {
	return string(types.TableNameSubscriptionHistory)
}

func toSubscriptionRow(s *domainsub.Subscription) *subscriptionRow {
	return &subscriptionRow{
		ID:                 s.ID,
		ProfileID:          s.ProfileID,
		Plan:               s.PlanID.String(),
		Status:             s.Status.String(),
		Price:              s.Price,
		PeriodMonths:       s.PeriodMonths,
		StartDate:          s.StartDate,
		EndDate:            s.EndDate,
		TrialEndsAt:        s.TrialEndsAt,
		CancelledAt:        s.CancelledAt,
		CancellationReason: s.CancellationReason,
		AutoRenew:          s.AutoRenew,
		PaymentMethod:      s.PaymentMethod,
		TransactionID:      s.TransactionID,
		Metadata:           s.Metadata,
		RecordStatus:       string(s.BaseModel.Status),
		CreatedAt:          s.BaseModel.CreatedAt,
		UpdatedAt:          s.BaseModel.UpdatedAt,
		CreatedBy:          s.BaseModel.CreatedBy,
		UpdatedBy:          s.BaseModel.UpdatedBy,
	}
}

// FromRow converts a stored row back to the domain model
func fromSubscriptionRow(r *subscriptionRow) *domainsub.Subscription {
	if r == nil {
		return nil
	}
	return &domainsub.Subscription{
		ID:                 r.ID,
		ProfileID:          r.ProfileID,
		PlanID:             types.PlanID(r.Plan),
		Status:             types.SubscriptionStatus(r.Status),
		Price:              r.Price,
		PeriodMonths:       r.PeriodMonths,
		StartDate:          r.StartDate,
		EndDate:            r.EndDate,
		TrialEndsAt:        r.TrialEndsAt,
		CancelledAt:        r.CancelledAt,
		CancellationReason: r.CancellationReason,
		AutoRenew:          r.AutoRenew,
		PaymentMethod:      r.PaymentMethod,
		TransactionID:      r.TransactionID,
		Metadata:           r.Metadata,
		BaseModel: types.BaseModel{
			Status:    types.Status(r.RecordStatus),
			CreatedAt: r.CreatedAt,
			UpdatedAt: r.UpdatedAt,
			CreatedBy: r.CreatedBy,
			UpdatedBy: r.UpdatedBy,
		},
	}
}

func fromSubscriptionRows(rows []*subscriptionRow) []*domainsub.Subscription {
	result := make([]*domainsub.Subscription, len(rows))
	for i, r := range rows {
		result[i] = fromSubscriptionRow(r)
	}
	return result
}

type subscriptionRepository struct {
	client postgres.IClient
	logger *logger.Logger
}

// NewSubscriptionRepository creates a gorm-backed subscription repository
func NewSubscriptionRepository(client postgres.IClient, logger *logger.Logger) domainsub.Repository {
	return &subscriptionRepository{client: client, logger: logger}
}

func (r *subscriptionRepository) Create(ctx context.Context, sub *domainsub.Subscription) error {
	r.logger.Debugw("creating subscription", "subscription_id", sub.ID, "profile_id", sub.ProfileID)

	span := StartRepositorySpan(ctx, "subscription", "create", map[string]interface{}{
		"subscription_id": sub.ID,
		"profile_id":      sub.ProfileID,
	})
	defer FinishSpan(span)

	if err := sub.Validate(); err != nil {
		SetSpanError(span, err)
		return err
	}

	db := r.client.Querier(ctx)
	if err := db.Create(toSubscriptionRow(sub)).Error; err != nil {
		SetSpanError(span, err)
		return ierr.WithError(err).
			WithHint("Failed to create subscription").
			WithReportableDetails(map[string]interface{}{
				"subscription_id": sub.ID,
				"profile_id":      sub.ProfileID,
			}).
			Mark(ierr.ErrDatabase)
	}

	SetSpanSuccess(span)
	return nil
}

func (r *subscriptionRepository) Get(ctx context.Context, id string) (*domainsub.Subscription, error) {
	span := StartRepositorySpan(ctx, "subscription", "get", map[string]interface{}{
		"subscription_id": id,
	})
	defer FinishSpan(span)

	var row subscriptionRow
	err := r.client.Querier(ctx).Where("id = ?", id).First(&row).Error
	if err != nil {
		SetSpanError(span, err)
		if err == gorm.ErrRecordNotFound {
			return nil, ierr.NewErrorf("subscription %s not found", id).
				WithHint("Subscription does not exist").
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to get subscription").
			Mark(ierr.ErrDatabase)
	}

	SetSpanSuccess(span)
	return fromSubscriptionRow(&row), nil
}

func (r *subscriptionRepository) GetForUpdate(ctx context.Context, id string) (*domainsub.Subscription, error) {
	span := StartRepositorySpan(ctx, "subscription", "get_for_update", map[string]interface{}{
		"subscription_id": id,
	})
	defer FinishSpan(span)

	var row subscriptionRow
	err := r.client.Querier(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&row).Error
	if err != nil {
		SetSpanError(span, err)
		if err == gorm.ErrRecordNotFound {
			return nil, ierr.NewErrorf("subscription %s not found", id).
				WithHint("Subscription does not exist").
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to lock subscription").
			Mark(ierr.ErrDatabase)
	}

	SetSpanSuccess(span)
	return fromSubscriptionRow(&row), nil
}

func (r *subscriptionRepository) Update(ctx context.Context, sub *domainsub.Subscription) error {
	r.logger.Debugw("updating subscription", "subscription_id", sub.ID, "status", sub.Status)

	span := StartRepositorySpan(ctx, "subscription", "update", map[string]interface{}{
		"subscription_id": sub.ID,
	})
	defer FinishSpan(span)

	if err := sub.Validate(); err != nil {
		SetSpanError(span, err)
		return err
	}

	sub.UpdatedAt = time.Now().UTC()
	res := r.client.Querier(ctx).
		Model(&subscriptionRow{}).
		Where("id = ?", sub.ID).
		Select("*").
		Omit("id", "created_at", "created_by").
		Updates(toSubscriptionRow(sub))
	if res.Error != nil {
		SetSpanError(span, res.Error)
		return ierr.WithError(res.Error).
			WithHint("Failed to update subscription").
			Mark(ierr.ErrDatabase)
	}
	if res.RowsAffected == 0 {
		return ierr.NewErrorf("subscription %s not found", sub.ID).
			Mark(ierr.ErrNotFound)
	}

	SetSpanSuccess(span)
	return nil
}

func (r *subscriptionRepository) GetLiveByProfile(ctx context.Context, profileID string) (*domainsub.Subscription, error) {
	span := StartRepositorySpan(ctx, "subscription", "get_live_by_profile", map[string]interface{}{
		"profile_id": profileID,
	})
	defer FinishSpan(span)

	var row subscriptionRow
	err := r.client.Querier(ctx).
		Where("profile_id = ? AND status IN ?", profileID, liveStatuses()).
		Order("created_at DESC").
		First(&row).Error
	if err != nil {
		SetSpanError(span, err)
		if err == gorm.ErrRecordNotFound {
			return nil, ierr.NewErrorf("no live subscription for profile %s", profileID).
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to get live subscription").
			Mark(ierr.ErrDatabase)
	}

	SetSpanSuccess(span)
	return fromSubscriptionRow(&row), nil
}

func (r *subscriptionRepository) ListLiveByProfile(ctx context.Context, profileID string) ([]*domainsub.Subscription, error) {
	span := StartRepositorySpan(ctx, "subscription", "list_live_by_profile", map[string]interface{}{
		"profile_id": profileID,
	})
	defer FinishSpan(span)

	var rows []*subscriptionRow
	err := r.client.Querier(ctx).
		Where("profile_id = ? AND status IN ?", profileID, liveStatuses()).
		Order("created_at DESC").
		Find(&rows).Error
	if err != nil {
		SetSpanError(span, err)
		return nil, ierr.WithError(err).
			WithHint("Failed to list live subscriptions").
			Mark(ierr.ErrDatabase)
	}

	SetSpanSuccess(span)
	return fromSubscriptionRows(rows), nil
}

func (r *subscriptionRepository) HasEverTrialed(ctx context.Context, profileID string) (bool, error) {
	span := StartRepositorySpan(ctx, "subscription", "has_ever_trialed", map[string]interface{}{
		"profile_id": profileID,
	})
	defer FinishSpan(span)

	var count int64
	err := r.client.Querier(ctx).
		Model(&subscriptionRow{}).
		Where("profile_id = ? AND (status = ? OR trial_ends_at IS NOT NULL)",
			profileID, types.SubscriptionStatusTrial.String()).
		Count(&count).Error
	if err != nil {
		SetSpanError(span, err)
		return false, ierr.WithError(err).
			WithHint("Failed to check trial history").
			Mark(ierr.ErrDatabase)
	}

	SetSpanSuccess(span)
	return count > 0, nil
}

func applyFilter(db *gorm.DB, filter domainsub.Filter) *gorm.DB {
	if filter.ProfileID != "" {
		db = db.Where("profile_id = ?", filter.ProfileID)
	}
	if filter.PlanID != "" {
		db = db.Where("plan = ?", filter.PlanID.String())
	}
	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, s := range filter.Statuses {
			statuses[i] = s.String()
		}
		db = db.Where("status IN ?", statuses)
	}
	if filter.ExpiresBefore != nil {
		db = db.Where(effectiveExpiry+" < ?", *filter.ExpiresBefore)
	}
	if filter.ExpiresAfter != nil {
		db = db.Where(effectiveExpiry+" > ?", *filter.ExpiresAfter)
	}
	if filter.CreatedAfter != nil {
		db = db.Where("created_at >= ?", *filter.CreatedAfter)
	}
	if filter.CreatedBefore != nil {
		db = db.Where("created_at < ?", *filter.CreatedBefore)
	}
	if filter.CancelledAfter != nil {
		db = db.Where("cancelled_at >= ?", *filter.CancelledAfter)
	}
	if filter.CancelledBefore != nil {
		db = db.Where("cancelled_at < ?", *filter.CancelledBefore)
	}
	if filter.AutoRenew != nil {
		db = db.Where("auto_renew = ?", *filter.AutoRenew)
	}
	if filter.HasPaymentMethod != nil {
		if *filter.HasPaymentMethod {
			db = db.Where("payment_method <> ''")
		} else {
			db = db.Where("payment_method = ''")
		}
	}
	return db
}

func (r *subscriptionRepository) List(ctx context.Context, filter domainsub.Filter) ([]*domainsub.Subscription, error) {
	span := StartRepositorySpan(ctx, "subscription", "list", nil)
	defer FinishSpan(span)

	db := applyFilter(r.client.Querier(ctx).Model(&subscriptionRow{}), filter).
		Order("created_at ASC")
	if filter.Limit > 0 {
		db = db.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		db = db.Offset(filter.Offset)
	}

	var rows []*subscriptionRow
	if err := db.Find(&rows).Error; err != nil {
		SetSpanError(span, err)
		return nil, ierr.WithError(err).
			WithHint("Failed to list subscriptions").
			Mark(ierr.ErrDatabase)
	}

	SetSpanSuccess(span)
	return fromSubscriptionRows(rows), nil
}

func (r *subscriptionRepository) Count(ctx context.Context, filter domainsub.Filter) (int64, error) {
	span := StartRepositorySpan(ctx, "subscription", "count", nil)
	defer FinishSpan(span)

	var count int64
	err := applyFilter(r.client.Querier(ctx).Model(&subscriptionRow{}), filter).
		Count(&count).Error
	if err != nil {
		SetSpanError(span, err)
		return 0, ierr.WithError(err).
			WithHint("Failed to count subscriptions").
			Mark(ierr.ErrDatabase)
	}

	SetSpanSuccess(span)
	return count, nil
}

func (r *subscriptionRepository) SumPrice(ctx context.Context, filter domainsub.Filter) (decimal.Decimal, error) {
	span := StartRepositorySpan(ctx, "subscription", "sum_price", nil)
	defer FinishSpan(span)

	var result struct {
		Total decimal.Decimal
	}
	err := applyFilter(r.client.Querier(ctx).Model(&subscriptionRow{}), filter).
		Select("COALESCE(SUM(price), 0) AS total").
		Scan(&result).Error
	if err != nil {
		SetSpanError(span, err)
		return decimal.Zero, ierr.WithError(err).
			WithHint("Failed to sum subscription prices").
			Mark(ierr.ErrDatabase)
	}

	SetSpanSuccess(span)
	return result.Total, nil
}

func (r *subscriptionRepository) ActiveMRR(ctx context.Context) (decimal.Decimal, error) {
	span := StartRepositorySpan(ctx, "subscription", "active_mrr", nil)
	defer FinishSpan(span)

	var result struct {
		MRR decimal.Decimal
	}
	err := r.client.Querier(ctx).
		Model(&subscriptionRow{}).
		Select("COALESCE(SUM(price / period_months), 0) AS mrr").
		Where("status = ? AND period_months > 0", types.SubscriptionStatusActive.String()).
		Scan(&result).Error
	if err != nil {
		SetSpanError(span, err)
		return decimal.Zero, ierr.WithError(err).
			WithHint("Failed to compute MRR").
			Mark(ierr.ErrDatabase)
	}

	SetSpanSuccess(span)
	return result.MRR, nil
}

func (r *subscriptionRepository) AppendHistory(ctx context.Context, entry *domainsub.HistoryEntry) error {
	span := StartRepositorySpan(ctx, "subscription_history", "append", map[string]interface{}{
		"subscription_id": entry.SubscriptionID,
		"action":          entry.Action.String(),
	})
	defer FinishSpan(span)

	row := &historyRow{
		ID:             entry.ID,
		SubscriptionID: entry.SubscriptionID,
		Action:         entry.Action.String(),
		Note:           entry.Note,
		Plan:           entry.PlanID.String(),
		Status:         entry.Status.String(),
		CreatedAt:      entry.CreatedAt,
		CreatedBy:      entry.CreatedBy,
	}
	if err := r.client.Querier(ctx).Create(row).Error; err != nil {
		SetSpanError(span, err)
		return ierr.WithError(err).
			WithHint("Failed to append subscription history").
			WithReportableDetails(map[string]interface{}{
				"subscription_id": entry.SubscriptionID,
				"action":          entry.Action.String(),
			}).
			Mark(ierr.ErrDatabase)
	}

	SetSpanSuccess(span)
	return nil
}

func (r *subscriptionRepository) ListHistory(ctx context.Context, subscriptionID string) ([]*domainsub.HistoryEntry, error) {
	span := StartRepositorySpan(ctx, "subscription_history", "list", map[string]interface{}{
		"subscription_id": subscriptionID,
	})
	defer FinishSpan(span)

	var rows []*historyRow
	err := r.client.Querier(ctx).
		Where("subscription_id = ?", subscriptionID).
		Order("created_at DESC").
		Find(&rows).Error
	if err != nil {
		SetSpanError(span, err)
		return nil, ierr.WithError(err).
			WithHint("Failed to list subscription history").
			Mark(ierr.ErrDatabase)
	}

	entries := make([]*domainsub.HistoryEntry, len(rows))
	for i, row := range rows {
		entries[i] = &domainsub.HistoryEntry{
			ID:             row.ID,
			SubscriptionID: row.SubscriptionID,
			Action:         types.HistoryAction(row.Action),
			Note:           row.Note,
			PlanID:         types.PlanID(row.Plan),
			Status:         types.SubscriptionStatus(row.Status),
			CreatedAt:      row.CreatedAt,
			CreatedBy:      row.CreatedBy,
		}
	}

	SetSpanSuccess(span)
	return entries, nil
}

func (r *subscriptionRepository) HasRecentHistory(ctx context.Context, subscriptionID string, action types.HistoryAction, since time.Time) (bool, error) {
	span := StartRepositorySpan(ctx, "subscription_history", "has_recent", map[string]interface{}{
		"subscription_id": subscriptionID,
		"action":          action.String(),
	})
	defer FinishSpan(span)

	var count int64
	err := r.client.Querier(ctx).
		Model(&historyRow{}).
		Where("subscription_id = ? AND action = ? AND created_at >= ?",
			subscriptionID, action.String(), since).
		Count(&count).Error
	if err != nil {
		SetSpanError(span, err)
		return false, ierr.WithError(err).
			WithHint("Failed to check subscription history").
			Mark(ierr.ErrDatabase)
	}

	SetSpanSuccess(span)
	return count > 0, nil
}

func liveStatuses() []string {
	return []string{
		types.SubscriptionStatusPending.String(),
		types.SubscriptionStatusTrial.String(),
		types.SubscriptionStatusActive.String(),
	}
}
