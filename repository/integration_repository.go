package repository

import (
	"context"
	"fmt"

	"github.com/adgenius-ai/adgenius/models"
	"github.com/adgenius-ai/adgenius/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// IntegrationRepositoryImpl implements IntegrationRepository interface.
type IntegrationRepositoryImpl struct {
	*BaseRepository[models.Integration, models.IntegrationFilter]
}

// NewIntegrationRepository creates a new integration repository.
func NewIntegrationRepository(db *gorm.DB) IntegrationRepository {
	return &IntegrationRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Integration, models.IntegrationFilter](db),
	}
}

// ByUserAndProvider retrieves the integration for a user and provider.
func (r *IntegrationRepositoryImpl) ByUserAndProvider(ctx context.Context, userID uint, provider string) (*models.Integration, error) {
	rows, err := r.ByFilter(ctx, models.IntegrationFilter{UserID: &userID, Provider: &provider}, "", 1, 0)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

// Upsert inserts or updates the integration keyed by (user_id, provider).
// Reconnecting replaces the stored token, accounts, and selection.
func (r *IntegrationRepositoryImpl) Upsert(ctx context.Context, integration *models.Integration) error {
	db := r.getDB(ctx)
	integration.UpdatedAt = utils.UTCNow()
	err := db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "provider"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"access_token", "token_type", "expires_at",
			"ad_accounts", "selected_ad_account", "connected_at", "updated_at",
		}),
	}).Create(integration).Error
	if err != nil {
		return fmt.Errorf("failed to upsert integration: %w", err)
	}
	return nil
}

// DeleteByUserAndProvider removes the integration row for a user and provider.
func (r *IntegrationRepositoryImpl) DeleteByUserAndProvider(ctx context.Context, userID uint, provider string) error {
	db := r.getDB(ctx)
	result := db.Where("user_id = ? AND provider = ?", userID, provider).Delete(&models.Integration{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete integration: %w", result.Error)
	}
	return nil
}

// applyFilter applies filter criteria to a GORM query.
func (r *IntegrationRepositoryImpl) applyFilter(query *gorm.DB, filter models.IntegrationFilter) *gorm.DB {
	if filter.ID != nil {
		query = query.Where("id = ?", *filter.ID)
	}
	if filter.UUID != nil {
		query = query.Where("uuid = ?", *filter.UUID)
	}
	if filter.UserID != nil {
		query = query.Where("user_id = ?", *filter.UserID)
	}
	if filter.Provider != nil {
		query = query.Where("provider = ?", *filter.Provider)
	}
	return query
}

// ByFilter retrieves integrations based on filter criteria.
func (r *IntegrationRepositoryImpl) ByFilter(ctx context.Context, filter models.IntegrationFilter, orderBy string, limit, offset int) ([]*models.Integration, error) {
	db := r.getDB(ctx)
	query := db.Model(&models.Integration{})

	query = r.applyFilter(query, filter)

	if orderBy == "" {
		orderBy = "id DESC"
	}
	query = query.Order(orderBy)

	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	var rows []*models.Integration
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// Count returns number of integrations matching filter.
func (r *IntegrationRepositoryImpl) Count(ctx context.Context, filter models.IntegrationFilter) (int64, error) {
	db := r.getDB(ctx)
	query := db.Model(&models.Integration{})
	query = r.applyFilter(query, filter)
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Exists checks if any integrations match the filter.
func (r *IntegrationRepositoryImpl) Exists(ctx context.Context, filter models.IntegrationFilter) (bool, error) {
	c, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return c > 0, nil
}
