package repository

import (
	"context"
	"fmt"

	"github.com/adgenius-ai/adgenius/models"
	"github.com/adgenius-ai/adgenius/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// BusinessProfileRepositoryImpl implements BusinessProfileRepository interface.
type BusinessProfileRepositoryImpl struct {
	*BaseRepository[models.BusinessProfile, models.BusinessProfileFilter]
}

// NewBusinessProfileRepository creates a new business profile repository.
func NewBusinessProfileRepository(db *gorm.DB) BusinessProfileRepository {
	return &BusinessProfileRepositoryImpl{
		BaseRepository: NewBaseRepository[models.BusinessProfile, models.BusinessProfileFilter](db),
	}
}

// ByUserID retrieves the business profile for a user.
func (r *BusinessProfileRepositoryImpl) ByUserID(ctx context.Context, userID uint) (*models.BusinessProfile, error) {
	rows, err := r.ByFilter(ctx, models.BusinessProfileFilter{UserID: &userID}, "", 1, 0)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

// Upsert inserts or updates the profile keyed by user id.
func (r *BusinessProfileRepositoryImpl) Upsert(ctx context.Context, profile *models.BusinessProfile) error {
	db := r.getDB(ctx)
	profile.UpdatedAt = utils.UTCNow()
	err := db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"business_name", "industry", "objective", "website_url", "updated_at",
		}),
	}).Create(profile).Error
	if err != nil {
		return fmt.Errorf("failed to upsert business profile: %w", err)
	}
	return nil
}

// applyFilter applies filter criteria to a GORM query.
func (r *BusinessProfileRepositoryImpl) applyFilter(query *gorm.DB, filter models.BusinessProfileFilter) *gorm.DB {
	if filter.ID != nil {
		query = query.Where("id = ?", *filter.ID)
	}
	if filter.UserID != nil {
		query = query.Where("user_id = ?", *filter.UserID)
	}
	return query
}

// ByFilter retrieves business profiles based on filter criteria.
func (r *BusinessProfileRepositoryImpl) ByFilter(ctx context.Context, filter models.BusinessProfileFilter, orderBy string, limit, offset int) ([]*models.BusinessProfile, error) {
	db := r.getDB(ctx)
	query := db.Model(&models.BusinessProfile{})

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

	var rows []*models.BusinessProfile
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// Count returns number of business profiles matching filter.
func (r *BusinessProfileRepositoryImpl) Count(ctx context.Context, filter models.BusinessProfileFilter) (int64, error) {
	db := r.getDB(ctx)
	query := db.Model(&models.BusinessProfile{})
	query = r.applyFilter(query, filter)
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Exists checks if any business profiles match the filter.
func (r *BusinessProfileRepositoryImpl) Exists(ctx context.Context, filter models.BusinessProfileFilter) (bool, error) {
	c, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return c > 0, nil
}
