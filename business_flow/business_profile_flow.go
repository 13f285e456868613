package businessflow

import (
	"context"

	"github.com/adgenius-ai/adgenius/app/dto"
	"github.com/adgenius-ai/adgenius/models"
	"github.com/adgenius-ai/adgenius/repository"
	"gorm.io/gorm"
)

// BusinessProfileFlow handles the onboarding business profile
type BusinessProfileFlow interface {
	Get(ctx context.Context, userID uint) (*dto.BusinessProfileDTO, error)
	Upsert(ctx context.Context, userID uint, req *dto.BusinessProfileRequest, metadata *ClientMetadata) (*dto.BusinessProfileDTO, error)
}

// BusinessProfileFlowImpl implements the business profile flow
type BusinessProfileFlowImpl struct {
	profileRepo repository.BusinessProfileRepository
	db          *gorm.DB
}

// NewBusinessProfileFlow creates a new business profile flow instance
func NewBusinessProfileFlow(profileRepo repository.BusinessProfileRepository, db *gorm.DB) BusinessProfileFlow {
	return &BusinessProfileFlowImpl{
		profileRepo: profileRepo,
		db:          db,
	}
}

// Get returns the user's business profile. A user who hasn't finished
// onboarding gets an empty profile rather than an error.
func (f *BusinessProfileFlowImpl) Get(ctx context.Context, userID uint) (*dto.BusinessProfileDTO, error) {
	profile, err := f.profileRepo.ByUserID(ctx, userID)
	if err != nil {
		return nil, NewBusinessError("PROFILE_LOOKUP_FAILED", "Failed to load business profile", err)
	}
	if profile == nil {
		return &dto.BusinessProfileDTO{}, nil
	}

	result := ToBusinessProfileDTO(*profile)
	return &result, nil
}

// Upsert stores the onboarding answers, overwriting any previous ones. Only
// fields present in the request change; omitted fields keep their values.
func (f *BusinessProfileFlowImpl) Upsert(ctx context.Context, userID uint, req *dto.BusinessProfileRequest, metadata *ClientMetadata) (*dto.BusinessProfileDTO, error) {
	var profile *models.BusinessProfile

	err := repository.WithTransaction(ctx, f.db, func(txCtx context.Context) error {
		existing, err := f.profileRepo.ByUserID(txCtx, userID)
		if err != nil {
			return err
		}

		if existing == nil {
			existing = &models.BusinessProfile{UserID: userID}
		}

		if req.BusinessName != nil {
			existing.BusinessName = req.BusinessName
		}
		if req.Industry != nil {
			existing.Industry = req.Industry
		}
		if req.Objective != nil {
			existing.Objective = req.Objective
		}
		if req.WebsiteURL != nil {
			existing.WebsiteURL = req.WebsiteURL
		}

		profile = existing
		return f.profileRepo.Upsert(txCtx, existing)
	})
	if err != nil {
		return nil, NewBusinessError("PROFILE_SAVE_FAILED", "Failed to save business profile", err)
	}

	result := ToBusinessProfileDTO(*profile)
	return &result, nil
}
