// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"

	"github.com/adgenius-ai/adgenius/models"
	"github.com/google/uuid"
)

// RepositoryContext key for transaction in context
type contextKey string

const TxContextKey contextKey = "tx"

type Repository[T any, F any] interface {
	ByID(ctx context.Context, id uint) (*T, error)
	ByFilter(ctx context.Context, filter F, orderBy string, limit, offset int) ([]*T, error)
	Save(ctx context.Context, entity *T) error
	SaveBatch(ctx context.Context, entities []*T) error
	Count(ctx context.Context, filter F) (int64, error)
	Exists(ctx context.Context, filter F) (bool, error)
}

// UserRepository defines operations for users
type UserRepository interface {
	Repository[models.User, models.UserFilter]
	ByEmail(ctx context.Context, email string) (*models.User, error)
	ByUUID(ctx context.Context, uuid string) (*models.User, error)
	UpdatePassword(ctx context.Context, userID uint, passwordHash string) error
	TouchLastLogin(ctx context.Context, userID uint) error
}

// BusinessProfileRepository defines operations for business profiles
type BusinessProfileRepository interface {
	Repository[models.BusinessProfile, models.BusinessProfileFilter]
	ByUserID(ctx context.Context, userID uint) (*models.BusinessProfile, error)
	Upsert(ctx context.Context, profile *models.BusinessProfile) error
}

// IntegrationRepository defines operations for ad platform integrations
type IntegrationRepository interface {
	Repository[models.Integration, models.IntegrationFilter]
	ByUserAndProvider(ctx context.Context, userID uint, provider string) (*models.Integration, error)
	Upsert(ctx context.Context, integration *models.Integration) error
	DeleteByUserAndProvider(ctx context.Context, userID uint, provider string) error
}

// ChatMessageRepository defines operations for chat history
type ChatMessageRepository interface {
	Repository[models.ChatMessage, models.ChatMessageFilter]
	ListBySession(ctx context.Context, userID uint, sessionID uuid.UUID, limit int) ([]*models.ChatMessage, error)
	ListSessions(ctx context.Context, userID uint) ([]*models.ChatMessage, error)
	DeleteSession(ctx context.Context, userID uint, sessionID uuid.UUID) (int64, error)
	DeleteMessage(ctx context.Context, userID uint, messageID uint) (int64, error)
	DeleteAllSessions(ctx context.Context, userID uint) (int64, error)
}
