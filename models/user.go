// Package models contains domain entities and business models for the AdGenius backend
package models

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID   uint      `gorm:"primaryKey" json:"id"`
	UUID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uk_users_uuid" json:"uuid"`

	Email        string  `gorm:"size:255;not null;uniqueIndex:idx_users_email" json:"email"`
	PasswordHash string  `gorm:"size:255;not null" json:"-"` // Never serialize password hash
	FullName     *string `gorm:"size:255" json:"full_name,omitempty"`

	IsActive *bool `gorm:"default:true;index:idx_users_is_active" json:"is_active"`

	CreatedAt   time.Time  `gorm:"index:idx_users_created_at" json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`

	// Relations
	BusinessProfile *BusinessProfile `gorm:"foreignKey:UserID" json:"business_profile,omitempty"`
	Integrations    []Integration    `gorm:"foreignKey:UserID" json:"-"`
	ChatMessages    []ChatMessage    `gorm:"foreignKey:UserID" json:"-"`
}

func (User) TableName() string {
	return "users"
}

// UserFilter represents filter criteria for user queries
type UserFilter struct {
	ID            *uint
	UUID          *uuid.UUID
	Email         *string
	IsActive      *bool
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
}
