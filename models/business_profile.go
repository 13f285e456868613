package models

import (
	"time"
)

// BusinessProfile holds the onboarding answers that personalize the dashboard
// and the agent's guidance for a user.
type BusinessProfile struct {
	ID     uint `gorm:"primaryKey" json:"id"`
	UserID uint `gorm:"not null;uniqueIndex:uk_business_profiles_user_id" json:"user_id"`

	BusinessName *string `gorm:"size:255" json:"business_name,omitempty"`
	Industry     *string `gorm:"size:120" json:"industry,omitempty"`
	Objective    *string `gorm:"size:120" json:"objective,omitempty"`
	WebsiteURL   *string `gorm:"size:512" json:"website_url,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (BusinessProfile) TableName() string {
	return "business_profiles"
}

// BusinessProfileFilter represents filter criteria for business profile queries
type BusinessProfileFilter struct {
	ID     *uint
	UserID *uint
}
