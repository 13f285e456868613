package models

import (
	"time"

	"github.com/google/uuid"
)

// Integration providers
const (
	ProviderMeta = "meta"
)

// Integration is a connected ad platform account for a user. One row per
// (user, provider); reconnecting overwrites the stored token and accounts.
type Integration struct {
	ID   uint      `gorm:"primaryKey" json:"id"`
	UUID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uk_integrations_uuid" json:"uuid"`

	UserID   uint   `gorm:"not null;uniqueIndex:uk_integrations_user_provider" json:"user_id"`
	Provider string `gorm:"size:32;not null;uniqueIndex:uk_integrations_user_provider" json:"provider"`

	AccessToken string     `gorm:"size:1024;not null" json:"-"` // Never serialize the platform token
	TokenType   *string    `gorm:"size:32" json:"token_type,omitempty"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`

	AdAccounts        AdAccountList `gorm:"type:text" json:"ad_accounts"`
	SelectedAdAccount *string       `gorm:"size:64" json:"selected_ad_account,omitempty"`

	ConnectedAt time.Time `json:"connected_at"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (Integration) TableName() string {
	return "integrations"
}

// IntegrationFilter represents filter criteria for integration queries
type IntegrationFilter struct {
	ID       *uint
	UUID     *uuid.UUID
	UserID   *uint
	Provider *string
}

// HasSelectedAccount reports whether the user picked an ad account yet.
func (i *Integration) HasSelectedAccount() bool {
	return i.SelectedAdAccount != nil && *i.SelectedAdAccount != ""
}

// FindAccount looks up an ad account by either its act_ id or bare account id.
func (i *Integration) FindAccount(id string) *AdAccount {
	for idx := range i.AdAccounts {
		acc := &i.AdAccounts[idx]
		if acc.ID == id || acc.AccountID == id {
			return acc
		}
	}
	return nil
}
