// Package testing provides test utilities and database setup for the AdGenius backend
package testing

import (
	"fmt"
	"math/rand"

	"github.com/adgenius-ai/adgenius/models"
	"github.com/adgenius-ai/adgenius/utils"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// TestFixtures provides helper methods for creating test data
type TestFixtures struct {
	DB *TestDB
}

// NewTestFixtures creates a new test fixtures instance
func NewTestFixtures(db *TestDB) *TestFixtures {
	return &TestFixtures{DB: db}
}

// CreateTestUser creates an active user with a bcrypt-hashed password
func (tf *TestFixtures) CreateTestUser() (*models.User, error) {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte("TestPass123"), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		UUID:         uuid.New(),
		Email:        fmt.Sprintf("jane.doe.%09d@example.com", rand.Intn(900000000)+100000000),
		PasswordHash: string(hashedPassword),
		FullName:     utils.ToPtr("Jane Doe"),
		IsActive:     utils.ToPtr(true),
	}

	if err := tf.DB.DB.Create(user).Error; err != nil {
		return nil, fmt.Errorf("failed to create test user: %w", err)
	}

	return user, nil
}

// CreateTestIntegration creates a connected Meta integration for the user with
// two ad accounts, the first one selected.
func (tf *TestFixtures) CreateTestIntegration(userID uint) (*models.Integration, error) {
	integration := &models.Integration{
		UUID:        uuid.New(),
		UserID:      userID,
		Provider:    models.ProviderMeta,
		AccessToken: "test-access-token",
		TokenType:   utils.ToPtr("bearer"),
		AdAccounts: models.AdAccountList{
			{ID: "act_123", AccountID: "123", Name: "Primary Account", Currency: "USD"},
			{ID: "act_456", AccountID: "456", Name: "Secondary Account", Currency: "EUR"},
		},
		SelectedAdAccount: utils.ToPtr("act_123"),
		ConnectedAt:       utils.UTCNow(),
	}

	if err := tf.DB.DB.Create(integration).Error; err != nil {
		return nil, fmt.Errorf("failed to create test integration: %w", err)
	}

	return integration, nil
}

// CreateTestBusinessProfile creates a filled-in business profile for the user
func (tf *TestFixtures) CreateTestBusinessProfile(userID uint) (*models.BusinessProfile, error) {
	profile := &models.BusinessProfile{
		UserID:       userID,
		BusinessName: utils.ToPtr("Acme Outfitters"),
		Industry:     utils.ToPtr("ecommerce"),
		Objective:    utils.ToPtr("sales"),
		WebsiteURL:   utils.ToPtr("https://acme.example.com"),
	}

	if err := tf.DB.DB.Create(profile).Error; err != nil {
		return nil, fmt.Errorf("failed to create test business profile: %w", err)
	}

	return profile, nil
}

// CreateTestChatMessage appends one chat turn to a session
func (tf *TestFixtures) CreateTestChatMessage(userID uint, sessionID uuid.UUID, role, content string) (*models.ChatMessage, error) {
	message := &models.ChatMessage{
		UUID:      uuid.New(),
		UserID:    userID,
		SessionID: sessionID,
		Role:      role,
		Content:   content,
	}

	if err := tf.DB.DB.Create(message).Error; err != nil {
		return nil, fmt.Errorf("failed to create test chat message: %w", err)
	}

	return message, nil
}
