// Package dto contains data transfer objects for API requests and responses
package dto

import (
	"time"

	"github.com/adgenius-ai/adgenius/models"
)

// APIResponse represents the standard API response structure
type APIResponse struct {
	Success bool         `json:"success"`
	Message string       `json:"message,omitempty"`
	Data    any          `json:"data,omitempty"`
	Error   *ErrorDetail `json:"error,omitempty"`
}

// ErrorDetail carries machine-readable error information
type ErrorDetail struct {
	Code    string `json:"code"`
	Details any    `json:"details,omitempty"`
}

// ---- Auth ----

// SignupRequest registers a new user
type SignupRequest struct {
	Email    string  `json:"email" validate:"required,email,max=255"`
	Password string  `json:"password" validate:"required,min=8,max=128,password_strength"`
	FullName *string `json:"full_name,omitempty" validate:"omitempty,max=255"`
}

// LoginRequest authenticates an existing user
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=1,max=128"`
}

// RefreshTokenRequest trades a refresh token for a new pair
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// AuthUserDTO is the public view of a user
type AuthUserDTO struct {
	ID        uint    `json:"id"`
	UUID      string  `json:"uuid"`
	Email     string  `json:"email"`
	FullName  *string `json:"full_name,omitempty"`
	IsActive  *bool   `json:"is_active"`
	CreatedAt string  `json:"created_at"`
}

// SessionDTO carries issued tokens
type SessionDTO struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
	TokenType    string `json:"token_type"`
}

// SignupResponse is the result of a successful signup
type SignupResponse struct {
	User    AuthUserDTO `json:"user"`
	Session SessionDTO  `json:"session"`
}

// LoginResponse is the result of a successful login
type LoginResponse struct {
	User    AuthUserDTO `json:"user"`
	Session SessionDTO  `json:"session"`
}

// RefreshTokenResponse is the result of a token refresh
type RefreshTokenResponse struct {
	Session SessionDTO `json:"session"`
}

// MeResponse describes the authenticated user and onboarding state
type MeResponse struct {
	User            AuthUserDTO         `json:"user"`
	BusinessProfile *BusinessProfileDTO `json:"business_profile,omitempty"`
	MetaConnected   bool                `json:"meta_connected"`
}

// ---- Business profile ----

// BusinessProfileRequest upserts the onboarding answers
type BusinessProfileRequest struct {
	BusinessName *string `json:"businessName,omitempty" validate:"omitempty,max=255"`
	Industry     *string `json:"industry,omitempty" validate:"omitempty,max=120"`
	Objective    *string `json:"objective,omitempty" validate:"omitempty,max=120"`
	WebsiteURL   *string `json:"websiteUrl,omitempty" validate:"omitempty,max=512,url"`
}

// BusinessProfileDTO is the public view of a business profile
type BusinessProfileDTO struct {
	BusinessName *string `json:"businessName"`
	Industry     *string `json:"industry,omitempty"`
	Objective    *string `json:"objective"`
	WebsiteURL   *string `json:"websiteUrl"`
	UpdatedAt    string  `json:"updatedAt,omitempty"`
}

// ---- OAuth & integrations ----

// OAuthStartResponse hands the authorization URL to the frontend
type OAuthStartResponse struct {
	AuthURL string `json:"authUrl"`
}

// OAuthStatusResponse is the compact connection status
type OAuthStatusResponse struct {
	Connected         bool    `json:"connected"`
	SelectedAdAccount *string `json:"selectedAdAccount"`
	AdAccountCount    int     `json:"adAccountCount"`
}

// MetaSettingsStatusResponse is the full settings-page status
type MetaSettingsStatusResponse struct {
	Connected              bool                 `json:"connected"`
	SelectedAdAccount      *string              `json:"selectedAdAccount"`
	AdAccountCount         int                  `json:"adAccountCount"`
	AdAccounts             models.AdAccountList `json:"adAccounts"`
	SelectedAccountDetails *models.AdAccount    `json:"selectedAccountDetails"`
}

// IntegrationsListResponse lists the user's ad accounts
type IntegrationsListResponse struct {
	AdAccounts models.AdAccountList `json:"adAccounts"`
}

// SelectAccountRequest picks the primary ad account
type SelectAccountRequest struct {
	AccountID string `json:"account_id" validate:"required,max=64"`
}

// SelectAccountResponse confirms the selection
type SelectAccountResponse struct {
	OK              bool              `json:"ok"`
	SelectedAccount *models.AdAccount `json:"selectedAccount"`
}

// DisconnectResponse confirms an integration removal
type DisconnectResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// MaskedTokenResponse exposes only the tail of the stored token
type MaskedTokenResponse struct {
	TokenPreview string     `json:"tokenPreview"`
	TokenType    *string    `json:"tokenType,omitempty"`
	ExpiresAt    *time.Time `json:"expiresAt,omitempty"`
	ConnectedAt  time.Time  `json:"connectedAt"`
}

// ---- Chat ----

// ChatRequest sends one message to the ads agent
type ChatRequest struct {
	Message   string  `json:"message" validate:"required,max=4000"`
	SessionID *string `json:"session_id,omitempty" validate:"omitempty,uuid4"`
}

// ChatResponse is the agent's answer for one message
type ChatResponse struct {
	Success   bool           `json:"success"`
	Tool      *string        `json:"tool"`
	Args      map[string]any `json:"args"`
	Result    any            `json:"result"`
	Reply     string         `json:"reply"`
	SessionID string         `json:"session_id"`
}

// ChatMessageDTO is one stored message of a session
type ChatMessageDTO struct {
	ID        uint    `json:"id"`
	Role      string  `json:"role"`
	Content   string  `json:"content"`
	Tool      *string `json:"tool,omitempty"`
	CreatedAt string  `json:"created_at"`
}

// ChatSessionDTO summarizes one conversation thread
type ChatSessionDTO struct {
	SessionID   string `json:"session_id"`
	LastMessage string `json:"last_message"`
	UpdatedAt   string `json:"updated_at"`
}

// ChatHistoryResponse returns the messages of one session
type ChatHistoryResponse struct {
	SessionID string           `json:"session_id"`
	Messages  []ChatMessageDTO `json:"messages"`
}

// ChatSessionsResponse lists the user's conversation threads
type ChatSessionsResponse struct {
	Sessions []ChatSessionDTO `json:"sessions"`
}

// DeleteSessionResponse confirms a session deletion
type DeleteSessionResponse struct {
	Success bool  `json:"success"`
	Deleted int64 `json:"deleted"`
}

// ---- Dashboard ----

// StatCard is one headline figure of the dashboard
type StatCard struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Value  string `json:"value"`
	Change string `json:"change"`
	Trend  string `json:"trend"`
}

// CampaignRow is one row of the dashboard campaign table
type CampaignRow struct {
	Name        string `json:"name"`
	Status      string `json:"status"`
	Spend       string `json:"spend"`
	ROI         string `json:"roi"`
	ROAS        string `json:"roas,omitempty"`
	Performance string `json:"performance"`
	Message     string `json:"message,omitempty"`
}

// NotificationDTO is one dashboard notification
type NotificationDTO struct {
	ID      int    `json:"id"`
	Type    string `json:"type"`
	Message string `json:"message"`
	Time    string `json:"time"`
}

// RecommendationDTO is one AI recommendation card
type RecommendationDTO struct {
	ID          int    `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Status      string `json:"status"`
	Campaign    string `json:"campaign"`
	Action      string `json:"action"`
	Impact      string `json:"impact"`
}

// DashboardMetaStatus is the integration summary on the dashboard
type DashboardMetaStatus struct {
	Connected         bool    `json:"connected"`
	SelectedAdAccount *string `json:"selectedAdAccount"`
	AdAccountCount    int     `json:"adAccountCount"`
}

// DashboardBusinessSummary is the business profile summary on the dashboard
type DashboardBusinessSummary struct {
	BusinessName *string `json:"businessName"`
	Objective    *string `json:"objective"`
	WebsiteURL   *string `json:"websiteUrl"`
}

// DashboardResponse is the full dashboard payload
type DashboardResponse struct {
	Stats             []StatCard               `json:"stats"`
	Campaigns         []CampaignRow            `json:"campaigns"`
	Notifications     []NotificationDTO        `json:"notifications"`
	AIRecommendations []RecommendationDTO      `json:"aiRecommendations"`
	Meta              DashboardMetaStatus      `json:"meta"`
	Business          DashboardBusinessSummary `json:"business"`
	GeneratedAt       time.Time                `json:"generatedAt"`
}

// CampaignDetailResponse is one campaign with its insights and budgets
type CampaignDetailResponse struct {
	Campaign models.Campaign         `json:"campaign"`
	Insights []models.InsightRecord  `json:"insights"`
	Budgets  []models.CampaignBudget `json:"budgets"`
}

// RecommendationStatusRequest records a user's decision on a recommendation
type RecommendationStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=pending accepted dismissed done"`
}

// RecommendationStatusResponse acknowledges the decision
type RecommendationStatusResponse struct {
	ID      int    `json:"id"`
	Status  string `json:"status"`
	Message string `json:"message"`
}
