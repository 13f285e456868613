// Package businessflow contains the business logic for the application.
package businessflow

import (
	"time"

	"github.com/adgenius-ai/adgenius/app/dto"
	"github.com/adgenius-ai/adgenius/models"
)

const RequestIDKey = "X-Request-ID"

// ClientMetadata holds all client-related information for audit logging and session tracking
type ClientMetadata struct {
	IPAddress  string            `json:"ip_address"`
	UserAgent  string            `json:"user_agent"`
	DeviceInfo map[string]string `json:"device_info,omitempty"`
	Location   *LocationInfo     `json:"location,omitempty"`
	RequestID  string            `json:"request_id,omitempty"`
	SessionID  string            `json:"session_id,omitempty"`
	Additional map[string]string `json:"additional,omitempty"`
}

// LocationInfo holds geographical location information
type LocationInfo struct {
	Country   string `json:"country,omitempty"`
	Region    string `json:"region,omitempty"`
	City      string `json:"city,omitempty"`
	Latitude  string `json:"latitude,omitempty"`
	Longitude string `json:"longitude,omitempty"`
}

// NewClientMetadata creates a new ClientMetadata instance with basic information
func NewClientMetadata(ipAddress, userAgent string) *ClientMetadata {
	return &ClientMetadata{
		IPAddress:  ipAddress,
		UserAgent:  userAgent,
		DeviceInfo: make(map[string]string),
		Additional: make(map[string]string),
	}
}

// AddDeviceInfo adds device information to the metadata
func (cm *ClientMetadata) AddDeviceInfo(key, value string) {
	if cm.DeviceInfo == nil {
		cm.DeviceInfo = make(map[string]string)
	}
	cm.DeviceInfo[key] = value
}

// AddAdditional adds additional custom information to the metadata
func (cm *ClientMetadata) AddAdditional(key, value string) {
	if cm.Additional == nil {
		cm.Additional = make(map[string]string)
	}
	cm.Additional[key] = value
}

// SetLocation sets location information
func (cm *ClientMetadata) SetLocation(location *LocationInfo) {
	cm.Location = location
}

// SetRequestID sets the request ID
func (cm *ClientMetadata) SetRequestID(requestID string) {
	cm.RequestID = requestID
}

// SetSessionID sets the session ID
func (cm *ClientMetadata) SetSessionID(sessionID string) {
	cm.SessionID = sessionID
}

// ToAuthUserDTO converts a user model to AuthUserDTO for authentication responses
func ToAuthUserDTO(user models.User) dto.AuthUserDTO {
	return dto.AuthUserDTO{
		ID:        user.ID,
		UUID:      user.UUID.String(),
		Email:     user.Email,
		FullName:  user.FullName,
		IsActive:  user.IsActive,
		CreatedAt: user.CreatedAt.Format(time.RFC3339),
	}
}

// ToSessionDTO wraps freshly issued tokens in the response shape.
func ToSessionDTO(accessToken, refreshToken string, ttl time.Duration) dto.SessionDTO {
	return dto.SessionDTO{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int(ttl.Seconds()),
		TokenType:    "Bearer",
	}
}

// ToBusinessProfileDTO converts a business profile model to its public view
func ToBusinessProfileDTO(profile models.BusinessProfile) dto.BusinessProfileDTO {
	return dto.BusinessProfileDTO{
		BusinessName: profile.BusinessName,
		Industry:     profile.Industry,
		Objective:    profile.Objective,
		WebsiteURL:   profile.WebsiteURL,
		UpdatedAt:    profile.UpdatedAt.Format(time.RFC3339),
	}
}

// ToChatMessageDTO converts a stored chat message to its public view
func ToChatMessageDTO(msg models.ChatMessage) dto.ChatMessageDTO {
	return dto.ChatMessageDTO{
		ID:        msg.ID,
		Role:      msg.Role,
		Content:   msg.Content,
		Tool:      msg.Tool,
		CreatedAt: msg.CreatedAt.Format(time.RFC3339),
	}
}
