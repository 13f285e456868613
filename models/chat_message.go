package models

import (
	"time"

	"github.com/google/uuid"
)

// Chat message roles
const (
	ChatRoleUser      = "user"
	ChatRoleAssistant = "assistant"
)

// ChatMessage is one turn of a user's conversation with the ads agent.
// Messages sharing a SessionID form one conversation thread.
type ChatMessage struct {
	ID   uint      `gorm:"primaryKey" json:"id"`
	UUID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uk_chat_messages_uuid" json:"uuid"`

	UserID    uint      `gorm:"not null;index:idx_chat_messages_user_id" json:"user_id"`
	SessionID uuid.UUID `gorm:"type:uuid;not null;index:idx_chat_messages_session_id" json:"session_id"`

	Role    string  `gorm:"size:16;not null" json:"role"`
	Content string  `gorm:"type:text;not null" json:"content"`
	Tool    *string `gorm:"size:120" json:"tool,omitempty"`

	Metadata JSONMap `gorm:"type:text" json:"metadata,omitempty"`

	CreatedAt time.Time `gorm:"index:idx_chat_messages_created_at" json:"created_at"`
}

func (ChatMessage) TableName() string {
	return "chat_messages"
}

// ChatMessageFilter represents filter criteria for chat message queries
type ChatMessageFilter struct {
	ID            *uint
	UUID          *uuid.UUID
	UserID        *uint
	SessionID     *uuid.UUID
	Role          *string
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
}
