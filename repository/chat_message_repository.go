package repository

import (
	"context"
	"fmt"

	"github.com/adgenius-ai/adgenius/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ChatMessageRepositoryImpl implements ChatMessageRepository interface.
type ChatMessageRepositoryImpl struct {
	*BaseRepository[models.ChatMessage, models.ChatMessageFilter]
}

// NewChatMessageRepository creates a new chat message repository.
func NewChatMessageRepository(db *gorm.DB) ChatMessageRepository {
	return &ChatMessageRepositoryImpl{
		BaseRepository: NewBaseRepository[models.ChatMessage, models.ChatMessageFilter](db),
	}
}

// ListBySession retrieves the most recent messages of one session in
// chronological order. A limit of 0 returns the whole session.
func (r *ChatMessageRepositoryImpl) ListBySession(ctx context.Context, userID uint, sessionID uuid.UUID, limit int) ([]*models.ChatMessage, error) {
	rows, err := r.ByFilter(ctx, models.ChatMessageFilter{UserID: &userID, SessionID: &sessionID}, "id DESC", limit, 0)
	if err != nil {
		return nil, err
	}
	// Reverse into chronological order.
	for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
		rows[i], rows[j] = rows[j], rows[i]
	}
	return rows, nil
}

// ListSessions returns the latest message of each session a user owns,
// newest session first.
func (r *ChatMessageRepositoryImpl) ListSessions(ctx context.Context, userID uint) ([]*models.ChatMessage, error) {
	db := r.getDB(ctx)
	var rows []*models.ChatMessage
	err := db.Model(&models.ChatMessage{}).
		Where("user_id = ?", userID).
		Where("id IN (?)", db.Session(&gorm.Session{NewDB: true}).
			Model(&models.ChatMessage{}).
			Select("MAX(id)").
			Where("user_id = ?", userID).
			Group("session_id")).
		Order("id DESC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list chat sessions: %w", err)
	}
	return rows, nil
}

// DeleteSession removes all messages of one session and reports how many
// rows went away.
func (r *ChatMessageRepositoryImpl) DeleteSession(ctx context.Context, userID uint, sessionID uuid.UUID) (int64, error) {
	db := r.getDB(ctx)
	result := db.Where("user_id = ? AND session_id = ?", userID, sessionID).Delete(&models.ChatMessage{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to delete chat session: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// DeleteMessage removes one message the user owns.
func (r *ChatMessageRepositoryImpl) DeleteMessage(ctx context.Context, userID uint, messageID uint) (int64, error) {
	db := r.getDB(ctx)
	result := db.Where("user_id = ? AND id = ?", userID, messageID).Delete(&models.ChatMessage{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to delete chat message: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// DeleteAllSessions wipes the user's entire chat history.
func (r *ChatMessageRepositoryImpl) DeleteAllSessions(ctx context.Context, userID uint) (int64, error) {
	db := r.getDB(ctx)
	result := db.Where("user_id = ?", userID).Delete(&models.ChatMessage{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to delete chat history: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// applyFilter applies filter criteria to a GORM query.
func (r *ChatMessageRepositoryImpl) applyFilter(query *gorm.DB, filter models.ChatMessageFilter) *gorm.DB {
	if filter.ID != nil {
		query = query.Where("id = ?", *filter.ID)
	}
	if filter.UUID != nil {
		query = query.Where("uuid = ?", *filter.UUID)
	}
	if filter.UserID != nil {
		query = query.Where("user_id = ?", *filter.UserID)
	}
	if filter.SessionID != nil {
		query = query.Where("session_id = ?", *filter.SessionID)
	}
	if filter.Role != nil {
		query = query.Where("role = ?", *filter.Role)
	}
	if filter.CreatedAfter != nil {
		query = query.Where("created_at > ?", *filter.CreatedAfter)
	}
	if filter.CreatedBefore != nil {
		query = query.Where("created_at < ?", *filter.CreatedBefore)
	}
	return query
}

// ByFilter retrieves chat messages based on filter criteria.
func (r *ChatMessageRepositoryImpl) ByFilter(ctx context.Context, filter models.ChatMessageFilter, orderBy string, limit, offset int) ([]*models.ChatMessage, error) {
	db := r.getDB(ctx)
	query := db.Model(&models.ChatMessage{})

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

	var rows []*models.ChatMessage
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// Count returns number of chat messages matching filter.
func (r *ChatMessageRepositoryImpl) Count(ctx context.Context, filter models.ChatMessageFilter) (int64, error) {
	db := r.getDB(ctx)
	query := db.Model(&models.ChatMessage{})
	query = r.applyFilter(query, filter)
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Exists checks if any chat messages match the filter.
func (r *ChatMessageRepositoryImpl) Exists(ctx context.Context, filter models.ChatMessageFilter) (bool, error) {
	c, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return c > 0, nil
}
