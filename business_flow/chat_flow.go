package businessflow

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/adgenius-ai/adgenius/app/dto"
	"github.com/adgenius-ai/adgenius/app/services"
	"github.com/adgenius-ai/adgenius/models"
	"github.com/adgenius-ai/adgenius/repository"
	"github.com/adgenius-ai/adgenius/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Guidance replies for users who can't chat yet. The agent is never invoked
// on these paths.
const (
	guidanceNotConnected = "It looks like you don't have a Meta Ads account connected yet. " +
		"Please go to the Settings page, connect your Meta Ads account under " +
		"\"Connected Accounts\", and then come back here to ask questions " +
		"about your campaigns."

	guidanceNoAccountSelected = "You are connected to Meta, but no primary ad account is selected yet. " +
		"Please open the Settings page, use the \"Select/Change Account\" option " +
		"under Meta Ads in Connected Accounts, choose an ad account, and then " +
		"return to this chat to ask about your performance."

	agentErrorReply = "Sorry, I ran into a problem answering that. Please try again in a moment."
)

const chatSystemPrompt = "You are an expert Meta Ads assistant. You answer questions about the " +
	"user's ad accounts, campaigns, budgets, and performance using the tools " +
	"available to you. Keep answers concise and grounded in the fetched data."

// ChatFlow handles conversations with the ads agent
type ChatFlow interface {
	Chat(ctx context.Context, userID uint, req *dto.ChatRequest, metadata *ClientMetadata) (*dto.ChatResponse, error)
	History(ctx context.Context, userID uint, sessionID string) (*dto.ChatHistoryResponse, error)
	Sessions(ctx context.Context, userID uint) (*dto.ChatSessionsResponse, error)
	DeleteSession(ctx context.Context, userID uint, sessionID string) (*dto.DeleteSessionResponse, error)
	DeleteMessage(ctx context.Context, userID uint, messageID uint) (*dto.DeleteSessionResponse, error)
	DeleteAllSessions(ctx context.Context, userID uint) (*dto.DeleteSessionResponse, error)
}

// ChatFlowImpl implements the chat flow
type ChatFlowImpl struct {
	chatRepo        repository.ChatMessageRepository
	integrationRepo repository.IntegrationRepository
	agentCache      services.AgentCache
	historyWindow   int
	db              *gorm.DB
}

// NewChatFlow creates a new chat flow instance
func NewChatFlow(
	chatRepo repository.ChatMessageRepository,
	integrationRepo repository.IntegrationRepository,
	agentCache services.AgentCache,
	historyWindow int,
	db *gorm.DB,
) ChatFlow {
	if historyWindow <= 0 {
		historyWindow = utils.ChatHistoryWindow
	}
	return &ChatFlowImpl{
		chatRepo:        chatRepo,
		integrationRepo: integrationRepo,
		agentCache:      agentCache,
		historyWindow:   historyWindow,
		db:              db,
	}
}

// Chat sends one message through the agent. The user message is always
// persisted; users without a connected Meta account or a selected primary
// ad account get a persisted guidance reply and the agent is never invoked.
// Agent failures turn into a polite assistant message, never an HTTP error.
func (f *ChatFlowImpl) Chat(ctx context.Context, userID uint, req *dto.ChatRequest, metadata *ClientMetadata) (*dto.ChatResponse, error) {
	message := strings.TrimSpace(req.Message)
	if message == "" {
		return nil, NewBusinessError("EMPTY_CHAT_MESSAGE", "Chat message is empty", ErrEmptyChatMessage)
	}

	sessionID, err := f.resolveSession(req.SessionID)
	if err != nil {
		return nil, err
	}

	// Snapshot the history before inserting the new message so the agent
	// sees only prior turns.
	history, err := f.chatRepo.ListBySession(ctx, userID, sessionID, f.historyWindow)
	if err != nil {
		return nil, NewBusinessError("CHAT_HISTORY_FAILED", "Failed to load chat history", err)
	}

	if err := f.saveMessage(ctx, userID, sessionID, models.ChatRoleUser, message, nil, nil); err != nil {
		return nil, NewBusinessError("CHAT_SAVE_FAILED", "Failed to persist chat message", err)
	}

	integration, err := f.integrationRepo.ByUserAndProvider(ctx, userID, models.ProviderMeta)
	if err != nil {
		return nil, NewBusinessError("INTEGRATION_LOOKUP_FAILED", "Failed to load integration", err)
	}

	if integration == nil {
		return f.guidanceResponse(ctx, userID, sessionID, guidanceNotConnected, "not_connected")
	}
	if !integration.HasSelectedAccount() {
		return f.guidanceResponse(ctx, userID, sessionID, guidanceNoAccountSelected, "no_account_selected")
	}

	agent, err := f.agentCache.GetOrCreateAgent(ctx, userID, integration.AccessToken)
	if err != nil {
		return f.errorResponse(ctx, userID, sessionID, err)
	}
	agent.LoadHistory(toChatTurns(history))

	prompt := fmt.Sprintf(
		"You are connected to Meta Ads for this user. The primary ad account id to use is: %s. Answer the following question using that account where relevant:\n\n%s",
		*integration.SelectedAdAccount, message,
	)

	result, err := agent.Run(ctx, chatSystemPrompt, prompt)
	if err != nil {
		return f.errorResponse(ctx, userID, sessionID, err)
	}

	if err := f.saveMessage(ctx, userID, sessionID, models.ChatRoleAssistant, result.Reply, result.Tool, result.Args); err != nil {
		return nil, NewBusinessError("CHAT_SAVE_FAILED", "Failed to persist chat message", err)
	}

	return &dto.ChatResponse{
		Success:   true,
		Tool:      result.Tool,
		Args:      result.Args,
		Result:    result.Result,
		Reply:     result.Reply,
		SessionID: sessionID.String(),
	}, nil
}

// guidanceResponse persists a guidance reply and returns it with success=false.
func (f *ChatFlowImpl) guidanceResponse(ctx context.Context, userID uint, sessionID uuid.UUID, guidance, reason string) (*dto.ChatResponse, error) {
	meta := models.JSONMap{"reason": reason}
	if err := f.saveMessage(ctx, userID, sessionID, models.ChatRoleAssistant, guidance, nil, meta); err != nil {
		return nil, NewBusinessError("CHAT_SAVE_FAILED", "Failed to persist chat message", err)
	}

	return &dto.ChatResponse{
		Success:   false,
		Reply:     guidance,
		SessionID: sessionID.String(),
	}, nil
}

// errorResponse turns an agent failure into a polite persisted reply.
func (f *ChatFlowImpl) errorResponse(ctx context.Context, userID uint, sessionID uuid.UUID, agentErr error) (*dto.ChatResponse, error) {
	meta := models.JSONMap{"error": agentErr.Error()}
	if err := f.saveMessage(ctx, userID, sessionID, models.ChatRoleAssistant, agentErrorReply, nil, meta); err != nil {
		return nil, NewBusinessError("CHAT_SAVE_FAILED", "Failed to persist chat message", err)
	}

	return &dto.ChatResponse{
		Success:   false,
		Reply:     agentErrorReply,
		SessionID: sessionID.String(),
	}, nil
}

func (f *ChatFlowImpl) saveMessage(ctx context.Context, userID uint, sessionID uuid.UUID, role, content string, tool *string, metadata models.JSONMap) error {
	return f.chatRepo.Save(ctx, &models.ChatMessage{
		UUID:      uuid.New(),
		UserID:    userID,
		SessionID: sessionID,
		Role:      role,
		Content:   content,
		Tool:      tool,
		Metadata:  metadata,
	})
}

// resolveSession reuses the caller's session id or starts a fresh thread.
func (f *ChatFlowImpl) resolveSession(sessionID *string) (uuid.UUID, error) {
	if sessionID == nil || *sessionID == "" {
		return uuid.New(), nil
	}
	parsed, err := utils.ParseUUID(*sessionID)
	if err != nil {
		return uuid.Nil, NewBusinessError("SESSION_NOT_FOUND", "Chat session not found", ErrSessionNotFound)
	}
	return parsed, nil
}

// toChatTurns converts stored messages to agent turns, oldest first.
func toChatTurns(messages []*models.ChatMessage) []services.ChatTurn {
	turns := make([]services.ChatTurn, 0, len(messages))
	for _, msg := range messages {
		role := "user"
		if msg.Role == models.ChatRoleAssistant {
			role = "model"
		}
		turns = append(turns, services.ChatTurn{Role: role, Content: msg.Content})
	}
	return turns
}

// History returns the messages of one session, oldest first
func (f *ChatFlowImpl) History(ctx context.Context, userID uint, sessionID string) (*dto.ChatHistoryResponse, error) {
	parsed, err := utils.ParseUUID(sessionID)
	if err != nil {
		return nil, NewBusinessError("SESSION_NOT_FOUND", "Chat session not found", ErrSessionNotFound)
	}

	messages, err := f.chatRepo.ListBySession(ctx, userID, parsed, 0)
	if err != nil {
		return nil, NewBusinessError("CHAT_HISTORY_FAILED", "Failed to load chat history", err)
	}

	dtos := make([]dto.ChatMessageDTO, 0, len(messages))
	for _, msg := range messages {
		dtos = append(dtos, ToChatMessageDTO(*msg))
	}

	return &dto.ChatHistoryResponse{
		SessionID: sessionID,
		Messages:  dtos,
	}, nil
}

// Sessions lists the user's conversation threads, most recent first
func (f *ChatFlowImpl) Sessions(ctx context.Context, userID uint) (*dto.ChatSessionsResponse, error) {
	latest, err := f.chatRepo.ListSessions(ctx, userID)
	if err != nil {
		return nil, NewBusinessError("SESSIONS_LIST_FAILED", "Failed to list chat sessions", err)
	}

	sessions := make([]dto.ChatSessionDTO, 0, len(latest))
	for _, msg := range latest {
		sessions = append(sessions, dto.ChatSessionDTO{
			SessionID:   msg.SessionID.String(),
			LastMessage: msg.Content,
			UpdatedAt:   msg.CreatedAt.Format(time.RFC3339),
		})
	}

	return &dto.ChatSessionsResponse{Sessions: sessions}, nil
}

// DeleteSession removes every message of one session
func (f *ChatFlowImpl) DeleteSession(ctx context.Context, userID uint, sessionID string) (*dto.DeleteSessionResponse, error) {
	parsed, err := utils.ParseUUID(sessionID)
	if err != nil {
		return nil, NewBusinessError("SESSION_NOT_FOUND", "Chat session not found", ErrSessionNotFound)
	}

	deleted, err := f.chatRepo.DeleteSession(ctx, userID, parsed)
	if err != nil {
		return nil, NewBusinessError("SESSION_DELETE_FAILED", "Failed to delete chat session", err)
	}
	if deleted == 0 {
		return nil, NewBusinessError("SESSION_NOT_FOUND", "Chat session not found", ErrSessionNotFound)
	}

	return &dto.DeleteSessionResponse{Success: true, Deleted: deleted}, nil
}

// DeleteMessage removes one message the user owns
func (f *ChatFlowImpl) DeleteMessage(ctx context.Context, userID uint, messageID uint) (*dto.DeleteSessionResponse, error) {
	deleted, err := f.chatRepo.DeleteMessage(ctx, userID, messageID)
	if err != nil {
		return nil, NewBusinessError("MESSAGE_DELETE_FAILED", "Failed to delete chat message", err)
	}
	if deleted == 0 {
		return nil, NewBusinessError("MESSAGE_NOT_FOUND", "Chat message not found", ErrSessionNotFound)
	}

	return &dto.DeleteSessionResponse{Success: true, Deleted: deleted}, nil
}

// DeleteAllSessions wipes the user's entire chat history
func (f *ChatFlowImpl) DeleteAllSessions(ctx context.Context, userID uint) (*dto.DeleteSessionResponse, error) {
	deleted, err := f.chatRepo.DeleteAllSessions(ctx, userID)
	if err != nil {
		return nil, NewBusinessError("SESSIONS_DELETE_FAILED", "Failed to delete chat history", err)
	}

	return &dto.DeleteSessionResponse{Success: true, Deleted: deleted}, nil
}
