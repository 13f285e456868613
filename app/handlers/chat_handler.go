package handlers

import (
	"context"
	"log"
	"strconv"
	"time"

	"github.com/adgenius-ai/adgenius/app/dto"
	businessflow "github.com/adgenius-ai/adgenius/business_flow"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

// ChatHandler handles conversation HTTP requests
type ChatHandler struct {
	chatFlow  businessflow.ChatFlow
	validator *validator.Validate
}

// NewChatHandler creates a new chat handler
func NewChatHandler(chatFlow businessflow.ChatFlow) *ChatHandler {
	return &ChatHandler{
		chatFlow:  chatFlow,
		validator: newValidator(),
	}
}

func (h *ChatHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: &dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

// Chat sends one message to the ads agent. The chat endpoint answers with the
// raw conversational shape the frontend expects, not the API envelope.
func (h *ChatHandler) Chat(c fiber.Ctx) error {
	userID, ok := currentUserID(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Unauthorized", "UNAUTHORIZED", nil)
	}

	var req dto.ChatRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}

	if err := h.validator.Struct(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", collectValidationErrors(err))
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	// The agent run may chain several tool calls; give it more room than a
	// plain CRUD request.
	result, err := h.chatFlow.Chat(h.createRequestContext(c, "/api/chat/", 2*time.Minute), userID, &req, metadata)
	if err != nil {
		if businessflow.IsEmptyChatMessage(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Chat message is empty", "EMPTY_CHAT_MESSAGE", nil)
		}

		log.Println("Chat failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Chat failed", "CHAT_FAILED", nil)
	}

	return c.Status(fiber.StatusOK).JSON(result)
}

// History returns the messages of one session
func (h *ChatHandler) History(c fiber.Ctx) error {
	userID, ok := currentUserID(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Unauthorized", "UNAUTHORIZED", nil)
	}

	sessionID := c.Params("session_id")

	result, err := h.chatFlow.History(h.createRequestContext(c, "/api/chat/history", 30*time.Second), userID, sessionID)
	if err != nil {
		if businessflow.IsSessionNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Chat session not found", "SESSION_NOT_FOUND", nil)
		}

		log.Println("Chat history failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to load chat history", "CHAT_HISTORY_FAILED", nil)
	}

	return c.Status(fiber.StatusOK).JSON(result)
}

// Sessions lists the user's conversation threads
func (h *ChatHandler) Sessions(c fiber.Ctx) error {
	userID, ok := currentUserID(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Unauthorized", "UNAUTHORIZED", nil)
	}

	result, err := h.chatFlow.Sessions(h.createRequestContext(c, "/api/chat/sessions", 30*time.Second), userID)
	if err != nil {
		log.Println("Chat sessions failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to list chat sessions", "SESSIONS_LIST_FAILED", nil)
	}

	return c.Status(fiber.StatusOK).JSON(result)
}

// DeleteSession removes one conversation thread
func (h *ChatHandler) DeleteSession(c fiber.Ctx) error {
	userID, ok := currentUserID(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Unauthorized", "UNAUTHORIZED", nil)
	}

	sessionID := c.Params("session_id")

	result, err := h.chatFlow.DeleteSession(h.createRequestContext(c, "/api/chat/sessions", 30*time.Second), userID, sessionID)
	if err != nil {
		if businessflow.IsSessionNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Chat session not found", "SESSION_NOT_FOUND", nil)
		}

		log.Println("Chat session delete failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to delete chat session", "SESSION_DELETE_FAILED", nil)
	}

	return c.Status(fiber.StatusOK).JSON(result)
}

// DeleteMessage removes one message
func (h *ChatHandler) DeleteMessage(c fiber.Ctx) error {
	userID, ok := currentUserID(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Unauthorized", "UNAUTHORIZED", nil)
	}

	messageID, err := strconv.ParseUint(c.Params("message_id"), 10, 32)
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid message id", "INVALID_MESSAGE_ID", nil)
	}

	result, err := h.chatFlow.DeleteMessage(h.createRequestContext(c, "/api/chat/messages", 30*time.Second), userID, uint(messageID))
	if err != nil {
		if businessflow.IsSessionNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Chat message not found", "MESSAGE_NOT_FOUND", nil)
		}

		log.Println("Chat message delete failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to delete chat message", "MESSAGE_DELETE_FAILED", nil)
	}

	return c.Status(fiber.StatusOK).JSON(result)
}

// DeleteAllSessions wipes the user's entire chat history
func (h *ChatHandler) DeleteAllSessions(c fiber.Ctx) error {
	userID, ok := currentUserID(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Unauthorized", "UNAUTHORIZED", nil)
	}

	result, err := h.chatFlow.DeleteAllSessions(h.createRequestContext(c, "/api/chat/sessions", 30*time.Second), userID)
	if err != nil {
		log.Println("Chat history delete failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to delete chat history", "SESSIONS_DELETE_FAILED", nil)
	}

	return c.Status(fiber.StatusOK).JSON(result)
}

func (h *ChatHandler) createRequestContext(c fiber.Ctx, endpoint string, timeout time.Duration) context.Context {
	return createRequestContextWithTimeout(c, endpoint, timeout)
}
