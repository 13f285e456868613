package handlers

import (
	"context"
	"log"
	"time"

	"github.com/adgenius-ai/adgenius/app/dto"
	businessflow "github.com/adgenius-ai/adgenius/business_flow"
	"github.com/gofiber/fiber/v3"
)

// OAuthHandler handles the Meta OAuth handshake endpoints
type OAuthHandler struct {
	oauthFlow       businessflow.OAuthFlow
	integrationFlow businessflow.IntegrationFlow
}

// NewOAuthHandler creates a new OAuth handler
func NewOAuthHandler(oauthFlow businessflow.OAuthFlow, integrationFlow businessflow.IntegrationFlow) *OAuthHandler {
	return &OAuthHandler{
		oauthFlow:       oauthFlow,
		integrationFlow: integrationFlow,
	}
}

func (h *OAuthHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: &dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

// Start returns the Meta dialog URL without user state; the original
// onboarding entry point.
func (h *OAuthHandler) Start(c fiber.Ctx) error {
	result, err := h.oauthFlow.StartLegacy(h.createRequestContext(c, "/api/meta/oauth/start"))
	if err != nil {
		log.Println("OAuth start failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to start OAuth", "OAUTH_START_FAILED", nil)
	}

	return c.Status(fiber.StatusOK).JSON(result)
}

// StartSettings returns a dialog URL bound to the authenticated user with a
// redirect hint back to the settings page.
func (h *OAuthHandler) StartSettings(c fiber.Ctx) error {
	userID, ok := currentUserID(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Unauthorized", "UNAUTHORIZED", nil)
	}

	result, err := h.oauthFlow.Start(h.createRequestContext(c, "/api/settings/meta/oauth/start"), userID, "settings")
	if err != nil {
		log.Println("OAuth start failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to start OAuth", "OAUTH_START_FAILED", nil)
	}

	return c.Status(fiber.StatusOK).JSON(result)
}

// Callback completes the handshake and redirects the browser to the frontend
func (h *OAuthHandler) Callback(c fiber.Ctx) error {
	code := c.Query("code")
	state := c.Query("state")

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	destination, err := h.oauthFlow.Callback(h.createRequestContext(c, "/api/meta/oauth/callback"), code, state, metadata)
	if err != nil {
		if businessflow.IsMissingAuthCode(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Missing code", "MISSING_CODE", nil)
		}
		if businessflow.IsMissingStateToken(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Missing state token", "MISSING_STATE_TOKEN", nil)
		}
		if businessflow.IsInvalidStateToken(err) {
			return h.ErrorResponse(c, fiber.StatusUnauthorized, "Invalid state token", "INVALID_STATE_TOKEN", nil)
		}

		log.Println("OAuth callback failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "OAuth callback failed", "OAUTH_CALLBACK_FAILED", nil)
	}

	return c.Redirect().Status(fiber.StatusFound).To(destination)
}

// Status returns the compact connection status
func (h *OAuthHandler) Status(c fiber.Ctx) error {
	userID, ok := currentUserID(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Unauthorized", "UNAUTHORIZED", nil)
	}

	result, err := h.integrationFlow.OAuthStatus(h.createRequestContext(c, "/api/oauth/status"), userID)
	if err != nil {
		log.Println("OAuth status failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to load OAuth status", "OAUTH_STATUS_FAILED", nil)
	}

	return c.Status(fiber.StatusOK).JSON(result)
}

func (h *OAuthHandler) createRequestContext(c fiber.Ctx, endpoint string) context.Context {
	return createRequestContextWithTimeout(c, endpoint, 30*time.Second)
}
