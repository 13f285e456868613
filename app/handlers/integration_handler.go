package handlers

import (
	"context"
	"log"
	"time"

	"github.com/adgenius-ai/adgenius/app/dto"
	businessflow "github.com/adgenius-ai/adgenius/business_flow"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

// IntegrationHandler handles connected-account HTTP requests
type IntegrationHandler struct {
	integrationFlow businessflow.IntegrationFlow
	validator       *validator.Validate
}

// NewIntegrationHandler creates a new integration handler
func NewIntegrationHandler(integrationFlow businessflow.IntegrationFlow) *IntegrationHandler {
	return &IntegrationHandler{
		integrationFlow: integrationFlow,
		validator:       newValidator(),
	}
}

func (h *IntegrationHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: &dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

func (h *IntegrationHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// handleIntegrationError maps the shared integration lookup errors.
func (h *IntegrationHandler) handleIntegrationError(c fiber.Ctx, err error, fallbackMessage, fallbackCode string) error {
	if businessflow.IsIntegrationNotFound(err) {
		return h.ErrorResponse(c, fiber.StatusNotFound, "Meta integration not found", "INTEGRATION_NOT_FOUND", nil)
	}
	if businessflow.IsInvalidAdAccountID(err) {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid ad account id", "INVALID_AD_ACCOUNT_ID", nil)
	}

	log.Println(fallbackMessage, err)
	return h.ErrorResponse(c, fiber.StatusInternalServerError, fallbackMessage, fallbackCode, nil)
}

// ListAdAccounts returns the stored ad account descriptors
func (h *IntegrationHandler) ListAdAccounts(c fiber.Ctx) error {
	userID, ok := currentUserID(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Unauthorized", "UNAUTHORIZED", nil)
	}

	result, err := h.integrationFlow.ListAdAccounts(h.createRequestContext(c, "/api/integrations/meta/adaccounts"), userID)
	if err != nil {
		return h.handleIntegrationError(c, err, "Failed to list ad accounts", "AD_ACCOUNTS_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Ad accounts loaded", result)
}

// SelectAccount marks the primary ad account
func (h *IntegrationHandler) SelectAccount(c fiber.Ctx) error {
	userID, ok := currentUserID(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Unauthorized", "UNAUTHORIZED", nil)
	}

	var req dto.SelectAccountRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}

	if err := h.validator.Struct(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", collectValidationErrors(err))
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	result, err := h.integrationFlow.SelectAccount(h.createRequestContext(c, "/api/integrations/select-account"), userID, &req, metadata)
	if err != nil {
		return h.handleIntegrationError(c, err, "Failed to select ad account", "ACCOUNT_SELECT_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Ad account selected", result)
}

// RefreshAccounts re-fetches the ad account list from the platform
func (h *IntegrationHandler) RefreshAccounts(c fiber.Ctx) error {
	userID, ok := currentUserID(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Unauthorized", "UNAUTHORIZED", nil)
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	result, err := h.integrationFlow.RefreshAccounts(h.createRequestContext(c, "/api/integrations/meta/refresh-accounts"), userID, metadata)
	if err != nil {
		return h.handleIntegrationError(c, err, "Failed to refresh ad accounts", "ACCOUNTS_REFRESH_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Ad accounts refreshed", result)
}

// MaskedToken returns masked token metadata, never the secret itself
func (h *IntegrationHandler) MaskedToken(c fiber.Ctx) error {
	userID, ok := currentUserID(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Unauthorized", "UNAUTHORIZED", nil)
	}

	result, err := h.integrationFlow.MaskedToken(h.createRequestContext(c, "/api/integrations/meta/token"), userID)
	if err != nil {
		return h.handleIntegrationError(c, err, "Failed to load token metadata", "TOKEN_METADATA_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Token metadata loaded", result)
}

// SettingsStatus returns the full settings-page status
func (h *IntegrationHandler) SettingsStatus(c fiber.Ctx) error {
	userID, ok := currentUserID(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Unauthorized", "UNAUTHORIZED", nil)
	}

	result, err := h.integrationFlow.SettingsStatus(h.createRequestContext(c, "/api/settings/meta/status"), userID)
	if err != nil {
		return h.handleIntegrationError(c, err, "Failed to load Meta status", "META_STATUS_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Meta status loaded", result)
}

// Disconnect removes the Meta integration
func (h *IntegrationHandler) Disconnect(c fiber.Ctx) error {
	userID, ok := currentUserID(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Unauthorized", "UNAUTHORIZED", nil)
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	result, err := h.integrationFlow.Disconnect(h.createRequestContext(c, "/api/settings/meta/disconnect"), userID, metadata)
	if err != nil {
		return h.handleIntegrationError(c, err, "Failed to disconnect Meta Ads", "DISCONNECT_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, result.Message, result)
}

func (h *IntegrationHandler) createRequestContext(c fiber.Ctx, endpoint string) context.Context {
	return createRequestContextWithTimeout(c, endpoint, 30*time.Second)
}
