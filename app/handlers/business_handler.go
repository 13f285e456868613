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

// BusinessHandler handles business profile HTTP requests
type BusinessHandler struct {
	profileFlow businessflow.BusinessProfileFlow
	validator   *validator.Validate
}

// NewBusinessHandler creates a new business profile handler
func NewBusinessHandler(profileFlow businessflow.BusinessProfileFlow) *BusinessHandler {
	return &BusinessHandler{
		profileFlow: profileFlow,
		validator:   newValidator(),
	}
}

func (h *BusinessHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: &dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

func (h *BusinessHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// Get returns the authenticated user's business profile
func (h *BusinessHandler) Get(c fiber.Ctx) error {
	userID, ok := currentUserID(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Unauthorized", "UNAUTHORIZED", nil)
	}

	result, err := h.profileFlow.Get(h.createRequestContext(c, "/api/business/"), userID)
	if err != nil {
		log.Println("Business profile lookup failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to load business profile", "PROFILE_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Business profile loaded", result)
}

// Upsert stores the onboarding answers
func (h *BusinessHandler) Upsert(c fiber.Ctx) error {
	userID, ok := currentUserID(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Unauthorized", "UNAUTHORIZED", nil)
	}

	var req dto.BusinessProfileRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}

	if err := h.validator.Struct(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", collectValidationErrors(err))
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	result, err := h.profileFlow.Upsert(h.createRequestContext(c, "/api/business/"), userID, &req, metadata)
	if err != nil {
		log.Println("Business profile save failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to save business profile", "PROFILE_SAVE_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Business profile saved", result)
}

func (h *BusinessHandler) createRequestContext(c fiber.Ctx, endpoint string) context.Context {
	return createRequestContextWithTimeout(c, endpoint, 30*time.Second)
}
