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

// DashboardHandler handles dashboard HTTP requests
type DashboardHandler struct {
	dashboardFlow businessflow.DashboardFlow
	validator     *validator.Validate
}

// NewDashboardHandler creates a new dashboard handler
func NewDashboardHandler(dashboardFlow businessflow.DashboardFlow) *DashboardHandler {
	return &DashboardHandler{
		dashboardFlow: dashboardFlow,
		validator:     newValidator(),
	}
}

func (h *DashboardHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: &dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

// Overview returns the full dashboard payload in the shape the frontend
// consumes directly, without the API envelope.
func (h *DashboardHandler) Overview(c fiber.Ctx) error {
	userID, ok := currentUserID(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Unauthorized", "UNAUTHORIZED", nil)
	}

	result, err := h.dashboardFlow.Overview(h.createRequestContext(c, "/api/dashboard"), userID)
	if err != nil {
		log.Println("Dashboard overview failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to load dashboard", "DASHBOARD_FAILED", nil)
	}

	return c.Status(fiber.StatusOK).JSON(result)
}

// CampaignDetail returns one campaign with its insights and budgets
func (h *DashboardHandler) CampaignDetail(c fiber.Ctx) error {
	userID, ok := currentUserID(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Unauthorized", "UNAUTHORIZED", nil)
	}

	campaignID := c.Params("id")
	if campaignID == "" {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Missing campaign id", "MISSING_CAMPAIGN_ID", nil)
	}

	result, err := h.dashboardFlow.CampaignDetail(h.createRequestContext(c, "/api/dashboard/campaign"), userID, campaignID)
	if err != nil {
		if businessflow.IsIntegrationNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Meta integration not found", "INTEGRATION_NOT_FOUND", nil)
		}
		if businessflow.IsNoAccountSelected(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "No ad account selected", "NO_ACCOUNT_SELECTED", nil)
		}
		if businessflow.IsInvalidAdAccountID(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Campaign not found", "CAMPAIGN_NOT_FOUND", nil)
		}

		log.Println("Campaign detail failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to load campaign", "CAMPAIGN_DETAIL_FAILED", nil)
	}

	return c.Status(fiber.StatusOK).JSON(result)
}

// Export streams the campaign table as an XLSX workbook
func (h *DashboardHandler) Export(c fiber.Ctx) error {
	userID, ok := currentUserID(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Unauthorized", "UNAUTHORIZED", nil)
	}

	data, err := h.dashboardFlow.Export(h.createRequestContext(c, "/api/dashboard/export"), userID)
	if err != nil {
		if businessflow.IsIntegrationNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Meta integration not found", "INTEGRATION_NOT_FOUND", nil)
		}
		if businessflow.IsNoAccountSelected(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "No ad account selected", "NO_ACCOUNT_SELECTED", nil)
		}

		log.Println("Dashboard export failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to export dashboard", "EXPORT_FAILED", nil)
	}

	c.Set(fiber.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="campaigns.xlsx"`)
	return c.Status(fiber.StatusOK).Send(data)
}

// RecommendationStatus records the user's decision on a recommendation
func (h *DashboardHandler) RecommendationStatus(c fiber.Ctx) error {
	userID, ok := currentUserID(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Unauthorized", "UNAUTHORIZED", nil)
	}

	recommendationID, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid recommendation id", "INVALID_RECOMMENDATION_ID", nil)
	}

	var req dto.RecommendationStatusRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}

	if err := h.validator.Struct(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", collectValidationErrors(err))
	}

	result, err := h.dashboardFlow.RecommendationStatus(h.createRequestContext(c, "/api/dashboard/recommendations"), userID, recommendationID, &req)
	if err != nil {
		log.Println("Recommendation status failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to record status", "RECOMMENDATION_STATUS_FAILED", nil)
	}

	return c.Status(fiber.StatusOK).JSON(result)
}

func (h *DashboardHandler) createRequestContext(c fiber.Ctx, endpoint string) context.Context {
	return createRequestContextWithTimeout(c, endpoint, 30*time.Second)
}
