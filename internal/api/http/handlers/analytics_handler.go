package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/grievance-service/internal/service"
)

// AnalyticsHandler serves leadership dashboards.
type AnalyticsHandler struct {
	service *service.AnalyticsService
}

// NewAnalyticsHandler constructs handler.
func NewAnalyticsHandler(analyticsService *service.AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{service: analyticsService}
}

// Summary GET /api/analytics.
func (h *AnalyticsHandler) Summary(c *fiber.Ctx) error {
	summary, err := h.service.Summary(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": summary})
}

// AdminData GET /api/admin/data.
func (h *AnalyticsHandler) AdminData(c *fiber.Ctx) error {
	users, issues, err := h.service.AdminData(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{
		"users":  userResponses(users),
		"issues": issueResponses(issues),
	}})
}
