package handler

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"dlock-service/internal/app/service"
	"dlock-service/internal/transport/httpserver/dto"
)

// DashboardHandler handles dashboard-related HTTP requests.
type DashboardHandler struct {
	service *service.LockService
	logger  *zap.Logger
}

// NewDashboardHandler creates a new DashboardHandler.
func NewDashboardHandler(svc *service.LockService, logger *zap.Logger) *DashboardHandler {
	return &DashboardHandler{
		service: svc,
		logger:  logger,
	}
}

// Render handles GET /dashboard
func (h *DashboardHandler) Render(c *fiber.Ctx) error {
	states, err := h.service.List(c.UserContext())
	storeDown := err != nil
	if storeDown {
		h.logger.Warn("dashboard could not list locks", zap.Error(err))
	}

	return c.Render("pages/dashboard", fiber.Map{
		"Title":        "Lock Dashboard",
		"Locks":        dto.FromLockStates(states).Locks,
		"StoreDown":    storeDown,
		"AuditEnabled": h.service.AuditEnabled(),
	}, "layouts/base")
}
