package handler

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"dlock-service/internal/app/service"
	"dlock-service/internal/transport/httpserver/dto"
)

// SampleHandler exposes the demonstration runs.
type SampleHandler struct {
	service *service.LockService
	logger  *zap.Logger
}

// NewSampleHandler creates a new SampleHandler.
func NewSampleHandler(svc *service.LockService, logger *zap.Logger) *SampleHandler {
	return &SampleHandler{
		service: svc,
		logger:  logger,
	}
}

// Sample handles GET /api/v1/samples/sample
func (h *SampleHandler) Sample(c *fiber.Ctx) error {
	return h.run(c, h.service.RunSample)
}

// Renewals handles GET /api/v1/samples/renewals
func (h *SampleHandler) Renewals(c *fiber.Ctx) error {
	return h.run(c, h.service.RunRenewals)
}

// Reentrant handles GET /api/v1/samples/reentrant
func (h *SampleHandler) Reentrant(c *fiber.Ctx) error {
	return h.run(c, h.service.RunReentrant)
}

func (h *SampleHandler) run(c *fiber.Ctx, fn func(context.Context) (*service.SampleResult, error)) error {
	result, err := fn(c.UserContext())
	if err != nil {
		status, resp := errorResponse(err)
		if status >= fiber.StatusInternalServerError {
			h.logger.Error("sample failed", zap.String("path", c.Path()), zap.Error(err))
		}

		return c.Status(status).JSON(resp)
	}

	return c.JSON(dto.FromSampleResult(result))
}
