// Package handler provides HTTP handlers for the API.
package handler

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"dlock-service/internal/app/service"
	"dlock-service/internal/domain"
	"dlock-service/internal/transport/httpserver/dto"
	"dlock-service/internal/validator"
	"dlock-service/pkg/dlock"
)

// LockHandler handles the lock API.
type LockHandler struct {
	service   *service.LockService
	validator *validator.Validator
	logger    *zap.Logger
}

// NewLockHandler creates a new LockHandler.
func NewLockHandler(svc *service.LockService, v *validator.Validator, logger *zap.Logger) *LockHandler {
	return &LockHandler{
		service:   svc,
		validator: v,
		logger:    logger,
	}
}

// List handles GET /api/v1/locks
func (h *LockHandler) List(c *fiber.Ctx) error {
	states, err := h.service.List(c.UserContext())
	if err != nil {
		return h.fail(c, err)
	}

	return c.JSON(dto.FromLockStates(states))
}

// Get handles GET /api/v1/locks/:key
func (h *LockHandler) Get(c *fiber.Ctx) error {
	name, ok := lockName(c)
	if !ok {
		return invalidKey(c)
	}

	state, err := h.service.Get(c.UserContext(), name)
	if err != nil {
		return h.fail(c, err)
	}

	return c.JSON(dto.FromLockState(state))
}

// Acquire handles POST /api/v1/locks/:key/acquire
func (h *LockHandler) Acquire(c *fiber.Ctx) error {
	name, ok := lockName(c)
	if !ok {
		return invalidKey(c)
	}

	var req dto.AcquireRequest
	if ok, err := h.bind(c, &req); !ok {
		return err
	}

	state, err := h.service.Acquire(c.UserContext(), name, req.Holder, req.Wait(), req.Lease())
	if err != nil {
		return h.fail(c, err)
	}

	return c.JSON(dto.FromLockState(state))
}

// Release handles POST /api/v1/locks/:key/release
func (h *LockHandler) Release(c *fiber.Ctx) error {
	name, ok := lockName(c)
	if !ok {
		return invalidKey(c)
	}

	var req dto.ReleaseRequest
	if ok, err := h.bind(c, &req); !ok {
		return err
	}

	if err := h.service.Release(c.UserContext(), name, req.Holder); err != nil {
		return h.fail(c, err)
	}

	return c.JSON(dto.ReleaseResponse{Key: name, Released: true})
}

// Renew handles POST /api/v1/locks/:key/renew
func (h *LockHandler) Renew(c *fiber.Ctx) error {
	name, ok := lockName(c)
	if !ok {
		return invalidKey(c)
	}

	var req dto.RenewRequest
	if ok, err := h.bind(c, &req); !ok {
		return err
	}

	state, err := h.service.Renew(c.UserContext(), name, req.Holder, req.Lease())
	if err != nil {
		return h.fail(c, err)
	}

	return c.JSON(dto.FromLockState(state))
}

// Events handles GET /api/v1/locks/:key/events
func (h *LockHandler) Events(c *fiber.Ctx) error {
	name, ok := lockName(c)
	if !ok {
		return invalidKey(c)
	}

	var req dto.EventsRequest
	if err := c.QueryParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: "invalid query parameters",
			Code:  dto.CodeInvalidParams,
		})
	}
	if err := h.validator.Validate(&req); err != nil {
		return validationFailed(c, err)
	}

	events, err := h.service.Events(c.UserContext(), name, req.LimitOrDefault())
	if err != nil {
		return h.fail(c, err)
	}

	return c.JSON(dto.FromLockEvents(events))
}

// bind parses and validates a JSON body. When it reports false the error
// response has already been written and err is the write result.
func (h *LockHandler) bind(c *fiber.Ctx, req interface{}) (bool, error) {
	if err := c.BodyParser(req); err != nil {
		return false, c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: "invalid request body",
			Code:  dto.CodeInvalidBody,
		})
	}
	if err := h.validator.Validate(req); err != nil {
		return false, validationFailed(c, err)
	}

	return true, nil
}

// fail maps service errors to HTTP responses.
func (h *LockHandler) fail(c *fiber.Ctx, err error) error {
	status, resp := errorResponse(err)
	if status >= fiber.StatusInternalServerError {
		h.logger.Error("lock request failed",
			zap.String("path", c.Path()),
			zap.Error(err),
		)
	}

	return c.Status(status).JSON(resp)
}

func errorResponse(err error) (int, dto.ErrorResponse) {
	var storeErr *dlock.StoreError

	switch {
	case errors.Is(err, dlock.ErrTimeout):
		return fiber.StatusConflict, dto.ErrorResponse{Error: "lock is held by another holder", Code: dto.CodeLockTimeout}
	case errors.Is(err, dlock.ErrNotOwner):
		return fiber.StatusConflict, dto.ErrorResponse{Error: "lock is not held by this holder", Code: dto.CodeNotOwner}
	case errors.Is(err, service.ErrLeaseLost):
		return fiber.StatusConflict, dto.ErrorResponse{Error: "lease expired or taken by another holder", Code: dto.CodeLeaseLost}
	case errors.Is(err, domain.ErrLockNotFound):
		return fiber.StatusNotFound, dto.ErrorResponse{Error: "lock not found", Code: dto.CodeLockNotFound}
	case errors.Is(err, service.ErrAuditDisabled):
		return fiber.StatusNotFound, dto.ErrorResponse{Error: "audit log is disabled", Code: dto.CodeAuditDisabled}
	case errors.Is(err, dlock.ErrInvalidLease):
		return fiber.StatusBadRequest, dto.ErrorResponse{Error: err.Error(), Code: dto.CodeValidation}
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return fiber.StatusRequestTimeout, dto.ErrorResponse{Error: "request cancelled", Code: dto.CodeRequestTimeout}
	case errors.As(err, &storeErr):
		return fiber.StatusServiceUnavailable, dto.ErrorResponse{Error: "lock store unavailable", Code: dto.CodeStoreError}
	default:
		return fiber.StatusInternalServerError, dto.ErrorResponse{Error: "internal error", Code: dto.CodeInternalError}
	}
}
