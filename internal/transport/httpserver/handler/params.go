package handler

import (
	"github.com/gofiber/fiber/v2"

	"dlock-service/internal/transport/httpserver/dto"
	"dlock-service/internal/validator"
)

// lockName returns the :key path parameter if it is a valid lock name.
func lockName(c *fiber.Ctx) (string, bool) {
	name := c.Params("key")

	return name, validator.LockKey(name)
}

func invalidKey(c *fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
		Error: "invalid lock key",
		Code:  dto.CodeInvalidKey,
	})
}

func validationFailed(c *fiber.Ctx, err error) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
		Error:   "validation failed",
		Code:    dto.CodeValidation,
		Details: err,
	})
}
