package handlers

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/velora-app/auth-service/internal/dto"
)

// ErrorHandler shapes every error that escapes a handler. Wrong-verb requests
// get the contract's 405 body; 5xx detail is logged server-side only.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal server error"
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	if code == fiber.StatusMethodNotAllowed {
		message = "Method not allowed"
	}

	if code >= 500 {
		slog.Error("unhandled server error", "method", c.Method(), "path", c.Path(), "error", err.Error())
		message = "Internal server error"
	}

	return c.Status(code).JSON(dto.ErrorResponse{Message: message})
}
