package http

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/raasta/internal/core/domain"
)

// APIError is a structured error response.
type APIError struct {
	Status    int    `json:"status"`
	Code      string `json:"code"`    // Error code: bad_request, no_hazards, store_error, etc.
	Message   string `json:"message"` // Human-readable message
	RequestID string `json:"request_id,omitempty"`
}

// newError builds a JSON error response with a request ID.
func newError(c *fiber.Ctx, status int, code string, message string) error {
	reqID, _ := c.Locals("requestid").(string)
	return c.Status(status).JSON(APIError{
		Status:    status,
		Code:      code,
		Message:   message,
		RequestID: reqID,
	})
}

// errBadRequest returns a 400 error.
func errBadRequest(c *fiber.Ctx, msg string) error {
	return newError(c, 400, "bad_request", msg)
}

// errNotFound returns a 404 error.
func errNotFound(c *fiber.Ctx, msg string) error {
	return newError(c, 404, "not_found", msg)
}

// classify maps a service error to its HTTP status and error code.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return 400, "bad_request"
	case errors.Is(err, domain.ErrUnknownCategory):
		return 400, "unknown_category"
	case errors.Is(err, domain.ErrEmptyIndex):
		return 404, "no_hazards"
	case errors.Is(err, context.DeadlineExceeded):
		return 504, "timeout"
	default:
		return 502, "store_error"
	}
}

// errQuery writes the response for a failed hazard query.
func errQuery(c *fiber.Ctx, err error) error {
	status, code := classify(err)
	if status == 502 {
		LoggerFromCtx(c.UserContext()).Error("hazard store failed", "error", err)
	}
	return newError(c, status, code, err.Error())
}
