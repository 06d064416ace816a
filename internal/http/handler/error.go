package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/princedesai012/Doc-Flow/internal/http/middleware"
	"github.com/princedesai012/Doc-Flow/internal/service"
)

// errorPayload defines the standardized error response body.
type errorPayload struct {
	RequestID string        `json:"request_id"`
	Error     errorEnvelope `json:"error"`
}

type errorEnvelope struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// requestIDFromCtx extracts request_id previously stored by middleware.RequestID.
func requestIDFromCtx(c *fiber.Ctx) string {
	if v := c.Locals(middleware.RequestIDLocalKey); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// writeError writes a standardized JSON error response without leaking internal errors.
//
// Parameters:
// - status: HTTP status code to return
// - code: machine-readable short error code (e.g., "LINK_EXPIRED", "NOT_FOUND", "INTERNAL_ERROR")
// - message: human-readable safe message (no internal details)
func writeError(c *fiber.Ctx, status int, code, message string) error {
	res := errorPayload{
		RequestID: requestIDFromCtx(c),
		Error: errorEnvelope{
			Code:    code,
			Message: message,
		},
	}
	return c.Status(status).JSON(res)
}

// serviceError translates lifecycle service sentinels into standardized
// responses. Anything unrecognized is treated as internal.
func serviceError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrNotFound):
		return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "request not found")
	case errors.Is(err, service.ErrLinkExpired):
		return writeError(c, fiber.StatusForbidden, "LINK_EXPIRED", "this link is no longer active")
	case errors.Is(err, service.ErrEmptyDocTypes):
		return writeError(c, fiber.StatusBadRequest, "EMPTY_DOC_TYPES", "at least one document type is required")
	case errors.Is(err, service.ErrInvalidDocType):
		return writeError(c, fiber.StatusBadRequest, "INVALID_DOC_TYPE", "document type was not requested")
	case errors.Is(err, service.ErrEmptyPayload):
		return writeError(c, fiber.StatusBadRequest, "EMPTY_FILE", "uploaded file is empty")
	case errors.Is(err, service.ErrInvalidTransition):
		return writeError(c, fiber.StatusConflict, "INVALID_TRANSITION", "document cannot move to that status")
	case errors.Is(err, service.ErrReasonRequired):
		return writeError(c, fiber.StatusBadRequest, "REASON_REQUIRED", "a rejection reason is required")
	case errors.Is(err, service.ErrStorageFailed):
		return writeError(c, fiber.StatusBadGateway, "STORAGE_UNAVAILABLE", "could not store the uploaded file")
	default:
		return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
	}
}

// ErrorHandler returns a Fiber global error handler that standardizes error responses.
func ErrorHandler() fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		status := fiber.StatusInternalServerError
		if e, ok := err.(*fiber.Error); ok {
			status = e.Code
		}

		switch status {
		case fiber.StatusBadRequest:
			return writeError(c, status, "BAD_REQUEST", "bad request")
		case fiber.StatusNotFound:
			return writeError(c, status, "NOT_FOUND", "resource not found")
		case fiber.StatusMethodNotAllowed:
			return writeError(c, status, "METHOD_NOT_ALLOWED", "method not allowed")
		default:
			return writeError(c, status, "INTERNAL_ERROR", "internal server error")
		}
	}
}
