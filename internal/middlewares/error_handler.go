package middlewares

import (
	"errors"

	"github.com/micuatri/calendarlink/internal/domain"

	"github.com/gofiber/fiber/v3"
	"github.com/rs/zerolog/log"
)

// APIError pins the HTTP status and code used for an error.
type APIError struct {
	Status int
	Code   string
	Err    error
}

func NewAPIError(status int, code string, err error) *APIError {
	return &APIError{Status: status, Code: code, Err: err}
}

func (e *APIError) Error() string {
	return e.Err.Error()
}

func (e *APIError) Unwrap() error {
	return e.Err
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// ErrorHandler renders every error returned by a handler as ErrorResponse.
func ErrorHandler(c fiber.Ctx, err error) error {
	status, code := Classify(err)

	message := err.Error()
	if status >= fiber.StatusInternalServerError && code == "internal" {
		log.Error().
			Err(err).
			Str("path", c.Path()).
			Str("method", c.Method()).
			Msg("Request failed")

		message = "internal server error"
	}

	return c.Status(status).JSON(ErrorResponse{
		Error:   code,
		Message: message,
	})
}

// Classify maps an error onto an HTTP status and a stable error code.
func Classify(err error) (int, string) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status, apiErr.Code
	}

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return fiberErr.Code, "request_error"
	}

	var callbackErr *domain.ProviderCallbackError
	if errors.As(err, &callbackErr) {
		return fiber.StatusBadRequest, "provider_denied"
	}

	switch {
	case errors.Is(err, domain.ErrUnauthenticated):
		return fiber.StatusUnauthorized, "unauthenticated"
	case errors.Is(err, domain.ErrNotLinked):
		return fiber.StatusConflict, "not_linked"
	case errors.Is(err, domain.ErrInvalidState):
		return fiber.StatusBadRequest, "invalid_state"
	case errors.Is(err, domain.ErrProviderAuth):
		return fiber.StatusUnauthorized, "provider_auth"
	case errors.Is(err, domain.ErrProviderCall):
		return fiber.StatusBadGateway, "provider_error"
	case errors.Is(err, domain.ErrValidation):
		return fiber.StatusBadRequest, "validation"
	case errors.Is(err, domain.ErrStorageConflict):
		return fiber.StatusConflict, "conflict"
	case errors.Is(err, domain.ErrUserNotFound):
		return fiber.StatusNotFound, "user_not_found"
	}

	return fiber.StatusInternalServerError, "internal"
}
