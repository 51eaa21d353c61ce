package googlecalendar

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/micuatri/calendarlink/internal/domain"

	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"
)

// Error represents a failed call to Google
type Error struct {
	Op         string `json:"op"`
	StatusCode int    `json:"status_code"`
	Code       string `json:"code,omitempty"`
	Message    string `json:"message"`
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("google: %s: %s", e.Op, e.Message)
	}

	return fmt.Sprintf("google: %s: %s (status: %d)", e.Op, e.Message, e.StatusCode)
}

// IsRetryable returns true if the error might be resolved by retrying
func (e *Error) IsRetryable() bool {
	return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests
}

// IsAuthError returns true if Google rejected the credentials
func (e *Error) IsAuthError() bool {
	return e.StatusCode == http.StatusUnauthorized ||
		e.StatusCode == http.StatusForbidden && e.Code != "rateLimitExceeded" && e.Code != "userRateLimitExceeded" ||
		e.Code == "invalid_grant" ||
		e.Code == "invalid_client" ||
		e.Code == "unauthorized_client"
}

func (e *Error) IsNotFound() bool {
	return e.StatusCode == http.StatusNotFound
}

func (e *Error) IsRateLimited() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.Code == "rateLimitExceeded" || e.Code == "userRateLimitExceeded"
}

// Unwrap lets callers match the domain taxonomy with errors.Is.
func (e *Error) Unwrap() error {
	if e.IsAuthError() {
		return domain.ErrProviderAuth
	}

	return domain.ErrProviderCall
}

func newError(op string, err error) error {
	if err == nil {
		return nil
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		out := &Error{
			Op:         op,
			StatusCode: apiErr.Code,
			Message:    apiErr.Message,
		}

		if len(apiErr.Errors) > 0 {
			out.Code = apiErr.Errors[0].Reason
		}

		if out.Message == "" {
			out.Message = http.StatusText(apiErr.Code)
		}

		return out
	}

	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		out := &Error{
			Op:      op,
			Code:    retrieveErr.ErrorCode,
			Message: retrieveErr.ErrorDescription,
		}

		if retrieveErr.Response != nil {
			out.StatusCode = retrieveErr.Response.StatusCode
		}

		if out.Message == "" {
			out.Message = retrieveErr.ErrorCode
		}

		if out.Message == "" {
			out.Message = "token endpoint rejected the request"
		}

		return out
	}

	return &Error{
		Op:      op,
		Message: err.Error(),
	}
}
