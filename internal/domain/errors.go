package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotLinked       = errors.New("no linked calendar account")
	ErrInvalidState    = errors.New("invalid oauth state")
	ErrProviderAuth    = errors.New("provider rejected credentials")
	ErrProviderCall    = errors.New("provider call failed")
	ErrValidation      = errors.New("validation error")
	ErrStorageConflict = errors.New("storage conflict")
	ErrUserNotFound    = errors.New("user not found")
	ErrUnauthenticated = errors.New("unauthenticated")
)

// Refinements of ErrInvalidState. Each matches ErrInvalidState with errors.Is.
var (
	ErrStateNotFound = fmt.Errorf("%w: state not found", ErrInvalidState)
	ErrStateConsumed = fmt.Errorf("%w: state already used", ErrInvalidState)
	ErrStateExpired  = fmt.Errorf("%w: state expired", ErrInvalidState)
	ErrStateMismatch = fmt.Errorf("%w: state issued to another session", ErrInvalidState)
)

// ProviderCallbackError is returned when the provider redirect carries an
// error instead of an authorization code.
type ProviderCallbackError struct {
	Code        string
	Description string
}

func (e *ProviderCallbackError) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("provider returned %s: %s", e.Code, e.Description)
	}

	return fmt.Sprintf("provider returned %s", e.Code)
}

func (e *ProviderCallbackError) Unwrap() error {
	return ErrProviderAuth
}
