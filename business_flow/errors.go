// Package businessflow contains the core business logic and use cases for the AdGenius backend
package businessflow

import (
	"errors"
	"fmt"
)

// Business flow error constants
var (
	// User-related errors
	ErrUserNotFound           = errors.New("user not found")
	ErrAccountInactive        = errors.New("account is inactive")
	ErrIncorrectPassword      = errors.New("incorrect password")
	ErrEmailAlreadyRegistered = errors.New("email already registered")
	ErrInvalidCredentials     = errors.New("invalid credentials")

	// Integration errors
	ErrIntegrationNotFound = errors.New("meta integration not found")
	ErrInvalidAdAccountID  = errors.New("invalid ad account id")
	ErrNoAccountSelected   = errors.New("no ad account selected")

	// OAuth errors
	ErrMissingAuthCode   = errors.New("missing code")
	ErrMissingStateToken = errors.New("missing state token")
	ErrInvalidStateToken = errors.New("invalid state token")

	// Chat errors
	ErrSessionNotFound  = errors.New("chat session not found")
	ErrEmptyChatMessage = errors.New("chat message is empty")

	// Business profile errors
	ErrProfileNotFound = errors.New("business profile not found")

	// Filter errors
	ErrInvalidPage     = errors.New("page must be at least 1")
	ErrInvalidPageSize = errors.New("page size must be between 1 and 100")
)

type BusinessError struct {
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

func NewBusinessError(code, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

func NewBusinessErrorf(code, message string, err error, args ...any) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: fmt.Sprintf(message, args...),
		Err:     err,
	}
}

func IsUserNotFound(err error) bool {
	return errors.Is(err, ErrUserNotFound)
}

func IsAccountInactive(err error) bool {
	return errors.Is(err, ErrAccountInactive)
}

func IsIncorrectPassword(err error) bool {
	return errors.Is(err, ErrIncorrectPassword)
}

func IsEmailAlreadyRegistered(err error) bool {
	return errors.Is(err, ErrEmailAlreadyRegistered)
}

func IsInvalidCredentials(err error) bool {
	return errors.Is(err, ErrInvalidCredentials)
}

func IsIntegrationNotFound(err error) bool {
	return errors.Is(err, ErrIntegrationNotFound)
}

func IsInvalidAdAccountID(err error) bool {
	return errors.Is(err, ErrInvalidAdAccountID)
}

func IsNoAccountSelected(err error) bool {
	return errors.Is(err, ErrNoAccountSelected)
}

func IsMissingAuthCode(err error) bool {
	return errors.Is(err, ErrMissingAuthCode)
}

func IsMissingStateToken(err error) bool {
	return errors.Is(err, ErrMissingStateToken)
}

func IsInvalidStateToken(err error) bool {
	return errors.Is(err, ErrInvalidStateToken)
}

func IsSessionNotFound(err error) bool {
	return errors.Is(err, ErrSessionNotFound)
}

func IsEmptyChatMessage(err error) bool {
	return errors.Is(err, ErrEmptyChatMessage)
}

func IsProfileNotFound(err error) bool {
	return errors.Is(err, ErrProfileNotFound)
}
