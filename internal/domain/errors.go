package domain

import (
	"errors"
	"fmt"
)

var (
	ErrValidation      = errors.New("validation failed")
	ErrAuthentication  = errors.New("authentication failed")
	ErrNotFound        = errors.New("not found")
	ErrExternalService = errors.New("external service error")
	ErrConflict        = errors.New("conflict")

	ErrBankNotFound         = fmt.Errorf("bank %w", ErrNotFound)
	ErrTransactionNotFound  = fmt.Errorf("transaction %w", ErrNotFound)
	ErrUserNotFound         = fmt.Errorf("user %w", ErrNotFound)
	ErrNotificationNotFound = fmt.Errorf("notification %w", ErrNotFound)
)

// ValidationError carries a human-readable reason that is safe to show the caller.
type ValidationError struct {
	Reason string
}

func NewValidationError(format string, args ...any) *ValidationError {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

func (e *ValidationError) Error() string {
	return e.Reason
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// ExternalServiceError wraps a failed call to the payment rail or another collaborator.
type ExternalServiceError struct {
	Service string
	Op      string
	Err     error
}

func (e *ExternalServiceError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Service, e.Op, e.Err)
}

// Unwrap exposes both the sentinel and the cause to errors.Is / errors.As.
func (e *ExternalServiceError) Unwrap() []error {
	return []error{ErrExternalService, e.Err}
}
