package errors

import (
	"errors"
	"fmt"
)

var (
	// Lead errors
	ErrLeadNotFound       = errors.New("lead not found")
	ErrObligationNotFound = errors.New("contract acceptance not found")

	// Attempt errors
	ErrAttemptNotFound    = errors.New("payment attempt not found")
	ErrInvalidMethod      = errors.New("invalid payment method")
	ErrInvalidInstallment = errors.New("invalid installment part")
	ErrInvalidAmount      = errors.New("invalid amount")

	// Gateway errors
	ErrGatewayNotFound    = errors.New("payment gateway not found")
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")
	ErrGatewayRejected    = errors.New("checkout rejected by gateway")
	ErrGatewayTimeout     = errors.New("gateway request timeout")

	// Configuration errors are fatal for the operation: no retry, and any
	// tracker written for the attempt must be rolled back.
	ErrGatewayNotConfigured = errors.New("gateway credentials not configured")

	// FX errors
	ErrFXRateUnavailable = errors.New("fx rate unavailable")

	// Lock errors
	ErrLockAcquisitionFailed = errors.New("failed to acquire lock")
)

// DomainError wraps errors with additional context
type DomainError struct {
	Code    string
	Message string
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// ValidationError represents a validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for field %s: %s", e.Field, e.Message)
}

// NewValidationError creates a new validation error
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}

// MissingFieldError signals that a gateway requires an identity field the lead
// has not supplied yet. It is recoverable: the caller collects the field and
// re-invokes the same operation, which is safe to repeat.
type MissingFieldError struct {
	Field  string
	Method string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("method %s requires field %s", e.Method, e.Field)
}

// NewMissingFieldError creates a new missing field error
func NewMissingFieldError(field, method string) *MissingFieldError {
	return &MissingFieldError{Field: field, Method: method}
}
