package errors

import (
	"errors"
	"fmt"
)

// Domain error types for business logic

var (
	// ErrNotFound indicates a resource was not found
	ErrNotFound = errors.New("resource not found")

	// ErrInvalidInput indicates invalid input parameters
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnauthorized indicates insufficient permissions
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden indicates action is forbidden
	ErrForbidden = errors.New("forbidden")

	// ErrInternal indicates an internal server error
	ErrInternal = errors.New("internal error")

	// ErrTimeout indicates an operation timeout
	ErrTimeout = errors.New("operation timeout")

	// ErrUnavailable indicates a service is unavailable
	ErrUnavailable = errors.New("service unavailable")

	// ErrExternal indicates an upstream service returned an error
	ErrExternal = errors.New("external service error")

	// ErrNotImplemented indicates the capability is not implemented
	ErrNotImplemented = errors.New("not implemented")
)

// Configuration errors (fatal at startup, never reach request handling)

var (
	// ErrConfigMissing indicates a required setting has no value in any source
	ErrConfigMissing = errors.New("required configuration missing")

	// ErrStackNotFound indicates the infrastructure stack does not exist
	ErrStackNotFound = errors.New("stack not found")

	// ErrOutputNotFound indicates the stack exists but the output key does not
	ErrOutputNotFound = errors.New("stack output not found")
)

// Memory/session errors (recovered by degrading the current request)

var (
	// ErrMemoryUnavailable indicates the remote memory service rejected or failed a call
	ErrMemoryUnavailable = errors.New("memory service unavailable")

	// ErrSessionTooShort indicates a caller-supplied session ID below the minimum length
	ErrSessionTooShort = errors.New("session id shorter than minimum length")
)

// Gateway errors (surfaced to the model as tool results, mapped from HTTP status)

var (
	// ErrGatewayAuth indicates the gateway rejected the service credential
	ErrGatewayAuth = errors.New("gateway authentication failed")

	// ErrGatewayForbidden indicates the credential lacks required scopes
	ErrGatewayForbidden = errors.New("gateway authorization failed")

	// ErrGatewayNotFound indicates the tool service behind the gateway is missing
	ErrGatewayNotFound = errors.New("gateway tool service not found")

	// ErrGatewayProtocol indicates the gateway returned a JSON-RPC level error
	ErrGatewayProtocol = errors.New("gateway protocol error")

	// ErrRateLimitExceeded indicates the outbound rate limit was hit
	ErrRateLimitExceeded = errors.New("rate limit exceeded")
)

// DomainError wraps an error with additional context
type DomainError struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the wrapped error
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

// ValidationError represents a validation error with field-specific details
type ValidationError struct {
	Field   string
	Message string
	Value   interface{}
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: field '%s': %s (value: %v)", e.Field, e.Message, e.Value)
}

// NewValidationError creates a new validation error
func NewValidationError(field, message string, value interface{}) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
		Value:   value,
	}
}

// Helper functions

// Is checks if err is or wraps target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target type
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Wrap wraps an error with context
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with formatted context
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

func New(message string) error {
	return errors.New(message)
}

func Newf(format string, args ...interface{}) error {
	return fmt.Errorf(format, args...)
}
