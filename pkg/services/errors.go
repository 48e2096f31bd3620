// Package services provides standardized error types for service layer operations.
package services

import (
	"errors"
	"fmt"

	"github.com/flowzen/flowzen/pkg/dispatcher"
	"github.com/flowzen/flowzen/pkg/persistence"
)

var (
	// ErrWorkflowNotFound is returned when a workflow is not found.
	ErrWorkflowNotFound = persistence.ErrWorkflowNotFound

	// ErrConnectionNotFound is returned when the user has no connection of a type.
	ErrConnectionNotFound = persistence.ErrConnectionNotFound
)

// Business Logic Errors - These indicate client errors (4xx responses).
var (
	// Validation Errors (400 Bad Request).
	ErrValidation       = errors.New("validation failed")
	ErrInvalidSortField = persistence.ErrInvalidSortField
	ErrInvalidSortOrder = persistence.ErrInvalidSortOrder

	// Identity Errors (401 / 403).
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")

	// Business Logic Conflicts (409 Conflict).
	ErrSaveInProgress = errors.New("save already in progress")

	// Unprocessable (422).
	ErrFlowNotReady       = errors.New("flow has no connected action nodes")
	ErrPreconditionFailed = dispatcher.ErrPreconditionFailed
	ErrNoEmailConnection  = dispatcher.ErrNoEmailConnection

	// Upstream Errors (502 Bad Gateway).
	ErrExternalAuth   = errors.New("external authentication failed")
	ErrExternalAction = dispatcher.ErrExternalAction
)

// ServiceError wraps service-level errors with additional context.
type ServiceError struct {
	Op      string // Operation name
	Code    string // Error code for API responses
	Message string // Human-readable message
	Err     error  // Underlying error
}

func (e *ServiceError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}

	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

func (e *ServiceError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// IsValidationError checks if an error is a validation error that should return HTTP 400.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInvalidSortField) ||
		errors.Is(err, ErrInvalidSortOrder)
}

// IsConflictError checks if an error is a business logic conflict that should return HTTP 409.
func IsConflictError(err error) bool {
	return errors.Is(err, ErrSaveInProgress)
}

// IsUnprocessableError reports errors that return HTTP 422.
func IsUnprocessableError(err error) bool {
	return errors.Is(err, ErrFlowNotReady) || errors.Is(err, ErrPreconditionFailed)
}

// IsUpstreamError reports failures of a third-party service (HTTP 502).
func IsUpstreamError(err error) bool {
	return errors.Is(err, ErrExternalAuth) || errors.Is(err, ErrExternalAction)
}

// IsNotFoundError reports missing workflows or connections (HTTP 404).
func IsNotFoundError(err error) bool {
	return persistence.IsWorkflowNotFound(err) || persistence.IsConnectionNotFound(err)
}

// NewValidationError creates a new validation error with context.
func NewValidationError(op, code, message string, err error) *ServiceError {
	if err == nil {
		err = ErrValidation
	}

	return &ServiceError{
		Op:      op,
		Code:    code,
		Message: message,
		Err:     err,
	}
}

func newError(op, code, message string, err error) *ServiceError {
	return &ServiceError{Op: op, Code: code, Message: message, Err: err}
}
