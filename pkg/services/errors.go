// Package services exposes the application-facing operations over workflow
// definitions and their execution statistics.
package services

import (
	"errors"
	"fmt"

	"github.com/talentflow/automation/pkg/persistence"
)

// Sentinels re-exported or defined for the web layer to map onto HTTP
// statuses: not-found to 404, validation to 400, conflict to 409.
var (
	ErrWorkflowNotFound = persistence.ErrWorkflowNotFound
	ErrRunNotFound      = persistence.ErrRunNotFound
	ErrVersionConflict  = persistence.ErrVersionConflict

	ErrInvalidRequest    = errors.New("invalid request")
	ErrInvalidSortField  = errors.New("invalid sort field")
	ErrInvalidSortOrder  = errors.New("invalid sort order")
	ErrInvalidStatus     = errors.New("invalid workflow status")
	ErrInvalidDateRange  = errors.New("invalid created date range")
	ErrWorkflowNil       = errors.New("workflow cannot be nil")
	ErrNameRequired      = errors.New("workflow name is required")
	ErrDefinitionInvalid = errors.New("workflow definition failed validation")
)

// ServiceError carries the operation and a machine-readable code alongside the
// wrapped sentinel.
type ServiceError struct {
	Op      string
	Code    string
	Message string
	Err     error
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

func NewValidationError(op, code, message string, err error) *ServiceError {
	return &ServiceError{Op: op, Code: code, Message: message, Err: err}
}

// IsValidationError reports whether the error should surface as HTTP 400.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidRequest) ||
		errors.Is(err, ErrInvalidSortField) ||
		errors.Is(err, ErrInvalidSortOrder) ||
		errors.Is(err, ErrInvalidStatus) ||
		errors.Is(err, ErrInvalidDateRange) ||
		errors.Is(err, ErrWorkflowNil) ||
		errors.Is(err, ErrNameRequired) ||
		errors.Is(err, ErrDefinitionInvalid)
}

// IsNotFound reports whether the error should surface as HTTP 404.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrWorkflowNotFound) || errors.Is(err, ErrRunNotFound)
}

// IsConflict reports whether the error should surface as HTTP 409.
func IsConflict(err error) bool {
	return errors.Is(err, ErrVersionConflict)
}
