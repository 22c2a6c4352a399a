// Package services provides the editing session layer on top of the document engines.
package services

import (
	"errors"
	"fmt"

	"github.com/dukex/blockflow/pkg/document"
	"github.com/dukex/blockflow/pkg/persistence"
)

var (
	// Validation Errors (400 Bad Request).
	ErrInvalidOperation = errors.New("invalid operation")
	ErrNothingToUndo    = errors.New("nothing to undo")
	ErrNothingToRedo    = errors.New("nothing to redo")
	ErrInvalidImport    = errors.New("imported document is invalid")

	// ErrCompilerUnavailable is returned by Import and GenerateCode when no Compiler is configured.
	ErrCompilerUnavailable = errors.New("script compiler not configured")

	// ErrDocumentNotFound is returned when a document is neither open nor stored.
	ErrDocumentNotFound = persistence.ErrDocumentNotFound
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

// IsValidationError checks if an error should be reported to the caller as a bad request.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidOperation) ||
		errors.Is(err, ErrInvalidImport) ||
		document.IsPreconditionError(err)
}

// IsConflictError checks if an error conflicts with the current document state.
func IsConflictError(err error) bool {
	return errors.Is(err, ErrNothingToUndo) ||
		errors.Is(err, ErrNothingToRedo) ||
		errors.Is(err, document.ErrCannotRemoveRoot) ||
		errors.Is(err, document.ErrCyclicMove) ||
		errors.Is(err, document.ErrBlockAttached)
}

// IsNotFoundError checks if an error names something that does not exist.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrDocumentNotFound) || document.IsNotFound(err)
}

// NewValidationError creates a new validation error with context.
func NewValidationError(op, code, message string, err error) *ServiceError {
	return &ServiceError{
		Op:      op,
		Code:    code,
		Message: message,
		Err:     err,
	}
}
