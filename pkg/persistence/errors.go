package persistence

import (
	"errors"
	"fmt"

	"github.com/dukex/blockflow/pkg/models"
)

var (
	// ErrDocumentNotFound indicates a document was not found by the given identifier.
	ErrDocumentNotFound = errors.New("document not found")

	// ErrInvalidDocument indicates a document could not be stored as given.
	ErrInvalidDocument = errors.New("invalid document")
)

// DocumentError wraps document storage errors with additional context.
type DocumentError struct {
	Op         string // Operation being performed (e.g., "DocumentByID", "Save", "Delete")
	DocumentID string
	Err        error
}

func (e *DocumentError) Error() string {
	return fmt.Sprintf("%s operation failed for document %s: %v", e.Op, e.DocumentID, e.Err)
}

func (e *DocumentError) Unwrap() error {
	return e.Err
}

// Is implements error comparison for document errors.
func (e *DocumentError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewDocumentError creates a new document error with context.
func NewDocumentError(op, documentID string, err error) *DocumentError {
	return &DocumentError{
		Op:         op,
		DocumentID: documentID,
		Err:        err,
	}
}

// IsDocumentNotFound checks if an error indicates a document was not found.
func IsDocumentNotFound(err error) bool {
	return errors.Is(err, ErrDocumentNotFound)
}

// ValidateForSave rejects documents without an id or root.
func ValidateForSave(op string, doc *models.WorkflowDocument) error {
	switch {
	case doc == nil:
		return NewDocumentError(op, "", fmt.Errorf("%w: nil document", ErrInvalidDocument))
	case doc.ID == "":
		return NewDocumentError(op, "", fmt.Errorf("%w: missing id", ErrInvalidDocument))
	case doc.Root == "" || doc.Block(doc.Root) == nil:
		return NewDocumentError(op, doc.ID, fmt.Errorf("%w: missing root", ErrInvalidDocument))
	default:
		return nil
	}
}
