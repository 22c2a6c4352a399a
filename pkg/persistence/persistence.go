// Package persistence provides the storage abstraction for workflow documents.
package persistence

import (
	"context"

	"github.com/dukex/blockflow/pkg/models"
)

// Persistence stores whole documents. Implementations must return ErrDocumentNotFound, wrapped
// in a DocumentError, from DocumentByID and DeleteDocument when the id is unknown.
type Persistence interface {
	Documents(ctx context.Context) ([]*models.WorkflowDocument, error)
	DocumentByID(ctx context.Context, id string) (*models.WorkflowDocument, error)
	SaveDocument(ctx context.Context, doc *models.WorkflowDocument) error
	DeleteDocument(ctx context.Context, id string) error
	HealthCheck(ctx context.Context) error

	Close(ctx context.Context) error
}
