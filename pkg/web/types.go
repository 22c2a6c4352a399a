// Package web provides HTTP request and response types for the document editing API.
package web

import (
	"time"

	"github.com/dukex/blockflow/pkg/models"
	"github.com/dukex/blockflow/pkg/services"
)

// CreateDocumentRequest represents the request body for creating a new document.
type CreateDocumentRequest struct {
	Name     string `json:"name"      validate:"required,min=1,max=200"`
	RootKind string `json:"root_kind" validate:"required"`
}

// ImportDocumentRequest represents the request body for importing a document from script source.
type ImportDocumentRequest struct {
	Name   string `json:"name"   validate:"omitempty,max=200"`
	Source string `json:"source" validate:"required"`
}

// OperationRequest represents one structural edit. Index is optional; when absent the block
// is appended to the target slot.
type OperationRequest struct {
	Type       string                  `json:"type"                  validate:"required,oneof=insert attach detach move remove reorder duplicate update-data connect disconnect"`
	BlockID    string                  `json:"block_id,omitempty"`
	Kind       string                  `json:"kind,omitempty"`
	ParentID   string                  `json:"parent_id,omitempty"`
	SlotID     string                  `json:"slot_id,omitempty"`
	Index      *int                    `json:"index,omitempty"       validate:"omitempty,min=0"`
	FromIndex  int                     `json:"from_index,omitempty"  validate:"min=0"`
	ToIndex    int                     `json:"to_index,omitempty"`
	Data       map[string]models.Value `json:"data,omitempty"`
	Connection *models.Connection      `json:"connection,omitempty"`
}

// Operation converts the request to a service operation.
func (r OperationRequest) Operation() services.Operation {
	return services.Operation{
		Type:       services.OperationType(r.Type),
		BlockID:    r.BlockID,
		Kind:       r.Kind,
		ParentID:   r.ParentID,
		SlotID:     r.SlotID,
		Index:      r.Index,
		FromIndex:  r.FromIndex,
		ToIndex:    r.ToIndex,
		Data:       r.Data,
		Connection: r.Connection,
	}
}

// DocumentSummary is the list view of a document.
type DocumentSummary struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	BlockCount int       `json:"block_count"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// TransformDocumentSummary builds the list view of doc.
func TransformDocumentSummary(doc *models.WorkflowDocument) DocumentSummary {
	return DocumentSummary{
		ID:         doc.ID,
		Name:       doc.Metadata.Name,
		BlockCount: len(doc.Blocks),
		CreatedAt:  doc.Metadata.CreatedAt,
		UpdatedAt:  doc.Metadata.UpdatedAt,
	}
}

// HistoryResponse reports the undo and redo depth of a session.
type HistoryResponse struct {
	Undo int `json:"undo"`
	Redo int `json:"redo"`
}

// DocumentResponse wraps a document with its session history.
type DocumentResponse struct {
	Document *models.WorkflowDocument `json:"document"`
	History  HistoryResponse          `json:"history"`
}

// OperationResponse is returned after applying an operation.
type OperationResponse struct {
	Document *models.WorkflowDocument `json:"document"`
	BlockIDs []string                 `json:"block_ids"`
	Location *models.Location         `json:"location,omitempty"`
	History  HistoryResponse          `json:"history"`
}

// IdentifiersResponse exposes the scope index of a document.
type IdentifiersResponse struct {
	Identifiers []string            `json:"identifiers"`
	Scopes      map[string][]string `json:"scopes"`
}

// CodeResponse carries generated script source.
type CodeResponse struct {
	Code string `json:"code"`
}
