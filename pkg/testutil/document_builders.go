package testutil

import (
	"time"

	"github.com/dukex/blockflow/pkg/models"
	"github.com/google/uuid"
)

// DocumentBuilder assembles WorkflowDocuments with fixed ids for tests.
type DocumentBuilder struct {
	schemas SchemaSet
	doc     *models.WorkflowDocument
}

// NewDocumentBuilder starts a document whose root is a program block with the given id.
func NewDocumentBuilder(rootID string) *DocumentBuilder {
	createdAt := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	builder := &DocumentBuilder{
		schemas: CreateTestSchemas(),
		doc: &models.WorkflowDocument{
			ID:          uuid.New().String(),
			Root:        rootID,
			Blocks:      map[string]*models.BlockInstance{},
			Connections: []models.Connection{},
			Metadata: models.DocumentMetadata{
				Name:      "Test Document",
				CreatedAt: createdAt,
				UpdatedAt: createdAt,
			},
			Version: models.DocumentFormatVersion,
		},
	}

	builder.doc.Blocks[rootID] = builder.newBlock(rootID, KindProgram, nil)

	return builder
}

// Add creates a block of kind with the given id and appends it to parentID's slot.
func (b *DocumentBuilder) Add(parentID, slotID, id, kind string, data map[string]any) *DocumentBuilder {
	b.doc.Blocks[id] = b.newBlock(id, kind, data)

	parent := b.doc.Blocks[parentID]
	parent.Children[slotID] = append(parent.Children[slotID], id)

	return b
}

// Declare appends a variable block declaring name.
func (b *DocumentBuilder) Declare(parentID, slotID, id, name string) *DocumentBuilder {
	return b.Add(parentID, slotID, id, KindVariable, map[string]any{"identifier": name})
}

// Connect adds a connection between two block ports.
func (b *DocumentBuilder) Connect(fromID, fromPort, toID, toPort string) *DocumentBuilder {
	b.doc.Connections = append(b.doc.Connections, models.Connection{
		From: models.PortRef{BlockID: fromID, PortID: fromPort},
		To:   models.PortRef{BlockID: toID, PortID: toPort},
	})

	return b
}

// Build returns the assembled document.
func (b *DocumentBuilder) Build() *models.WorkflowDocument {
	return b.doc
}

// Schemas returns the catalog the builder uses.
func (b *DocumentBuilder) Schemas() SchemaSet {
	return b.schemas
}

func (b *DocumentBuilder) newBlock(id, kind string, data map[string]any) *models.BlockInstance {
	block := &models.BlockInstance{
		ID:       id,
		Kind:     kind,
		Data:     map[string]models.Value{},
		Children: map[string][]string{},
	}

	if schema, ok := b.schemas[kind]; ok {
		for _, slot := range schema.ChildSlots {
			block.Children[slot.ID] = []string{}
		}
	}

	for key, value := range data {
		block.Data[key] = models.MustValueOf(value)
	}

	return block
}

// SlotOf returns a copy of the ids in parentID's slot.
func SlotOf(doc *models.WorkflowDocument, parentID, slotID string) []string {
	return append([]string{}, doc.Blocks[parentID].Children[slotID]...)
}
