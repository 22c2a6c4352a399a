package document

import (
	"maps"

	"github.com/dukex/blockflow/pkg/models"
)

// CreateBlockInstance builds a detached block of the given kind with a fresh id. Field
// defaults from the schema are applied first, then data is overlaid; every declared child
// slot starts empty.
func CreateBlockInstance(schemas SchemaSource, kind string, data map[string]models.Value) (*models.BlockInstance, error) {
	schema, err := schemaFor(schemas, "CreateBlockInstance", kind)
	if err != nil {
		return nil, err
	}

	block := &models.BlockInstance{
		ID:       newID(),
		Kind:     kind,
		Data:     make(map[string]models.Value, len(schema.Fields)),
		Children: make(map[string][]string, len(schema.ChildSlots)),
	}

	for _, field := range schema.Fields {
		if field.DefaultValue != nil {
			block.Data[field.ID] = *field.DefaultValue
		}
	}

	maps.Copy(block.Data, data)

	for _, slot := range schema.ChildSlots {
		block.Children[slot.ID] = []string{}
	}

	return block, nil
}

// NewDocument returns a document named name whose root is a fresh block of rootKind.
func NewDocument(schemas SchemaSource, name, rootKind string) (*models.WorkflowDocument, error) {
	root, err := CreateBlockInstance(schemas, rootKind, nil)
	if err != nil {
		return nil, err
	}

	createdAt := now()

	return &models.WorkflowDocument{
		ID:   newID(),
		Root: root.ID,
		Blocks: map[string]*models.BlockInstance{
			root.ID: root,
		},
		Connections: []models.Connection{},
		Metadata: models.DocumentMetadata{
			Name:      name,
			CreatedAt: createdAt,
			UpdatedAt: createdAt,
		},
		Version: models.DocumentFormatVersion,
	}, nil
}

func schemaFor(schemas SchemaSource, op, kind string) (*models.BlockSchema, error) {
	if schemas == nil {
		return nil, newEditError(op, "", ErrUnsupportedBlockKind, "no schema source, kind "+kind)
	}

	schema, ok := schemas.Get(kind)
	if !ok || schema == nil {
		return nil, newEditError(op, "", ErrUnsupportedBlockKind, "kind "+kind)
	}

	return schema, nil
}
