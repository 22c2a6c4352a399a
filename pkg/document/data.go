package document

import (
	"fmt"
	"strings"

	"github.com/dukex/blockflow/pkg/models"
	"github.com/xeipuuv/gojsonschema"
)

// UpdateBlockData overlays data onto a block's fields. Every key must be a field declared by
// the block's schema and every value must satisfy that field's JSON schema, if any.
// Unset values clear the field.
func UpdateBlockData(doc *models.WorkflowDocument, schemas SchemaSource, blockID string, data map[string]models.Value) (*models.WorkflowDocument, error) {
	const op = "UpdateBlockData"

	block := doc.Block(blockID)
	if block == nil {
		return nil, newEditError(op, blockID, ErrBlockNotFound, "")
	}

	schema, err := schemaFor(schemas, op, block.Kind)
	if err != nil {
		return nil, err
	}

	fieldIDs := sortedKeys(data)

	for _, fieldID := range fieldIDs {
		field, ok := schema.Field(fieldID)
		if !ok {
			return nil, newEditError(op, blockID, ErrUnknownField, fmt.Sprintf("field %q is not declared by kind %s", fieldID, block.Kind))
		}

		if err := ValidateFieldValue(field, data[fieldID]); err != nil {
			return nil, newEditError(op, blockID, ErrInvalidFieldValue, err.Error())
		}
	}

	updated := block.Clone()

	for fieldID, value := range data {
		if value.IsUnset() {
			delete(updated.Data, fieldID)

			continue
		}

		updated.Data[fieldID] = value
	}

	next := doc.ShallowCopy()
	next.Blocks[blockID] = updated
	touch(next)

	return next, nil
}

// ValidateFieldValue checks value against the field's JSON schema. Fields without a schema
// and unset values always pass.
func ValidateFieldValue(field models.FieldDef, value models.Value) error {
	if len(field.Schema) == 0 || value.IsUnset() {
		return nil
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewGoLoader(field.Schema),
		gojsonschema.NewGoLoader(value.Interface()),
	)
	if err != nil {
		return fmt.Errorf("field %s: schema validation failed: %w", field.ID, err)
	}

	if result.Valid() {
		return nil
	}

	messages := make([]string, 0, len(result.Errors()))
	for _, resultErr := range result.Errors() {
		messages = append(messages, resultErr.String())
	}

	return fmt.Errorf("field %s: %s", field.ID, strings.Join(messages, "; "))
}
