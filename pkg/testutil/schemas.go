// Package testutil provides test data builders and utilities for testing.
package testutil

import (
	"github.com/dukex/blockflow/pkg/models"
)

// Block kinds used by the test fixtures.
const (
	KindProgram  = "program"
	KindVariable = "variable"
	KindCall     = "call"
	KindIf       = "if"
	KindLoop     = "loop"
	KindLog      = "log"
)

// SchemaSet is an in-memory schema lookup keyed by kind.
type SchemaSet map[string]*models.BlockSchema

// Get returns the schema registered for kind.
func (s SchemaSet) Get(kind string) (*models.BlockSchema, bool) {
	schema, ok := s[kind]

	return schema, ok
}

// CreateTestSchemas returns a small catalog covering declarations, calls and control blocks.
func CreateTestSchemas() SchemaSet {
	emptyString := models.StringValue("")
	level := models.StringValue("info")

	return SchemaSet{
		KindProgram: {
			Kind:       KindProgram,
			Label:      "Program",
			ChildSlots: []models.SlotDef{{ID: "body", Label: "Body"}},
		},
		KindVariable: {
			Kind:  KindVariable,
			Label: "Variable",
			Fields: []models.FieldDef{
				{ID: "identifier", Label: "Name", DefaultValue: &emptyString},
				{ID: "value", Label: "Value"},
			},
			Outputs: []models.OutputDef{
				{ID: "value", Label: "Value", ValueType: "any"},
			},
			IdentifierField: "identifier",
		},
		KindCall: {
			Kind:  KindCall,
			Label: "Call",
			Fields: []models.FieldDef{
				{ID: "function", Label: "Function", Schema: map[string]any{"type": "string", "minLength": 1}},
				{ID: "assignTo", Label: "Assign to"},
				{ID: "retries", Label: "Retries", Schema: map[string]any{"type": "integer", "minimum": 0}},
			},
			Outputs: []models.OutputDef{
				{ID: "result", Label: "Result", Description: "Return value", ValueType: "any"},
				{ID: "status", Label: "Status", ValueType: "number"},
			},
			IdentifierField: "assignTo",
		},
		KindIf: {
			Kind:   KindIf,
			Label:  "If",
			Fields: []models.FieldDef{{ID: "condition", Label: "Condition"}},
			ChildSlots: []models.SlotDef{
				{ID: "then", Label: "Then"},
				{ID: "else", Label: "Else"},
			},
		},
		KindLoop: {
			Kind:            KindLoop,
			Label:           "Loop",
			Fields:          []models.FieldDef{{ID: "iterator", Label: "Iterator"}, {ID: "items", Label: "Items"}},
			ChildSlots:      []models.SlotDef{{ID: "body", Label: "Body"}},
			Outputs:         []models.OutputDef{{ID: "index", Label: "Index", ValueType: "number"}},
			IdentifierField: "iterator",
		},
		KindLog: {
			Kind:  KindLog,
			Label: "Log",
			Fields: []models.FieldDef{
				{ID: "message", Label: "Message"},
				{ID: "level", Label: "Level", DefaultValue: &level, Schema: map[string]any{"enum": []any{"debug", "info", "warn", "error"}}},
			},
		},
	}
}
