package models

// FieldDef describes one data field of a block kind.
type FieldDef struct {
	ID           string         `json:"id"           validate:"required"`
	Label        string         `json:"label,omitempty"`
	DefaultValue *Value         `json:"defaultValue,omitempty"`
	Schema       map[string]any `json:"schema,omitempty"` // JSON Schema for values of this field
}

// SlotDef describes one named, ordered child list of a block kind.
type SlotDef struct {
	ID    string `json:"id"    validate:"required"`
	Label string `json:"label"`
}

// OutputDef describes a value a block exposes under its declared identifier.
type OutputDef struct {
	ID          string `json:"id"          validate:"required"`
	Label       string `json:"label"`
	Description string `json:"description,omitempty"`
	ValueType   string `json:"valueType,omitempty"`
}

// BlockSchema is the kind-indexed description of a block's fields, slots and outputs.
type BlockSchema struct {
	Kind            string      `json:"kind"            validate:"required"`
	Label           string      `json:"label"`
	Description     string      `json:"description,omitempty"`
	Category        string      `json:"category,omitempty"`
	Fields          []FieldDef  `json:"fields"          validate:"dive"`
	ChildSlots      []SlotDef   `json:"childSlots"      validate:"dive"`
	Outputs         []OutputDef `json:"outputs"         validate:"dive"`
	IdentifierField string      `json:"identifierField,omitempty"` // Field holding the name this block declares
}

// Field returns the field definition with the given id.
func (s *BlockSchema) Field(id string) (FieldDef, bool) {
	for _, field := range s.Fields {
		if field.ID == id {
			return field, true
		}
	}

	return FieldDef{}, false
}

// HasSlot reports whether the kind declares the given child slot.
func (s *BlockSchema) HasSlot(id string) bool {
	for _, slot := range s.ChildSlots {
		if slot.ID == id {
			return true
		}
	}

	return false
}
