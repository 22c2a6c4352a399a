// Package scope computes, for every block of a document, the identifiers declared before it.
//
// Identifiers declared inside a nested slot stay visible after the enclosing block: a
// variable assigned in an "if" branch can be referenced by the blocks following the "if".
// This hoisting is intentional and pinned by tests.
package scope

import (
	"maps"
	"slices"
	"strings"

	"github.com/dukex/blockflow/pkg/document"
	"github.com/dukex/blockflow/pkg/models"
)

// OutputSuggestion is one expression offered for a declared identifier.
type OutputSuggestion struct {
	ID          string `json:"id"`
	Label       string `json:"label"`
	Description string `json:"description,omitempty"`
	ValueType   string `json:"valueType,omitempty"`
	Expression  string `json:"expression"` // "<identifier>.<outputId>"
}

// Suggestion describes where an identifier comes from and what it exposes.
type Suggestion struct {
	Identifier    string             `json:"identifier"`
	SourceKind    string             `json:"sourceKind"`
	SourceLabel   string             `json:"sourceLabel"`
	SourceBlockID string             `json:"sourceBlockId"`
	Outputs       []OutputSuggestion `json:"outputs"`
}

// Index is the result of one resolution pass.
type Index struct {
	// Scopes maps a block id to the identifiers visible before that block runs.
	Scopes map[string][]string `json:"scopes"`
	// Suggestions maps each declared identifier to its metadata.
	Suggestions map[string]Suggestion `json:"suggestions"`
	// Identifiers lists declared identifiers in traversal order.
	Identifiers []string `json:"identifiers"`
}

// BuildIdentifierIndex walks doc depth-first from the root. It never fails: blocks with
// unknown kinds declare nothing and dangling child ids are skipped.
func BuildIdentifierIndex(doc *models.WorkflowDocument, schemas document.SchemaSource) *Index {
	index := &Index{
		Scopes:      make(map[string][]string),
		Suggestions: make(map[string]Suggestion),
		Identifiers: []string{},
	}

	if doc == nil || doc.Block(doc.Root) == nil {
		return index
	}

	walk(doc, schemas, index, doc.Root, []string{}, make(map[string]struct{}))

	return index
}

// walk records the scope visible to blockID and returns the scope after it, which includes
// everything declared in its subtree.
func walk(
	doc *models.WorkflowDocument,
	schemas document.SchemaSource,
	index *Index,
	blockID string,
	scope []string,
	visited map[string]struct{},
) []string {
	if _, seen := visited[blockID]; seen {
		return scope
	}

	block := doc.Block(blockID)
	if block == nil {
		return scope
	}

	visited[blockID] = struct{}{}
	index.Scopes[blockID] = slices.Clone(scope)

	schema := schemaOf(schemas, block.Kind)

	if name := declaredName(block, schema); name != "" && !slices.Contains(scope, name) {
		scope = append(slices.Clip(scope), name)
		index.Identifiers = append(index.Identifiers, name)
		index.Suggestions[name] = suggestionFor(name, block, schema)
	}

	for _, slotID := range slotOrder(block, schema) {
		for _, childID := range block.Children[slotID] {
			scope = walk(doc, schemas, index, childID, scope, visited)
		}
	}

	return scope
}

func schemaOf(schemas document.SchemaSource, kind string) *models.BlockSchema {
	if schemas == nil {
		return nil
	}

	schema, ok := schemas.Get(kind)
	if !ok {
		return nil
	}

	return schema
}

func declaredName(block *models.BlockInstance, schema *models.BlockSchema) string {
	if schema == nil || schema.IdentifierField == "" {
		return ""
	}

	return strings.TrimSpace(block.Data[schema.IdentifierField].String())
}

// slotOrder lists the schema's slots in declaration order, followed by any slots the block
// carries that the schema does not declare, sorted.
func slotOrder(block *models.BlockInstance, schema *models.BlockSchema) []string {
	order := make([]string, 0, len(block.Children))
	declared := make(map[string]struct{})

	if schema != nil {
		for _, slot := range schema.ChildSlots {
			declared[slot.ID] = struct{}{}

			if _, ok := block.Children[slot.ID]; ok {
				order = append(order, slot.ID)
			}
		}
	}

	for _, slotID := range slices.Sorted(maps.Keys(block.Children)) {
		if _, ok := declared[slotID]; !ok {
			order = append(order, slotID)
		}
	}

	return order
}

func suggestionFor(name string, block *models.BlockInstance, schema *models.BlockSchema) Suggestion {
	suggestion := Suggestion{
		Identifier:    name,
		SourceKind:    block.Kind,
		SourceLabel:   schema.Label,
		SourceBlockID: block.ID,
		Outputs:       make([]OutputSuggestion, 0, len(schema.Outputs)),
	}

	if suggestion.SourceLabel == "" {
		suggestion.SourceLabel = block.Kind
	}

	for _, output := range schema.Outputs {
		suggestion.Outputs = append(suggestion.Outputs, OutputSuggestion{
			ID:          output.ID,
			Label:       output.Label,
			Description: output.Description,
			ValueType:   output.ValueType,
			Expression:  name + "." + output.ID,
		})
	}

	return suggestion
}

// CollectIdentifiers returns every identifier declared in doc, in traversal order.
func CollectIdentifiers(doc *models.WorkflowDocument, schemas document.SchemaSource) []string {
	return BuildIdentifierIndex(doc, schemas).Identifiers
}

// SuggestionsForBlock returns metadata for each identifier visible to blockID, in scope order.
// Unknown or unreachable blocks get nil.
func SuggestionsForBlock(doc *models.WorkflowDocument, schemas document.SchemaSource, blockID string) []Suggestion {
	return BuildIdentifierIndex(doc, schemas).SuggestionsFor(blockID)
}

// ExpressionsForBlock returns the identifiers visible to blockID followed, per identifier,
// by its "<identifier>.<output>" expressions.
func ExpressionsForBlock(doc *models.WorkflowDocument, schemas document.SchemaSource, blockID string) []string {
	return BuildIdentifierIndex(doc, schemas).ExpressionsFor(blockID)
}

// SuggestionsFor returns the suggestions visible to blockID.
func (i *Index) SuggestionsFor(blockID string) []Suggestion {
	visible, ok := i.Scopes[blockID]
	if !ok {
		return nil
	}

	suggestions := make([]Suggestion, 0, len(visible))
	for _, name := range visible {
		if suggestion, ok := i.Suggestions[name]; ok {
			suggestions = append(suggestions, suggestion)
		}
	}

	return suggestions
}

// ExpressionsFor returns the flat list of expressions usable in blockID.
func (i *Index) ExpressionsFor(blockID string) []string {
	suggestions := i.SuggestionsFor(blockID)
	if suggestions == nil {
		return nil
	}

	expressions := make([]string, 0, len(suggestions))
	for _, suggestion := range suggestions {
		expressions = append(expressions, suggestion.Identifier)

		for _, output := range suggestion.Outputs {
			expressions = append(expressions, output.Expression)
		}
	}

	return expressions
}
