// Package document implements the structural editing engine for block-tree documents.
//
// Every operation takes a *models.WorkflowDocument and returns a new one. The input is never
// modified: the result owns a fresh Blocks map and clones only the blocks it touches, so
// untouched BlockInstance values are shared between versions. A failed operation returns
// an error before building anything.
package document

import (
	"maps"
	"slices"
	"time"

	"github.com/dukex/blockflow/pkg/models"
	"github.com/google/uuid"
)

// End appends at the end of a slot when passed as an index.
const End = -1

var (
	now   = func() time.Time { return time.Now().UTC() }
	newID = func() string { return uuid.New().String() }
)

// SchemaSource looks up block schemas by kind.
type SchemaSource interface {
	Get(kind string) (*models.BlockSchema, bool)
}

func touch(doc *models.WorkflowDocument) {
	doc.Metadata.UpdatedAt = now()
}

// lookupSlot resolves parentID/slotID in doc.
func lookupSlot(doc *models.WorkflowDocument, op, parentID, slotID string) (*models.BlockInstance, []string, error) {
	parent := doc.Block(parentID)
	if parent == nil {
		return nil, nil, newEditError(op, parentID, ErrParentNotFound, "")
	}

	children, ok := parent.Children[slotID]
	if !ok {
		return nil, nil, newEditError(op, parentID, ErrSlotNotFound, "slot "+slotID)
	}

	return parent, children, nil
}

// withSlot returns a copy of parent whose slotID list has been replaced by fn's result.
func withSlot(parent *models.BlockInstance, slotID string, fn func([]string) []string) *models.BlockInstance {
	clone := parent.Clone()
	clone.Children[slotID] = fn(clone.Children[slotID])

	return clone
}

func clampIndex(index, length int) int {
	if index == End {
		return length
	}

	return max(0, min(index, length))
}

func sortedKeys[V any](m map[string]V) []string {
	return slices.Sorted(maps.Keys(m))
}

// subtree returns blockID and every block reachable from it through child slots.
func subtree(doc *models.WorkflowDocument, blockID string) map[string]struct{} {
	ids := make(map[string]struct{})
	collectSubtree(doc, blockID, ids)

	return ids
}

func collectSubtree(doc *models.WorkflowDocument, blockID string, ids map[string]struct{}) {
	if _, seen := ids[blockID]; seen {
		return
	}

	ids[blockID] = struct{}{}

	block := doc.Block(blockID)
	if block == nil {
		return
	}

	for _, slotID := range sortedKeys(block.Children) {
		for _, childID := range block.Children[slotID] {
			collectSubtree(doc, childID, ids)
		}
	}
}
