package document

import (
	"maps"
	"slices"

	"github.com/dukex/blockflow/pkg/models"
)

// DuplicateBlock deep-clones blockID and its subtree, giving every clone a fresh id, and
// inserts the cloned root right after the original in the original's slot. It returns the
// new document and the id of the cloned root. Connections are not copied.
func DuplicateBlock(doc *models.WorkflowDocument, blockID string) (*models.WorkflowDocument, string, error) {
	const op = "DuplicateBlock"

	if doc.Block(blockID) == nil {
		return nil, "", newEditError(op, blockID, ErrBlockNotFound, "")
	}

	location := FindBlockLocation(doc, blockID)
	if location == nil {
		return nil, "", newEditError(op, blockID, ErrBlockNotAttached, "")
	}

	next := doc.ShallowCopy()
	cloneID := cloneSubtree(doc, next, blockID, make(map[string]struct{}))

	next.Blocks[location.ParentID] = withSlot(doc.Blocks[location.ParentID], location.SlotID, func(ids []string) []string {
		return slices.Insert(ids, location.Index+1, cloneID)
	})
	touch(next)

	return next, cloneID, nil
}

// cloneSubtree copies blockID from src into dst under a fresh id, recursing through every
// slot, and returns the new id. Child ids that do not resolve to a block are dropped.
func cloneSubtree(src, dst *models.WorkflowDocument, blockID string, visited map[string]struct{}) string {
	visited[blockID] = struct{}{}

	original := src.Blocks[blockID]
	clone := &models.BlockInstance{
		ID:       newID(),
		Kind:     original.Kind,
		Data:     maps.Clone(original.Data),
		Children: make(map[string][]string, len(original.Children)),
	}

	if clone.Data == nil {
		clone.Data = make(map[string]models.Value)
	}

	for _, slotID := range sortedKeys(original.Children) {
		children := make([]string, 0, len(original.Children[slotID]))

		for _, childID := range original.Children[slotID] {
			if _, seen := visited[childID]; seen || src.Block(childID) == nil {
				continue
			}

			children = append(children, cloneSubtree(src, dst, childID, visited))
		}

		clone.Children[slotID] = children
	}

	dst.Blocks[clone.ID] = clone

	return clone.ID
}
