package document

import (
	"fmt"
	"slices"

	"github.com/dukex/blockflow/pkg/models"
)

// AttachBlock inserts an existing block into parent.children[slotID] at index, clamped to
// the slot bounds. It does not check for cycles or for the block already being attached
// elsewhere; MoveBlock composes it with DetachBlock for that.
func AttachBlock(doc *models.WorkflowDocument, blockID, parentID, slotID string, index int) (*models.WorkflowDocument, error) {
	const op = "AttachBlock"

	parent, children, err := lookupSlot(doc, op, parentID, slotID)
	if err != nil {
		return nil, err
	}

	if doc.Block(blockID) == nil {
		return nil, newEditError(op, blockID, ErrBlockNotFound, "")
	}

	position := clampIndex(index, len(children))

	next := doc.ShallowCopy()
	next.Blocks[parentID] = withSlot(parent, slotID, func(ids []string) []string {
		return slices.Insert(ids, position, blockID)
	})
	touch(next)

	return next, nil
}

// ReattachBlock attaches a block that is currently detached, such as one returned to the
// document by DetachBlock. It fails with ErrBlockAttached when the block already has a parent
// and with ErrCyclicMove when parentID lies inside the block's own subtree.
func ReattachBlock(doc *models.WorkflowDocument, blockID, parentID, slotID string, index int) (*models.WorkflowDocument, error) {
	const op = "ReattachBlock"

	if blockID == doc.Root {
		return nil, newEditError(op, blockID, ErrBlockAttached, "root")
	}

	if location := FindBlockLocation(doc, blockID); location != nil {
		return nil, newEditError(op, blockID, ErrBlockAttached, "in "+location.ParentID+"."+location.SlotID)
	}

	if _, inside := subtree(doc, blockID)[parentID]; inside {
		return nil, newEditError(op, blockID, ErrCyclicMove, "target parent "+parentID)
	}

	return AttachBlock(doc, blockID, parentID, slotID, index)
}

// DetachBlock removes blockID from the slot it is attached to. When the block is not
// attached anywhere, doc is returned unchanged together with a nil location.
func DetachBlock(doc *models.WorkflowDocument, blockID string) (*models.WorkflowDocument, *models.Location) {
	location := FindBlockLocation(doc, blockID)
	if location == nil {
		return doc, nil
	}

	next := doc.ShallowCopy()
	next.Blocks[location.ParentID] = withSlot(doc.Blocks[location.ParentID], location.SlotID, func(ids []string) []string {
		return slices.Delete(ids, location.Index, location.Index+1)
	})
	touch(next)

	return next, location
}

// MoveBlock relocates an attached block to parentID/slotID at index.
//
// Moving forward within the same slot targets max(current, index-1), since detaching
// leaves a hole before the target. Moving a block that is not attached returns doc unchanged.
func MoveBlock(doc *models.WorkflowDocument, blockID, parentID, slotID string, index int) (*models.WorkflowDocument, error) {
	const op = "MoveBlock"

	location := FindBlockLocation(doc, blockID)
	if location == nil {
		return doc, nil
	}

	if _, inside := subtree(doc, blockID)[parentID]; inside {
		return nil, newEditError(op, blockID, ErrCyclicMove, "target parent "+parentID)
	}

	target := index
	if location.ParentID == parentID && location.SlotID == slotID && index > location.Index {
		target = max(location.Index, index-1)
	}

	detached, _ := DetachBlock(doc, blockID)

	next, err := AttachBlock(detached, blockID, parentID, slotID, target)
	if err != nil {
		return nil, err
	}

	return next, nil
}

// InsertBlock adds a brand-new block to the document and to parent.children[slotID].
// Index End appends; any other index outside [0, len] fails with ErrInvalidIndex.
func InsertBlock(doc *models.WorkflowDocument, parentID, slotID string, block *models.BlockInstance, index int) (*models.WorkflowDocument, error) {
	const op = "InsertBlock"

	if block == nil || block.ID == "" {
		return nil, newEditError(op, "", ErrInvalidBlock, "block must have an id")
	}

	for slot, children := range block.Children {
		if len(children) > 0 {
			return nil, newEditError(op, block.ID, ErrInvalidBlock, "new block has children in slot "+slot)
		}
	}

	parent, children, err := lookupSlot(doc, op, parentID, slotID)
	if err != nil {
		return nil, err
	}

	if doc.Block(block.ID) != nil {
		return nil, newEditError(op, block.ID, ErrDuplicateBlockID, "")
	}

	position := index
	if index == End {
		position = len(children)
	}

	if position < 0 || position > len(children) {
		return nil, newEditError(op, block.ID, ErrInvalidIndex, fmt.Sprintf("index %d outside [0, %d]", index, len(children)))
	}

	next := doc.ShallowCopy()
	next.Blocks[block.ID] = block.Clone()
	next.Blocks[parentID] = withSlot(parent, slotID, func(ids []string) []string {
		return slices.Insert(ids, position, block.ID)
	})
	touch(next)

	return next, nil
}

// RemoveBlock deletes a block with its entire subtree, removes it from parentID/slotID and
// prunes every connection touching a removed block. The root cannot be removed.
func RemoveBlock(doc *models.WorkflowDocument, blockID, parentID, slotID string) (*models.WorkflowDocument, error) {
	const op = "RemoveBlock"

	if blockID == doc.Root {
		return nil, newEditError(op, blockID, ErrCannotRemoveRoot, "")
	}

	if doc.Block(blockID) == nil {
		return nil, newEditError(op, blockID, ErrBlockNotFound, "")
	}

	parent, children, err := lookupSlot(doc, op, parentID, slotID)
	if err != nil {
		return nil, err
	}

	if !slices.Contains(children, blockID) {
		return nil, newEditError(op, blockID, ErrBlockNotFound, "not in "+parentID+"."+slotID)
	}

	removed := subtree(doc, blockID)

	next := doc.ShallowCopy()
	for id := range removed {
		delete(next.Blocks, id)
	}

	if _, parentRemoved := removed[parentID]; !parentRemoved {
		next.Blocks[parentID] = withSlot(parent, slotID, func(ids []string) []string {
			return slices.DeleteFunc(ids, func(id string) bool { return id == blockID })
		})
	}

	next.Connections = slices.DeleteFunc(next.Connections, func(c models.Connection) bool {
		return c.Touches(removed)
	})
	touch(next)

	return next, nil
}

// ReorderChild moves the element at fromIndex to toIndex within one slot. fromIndex must be
// in range; toIndex is clamped to [0, len-1].
func ReorderChild(doc *models.WorkflowDocument, parentID, slotID string, fromIndex, toIndex int) (*models.WorkflowDocument, error) {
	const op = "ReorderChild"

	parent, children, err := lookupSlot(doc, op, parentID, slotID)
	if err != nil {
		return nil, err
	}

	if fromIndex < 0 || fromIndex >= len(children) {
		return nil, newEditError(op, parentID, ErrInvalidIndex, fmt.Sprintf("fromIndex %d outside [0, %d)", fromIndex, len(children)))
	}

	target := max(0, min(toIndex, len(children)-1))

	next := doc.ShallowCopy()
	next.Blocks[parentID] = withSlot(parent, slotID, func(ids []string) []string {
		moved := ids[fromIndex]
		ids = slices.Delete(ids, fromIndex, fromIndex+1)

		return slices.Insert(ids, target, moved)
	})
	touch(next)

	return next, nil
}
