package document

import (
	"errors"
	"fmt"
	"slices"

	"github.com/dukex/blockflow/pkg/models"
)

// CheckInvariants verifies the structural rules every document must satisfy: a single root
// present in Blocks, every child reference resolving to a block, every non-root block attached
// in exactly one slot and reachable from the root, and connections referencing known blocks.
// It returns all violations joined, each wrapping ErrInvalidDocument.
func CheckInvariants(doc *models.WorkflowDocument) error {
	if doc == nil {
		return fmt.Errorf("%w: document is nil", ErrInvalidDocument)
	}

	var errs []error

	violation := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalidDocument}, args...)...))
	}

	if doc.Block(doc.Root) == nil {
		violation("root %q not found in blocks", doc.Root)
	}

	attachments := make(map[string]int, len(doc.Blocks))

	for _, parentID := range sortedKeys(doc.Blocks) {
		parent := doc.Blocks[parentID]
		if parent == nil {
			violation("block %q is nil", parentID)

			continue
		}

		if parent.ID != parentID {
			violation("block stored under %q has id %q", parentID, parent.ID)
		}

		for _, slotID := range sortedKeys(parent.Children) {
			for _, childID := range parent.Children[slotID] {
				if doc.Block(childID) == nil {
					violation("slot %s.%s references unknown block %q", parentID, slotID, childID)

					continue
				}

				attachments[childID]++
			}
		}
	}

	if attachments[doc.Root] > 0 {
		violation("root %q is attached to a slot", doc.Root)
	}

	for _, blockID := range sortedKeys(doc.Blocks) {
		if blockID == doc.Root {
			continue
		}

		switch count := attachments[blockID]; {
		case count == 0:
			violation("block %q is not attached", blockID)
		case count > 1:
			violation("block %q is attached %d times", blockID, count)
		}
	}

	if doc.Block(doc.Root) != nil {
		reachable := subtree(doc, doc.Root)
		for _, blockID := range sortedKeys(doc.Blocks) {
			if _, ok := reachable[blockID]; !ok && attachments[blockID] > 0 {
				violation("block %q is not reachable from the root", blockID)
			}
		}
	}

	for i, conn := range doc.Connections {
		if doc.Block(conn.From.BlockID) == nil {
			violation("connection %d references unknown source block %q", i, conn.From.BlockID)
		}

		if doc.Block(conn.To.BlockID) == nil {
			violation("connection %d references unknown target block %q", i, conn.To.BlockID)
		}
	}

	return errors.Join(errs...)
}

// Prune drops every block that is not reachable from the root, together with the connections
// touching them. Detached blocks disappear this way when a document is stored. When nothing is
// unreachable, doc itself is returned.
func Prune(doc *models.WorkflowDocument) *models.WorkflowDocument {
	if doc == nil || doc.Block(doc.Root) == nil {
		return doc
	}

	reachable := subtree(doc, doc.Root)

	unreachable := make(map[string]struct{})
	for blockID := range doc.Blocks {
		if _, ok := reachable[blockID]; !ok {
			unreachable[blockID] = struct{}{}
		}
	}

	if len(unreachable) == 0 {
		return doc
	}

	next := doc.ShallowCopy()
	for blockID := range unreachable {
		delete(next.Blocks, blockID)
	}

	next.Connections = slices.DeleteFunc(next.Connections, func(c models.Connection) bool {
		return c.Touches(unreachable)
	})

	return next
}
