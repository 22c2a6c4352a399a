package document

import (
	"slices"

	"github.com/dukex/blockflow/pkg/models"
)

// FindBlockLocation returns where blockID is attached, or nil when it is the root, unknown,
// or not attached to any slot. It scans every slot of every block.
func FindBlockLocation(doc *models.WorkflowDocument, blockID string) *models.Location {
	if doc == nil || blockID == doc.Root {
		return nil
	}

	for _, parentID := range sortedKeys(doc.Blocks) {
		parent := doc.Blocks[parentID]
		if parent == nil {
			continue
		}

		for _, slotID := range sortedKeys(parent.Children) {
			if index := slices.Index(parent.Children[slotID], blockID); index >= 0 {
				return &models.Location{
					ParentID: parentID,
					SlotID:   slotID,
					Index:    index,
				}
			}
		}
	}

	return nil
}
