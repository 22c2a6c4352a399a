package document

import (
	"slices"

	"github.com/dukex/blockflow/pkg/models"
)

// AddConnection adds an edge between two block ports. Both endpoints must exist; adding a
// connection that is already present returns doc unchanged.
func AddConnection(doc *models.WorkflowDocument, conn models.Connection) (*models.WorkflowDocument, error) {
	const op = "AddConnection"

	for _, blockID := range []string{conn.From.BlockID, conn.To.BlockID} {
		if doc.Block(blockID) == nil {
			return nil, newEditError(op, blockID, ErrBlockNotFound, "")
		}
	}

	if slices.Contains(doc.Connections, conn) {
		return doc, nil
	}

	next := doc.ShallowCopy()
	next.Connections = append(next.Connections, conn)
	touch(next)

	return next, nil
}

// RemoveConnection removes an existing edge.
func RemoveConnection(doc *models.WorkflowDocument, conn models.Connection) (*models.WorkflowDocument, error) {
	const op = "RemoveConnection"

	index := slices.Index(doc.Connections, conn)
	if index < 0 {
		return nil, newEditError(op, conn.From.BlockID, ErrConnectionNotFound, conn.From.PortID+" -> "+conn.To.BlockID+":"+conn.To.PortID)
	}

	next := doc.ShallowCopy()
	next.Connections = slices.Delete(next.Connections, index, index+1)
	touch(next)

	return next, nil
}
