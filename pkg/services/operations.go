package services

import (
	"fmt"

	"github.com/dukex/blockflow/pkg/document"
	"github.com/dukex/blockflow/pkg/models"
)

type OperationType string

const (
	OpInsert     OperationType = "insert"
	OpAttach     OperationType = "attach"
	OpDetach     OperationType = "detach"
	OpMove       OperationType = "move"
	OpRemove     OperationType = "remove"
	OpReorder    OperationType = "reorder"
	OpDuplicate  OperationType = "duplicate"
	OpUpdateData OperationType = "update-data"
	OpConnect    OperationType = "connect"
	OpDisconnect OperationType = "disconnect"
)

// Operation is one structural edit. Which fields are read depends on Type:
//
//	insert       Kind, ParentID, SlotID, Index, Data
//	attach, move BlockID, ParentID, SlotID, Index (attach only takes detached blocks)
//	detach       BlockID (the block stays in the session until reattached or stored)
//	remove       BlockID, and ParentID/SlotID (looked up when empty)
//	reorder      ParentID, SlotID, FromIndex, ToIndex
//	duplicate    BlockID
//	update-data  BlockID, Data
//	connect      Connection
//	disconnect   Connection
//
// A nil Index appends.
type Operation struct {
	Type       OperationType           `json:"type"`
	BlockID    string                  `json:"blockId,omitempty"`
	Kind       string                  `json:"kind,omitempty"`
	ParentID   string                  `json:"parentId,omitempty"`
	SlotID     string                  `json:"slotId,omitempty"`
	Index      *int                    `json:"index,omitempty"`
	FromIndex  int                     `json:"fromIndex,omitempty"`
	ToIndex    int                     `json:"toIndex,omitempty"`
	Data       map[string]models.Value `json:"data,omitempty"`
	Connection *models.Connection      `json:"connection,omitempty"`
}

// Result describes an applied operation.
type Result struct {
	Document *models.WorkflowDocument `json:"document"`
	// BlockIDs lists the blocks the operation created or targeted.
	BlockIDs []string `json:"blockIds"`
	// Location is where a detached block used to be.
	Location *models.Location `json:"location,omitempty"`
}

func (op Operation) index() int {
	if op.Index == nil {
		return document.End
	}

	return *op.Index
}

func (op Operation) require(fields map[string]string) error {
	for name, value := range fields {
		if value == "" {
			return fmt.Errorf("%w: %s requires %s", ErrInvalidOperation, op.Type, name)
		}
	}

	return nil
}

// applyOperation runs op against doc. It returns doc itself when the operation changes nothing.
func applyOperation(doc *models.WorkflowDocument, schemas document.SchemaSource, op Operation) (*models.WorkflowDocument, *Result, error) {
	result := &Result{BlockIDs: []string{}}

	var (
		next *models.WorkflowDocument
		err  error
	)

	switch op.Type {
	case OpInsert:
		if err := op.require(map[string]string{"kind": op.Kind, "parentId": op.ParentID, "slotId": op.SlotID}); err != nil {
			return nil, nil, err
		}

		next, err = insertNew(doc, schemas, op, result)

	case OpAttach:
		if err := op.require(map[string]string{"blockId": op.BlockID, "parentId": op.ParentID, "slotId": op.SlotID}); err != nil {
			return nil, nil, err
		}

		next, err = document.ReattachBlock(doc, op.BlockID, op.ParentID, op.SlotID, op.index())
		result.BlockIDs = append(result.BlockIDs, op.BlockID)

	case OpDetach:
		if err := op.require(map[string]string{"blockId": op.BlockID}); err != nil {
			return nil, nil, err
		}

		next, result.Location = document.DetachBlock(doc, op.BlockID)
		result.BlockIDs = append(result.BlockIDs, op.BlockID)

	case OpMove:
		if err := op.require(map[string]string{"blockId": op.BlockID, "parentId": op.ParentID, "slotId": op.SlotID}); err != nil {
			return nil, nil, err
		}

		next, err = document.MoveBlock(doc, op.BlockID, op.ParentID, op.SlotID, op.index())
		result.BlockIDs = append(result.BlockIDs, op.BlockID)

	case OpRemove:
		if err := op.require(map[string]string{"blockId": op.BlockID}); err != nil {
			return nil, nil, err
		}

		parentID, slotID := op.ParentID, op.SlotID
		if parentID == "" && slotID == "" {
			if location := document.FindBlockLocation(doc, op.BlockID); location != nil {
				parentID, slotID = location.ParentID, location.SlotID
			}
		}

		next, err = document.RemoveBlock(doc, op.BlockID, parentID, slotID)
		result.BlockIDs = append(result.BlockIDs, op.BlockID)

	case OpReorder:
		if err := op.require(map[string]string{"parentId": op.ParentID, "slotId": op.SlotID}); err != nil {
			return nil, nil, err
		}

		next, err = document.ReorderChild(doc, op.ParentID, op.SlotID, op.FromIndex, op.ToIndex)

	case OpDuplicate:
		if err := op.require(map[string]string{"blockId": op.BlockID}); err != nil {
			return nil, nil, err
		}

		var cloneID string

		next, cloneID, err = document.DuplicateBlock(doc, op.BlockID)
		result.BlockIDs = append(result.BlockIDs, cloneID)

	case OpUpdateData:
		if err := op.require(map[string]string{"blockId": op.BlockID}); err != nil {
			return nil, nil, err
		}

		next, err = document.UpdateBlockData(doc, schemas, op.BlockID, op.Data)
		result.BlockIDs = append(result.BlockIDs, op.BlockID)

	case OpConnect, OpDisconnect:
		if op.Connection == nil {
			return nil, nil, fmt.Errorf("%w: %s requires connection", ErrInvalidOperation, op.Type)
		}

		if op.Type == OpConnect {
			next, err = document.AddConnection(doc, *op.Connection)
		} else {
			next, err = document.RemoveConnection(doc, *op.Connection)
		}

		result.BlockIDs = append(result.BlockIDs, op.Connection.From.BlockID, op.Connection.To.BlockID)

	default:
		return nil, nil, fmt.Errorf("%w: unknown type %q", ErrInvalidOperation, op.Type)
	}

	if err != nil {
		return nil, nil, err
	}

	result.Document = next

	return next, result, nil
}

// insertNew creates a block of op.Kind, places it and then applies op.Data through the
// validating update so that field values are checked against the schema.
func insertNew(doc *models.WorkflowDocument, schemas document.SchemaSource, op Operation, result *Result) (*models.WorkflowDocument, error) {
	block, err := document.CreateBlockInstance(schemas, op.Kind, nil)
	if err != nil {
		return nil, err
	}

	next, err := document.InsertBlock(doc, op.ParentID, op.SlotID, block, op.index())
	if err != nil {
		return nil, err
	}

	if len(op.Data) > 0 {
		next, err = document.UpdateBlockData(next, schemas, block.ID, op.Data)
		if err != nil {
			return nil, err
		}
	}

	result.BlockIDs = append(result.BlockIDs, block.ID)

	return next, nil
}
