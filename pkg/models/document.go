// Package models defines the block-tree document model shared by the editing and scope engines.
package models

import (
	"maps"
	"time"
)

// DocumentFormatVersion is the current WorkflowDocument layout version.
const DocumentFormatVersion = 1

// PortRef addresses one port of one block.
type PortRef struct {
	BlockID string `json:"blockId" validate:"required"`
	PortID  string `json:"portId"  validate:"required"`
}

// Connection is an edge between block ports, independent of tree containment.
type Connection struct {
	From PortRef `json:"from"`
	To   PortRef `json:"to"`
}

// Touches reports whether either endpoint of the connection belongs to a block in ids.
func (c Connection) Touches(ids map[string]struct{}) bool {
	_, from := ids[c.From.BlockID]
	_, to := ids[c.To.BlockID]

	return from || to
}

// BlockInstance is one node of the program tree.
//
// Instances reachable from a WorkflowDocument are shared between document
// versions and must not be mutated in place; use Clone first.
type BlockInstance struct {
	ID       string              `json:"id"`
	Kind     string              `json:"kind"`
	Data     map[string]Value    `json:"data"`
	Children map[string][]string `json:"children"` // Slot ID -> ordered child block IDs
}

// Clone returns a copy of the block whose maps and slot slices are not shared with the original.
func (b *BlockInstance) Clone() *BlockInstance {
	clone := &BlockInstance{
		ID:       b.ID,
		Kind:     b.Kind,
		Data:     make(map[string]Value, len(b.Data)),
		Children: make(map[string][]string, len(b.Children)),
	}

	maps.Copy(clone.Data, b.Data)

	for slotID, children := range b.Children {
		clone.Children[slotID] = append(make([]string, 0, len(children)), children...)
	}

	return clone
}

// DocumentMetadata carries the descriptive fields of a document.
type DocumentMetadata struct {
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// WorkflowDocument is a program assembled as a tree of blocks rooted at Root.
type WorkflowDocument struct {
	ID          string                    `json:"id"`
	Root        string                    `json:"root"`
	Blocks      map[string]*BlockInstance `json:"blocks"`
	Connections []Connection              `json:"connections"`
	Metadata    DocumentMetadata          `json:"metadata"`
	Version     int                       `json:"version"`
}

// Block returns the block with the given id, or nil.
func (d *WorkflowDocument) Block(id string) *BlockInstance {
	if d == nil || d.Blocks == nil {
		return nil
	}

	return d.Blocks[id]
}

// ShallowCopy returns a new document with its own Blocks map and Connections slice.
// The BlockInstance values themselves are shared.
func (d *WorkflowDocument) ShallowCopy() *WorkflowDocument {
	next := *d
	next.Blocks = make(map[string]*BlockInstance, len(d.Blocks))
	maps.Copy(next.Blocks, d.Blocks)
	next.Connections = append(make([]Connection, 0, len(d.Connections)), d.Connections...)

	return &next
}

// DeepCopy returns a document that shares no mutable state with d.
func (d *WorkflowDocument) DeepCopy() *WorkflowDocument {
	next := d.ShallowCopy()
	for id, block := range next.Blocks {
		next.Blocks[id] = block.Clone()
	}

	return next
}

// Location identifies where a block is attached in the tree.
type Location struct {
	ParentID string `json:"parentId"`
	SlotID   string `json:"slotId"`
	Index    int    `json:"index"`
}
