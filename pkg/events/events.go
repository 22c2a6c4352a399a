// Package events defines the notifications emitted when workflow documents change.
package events

import (
	"time"

	"github.com/google/uuid"
)

type EventType string

// Topic carries every document event.
const Topic = "blockflow.documents"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	DocumentCreatedEvent EventType = "document.created"
	DocumentUpdatedEvent EventType = "document.updated"
	DocumentSavedEvent   EventType = "document.saved"
	DocumentDeletedEvent EventType = "document.deleted"
)

type BaseEvent struct {
	ID         string         `json:"id"`
	Type       EventType      `json:"type"`
	Timestamp  time.Time      `json:"timestamp"`
	DocumentID string         `json:"document_id"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

func NewBaseEvent(eventType EventType, documentID string) BaseEvent {
	return BaseEvent{
		ID:         uuid.New().String(),
		Type:       eventType,
		Timestamp:  time.Now().UTC(),
		DocumentID: documentID,
	}
}

type DocumentCreated struct {
	BaseEvent

	Name     string `json:"name"`
	RootKind string `json:"root_kind"`
	Imported bool   `json:"imported,omitempty"`
}

func (e DocumentCreated) GetType() EventType {
	return DocumentCreatedEvent
}

// DocumentUpdated reports one applied editing operation, undo or redo.
type DocumentUpdated struct {
	BaseEvent

	Operation  string    `json:"operation"`
	BlockIDs   []string  `json:"block_ids,omitempty"`
	BlockCount int       `json:"block_count"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (e DocumentUpdated) GetType() EventType {
	return DocumentUpdatedEvent
}

// DocumentSaved reports that a session's document reached the store.
type DocumentSaved struct {
	BaseEvent

	UpdatedAt time.Time `json:"updated_at"`
}

func (e DocumentSaved) GetType() EventType {
	return DocumentSavedEvent
}

type DocumentDeleted struct {
	BaseEvent
}

func (e DocumentDeleted) GetType() EventType {
	return DocumentDeletedEvent
}
