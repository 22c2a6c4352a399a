package events

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBaseEvent(t *testing.T) {
	before := time.Now().UTC()
	event := NewBaseEvent(DocumentCreatedEvent, "doc-1")

	assert.NotEmpty(t, event.ID)
	assert.Equal(t, DocumentCreatedEvent, event.Type)
	assert.Equal(t, "doc-1", event.DocumentID)
	assert.False(t, event.Timestamp.Before(before))
	assert.NotEqual(t, event.ID, NewBaseEvent(DocumentCreatedEvent, "doc-1").ID)
}

func TestEvents_GetType(t *testing.T) {
	assert.Equal(t, DocumentCreatedEvent, DocumentCreated{}.GetType())
	assert.Equal(t, DocumentUpdatedEvent, DocumentUpdated{}.GetType())
	assert.Equal(t, DocumentSavedEvent, DocumentSaved{}.GetType())
	assert.Equal(t, DocumentDeletedEvent, DocumentDeleted{}.GetType())
}

func TestDocumentUpdated_JSONSerialization(t *testing.T) {
	original := &DocumentUpdated{
		BaseEvent:  NewBaseEvent(DocumentUpdatedEvent, "doc-123"),
		Operation:  "move",
		BlockIDs:   []string{"A"},
		BlockCount: 4,
		UpdatedAt:  time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}

	jsonData, err := json.Marshal(original)
	require.NoError(t, err)
	assert.Contains(t, string(jsonData), `"type":"document.updated"`)
	assert.Contains(t, string(jsonData), `"document_id":"doc-123"`)
	assert.Contains(t, string(jsonData), `"operation":"move"`)
	assert.Contains(t, string(jsonData), `"block_ids":["A"]`)

	var deserialized DocumentUpdated

	err = json.Unmarshal(jsonData, &deserialized)
	require.NoError(t, err)

	assert.Equal(t, original.ID, deserialized.ID)
	assert.Equal(t, original.Operation, deserialized.Operation)
	assert.Equal(t, original.BlockIDs, deserialized.BlockIDs)
	assert.Equal(t, original.BlockCount, deserialized.BlockCount)
	assert.True(t, original.UpdatedAt.Equal(deserialized.UpdatedAt))
}
