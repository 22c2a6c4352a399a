// Package persistencetest holds the behaviour every persistence.Persistence implementation shares.
package persistencetest

import (
	"testing"
	"time"

	"github.com/dukex/blockflow/pkg/models"
	"github.com/dukex/blockflow/pkg/persistence"
	"github.com/dukex/blockflow/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Run exercises store against the contract of persistence.Persistence. newStore must return an
// empty store.
func Run(t *testing.T, newStore func(t *testing.T) persistence.Persistence) {
	t.Helper()

	t.Run("save and load round trip", func(t *testing.T) {
		store := newStore(t)
		ctx := t.Context()

		doc := sampleDocument()
		require.NoError(t, store.SaveDocument(ctx, doc))

		loaded, err := store.DocumentByID(ctx, doc.ID)
		require.NoError(t, err)
		assertSameDocument(t, doc, loaded)
	})

	t.Run("save overwrites", func(t *testing.T) {
		store := newStore(t)
		ctx := t.Context()

		doc := sampleDocument()
		require.NoError(t, store.SaveDocument(ctx, doc))

		updated := doc.DeepCopy()
		updated.Metadata.Name = "Renamed"
		updated.Metadata.UpdatedAt = doc.Metadata.UpdatedAt.Add(time.Hour)
		require.NoError(t, store.SaveDocument(ctx, updated))

		loaded, err := store.DocumentByID(ctx, doc.ID)
		require.NoError(t, err)
		assert.Equal(t, "Renamed", loaded.Metadata.Name)

		all, err := store.Documents(ctx)
		require.NoError(t, err)
		assert.Len(t, all, 1)
	})

	t.Run("list documents", func(t *testing.T) {
		store := newStore(t)
		ctx := t.Context()

		all, err := store.Documents(ctx)
		require.NoError(t, err)
		assert.Empty(t, all)

		first := sampleDocument()
		second := sampleDocument()
		second.Metadata.CreatedAt = first.Metadata.CreatedAt.Add(time.Minute)

		require.NoError(t, store.SaveDocument(ctx, second))
		require.NoError(t, store.SaveDocument(ctx, first))

		all, err = store.Documents(ctx)
		require.NoError(t, err)
		require.Len(t, all, 2)
		assert.Equal(t, first.ID, all[0].ID)
		assert.Equal(t, second.ID, all[1].ID)
	})

	t.Run("missing document", func(t *testing.T) {
		store := newStore(t)
		ctx := t.Context()

		_, err := store.DocumentByID(ctx, "4a0c7a3e-0000-4000-8000-000000000000")
		require.ErrorIs(t, err, persistence.ErrDocumentNotFound)

		err = store.DeleteDocument(ctx, "4a0c7a3e-0000-4000-8000-000000000000")
		require.ErrorIs(t, err, persistence.ErrDocumentNotFound)
	})

	t.Run("delete", func(t *testing.T) {
		store := newStore(t)
		ctx := t.Context()

		doc := sampleDocument()
		require.NoError(t, store.SaveDocument(ctx, doc))
		require.NoError(t, store.DeleteDocument(ctx, doc.ID))

		_, err := store.DocumentByID(ctx, doc.ID)
		require.ErrorIs(t, err, persistence.ErrDocumentNotFound)

		all, err := store.Documents(ctx)
		require.NoError(t, err)
		assert.Empty(t, all)
	})

	t.Run("rejects invalid documents", func(t *testing.T) {
		store := newStore(t)

		doc := sampleDocument()
		doc.Root = ""

		require.ErrorIs(t, store.SaveDocument(t.Context(), doc), persistence.ErrInvalidDocument)
	})

	t.Run("health check", func(t *testing.T) {
		require.NoError(t, newStore(t).HealthCheck(t.Context()))
	})
}

func sampleDocument() *models.WorkflowDocument {
	return testutil.NewDocumentBuilder("root").
		Declare("root", "body", "V", "total").
		Add("root", "body", "X", testutil.KindIf, map[string]any{"condition": "total > 3"}).
		Add("X", "then", "Y", testutil.KindCall, map[string]any{
			"function": "fetch",
			"retries":  2,
			"options":  map[string]any{"cache": true},
		}).
		Add("root", "body", "W", testutil.KindLog, map[string]any{"message": "done"}).
		Connect("Y", "result", "W", "message").
		Build()
}

func assertSameDocument(t *testing.T, expected, actual *models.WorkflowDocument) {
	t.Helper()

	assert.Equal(t, expected.ID, actual.ID)
	assert.Equal(t, expected.Root, actual.Root)
	assert.Equal(t, expected.Connections, actual.Connections)
	assert.Equal(t, expected.Metadata.Name, actual.Metadata.Name)
	assert.True(t, expected.Metadata.CreatedAt.Equal(actual.Metadata.CreatedAt))
	assert.True(t, expected.Metadata.UpdatedAt.Equal(actual.Metadata.UpdatedAt))
	assert.Equal(t, expected.Version, actual.Version)

	require.Len(t, actual.Blocks, len(expected.Blocks))

	for id, block := range expected.Blocks {
		loaded := actual.Blocks[id]
		require.NotNil(t, loaded, "block %s", id)
		assert.Equal(t, block.Kind, loaded.Kind)
		assert.Equal(t, block.Children, loaded.Children)
		require.Len(t, loaded.Data, len(block.Data))

		for field, value := range block.Data {
			assert.True(t, value.Equal(loaded.Data[field]), "block %s field %s", id, field)
		}
	}
}
