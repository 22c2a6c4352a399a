package persistence_test

import (
	"errors"
	"testing"

	"github.com/dukex/blockflow/pkg/models"
	"github.com/dukex/blockflow/pkg/persistence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStandardizedErrors(t *testing.T) {
	t.Parallel()

	t.Run("error checking functions work correctly", func(t *testing.T) {
		err := persistence.NewDocumentError("DocumentByID", "doc-123", persistence.ErrDocumentNotFound)

		assert.True(t, persistence.IsDocumentNotFound(err))
		assert.True(t, errors.Is(err, persistence.ErrDocumentNotFound))
		assert.False(t, persistence.IsDocumentNotFound(errors.New("boom")))
	})

	t.Run("document error contains context", func(t *testing.T) {
		err := persistence.NewDocumentError("DeleteDocument", "doc-123", persistence.ErrDocumentNotFound)

		assert.Contains(t, err.Error(), "DeleteDocument")
		assert.Contains(t, err.Error(), "doc-123")
		assert.Contains(t, err.Error(), "document not found")
	})
}

func TestValidateForSave(t *testing.T) {
	t.Parallel()

	valid := &models.WorkflowDocument{
		ID:     "doc-1",
		Root:   "root",
		Blocks: map[string]*models.BlockInstance{"root": {ID: "root", Kind: "program"}},
	}
	require.NoError(t, persistence.ValidateForSave("Save", valid))

	for name, doc := range map[string]*models.WorkflowDocument{
		"nil":          nil,
		"missing id":   {Root: "root", Blocks: valid.Blocks},
		"missing root": {ID: "doc-1", Root: "ghost", Blocks: valid.Blocks},
	} {
		t.Run(name, func(t *testing.T) {
			require.ErrorIs(t, persistence.ValidateForSave("Save", doc), persistence.ErrInvalidDocument)
		})
	}
}
