package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/dukex/blockflow/pkg/models"
	"github.com/dukex/blockflow/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeDocument(t *testing.T, doc *models.WorkflowDocument) string {
	t.Helper()

	body, err := json.Marshal(doc)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "document.json")
	require.NoError(t, os.WriteFile(path, body, 0o600))

	return path
}

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()

	var stdout, stderr bytes.Buffer

	app := newApp()
	app.Writer = &stdout
	app.ErrWriter = &stderr

	err := app.Run(t.Context(), append([]string{"blockflow", "--no-color"}, args...))

	return stdout.String(), stderr.String(), err
}

func sampleDocument() *models.WorkflowDocument {
	return testutil.NewDocumentBuilder("root").
		Add("root", "body", "V", testutil.KindVariable, map[string]any{"name": "total"}).
		Add("root", "body", "L", testutil.KindLog, map[string]any{"message": "total"}).
		Build()
}

func TestSchemas(t *testing.T) {
	stdout, _, err := run(t, "schemas")
	require.NoError(t, err)
	assert.Contains(t, stdout, "program")
	assert.Contains(t, stdout, "for_each")
}

func TestValidate(t *testing.T) {
	t.Run("valid document", func(t *testing.T) {
		stdout, _, err := run(t, "validate", writeDocument(t, sampleDocument()))
		require.NoError(t, err)
		assert.Contains(t, stdout, "Test Document is valid (3 blocks)")
	})

	t.Run("structural problems", func(t *testing.T) {
		doc := sampleDocument()
		doc.Blocks["root"].Children["body"] = append(doc.Blocks["root"].Children["body"], "ghost")

		_, stderr, err := run(t, "validate", writeDocument(t, doc))
		require.EqualError(t, err, "Document is invalid")
		assert.Contains(t, stderr, "ghost")
	})

	t.Run("invalid field value", func(t *testing.T) {
		doc := sampleDocument()
		doc.Blocks["L"].Data["level"] = models.StringValue("loud")

		_, stderr, err := run(t, "validate", writeDocument(t, doc))
		require.Error(t, err)
		assert.Contains(t, stderr, `block "L"`)
	})

	t.Run("missing file", func(t *testing.T) {
		_, _, err := run(t, "validate", filepath.Join(t.TempDir(), "nope.json"))
		require.EqualError(t, err, "Could not read document")
	})

	t.Run("no argument", func(t *testing.T) {
		_, _, err := run(t, "validate")
		require.EqualError(t, err, "Missing document file")
	})
}

func TestInspect(t *testing.T) {
	path := writeDocument(t, sampleDocument())

	stdout, _, err := run(t, "inspect", path)
	require.NoError(t, err)
	assert.Contains(t, stdout, "variable V => total")
	assert.Contains(t, stdout, "log L [total]")

	stdout, _, err = run(t, "inspect", "--scopes=false", path)
	require.NoError(t, err)
	assert.NotContains(t, stdout, "[total]")
}
