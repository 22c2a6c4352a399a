package printer

import (
	"bytes"
	"testing"

	"github.com/dukex/blockflow/pkg/models"
	"github.com/dukex/blockflow/pkg/scope"
	"github.com/dukex/blockflow/pkg/testutil"
	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withoutColor(t *testing.T) {
	t.Helper()

	previous := color.NoColor
	color.NoColor = true

	t.Cleanup(func() { color.NoColor = previous })
}

func TestTree(t *testing.T) {
	withoutColor(t)

	builder := testutil.NewDocumentBuilder("root").
		Declare("root", "body", "V", "total").
		Add("root", "body", "X", testutil.KindIf, nil).
		Add("X", "then", "L", testutil.KindLog, nil)
	doc := builder.Build()

	var out bytes.Buffer
	Tree(&out, doc, builder.Schemas(), scope.BuildIdentifierIndex(doc, builder.Schemas()))

	expected := "Test Document (" + doc.ID + ")\n" +
		"program root\n" +
		"└── body:\n" +
		"    ├── variable V => total\n" +
		"    └── if X [total]\n" +
		"        ├── then:\n" +
		"        │   └── log L [total]\n" +
		"        └── else:\n"

	assert.Equal(t, expected, out.String())
}

func TestTree_MalformedDocument(t *testing.T) {
	withoutColor(t)

	doc := testutil.NewDocumentBuilder("root").Build()
	doc.Blocks["root"].Children["body"] = []string{"ghost", "root"}

	var out bytes.Buffer
	Tree(&out, doc, testutil.CreateTestSchemas(), nil)

	assert.Contains(t, out.String(), "missing block ghost")
	assert.Contains(t, out.String(), "cycle at root")
}

func TestSchemas(t *testing.T) {
	withoutColor(t)

	var out bytes.Buffer
	Schemas(&out, []*models.BlockSchema{
		{Kind: "if", Label: "If", Category: "control", Description: "Branch"},
		{Kind: "while", Label: "While", Category: "control"},
		{Kind: "log", Label: "Log", Category: "output"},
	})

	lines := bytes.Split(bytes.TrimSpace(out.Bytes()), []byte("\n"))
	require.Len(t, lines, 5)
	assert.Equal(t, "control", string(lines[0]))
	assert.Contains(t, string(lines[1]), "if")
	assert.Contains(t, string(lines[1]), "Branch")
	assert.Equal(t, "output", string(lines[3]))
}

func TestError(t *testing.T) {
	withoutColor(t)

	t.Run("returns error with title", func(t *testing.T) {
		var out bytes.Buffer

		err := Error(&out, "Invalid document", "root is missing", nil)
		require.EqualError(t, err, "Invalid document")
		assert.Equal(t, "Invalid document\n\nroot is missing\n", out.String())
	})

	t.Run("numbers multiple suggestions", func(t *testing.T) {
		var out bytes.Buffer

		err := Error(&out, "Invalid document", "", []string{"Fix it", "Start over"})
		require.Error(t, err)
		assert.Contains(t, out.String(), "Either:\n  1. Fix it\n  2. Start over\n")
	})
}

func TestSuccessAndWarning(t *testing.T) {
	withoutColor(t)

	var out bytes.Buffer
	Success(&out, "%d documents", 2)
	Warning(&out, "careful")

	assert.Equal(t, "✓ 2 documents\n! careful\n", out.String())
}
