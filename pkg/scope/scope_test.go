package scope_test

import (
	"testing"

	"github.com/dukex/blockflow/pkg/models"
	"github.com/dukex/blockflow/pkg/scope"
	"github.com/dukex/blockflow/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildIdentifierIndex_SequentialSiblings(t *testing.T) {
	builder := testutil.NewDocumentBuilder("root").
		Add("root", "body", "A", testutil.KindLog, nil).
		Declare("root", "body", "B", "x").
		Add("root", "body", "C", testutil.KindLog, nil)

	index := scope.BuildIdentifierIndex(builder.Build(), builder.Schemas())

	assert.Equal(t, []string{}, index.Scopes["root"])
	assert.Equal(t, []string{}, index.Scopes["A"])
	assert.Equal(t, []string{}, index.Scopes["B"], "a block does not see its own declaration")
	assert.Equal(t, []string{"x"}, index.Scopes["C"])
	assert.Equal(t, []string{"x"}, index.Identifiers)
}

func TestBuildIdentifierIndex_NestedDeclarationsAreHoisted(t *testing.T) {
	builder := testutil.NewDocumentBuilder("root").
		Declare("root", "body", "V", "config").
		Add("root", "body", "X", testutil.KindIf, nil).
		Add("X", "then", "Y", testutil.KindCall, map[string]any{"function": "fetch", "assignTo": "user"}).
		Add("X", "else", "Z", testutil.KindLog, nil).
		Add("root", "body", "W", testutil.KindLog, nil)

	index := scope.BuildIdentifierIndex(builder.Build(), builder.Schemas())

	assert.Equal(t, []string{"config"}, index.Scopes["X"])
	assert.Equal(t, []string{"config"}, index.Scopes["Y"])
	assert.Equal(t, []string{"config", "user"}, index.Scopes["Z"], "later slots see earlier slots")
	assert.Equal(t, []string{"config", "user"}, index.Scopes["W"], "following siblings see nested declarations")
}

func TestBuildIdentifierIndex_ChildrenSeeParentDeclaration(t *testing.T) {
	builder := testutil.NewDocumentBuilder("root").
		Add("root", "body", "L", testutil.KindLoop, map[string]any{"iterator": "item"}).
		Add("L", "body", "P", testutil.KindLog, nil)

	index := scope.BuildIdentifierIndex(builder.Build(), builder.Schemas())

	assert.Equal(t, []string{}, index.Scopes["L"])
	assert.Equal(t, []string{"item"}, index.Scopes["P"])
	assert.Equal(t, []string{"item", "item.index"}, index.ExpressionsFor("P"))
}

func TestBuildIdentifierIndex_IgnoresBlankAndDuplicateNames(t *testing.T) {
	builder := testutil.NewDocumentBuilder("root").
		Declare("root", "body", "A", "  ").
		Declare("root", "body", "B", " total ").
		Declare("root", "body", "C", "total").
		Add("root", "body", "D", testutil.KindLog, nil)

	index := scope.BuildIdentifierIndex(builder.Build(), builder.Schemas())

	assert.Equal(t, []string{"total"}, index.Scopes["D"])
	assert.Equal(t, []string{"total"}, index.Identifiers)
	assert.Equal(t, "B", index.Suggestions["total"].SourceBlockID, "first declaration wins")
}

func TestBuildIdentifierIndex_SuggestionMetadata(t *testing.T) {
	builder := testutil.NewDocumentBuilder("root").
		Add("root", "body", "Y", testutil.KindCall, map[string]any{"assignTo": "user"})

	index := scope.BuildIdentifierIndex(builder.Build(), builder.Schemas())

	suggestion, ok := index.Suggestions["user"]
	require.True(t, ok)
	assert.Equal(t, scope.Suggestion{
		Identifier:    "user",
		SourceKind:    testutil.KindCall,
		SourceLabel:   "Call",
		SourceBlockID: "Y",
		Outputs: []scope.OutputSuggestion{
			{ID: "result", Label: "Result", Description: "Return value", ValueType: "any", Expression: "user.result"},
			{ID: "status", Label: "Status", ValueType: "number", Expression: "user.status"},
		},
	}, suggestion)
}

func TestBuildIdentifierIndex_ToleratesMalformedDocuments(t *testing.T) {
	builder := testutil.NewDocumentBuilder("root").
		Add("root", "body", "M", "mystery", map[string]any{"assignTo": "ignored"}).
		Declare("root", "body", "A", "a")
	doc := builder.Build()

	doc.Blocks["M"].Children["inner"] = []string{"ghost", "N"}
	doc.Blocks["N"] = &models.BlockInstance{ID: "N", Kind: testutil.KindLog}
	doc.Blocks["root"].Children["body"] = append(doc.Blocks["root"].Children["body"], "ghost", "A")

	index := scope.BuildIdentifierIndex(doc, builder.Schemas())

	assert.Equal(t, []string{}, index.Scopes["N"], "children of unknown kinds are still walked")
	assert.NotContains(t, index.Scopes, "ghost")
	assert.Equal(t, []string{"a"}, index.Identifiers, "repeated blocks are visited once")
}

func TestBuildIdentifierIndex_EmptyInputs(t *testing.T) {
	index := scope.BuildIdentifierIndex(nil, testutil.CreateTestSchemas())
	assert.Empty(t, index.Scopes)
	assert.Empty(t, index.Identifiers)

	doc := testutil.NewDocumentBuilder("root").Build()
	doc.Root = "missing"
	assert.Empty(t, scope.BuildIdentifierIndex(doc, testutil.CreateTestSchemas()).Scopes)

	builder := testutil.NewDocumentBuilder("root").Declare("root", "body", "A", "a")
	index = scope.BuildIdentifierIndex(builder.Build(), nil)
	assert.Empty(t, index.Identifiers)
	assert.Contains(t, index.Scopes, "A")
}

func TestBuildIdentifierIndex_Deterministic(t *testing.T) {
	builder := testutil.NewDocumentBuilder("root").
		Declare("root", "body", "A", "a").
		Add("root", "body", "X", testutil.KindIf, nil).
		Declare("X", "then", "B", "b").
		Declare("X", "else", "C", "c")
	doc := builder.Build()

	first := scope.BuildIdentifierIndex(doc, builder.Schemas())
	second := scope.BuildIdentifierIndex(doc, builder.Schemas())

	assert.Equal(t, first, second)
	assert.Equal(t, []string{"a", "b", "c"}, first.Identifiers)
}

func TestCollectIdentifiers(t *testing.T) {
	builder := testutil.NewDocumentBuilder("root").
		Declare("root", "body", "A", "first").
		Add("root", "body", "L", testutil.KindLoop, map[string]any{"iterator": "row"}).
		Declare("L", "body", "B", "second")

	assert.Equal(t, []string{"first", "row", "second"}, scope.CollectIdentifiers(builder.Build(), builder.Schemas()))
}

func TestSuggestionsAndExpressionsForBlock(t *testing.T) {
	builder := testutil.NewDocumentBuilder("root").
		Declare("root", "body", "A", "count").
		Add("root", "body", "Y", testutil.KindCall, map[string]any{"assignTo": "resp"}).
		Add("root", "body", "W", testutil.KindLog, nil)
	doc := builder.Build()

	suggestions := scope.SuggestionsForBlock(doc, builder.Schemas(), "W")
	require.Len(t, suggestions, 2)
	assert.Equal(t, "count", suggestions[0].Identifier)
	assert.Equal(t, "resp", suggestions[1].Identifier)

	assert.Equal(t,
		[]string{"count", "count.value", "resp", "resp.result", "resp.status"},
		scope.ExpressionsForBlock(doc, builder.Schemas(), "W"),
	)

	assert.Empty(t, scope.ExpressionsForBlock(doc, builder.Schemas(), "A"))
	assert.Nil(t, scope.SuggestionsForBlock(doc, builder.Schemas(), "unknown"))
}
