// Package printer renders documents and command results for the terminal.
package printer

import (
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/dukex/blockflow/pkg/document"
	"github.com/dukex/blockflow/pkg/models"
	"github.com/dukex/blockflow/pkg/scope"
	"github.com/fatih/color"
)

var (
	green  = color.New(color.FgGreen)
	yellow = color.New(color.FgYellow)
	red    = color.New(color.FgRed, color.Bold)
	cyan   = color.New(color.FgCyan)
	faint  = color.New(color.Faint)
	bold   = color.New(color.Bold)
)

// DisableColor turns coloring off when disable is set or NO_COLOR is present. Otherwise color
// follows terminal detection.
func DisableColor(disable bool) {
	if disable || os.Getenv("NO_COLOR") != "" {
		color.NoColor = true
	}
}

// Success prints a success message in green with a checkmark prefix.
func Success(w io.Writer, format string, a ...any) {
	green.Fprintf(w, "✓ %s\n", fmt.Sprintf(format, a...))
}

// Warning prints a warning message in yellow.
func Warning(w io.Writer, format string, a ...any) {
	yellow.Fprintf(w, "! %s\n", fmt.Sprintf(format, a...))
}

// Error prints title in red followed by explanation and suggestions, and returns title as an error.
func Error(w io.Writer, title, explanation string, suggestions []string) error {
	red.Fprintf(w, "%s\n\n", title)

	if explanation != "" {
		fmt.Fprintf(w, "%s\n", explanation)
	}

	if len(suggestions) > 0 {
		fmt.Fprintf(w, "\n")

		if len(suggestions) == 1 {
			fmt.Fprintf(w, "%s\n", suggestions[0])
		} else {
			fmt.Fprintf(w, "Either:\n")

			for i, suggestion := range suggestions {
				fmt.Fprintf(w, "  %d. %s\n", i+1, suggestion)
			}
		}
	}

	return fmt.Errorf("%s", title)
}

// Tree prints doc as an indented block tree. When index is not nil every block is followed by
// the identifiers in scope before it.
func Tree(w io.Writer, doc *models.WorkflowDocument, schemas document.SchemaSource, index *scope.Index) {
	bold.Fprintf(w, "%s", doc.Metadata.Name)
	faint.Fprintf(w, " (%s)\n", doc.ID)

	t := &tree{w: w, doc: doc, schemas: schemas, index: index, visited: map[string]struct{}{}}
	t.block(doc.Root, "", "")
}

type tree struct {
	w       io.Writer
	doc     *models.WorkflowDocument
	schemas document.SchemaSource
	index   *scope.Index
	visited map[string]struct{}
}

func (t *tree) block(id, prefix, branch string) {
	block := t.doc.Block(id)
	if block == nil {
		fmt.Fprintf(t.w, "%s%s", prefix, branch)
		red.Fprintf(t.w, "missing block %s\n", id)

		return
	}

	if _, seen := t.visited[id]; seen {
		fmt.Fprintf(t.w, "%s%s", prefix, branch)
		red.Fprintf(t.w, "cycle at %s\n", id)

		return
	}

	t.visited[id] = struct{}{}

	var schema *models.BlockSchema
	if t.schemas != nil {
		schema, _ = t.schemas.Get(block.Kind)
	}

	fmt.Fprintf(t.w, "%s%s", prefix, branch)
	cyan.Fprintf(t.w, "%s", block.Kind)
	faint.Fprintf(t.w, " %s", block.ID)

	if name := declares(block, schema); name != "" {
		green.Fprintf(t.w, " => %s", name)
	}

	if t.index != nil {
		if visible := t.index.Scopes[id]; len(visible) > 0 {
			yellow.Fprintf(t.w, " [%s]", strings.Join(visible, ", "))
		}
	}

	fmt.Fprintln(t.w)

	childPrefix := prefix
	switch branch {
	case "├── ":
		childPrefix += "│   "
	case "└── ":
		childPrefix += "    "
	}

	slots := slotIDs(block, schema)
	for i, slotID := range slots {
		slotBranch, nested := "├── ", childPrefix+"│   "
		if i == len(slots)-1 {
			slotBranch, nested = "└── ", childPrefix+"    "
		}

		fmt.Fprintf(t.w, "%s%s", childPrefix, slotBranch)
		faint.Fprintf(t.w, "%s:\n", slotID)

		children := block.Children[slotID]
		for j, childID := range children {
			if j == len(children)-1 {
				t.block(childID, nested, "└── ")
			} else {
				t.block(childID, nested, "├── ")
			}
		}
	}
}

func declares(block *models.BlockInstance, schema *models.BlockSchema) string {
	if schema == nil || schema.IdentifierField == "" {
		return ""
	}

	return strings.TrimSpace(block.Data[schema.IdentifierField].String())
}

// slotIDs lists the schema's slots in declaration order, then any other slots sorted.
func slotIDs(block *models.BlockInstance, schema *models.BlockSchema) []string {
	var ids []string

	if schema != nil {
		for _, slot := range schema.ChildSlots {
			ids = append(ids, slot.ID)
		}
	}

	var extra []string

	for slotID := range block.Children {
		if !slices.Contains(ids, slotID) {
			extra = append(extra, slotID)
		}
	}

	slices.Sort(extra)

	return append(ids, extra...)
}

// Schemas prints one line per block kind, grouped by category.
func Schemas(w io.Writer, schemas []*models.BlockSchema) {
	category := "\x00"

	for _, schema := range schemas {
		if schema.Category != category {
			category = schema.Category

			title := category
			if title == "" {
				title = "uncategorized"
			}

			bold.Fprintf(w, "%s\n", title)
		}

		cyan.Fprintf(w, "  %-14s", schema.Kind)
		fmt.Fprintf(w, " %s", schema.Label)

		if schema.Description != "" {
			faint.Fprintf(w, "  %s", schema.Description)
		}

		fmt.Fprintln(w)
	}
}
