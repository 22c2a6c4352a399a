package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"slices"

	"github.com/dukex/blockflow/pkg/cmd"
	"github.com/dukex/blockflow/pkg/document"
	"github.com/dukex/blockflow/pkg/log"
	"github.com/dukex/blockflow/pkg/models"
	"github.com/dukex/blockflow/pkg/printer"
	"github.com/dukex/blockflow/pkg/registry"
	"github.com/dukex/blockflow/pkg/scope"
	cli "github.com/urfave/cli/v3"
)

func newApp() *cli.Command {
	return &cli.Command{
		Name:                  "blockflow",
		Usage:                 "Inspect and validate block-tree documents",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "schema-catalog",
				Usage:   "YAML file or directory with additional block kinds",
				Sources: cli.EnvVars("SCHEMA_CATALOG"),
			},
			&cli.BoolFlag{
				Name:  "no-color",
				Usage: "Disable colored output",
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "warn",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Before: func(ctx context.Context, command *cli.Command) (context.Context, error) {
			log.Setup(command.String("log-level"))
			printer.DisableColor(command.Bool("no-color"))

			return ctx, nil
		},
		Commands: []*cli.Command{
			{
				Name:   "schemas",
				Usage:  "List the registered block kinds",
				Action: schemasAction,
			},
			{
				Name:      "validate",
				Usage:     "Check the structural invariants of a document file",
				ArgsUsage: "<file>",
				Action:    validateAction,
			},
			{
				Name:      "inspect",
				Usage:     "Print a document as a tree with the identifiers in scope at every block",
				ArgsUsage: "<file>",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "scopes",
						Usage: "Show identifiers in scope",
						Value: true,
					},
				},
				Action: inspectAction,
			},
		},
	}
}

func newRegistry(command *cli.Command) (*registry.Registry, error) {
	return cmd.NewRegistry(log.WithModule("cli"), command.String("schema-catalog"))
}

func schemasAction(_ context.Context, command *cli.Command) error {
	reg, err := newRegistry(command)
	if err != nil {
		return printer.Error(command.Root().ErrWriter, "Could not load block kinds", err.Error(), nil)
	}

	printer.Schemas(command.Root().Writer, reg.List())

	return nil
}

func validateAction(_ context.Context, command *cli.Command) error {
	doc, err := readDocument(command)
	if err != nil {
		return err
	}

	reg, err := newRegistry(command)
	if err != nil {
		return printer.Error(command.Root().ErrWriter, "Could not load block kinds", err.Error(), nil)
	}

	errs := []error{document.CheckInvariants(doc)}

	for _, id := range slices.Sorted(maps.Keys(doc.Blocks)) {
		block := doc.Blocks[id]
		if block == nil {
			continue
		}

		if _, ok := reg.Get(block.Kind); !ok {
			errs = append(errs, fmt.Errorf("block %q: %w: %s", id, document.ErrUnsupportedBlockKind, block.Kind))

			continue
		}

		if err := reg.ValidateData(block.Kind, block.Data); err != nil {
			errs = append(errs, fmt.Errorf("block %q: %w", id, err))
		}
	}

	if err := errors.Join(errs...); err != nil {
		return printer.Error(command.Root().ErrWriter, "Document is invalid", err.Error(), nil)
	}

	printer.Success(command.Root().Writer, "%s is valid (%d blocks)", doc.Metadata.Name, len(doc.Blocks))

	return nil
}

func inspectAction(_ context.Context, command *cli.Command) error {
	doc, err := readDocument(command)
	if err != nil {
		return err
	}

	reg, err := newRegistry(command)
	if err != nil {
		return printer.Error(command.Root().ErrWriter, "Could not load block kinds", err.Error(), nil)
	}

	var index *scope.Index
	if command.Bool("scopes") {
		index = scope.BuildIdentifierIndex(doc, reg)
	}

	printer.Tree(command.Root().Writer, doc, reg, index)

	if err := document.CheckInvariants(doc); err != nil {
		printer.Warning(command.Root().Writer, "document has structural problems; run validate for details")
	}

	return nil
}

func readDocument(command *cli.Command) (*models.WorkflowDocument, error) {
	path := command.Args().First()
	if path == "" {
		return nil, printer.Error(command.Root().ErrWriter, "Missing document file", "Pass the path of a document JSON file.", nil)
	}

	body, err := os.ReadFile(path)
	if err != nil {
		return nil, printer.Error(command.Root().ErrWriter, "Could not read document", err.Error(), nil)
	}

	var doc models.WorkflowDocument
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, printer.Error(command.Root().ErrWriter, "Could not parse document", err.Error(), []string{
			"Check that the file is a document exported by blockflow-api",
		})
	}

	slog.Debug("Document loaded", "path", path, "blocks", len(doc.Blocks))

	return &doc, nil
}
