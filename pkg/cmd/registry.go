// Package cmd provides common initialization functions for command-line applications.
package cmd

import (
	"fmt"
	"log/slog"

	"github.com/dukex/blockflow/pkg/registry"
)

// NewRegistry registers the built-in block kinds plus, when catalogPath is set, the kinds
// found in the YAML catalog at catalogPath.
func NewRegistry(log *slog.Logger, catalogPath string) (*registry.Registry, error) {
	reg := registry.NewRegistry(log)

	if err := reg.RegisterBuiltins(); err != nil {
		return nil, fmt.Errorf("failed to register built-in block kinds: %w", err)
	}

	if catalogPath != "" {
		count, err := reg.LoadCatalog(catalogPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load schema catalog: %w", err)
		}

		log.Info("Loaded schema catalog", "path", catalogPath, "kinds", count)
	}

	return reg, nil
}
