// Package file provides file-based persistence for workflow documents, one JSON file per document.
package file

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/dukex/blockflow/pkg/models"
	"github.com/dukex/blockflow/pkg/persistence"
)

const documentsDir = "documents"

// Persistence implements the persistence.Persistence interface using the file system.
type Persistence struct {
	root string
}

// NewPersistence creates a new instance of Persistence with the specified root directory.
func NewPersistence(root string) *Persistence {
	return &Persistence{root: strings.Replace(root, "file://", "", 1)}
}

// Close performs any necessary cleanup. For file-based persistence, there is nothing to clean up.
func (fp *Persistence) Close(_ context.Context) error {
	return nil
}

// HealthCheck checks if the file persistence layer is healthy by verifying the root directory exists.
func (fp *Persistence) HealthCheck(_ context.Context) error {
	if _, err := os.Stat(fp.root); os.IsNotExist(err) {
		return os.ErrNotExist
	}

	return nil
}

func (fp *Persistence) dir() string {
	return filepath.Join(fp.root, documentsDir)
}

func (fp *Persistence) path(id string) string {
	return filepath.Join(fp.dir(), filepath.Base(id)+".json")
}

// Documents returns every stored document, oldest first.
func (fp *Persistence) Documents(ctx context.Context) ([]*models.WorkflowDocument, error) {
	jsonFiles, err := fs.Glob(os.DirFS(fp.dir()), "*.json")
	if err != nil {
		return nil, fmt.Errorf("failed to list document files: %w", err)
	}

	docs := make([]*models.WorkflowDocument, 0, len(jsonFiles))

	for _, file := range jsonFiles {
		doc, err := fp.DocumentByID(ctx, strings.TrimSuffix(file, ".json"))
		if err != nil {
			return nil, fmt.Errorf("failed to load document %s: %w", file, err)
		}

		docs = append(docs, doc)
	}

	slices.SortFunc(docs, func(a, b *models.WorkflowDocument) int {
		return cmp.Or(a.Metadata.CreatedAt.Compare(b.Metadata.CreatedAt), cmp.Compare(a.ID, b.ID))
	})

	return docs, nil
}

// DocumentByID reads one document from disk.
func (fp *Persistence) DocumentByID(_ context.Context, id string) (*models.WorkflowDocument, error) {
	body, err := os.ReadFile(fp.path(id))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, persistence.NewDocumentError("DocumentByID", id, persistence.ErrDocumentNotFound)
		}

		return nil, fmt.Errorf("failed to fetch document %s: %w", id, err)
	}

	var doc models.WorkflowDocument

	err = json.Unmarshal(body, &doc)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal document %s: %w", id, err)
	}

	return &doc, nil
}

// SaveDocument writes doc to a temporary file and renames it into place.
func (fp *Persistence) SaveDocument(_ context.Context, doc *models.WorkflowDocument) error {
	if err := persistence.ValidateForSave("SaveDocument", doc); err != nil {
		return err
	}

	err := os.MkdirAll(fp.dir(), 0750)
	if err != nil {
		return fmt.Errorf("failed to create documents directory: %w", err)
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal document %s: %w", doc.ID, err)
	}

	tmp, err := os.CreateTemp(fp.dir(), filepath.Base(doc.ID)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file for document %s: %w", doc.ID, err)
	}

	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()

		return fmt.Errorf("failed to write document %s: %w", doc.ID, err)
	}

	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write document %s: %w", doc.ID, err)
	}

	if err := os.Rename(tmp.Name(), fp.path(doc.ID)); err != nil {
		return fmt.Errorf("failed to store document %s: %w", doc.ID, err)
	}

	return nil
}

// DeleteDocument removes a document by its ID.
func (fp *Persistence) DeleteDocument(_ context.Context, id string) error {
	err := os.Remove(fp.path(id))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return persistence.NewDocumentError("DeleteDocument", id, persistence.ErrDocumentNotFound)
		}

		return fmt.Errorf("failed to delete document %s: %w", id, err)
	}

	return nil
}
