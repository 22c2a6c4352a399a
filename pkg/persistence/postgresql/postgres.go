// Package postgresql provides PostgreSQL persistence for workflow documents.
package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"

	"github.com/dukex/blockflow/pkg/models"
	"github.com/dukex/blockflow/pkg/persistence"
	"github.com/dukex/blockflow/pkg/persistence/sqlbase"
	"github.com/lib/pq"
)

// Persistence implements the persistence layer for PostgreSQL.
type Persistence struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPersistence creates a new PostgreSQL persistence layer and brings the schema up to date.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (*Persistence, error) {
	database, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL database: %w", err)
	}

	err = database.PingContext(ctx)
	if err != nil {
		_ = database.Close()

		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	migrationManager := sqlbase.NewMigrationManager(logger, database, migrations())

	err = migrationManager.RunMigrations(ctx)
	if err != nil {
		_ = database.Close()

		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &Persistence{
		db:     database,
		logger: logger,
	}, nil
}

// Close closes the database connection.
func (p *Persistence) Close(_ context.Context) error {
	if p.db != nil {
		err := p.db.Close()
		if err != nil {
			return fmt.Errorf("failed to close database connection: %w", err)
		}
	}

	return nil
}

// HealthCheck verifies the database connection is healthy.
func (p *Persistence) HealthCheck(ctx context.Context) error {
	err := p.db.PingContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	return nil
}

// Documents returns all documents, oldest first.
func (p *Persistence) Documents(ctx context.Context) ([]*models.WorkflowDocument, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT id, body FROM documents ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query documents: %w", err)
	}

	defer func() {
		err := rows.Close()
		if err != nil {
			p.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	docs := make([]*models.WorkflowDocument, 0)

	for rows.Next() {
		var (
			id   string
			body []byte
		)

		if err := rows.Scan(&id, &body); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}

		doc, err := decode(id, body)
		if err != nil {
			return nil, err
		}

		docs = append(docs, doc)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating documents: %w", err)
	}

	return docs, nil
}

// DocumentByID returns a document by its ID.
func (p *Persistence) DocumentByID(ctx context.Context, id string) (*models.WorkflowDocument, error) {
	var body []byte

	err := p.db.QueryRowContext(ctx, `SELECT body FROM documents WHERE id = $1`, id).Scan(&body)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewDocumentError("DocumentByID", id, persistence.ErrDocumentNotFound)
		}

		return nil, fmt.Errorf("failed to query document %s: %w", id, err)
	}

	return decode(id, body)
}

// SaveDocument inserts or replaces a document.
func (p *Persistence) SaveDocument(ctx context.Context, doc *models.WorkflowDocument) error {
	if err := persistence.ValidateForSave("SaveDocument", doc); err != nil {
		return err
	}

	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal document %s: %w", doc.ID, err)
	}

	query := `
		INSERT INTO documents (id, name, root_block_id, version, body, block_kinds, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name
		  , root_block_id = EXCLUDED.root_block_id
		  , version = EXCLUDED.version
		  , body = EXCLUDED.body
		  , block_kinds = EXCLUDED.block_kinds
		  , updated_at = EXCLUDED.updated_at
	`

	_, err = p.db.ExecContext(ctx, query,
		doc.ID,
		doc.Metadata.Name,
		doc.Root,
		doc.Version,
		body,
		pq.Array(blockKinds(doc)),
		doc.Metadata.CreatedAt,
		doc.Metadata.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save document %s: %w", doc.ID, err)
	}

	return nil
}

// DeleteDocument removes a document by its ID.
func (p *Persistence) DeleteDocument(ctx context.Context, id string) error {
	result, err := p.db.ExecContext(ctx, `DELETE FROM documents WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete document %s: %w", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete document %s: %w", id, err)
	}

	if affected == 0 {
		return persistence.NewDocumentError("DeleteDocument", id, persistence.ErrDocumentNotFound)
	}

	return nil
}

// DocumentsUsingKind returns the ids of documents containing at least one block of kind.
func (p *Persistence) DocumentsUsingKind(ctx context.Context, kind string) ([]string, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT id FROM documents WHERE $1 = ANY(block_kinds) ORDER BY id`, kind)
	if err != nil {
		return nil, fmt.Errorf("failed to query documents using %s: %w", kind, err)
	}

	defer func() {
		err := rows.Close()
		if err != nil {
			p.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	ids := make([]string, 0)

	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan document id: %w", err)
		}

		ids = append(ids, id)
	}

	return ids, rows.Err()
}

func blockKinds(doc *models.WorkflowDocument) []string {
	kinds := make(map[string]struct{}, len(doc.Blocks))
	for _, block := range doc.Blocks {
		kinds[block.Kind] = struct{}{}
	}

	return slices.Sorted(maps.Keys(kinds))
}

func decode(id string, body []byte) (*models.WorkflowDocument, error) {
	var doc models.WorkflowDocument
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal document %s: %w", id, err)
	}

	return &doc, nil
}
