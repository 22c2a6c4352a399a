// Package redis provides Redis persistence for workflow documents. Each document is stored as a
// JSON string under blockflow:document:<id>; a set keeps the ids for listing.
package redis

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/dukex/blockflow/pkg/models"
	"github.com/dukex/blockflow/pkg/persistence"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "blockflow"

// DocumentKey returns the key holding a document's JSON.
func DocumentKey(id string) string {
	return fmt.Sprintf("%s:document:%s", keyPrefix, id)
}

// IndexKey returns the key of the set of stored document ids.
func IndexKey() string {
	return keyPrefix + ":documents"
}

// Persistence implements persistence.Persistence on top of a Redis client.
type Persistence struct {
	rdb    *redis.Client
	logger *slog.Logger
}

// NewPersistence connects to the Redis server described by a redis:// URL.
func NewPersistence(ctx context.Context, logger *slog.Logger, redisURL string) (*Persistence, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}

	p := NewPersistenceWithOptions(logger, opts)

	if err := p.HealthCheck(ctx); err != nil {
		_ = p.rdb.Close()

		return nil, err
	}

	return p, nil
}

// NewPersistenceWithOptions creates a Persistence without checking connectivity.
func NewPersistenceWithOptions(logger *slog.Logger, opts *redis.Options) *Persistence {
	return &Persistence{
		rdb:    redis.NewClient(opts),
		logger: logger,
	}
}

// Close closes the Redis connection.
func (p *Persistence) Close(_ context.Context) error {
	return p.rdb.Close()
}

// HealthCheck pings the server.
func (p *Persistence) HealthCheck(ctx context.Context) error {
	if err := p.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to ping redis: %w", err)
	}

	return nil
}

// Documents returns every indexed document, oldest first. Index entries whose value has
// disappeared are skipped.
func (p *Persistence) Documents(ctx context.Context) ([]*models.WorkflowDocument, error) {
	ids, err := p.rdb.SMembers(ctx, IndexKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}

	docs := make([]*models.WorkflowDocument, 0, len(ids))
	if len(ids) == 0 {
		return docs, nil
	}

	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, DocumentKey(id))
	}

	values, err := p.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load documents: %w", err)
	}

	for i, value := range values {
		body, ok := value.(string)
		if !ok {
			p.logger.WarnContext(ctx, "Document indexed but missing", "document_id", ids[i])

			continue
		}

		doc, err := decode(ids[i], body)
		if err != nil {
			return nil, err
		}

		docs = append(docs, doc)
	}

	slices.SortFunc(docs, func(a, b *models.WorkflowDocument) int {
		return cmp.Or(a.Metadata.CreatedAt.Compare(b.Metadata.CreatedAt), cmp.Compare(a.ID, b.ID))
	})

	return docs, nil
}

// DocumentByID loads one document.
func (p *Persistence) DocumentByID(ctx context.Context, id string) (*models.WorkflowDocument, error) {
	body, err := p.rdb.Get(ctx, DocumentKey(id)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, persistence.NewDocumentError("DocumentByID", id, persistence.ErrDocumentNotFound)
		}

		return nil, fmt.Errorf("failed to read document %s: %w", id, err)
	}

	return decode(id, body)
}

// SaveDocument writes the document and its index entry in one transaction.
func (p *Persistence) SaveDocument(ctx context.Context, doc *models.WorkflowDocument) error {
	if err := persistence.ValidateForSave("SaveDocument", doc); err != nil {
		return err
	}

	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal document %s: %w", doc.ID, err)
	}

	_, err = p.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, DocumentKey(doc.ID), body, 0)
		pipe.SAdd(ctx, IndexKey(), doc.ID)

		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to write document %s: %w", doc.ID, err)
	}

	return nil
}

// DeleteDocument removes the document and its index entry.
func (p *Persistence) DeleteDocument(ctx context.Context, id string) error {
	var deleted *redis.IntCmd

	_, err := p.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		deleted = pipe.Del(ctx, DocumentKey(id))
		pipe.SRem(ctx, IndexKey(), id)

		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete document %s: %w", id, err)
	}

	if deleted.Val() == 0 {
		return persistence.NewDocumentError("DeleteDocument", id, persistence.ErrDocumentNotFound)
	}

	return nil
}

func decode(id, body string) (*models.WorkflowDocument, error) {
	var doc models.WorkflowDocument
	if err := json.Unmarshal([]byte(body), &doc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal document %s: %w", id, err)
	}

	return &doc, nil
}
