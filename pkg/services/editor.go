package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/dukex/blockflow/pkg/document"
	"github.com/dukex/blockflow/pkg/eventbus"
	"github.com/dukex/blockflow/pkg/events"
	"github.com/dukex/blockflow/pkg/models"
	"github.com/dukex/blockflow/pkg/otelhelper"
	"github.com/dukex/blockflow/pkg/persistence"
	"github.com/dukex/blockflow/pkg/scope"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// DefaultHistoryLimit is the number of undo steps kept per session.
const DefaultHistoryLimit = 50

// Compiler converts between documents and their textual script form.
type Compiler interface {
	GenerateCode(ctx context.Context, doc *models.WorkflowDocument) (string, error)
	ImportWorkflow(ctx context.Context, source string) (*models.WorkflowDocument, error)
}

type session struct {
	mu     sync.Mutex
	doc    *models.WorkflowDocument
	undo   []*models.WorkflowDocument
	redo   []*models.WorkflowDocument
	dirty  bool
	closed bool
}

// Editor holds one authoritative document per open session and serializes edits to it.
type Editor struct {
	persistence  persistence.Persistence
	schemas      document.SchemaSource
	eventBus     eventbus.EventPublisher
	compiler     Compiler
	tracer       trace.Tracer
	logger       *slog.Logger
	historyLimit int

	mu       sync.Mutex
	sessions map[string]*session
}

type Option func(*Editor)

func WithEventBus(bus eventbus.EventPublisher) Option {
	return func(e *Editor) { e.eventBus = bus }
}

func WithCompiler(compiler Compiler) Option {
	return func(e *Editor) { e.compiler = compiler }
}

func WithTracer(tracer trace.Tracer) Option {
	return func(e *Editor) { e.tracer = tracer }
}

// WithHistoryLimit bounds the undo history. Values below 1 are ignored.
func WithHistoryLimit(limit int) Option {
	return func(e *Editor) {
		if limit > 0 {
			e.historyLimit = limit
		}
	}
}

// NewEditor creates a new editor service.
func NewEditor(p persistence.Persistence, schemas document.SchemaSource, logger *slog.Logger, opts ...Option) *Editor {
	e := &Editor{
		persistence:  p,
		schemas:      schemas,
		tracer:       otelhelper.NoopTracer(),
		logger:       logger.With("module", "editor"),
		historyLimit: DefaultHistoryLimit,
		sessions:     make(map[string]*session),
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// HealthCheck checks the health of the persistence layer.
func (e *Editor) HealthCheck(ctx context.Context) (string, bool) {
	if e.persistence == nil {
		return "Persistence layer not initialized", false
	}

	err := e.persistence.HealthCheck(ctx)
	if err != nil {
		return "Persistence layer is unhealthy: " + err.Error(), false
	}

	return "Persistence layer is healthy", true
}

// Create starts a new document whose root is a fresh block of rootKind, stores it and opens a session.
func (e *Editor) Create(ctx context.Context, name, rootKind string) (*models.WorkflowDocument, error) {
	ctx, span := otelhelper.StartSpan(ctx, e.tracer, "editor.create",
		attribute.String(otelhelper.BlockKindKey, rootKind),
	)
	defer span.End()

	if strings.TrimSpace(name) == "" {
		err := NewValidationError("Create", "missing_name", "document name is required", ErrInvalidOperation)
		otelhelper.SetError(span, err)

		return nil, err
	}

	doc, err := document.NewDocument(e.schemas, name, rootKind)
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, err
	}

	span.SetAttributes(attribute.String(otelhelper.DocumentIDKey, doc.ID))

	if err := e.persistence.SaveDocument(ctx, doc); err != nil {
		otelhelper.SetError(span, err)

		return nil, fmt.Errorf("failed to store document: %w", err)
	}

	e.track(doc)

	e.logger.InfoContext(ctx, "Document created", "document_id", doc.ID, "name", name, "root_kind", rootKind)
	e.publish(ctx, doc.ID, events.DocumentCreated{
		BaseEvent: events.NewBaseEvent(events.DocumentCreatedEvent, doc.ID),
		Name:      name,
		RootKind:  rootKind,
	})

	return doc, nil
}

// Open loads a stored document into a session. Opening an open document returns its current state.
func (e *Editor) Open(ctx context.Context, id string) (*models.WorkflowDocument, error) {
	var doc *models.WorkflowDocument

	err := e.withSession(ctx, id, func(s *session) error {
		doc = s.doc

		return nil
	})

	return doc, err
}

// Get returns the current document of a session, opening it when needed.
func (e *Editor) Get(ctx context.Context, id string) (*models.WorkflowDocument, error) {
	return e.Open(ctx, id)
}

// List returns every stored document. Open sessions contribute their unsaved state.
func (e *Editor) List(ctx context.Context) ([]*models.WorkflowDocument, error) {
	stored, err := e.persistence.Documents(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}

	for i, doc := range stored {
		if s := e.lookup(doc.ID); s != nil {
			s.mu.Lock()
			if !s.closed {
				stored[i] = s.doc
			}
			s.mu.Unlock()
		}
	}

	return stored, nil
}

// Apply runs one operation against the session's document. A failed operation leaves the
// document and its history untouched; an operation that changes nothing adds no history.
func (e *Editor) Apply(ctx context.Context, id string, op Operation) (*Result, error) {
	ctx, span := otelhelper.StartSpan(ctx, e.tracer, "editor.apply",
		attribute.String(otelhelper.DocumentIDKey, id),
		attribute.String(otelhelper.OperationKey, string(op.Type)),
	)
	defer span.End()

	var (
		result  *Result
		changed bool
	)

	err := e.withSession(ctx, id, func(s *session) error {
		next, res, err := applyOperation(s.doc, e.schemas, op)
		if err != nil {
			return err
		}

		result = res

		if next == s.doc {
			return nil
		}

		if err := document.CheckInvariants(document.Prune(next)); err != nil {
			return fmt.Errorf("%w: %s would corrupt the document: %w", ErrInvalidOperation, op.Type, err)
		}

		e.record(s, next)
		changed = true

		return nil
	})
	if err != nil {
		otelhelper.SetError(span, err, attribute.String(otelhelper.BlockIDKey, op.BlockID))
		e.logger.DebugContext(ctx, "Operation rejected", "document_id", id, "operation", op.Type, "error", err)

		return nil, err
	}

	span.SetAttributes(attribute.Int(otelhelper.BlockCountKey, len(result.Document.Blocks)))

	if changed {
		e.publishUpdate(ctx, result.Document, string(op.Type), result.BlockIDs)
	}

	return result, nil
}

// Undo restores the document as it was before the last applied operation.
func (e *Editor) Undo(ctx context.Context, id string) (*models.WorkflowDocument, error) {
	return e.step(ctx, id, "undo", func(s *session) error {
		if len(s.undo) == 0 {
			return ErrNothingToUndo
		}

		s.redo = append(s.redo, s.doc)
		s.doc = restored(s.undo[len(s.undo)-1])
		s.undo = s.undo[:len(s.undo)-1]

		return nil
	})
}

// Redo reapplies the last undone operation.
func (e *Editor) Redo(ctx context.Context, id string) (*models.WorkflowDocument, error) {
	return e.step(ctx, id, "redo", func(s *session) error {
		if len(s.redo) == 0 {
			return ErrNothingToRedo
		}

		s.undo = append(s.undo, s.doc)
		s.doc = restored(s.redo[len(s.redo)-1])
		s.redo = s.redo[:len(s.redo)-1]

		return nil
	})
}

// History reports how many undo and redo steps a session has.
func (e *Editor) History(ctx context.Context, id string) (int, int, error) {
	var undo, redo int

	err := e.withSession(ctx, id, func(s *session) error {
		undo, redo = len(s.undo), len(s.redo)

		return nil
	})

	return undo, redo, err
}

// Identifiers builds the scope index of the session's current document.
func (e *Editor) Identifiers(ctx context.Context, id string) (*scope.Index, error) {
	doc, err := e.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	return scope.BuildIdentifierIndex(doc, e.schemas), nil
}

// Suggestions lists the identifiers visible to blockID, in scope order.
func (e *Editor) Suggestions(ctx context.Context, id, blockID string) ([]scope.Suggestion, error) {
	doc, err := e.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if doc.Block(blockID) == nil {
		return nil, fmt.Errorf("%w: %s", document.ErrBlockNotFound, blockID)
	}

	suggestions := scope.SuggestionsForBlock(doc, e.schemas, blockID)
	if suggestions == nil {
		suggestions = []scope.Suggestion{}
	}

	return suggestions, nil
}

// Save stores the session's document when it has unsaved changes.
func (e *Editor) Save(ctx context.Context, id string) error {
	s := e.lookup(id)
	if s == nil {
		return nil
	}

	s.mu.Lock()
	saved, err := e.saveLocked(ctx, s)
	doc := s.doc
	s.mu.Unlock()

	if err != nil {
		return err
	}

	if saved {
		e.publishSaved(ctx, doc)
	}

	return nil
}

// Flush stores every session with unsaved changes and returns how many were written.
func (e *Editor) Flush(ctx context.Context) (int, error) {
	ctx, span := otelhelper.StartSpan(ctx, e.tracer, "editor.flush")
	defer span.End()

	var (
		count int
		errs  []error
		saved []*models.WorkflowDocument
	)

	for _, s := range e.snapshot() {
		s.mu.Lock()
		ok, err := e.saveLocked(ctx, s)
		doc := s.doc
		s.mu.Unlock()

		if err != nil {
			errs = append(errs, err)

			continue
		}

		if ok {
			count++
			saved = append(saved, doc)
		}
	}

	for _, doc := range saved {
		e.publishSaved(ctx, doc)
	}

	span.SetAttributes(attribute.Int(otelhelper.BlockCountKey, count))

	err := errors.Join(errs...)
	if err != nil {
		otelhelper.SetError(span, err)
		e.logger.ErrorContext(ctx, "Flush failed", "saved", count, "error", err)

		return count, err
	}

	if count > 0 {
		e.logger.InfoContext(ctx, "Flushed documents", "saved", count)
	}

	return count, nil
}

// Close stores pending changes and drops the session. Closing a document that is not open is a no-op.
func (e *Editor) Close(ctx context.Context, id string) error {
	s := e.lookup(id)
	if s == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}

	if _, err := e.saveLocked(ctx, s); err != nil {
		return err
	}

	s.closed = true
	e.forget(id, s)

	e.logger.InfoContext(ctx, "Session closed", "document_id", id)

	return nil
}

// CloseAll closes every open session.
func (e *Editor) CloseAll(ctx context.Context) error {
	var errs []error

	for _, id := range e.openIDs() {
		if err := e.Close(ctx, id); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// Delete drops the session without saving and removes the document from the store.
func (e *Editor) Delete(ctx context.Context, id string) error {
	ctx, span := otelhelper.StartSpan(ctx, e.tracer, "editor.delete",
		attribute.String(otelhelper.DocumentIDKey, id),
	)
	defer span.End()

	if s := e.lookup(id); s != nil {
		s.mu.Lock()
		s.closed = true
		e.forget(id, s)
		s.mu.Unlock()
	}

	if err := e.persistence.DeleteDocument(ctx, id); err != nil {
		otelhelper.SetError(span, err)

		return err
	}

	e.logger.InfoContext(ctx, "Document deleted", "document_id", id)
	e.publish(ctx, id, events.DocumentDeleted{
		BaseEvent: events.NewBaseEvent(events.DocumentDeletedEvent, id),
	})

	return nil
}

// Import compiles source into a document, checks it, stores it and opens a session.
// A non-empty name replaces the name the compiler produced.
func (e *Editor) Import(ctx context.Context, name, source string) (*models.WorkflowDocument, error) {
	ctx, span := otelhelper.StartSpan(ctx, e.tracer, "editor.import")
	defer span.End()

	if e.compiler == nil {
		otelhelper.SetError(span, ErrCompilerUnavailable)

		return nil, ErrCompilerUnavailable
	}

	imported, err := e.compiler.ImportWorkflow(ctx, source)
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, NewValidationError("Import", "import_failed", err.Error(), errors.Join(ErrInvalidImport, err))
	}

	if imported == nil {
		return nil, NewValidationError("Import", "import_failed", "compiler returned no document", ErrInvalidImport)
	}

	if err := document.CheckInvariants(imported); err != nil {
		otelhelper.SetError(span, err)

		return nil, NewValidationError("Import", "invalid_document", err.Error(), errors.Join(ErrInvalidImport, err))
	}

	doc := imported.ShallowCopy()
	doc.ID = uuid.New().String()
	doc.Version = models.DocumentFormatVersion

	if name != "" {
		doc.Metadata.Name = name
	}

	createdAt := time.Now().UTC()
	doc.Metadata.CreatedAt = createdAt
	doc.Metadata.UpdatedAt = createdAt

	span.SetAttributes(
		attribute.String(otelhelper.DocumentIDKey, doc.ID),
		attribute.Int(otelhelper.BlockCountKey, len(doc.Blocks)),
	)

	if err := e.persistence.SaveDocument(ctx, doc); err != nil {
		otelhelper.SetError(span, err)

		return nil, fmt.Errorf("failed to store document: %w", err)
	}

	e.track(doc)

	rootKind := ""
	if root := doc.Block(doc.Root); root != nil {
		rootKind = root.Kind
	}

	e.logger.InfoContext(ctx, "Document imported", "document_id", doc.ID, "blocks", len(doc.Blocks))
	e.publish(ctx, doc.ID, events.DocumentCreated{
		BaseEvent: events.NewBaseEvent(events.DocumentCreatedEvent, doc.ID),
		Name:      doc.Metadata.Name,
		RootKind:  rootKind,
		Imported:  true,
	})

	return doc, nil
}

// GenerateCode renders the session's current document as script source.
func (e *Editor) GenerateCode(ctx context.Context, id string) (string, error) {
	ctx, span := otelhelper.StartSpan(ctx, e.tracer, "editor.generate_code",
		attribute.String(otelhelper.DocumentIDKey, id),
	)
	defer span.End()

	if e.compiler == nil {
		otelhelper.SetError(span, ErrCompilerUnavailable)

		return "", ErrCompilerUnavailable
	}

	doc, err := e.Get(ctx, id)
	if err != nil {
		otelhelper.SetError(span, err)

		return "", err
	}

	code, err := e.compiler.GenerateCode(ctx, doc)
	if err != nil {
		otelhelper.SetError(span, err)

		return "", fmt.Errorf("failed to generate code: %w", err)
	}

	return code, nil
}

func (e *Editor) step(ctx context.Context, id, name string, fn func(s *session) error) (*models.WorkflowDocument, error) {
	ctx, span := otelhelper.StartSpan(ctx, e.tracer, "editor."+name,
		attribute.String(otelhelper.DocumentIDKey, id),
	)
	defer span.End()

	var doc *models.WorkflowDocument

	err := e.withSession(ctx, id, func(s *session) error {
		if err := fn(s); err != nil {
			return err
		}

		s.dirty = true
		doc = s.doc

		return nil
	})
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, err
	}

	e.publishUpdate(ctx, doc, name, nil)

	return doc, nil
}

// record makes next the session's document and pushes the previous one onto the bounded undo history.
func (e *Editor) record(s *session, next *models.WorkflowDocument) {
	s.undo = append(s.undo, s.doc)
	if overflow := len(s.undo) - e.historyLimit; overflow > 0 {
		s.undo = slices.Delete(s.undo, 0, overflow)
	}

	s.redo = nil
	s.doc = next
	s.dirty = true
}

// restored returns snapshot stamped with the current time.
func restored(snapshot *models.WorkflowDocument) *models.WorkflowDocument {
	doc := snapshot.ShallowCopy()
	doc.Metadata.UpdatedAt = time.Now().UTC()

	return doc
}

// withSession runs fn with the session of id locked, loading it from persistence when needed.
func (e *Editor) withSession(ctx context.Context, id string, fn func(s *session) error) error {
	for {
		s, err := e.session(ctx, id)
		if err != nil {
			return err
		}

		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()

			continue
		}

		err = fn(s)
		s.mu.Unlock()

		return err
	}
}

func (e *Editor) session(ctx context.Context, id string) (*session, error) {
	if s := e.lookup(id); s != nil {
		return s, nil
	}

	doc, err := e.persistence.DocumentByID(ctx, id)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if s, ok := e.sessions[id]; ok {
		return s, nil
	}

	s := &session{doc: doc}
	e.sessions[id] = s

	e.logger.DebugContext(ctx, "Session opened", "document_id", id)

	return s, nil
}

func (e *Editor) track(doc *models.WorkflowDocument) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.sessions[doc.ID] = &session{doc: doc}
}

func (e *Editor) lookup(id string) *session {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.sessions[id]
}

// forget removes s from the session table; callers hold s.mu.
func (e *Editor) forget(id string, s *session) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.sessions[id] == s {
		delete(e.sessions, id)
	}
}

func (e *Editor) snapshot() []*session {
	e.mu.Lock()
	defer e.mu.Unlock()

	return slices.Collect(maps.Values(e.sessions))
}

func (e *Editor) openIDs() []string {
	e.mu.Lock()
	defer e.mu.Unlock()

	return slices.Sorted(maps.Keys(e.sessions))
}

// saveLocked stores s.doc when dirty. Callers hold s.mu.
func (e *Editor) saveLocked(ctx context.Context, s *session) (bool, error) {
	if s.closed || !s.dirty {
		return false, nil
	}

	if err := e.persistence.SaveDocument(ctx, document.Prune(s.doc)); err != nil {
		return false, fmt.Errorf("failed to save document %s: %w", s.doc.ID, err)
	}

	s.dirty = false

	return true, nil
}

func (e *Editor) publishUpdate(ctx context.Context, doc *models.WorkflowDocument, operation string, blockIDs []string) {
	e.publish(ctx, doc.ID, events.DocumentUpdated{
		BaseEvent:  events.NewBaseEvent(events.DocumentUpdatedEvent, doc.ID),
		Operation:  operation,
		BlockIDs:   blockIDs,
		BlockCount: len(doc.Blocks),
		UpdatedAt:  doc.Metadata.UpdatedAt,
	})
}

func (e *Editor) publishSaved(ctx context.Context, doc *models.WorkflowDocument) {
	e.publish(ctx, doc.ID, events.DocumentSaved{
		BaseEvent: events.NewBaseEvent(events.DocumentSavedEvent, doc.ID),
		UpdatedAt: doc.Metadata.UpdatedAt,
	})
}

// publish sends event when an event bus is configured. Failures are logged, not returned.
func (e *Editor) publish(ctx context.Context, key string, event eventbus.Event) {
	if e.eventBus == nil {
		return
	}

	if err := e.eventBus.Publish(ctx, key, event); err != nil {
		e.logger.ErrorContext(ctx, "Failed to publish event", "event_type", event.GetType(), "document_id", key, "error", err)
	}
}
