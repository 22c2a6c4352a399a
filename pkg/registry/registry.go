// Package registry holds the block schema catalog: which kinds exist and which fields,
// child slots and outputs each kind declares.
package registry

import (
	"cmp"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync"

	"github.com/dukex/blockflow/pkg/document"
	"github.com/dukex/blockflow/pkg/models"
	"github.com/go-playground/validator/v10"
	"github.com/xeipuuv/gojsonschema"
)

var (
	ErrKindAlreadyRegistered = errors.New("block kind already registered")
	ErrKindNotRegistered     = errors.New("block kind not registered")
	ErrInvalidSchema         = errors.New("invalid block schema")
)

type Registry struct {
	logger    *slog.Logger
	validator *validator.Validate

	mu      sync.RWMutex
	schemas map[string]*models.BlockSchema
}

func NewRegistry(log *slog.Logger) *Registry {
	return &Registry{
		logger:    log.With("module", "registry"),
		validator: validator.New(validator.WithRequiredStructEnabled()),
		schemas:   make(map[string]*models.BlockSchema),
	}
}

// Register adds schema to the catalog. The schema is rejected when its kind is taken, when a
// field, slot or output id repeats, when a field's JSON schema does not compile or when its
// identifier field is not one of its fields.
func (r *Registry) Register(schema *models.BlockSchema) error {
	if schema == nil {
		return fmt.Errorf("%w: nil schema", ErrInvalidSchema)
	}

	if err := r.check(schema); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.schemas[schema.Kind]; exists {
		return fmt.Errorf("%w: %s", ErrKindAlreadyRegistered, schema.Kind)
	}

	r.schemas[schema.Kind] = schema

	r.logger.Debug("Registered block kind", "kind", schema.Kind, "fields", len(schema.Fields), "slots", len(schema.ChildSlots))

	return nil
}

func (r *Registry) check(schema *models.BlockSchema) error {
	if err := r.validator.Struct(schema); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrInvalidSchema, schema.Kind, err)
	}

	fieldIDs := make([]string, 0, len(schema.Fields))

	for _, field := range schema.Fields {
		fieldIDs = append(fieldIDs, field.ID)

		if len(field.Schema) > 0 {
			if _, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(field.Schema)); err != nil {
				return fmt.Errorf("%w: %s.%s: %w", ErrInvalidSchema, schema.Kind, field.ID, err)
			}
		}

		if field.DefaultValue != nil {
			if err := document.ValidateFieldValue(field, *field.DefaultValue); err != nil {
				return fmt.Errorf("%w: %s: default: %w", ErrInvalidSchema, schema.Kind, err)
			}
		}
	}

	slotIDs := make([]string, 0, len(schema.ChildSlots))
	for _, slot := range schema.ChildSlots {
		slotIDs = append(slotIDs, slot.ID)
	}

	outputIDs := make([]string, 0, len(schema.Outputs))
	for _, output := range schema.Outputs {
		outputIDs = append(outputIDs, output.ID)
	}

	for what, ids := range map[string][]string{"field": fieldIDs, "slot": slotIDs, "output": outputIDs} {
		if dup, ok := firstDuplicate(ids); ok {
			return fmt.Errorf("%w: %s: duplicate %s %q", ErrInvalidSchema, schema.Kind, what, dup)
		}
	}

	if schema.IdentifierField != "" && !slices.Contains(fieldIDs, schema.IdentifierField) {
		return fmt.Errorf("%w: %s: identifier field %q is not declared", ErrInvalidSchema, schema.Kind, schema.IdentifierField)
	}

	return nil
}

func firstDuplicate(ids []string) (string, bool) {
	seen := make(map[string]struct{}, len(ids))

	for _, id := range ids {
		if _, ok := seen[id]; ok {
			return id, true
		}

		seen[id] = struct{}{}
	}

	return "", false
}

// Get returns the schema registered for kind. It satisfies document.SchemaSource.
func (r *Registry) Get(kind string) (*models.BlockSchema, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	schema, ok := r.schemas[kind]

	return schema, ok
}

// List returns every registered schema ordered by category, then kind.
func (r *Registry) List() []*models.BlockSchema {
	r.mu.RLock()
	defer r.mu.RUnlock()

	schemas := slices.Collect(maps.Values(r.schemas))
	slices.SortFunc(schemas, func(a, b *models.BlockSchema) int {
		return cmp.Or(cmp.Compare(a.Category, b.Category), cmp.Compare(a.Kind, b.Kind))
	})

	return schemas
}

// Kinds returns the registered kinds, sorted.
func (r *Registry) Kinds() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return slices.Sorted(maps.Keys(r.schemas))
}

// ValidateData checks every value against the field declared by kind.
func (r *Registry) ValidateData(kind string, data map[string]models.Value) error {
	schema, ok := r.Get(kind)
	if !ok {
		return fmt.Errorf("%w: %s", ErrKindNotRegistered, kind)
	}

	var errs []error

	for _, fieldID := range slices.Sorted(maps.Keys(data)) {
		field, ok := schema.Field(fieldID)
		if !ok {
			errs = append(errs, fmt.Errorf("%w: field %q is not declared by kind %s", document.ErrUnknownField, fieldID, kind))

			continue
		}

		if err := document.ValidateFieldValue(field, data[fieldID]); err != nil {
			errs = append(errs, fmt.Errorf("%w: %w", document.ErrInvalidFieldValue, err))
		}
	}

	return errors.Join(errs...)
}

// HealthCheck reports an error when the catalog is empty.
func (r *Registry) HealthCheck() error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.schemas) == 0 {
		return errors.New("no block kinds registered")
	}

	return nil
}
