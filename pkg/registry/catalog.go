package registry

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/dukex/blockflow/pkg/models"
	"gopkg.in/yaml.v3"
)

//go:embed builtin.yaml
var builtinCatalog []byte

type catalogFile struct {
	Kinds []catalogKind `yaml:"kinds"`
}

type catalogKind struct {
	Kind            string          `yaml:"kind"`
	Label           string          `yaml:"label"`
	Description     string          `yaml:"description"`
	Category        string          `yaml:"category"`
	IdentifierField string          `yaml:"identifierField"`
	Fields          []catalogField  `yaml:"fields"`
	Slots           []catalogSlot   `yaml:"slots"`
	Outputs         []catalogOutput `yaml:"outputs"`
}

type catalogField struct {
	ID      string         `yaml:"id"`
	Label   string         `yaml:"label"`
	Default any            `yaml:"default"`
	Schema  map[string]any `yaml:"schema"`
}

type catalogSlot struct {
	ID    string `yaml:"id"`
	Label string `yaml:"label"`
}

type catalogOutput struct {
	ID          string `yaml:"id"`
	Label       string `yaml:"label"`
	Description string `yaml:"description"`
	Type        string `yaml:"type"`
}

func (k catalogKind) schema() (*models.BlockSchema, error) {
	schema := &models.BlockSchema{
		Kind:            k.Kind,
		Label:           k.Label,
		Description:     k.Description,
		Category:        k.Category,
		IdentifierField: k.IdentifierField,
		Fields:          make([]models.FieldDef, 0, len(k.Fields)),
		ChildSlots:      make([]models.SlotDef, 0, len(k.Slots)),
		Outputs:         make([]models.OutputDef, 0, len(k.Outputs)),
	}

	for _, field := range k.Fields {
		def := models.FieldDef{ID: field.ID, Label: field.Label, Schema: field.Schema}

		if field.Default != nil {
			value, err := models.ValueOf(field.Default)
			if err != nil {
				return nil, fmt.Errorf("%w: %s.%s default: %w", ErrInvalidSchema, k.Kind, field.ID, err)
			}

			def.DefaultValue = &value
		}

		schema.Fields = append(schema.Fields, def)
	}

	for _, slot := range k.Slots {
		schema.ChildSlots = append(schema.ChildSlots, models.SlotDef{ID: slot.ID, Label: slot.Label})
	}

	for _, output := range k.Outputs {
		schema.Outputs = append(schema.Outputs, models.OutputDef{
			ID:          output.ID,
			Label:       output.Label,
			Description: output.Description,
			ValueType:   output.Type,
		})
	}

	return schema, nil
}

// LoadCatalogData registers every kind described by a YAML catalog document and returns how
// many were added. Registration stops at the first invalid kind.
func (r *Registry) LoadCatalogData(data []byte) (int, error) {
	var catalog catalogFile
	if err := yaml.Unmarshal(data, &catalog); err != nil {
		return 0, fmt.Errorf("failed to parse catalog: %w", err)
	}

	for i, kind := range catalog.Kinds {
		schema, err := kind.schema()
		if err != nil {
			return i, err
		}

		if err := r.Register(schema); err != nil {
			return i, err
		}
	}

	return len(catalog.Kinds), nil
}

// LoadCatalog reads a YAML catalog file, or every .yaml/.yml file of a directory in name order.
func (r *Registry) LoadCatalog(path string) (int, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, fmt.Errorf("failed to stat catalog %s: %w", path, err)
	}

	files := []string{path}

	if info.IsDir() {
		files = nil

		err := filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}

			ext := strings.ToLower(filepath.Ext(p))
			if !d.IsDir() && (ext == ".yaml" || ext == ".yml") {
				files = append(files, p)
			}

			return nil
		})
		if err != nil {
			return 0, fmt.Errorf("failed to read catalog directory %s: %w", path, err)
		}

		slices.Sort(files)
	}

	total := 0

	for _, file := range files {
		data, err := os.ReadFile(file)
		if err != nil {
			return total, fmt.Errorf("failed to read catalog %s: %w", file, err)
		}

		n, err := r.LoadCatalogData(data)
		total += n

		if err != nil {
			return total, fmt.Errorf("catalog %s: %w", file, err)
		}

		r.logger.Info("Loaded block catalog", "path", file, "kinds", n)
	}

	if total == 0 {
		return 0, errors.New("catalog " + path + " declares no block kinds")
	}

	return total, nil
}

// RegisterBuiltins registers the kinds shipped with blockflow.
func (r *Registry) RegisterBuiltins() error {
	_, err := r.LoadCatalogData(builtinCatalog)

	return err
}
