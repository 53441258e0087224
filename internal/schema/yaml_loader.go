package schema

import (
	"errors"
	"fmt"
	"io/fs"

	"gopkg.in/yaml.v3"

	"github.com/orcidhub/orcidhub/internal/record"
)

// ErrInvalidSchema wraps every descriptor validation failure.
var ErrInvalidSchema = errors.New("invalid section schema")

// SectionsFile is the root structure of sections.yaml.
type SectionsFile struct {
	OptionSets map[string][]string `yaml:"option_sets"`
	Fields     []FieldDef          `yaml:"fields"`
	Sections   []SectionDef        `yaml:"sections"`
}

// FieldDef is a shared form field as written in YAML.
type FieldDef struct {
	Name        string                        `yaml:"name"`
	Label       string                        `yaml:"label"`
	Type        FieldType                     `yaml:"type"`    // default "text"
	Options     string                        `yaml:"options"` // name of an option set
	Accessor    record.Path                   `yaml:"accessor"`
	AccessorFor map[Discriminator]record.Path `yaml:"accessor_for"`
	Required    bool                          `yaml:"required"`
	VisibleFor  []Discriminator               `yaml:"visible_for"`
}

// ColumnDef is a listing column as written in YAML.
type ColumnDef struct {
	Label     string        `yaml:"label"`
	Accessor  record.Path   `yaml:"accessor"`
	Args      []record.Path `yaml:"args"`
	Default   string        `yaml:"default"`
	Formatter string        `yaml:"formatter"`
}

// SectionDef is one section descriptor as written in YAML.
type SectionDef struct {
	Code            Discriminator `yaml:"code"`
	Name            string        `yaml:"name"`
	Title           string        `yaml:"title"`
	SourceBearing   bool          `yaml:"source_bearing"`
	PutCodePath     record.Path   `yaml:"put_code_path"`
	SourcePath      record.Path   `yaml:"source_path"`
	SourceNamePath  record.Path   `yaml:"source_name_path"`
	ExternalIDsPath record.Path   `yaml:"external_ids_path"`
	Columns         []ColumnDef   `yaml:"columns"`
}

// LoadFromYAML reads and validates a sections file. All ten
// discriminators must be described exactly once.
func LoadFromYAML(fsys fs.FS, path string) (*Registry, error) {
	content, err := fs.ReadFile(fsys, path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return ParseYAML(content)
}

// ParseYAML builds a registry from sections.yaml content.
func ParseYAML(content []byte) (*Registry, error) {
	var file SectionsFile
	if err := yaml.Unmarshal(content, &file); err != nil {
		return nil, fmt.Errorf("parse sections: %w", err)
	}

	fields, err := buildFields(file)
	if err != nil {
		return nil, err
	}

	seen := make(map[Discriminator]bool, len(file.Sections))
	descs := make([]*Descriptor, 0, len(file.Sections))
	for _, def := range file.Sections {
		if seen[def.Code] {
			return nil, fmt.Errorf("%w: section %s declared twice", ErrInvalidSchema, def.Code)
		}
		seen[def.Code] = true

		desc, err := buildDescriptor(def, fields)
		if err != nil {
			return nil, fmt.Errorf("section %s: %w", def.Code, err)
		}
		descs = append(descs, desc)
	}

	for _, d := range canonical {
		if !seen[d] {
			return nil, fmt.Errorf("%w: section %s (%s) is not described", ErrInvalidSchema, d, d.Name())
		}
	}

	return newRegistry(descs), nil
}

func buildFields(file SectionsFile) ([]FieldSpec, error) {
	names := make(map[string]bool, len(file.Fields))
	out := make([]FieldSpec, 0, len(file.Fields))
	for _, def := range file.Fields {
		if def.Name == "" {
			return nil, fmt.Errorf("%w: field without name", ErrInvalidSchema)
		}
		if names[def.Name] {
			return nil, fmt.Errorf("%w: field %s declared twice", ErrInvalidSchema, def.Name)
		}
		names[def.Name] = true

		if def.Type == "" {
			def.Type = FieldText
		}
		if !def.Type.valid() {
			return nil, fmt.Errorf("%w: field %s has unknown type %q", ErrInvalidSchema, def.Name, def.Type)
		}
		if def.Accessor.IsZero() {
			return nil, fmt.Errorf("%w: field %s has no accessor", ErrInvalidSchema, def.Name)
		}
		if len(def.VisibleFor) == 0 {
			return nil, fmt.Errorf("%w: field %s is not visible for any section", ErrInvalidSchema, def.Name)
		}

		var options []string
		if def.Type == FieldSelect {
			set, ok := file.OptionSets[def.Options]
			if !ok || len(set) == 0 {
				return nil, fmt.Errorf("%w: select field %s references unknown option set %q", ErrInvalidSchema, def.Name, def.Options)
			}
			options = append(options, set...)
		}

		out = append(out, FieldSpec{
			Name:        def.Name,
			Label:       def.Label,
			Type:        def.Type,
			Accessor:    def.Accessor,
			Required:    def.Required,
			Options:     options,
			visibleFor:  def.VisibleFor,
			accessorFor: def.AccessorFor,
		})
	}
	return out, nil
}

func buildDescriptor(def SectionDef, fields []FieldSpec) (*Descriptor, error) {
	if def.Name != "" && def.Name != def.Code.Name() {
		return nil, fmt.Errorf("%w: name %q does not match code (want %q)", ErrInvalidSchema, def.Name, def.Code.Name())
	}
	if def.PutCodePath.IsZero() || def.SourcePath.IsZero() {
		return nil, fmt.Errorf("%w: put_code_path and source_path are required", ErrInvalidSchema)
	}
	if len(def.Columns) == 0 {
		return nil, fmt.Errorf("%w: no columns", ErrInvalidSchema)
	}

	columns := make([]ColumnSpec, 0, len(def.Columns))
	for _, c := range def.Columns {
		col := ColumnSpec{
			Label:     c.Label,
			Accessor:  c.Accessor,
			Args:      c.Args,
			Default:   c.Default,
			Formatter: c.Formatter,
		}
		if c.Formatter != "" {
			f, ok := record.LookupFormatter(c.Formatter)
			if !ok {
				return nil, fmt.Errorf("%w: column %q uses unknown formatter %q", ErrInvalidSchema, c.Label, c.Formatter)
			}
			col.format = f
		}
		if col.Accessor.IsZero() {
			return nil, fmt.Errorf("%w: column %q has no accessor", ErrInvalidSchema, c.Label)
		}
		columns = append(columns, col)
	}

	desc := &Descriptor{
		Discriminator:   def.Code,
		Title:           def.Title,
		SourceBearing:   def.SourceBearing,
		PutCodePath:     def.PutCodePath,
		SourcePath:      def.SourcePath,
		SourceNamePath:  def.SourceNamePath,
		ExternalIDsPath: def.ExternalIDsPath,
		Columns:         columns,
		Fields:          fields,
	}
	if desc.Title == "" {
		desc.Title = def.Code.Name()
	}
	if len(desc.VisibleFields()) == 0 {
		return nil, fmt.Errorf("%w: no form field is visible", ErrInvalidSchema)
	}
	return desc, nil
}
