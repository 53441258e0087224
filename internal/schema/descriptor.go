package schema

import (
	"slices"

	"github.com/orcidhub/orcidhub/internal/record"
)

// FieldType controls how a form field is rendered and how its submitted
// value is stored.
type FieldType string

const (
	FieldText     FieldType = "text"
	FieldTextarea FieldType = "textarea"
	FieldURL      FieldType = "url"
	FieldDate     FieldType = "date"
	FieldSelect   FieldType = "select"
	FieldNumber   FieldType = "number"
)

func (t FieldType) valid() bool {
	switch t {
	case FieldText, FieldTextarea, FieldURL, FieldDate, FieldSelect, FieldNumber:
		return true
	}
	return false
}

// ColumnSpec describes one listing column.
type ColumnSpec struct {
	Label    string
	Accessor record.Path
	// Args are extra accessors handed to the formatter, e.g. the end date
	// of a year range.
	Args      []record.Path
	Default   string
	Formatter string

	format record.Formatter
}

// Format applies the column formatter to already resolved values. Without
// a formatter the primary value is rendered as a scalar.
func (c ColumnSpec) Format(v any, args ...any) string {
	if c.format == nil {
		s, _ := record.Scalar(v)
		return s
	}
	return c.format(v, args...)
}

// IsLink reports whether cells of this column render as hyperlinks.
func (c ColumnSpec) IsLink() bool {
	return c.Formatter == record.FormatURL
}

// FieldSpec describes one edit form field.
type FieldSpec struct {
	Name     string
	Label    string
	Type     FieldType
	Accessor record.Path
	Required bool // advisory; enforced by the form validator, not here
	Options  []string

	visibleFor  []Discriminator
	accessorFor map[Discriminator]record.Path
}

// VisibleFor returns the discriminators this field is rendered for.
func (f FieldSpec) VisibleFor() []Discriminator {
	return slices.Clone(f.visibleFor)
}

// VisibleIn reports whether the field belongs on d's form.
func (f FieldSpec) VisibleIn(d Discriminator) bool {
	return slices.Contains(f.visibleFor, d)
}

// AccessorIn returns the accessor used for d, honouring per-section overrides.
func (f FieldSpec) AccessorIn(d Discriminator) record.Path {
	if p, ok := f.accessorFor[d]; ok {
		return p
	}
	return f.Accessor
}

// Descriptor is the immutable description of one record section.
type Descriptor struct {
	Discriminator Discriminator
	Title         string
	// SourceBearing sections carry "source.source-client-id" and offer the
	// permission invite.
	SourceBearing   bool
	PutCodePath     record.Path
	SourcePath      record.Path
	SourceNamePath  record.Path
	ExternalIDsPath record.Path
	Columns         []ColumnSpec
	// Fields is the shared form catalog; see VisibleFields.
	Fields []FieldSpec
}

// HasExternalIDs reports whether the form carries the repeatable external
// identifier editor.
func (d *Descriptor) HasExternalIDs() bool {
	return !d.ExternalIDsPath.IsZero()
}

// VisibleFields returns the fields rendered on this section's form, in
// declaration order, each with its accessor resolved for this section.
func (d *Descriptor) VisibleFields() []FieldSpec {
	out := make([]FieldSpec, 0, len(d.Fields))
	for _, f := range d.Fields {
		if !f.VisibleIn(d.Discriminator) {
			continue
		}
		f.Accessor = f.AccessorIn(d.Discriminator)
		out = append(out, f)
	}
	return out
}

// Field returns the named field if it is visible on this section's form.
func (d *Descriptor) Field(name string) (FieldSpec, bool) {
	for _, f := range d.VisibleFields() {
		if f.Name == name {
			return f, true
		}
	}
	return FieldSpec{}, false
}
