package view

import (
	"fmt"
	"strings"

	"github.com/orcidhub/orcidhub/internal/extid"
	"github.com/orcidhub/orcidhub/internal/record"
	"github.com/orcidhub/orcidhub/internal/schema"
)

// ExternalIDsField carries the JSON-serialised external id list.
const ExternalIDsField = "external_ids"

// Field is one render-ready form input.
type Field struct {
	Name     string
	Label    string
	Type     schema.FieldType
	Value    string
	Required bool
	Options  []string
}

// FormContext is the caller-supplied context of a form.
type FormContext struct {
	UserID string
	// ExternalIDs, when non-empty, is a JSON list (as produced by
	// extid.List.Marshal) that replaces the ids stored on the record.
	ExternalIDs string
}

// FormView is a render-ready create or edit form.
type FormView struct {
	Discriminator schema.Discriminator
	Title         string
	UserID        string
	PutCode       string // empty for a new record
	Fields        []Field
	// ExternalIDs is nil for sections without the external id editor.
	ExternalIDs *extid.List
	Issues      []extid.Issue
	ActionURL   string
	CancelURL   string
}

// IsNew reports whether the form creates a record.
func (f *FormView) IsNew() bool {
	return f.PutCode == ""
}

// RenderForm builds the form for rec, or an empty form when rec is nil.
// Only fields visible for the section are included; missing paths
// prefill as "".
func RenderForm(desc *schema.Descriptor, rec record.Record, ctx FormContext) (*FormView, error) {
	fv := &FormView{
		Discriminator: desc.Discriminator,
		Title:         desc.Title,
		UserID:        ctx.UserID,
		CancelURL:     ListURL(ctx.UserID, desc.Discriminator),
	}
	if rec != nil {
		fv.PutCode = rec.String(desc.PutCodePath, "")
	}
	if fv.IsNew() {
		fv.ActionURL = NewURL(ctx.UserID, desc.Discriminator)
	} else {
		fv.ActionURL = EditURL(ctx.UserID, desc.Discriminator, fv.PutCode)
	}

	for _, fs := range desc.VisibleFields() {
		fv.Fields = append(fv.Fields, Field{
			Name:     fs.Name,
			Label:    fs.Label,
			Type:     fs.Type,
			Value:    prefill(fs, rec),
			Required: fs.Required,
			Options:  fs.Options,
		})
	}

	if desc.HasExternalIDs() {
		ids, err := initialExternalIDs(desc, rec, ctx.ExternalIDs)
		if err != nil {
			return nil, err
		}
		fv.ExternalIDs = ids
		fv.Issues = ids.Validate()
	}
	return fv, nil
}

func prefill(fs schema.FieldSpec, rec record.Record) string {
	if rec == nil {
		return ""
	}
	v, ok := rec.Lookup(fs.Accessor)
	if !ok {
		return ""
	}
	if fs.Type == schema.FieldDate {
		if d, err := record.ParsePartialDate(v); err == nil {
			return d.String()
		}
	}
	s, _ := record.Scalar(v)
	return s
}

func initialExternalIDs(desc *schema.Descriptor, rec record.Record, supplied string) (*extid.List, error) {
	if strings.TrimSpace(supplied) != "" {
		ids, err := extid.Unmarshal([]byte(supplied))
		if err != nil {
			return nil, fmt.Errorf("%s field: %w", ExternalIDsField, err)
		}
		return ids, nil
	}
	if rec == nil {
		return extid.NewList(), nil
	}
	ids, err := extid.FromORCID(LookupExternalIDs(desc, rec))
	if err != nil {
		return nil, fmt.Errorf("record %s: %w", desc.ExternalIDsPath, err)
	}
	return ids, nil
}

// LookupExternalIDs resolves the external id array, accepting either key
// style for the last path segment ("external_id" or "external-id").
func LookupExternalIDs(desc *schema.Descriptor, rec record.Record) any {
	p := desc.ExternalIDsPath
	if p.IsZero() {
		return nil
	}
	if v, ok := rec.Lookup(p); ok {
		return v
	}
	alt := append(record.Path{}, p...)
	last := alt[len(alt)-1]
	if strings.Contains(last, "_") {
		alt[len(alt)-1] = strings.ReplaceAll(last, "_", "-")
	} else {
		alt[len(alt)-1] = strings.ReplaceAll(last, "-", "_")
	}
	v, _ := rec.Lookup(alt)
	return v
}

// Fill overwrites field values with submitted ones, for re-rendering a
// form after an editor action. Unknown names are ignored.
func (f *FormView) Fill(values map[string]string) {
	for i := range f.Fields {
		if v, ok := values[f.Fields[i].Name]; ok {
			f.Fields[i].Value = v
		}
	}
}

// Values returns the current field values by name.
func (f *FormView) Values() map[string]string {
	out := make(map[string]string, len(f.Fields))
	for _, fld := range f.Fields {
		out[fld.Name] = fld.Value
	}
	return out
}

// ExternalIDsJSON serialises the editor state for the hidden form field.
func (f *FormView) ExternalIDsJSON() (string, error) {
	if f.ExternalIDs == nil {
		return "", nil
	}
	data, err := f.ExternalIDs.Marshal()
	if err != nil {
		return "", err
	}
	return string(data), nil
}
