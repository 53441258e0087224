package store

import (
	"strings"

	"github.com/orcidhub/orcidhub/internal/extid"
	"github.com/orcidhub/orcidhub/internal/record"
	"github.com/orcidhub/orcidhub/internal/schema"
)

// ExternalIDsField is the payload key holding the serialised external id list.
const ExternalIDsField = "external_ids"

// Source identifies the organisation a write is attributed to.
type Source struct {
	ClientID string
	Name     string
}

// Materialize writes a flat payload into rec (a fresh Record when nil)
// through the section's field accessors. Keys absent from the payload
// leave the document untouched; empty values remove the path. Date
// fields are stored as ORCID partial dates and the external id list in
// ORCID shape. The source paths are always stamped with src.
func Materialize(desc *schema.Descriptor, rec record.Record, payload map[string]string, src Source) (record.Record, error) {
	if rec == nil {
		rec = record.Record{}
	}
	for _, f := range desc.VisibleFields() {
		raw, ok := payload[f.Name]
		if !ok {
			continue
		}
		v := strings.TrimSpace(raw)
		if v == "" {
			rec.Delete(f.Accessor)
			continue
		}
		if f.Type == schema.FieldDate {
			d, err := record.ParsePartialDateString(v)
			if err != nil {
				return nil, &FieldError{Field: f.Name, Err: err}
			}
			if d.IsZero() {
				rec.Delete(f.Accessor)
				continue
			}
			if err := rec.Set(f.Accessor, d.ORCID()); err != nil {
				return nil, &FieldError{Field: f.Name, Err: err}
			}
			continue
		}
		if err := rec.Set(f.Accessor, v); err != nil {
			return nil, &FieldError{Field: f.Name, Err: err}
		}
	}

	if raw, ok := payload[ExternalIDsField]; ok && desc.HasExternalIDs() {
		ids, err := extid.Unmarshal([]byte(raw))
		if err != nil {
			return nil, &FieldError{Field: ExternalIDsField, Err: err}
		}
		if orcid := ids.ToORCID(); len(orcid) > 0 {
			if err := rec.Set(desc.ExternalIDsPath, orcid); err != nil {
				return nil, &FieldError{Field: ExternalIDsField, Err: err}
			}
		} else {
			rec.Delete(desc.ExternalIDsPath)
		}
	}

	if err := rec.Set(desc.SourcePath, src.ClientID); err != nil {
		return nil, err
	}
	if !desc.SourceNamePath.IsZero() {
		if err := rec.Set(desc.SourceNamePath, src.Name); err != nil {
			return nil, err
		}
	}
	return rec, nil
}
