package view

import (
	"github.com/orcidhub/orcidhub/internal/extid"
	"github.com/orcidhub/orcidhub/internal/schema"
)

// Payload is the flat field-name to value map handed to persistence.
type Payload map[string]string

// BuildPayload keeps exactly the fields visible for the section, taking
// submitted values (missing ones become ""), and for sections with the
// external id editor adds the serialised list under ExternalIDsField.
// No semantic validation happens here.
func BuildPayload(desc *schema.Descriptor, values map[string]string, ids *extid.List) (Payload, error) {
	p := make(Payload)
	for _, f := range desc.VisibleFields() {
		p[f.Name] = values[f.Name]
	}
	if desc.HasExternalIDs() {
		if ids == nil {
			ids = extid.NewList()
		}
		data, err := ids.Marshal()
		if err != nil {
			return nil, err
		}
		p[ExternalIDsField] = string(data)
	}
	return p, nil
}

// Payload assembles the submission of the form's current state.
func (f *FormView) Payload(desc *schema.Descriptor) (Payload, error) {
	return BuildPayload(desc, f.Values(), f.ExternalIDs)
}

// ExternalIDs decodes the serialised list carried by the payload.
func (p Payload) ExternalIDs() (*extid.List, error) {
	return extid.Unmarshal([]byte(p[ExternalIDsField]))
}
