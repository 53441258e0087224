package testutil

import (
	"github.com/orcidhub/orcidhub/internal/extid"
	"github.com/orcidhub/orcidhub/internal/store"
)

// UserOption configures a user added with WithUser.
type UserOption func(*store.User)

// Name sets the display name.
func Name(name string) UserOption {
	return func(u *store.User) { u.Name = name }
}

// Email sets the invite address.
func Email(email string) UserOption {
	return func(u *store.User) { u.Email = email }
}

// ORCID sets the iD. It must pass the checksum.
func ORCID(id string) UserOption {
	return func(u *store.User) { u.ORCID = id }
}

// recordData holds one record to be saved.
type recordData struct {
	userID  string
	section string
	payload map[string]string
	source  *store.Source
}

// RecordOption configures a record added with WithRecord.
type RecordOption func(*recordData)

// FromSource attributes the record to src instead of the builder's source.
func FromSource(src store.Source) RecordOption {
	return func(r *recordData) { r.source = &src }
}

// Field sets one payload field.
func Field(name, value string) RecordOption {
	return func(r *recordData) { r.payload[name] = value }
}

// ExternalIDs serialises ids into the payload's external id field.
func ExternalIDs(ids ...extid.Entry) RecordOption {
	return func(r *recordData) {
		data, err := extid.NewList(ids...).Marshal()
		if err != nil {
			panic(err)
		}
		r.payload[store.ExternalIDsField] = string(data)
	}
}
