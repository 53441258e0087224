package testutil

import (
	"context"
	"maps"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/orcidhub/orcidhub/internal/schema"
	"github.com/orcidhub/orcidhub/internal/store"
)

// Builder accumulates users and records and saves them in order.
type Builder struct {
	t       *testing.T
	db      *store.DB
	reg     *schema.Registry
	source  store.Source
	users   []store.User
	records []recordData
}

// NewBuilder creates a builder writing records as src.
func NewBuilder(t *testing.T, db *store.DB, src store.Source) *Builder {
	t.Helper()
	return &Builder{t: t, db: db, reg: schema.MustDefault(), source: src}
}

// WithUser adds a user.
func (b *Builder) WithUser(id string, opts ...UserOption) *Builder {
	u := store.User{ID: id, Name: id}
	for _, opt := range opts {
		opt(&u)
	}
	b.users = append(b.users, u)
	return b
}

// WithRecord adds a record of section code (e.g. "KWR") for userID.
// payload is copied; options may add to it.
func (b *Builder) WithRecord(userID, code string, payload map[string]string, opts ...RecordOption) *Builder {
	r := recordData{userID: userID, section: code, payload: maps.Clone(payload)}
	if r.payload == nil {
		r.payload = map[string]string{}
	}
	for _, opt := range opts {
		opt(&r)
	}
	b.records = append(b.records, r)
	return b
}

// Build saves users then records, returning the records' put codes in
// the order they were added.
func (b *Builder) Build() []string {
	b.t.Helper()
	ctx := context.Background()
	for i := range b.users {
		require.NoError(b.t, b.db.Users().SaveUser(ctx, &b.users[i]))
	}
	codes := make([]string, 0, len(b.records))
	for _, r := range b.records {
		desc, err := b.reg.Lookup(r.section)
		require.NoError(b.t, err)
		src := b.source
		if r.source != nil {
			src = *r.source
		}
		code, err := b.db.Records(b.reg, src).SaveRecord(ctx, r.userID, desc.Discriminator, "", r.payload)
		require.NoError(b.t, err, "saving %s record for %s", r.section, r.userID)
		codes = append(codes, code)
	}
	return codes
}
