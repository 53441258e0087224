package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/orcidhub/orcidhub/internal/schema"
)

const (
	testClientID = "APP-5ZVH4XRKKBJ8V3QT"
	testUserID   = "u1"
)

var testSource = Source{ClientID: testClientID, Name: "Test Hub"}

// newTestDB opens an in-memory database seeded with one user.
func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := NewDB(MemoryPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, db.Users().SaveUser(context.Background(), &User{
		ID: testUserID, Name: "Josiah Carberry", Email: "jc@example.org", ORCID: "0000-0002-1825-0097",
	}))
	return db
}

func newTestRecords(t *testing.T) (*DB, Records) {
	t.Helper()
	db := newTestDB(t)
	return db, db.Records(schema.MustDefault(), testSource)
}

func describe(t testing.TB, d schema.Discriminator) *schema.Descriptor {
	t.Helper()
	desc, err := schema.MustDefault().Describe(d)
	require.NoError(t, err)
	return desc
}
