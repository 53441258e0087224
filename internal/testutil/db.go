// Package testutil seeds in-memory stores for tests.
package testutil

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/orcidhub/orcidhub/internal/store"
)

// NewDB opens a migrated in-memory database closed at test cleanup.
func NewDB(t *testing.T) *store.DB {
	t.Helper()
	db, err := store.NewDB(store.MemoryPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}
