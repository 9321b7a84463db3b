package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/shapeq/internal/testutil"
)

// createTestStore creates a new file-backed store over the people fixture
// shapes.
func createTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path, testutil.People(), opts...)
	require.NoError(t, err, "Open() failed")
	t.Cleanup(func() { s.Close() })
	return s
}

// createPeopleStore returns a store loaded with testutil.PeopleRecords.
func createPeopleStore(t *testing.T) *Store {
	t.Helper()
	s := createTestStore(t)
	_, err := s.Put(context.Background(), testutil.PeopleRecords()...)
	require.NoError(t, err)
	return s
}
