package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/kitchensync/internal/model"
)

// createTestStore creates a new file-backed store in a temp dir.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// seedCatalog inserts one category and one product for order tests.
func seedCatalog(t *testing.T, s *Store) (model.Category, model.Product) {
	t.Helper()
	ctx := t.Context()
	c := model.Category{ID: "cat-1", Name: "Grill"}
	p := model.Product{ID: "prod-1", Name: "Burger", CategoryID: c.ID, Price: 850, Active: true}
	require.NoError(t, s.CreateCategory(ctx, c))
	require.NoError(t, s.CreateProduct(ctx, p))
	return c, p
}
