package testutil

import (
	"path/filepath"
	"testing"

	"github.com/roach88/kitchensync/internal/store"
)

// OpenStore opens a file-backed store in a temp dir, closed at test end.
func OpenStore(tb testing.TB) *store.Store {
	tb.Helper()
	s, err := store.Open(filepath.Join(tb.TempDir(), "test.db"))
	if err != nil {
		tb.Fatalf("open store: %v", err)
	}
	tb.Cleanup(func() { s.Close() })
	return s
}
