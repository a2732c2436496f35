package testsupport

import (
	"context"
	"testing"

	"slidecue/internal/config"
	"slidecue/internal/runstore"
)

// MustOpenStore opens the run store named by cfg and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *runstore.Store {
	t.Helper()

	store, err := runstore.Open(context.Background(), cfg.Store.Path)
	if err != nil {
		t.Fatalf("runstore.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}
