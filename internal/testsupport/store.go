package testsupport

import (
	"testing"

	"tacreview/internal/config"
	"tacreview/internal/store"
)

// MustOpenStore opens the history store for cfg and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *store.Store {
	t.Helper()

	st, err := store.Open(cfg.HistoryPath())
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() {
		st.Close()
	})
	return st
}
