package testsupport

import (
	"testing"

	"tico/internal/config"
	"tico/internal/store"
)

// MustOpenStore opens the pipeline store for a test config and closes it on
// cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *store.Store {
	t.Helper()

	st, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		_ = st.Close()
	})
	return st
}
