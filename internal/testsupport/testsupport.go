package testsupport

import (
	"path/filepath"
	"testing"

	"conveyor/internal/config"
	"conveyor/internal/docstore"
	"conveyor/internal/objectstore"
	"conveyor/internal/queue"
)

// NewConfig returns a validated configuration rooted in a per-test temp
// directory.
func NewConfig(t *testing.T) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.ObjectStoreDir = filepath.Join(base, "objects")

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate config: %v", err)
	}
	return &cfg
}

// MustOpenBroker opens a broker for the given config and closes it when the
// test finishes.
func MustOpenBroker(t *testing.T, cfg *config.Config) *queue.Broker {
	t.Helper()

	broker, err := queue.Open(cfg)
	if err != nil {
		t.Fatalf("open broker: %v", err)
	}
	t.Cleanup(func() {
		if err := broker.Close(); err != nil {
			t.Errorf("close broker: %v", err)
		}
	})
	return broker
}

// MustOpenDocstore opens a document store for the given config and closes it
// when the test finishes.
func MustOpenDocstore(t *testing.T, cfg *config.Config) *docstore.Store {
	t.Helper()

	store, err := docstore.Open(cfg)
	if err != nil {
		t.Fatalf("open docstore: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("close docstore: %v", err)
		}
	})
	return store
}

// MustOpenObjectstore opens an object store rooted in the config's object
// store directory.
func MustOpenObjectstore(t *testing.T, cfg *config.Config) *objectstore.Store {
	t.Helper()

	store, err := objectstore.New(cfg.Paths.ObjectStoreDir)
	if err != nil {
		t.Fatalf("open objectstore: %v", err)
	}
	return store
}
