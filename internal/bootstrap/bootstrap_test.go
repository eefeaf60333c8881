package bootstrap

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/dunamismax/vectorstudio/internal/config"
	"github.com/dunamismax/vectorstudio/internal/logging"
	"github.com/dunamismax/vectorstudio/internal/storage"
	"github.com/dunamismax/vectorstudio/internal/store"
)

func TestOpenStoresDefaultsToMemory(t *testing.T) {
	stores, err := OpenStores(context.Background(), config.DatabaseConfig{}, logging.Discard())
	if err != nil {
		t.Fatalf("open stores: %v", err)
	}
	defer stores.Close()

	if _, ok := stores.Jobs.(*store.MemoryJobStore); !ok {
		t.Fatalf("expected memory job store, got %T", stores.Jobs)
	}
	if stores.Usage == nil {
		t.Fatal("expected usage store to share the memory job store")
	}
}

func TestOpenObjects(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "objects")
	objects, err := OpenObjects(context.Background(), config.StorageConfig{Backend: config.StorageLocal, LocalDir: dir}, logging.Discard())
	if err != nil {
		t.Fatalf("open local objects: %v", err)
	}
	if _, ok := objects.(*storage.Local); !ok {
		t.Fatalf("expected local store, got %T", objects)
	}

	if _, err := OpenObjects(context.Background(), config.StorageConfig{Backend: "tape"}, logging.Discard()); err == nil {
		t.Fatal("expected unsupported backend error")
	}
}

func TestNewRunner(t *testing.T) {
	cfg := config.Default()
	stores, _ := OpenStores(context.Background(), config.DatabaseConfig{}, logging.Discard())
	objects, err := storage.NewLocal(t.TempDir())
	if err != nil {
		t.Fatalf("local storage: %v", err)
	}

	runner, err := NewRunner(cfg, stores, objects, logging.Discard())
	if err != nil || runner == nil {
		t.Fatalf("new runner: %v", err)
	}
}
