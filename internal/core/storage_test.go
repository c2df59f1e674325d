package core

import (
	"context"
	"path/filepath"
	"testing"

	"prepcore/internal/blob"
	blobfs "prepcore/internal/infra/blob/fs"
	blobmemory "prepcore/internal/infra/blob/memory"
	memory "prepcore/internal/infra/persistence/memory"
)

func TestOpenPersistentStoreMemory(t *testing.T) {
	t.Setenv("PREPCORE_STORAGE_DRIVER", "memory")
	store, err := OpenPersistentStore(NewDefaultRulesEngine())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	if _, ok := store.(*memory.Store); !ok {
		t.Fatalf("expected memory store, got %T", store)
	}
}

func TestOpenPersistentStoreSQLite(t *testing.T) {
	t.Setenv("PREPCORE_STORAGE_DRIVER", "sqlite")
	t.Setenv("PREPCORE_SQLITE_PATH", filepath.Join(t.TempDir(), "prep.db"))
	store, err := OpenPersistentStore(NewDefaultRulesEngine())
	if err != nil {
		t.Skipf("sqlite unavailable: %v", err)
	}
	if _, ok := store.(*SQLiteStore); !ok {
		t.Fatalf("expected sqlite store, got %T", store)
	}
}

func TestOpenPersistentStoreUnknownDriver(t *testing.T) {
	t.Setenv("PREPCORE_STORAGE_DRIVER", "bogus")
	if _, err := OpenPersistentStore(NewDefaultRulesEngine()); err == nil {
		t.Fatal("expected error for unknown driver")
	}
}

func TestOpenBlobStoreMemory(t *testing.T) {
	t.Setenv("PREPCORE_BLOB_DRIVER", "memory")
	store, err := OpenBlobStore(context.Background())
	if err != nil {
		t.Fatalf("open blob store: %v", err)
	}
	if _, ok := store.(*blobmemory.Store); !ok {
		t.Fatalf("expected memory blob store, got %T", store)
	}
	if store.Driver() != blob.DriverMemory {
		t.Fatalf("unexpected driver %s", store.Driver())
	}
}

func TestOpenBlobStoreFilesystem(t *testing.T) {
	t.Setenv("PREPCORE_BLOB_DRIVER", "fs")
	t.Setenv("PREPCORE_BLOB_FS_ROOT", t.TempDir())
	store, err := OpenBlobStore(context.Background())
	if err != nil {
		t.Fatalf("open blob store: %v", err)
	}
	if _, ok := store.(*blobfs.Store); !ok {
		t.Fatalf("expected fs blob store, got %T", store)
	}
}

func TestOpenBlobStoreUnknownDriver(t *testing.T) {
	t.Setenv("PREPCORE_BLOB_DRIVER", "ftp")
	if _, err := OpenBlobStore(context.Background()); err == nil {
		t.Fatal("expected error for unknown blob driver")
	}
}
