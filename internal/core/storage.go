package core

import (
	"context"
	"fmt"
	"os"

	"prepcore/internal/blob"
	blobfs "prepcore/internal/infra/blob/fs"
	blobmemory "prepcore/internal/infra/blob/memory"
	blobs3 "prepcore/internal/infra/blob/s3"
	memory "prepcore/internal/infra/persistence/memory"
)

// StorageDriver identifies a concrete persistent storage implementation.
type StorageDriver string

const (
	StorageMemory   StorageDriver = "memory"   // in-memory only (tests / ephemeral)
	StorageSQLite   StorageDriver = "sqlite"   // embedded sqlite file
	StoragePostgres StorageDriver = "postgres" // PostgreSQL server
)

// OpenPersistentStore selects a backend using environment variables.
// Defaults to sqlite when unset.
//
//	PREPCORE_STORAGE_DRIVER: memory|sqlite|postgres (default sqlite)
//	PREPCORE_SQLITE_PATH: path to sqlite file (default ./prepcore.db)
//	PREPCORE_POSTGRES_DSN: postgres DSN when driver=postgres
func OpenPersistentStore(engine *RulesEngine) (PersistentStore, error) {
	driver := os.Getenv("PREPCORE_STORAGE_DRIVER")
	if driver == "" {
		driver = string(StorageSQLite)
	}
	switch StorageDriver(driver) {
	case StorageMemory:
		return memory.NewStore(engine), nil
	case StorageSQLite:
		path := os.Getenv("PREPCORE_SQLITE_PATH")
		return NewSQLiteStore(path, engine)
	case StoragePostgres:
		dsn := os.Getenv("PREPCORE_POSTGRES_DSN")
		return NewPostgresStore(dsn, engine)
	default:
		return nil, fmt.Errorf("unknown storage driver %s", driver)
	}
}

// OpenBlobStore selects a blob backend using environment variables. Defaults
// to the filesystem driver when unset.
//
//	PREPCORE_BLOB_DRIVER: fs|s3|memory (default fs)
//	PREPCORE_BLOB_FS_ROOT: root directory for the fs driver
//	PREPCORE_BLOB_S3_BUCKET and friends configure the s3 driver
func OpenBlobStore(ctx context.Context) (blob.Store, error) {
	driver := os.Getenv("PREPCORE_BLOB_DRIVER")
	if driver == "" {
		driver = string(blob.DriverFilesystem)
	}
	switch blob.Driver(driver) {
	case blob.DriverMemory:
		return blobmemory.New(), nil
	case blob.DriverFilesystem:
		return blobfs.New(os.Getenv("PREPCORE_BLOB_FS_ROOT"))
	case blob.DriverS3:
		return blobs3.OpenFromEnv(ctx)
	default:
		return nil, fmt.Errorf("unknown blob driver %s", driver)
	}
}
