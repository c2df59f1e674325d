package core

import (
	postgres "prepcore/internal/infra/persistence/postgres"
)

// PostgresStore persists snapshots to a PostgreSQL server.
type PostgresStore = postgres.Store

// NewPostgresStore connects to the DSN and loads any persisted snapshot.
func NewPostgresStore(dsn string, engine *RulesEngine) (*PostgresStore, error) {
	return postgres.NewStore(dsn, engine)
}
