package core

import (
	sqlite "prepcore/internal/infra/persistence/sqlite"
)

// SQLiteStore persists snapshots to an embedded sqlite database.
type SQLiteStore = sqlite.Store

// NewSQLiteStore opens (or creates) the sqlite-backed store at path.
func NewSQLiteStore(path string, engine *RulesEngine) (*SQLiteStore, error) {
	return sqlite.NewStore(path, engine)
}
