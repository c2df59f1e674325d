package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"prepcore/pkg/domain"
)

func TestSQLiteStorePersistAndReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "state.db")
	store, err := NewStore(path, domain.NewRulesEngine())
	if err != nil {
		t.Skipf("sqlite unavailable: %v", err)
	}
	var communityID string
	if _, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		c, e := tx.CreateCommunity(domain.Community{Name: "Riverside", Region: "Canterbury"})
		if e != nil {
			return e
		}
		communityID = c.ID
		_, e = tx.CreateGuide(domain.Guide{CommunityID: c.ID, Name: "Flood", Status: domain.GuideActive, Supplies: []string{"Sandbags"}})
		return e
	}); err != nil {
		t.Fatalf("create: %v", err)
	}
	_ = store.DB().Close()

	reloaded, err := NewStore(path, domain.NewRulesEngine())
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	t.Cleanup(func() { _ = reloaded.DB().Close() })
	if got := len(reloaded.ListCommunities()); got != 1 {
		t.Fatalf("expected 1 community, got %d", got)
	}
	if _, ok := reloaded.GetCommunity(communityID); !ok {
		t.Fatalf("expected community %s after reload", communityID)
	}
	guides := reloaded.ListGuides()
	if len(guides) != 1 || guides[0].Supplies[0] != "Sandbags" {
		t.Fatalf("expected guide restored, got %+v", guides)
	}
	if reloaded.Path() != path {
		t.Fatalf("expected path %s, got %s", path, reloaded.Path())
	}
}

func TestSQLiteStoreCreatesStateTable(t *testing.T) {
	store, err := NewStore(filepath.Join(t.TempDir(), "state.db"), domain.NewRulesEngine())
	if err != nil {
		t.Skipf("sqlite unavailable: %v", err)
	}
	t.Cleanup(func() { _ = store.DB().Close() })
	var tableName string
	if err := store.DB().QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name='state'").Scan(&tableName); err != nil {
		t.Fatalf("lookup state table: %v", err)
	}
	if tableName != "state" {
		t.Fatalf("expected state table, got %s", tableName)
	}
}
