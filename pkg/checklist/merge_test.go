package checklist

import (
	"testing"
	"time"
)

func TestMergeStoredAppliesMatchingState(t *testing.T) {
	categories := Generate(nil, nil)
	target := categories[0].Items[0]
	stamp := "2026-01-10T08:00:00Z"
	merged := MergeStored(categories, &StoredData{
		Version: Version,
		Items: map[string]ItemState{
			target.ID: {Checked: true, LastChecked: stamp},
			"gone-item-00000000": {Checked: true, LastChecked: stamp},
		},
	})
	got := merged[0].Items[0]
	if !got.Checked || got.LastChecked != stamp {
		t.Fatalf("expected state applied, got %+v", got)
	}
	for _, it := range collectItems(merged)[1:] {
		if it.Checked {
			t.Fatalf("unexpected checked item %s", it.ID)
		}
	}
}

func TestMergeStoredIgnoresInconsistentEntries(t *testing.T) {
	categories := Generate(nil, nil)
	items := categories[0].Items
	stored := &StoredData{Version: Version, Items: map[string]ItemState{
		items[0].ID: {Checked: true},
		items[1].ID: {Checked: false, LastChecked: "2026-01-10T08:00:00Z"},
		items[2].ID: {Checked: true, LastChecked: "not a timestamp"},
	}}
	merged := MergeStored(categories, stored)
	for _, it := range merged[0].Items {
		if it.Checked || it.LastChecked != "" {
			t.Fatalf("inconsistent entry leaked into item %s", it.ID)
		}
	}
}

func TestMergeStoredNilOverlay(t *testing.T) {
	categories := Generate(nil, nil)
	merged := MergeStored(categories, nil)
	for _, it := range collectItems(merged) {
		if it.Checked {
			t.Fatalf("nil overlay must leave items unchecked")
		}
	}
}

func TestExtractStoredRoundTrip(t *testing.T) {
	now := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	categories := Generate(nil, nil)
	id := categories[0].Items[0].ID
	categories[0].Items[0].Checked = true
	categories[0].Items[0].LastChecked = "2026-01-10T08:00:00Z"

	stored := ExtractStored(categories, now)
	if stored.Version != Version {
		t.Fatalf("expected version %d, got %d", Version, stored.Version)
	}
	if stored.LastUpdated != "2026-02-01T12:00:00Z" {
		t.Fatalf("unexpected LastUpdated %s", stored.LastUpdated)
	}
	if len(stored.Items) != 1 {
		t.Fatalf("expected one checked item, got %d", len(stored.Items))
	}
	if st := stored.Items[id]; !st.Checked || st.LastChecked != "2026-01-10T08:00:00Z" {
		t.Fatalf("unexpected stored state %+v", st)
	}

	fresh := MergeStored(Generate(nil, nil), &stored)
	if got := fresh[0].Items[0]; !got.Checked || got.LastChecked != "2026-01-10T08:00:00Z" {
		t.Fatalf("round trip lost state: %+v", got)
	}
}

func TestDecodeStoredData(t *testing.T) {
	if DecodeStoredData(nil) != nil {
		t.Fatalf("expected nil for empty payload")
	}
	if DecodeStoredData([]byte("{broken")) != nil {
		t.Fatalf("expected nil for malformed payload")
	}
	if DecodeStoredData([]byte(`{"version":99,"items":{}}`)) != nil {
		t.Fatalf("expected nil for version mismatch")
	}
	data := DecodeStoredData([]byte(`{"version":1,"items":{"x":{"checked":true,"lastChecked":"2026-01-10T08:00:00Z"}},"lastUpdated":"2026-01-10T08:00:00Z"}`))
	if data == nil || !data.Items["x"].Checked {
		t.Fatalf("expected decoded overlay, got %+v", data)
	}
}
