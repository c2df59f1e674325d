package checklist

import (
	"encoding/json"
	"time"
)

// MergeStored overlays persisted checked state onto freshly generated
// categories, matching by item id. Items absent from stored keep their
// zero state; stored entries whose ids no longer exist are dropped.
// A stored entry only applies when it is internally consistent, meaning
// it is checked and carries a parseable timestamp.
func MergeStored(categories []Category, stored *StoredData) []Category {
	if stored == nil || len(stored.Items) == 0 {
		return categories
	}
	for ci := range categories {
		items := categories[ci].Items
		for ii := range items {
			st, ok := stored.Items[items[ii].ID]
			if !ok || !st.Checked || st.LastChecked == "" {
				continue
			}
			if _, err := time.Parse(time.RFC3339, st.LastChecked); err != nil {
				continue
			}
			items[ii].Checked = true
			items[ii].LastChecked = st.LastChecked
		}
	}
	return categories
}

// ExtractStored collapses merged categories back into an overlay record,
// keeping only checked items. now stamps LastUpdated.
func ExtractStored(categories []Category, now time.Time) StoredData {
	out := StoredData{
		Version:     Version,
		Items:       make(map[string]ItemState),
		LastUpdated: now.UTC().Format(time.RFC3339),
	}
	for _, cat := range categories {
		for _, it := range cat.Items {
			if !it.Checked {
				continue
			}
			out.Items[it.ID] = ItemState{Checked: true, LastChecked: it.LastChecked}
		}
	}
	return out
}

// DecodeStoredData parses a persisted overlay payload. Malformed JSON or a
// version mismatch yields nil, which callers treat as starting fresh.
func DecodeStoredData(payload []byte) *StoredData {
	if len(payload) == 0 {
		return nil
	}
	var data StoredData
	if err := json.Unmarshal(payload, &data); err != nil {
		return nil
	}
	if data.Version != Version {
		return nil
	}
	return &data
}
