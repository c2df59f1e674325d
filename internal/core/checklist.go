package core

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"prepcore/pkg/checklist"
)

// Checklist orchestration. Item definitions are regenerated from the profile
// and the active guides of its communities on every call; only the per-item
// checked state survives in the store as a ChecklistState overlay.

// plansForProfile projects the active guides of the profile's communities into
// response plans, ordered by name for stable category layout.
func plansForProfile(view TransactionView, profile UserProfile) []checklist.ResponsePlan {
	communities := make(map[string]struct{}, len(profile.CommunityIDs))
	for _, id := range profile.CommunityIDs {
		communities[id] = struct{}{}
	}
	var plans []checklist.ResponsePlan
	for _, guide := range view.ListGuides() {
		if guide.Status != GuideActive {
			continue
		}
		if _, ok := communities[guide.CommunityID]; !ok {
			continue
		}
		plans = append(plans, checklist.ResponsePlan{
			Name:     guide.Name,
			Type:     guide.Type,
			Icon:     guide.Icon,
			Supplies: append([]string(nil), guide.Supplies...),
		})
	}
	sort.Slice(plans, func(i, j int) bool {
		a, b := strings.ToLower(plans[i].Name), strings.ToLower(plans[j].Name)
		if a != b {
			return a < b
		}
		return plans[i].Name < plans[j].Name
	})
	return plans
}

// overlayFromState converts a persisted overlay into merge input. Overlays
// written under a different schema version are discarded rather than merged.
func overlayFromState(state ChecklistState) *checklist.StoredData {
	if state.Version != checklist.Version {
		return nil
	}
	items := make(map[string]checklist.ItemState, len(state.Items))
	for id, st := range state.Items {
		items[id] = checklist.ItemState{Checked: st.Checked, LastChecked: st.LastChecked}
	}
	return &checklist.StoredData{
		Version:     state.Version,
		Items:       items,
		LastUpdated: state.LastUpdated.UTC().Format(time.RFC3339),
	}
}

// BuildChecklist regenerates the personalized checklist for a profile and
// merges the persisted checked state into it.
func (s *Service) BuildChecklist(ctx context.Context, profileID string) ([]checklist.Category, error) {
	var categories []checklist.Category
	err := s.view(ctx, "build_checklist", func(view TransactionView) error {
		profile, ok := view.FindProfile(profileID)
		if !ok {
			return ErrNotFound{Entity: EntityProfile, ID: profileID}
		}
		categories = checklist.Generate(&profile, plansForProfile(view, profile))
		if state, ok := view.FindChecklistState(profileID); ok {
			categories = checklist.MergeStored(categories, overlayFromState(state))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return categories, nil
}

// ChecklistStatuses returns the recheck status of every item on the profile's
// current checklist, keyed by item id.
func (s *Service) ChecklistStatuses(ctx context.Context, profileID string) (map[string]checklist.Status, error) {
	categories, err := s.BuildChecklist(ctx, profileID)
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()
	statuses := make(map[string]checklist.Status)
	for _, cat := range categories {
		for _, item := range cat.Items {
			statuses[item.ID] = checklist.ItemStatus(item, now)
		}
	}
	return statuses, nil
}

// BuildChecklistSummary aggregates household and checklist counters for the
// profile's dashboard.
func (s *Service) BuildChecklistSummary(ctx context.Context, profileID string) (checklist.Summary, error) {
	var summary checklist.Summary
	err := s.view(ctx, "build_checklist_summary", func(view TransactionView) error {
		profile, ok := view.FindProfile(profileID)
		if !ok {
			return ErrNotFound{Entity: EntityProfile, ID: profileID}
		}
		plans := plansForProfile(view, profile)
		categories := checklist.Generate(&profile, plans)
		if state, ok := view.FindChecklistState(profileID); ok {
			categories = checklist.MergeStored(categories, overlayFromState(state))
		}
		summary = checklist.Summarize(&profile, plans, categories)
		return nil
	})
	if err != nil {
		return checklist.Summary{}, err
	}
	return summary, nil
}

// SetChecklistItem toggles one checklist item for a profile and persists the
// resulting overlay. Checking stamps the current time; unchecking drops the
// entry entirely.
func (s *Service) SetChecklistItem(ctx context.Context, profileID, itemID string, checked bool) (ChecklistState, Result, error) {
	var state ChecklistState
	res, duration, err := s.run(ctx, "set_checklist_item", func(tx Transaction) error {
		view := tx.Snapshot()
		profile, ok := view.FindProfile(profileID)
		if !ok {
			return ErrNotFound{Entity: EntityProfile, ID: profileID}
		}
		if !checklistHasItem(checklist.Generate(&profile, plansForProfile(view, profile)), itemID) {
			return fmt.Errorf("checklist item %s not present for profile %s", itemID, profileID)
		}

		now := s.clock.Now().UTC()
		items := make(map[string]ChecklistItemState)
		if existing, ok := view.FindChecklistState(profileID); ok {
			for id, st := range existing.Items {
				items[id] = st
			}
		}
		if checked {
			items[itemID] = ChecklistItemState{Checked: true, LastChecked: now.Format(time.RFC3339)}
		} else {
			delete(items, itemID)
		}

		var err error
		state, err = tx.PutChecklistState(ChecklistState{
			ProfileID:   profileID,
			Version:     checklist.Version,
			Items:       items,
			LastUpdated: now,
		})
		return err
	})
	if err == nil {
		s.recordAuditSuccess(ctx, "set_checklist_item", profileID, duration)
	}
	return state, res, err
}

// ResetChecklist drops the persisted overlay for a profile, returning every
// item to its unchecked baseline.
func (s *Service) ResetChecklist(ctx context.Context, profileID string) (Result, error) {
	res, duration, err := s.run(ctx, "reset_checklist", func(tx Transaction) error {
		if _, ok := tx.FindProfile(profileID); !ok {
			return ErrNotFound{Entity: EntityProfile, ID: profileID}
		}
		if _, ok := tx.Snapshot().FindChecklistState(profileID); !ok {
			return nil
		}
		return tx.DeleteChecklistState(profileID)
	})
	if err == nil {
		s.recordAuditSuccess(ctx, "reset_checklist", profileID, duration)
	}
	return res, err
}

func checklistHasItem(categories []checklist.Category, itemID string) bool {
	for _, cat := range categories {
		for _, item := range cat.Items {
			if item.ID == itemID {
				return true
			}
		}
	}
	return false
}
