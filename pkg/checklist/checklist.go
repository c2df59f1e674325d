// Package checklist derives a personalized emergency-kit checklist from
// household composition, profile special-needs flags, and active community
// response plans. Every function in the package is a pure transform: same
// inputs, same outputs, no clock reads (time is a parameter) and no I/O.
package checklist

import "prepcore/pkg/domain"

// Version is the current overlay record version. A bump signals a breaking
// change to item-id derivation; older records are discarded by the caller,
// never migrated here.
const Version = 1

// Source records which rule produced a checklist item.
type Source string

// Item provenance values.
const (
	// SourceBase marks items from the fixed base catalog.
	SourceBase Source = "base"
	// SourceHousehold marks items derived from household composition.
	SourceHousehold Source = "household"
	// SourceSpecialNeeds marks items derived from profile disability or
	// equipment codes.
	SourceSpecialNeeds Source = "special_needs"
	// SourceResponsePlan marks items lifted from an active response plan's
	// supply list.
	SourceResponsePlan Source = "response_plan"
)

// Priority grades an item for display emphasis.
type Priority string

// Item priorities. Essential is assigned from a fixed allow-list of
// template names; everything else is standard.
const (
	PriorityEssential Priority = "essential"
	PriorityStandard  Priority = "standard"
)

// Status classifies an item's urgency from its checked state and the time
// elapsed since the last check.
type Status string

// Item statuses derived by ItemStatus.
const (
	StatusUnchecked Status = "unchecked"
	StatusOK        Status = "ok"
	StatusWarning   Status = "warning"
	StatusOverdue   Status = "overdue"
)

// Item is one checklist line. The definition fields are regenerated on every
// call; Checked and LastChecked are the only state merged in from storage.
// LastChecked is an RFC3339 timestamp present exactly when Checked is true.
type Item struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Checked     bool     `json:"checked"`
	LastChecked string   `json:"lastChecked,omitempty"`
	RecheckDays int      `json:"recheckDays"`
	Priority    Priority `json:"priority"`
	Source      Source   `json:"source"`
	Plan        string   `json:"plan,omitempty"`
}

// Category is a named, iconed grouping of items in fixed display order.
type Category struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Icon  string `json:"icon"`
	Items []Item `json:"items"`
}

// ResponsePlan is the projection of an active guide relevant to checklist
// generation: its display identity plus a flat supply list.
type ResponsePlan struct {
	Name     string   `json:"name"`
	Type     string   `json:"type"`
	Icon     string   `json:"icon"`
	Supplies []string `json:"supplies"`
}

// ItemState is the persisted checked/lastChecked pair for one item.
type ItemState struct {
	Checked     bool   `json:"checked"`
	LastChecked string `json:"lastChecked,omitempty"`
}

// StoredData is the versioned overlay record the caller persists between
// generations, keyed by item id.
type StoredData struct {
	Version     int                  `json:"version"`
	Items       map[string]ItemState `json:"items"`
	LastUpdated string               `json:"lastUpdated"`
}

// Summary aggregates household and checklist counters for display.
type Summary struct {
	AgeCounts         map[domain.AgeCategory]int `json:"age_counts"`
	TotalPeople       int                        `json:"total_people"`
	ResponsePlanCount int                        `json:"response_plan_count"`
	HasSpecialNeeds   bool                       `json:"has_special_needs"`
	TotalItems        int                        `json:"total_items"`
	PersonalizedItems int                        `json:"personalized_items"`
}
