// Package domain defines the persistent entities, value types, and rule
// evaluation primitives used by prepcore.
package domain

import "time"

// EntityType identifies the type of record stored in the core domain.
type EntityType string

// Supported entity type identifiers used in Change records and persistence buckets.
const (
	// EntityCommunity identifies a community record.
	EntityCommunity EntityType = "community"
	// EntityProfile identifies a user profile record.
	EntityProfile EntityType = "profile"
	// EntityAlert identifies an alert record.
	EntityAlert EntityType = "alert"
	// EntityGuide identifies a response-plan guide record.
	EntityGuide EntityType = "guide"
	// EntityContact identifies an emergency contact record.
	EntityContact EntityType = "contact"
	// EntityMapPoint identifies a map point record.
	EntityMapPoint EntityType = "map_point"
	// EntityChecklistState identifies a persisted checklist overlay record.
	EntityChecklistState EntityType = "checklist_state"
)

// AgeCategory buckets a household member by age for supply derivation.
type AgeCategory string

// Canonical age categories used by the checklist personalization rules.
const (
	AgeInfant  AgeCategory = "infant"
	AgeToddler AgeCategory = "toddler"
	AgeChild   AgeCategory = "child"
	AgeTeen    AgeCategory = "teen"
	AgeAdult   AgeCategory = "adult"
	AgeElderly AgeCategory = "elderly"
)

// AgeCategoryOf derives the category for an age in whole years. Negative ages
// are treated as infants.
func AgeCategoryOf(years int) AgeCategory {
	switch {
	case years < 1:
		return AgeInfant
	case years <= 3:
		return AgeToddler
	case years <= 12:
		return AgeChild
	case years <= 17:
		return AgeTeen
	case years <= 64:
		return AgeAdult
	default:
		return AgeElderly
	}
}

// AlertSeverity grades how urgent a broadcast alert is.
type AlertSeverity string

// Canonical alert severities.
const (
	AlertInfo     AlertSeverity = "info"
	AlertWarning  AlertSeverity = "warning"
	AlertCritical AlertSeverity = "critical"
)

// GuideStatus enumerates the publication states of a response-plan guide.
type GuideStatus string

// Canonical guide statuses. Only active guides feed checklist generation.
const (
	GuideDraft    GuideStatus = "draft"
	GuideActive   GuideStatus = "active"
	GuideArchived GuideStatus = "archived"
)

// MapPointKind classifies a community map point.
type MapPointKind string

// Canonical map point kinds.
const (
	PointShelter  MapPointKind = "shelter"
	PointWater    MapPointKind = "water"
	PointAssembly MapPointKind = "assembly"
	PointMedical  MapPointKind = "medical"
	PointOther    MapPointKind = "other"
)

// Severity captures rule outcomes.
type Severity string

// Rule evaluation severities determine commit behavior and logging.
const (
	// SeverityBlock blocks transaction commit.
	SeverityBlock Severity = "block"
	// SeverityWarn logs a warning but allows commit.
	SeverityWarn Severity = "warn"
	SeverityLog  Severity = "log"
)

// Base contains common fields for all domain records.
type Base struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Community represents a neighbourhood preparedness group.
type Community struct {
	Base
	Name        string   `json:"name"`
	Description *string  `json:"description,omitempty"`
	Region      string   `json:"region"`
	JoinCode    string   `json:"join_code"`
	AdminIDs    []string `json:"admin_ids"`
	MemberIDs   []string `json:"member_ids"`
}

// HouseholdMember is one person in a profile's household.
type HouseholdMember struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Age      int    `json:"age"`
	Mobility bool   `json:"mobility,omitempty"`
	Dietary  bool   `json:"dietary,omitempty"`
	Medical  bool   `json:"medical,omitempty"`
}

// Category returns the member's derived age category.
func (m HouseholdMember) Category() AgeCategory { return AgeCategoryOf(m.Age) }

// UserProfile holds a user's household composition and special-needs flags.
// Disabilities, Equipment, and Skills are enum-like string codes entered via
// the profile surface; the checklist engine maps them to supply items.
type UserProfile struct {
	Base
	DisplayName      string            `json:"display_name"`
	CommunityIDs     []string          `json:"community_ids"`
	HouseholdMembers []HouseholdMember `json:"household_members"`
	Disabilities     []string          `json:"disabilities"`
	Equipment        []string          `json:"equipment"`
	Skills           []string          `json:"skills"`
	Address          *string           `json:"address,omitempty"`
	Latitude         *float64          `json:"latitude,omitempty"`
	Longitude        *float64          `json:"longitude,omitempty"`
}

// Alert is a community broadcast message.
type Alert struct {
	Base
	CommunityID string        `json:"community_id"`
	Title       string        `json:"title"`
	Body        string        `json:"body"`
	Severity    AlertSeverity `json:"severity"`
	CreatedBy   string        `json:"created_by"`
	Active      bool          `json:"active"`
	ExpiresAt   *time.Time    `json:"expires_at,omitempty"`
}

// Guide is a community-authored response plan with before/during/after
// sections and a supply list consumed by checklist generation.
type Guide struct {
	Base
	CommunityID   string      `json:"community_id"`
	Name          string      `json:"name"`
	Type          string      `json:"type"`
	Icon          string      `json:"icon"`
	Status        GuideStatus `json:"status"`
	Before        string      `json:"before"`
	During        string      `json:"during"`
	After         string      `json:"after"`
	Supplies      []string    `json:"supplies"`
	AttachmentKey *string     `json:"attachment_key,omitempty"`
}

// EmergencyContact is a community phone-tree entry.
type EmergencyContact struct {
	Base
	CommunityID string `json:"community_id"`
	Name        string `json:"name"`
	Role        string `json:"role"`
	Phone       string `json:"phone"`
	Email       string `json:"email"`
	Priority    int    `json:"priority"`
}

// MapPoint marks a resource location on the community map.
type MapPoint struct {
	Base
	CommunityID string       `json:"community_id"`
	Name        string       `json:"name"`
	Kind        MapPointKind `json:"kind"`
	Latitude    float64      `json:"latitude"`
	Longitude   float64      `json:"longitude"`
	Description *string      `json:"description,omitempty"`
}

// ChecklistItemState is the persisted checked/lastChecked pair for one item.
// LastChecked is an RFC3339 timestamp and is present exactly when Checked is
// true.
type ChecklistItemState struct {
	Checked     bool   `json:"checked"`
	LastChecked string `json:"lastChecked,omitempty"`
}

// ChecklistState is the versioned overlay record persisted per profile. Item
// definitions are regenerated on every call; this map is the only state that
// survives across generations.
type ChecklistState struct {
	Base
	ProfileID   string                        `json:"profile_id"`
	Version     int                           `json:"version"`
	Items       map[string]ChecklistItemState `json:"items"`
	LastUpdated time.Time                     `json:"last_updated"`
}

// Change describes a mutation applied to an entity during a transaction.
type Change struct {
	Entity EntityType
	Action Action
	Before any
	After  any
}

// Action indicates the type of modification performed.
type Action string

// Change actions enumerate supported CRUD operations captured in the audit trail.
const (
	// ActionCreate indicates an entity was created.
	ActionCreate Action = "create"
	// ActionUpdate indicates an entity was updated.
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Violation reports a failed rule evaluation.
type Violation struct {
	Rule     string
	Severity Severity
	Message  string
	Entity   EntityType
	EntityID string
}

// Result aggregates violations from the rules engine.
type Result struct {
	Violations []Violation
}

// Merge appends violations from another result.
func (r *Result) Merge(other Result) {
	if len(other.Violations) == 0 {
		return
	}
	r.Violations = append(r.Violations, other.Violations...)
}

// HasBlocking returns true if the result contains blocking violations.
func (r Result) HasBlocking() bool {
	for _, v := range r.Violations {
		if v.Severity == SeverityBlock {
			return true
		}
	}
	return false
}

// RuleViolationError is returned when blocking violations are present.
type RuleViolationError struct {
	Result Result
}

func (e RuleViolationError) Error() string {
	return "transaction blocked by rules"
}
