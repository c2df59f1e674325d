package domain

import "context"

// Transaction exposes the domain operations that a persistence implementation
// must support within an atomic scope.
type Transaction interface {
	Snapshot() TransactionView
	CreateCommunity(Community) (Community, error)
	UpdateCommunity(id string, mutator func(*Community) error) (Community, error)
	DeleteCommunity(id string) error
	CreateProfile(UserProfile) (UserProfile, error)
	UpdateProfile(id string, mutator func(*UserProfile) error) (UserProfile, error)
	DeleteProfile(id string) error
	CreateAlert(Alert) (Alert, error)
	UpdateAlert(id string, mutator func(*Alert) error) (Alert, error)
	DeleteAlert(id string) error
	CreateGuide(Guide) (Guide, error)
	UpdateGuide(id string, mutator func(*Guide) error) (Guide, error)
	DeleteGuide(id string) error
	CreateContact(EmergencyContact) (EmergencyContact, error)
	UpdateContact(id string, mutator func(*EmergencyContact) error) (EmergencyContact, error)
	DeleteContact(id string) error
	CreateMapPoint(MapPoint) (MapPoint, error)
	UpdateMapPoint(id string, mutator func(*MapPoint) error) (MapPoint, error)
	DeleteMapPoint(id string) error
	PutChecklistState(ChecklistState) (ChecklistState, error)
	DeleteChecklistState(profileID string) error
	FindCommunity(id string) (Community, bool)
	FindProfile(id string) (UserProfile, bool)
	FindGuide(id string) (Guide, bool)
}

// TransactionView provides read-only access to snapshot data for rules.
type TransactionView = RuleView

// PersistentStore is a minimal abstraction over durable backends. It mirrors
// the subset of store capabilities used directly by higher layers.
type PersistentStore interface {
	RunInTransaction(ctx context.Context, fn func(Transaction) error) (Result, error)
	View(ctx context.Context, fn func(TransactionView) error) error
	GetCommunity(id string) (Community, bool)
	ListCommunities() []Community
	GetProfile(id string) (UserProfile, bool)
	ListProfiles() []UserProfile
	GetAlert(id string) (Alert, bool)
	ListAlerts() []Alert
	GetGuide(id string) (Guide, bool)
	ListGuides() []Guide
	GetContact(id string) (EmergencyContact, bool)
	ListContacts() []EmergencyContact
	GetMapPoint(id string) (MapPoint, bool)
	ListMapPoints() []MapPoint
	GetChecklistState(profileID string) (ChecklistState, bool)
}
