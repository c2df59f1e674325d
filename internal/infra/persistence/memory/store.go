// Package memory provides an in-memory implementation of the core persistence
// store used for tests and ephemeral environments.
package memory

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"prepcore/pkg/domain"
)

// Compile-time contract assertion ensuring memory.Store adheres to the domain persistence interface.
var _ domain.PersistentStore = (*Store)(nil)

type (
	// Community aliases domain.Community for in-memory persistence operations.
	Community = domain.Community
	// UserProfile aliases domain.UserProfile.
	UserProfile = domain.UserProfile
	// Alert aliases domain.Alert.
	Alert = domain.Alert
	// Guide aliases domain.Guide.
	Guide = domain.Guide
	// EmergencyContact aliases domain.EmergencyContact.
	EmergencyContact = domain.EmergencyContact
	// MapPoint aliases domain.MapPoint.
	MapPoint = domain.MapPoint
	// ChecklistState aliases domain.ChecklistState.
	ChecklistState = domain.ChecklistState
	// Change aliases domain.Change captured in transactions.
	Change = domain.Change
	// Result aliases domain.Result summarizing rule evaluation.
	Result = domain.Result
	// RulesEngine aliases domain.RulesEngine used to evaluate rules.
	RulesEngine = domain.RulesEngine
	// Transaction aliases domain.Transaction representing a mutable unit of work.
	Transaction = domain.Transaction
	// TransactionView aliases domain.TransactionView providing read-only state.
	TransactionView = domain.TransactionView
	// PersistentStore aliases domain.PersistentStore abstraction.
	PersistentStore = domain.PersistentStore
)

type memoryState struct {
	communities map[string]Community
	profiles    map[string]UserProfile
	alerts      map[string]Alert
	guides      map[string]Guide
	contacts    map[string]EmergencyContact
	mapPoints   map[string]MapPoint
	checklists  map[string]ChecklistState
}

// Snapshot captures a point-in-time clone of the store state.
type Snapshot struct {
	Communities map[string]Community        `json:"communities"`
	Profiles    map[string]UserProfile      `json:"profiles"`
	Alerts      map[string]Alert            `json:"alerts"`
	Guides      map[string]Guide            `json:"guides"`
	Contacts    map[string]EmergencyContact `json:"contacts"`
	MapPoints   map[string]MapPoint         `json:"map_points"`
	Checklists  map[string]ChecklistState   `json:"checklists"`
}

func newMemoryState() memoryState {
	return memoryState{
		communities: make(map[string]Community),
		profiles:    make(map[string]UserProfile),
		alerts:      make(map[string]Alert),
		guides:      make(map[string]Guide),
		contacts:    make(map[string]EmergencyContact),
		mapPoints:   make(map[string]MapPoint),
		checklists:  make(map[string]ChecklistState),
	}
}

func snapshotFromMemoryState(state memoryState) Snapshot {
	s := Snapshot{
		Communities: make(map[string]Community, len(state.communities)),
		Profiles:    make(map[string]UserProfile, len(state.profiles)),
		Alerts:      make(map[string]Alert, len(state.alerts)),
		Guides:      make(map[string]Guide, len(state.guides)),
		Contacts:    make(map[string]EmergencyContact, len(state.contacts)),
		MapPoints:   make(map[string]MapPoint, len(state.mapPoints)),
		Checklists:  make(map[string]ChecklistState, len(state.checklists)),
	}
	for k, v := range state.communities {
		s.Communities[k] = cloneCommunity(v)
	}
	for k, v := range state.profiles {
		s.Profiles[k] = cloneProfile(v)
	}
	for k, v := range state.alerts {
		s.Alerts[k] = cloneAlert(v)
	}
	for k, v := range state.guides {
		s.Guides[k] = cloneGuide(v)
	}
	for k, v := range state.contacts {
		s.Contacts[k] = cloneContact(v)
	}
	for k, v := range state.mapPoints {
		s.MapPoints[k] = cloneMapPoint(v)
	}
	for k, v := range state.checklists {
		s.Checklists[k] = cloneChecklistState(v)
	}
	return s
}

func memoryStateFromSnapshot(s Snapshot) memoryState {
	state := newMemoryState()
	for k, v := range s.Communities {
		state.communities[k] = cloneCommunity(v)
	}
	for k, v := range s.Profiles {
		state.profiles[k] = cloneProfile(v)
	}
	for k, v := range s.Alerts {
		state.alerts[k] = cloneAlert(v)
	}
	for k, v := range s.Guides {
		state.guides[k] = cloneGuide(v)
	}
	for k, v := range s.Contacts {
		state.contacts[k] = cloneContact(v)
	}
	for k, v := range s.MapPoints {
		state.mapPoints[k] = cloneMapPoint(v)
	}
	for k, v := range s.Checklists {
		state.checklists[k] = cloneChecklistState(v)
	}
	return state
}

// migrateSnapshot backfills nil buckets and drops records whose parent no
// longer exists, so older on-disk snapshots hydrate cleanly.
func migrateSnapshot(snapshot Snapshot) Snapshot {
	if snapshot.Communities == nil {
		snapshot.Communities = map[string]Community{}
	}
	if snapshot.Profiles == nil {
		snapshot.Profiles = map[string]UserProfile{}
	}
	if snapshot.Alerts == nil {
		snapshot.Alerts = map[string]Alert{}
	}
	if snapshot.Guides == nil {
		snapshot.Guides = map[string]Guide{}
	}
	if snapshot.Contacts == nil {
		snapshot.Contacts = map[string]EmergencyContact{}
	}
	if snapshot.MapPoints == nil {
		snapshot.MapPoints = map[string]MapPoint{}
	}
	if snapshot.Checklists == nil {
		snapshot.Checklists = map[string]ChecklistState{}
	}

	communityExists := func(id string) bool {
		_, ok := snapshot.Communities[id]
		return ok
	}
	profileExists := func(id string) bool {
		_, ok := snapshot.Profiles[id]
		return ok
	}

	for id, alert := range snapshot.Alerts {
		if alert.CommunityID == "" || !communityExists(alert.CommunityID) {
			delete(snapshot.Alerts, id)
		}
	}
	for id, guide := range snapshot.Guides {
		if guide.CommunityID == "" || !communityExists(guide.CommunityID) {
			delete(snapshot.Guides, id)
		}
	}
	for id, contact := range snapshot.Contacts {
		if contact.CommunityID == "" || !communityExists(contact.CommunityID) {
			delete(snapshot.Contacts, id)
		}
	}
	for id, point := range snapshot.MapPoints {
		if point.CommunityID == "" || !communityExists(point.CommunityID) {
			delete(snapshot.MapPoints, id)
		}
	}
	for id, cl := range snapshot.Checklists {
		if cl.ProfileID == "" || !profileExists(cl.ProfileID) {
			delete(snapshot.Checklists, id)
			continue
		}
		if cl.Items == nil {
			cl.Items = map[string]domain.ChecklistItemState{}
			snapshot.Checklists[id] = cl
		}
	}
	for id, profile := range snapshot.Profiles {
		if filtered, changed := filterIDs(profile.CommunityIDs, communityExists); changed {
			profile.CommunityIDs = filtered
			snapshot.Profiles[id] = profile
		}
	}
	for id, community := range snapshot.Communities {
		if filtered, changed := filterIDs(community.AdminIDs, profileExists); changed {
			community.AdminIDs = filtered
		}
		if filtered, changed := filterIDs(community.MemberIDs, profileExists); changed {
			community.MemberIDs = filtered
		}
		snapshot.Communities[id] = community
	}

	return snapshot
}

func (s memoryState) clone() memoryState {
	cloned := newMemoryState()
	for k, v := range s.communities {
		cloned.communities[k] = cloneCommunity(v)
	}
	for k, v := range s.profiles {
		cloned.profiles[k] = cloneProfile(v)
	}
	for k, v := range s.alerts {
		cloned.alerts[k] = cloneAlert(v)
	}
	for k, v := range s.guides {
		cloned.guides[k] = cloneGuide(v)
	}
	for k, v := range s.contacts {
		cloned.contacts[k] = cloneContact(v)
	}
	for k, v := range s.mapPoints {
		cloned.mapPoints[k] = cloneMapPoint(v)
	}
	for k, v := range s.checklists {
		cloned.checklists[k] = cloneChecklistState(v)
	}
	return cloned
}

func cloneCommunity(c Community) Community {
	cp := c
	if c.Description != nil {
		d := *c.Description
		cp.Description = &d
	}
	cp.AdminIDs = append([]string(nil), c.AdminIDs...)
	cp.MemberIDs = append([]string(nil), c.MemberIDs...)
	return cp
}

func cloneProfile(p UserProfile) UserProfile {
	cp := p
	cp.CommunityIDs = append([]string(nil), p.CommunityIDs...)
	cp.HouseholdMembers = append([]domain.HouseholdMember(nil), p.HouseholdMembers...)
	cp.Disabilities = append([]string(nil), p.Disabilities...)
	cp.Equipment = append([]string(nil), p.Equipment...)
	cp.Skills = append([]string(nil), p.Skills...)
	if p.Address != nil {
		a := *p.Address
		cp.Address = &a
	}
	if p.Latitude != nil {
		lat := *p.Latitude
		cp.Latitude = &lat
	}
	if p.Longitude != nil {
		lng := *p.Longitude
		cp.Longitude = &lng
	}
	return cp
}

func cloneAlert(a Alert) Alert {
	cp := a
	if a.ExpiresAt != nil {
		t := *a.ExpiresAt
		cp.ExpiresAt = &t
	}
	return cp
}

func cloneGuide(g Guide) Guide {
	cp := g
	cp.Supplies = append([]string(nil), g.Supplies...)
	if g.AttachmentKey != nil {
		k := *g.AttachmentKey
		cp.AttachmentKey = &k
	}
	return cp
}

func cloneContact(c EmergencyContact) EmergencyContact { return c }

func cloneMapPoint(p MapPoint) MapPoint {
	cp := p
	if p.Description != nil {
		d := *p.Description
		cp.Description = &d
	}
	return cp
}

func cloneChecklistState(c ChecklistState) ChecklistState {
	cp := c
	cp.Items = make(map[string]domain.ChecklistItemState, len(c.Items))
	for k, v := range c.Items {
		cp.Items[k] = v
	}
	return cp
}

func filterIDs(values []string, exists func(string) bool) ([]string, bool) {
	if len(values) == 0 {
		return nil, false
	}
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	changed := false
	for _, v := range values {
		if _, ok := seen[v]; ok {
			changed = true
			continue
		}
		seen[v] = struct{}{}
		if !exists(v) {
			changed = true
			continue
		}
		out = append(out, v)
	}
	if !changed && len(out) == len(values) {
		return values, false
	}
	return out, true
}

// Store provides an in-memory transactional store for the core domain.
type Store struct {
	mu     sync.RWMutex
	state  memoryState
	engine *RulesEngine
	nowFn  func() time.Time
}

// NewStore constructs an in-memory store backed by the provided rules engine.
func NewStore(engine *RulesEngine) *Store {
	if engine == nil {
		engine = domain.NewRulesEngine()
	}
	return &Store{
		state:  newMemoryState(),
		engine: engine,
		nowFn:  func() time.Time { return time.Now().UTC() },
	}
}

func (s *Store) newID() string {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		panic(err)
	}
	return hex.EncodeToString(b[:])
}

// ExportState clones the current store state for external persistence.
func (s *Store) ExportState() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return snapshotFromMemoryState(s.state)
}

// ImportState replaces the store state with the provided snapshot.
func (s *Store) ImportState(snapshot Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = memoryStateFromSnapshot(migrateSnapshot(snapshot))
}

// RulesEngine exposes the currently configured engine.
func (s *Store) RulesEngine() *RulesEngine {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.engine
}

// NowFunc returns the time provider used by the in-memory store.
func (s *Store) NowFunc() func() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nowFn
}

type transaction struct {
	store   *Store
	state   memoryState
	changes []Change
	now     time.Time
}

type transactionView struct {
	state *memoryState
}

func newTransactionView(state *memoryState) TransactionView {
	return transactionView{state: state}
}

func (v transactionView) ListCommunities() []Community {
	out := make([]Community, 0, len(v.state.communities))
	for _, c := range v.state.communities {
		out = append(out, cloneCommunity(c))
	}
	return out
}

func (v transactionView) ListProfiles() []UserProfile {
	out := make([]UserProfile, 0, len(v.state.profiles))
	for _, p := range v.state.profiles {
		out = append(out, cloneProfile(p))
	}
	return out
}

func (v transactionView) ListAlerts() []Alert {
	out := make([]Alert, 0, len(v.state.alerts))
	for _, a := range v.state.alerts {
		out = append(out, cloneAlert(a))
	}
	return out
}

func (v transactionView) ListGuides() []Guide {
	out := make([]Guide, 0, len(v.state.guides))
	for _, g := range v.state.guides {
		out = append(out, cloneGuide(g))
	}
	return out
}

func (v transactionView) ListContacts() []EmergencyContact {
	out := make([]EmergencyContact, 0, len(v.state.contacts))
	for _, c := range v.state.contacts {
		out = append(out, cloneContact(c))
	}
	return out
}

func (v transactionView) ListMapPoints() []MapPoint {
	out := make([]MapPoint, 0, len(v.state.mapPoints))
	for _, p := range v.state.mapPoints {
		out = append(out, cloneMapPoint(p))
	}
	return out
}

func (v transactionView) ListChecklistStates() []ChecklistState {
	out := make([]ChecklistState, 0, len(v.state.checklists))
	for _, c := range v.state.checklists {
		out = append(out, cloneChecklistState(c))
	}
	return out
}

func (v transactionView) FindCommunity(id string) (Community, bool) {
	c, ok := v.state.communities[id]
	if !ok {
		return Community{}, false
	}
	return cloneCommunity(c), true
}

func (v transactionView) FindProfile(id string) (UserProfile, bool) {
	p, ok := v.state.profiles[id]
	if !ok {
		return UserProfile{}, false
	}
	return cloneProfile(p), true
}

func (v transactionView) FindAlert(id string) (Alert, bool) {
	a, ok := v.state.alerts[id]
	if !ok {
		return Alert{}, false
	}
	return cloneAlert(a), true
}

func (v transactionView) FindGuide(id string) (Guide, bool) {
	g, ok := v.state.guides[id]
	if !ok {
		return Guide{}, false
	}
	return cloneGuide(g), true
}

func (v transactionView) FindContact(id string) (EmergencyContact, bool) {
	c, ok := v.state.contacts[id]
	if !ok {
		return EmergencyContact{}, false
	}
	return cloneContact(c), true
}

func (v transactionView) FindMapPoint(id string) (MapPoint, bool) {
	p, ok := v.state.mapPoints[id]
	if !ok {
		return MapPoint{}, false
	}
	return cloneMapPoint(p), true
}

func (v transactionView) FindChecklistState(id string) (ChecklistState, bool) {
	c, ok := v.state.checklists[id]
	if !ok {
		return ChecklistState{}, false
	}
	return cloneChecklistState(c), true
}

// RunInTransaction executes fn within a transactional copy of the store state.
func (s *Store) RunInTransaction(ctx context.Context, fn func(tx Transaction) error) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &transaction{
		store: s,
		state: s.state.clone(),
		now:   s.nowFn(),
	}

	if err := fn(tx); err != nil {
		return Result{}, err
	}

	var result Result
	if s.engine != nil {
		view := newTransactionView(&tx.state)
		res, err := s.engine.Evaluate(ctx, view, tx.changes)
		if err != nil {
			return Result{}, err
		}
		result = res
		if res.HasBlocking() {
			return res, domain.RuleViolationError{Result: res}
		}
	}

	s.state = tx.state
	return result, nil
}

// View executes fn against a read-only snapshot of the store state.
func (s *Store) View(_ context.Context, fn func(TransactionView) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot := s.state.clone()
	view := newTransactionView(&snapshot)
	return fn(view)
}

func (tx *transaction) recordChange(change Change) {
	tx.changes = append(tx.changes, change)
}

// Snapshot returns a read-only view over the transactional state.
func (tx *transaction) Snapshot() TransactionView {
	return newTransactionView(&tx.state)
}

func (tx *transaction) FindCommunity(id string) (Community, bool) {
	c, ok := tx.state.communities[id]
	if !ok {
		return Community{}, false
	}
	return cloneCommunity(c), true
}

func (tx *transaction) FindProfile(id string) (UserProfile, bool) {
	p, ok := tx.state.profiles[id]
	if !ok {
		return UserProfile{}, false
	}
	return cloneProfile(p), true
}

func (tx *transaction) FindGuide(id string) (Guide, bool) {
	g, ok := tx.state.guides[id]
	if !ok {
		return Guide{}, false
	}
	return cloneGuide(g), true
}

// CreateCommunity stores a new community within the transaction.
func (tx *transaction) CreateCommunity(c Community) (Community, error) {
	if c.ID == "" {
		c.ID = tx.store.newID()
	}
	if _, exists := tx.state.communities[c.ID]; exists {
		return Community{}, fmt.Errorf("community %q already exists", c.ID)
	}
	c.CreatedAt = tx.now
	c.UpdatedAt = tx.now
	tx.state.communities[c.ID] = cloneCommunity(c)
	tx.recordChange(Change{Entity: domain.EntityCommunity, Action: domain.ActionCreate, After: cloneCommunity(c)})
	return cloneCommunity(c), nil
}

// UpdateCommunity mutates a community using the provided mutator function.
func (tx *transaction) UpdateCommunity(id string, mutator func(*Community) error) (Community, error) {
	current, ok := tx.state.communities[id]
	if !ok {
		return Community{}, fmt.Errorf("community %q not found", id)
	}
	before := cloneCommunity(current)
	if err := mutator(&current); err != nil {
		return Community{}, err
	}
	current.ID = id
	current.UpdatedAt = tx.now
	tx.state.communities[id] = cloneCommunity(current)
	tx.recordChange(Change{Entity: domain.EntityCommunity, Action: domain.ActionUpdate, Before: before, After: cloneCommunity(current)})
	return cloneCommunity(current), nil
}

// DeleteCommunity removes a community and refuses while dependents remain.
func (tx *transaction) DeleteCommunity(id string) error {
	current, ok := tx.state.communities[id]
	if !ok {
		return fmt.Errorf("community %q not found", id)
	}
	for _, alert := range tx.state.alerts {
		if alert.CommunityID == id {
			return fmt.Errorf("community %q still referenced by alert %q", id, alert.ID)
		}
	}
	for _, guide := range tx.state.guides {
		if guide.CommunityID == id {
			return fmt.Errorf("community %q still referenced by guide %q", id, guide.ID)
		}
	}
	for _, contact := range tx.state.contacts {
		if contact.CommunityID == id {
			return fmt.Errorf("community %q still referenced by contact %q", id, contact.ID)
		}
	}
	for _, point := range tx.state.mapPoints {
		if point.CommunityID == id {
			return fmt.Errorf("community %q still referenced by map point %q", id, point.ID)
		}
	}
	delete(tx.state.communities, id)
	tx.recordChange(Change{Entity: domain.EntityCommunity, Action: domain.ActionDelete, Before: cloneCommunity(current)})
	return nil
}

// CreateProfile stores a new user profile.
func (tx *transaction) CreateProfile(p UserProfile) (UserProfile, error) {
	if p.ID == "" {
		p.ID = tx.store.newID()
	}
	if _, exists := tx.state.profiles[p.ID]; exists {
		return UserProfile{}, fmt.Errorf("profile %q already exists", p.ID)
	}
	p.CreatedAt = tx.now
	p.UpdatedAt = tx.now
	tx.state.profiles[p.ID] = cloneProfile(p)
	tx.recordChange(Change{Entity: domain.EntityProfile, Action: domain.ActionCreate, After: cloneProfile(p)})
	return cloneProfile(p), nil
}

// UpdateProfile mutates an existing profile.
func (tx *transaction) UpdateProfile(id string, mutator func(*UserProfile) error) (UserProfile, error) {
	current, ok := tx.state.profiles[id]
	if !ok {
		return UserProfile{}, fmt.Errorf("profile %q not found", id)
	}
	before := cloneProfile(current)
	if err := mutator(&current); err != nil {
		return UserProfile{}, err
	}
	current.ID = id
	current.UpdatedAt = tx.now
	tx.state.profiles[id] = cloneProfile(current)
	tx.recordChange(Change{Entity: domain.EntityProfile, Action: domain.ActionUpdate, Before: before, After: cloneProfile(current)})
	return cloneProfile(current), nil
}

// DeleteProfile removes a profile along with its checklist overlay.
func (tx *transaction) DeleteProfile(id string) error {
	current, ok := tx.state.profiles[id]
	if !ok {
		return fmt.Errorf("profile %q not found", id)
	}
	delete(tx.state.profiles, id)
	if cl, ok := tx.state.checklists[id]; ok {
		delete(tx.state.checklists, id)
		tx.recordChange(Change{Entity: domain.EntityChecklistState, Action: domain.ActionDelete, Before: cloneChecklistState(cl)})
	}
	tx.recordChange(Change{Entity: domain.EntityProfile, Action: domain.ActionDelete, Before: cloneProfile(current)})
	return nil
}

// CreateAlert stores a new alert.
func (tx *transaction) CreateAlert(a Alert) (Alert, error) {
	if a.ID == "" {
		a.ID = tx.store.newID()
	}
	if _, exists := tx.state.alerts[a.ID]; exists {
		return Alert{}, fmt.Errorf("alert %q already exists", a.ID)
	}
	if _, ok := tx.state.communities[a.CommunityID]; !ok {
		return Alert{}, fmt.Errorf("community %q not found", a.CommunityID)
	}
	a.CreatedAt = tx.now
	a.UpdatedAt = tx.now
	tx.state.alerts[a.ID] = cloneAlert(a)
	tx.recordChange(Change{Entity: domain.EntityAlert, Action: domain.ActionCreate, After: cloneAlert(a)})
	return cloneAlert(a), nil
}

// UpdateAlert mutates an existing alert.
func (tx *transaction) UpdateAlert(id string, mutator func(*Alert) error) (Alert, error) {
	current, ok := tx.state.alerts[id]
	if !ok {
		return Alert{}, fmt.Errorf("alert %q not found", id)
	}
	before := cloneAlert(current)
	if err := mutator(&current); err != nil {
		return Alert{}, err
	}
	current.ID = id
	current.UpdatedAt = tx.now
	tx.state.alerts[id] = cloneAlert(current)
	tx.recordChange(Change{Entity: domain.EntityAlert, Action: domain.ActionUpdate, Before: before, After: cloneAlert(current)})
	return cloneAlert(current), nil
}

// DeleteAlert removes an alert from state.
func (tx *transaction) DeleteAlert(id string) error {
	current, ok := tx.state.alerts[id]
	if !ok {
		return fmt.Errorf("alert %q not found", id)
	}
	delete(tx.state.alerts, id)
	tx.recordChange(Change{Entity: domain.EntityAlert, Action: domain.ActionDelete, Before: cloneAlert(current)})
	return nil
}

// CreateGuide stores a new response-plan guide.
func (tx *transaction) CreateGuide(g Guide) (Guide, error) {
	if g.ID == "" {
		g.ID = tx.store.newID()
	}
	if _, exists := tx.state.guides[g.ID]; exists {
		return Guide{}, fmt.Errorf("guide %q already exists", g.ID)
	}
	if _, ok := tx.state.communities[g.CommunityID]; !ok {
		return Guide{}, fmt.Errorf("community %q not found", g.CommunityID)
	}
	if g.Status == "" {
		g.Status = domain.GuideDraft
	}
	g.CreatedAt = tx.now
	g.UpdatedAt = tx.now
	tx.state.guides[g.ID] = cloneGuide(g)
	tx.recordChange(Change{Entity: domain.EntityGuide, Action: domain.ActionCreate, After: cloneGuide(g)})
	return cloneGuide(g), nil
}

// UpdateGuide mutates an existing guide.
func (tx *transaction) UpdateGuide(id string, mutator func(*Guide) error) (Guide, error) {
	current, ok := tx.state.guides[id]
	if !ok {
		return Guide{}, fmt.Errorf("guide %q not found", id)
	}
	before := cloneGuide(current)
	if err := mutator(&current); err != nil {
		return Guide{}, err
	}
	current.ID = id
	current.UpdatedAt = tx.now
	tx.state.guides[id] = cloneGuide(current)
	tx.recordChange(Change{Entity: domain.EntityGuide, Action: domain.ActionUpdate, Before: before, After: cloneGuide(current)})
	return cloneGuide(current), nil
}

// DeleteGuide removes a guide from state.
func (tx *transaction) DeleteGuide(id string) error {
	current, ok := tx.state.guides[id]
	if !ok {
		return fmt.Errorf("guide %q not found", id)
	}
	delete(tx.state.guides, id)
	tx.recordChange(Change{Entity: domain.EntityGuide, Action: domain.ActionDelete, Before: cloneGuide(current)})
	return nil
}

// CreateContact stores a new emergency contact.
func (tx *transaction) CreateContact(c EmergencyContact) (EmergencyContact, error) {
	if c.ID == "" {
		c.ID = tx.store.newID()
	}
	if _, exists := tx.state.contacts[c.ID]; exists {
		return EmergencyContact{}, fmt.Errorf("contact %q already exists", c.ID)
	}
	if _, ok := tx.state.communities[c.CommunityID]; !ok {
		return EmergencyContact{}, fmt.Errorf("community %q not found", c.CommunityID)
	}
	c.CreatedAt = tx.now
	c.UpdatedAt = tx.now
	tx.state.contacts[c.ID] = cloneContact(c)
	tx.recordChange(Change{Entity: domain.EntityContact, Action: domain.ActionCreate, After: cloneContact(c)})
	return cloneContact(c), nil
}

// UpdateContact mutates an existing contact.
func (tx *transaction) UpdateContact(id string, mutator func(*EmergencyContact) error) (EmergencyContact, error) {
	current, ok := tx.state.contacts[id]
	if !ok {
		return EmergencyContact{}, fmt.Errorf("contact %q not found", id)
	}
	before := cloneContact(current)
	if err := mutator(&current); err != nil {
		return EmergencyContact{}, err
	}
	current.ID = id
	current.UpdatedAt = tx.now
	tx.state.contacts[id] = cloneContact(current)
	tx.recordChange(Change{Entity: domain.EntityContact, Action: domain.ActionUpdate, Before: before, After: cloneContact(current)})
	return cloneContact(current), nil
}

// DeleteContact removes a contact from state.
func (tx *transaction) DeleteContact(id string) error {
	current, ok := tx.state.contacts[id]
	if !ok {
		return fmt.Errorf("contact %q not found", id)
	}
	delete(tx.state.contacts, id)
	tx.recordChange(Change{Entity: domain.EntityContact, Action: domain.ActionDelete, Before: cloneContact(current)})
	return nil
}

// CreateMapPoint stores a new map point.
func (tx *transaction) CreateMapPoint(p MapPoint) (MapPoint, error) {
	if p.ID == "" {
		p.ID = tx.store.newID()
	}
	if _, exists := tx.state.mapPoints[p.ID]; exists {
		return MapPoint{}, fmt.Errorf("map point %q already exists", p.ID)
	}
	if _, ok := tx.state.communities[p.CommunityID]; !ok {
		return MapPoint{}, fmt.Errorf("community %q not found", p.CommunityID)
	}
	p.CreatedAt = tx.now
	p.UpdatedAt = tx.now
	tx.state.mapPoints[p.ID] = cloneMapPoint(p)
	tx.recordChange(Change{Entity: domain.EntityMapPoint, Action: domain.ActionCreate, After: cloneMapPoint(p)})
	return cloneMapPoint(p), nil
}

// UpdateMapPoint mutates an existing map point.
func (tx *transaction) UpdateMapPoint(id string, mutator func(*MapPoint) error) (MapPoint, error) {
	current, ok := tx.state.mapPoints[id]
	if !ok {
		return MapPoint{}, fmt.Errorf("map point %q not found", id)
	}
	before := cloneMapPoint(current)
	if err := mutator(&current); err != nil {
		return MapPoint{}, err
	}
	current.ID = id
	current.UpdatedAt = tx.now
	tx.state.mapPoints[id] = cloneMapPoint(current)
	tx.recordChange(Change{Entity: domain.EntityMapPoint, Action: domain.ActionUpdate, Before: before, After: cloneMapPoint(current)})
	return cloneMapPoint(current), nil
}

// DeleteMapPoint removes a map point from state.
func (tx *transaction) DeleteMapPoint(id string) error {
	current, ok := tx.state.mapPoints[id]
	if !ok {
		return fmt.Errorf("map point %q not found", id)
	}
	delete(tx.state.mapPoints, id)
	tx.recordChange(Change{Entity: domain.EntityMapPoint, Action: domain.ActionDelete, Before: cloneMapPoint(current)})
	return nil
}

// PutChecklistState upserts the checklist overlay for a profile. The record
// is keyed by profile id; one overlay exists per profile.
func (tx *transaction) PutChecklistState(cl ChecklistState) (ChecklistState, error) {
	if cl.ProfileID == "" {
		return ChecklistState{}, fmt.Errorf("checklist state requires a profile id")
	}
	if _, ok := tx.state.profiles[cl.ProfileID]; !ok {
		return ChecklistState{}, fmt.Errorf("profile %q not found", cl.ProfileID)
	}
	cl.ID = cl.ProfileID
	existing, exists := tx.state.checklists[cl.ProfileID]
	if exists {
		cl.CreatedAt = existing.CreatedAt
		tx.recordChange(Change{Entity: domain.EntityChecklistState, Action: domain.ActionUpdate, Before: cloneChecklistState(existing), After: cloneChecklistState(cl)})
	} else {
		cl.CreatedAt = tx.now
		tx.recordChange(Change{Entity: domain.EntityChecklistState, Action: domain.ActionCreate, After: cloneChecklistState(cl)})
	}
	cl.UpdatedAt = tx.now
	tx.state.checklists[cl.ProfileID] = cloneChecklistState(cl)
	return cloneChecklistState(cl), nil
}

// DeleteChecklistState removes the checklist overlay for a profile.
func (tx *transaction) DeleteChecklistState(profileID string) error {
	current, ok := tx.state.checklists[profileID]
	if !ok {
		return fmt.Errorf("checklist state for profile %q not found", profileID)
	}
	delete(tx.state.checklists, profileID)
	tx.recordChange(Change{Entity: domain.EntityChecklistState, Action: domain.ActionDelete, Before: cloneChecklistState(current)})
	return nil
}

// GetCommunity retrieves a community by ID from committed state.
func (s *Store) GetCommunity(id string) (Community, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.state.communities[id]
	if !ok {
		return Community{}, false
	}
	return cloneCommunity(c), true
}

// ListCommunities returns all committed communities.
func (s *Store) ListCommunities() []Community {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Community, 0, len(s.state.communities))
	for _, c := range s.state.communities {
		out = append(out, cloneCommunity(c))
	}
	return out
}

// GetProfile retrieves a profile by ID from committed state.
func (s *Store) GetProfile(id string) (UserProfile, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.state.profiles[id]
	if !ok {
		return UserProfile{}, false
	}
	return cloneProfile(p), true
}

// ListProfiles returns all committed profiles.
func (s *Store) ListProfiles() []UserProfile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]UserProfile, 0, len(s.state.profiles))
	for _, p := range s.state.profiles {
		out = append(out, cloneProfile(p))
	}
	return out
}

// GetAlert retrieves an alert by ID from committed state.
func (s *Store) GetAlert(id string) (Alert, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.state.alerts[id]
	if !ok {
		return Alert{}, false
	}
	return cloneAlert(a), true
}

// ListAlerts returns all committed alerts.
func (s *Store) ListAlerts() []Alert {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Alert, 0, len(s.state.alerts))
	for _, a := range s.state.alerts {
		out = append(out, cloneAlert(a))
	}
	return out
}

// GetGuide retrieves a guide by ID from committed state.
func (s *Store) GetGuide(id string) (Guide, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.state.guides[id]
	if !ok {
		return Guide{}, false
	}
	return cloneGuide(g), true
}

// ListGuides returns all committed guides.
func (s *Store) ListGuides() []Guide {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Guide, 0, len(s.state.guides))
	for _, g := range s.state.guides {
		out = append(out, cloneGuide(g))
	}
	return out
}

// GetContact retrieves a contact by ID from committed state.
func (s *Store) GetContact(id string) (EmergencyContact, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.state.contacts[id]
	if !ok {
		return EmergencyContact{}, false
	}
	return cloneContact(c), true
}

// ListContacts returns all committed contacts.
func (s *Store) ListContacts() []EmergencyContact {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]EmergencyContact, 0, len(s.state.contacts))
	for _, c := range s.state.contacts {
		out = append(out, cloneContact(c))
	}
	return out
}

// GetMapPoint retrieves a map point by ID from committed state.
func (s *Store) GetMapPoint(id string) (MapPoint, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.state.mapPoints[id]
	if !ok {
		return MapPoint{}, false
	}
	return cloneMapPoint(p), true
}

// ListMapPoints returns all committed map points.
func (s *Store) ListMapPoints() []MapPoint {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]MapPoint, 0, len(s.state.mapPoints))
	for _, p := range s.state.mapPoints {
		out = append(out, cloneMapPoint(p))
	}
	return out
}

// GetChecklistState retrieves the checklist overlay for a profile.
func (s *Store) GetChecklistState(profileID string) (ChecklistState, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.state.checklists[profileID]
	if !ok {
		return ChecklistState{}, false
	}
	return cloneChecklistState(c), true
}
