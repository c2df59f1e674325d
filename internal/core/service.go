package core

import (
	"context"
	"fmt"
	"time"

	memory "prepcore/internal/infra/persistence/memory"
)

// Service exposes higher-level transactional operations for the preparedness
// schema: entity CRUD plus checklist orchestration. Every mutation runs inside
// a store transaction and is observed by the configured metrics recorder,
// tracer, and audit sink.
type Service struct {
	store   PersistentStore
	logger  Logger
	clock   Clock
	metrics MetricsRecorder
	tracer  Tracer
	audit   AuditRecorder
}

// NewService constructs a service backed by the supplied store.
func NewService(store PersistentStore, opts ...Option) *Service {
	options := defaultServiceOptions()
	for _, opt := range opts {
		opt(&options)
	}
	return &Service{
		store:   store,
		logger:  options.logger,
		clock:   options.clock,
		metrics: options.metrics,
		tracer:  options.tracer,
		audit:   options.audit,
	}
}

// NewInMemoryService creates a service and in-memory store with the given
// rules engine. A nil engine yields an engine without rules.
func NewInMemoryService(engine *RulesEngine, opts ...Option) *Service {
	return NewService(memory.NewStore(engine), opts...)
}

// NewMemoryStore constructs the in-memory store implementation.
func NewMemoryStore(engine *RulesEngine) *memory.Store {
	return memory.NewStore(engine)
}

// Store returns the underlying storage implementation.
func (s *Service) Store() PersistentStore {
	return s.store
}

// run executes fn in a store transaction wrapped with tracing, metrics, and
// logging. The returned duration feeds the audit trail on success.
func (s *Service) run(ctx context.Context, op string, fn func(Transaction) error) (Result, time.Duration, error) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, op)
	res, err := s.store.RunInTransaction(ctx, fn)
	duration := time.Since(start)
	span.End(err)
	s.metrics.Observe(ctx, op, err == nil, duration)
	if err != nil {
		s.logger.Error("operation failed", "operation", op, "error", err)
		return res, duration, err
	}
	if len(res.Violations) > 0 {
		s.logger.Warn("operation committed with violations", "operation", op, "violations", len(res.Violations))
	} else {
		s.logger.Debug("operation committed", "operation", op)
	}
	return res, duration, nil
}

// view executes a read-only snapshot function with tracing and metrics but no
// audit entry.
func (s *Service) view(ctx context.Context, op string, fn func(TransactionView) error) error {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, op)
	err := s.store.View(ctx, fn)
	span.End(err)
	s.metrics.Observe(ctx, op, err == nil, time.Since(start))
	if err != nil {
		s.logger.Error("read failed", "operation", op, "error", err)
	}
	return err
}

var operationMetadata = map[string]struct {
	entity EntityType
	action Action
}{
	"create_community":   {EntityCommunity, ActionCreate},
	"update_community":   {EntityCommunity, ActionUpdate},
	"delete_community":   {EntityCommunity, ActionDelete},
	"create_profile":     {EntityProfile, ActionCreate},
	"update_profile":     {EntityProfile, ActionUpdate},
	"delete_profile":     {EntityProfile, ActionDelete},
	"create_alert":       {EntityAlert, ActionCreate},
	"update_alert":       {EntityAlert, ActionUpdate},
	"delete_alert":       {EntityAlert, ActionDelete},
	"create_guide":       {EntityGuide, ActionCreate},
	"update_guide":       {EntityGuide, ActionUpdate},
	"delete_guide":       {EntityGuide, ActionDelete},
	"create_contact":     {EntityContact, ActionCreate},
	"update_contact":     {EntityContact, ActionUpdate},
	"delete_contact":     {EntityContact, ActionDelete},
	"create_map_point":   {EntityMapPoint, ActionCreate},
	"update_map_point":   {EntityMapPoint, ActionUpdate},
	"delete_map_point":   {EntityMapPoint, ActionDelete},
	"set_checklist_item": {EntityChecklistState, ActionUpdate},
	"reset_checklist":    {EntityChecklistState, ActionDelete},
}

// recordAuditSuccess emits an audit entry for a committed mutation. Operations
// without registered metadata are silently skipped.
func (s *Service) recordAuditSuccess(ctx context.Context, op, entityID string, duration time.Duration) {
	meta, ok := operationMetadata[op]
	if !ok {
		return
	}
	s.audit.Record(ctx, AuditEntry{
		Operation: op,
		Entity:    meta.entity,
		Action:    meta.action,
		EntityID:  entityID,
		Status:    AuditStatusSuccess,
		Duration:  duration,
		Timestamp: s.clock.Now(),
	})
}

// CreateCommunity persists a new community.
func (s *Service) CreateCommunity(ctx context.Context, community Community) (Community, Result, error) {
	var created Community
	res, duration, err := s.run(ctx, "create_community", func(tx Transaction) error {
		var err error
		created, err = tx.CreateCommunity(community)
		return err
	})
	if err == nil {
		s.recordAuditSuccess(ctx, "create_community", created.ID, duration)
	}
	return created, res, err
}

// UpdateCommunity mutates a community using the provided mutator.
func (s *Service) UpdateCommunity(ctx context.Context, id string, mutator func(*Community) error) (Community, Result, error) {
	var updated Community
	res, duration, err := s.run(ctx, "update_community", func(tx Transaction) error {
		var err error
		updated, err = tx.UpdateCommunity(id, mutator)
		return err
	})
	if err == nil {
		s.recordAuditSuccess(ctx, "update_community", updated.ID, duration)
	}
	return updated, res, err
}

// DeleteCommunity removes a community record. Deletion is blocked while
// dependent alerts, guides, contacts, or map points exist.
func (s *Service) DeleteCommunity(ctx context.Context, id string) (Result, error) {
	res, duration, err := s.run(ctx, "delete_community", func(tx Transaction) error {
		return tx.DeleteCommunity(id)
	})
	if err == nil {
		s.recordAuditSuccess(ctx, "delete_community", id, duration)
	}
	return res, err
}

// CreateProfile persists a new user profile.
func (s *Service) CreateProfile(ctx context.Context, profile UserProfile) (UserProfile, Result, error) {
	var created UserProfile
	res, duration, err := s.run(ctx, "create_profile", func(tx Transaction) error {
		var err error
		created, err = tx.CreateProfile(profile)
		return err
	})
	if err == nil {
		s.recordAuditSuccess(ctx, "create_profile", created.ID, duration)
	}
	return created, res, err
}

// UpdateProfile mutates a profile using the provided mutator.
func (s *Service) UpdateProfile(ctx context.Context, id string, mutator func(*UserProfile) error) (UserProfile, Result, error) {
	var updated UserProfile
	res, duration, err := s.run(ctx, "update_profile", func(tx Transaction) error {
		var err error
		updated, err = tx.UpdateProfile(id, mutator)
		return err
	})
	if err == nil {
		s.recordAuditSuccess(ctx, "update_profile", updated.ID, duration)
	}
	return updated, res, err
}

// DeleteProfile removes a profile and cascades its checklist overlay.
func (s *Service) DeleteProfile(ctx context.Context, id string) (Result, error) {
	res, duration, err := s.run(ctx, "delete_profile", func(tx Transaction) error {
		return tx.DeleteProfile(id)
	})
	if err == nil {
		s.recordAuditSuccess(ctx, "delete_profile", id, duration)
	}
	return res, err
}

// CreateAlert persists a new alert after validating its community reference.
func (s *Service) CreateAlert(ctx context.Context, alert Alert) (Alert, Result, error) {
	var created Alert
	res, duration, err := s.run(ctx, "create_alert", func(tx Transaction) error {
		var err error
		created, err = tx.CreateAlert(alert)
		return err
	})
	if err == nil {
		s.recordAuditSuccess(ctx, "create_alert", created.ID, duration)
	}
	return created, res, err
}

// UpdateAlert mutates an alert using the provided mutator.
func (s *Service) UpdateAlert(ctx context.Context, id string, mutator func(*Alert) error) (Alert, Result, error) {
	var updated Alert
	res, duration, err := s.run(ctx, "update_alert", func(tx Transaction) error {
		var err error
		updated, err = tx.UpdateAlert(id, mutator)
		return err
	})
	if err == nil {
		s.recordAuditSuccess(ctx, "update_alert", updated.ID, duration)
	}
	return updated, res, err
}

// DeleteAlert removes an alert record.
func (s *Service) DeleteAlert(ctx context.Context, id string) (Result, error) {
	res, duration, err := s.run(ctx, "delete_alert", func(tx Transaction) error {
		return tx.DeleteAlert(id)
	})
	if err == nil {
		s.recordAuditSuccess(ctx, "delete_alert", id, duration)
	}
	return res, err
}

// CreateGuide persists a new guide. Guides default to draft status.
func (s *Service) CreateGuide(ctx context.Context, guide Guide) (Guide, Result, error) {
	var created Guide
	res, duration, err := s.run(ctx, "create_guide", func(tx Transaction) error {
		var err error
		created, err = tx.CreateGuide(guide)
		return err
	})
	if err == nil {
		s.recordAuditSuccess(ctx, "create_guide", created.ID, duration)
	}
	return created, res, err
}

// UpdateGuide mutates a guide using the provided mutator.
func (s *Service) UpdateGuide(ctx context.Context, id string, mutator func(*Guide) error) (Guide, Result, error) {
	var updated Guide
	res, duration, err := s.run(ctx, "update_guide", func(tx Transaction) error {
		var err error
		updated, err = tx.UpdateGuide(id, mutator)
		return err
	})
	if err == nil {
		s.recordAuditSuccess(ctx, "update_guide", updated.ID, duration)
	}
	return updated, res, err
}

// DeleteGuide removes a guide record.
func (s *Service) DeleteGuide(ctx context.Context, id string) (Result, error) {
	res, duration, err := s.run(ctx, "delete_guide", func(tx Transaction) error {
		return tx.DeleteGuide(id)
	})
	if err == nil {
		s.recordAuditSuccess(ctx, "delete_guide", id, duration)
	}
	return res, err
}

// CreateContact persists a new emergency contact.
func (s *Service) CreateContact(ctx context.Context, contact EmergencyContact) (EmergencyContact, Result, error) {
	var created EmergencyContact
	res, duration, err := s.run(ctx, "create_contact", func(tx Transaction) error {
		var err error
		created, err = tx.CreateContact(contact)
		return err
	})
	if err == nil {
		s.recordAuditSuccess(ctx, "create_contact", created.ID, duration)
	}
	return created, res, err
}

// UpdateContact mutates an emergency contact using the provided mutator.
func (s *Service) UpdateContact(ctx context.Context, id string, mutator func(*EmergencyContact) error) (EmergencyContact, Result, error) {
	var updated EmergencyContact
	res, duration, err := s.run(ctx, "update_contact", func(tx Transaction) error {
		var err error
		updated, err = tx.UpdateContact(id, mutator)
		return err
	})
	if err == nil {
		s.recordAuditSuccess(ctx, "update_contact", updated.ID, duration)
	}
	return updated, res, err
}

// DeleteContact removes an emergency contact record.
func (s *Service) DeleteContact(ctx context.Context, id string) (Result, error) {
	res, duration, err := s.run(ctx, "delete_contact", func(tx Transaction) error {
		return tx.DeleteContact(id)
	})
	if err == nil {
		s.recordAuditSuccess(ctx, "delete_contact", id, duration)
	}
	return res, err
}

// CreateMapPoint persists a new map point.
func (s *Service) CreateMapPoint(ctx context.Context, point MapPoint) (MapPoint, Result, error) {
	var created MapPoint
	res, duration, err := s.run(ctx, "create_map_point", func(tx Transaction) error {
		var err error
		created, err = tx.CreateMapPoint(point)
		return err
	})
	if err == nil {
		s.recordAuditSuccess(ctx, "create_map_point", created.ID, duration)
	}
	return created, res, err
}

// UpdateMapPoint mutates a map point using the provided mutator.
func (s *Service) UpdateMapPoint(ctx context.Context, id string, mutator func(*MapPoint) error) (MapPoint, Result, error) {
	var updated MapPoint
	res, duration, err := s.run(ctx, "update_map_point", func(tx Transaction) error {
		var err error
		updated, err = tx.UpdateMapPoint(id, mutator)
		return err
	})
	if err == nil {
		s.recordAuditSuccess(ctx, "update_map_point", updated.ID, duration)
	}
	return updated, res, err
}

// DeleteMapPoint removes a map point record.
func (s *Service) DeleteMapPoint(ctx context.Context, id string) (Result, error) {
	res, duration, err := s.run(ctx, "delete_map_point", func(tx Transaction) error {
		return tx.DeleteMapPoint(id)
	})
	if err == nil {
		s.recordAuditSuccess(ctx, "delete_map_point", id, duration)
	}
	return res, err
}

// ErrNotFound is returned when reference validation fails within transactional
// helpers.
type ErrNotFound struct {
	Entity EntityType
	ID     string
}

func (e ErrNotFound) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}
