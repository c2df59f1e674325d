package core

import "prepcore/pkg/domain"

type (
	EntityType         = domain.EntityType
	AgeCategory        = domain.AgeCategory
	AlertSeverity      = domain.AlertSeverity
	GuideStatus        = domain.GuideStatus
	MapPointKind       = domain.MapPointKind
	Severity           = domain.Severity
	Base               = domain.Base
	Community          = domain.Community
	HouseholdMember    = domain.HouseholdMember
	UserProfile        = domain.UserProfile
	Alert              = domain.Alert
	Guide              = domain.Guide
	EmergencyContact   = domain.EmergencyContact
	MapPoint           = domain.MapPoint
	ChecklistItemState = domain.ChecklistItemState
	ChecklistState     = domain.ChecklistState
	Change             = domain.Change
	Action             = domain.Action
	Violation          = domain.Violation
	Result             = domain.Result
	RuleViolationError = domain.RuleViolationError
	Rule               = domain.Rule
	RulesEngine        = domain.RulesEngine
	Transaction        = domain.Transaction
	TransactionView    = domain.TransactionView
	PersistentStore    = domain.PersistentStore
)

const (
	EntityCommunity      = domain.EntityCommunity
	EntityProfile        = domain.EntityProfile
	EntityAlert          = domain.EntityAlert
	EntityGuide          = domain.EntityGuide
	EntityContact        = domain.EntityContact
	EntityMapPoint       = domain.EntityMapPoint
	EntityChecklistState = domain.EntityChecklistState
)

const (
	SeverityBlock = domain.SeverityBlock
	SeverityWarn  = domain.SeverityWarn
	SeverityLog   = domain.SeverityLog
)

const (
	ActionCreate = domain.ActionCreate
	ActionUpdate = domain.ActionUpdate
	ActionDelete = domain.ActionDelete
)

const (
	GuideDraft    = domain.GuideDraft
	GuideActive   = domain.GuideActive
	GuideArchived = domain.GuideArchived
)

// NewRulesEngine constructs an empty engine instance.
func NewRulesEngine() *RulesEngine {
	return domain.NewRulesEngine()
}
