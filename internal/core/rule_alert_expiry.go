package core

import (
	"context"
	"fmt"
	"time"

	"prepcore/pkg/domain"
)

// NewAlertExpiryRule returns a rule that warns when an alert is written as
// active even though its expiry timestamp already passed.
func NewAlertExpiryRule() domain.Rule {
	return alertExpiryRule{now: func() time.Time { return time.Now().UTC() }}
}

type alertExpiryRule struct {
	now func() time.Time
}

func (alertExpiryRule) Name() string { return "alert_expiry" }

func (r alertExpiryRule) Evaluate(_ context.Context, _ domain.RuleView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	now := r.now()
	for _, change := range changes {
		if change.Entity != domain.EntityAlert || change.Action == domain.ActionDelete {
			continue
		}
		alert, ok := change.After.(domain.Alert)
		if !ok || !alert.Active || alert.ExpiresAt == nil {
			continue
		}
		if alert.ExpiresAt.Before(now) {
			res.Violations = append(res.Violations, domain.Violation{
				Rule:     "alert_expiry",
				Severity: domain.SeverityWarn,
				Message:  fmt.Sprintf("alert %q is active but expired at %s", alert.Title, alert.ExpiresAt.Format(time.RFC3339)),
				Entity:   domain.EntityAlert,
				EntityID: alert.ID,
			})
		}
	}
	return res, nil
}
