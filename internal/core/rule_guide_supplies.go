package core

import (
	"context"
	"fmt"
	"strings"

	"prepcore/pkg/domain"
)

// NewGuideSuppliesRule returns a rule that warns when a guide goes active
// without any usable supply entries. Active guides feed checklist generation,
// so an empty list silently produces no plan category.
func NewGuideSuppliesRule() domain.Rule {
	return guideSuppliesRule{}
}

type guideSuppliesRule struct{}

func (guideSuppliesRule) Name() string { return "guide_supplies" }

func (guideSuppliesRule) Evaluate(_ context.Context, _ domain.RuleView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for _, change := range changes {
		if change.Entity != domain.EntityGuide || change.Action == domain.ActionDelete {
			continue
		}
		guide, ok := change.After.(domain.Guide)
		if !ok || guide.Status != domain.GuideActive {
			continue
		}
		if !hasUsableSupply(guide.Supplies) {
			res.Violations = append(res.Violations, domain.Violation{
				Rule:     "guide_supplies",
				Severity: domain.SeverityWarn,
				Message:  fmt.Sprintf("active guide %q has no supplies and will not appear on checklists", guide.Name),
				Entity:   domain.EntityGuide,
				EntityID: guide.ID,
			})
		}
	}
	return res, nil
}

func hasUsableSupply(supplies []string) bool {
	for _, s := range supplies {
		if strings.TrimSpace(s) != "" {
			return true
		}
	}
	return false
}
