package core

import (
	"context"
	"fmt"

	"prepcore/pkg/domain"
)

// NewMapPointBoundsRule returns the default in-transaction rule rejecting map
// points with coordinates outside the WGS84 range.
func NewMapPointBoundsRule() domain.Rule {
	return mapPointBoundsRule{}
}

type mapPointBoundsRule struct{}

func (mapPointBoundsRule) Name() string { return "map_point_bounds" }

func (mapPointBoundsRule) Evaluate(_ context.Context, _ domain.RuleView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for _, change := range changes {
		if change.Entity != domain.EntityMapPoint || change.Action == domain.ActionDelete {
			continue
		}
		point, ok := change.After.(domain.MapPoint)
		if !ok {
			continue
		}
		if point.Latitude < -90 || point.Latitude > 90 || point.Longitude < -180 || point.Longitude > 180 {
			res.Violations = append(res.Violations, domain.Violation{
				Rule:     "map_point_bounds",
				Severity: domain.SeverityBlock,
				Message:  fmt.Sprintf("map point %s has out-of-range coordinates (%f, %f)", point.Name, point.Latitude, point.Longitude),
				Entity:   domain.EntityMapPoint,
				EntityID: point.ID,
			})
		}
	}
	return res, nil
}
