package checklist

import (
	"math"
	"time"
)

// warningWindowDays is how far ahead of the recheck deadline an item turns
// from ok to warning.
const warningWindowDays = 14

// ItemStatus classifies one item's urgency at the given instant. Unchecked
// items and checked items whose timestamp fails to parse are unchecked;
// everything past its recheck interval is overdue; anything inside the
// warning window counts down as warning; the rest is ok. Total for all
// inputs, including a zero RecheckDays and timestamps in the future.
func ItemStatus(item Item, now time.Time) Status {
	if !item.Checked || item.LastChecked == "" {
		return StatusUnchecked
	}
	last, err := time.Parse(time.RFC3339, item.LastChecked)
	if err != nil {
		return StatusUnchecked
	}
	daysSince := int(math.Floor(now.Sub(last).Hours() / 24))
	daysUntil := item.RecheckDays - daysSince
	switch {
	case daysUntil < 0:
		return StatusOverdue
	case daysUntil <= warningWindowDays:
		return StatusWarning
	default:
		return StatusOK
	}
}
