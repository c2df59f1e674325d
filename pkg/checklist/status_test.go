package checklist

import (
	"testing"
	"time"
)

func TestItemStatusBoundaries(t *testing.T) {
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	checkedDaysAgo := func(days int) Item {
		return Item{
			Checked:     true,
			LastChecked: now.AddDate(0, 0, -days).Format(time.RFC3339),
			RecheckDays: 90,
		}
	}
	cases := []struct {
		name string
		item Item
		want Status
	}{
		{"unchecked", Item{RecheckDays: 90}, StatusUnchecked},
		{"checked without timestamp", Item{Checked: true, RecheckDays: 90}, StatusUnchecked},
		{"unparseable timestamp", Item{Checked: true, LastChecked: "yesterday", RecheckDays: 90}, StatusUnchecked},
		{"fresh", checkedDaysAgo(0), StatusOK},
		{"last ok day", checkedDaysAgo(75), StatusOK},
		{"first warning day", checkedDaysAgo(76), StatusWarning},
		{"due today", checkedDaysAgo(90), StatusWarning},
		{"one day over", checkedDaysAgo(91), StatusOverdue},
		{"long overdue", checkedDaysAgo(400), StatusOverdue},
		{"future timestamp", checkedDaysAgo(-5), StatusOK},
		{"zero recheck days", Item{Checked: true, LastChecked: now.Format(time.RFC3339)}, StatusWarning},
	}
	for _, tc := range cases {
		if got := ItemStatus(tc.item, now); got != tc.want {
			t.Errorf("%s: got %s, want %s", tc.name, got, tc.want)
		}
	}
}

func TestItemStatusSubDayRounding(t *testing.T) {
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	item := Item{
		Checked:     true,
		LastChecked: now.Add(-91*24*time.Hour + time.Hour).Format(time.RFC3339),
		RecheckDays: 90,
	}
	// 90 days and 23 hours elapsed floors to 90 full days, still due today.
	if got := ItemStatus(item, now); got != StatusWarning {
		t.Fatalf("expected warning, got %s", got)
	}
}
