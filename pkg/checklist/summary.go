package checklist

import "prepcore/pkg/domain"

// Summarize aggregates household composition and generated checklist
// counters. TotalPeople counts the household members on the profile.
// PersonalizedItems counts every item not sourced from the base catalog.
func Summarize(profile *domain.UserProfile, plans []ResponsePlan, categories []Category) Summary {
	s := Summary{
		AgeCounts:         make(map[domain.AgeCategory]int),
		ResponsePlanCount: len(plans),
	}
	if profile != nil {
		for _, m := range profile.HouseholdMembers {
			s.AgeCounts[m.Category()]++
			s.TotalPeople++
		}
		s.HasSpecialNeeds = len(profile.Disabilities) > 0 || len(profile.Equipment) > 0 || len(profile.Skills) > 0
	}
	for _, cat := range categories {
		for _, it := range cat.Items {
			s.TotalItems++
			if it.Source != SourceBase {
				s.PersonalizedItems++
			}
		}
	}
	return s
}
