package checklist

import (
	"fmt"
	"hash/fnv"
	"sort"
	"strings"

	"prepcore/pkg/domain"
)

// Generate builds a fresh personalized checklist from a household profile
// and the community's active response plans. It is deterministic: the same
// inputs always produce the same categories, items and item IDs. All items
// start unchecked.
//
// Base catalog items are always present. Household augmentations apply once
// per age category, once per care flag and once per distinct special-needs
// code. Response plans each contribute their own category; identical supply
// names in different plans stay separate items.
func Generate(profile *domain.UserProfile, plans []ResponsePlan) []Category {
	categories := make([]Category, 0, len(baseCatalog)+len(plans))
	index := make(map[string]int, len(baseCatalog))
	for _, tpl := range baseCatalog {
		cat := Category{ID: tpl.id, Name: tpl.name, Icon: tpl.icon}
		for _, it := range tpl.items {
			cat.Items = append(cat.Items, newItem(tpl.id, SourceBase, "", it))
		}
		index[tpl.id] = len(categories)
		categories = append(categories, cat)
	}

	if profile != nil {
		applyHousehold(categories, index, profile.HouseholdMembers)
		applySpecialNeeds(categories, index, profile)
	}

	for _, plan := range plans {
		categories = append(categories, planCategory(plan))
	}
	return categories
}

func applyHousehold(categories []Category, index map[string]int, members []domain.HouseholdMember) {
	ages := make(map[domain.AgeCategory]bool, len(members))
	care := make(map[string]bool, 3)
	for _, m := range members {
		ages[m.Category()] = true
		if m.Mobility {
			care["mobility"] = true
		}
		if m.Dietary {
			care["dietary"] = true
		}
		if m.Medical {
			care["medical"] = true
		}
	}
	for _, age := range ageOrder {
		if !ages[age] {
			continue
		}
		appendAugments(categories, index, SourceHousehold, householdCatalog[age])
	}
	for _, flag := range []string{"mobility", "dietary", "medical"} {
		if !care[flag] {
			continue
		}
		appendAugments(categories, index, SourceHousehold, careCatalog[flag])
	}
}

func applySpecialNeeds(categories []Category, index map[string]int, profile *domain.UserProfile) {
	seen := make(map[string]bool, len(profile.Disabilities)+len(profile.Equipment))
	codes := make([]string, 0, len(profile.Disabilities)+len(profile.Equipment))
	for _, code := range append(append([]string{}, profile.Disabilities...), profile.Equipment...) {
		code = strings.ToLower(strings.TrimSpace(code))
		if code == "" || seen[code] {
			continue
		}
		seen[code] = true
		codes = append(codes, code)
	}
	sort.Strings(codes)
	for _, code := range codes {
		appendAugments(categories, index, SourceSpecialNeeds, specialNeedsCatalog[code])
	}
}

func appendAugments(categories []Category, index map[string]int, source Source, augments []augmentTemplate) {
	for _, aug := range augments {
		i, ok := index[aug.category]
		if !ok {
			continue
		}
		categories[i].Items = append(categories[i].Items, newItem(aug.category, source, "", aug.itemTemplate))
	}
}

func planCategory(plan ResponsePlan) Category {
	id := "plan-" + slug(plan.Name)
	cat := Category{ID: id, Name: plan.Name, Icon: plan.Icon}
	seen := make(map[string]bool, len(plan.Supplies))
	for _, supply := range plan.Supplies {
		supply = strings.TrimSpace(supply)
		if supply == "" {
			continue
		}
		key := strings.ToLower(supply)
		if seen[key] {
			continue
		}
		seen[key] = true
		cat.Items = append(cat.Items, newItem(id, SourceResponsePlan, plan.Name, itemTemplate{
			name:        supply,
			recheckDays: planRecheckDays,
		}))
	}
	return cat
}

func newItem(categoryID string, source Source, plan string, tpl itemTemplate) Item {
	priority := PriorityStandard
	if _, ok := essentialNames[strings.ToLower(tpl.name)]; ok {
		priority = PriorityEssential
	}
	return Item{
		ID:          itemID(categoryID, source, plan, tpl.name),
		Name:        tpl.name,
		Description: tpl.description,
		RecheckDays: tpl.recheckDays,
		Priority:    priority,
		Source:      source,
		Plan:        plan,
	}
}

// itemID derives a stable identifier from the item's identity fields. The
// plan name participates so the same supply in two plans yields two IDs.
func itemID(categoryID string, source Source, plan, name string) string {
	h := fnv.New32a()
	h.Write([]byte(categoryID))
	h.Write([]byte{'|'})
	h.Write([]byte(source))
	h.Write([]byte{'|'})
	h.Write([]byte(name))
	if plan != "" {
		h.Write([]byte{'|'})
		h.Write([]byte(plan))
	}
	return fmt.Sprintf("%s-%08x", slug(name), h.Sum32())
}

func slug(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	lastDash := true
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
