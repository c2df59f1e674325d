package checklist

import "prepcore/pkg/domain"

// Static derivation tables. Recheck intervals are per-template: perishables
// and medication 90 days, batteries and hardware 180, documents and fixed
// gear 365. Response-plan items have no template, so they carry
// planRecheckDays.

type itemTemplate struct {
	name        string
	description string
	recheckDays int
}

type categoryTemplate struct {
	id    string
	name  string
	icon  string
	items []itemTemplate
}

// augmentTemplate targets an existing base category by id.
type augmentTemplate struct {
	category string
	itemTemplate
}

const planRecheckDays = 180

// baseCatalog is always included regardless of household composition, in
// this display order.
var baseCatalog = []categoryTemplate{
	{
		id: "water-food", name: "Water & Food", icon: "droplet",
		items: []itemTemplate{
			{name: "Bottled water", description: "3 litres per person per day, 3 day minimum", recheckDays: 90},
			{name: "Emergency food", description: "Non-perishable, 3 day minimum", recheckDays: 90},
			{name: "Manual can opener", recheckDays: 365},
		},
	},
	{
		id: "first-aid", name: "First Aid & Medication", icon: "cross",
		items: []itemTemplate{
			{name: "First aid kit", recheckDays: 180},
			{name: "Prescription medication", description: "7 day supply", recheckDays: 90},
			{name: "Pain relief tablets", recheckDays: 180},
		},
	},
	{
		id: "tools", name: "Tools & Equipment", icon: "wrench",
		items: []itemTemplate{
			{name: "Flashlight", recheckDays: 180},
			{name: "Battery radio", recheckDays: 180},
			{name: "Spare batteries", recheckDays: 180},
			{name: "Multi-tool", recheckDays: 365},
		},
	},
	{
		id: "documents", name: "Documents & Money", icon: "file",
		items: []itemTemplate{
			{name: "Copies of important documents", description: "ID, insurance, medical records in a waterproof bag", recheckDays: 365},
			{name: "Emergency cash", recheckDays: 365},
		},
	},
	{
		id: "hygiene", name: "Hygiene & Sanitation", icon: "soap",
		items: []itemTemplate{
			{name: "Hand sanitiser", recheckDays: 180},
			{name: "Toilet paper", recheckDays: 180},
			{name: "Rubbish bags", recheckDays: 365},
		},
	},
	{
		id: "comfort", name: "Warmth & Shelter", icon: "tent",
		items: []itemTemplate{
			{name: "Emergency blankets", recheckDays: 365},
			{name: "Warm clothing", recheckDays: 365},
			{name: "Sturdy shoes", recheckDays: 365},
		},
	},
}

// ageOrder fixes the generation order for age-derived items.
var ageOrder = []domain.AgeCategory{
	domain.AgeInfant,
	domain.AgeToddler,
	domain.AgeChild,
	domain.AgeTeen,
	domain.AgeAdult,
	domain.AgeElderly,
}

// householdCatalog adds items once per age category present among household
// members. Duplicate members of the same category do not duplicate items.
var householdCatalog = map[domain.AgeCategory][]augmentTemplate{
	domain.AgeInfant: {
		{category: "water-food", itemTemplate: itemTemplate{name: "Infant formula", recheckDays: 90}},
		{category: "hygiene", itemTemplate: itemTemplate{name: "Diapers", recheckDays: 90}},
		{category: "hygiene", itemTemplate: itemTemplate{name: "Baby wipes", recheckDays: 90}},
	},
	domain.AgeToddler: {
		{category: "water-food", itemTemplate: itemTemplate{name: "Toddler snacks", recheckDays: 90}},
		{category: "comfort", itemTemplate: itemTemplate{name: "Comfort toy", recheckDays: 365}},
	},
	domain.AgeChild: {
		{category: "comfort", itemTemplate: itemTemplate{name: "Activity books", recheckDays: 365}},
		{category: "documents", itemTemplate: itemTemplate{name: "Family contact card for children", recheckDays: 365}},
	},
	domain.AgeTeen: {
		{category: "tools", itemTemplate: itemTemplate{name: "Portable phone charger", recheckDays: 180}},
	},
	domain.AgeElderly: {
		{category: "first-aid", itemTemplate: itemTemplate{name: "Medication organiser", recheckDays: 90}},
		{category: "first-aid", itemTemplate: itemTemplate{name: "Spare reading glasses", recheckDays: 365}},
	},
}

// careCatalog adds items once per care flag present across the household.
var careCatalog = map[string][]augmentTemplate{
	"mobility": {
		{category: "tools", itemTemplate: itemTemplate{name: "Mobility aid spares", description: "Spare cane tip, walker parts", recheckDays: 180}},
	},
	"dietary": {
		{category: "water-food", itemTemplate: itemTemplate{name: "Special dietary food", description: "3 day supply matching dietary needs", recheckDays: 90}},
	},
	"medical": {
		{category: "first-aid", itemTemplate: itemTemplate{name: "Medical supplies", description: "Condition-specific consumables, 7 day supply", recheckDays: 90}},
	},
}

// specialNeedsCatalog maps profile disability and equipment codes to items,
// generated once per distinct code regardless of household size. Skills do
// not map to items.
var specialNeedsCatalog = map[string][]augmentTemplate{
	"blind": {
		{category: "documents", itemTemplate: itemTemplate{name: "Braille emergency information", recheckDays: 365}},
		{category: "tools", itemTemplate: itemTemplate{name: "Spare white cane", recheckDays: 365}},
	},
	"deaf": {
		{category: "tools", itemTemplate: itemTemplate{name: "Visual alert device", recheckDays: 180}},
		{category: "documents", itemTemplate: itemTemplate{name: "Pen and notepad", recheckDays: 365}},
	},
	"wheelchair": {
		{category: "tools", itemTemplate: itemTemplate{name: "Wheelchair patch kit", recheckDays: 180}},
		{category: "tools", itemTemplate: itemTemplate{name: "Heavy duty gloves", recheckDays: 365}},
	},
	"hearing_aid": {
		{category: "tools", itemTemplate: itemTemplate{name: "Hearing aid batteries", recheckDays: 90}},
	},
	"oxygen": {
		{category: "first-aid", itemTemplate: itemTemplate{name: "Backup oxygen supply", recheckDays: 90}},
	},
	"service_animal": {
		{category: "water-food", itemTemplate: itemTemplate{name: "Service animal food and water", recheckDays: 90}},
	},
}

// essentialNames is the fixed allow-list of template names assigned
// PriorityEssential, matched case-insensitively.
var essentialNames = map[string]struct{}{
	"bottled water":           {},
	"emergency food":          {},
	"first aid kit":           {},
	"prescription medication": {},
	"battery radio":           {},
}
