package planner

import (
	"maps"
	"slices"
	"strings"

	"pantry-planner/internal/likes"
)

// PlanKey is the storage key of the meal plan.
const PlanKey = "mealPlan"

// Entry is one planned meal on a date. ID and Thumbnail are nil for meals
// added by hand without a catalog record.
type Entry struct {
	ID        *string `json:"id"`
	Name      string  `json:"name"`
	Thumbnail *string `json:"thumbnail"`
	EntryID   string  `json:"entryId"`
}

// Plan maps an ISO date (YYYY-MM-DD) to its entries in add order.
// Dates without entries are absent.
type Plan map[string][]Entry

// NewMeal is the input to AddMeal. Empty ID and Thumbnail mean "none".
// A non-empty EntryID is kept instead of generating one.
type NewMeal struct {
	ID        string
	Name      string
	Thumbnail string
	EntryID   string
}

// FromLiked builds the quick-add input for a liked meal.
func FromLiked(m likes.Meal) NewMeal {
	return NewMeal{ID: m.ID, Name: m.Name, Thumbnail: m.Thumbnail}
}

// Dates returns the planned dates in ascending order.
func (p Plan) Dates() []string {
	return slices.Sorted(maps.Keys(p))
}

// Clone copies the plan deeply enough that mutating the copy's slices
// leaves p untouched.
func (p Plan) Clone() Plan {
	out := make(Plan, len(p))
	for date, entries := range p {
		out[date] = slices.Clone(entries)
	}
	return out
}

// hasDuplicate reports whether day already holds a meal with the same
// catalog id, or with the same name ignoring case.
func hasDuplicate(day []Entry, id, name string) bool {
	for _, e := range day {
		if id != "" && e.ID != nil && *e.ID == id {
			return true
		}
		if e.Name != "" && strings.EqualFold(e.Name, name) {
			return true
		}
	}
	return false
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
