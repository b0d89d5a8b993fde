package pantry

import (
	"encoding/json"
	"slices"
	"strings"

	"pantry-planner/internal/logger"
	"pantry-planner/internal/recipe"
	"pantry-planner/internal/storage"
)

// SelectionKey is the storage key of the persisted ingredient selection.
const SelectionKey = "pantrySelected"

// Selection is the user's persisted list of checked pantry ingredients.
type Selection struct {
	store storage.Store
	log   *logger.Logger
}

// NewSelection reads and writes the selection under SelectionKey in store.
func NewSelection(store storage.Store, log *logger.Logger) *Selection {
	return &Selection{store: store, log: log}
}

// Load returns the saved selection, or an empty one when nothing valid is stored.
func (s *Selection) Load() []string {
	raw, ok := s.store.Read(SelectionKey)
	if !ok {
		return []string{}
	}
	var names []string
	if err := json.Unmarshal([]byte(raw), &names); err != nil || names == nil {
		return []string{}
	}
	return names
}

// Toggle removes name if selected, otherwise appends it.
func (s *Selection) Toggle(name string) []string {
	current := s.Load()
	if i := slices.Index(current, name); i >= 0 {
		current = slices.Delete(current, i, i+1)
	} else {
		current = append(current, name)
	}
	return s.Set(current)
}

// Set replaces the selection with Normalize(names).
func (s *Selection) Set(names []string) []string {
	next := Normalize(names)
	s.save(next)
	return next
}

// Normalize drops duplicates and blank names, keeping first-seen order.
func Normalize(names []string) []string {
	next := make([]string, 0, len(names))
	for _, n := range names {
		if strings.TrimSpace(n) == "" || slices.Contains(next, n) {
			continue
		}
		next = append(next, n)
	}
	return next
}

// Clear empties the selection.
func (s *Selection) Clear() []string {
	return s.Set(nil)
}

// Subscribe calls fn whenever the persisted selection changes.
func (s *Selection) Subscribe(fn func()) (cancel func()) {
	return s.store.Subscribe(SelectionKey, fn)
}

func (s *Selection) save(names []string) {
	data, err := json.Marshal(names)
	if err != nil {
		s.log.Error("failed to marshal pantry selection", "error", err)
		return
	}
	if err := s.store.Write(SelectionKey, string(data)); err != nil {
		s.log.Warn("failed to persist pantry selection", "error", err)
	}
}

// FilterIngredients returns the ingredients whose name contains query,
// compared case-insensitively after trimming. A blank query returns list.
func FilterIngredients(list []recipe.Ingredient, query string) []recipe.Ingredient {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return list
	}
	var out []recipe.Ingredient
	for _, ing := range list {
		if strings.Contains(strings.ToLower(ing.Name), q) {
			out = append(out, ing)
		}
	}
	return out
}
