// Package likes keeps the user's set of bookmarked meals.
package likes

import (
	"encoding/json"
	"slices"

	"pantry-planner/internal/logger"
	"pantry-planner/internal/recipe"
	"pantry-planner/internal/storage"
)

// Key is the storage key of the liked set.
const Key = "likedMeals"

// Meal is the liked-meal record: at most one per ID.
type Meal struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Thumbnail string `json:"thumbnail"`
}

// FromSummary projects a catalog summary to a liked record.
func FromSummary(s recipe.Summary) Meal {
	return Meal{ID: s.ID, Name: s.Name, Thumbnail: s.Thumbnail}
}

// Store reads and writes the liked set through a storage.Store. Each
// operation is a full read-modify-write of Key.
type Store struct {
	store storage.Store
	log   *logger.Logger
	obs   MutationObserver
}

// MutationObserver counts likes and unlikes.
type MutationObserver interface {
	ObserveLikeToggle(liked bool)
}

// NewStore creates a liked-meals store. obs may be nil.
func NewStore(store storage.Store, log *logger.Logger, obs MutationObserver) *Store {
	return &Store{store: store, log: log, obs: obs}
}

// GetAll returns the liked meals in insertion order. Missing or corrupt
// data reads as an empty set.
func (s *Store) GetAll() []Meal {
	raw, ok := s.store.Read(Key)
	if !ok {
		return []Meal{}
	}
	var meals []Meal
	if err := json.Unmarshal([]byte(raw), &meals); err != nil || meals == nil {
		if err != nil {
			s.log.Warn("ignoring corrupt liked meals", "error", err)
		}
		return []Meal{}
	}
	return meals
}

func (s *Store) IsLiked(id string) bool {
	return slices.ContainsFunc(s.GetAll(), func(m Meal) bool { return m.ID == id })
}

// Toggle unlikes m if its ID is liked, otherwise likes it, and returns the
// new liked state. The updated set is persisted before returning.
func (s *Store) Toggle(m Meal) bool {
	current := s.GetAll()
	exists := slices.ContainsFunc(current, func(x Meal) bool { return x.ID == m.ID })

	var next []Meal
	if exists {
		next = slices.DeleteFunc(current, func(x Meal) bool { return x.ID == m.ID })
	} else {
		next = append(current, Meal{ID: m.ID, Name: m.Name, Thumbnail: m.Thumbnail})
	}
	s.save(next)

	if s.obs != nil {
		s.obs.ObserveLikeToggle(!exists)
	}
	return !exists
}

// Subscribe calls fn whenever the persisted set changes.
func (s *Store) Subscribe(fn func()) (cancel func()) {
	return s.store.Subscribe(Key, fn)
}

func (s *Store) save(meals []Meal) {
	data, err := json.Marshal(meals)
	if err != nil {
		s.log.Error("failed to marshal liked meals", "error", err)
		return
	}
	if err := s.store.Write(Key, string(data)); err != nil {
		s.log.Warn("failed to persist liked meals", "error", err)
	}
}
