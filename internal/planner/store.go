package planner

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"

	"pantry-planner/internal/logger"
	"pantry-planner/internal/storage"
)

// MutationObserver counts plan changes by operation ("add", "remove").
type MutationObserver interface {
	ObservePlanMutation(op string)
}

// Store is the date-keyed meal plan. Each mutation reads the whole plan,
// changes it, and writes the whole plan back under PlanKey.
type Store struct {
	store storage.Store
	log   *logger.Logger
	obs   MutationObserver
}

// NewStore creates a plan store. obs may be nil.
func NewStore(store storage.Store, log *logger.Logger, obs MutationObserver) *Store {
	return &Store{store: store, log: log, obs: obs}
}

// Load returns the persisted plan. Missing or unparsable data is an empty plan.
func (s *Store) Load() Plan {
	raw, ok := s.store.Read(PlanKey)
	if !ok {
		return Plan{}
	}
	var p Plan
	if err := json.Unmarshal([]byte(raw), &p); err != nil || p == nil {
		if err != nil {
			s.log.Warn("ignoring corrupt meal plan", "error", err)
		}
		return Plan{}
	}
	return p
}

// Save replaces the persisted plan.
func (s *Store) Save(p Plan) error {
	if p == nil {
		p = Plan{}
	}
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to marshal meal plan: %w", err)
	}
	if err := s.store.Write(PlanKey, string(data)); err != nil {
		return fmt.Errorf("failed to save meal plan: %w", err)
	}
	return nil
}

// AddMeal appends m to date and returns the updated plan. A blank name or a
// duplicate (same catalog id, or same name ignoring case) leaves the plan
// unchanged and unsaved.
func (s *Store) AddMeal(date string, m NewMeal) Plan {
	plan := s.Load()

	name := strings.TrimSpace(m.Name)
	if name == "" {
		return plan
	}
	day := plan[date]
	if hasDuplicate(day, m.ID, name) {
		return plan
	}

	entryID := m.EntryID
	if entryID == "" {
		entryID = newEntryID()
	}

	plan[date] = append(slices.Clone(day), Entry{
		ID:        optional(m.ID),
		Name:      name,
		Thumbnail: optional(m.Thumbnail),
		EntryID:   entryID,
	})
	s.persist(plan)
	s.observe("add")
	return plan
}

// RemoveMeal drops the entry at index on date. An index outside the date's
// entries removes nothing. A date left without entries is deleted. The plan
// is saved in every case.
func (s *Store) RemoveMeal(date string, index int) Plan {
	plan := s.Load()

	day := plan[date]
	if index >= 0 && index < len(day) {
		day = slices.Delete(slices.Clone(day), index, index+1)
		s.observe("remove")
	}
	if len(day) == 0 {
		delete(plan, date)
	} else {
		plan[date] = day
	}
	s.persist(plan)
	return plan
}

// Subscribe calls fn whenever the persisted plan changes.
func (s *Store) Subscribe(fn func()) (cancel func()) {
	return s.store.Subscribe(PlanKey, fn)
}

func (s *Store) persist(p Plan) {
	if err := s.Save(p); err != nil {
		s.log.Warn("failed to persist meal plan", "error", err)
	}
}

func (s *Store) observe(op string) {
	if s.obs != nil {
		s.obs.ObservePlanMutation(op)
	}
}

// newEntryID returns a time-ordered UUID (timestamp plus random bits).
func newEntryID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
