// Package pantry computes which meals can be cooked from a set of pantry
// ingredients and keeps the user's ingredient selection.
package pantry

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"golang.org/x/sync/errgroup"

	"pantry-planner/internal/logger"
	"pantry-planner/internal/recipe"
)

var (
	// ErrSuperseded is returned by Compute when a newer selection was
	// dispatched before this one settled. Its result was discarded.
	ErrSuperseded = errors.New("selection superseded")

	// ErrLoadFailed wraps any catalog failure during a computation.
	ErrLoadFailed = errors.New("failed to load meals for selected ingredients")
)

// Finder is the part of the catalog the engine depends on.
type Finder interface {
	FindMealsByIngredient(ctx context.Context, ingredient string) ([]recipe.Summary, error)
}

// Observer is told how each computation ended: "ok", "empty", "error" or "superseded".
type Observer interface {
	ObserveIntersection(outcome string)
}

// State is the published view of the engine.
type State struct {
	Selected   []string
	Meals      []recipe.Summary
	Loading    bool
	Err        error
	Generation uint64
}

// Engine intersects per-ingredient catalog results. Every call to Compute
// starts a new generation; only the latest generation may change State.
type Engine struct {
	finder Finder
	log    *logger.Logger
	obs    Observer

	mu       sync.Mutex
	state    State
	cancelBg context.CancelFunc

	// seq numbers snapshots under mu; delivered is the newest handed out.
	seq uint64

	pubMu     sync.Mutex
	subs      map[int]func(State)
	nextID    int
	delivered uint64
}

// NewEngine creates an engine. obs may be nil.
func NewEngine(finder Finder, log *logger.Logger, obs Observer) *Engine {
	return &Engine{
		finder: finder,
		log:    log,
		obs:    obs,
		state:  State{Meals: []recipe.Summary{}},
		subs:   make(map[int]func(State)),
	}
}

// Compute fetches the meals for every selected ingredient concurrently and
// returns the meals present in all of them, in the order of the first
// ingredient's list. Ingredient names are passed to the catalog unchanged.
func (e *Engine) Compute(ctx context.Context, selected []string) ([]recipe.Summary, error) {
	selected = slices.Clone(selected)

	e.mu.Lock()
	e.state.Generation++
	gen := e.state.Generation
	e.state.Selected = selected
	e.state.Err = nil
	if len(selected) == 0 {
		e.state.Meals = []recipe.Summary{}
		e.state.Loading = false
		e.publishLocked()
		e.observe("empty")
		return []recipe.Summary{}, nil
	}
	e.state.Loading = true
	e.publishLocked()

	lists, err := e.fetchAll(ctx, selected)
	var meals []recipe.Summary
	if err == nil {
		meals = intersect(lists)
	}

	e.mu.Lock()
	if e.state.Generation != gen {
		e.mu.Unlock()
		e.log.Debug("discarding stale intersection", "generation", gen, "selected", selected)
		e.observe("superseded")
		return nil, ErrSuperseded
	}
	e.state.Loading = false
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrLoadFailed, err)
		e.state.Meals = []recipe.Summary{}
		e.state.Err = err
		e.publishLocked()
		e.log.Warn("intersection failed", "selected", selected, "error", err)
		e.observe("error")
		return nil, err
	}
	e.state.Meals = meals
	e.publishLocked()
	e.observe("ok")
	return slices.Clone(meals), nil
}

// fetchAll runs one catalog lookup per ingredient. The first failure cancels
// the rest and fails the whole computation.
func (e *Engine) fetchAll(ctx context.Context, selected []string) ([][]recipe.Summary, error) {
	lists := make([][]recipe.Summary, len(selected))
	g, gctx := errgroup.WithContext(ctx)
	for i, name := range selected {
		g.Go(func() error {
			meals, err := e.finder.FindMealsByIngredient(gctx, name)
			if err != nil {
				return err
			}
			lists[i] = meals
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return lists, nil
}

// intersect keeps ids present in every list. Position follows the first
// list; the record is the first list's (last occurrence on duplicate ids).
func intersect(lists [][]recipe.Summary) []recipe.Summary {
	first := lists[0]
	order := make([]string, 0, len(first))
	byID := make(map[string]recipe.Summary, len(first))
	for _, m := range first {
		if _, seen := byID[m.ID]; !seen {
			order = append(order, m.ID)
		}
		byID[m.ID] = m
	}

	sets := make([]map[string]struct{}, 0, len(lists)-1)
	for _, list := range lists[1:] {
		set := make(map[string]struct{}, len(list))
		for _, m := range list {
			set[m.ID] = struct{}{}
		}
		sets = append(sets, set)
	}

	result := []recipe.Summary{}
outer:
	for _, id := range order {
		for _, set := range sets {
			if _, ok := set[id]; !ok {
				continue outer
			}
		}
		result = append(result, byID[id])
	}
	return result
}

// Select starts a computation in the background and returns immediately.
// The previous background computation's context is cancelled.
func (e *Engine) Select(ctx context.Context, selected []string) {
	bg, cancel := context.WithCancel(ctx)

	e.mu.Lock()
	if e.cancelBg != nil {
		e.cancelBg()
	}
	e.cancelBg = cancel
	e.mu.Unlock()

	go func() {
		if _, err := e.Compute(bg, selected); err != nil && !errors.Is(err, ErrSuperseded) {
			e.log.Debug("background intersection failed", "error", err)
		}
	}()
}

// State returns a snapshot of the published state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

// Subscribe registers fn for state changes. fn runs with no engine lock held
// and may call State. A snapshot older than one already delivered is
// dropped, so subscribers never see the state go backwards; concurrent
// deliveries may still overlap, so compare Generation when it matters.
func (e *Engine) Subscribe(fn func(State)) (cancel func()) {
	e.pubMu.Lock()
	defer e.pubMu.Unlock()

	id := e.nextID
	e.nextID++
	e.subs[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			e.pubMu.Lock()
			delete(e.subs, id)
			e.pubMu.Unlock()
		})
	}
}

func (e *Engine) snapshotLocked() State {
	s := e.state
	s.Selected = slices.Clone(s.Selected)
	s.Meals = slices.Clone(s.Meals)
	return s
}

// publishLocked must be called with mu held. It releases mu, then hands the
// snapshot to a copy of the subscriber list with no lock held.
func (e *Engine) publishLocked() {
	e.seq++
	seq := e.seq
	snap := e.snapshotLocked()
	e.mu.Unlock()

	e.pubMu.Lock()
	if seq < e.delivered {
		e.pubMu.Unlock()
		return
	}
	e.delivered = seq
	subs := make([]func(State), 0, len(e.subs))
	for _, fn := range e.subs {
		subs = append(subs, fn)
	}
	e.pubMu.Unlock()

	for _, fn := range subs {
		fn(snap)
	}
}

func (e *Engine) observe(outcome string) {
	if e.obs != nil {
		e.obs.ObserveIntersection(outcome)
	}
}
