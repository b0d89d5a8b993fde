package pantry

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pantry-planner/internal/logger"
	"pantry-planner/internal/recipe"
	"pantry-planner/internal/storage"
)

// fakeFinder serves canned lists. A gate holds a lookup until it is closed.
type fakeFinder struct {
	mu    sync.Mutex
	lists map[string][]recipe.Summary
	errs  map[string]error
	gates map[string]chan struct{}
	calls []string
}

func newFakeFinder() *fakeFinder {
	return &fakeFinder{
		lists: map[string][]recipe.Summary{},
		errs:  map[string]error{},
		gates: map[string]chan struct{}{},
	}
}

func (f *fakeFinder) FindMealsByIngredient(ctx context.Context, name string) ([]recipe.Summary, error) {
	f.mu.Lock()
	f.calls = append(f.calls, name)
	gate := f.gates[name]
	list, err := f.lists[name], f.errs[name]
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return list, err
}

func (f *fakeFinder) called(name string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Contains(f.calls, name)
}

func meals(ids ...string) []recipe.Summary {
	out := make([]recipe.Summary, 0, len(ids))
	for _, id := range ids {
		out = append(out, recipe.Summary{ID: id, Name: "meal " + id})
	}
	return out
}

func ids(ms []recipe.Summary) []string {
	out := make([]string, 0, len(ms))
	for _, m := range ms {
		out = append(out, m.ID)
	}
	return out
}

type countingObserver struct {
	mu       sync.Mutex
	outcomes []string
}

func (c *countingObserver) ObserveIntersection(outcome string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.outcomes = append(c.outcomes, outcome)
}

func TestCompute(t *testing.T) {
	ctx := context.Background()

	t.Run("Intersection", func(t *testing.T) {
		f := newFakeFinder()
		f.lists["A"] = meals("1", "2", "3")
		f.lists["B"] = meals("2", "3", "4")
		e := NewEngine(f, logger.Nop(), nil)

		got, err := e.Compute(ctx, []string{"A", "B"})
		require.NoError(t, err)
		assert.Equal(t, []string{"2", "3"}, ids(got))

		st := e.State()
		assert.False(t, st.Loading)
		assert.NoError(t, st.Err)
		assert.Equal(t, []string{"A", "B"}, st.Selected)
		assert.Equal(t, []string{"2", "3"}, ids(st.Meals))
	})

	t.Run("OrderFollowsFirstListAndRecordsComeFromIt", func(t *testing.T) {
		f := newFakeFinder()
		f.lists["A"] = []recipe.Summary{{ID: "9", Name: "from A"}, {ID: "5", Name: "five"}}
		f.lists["B"] = []recipe.Summary{{ID: "5"}, {ID: "9", Name: "from B"}}
		e := NewEngine(f, logger.Nop(), nil)

		got, err := e.Compute(ctx, []string{"A", "B"})
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, recipe.Summary{ID: "9", Name: "from A"}, got[0])
		assert.Equal(t, "5", got[1].ID)
	})

	t.Run("NoMatchForOneIngredient", func(t *testing.T) {
		f := newFakeFinder()
		f.lists["A"] = meals("1")
		e := NewEngine(f, logger.Nop(), nil)

		got, err := e.Compute(ctx, []string{"A", "Unknown"})
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("EmptySelectionIssuesNoCalls", func(t *testing.T) {
		f := newFakeFinder()
		obs := &countingObserver{}
		e := NewEngine(f, logger.Nop(), obs)

		got, err := e.Compute(ctx, nil)
		require.NoError(t, err)
		assert.NotNil(t, got)
		assert.Empty(t, got)
		assert.Empty(t, f.calls)
		assert.Equal(t, []string{"empty"}, obs.outcomes)

		st := e.State()
		assert.False(t, st.Loading)
		assert.NoError(t, st.Err)
	})

	t.Run("EmptySelectionClearsError", func(t *testing.T) {
		f := newFakeFinder()
		f.errs["A"] = errors.New("boom")
		e := NewEngine(f, logger.Nop(), nil)

		_, err := e.Compute(ctx, []string{"A"})
		require.Error(t, err)
		require.Error(t, e.State().Err)

		_, err = e.Compute(ctx, []string{})
		require.NoError(t, err)
		assert.NoError(t, e.State().Err)
	})

	t.Run("AnyFailureFailsWhole", func(t *testing.T) {
		f := newFakeFinder()
		f.lists["A"] = meals("1", "2")
		f.errs["B"] = errors.New("network down")
		obs := &countingObserver{}
		e := NewEngine(f, logger.Nop(), obs)

		got, err := e.Compute(ctx, []string{"A", "B"})
		require.ErrorIs(t, err, ErrLoadFailed)
		assert.Nil(t, got)

		st := e.State()
		assert.False(t, st.Loading)
		assert.Empty(t, st.Meals)
		assert.ErrorIs(t, st.Err, ErrLoadFailed)
		assert.Equal(t, []string{"error"}, obs.outcomes)
	})

	t.Run("NamesPassedThroughUnchanged", func(t *testing.T) {
		f := newFakeFinder()
		e := NewEngine(f, logger.Nop(), nil)

		_, err := e.Compute(ctx, []string{" chicken Breast"})
		require.NoError(t, err)
		assert.Equal(t, []string{" chicken Breast"}, f.calls)
	})
}

func TestLoadingOnlyForCurrentGeneration(t *testing.T) {
	f := newFakeFinder()
	f.lists["A"] = meals("1")
	e := NewEngine(f, logger.Nop(), nil)

	var mu sync.Mutex
	var seen []State
	cancel := e.Subscribe(func(s State) {
		mu.Lock()
		seen = append(seen, s)
		mu.Unlock()
	})
	defer cancel()

	_, err := e.Compute(context.Background(), []string{"A"})
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, seen, 2)
	assert.True(t, seen[0].Loading)
	assert.False(t, seen[1].Loading)
	assert.Equal(t, []string{"1"}, ids(seen[1].Meals))
}

func TestStaleResultDiscarded(t *testing.T) {
	ctx := context.Background()

	run := func(t *testing.T, slowErr error) (*Engine, *countingObserver) {
		t.Helper()
		f := newFakeFinder()
		f.lists["Slow"] = meals("1", "2")
		f.errs["Slow"] = slowErr
		f.lists["Fast"] = meals("3")
		f.gates["Slow"] = make(chan struct{})
		obs := &countingObserver{}
		e := NewEngine(f, logger.Nop(), obs)

		staleErr := make(chan error, 1)
		go func() {
			_, err := e.Compute(ctx, []string{"Slow"})
			staleErr <- err
		}()
		require.Eventually(t, func() bool { return f.called("Slow") }, time.Second, 5*time.Millisecond)

		got, err := e.Compute(ctx, []string{"Fast"})
		require.NoError(t, err)
		assert.Equal(t, []string{"3"}, ids(got))

		close(f.gates["Slow"])
		require.ErrorIs(t, <-staleErr, ErrSuperseded)
		return e, obs
	}

	t.Run("Success", func(t *testing.T) {
		e, obs := run(t, nil)

		st := e.State()
		assert.Equal(t, []string{"Fast"}, st.Selected)
		assert.Equal(t, []string{"3"}, ids(st.Meals))
		assert.False(t, st.Loading)
		assert.Equal(t, uint64(2), st.Generation)
		assert.Contains(t, obs.outcomes, "superseded")
	})

	t.Run("Failure", func(t *testing.T) {
		e, obs := run(t, errors.New("catalog down"))

		st := e.State()
		assert.NoError(t, st.Err)
		assert.Equal(t, []string{"3"}, ids(st.Meals))
		assert.False(t, st.Loading)
		assert.Equal(t, []string{"ok", "superseded"}, obs.outcomes)
		assert.NotContains(t, obs.outcomes, "error")
	})
}

func TestSubscriberMayReadState(t *testing.T) {
	f := newFakeFinder()
	f.lists["A"] = meals("1", "2")
	f.lists["B"] = meals("2")
	e := NewEngine(f, logger.Nop(), nil)

	var mu sync.Mutex
	calls := 0
	cancel := e.Subscribe(func(State) {
		time.Sleep(time.Millisecond)
		_ = e.State()
		mu.Lock()
		calls++
		mu.Unlock()
	})

	done := make(chan struct{})
	go func() {
		defer close(done)
		var wg sync.WaitGroup
		for i := range 100 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				sel := []string{"A"}
				if i%2 == 1 {
					sel = []string{"A", "B"}
				}
				_, _ = e.Compute(context.Background(), sel)
			}()
		}
		wg.Wait()
		cancel()
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("concurrent computations with a reading subscriber did not finish")
	}

	st := e.State()
	assert.Equal(t, uint64(100), st.Generation)
	assert.False(t, st.Loading)

	mu.Lock()
	defer mu.Unlock()
	assert.Positive(t, calls)
}

func TestSelect(t *testing.T) {
	f := newFakeFinder()
	f.lists["Slow"] = meals("1")
	f.lists["Fast"] = meals("2")
	f.gates["Slow"] = make(chan struct{})
	e := NewEngine(f, logger.Nop(), nil)

	e.Select(context.Background(), []string{"Slow"})
	require.Eventually(t, func() bool { return f.called("Slow") }, time.Second, 5*time.Millisecond)
	assert.True(t, e.State().Loading)

	e.Select(context.Background(), []string{"Fast"})
	require.Eventually(t, func() bool {
		st := e.State()
		return st.Generation == 2 && !st.Loading
	}, time.Second, 5*time.Millisecond)

	assert.Equal(t, []string{"2"}, ids(e.State().Meals))
}

func TestSelection(t *testing.T) {
	store := storage.NewMemoryStore()
	sel := NewSelection(store, logger.Nop())

	t.Run("LoadEmpty", func(t *testing.T) {
		assert.Equal(t, []string{}, sel.Load())
	})

	t.Run("Toggle", func(t *testing.T) {
		assert.Equal(t, []string{"Garlic"}, sel.Toggle("Garlic"))
		assert.Equal(t, []string{"Garlic", "Rice"}, sel.Toggle("Rice"))
		assert.Equal(t, []string{"Rice"}, sel.Toggle("Garlic"))

		raw, ok := store.Read(SelectionKey)
		require.True(t, ok)
		assert.JSONEq(t, `["Rice"]`, raw)
	})

	t.Run("SetDropsDuplicatesAndBlanks", func(t *testing.T) {
		assert.Equal(t, []string{"Eggs", "Milk"}, sel.Set([]string{"Eggs", " ", "Milk", "Eggs"}))
	})

	t.Run("Clear", func(t *testing.T) {
		assert.Equal(t, []string{}, sel.Clear())
		assert.Equal(t, []string{}, sel.Load())
	})

	t.Run("CorruptDataIsEmpty", func(t *testing.T) {
		require.NoError(t, store.Write(SelectionKey, `{"not":"an array"}`))
		assert.Equal(t, []string{}, sel.Load())
	})

	t.Run("Subscribe", func(t *testing.T) {
		calls := 0
		cancel := sel.Subscribe(func() { calls++ })
		defer cancel()
		sel.Toggle("Basil")
		assert.Equal(t, 1, calls)
	})
}

func TestFilterIngredients(t *testing.T) {
	list := []recipe.Ingredient{{Name: "Chicken"}, {Name: "Chicken Breast"}, {Name: "Salmon"}}

	assert.Equal(t, list, FilterIngredients(list, "   "))
	assert.Equal(t, []recipe.Ingredient{{Name: "Chicken"}, {Name: "Chicken Breast"}}, FilterIngredients(list, "  CHICK "))
	assert.Empty(t, FilterIngredients(list, "tofu"))
}
