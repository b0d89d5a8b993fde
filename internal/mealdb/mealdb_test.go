package mealdb

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pantry-planner/internal/database"
	"pantry-planner/internal/logger"
	"pantry-planner/internal/recipe"
)

const lookupBody = `{"meals":[{
	"idMeal":"52772","strMeal":"Teriyaki Chicken Casserole","strCategory":"Chicken","strArea":"Japanese",
	"strInstructions":"Preheat oven to 350.","strMealThumb":"https://example.com/t.jpg","strTags":"Meat, Casserole",
	"strYoutube":"https://www.youtube.com/watch?v=4aZr5hZXP_s","strSource":"https://example.com/source",
	"strIngredient1":"soy sauce","strMeasure1":"3/4 cup",
	"strIngredient2":"water","strMeasure2":"1/2 cup",
	"strIngredient3":"","strMeasure3":" ",
	"strIngredient20":null,"strMeasure20":null
}]}`

func newCatalog(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return server
}

func TestListIngredients(t *testing.T) {
	server := newCatalog(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/list.php", r.URL.Path)
		assert.Equal(t, "list", r.URL.Query().Get("i"))
		fmt.Fprint(w, `{"meals":[{"idIngredient":"1","strIngredient":"Chicken","strDescription":"Bird","strType":null},{"idIngredient":"2","strIngredient":"Salmon","strDescription":null,"strType":"Fish"}]}`)
	})

	list, err := NewClient(server.URL).ListIngredients(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []recipe.Ingredient{
		{ID: "1", Name: "Chicken", Description: "Bird"},
		{ID: "2", Name: "Salmon", Type: "Fish"},
	}, list)
}

func TestFindMealsByIngredient(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		server := newCatalog(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/filter.php", r.URL.Path)
			assert.Equal(t, "chicken breast", r.URL.Query().Get("i"))
			fmt.Fprint(w, `{"meals":[{"strMeal":"Brown Stew Chicken","strMealThumb":"https://example.com/b.jpg","idMeal":"52940"}]}`)
		})

		meals, err := NewClient(server.URL).FindMealsByIngredient(context.Background(), "chicken breast")
		require.NoError(t, err)
		assert.Equal(t, []recipe.Summary{{ID: "52940", Name: "Brown Stew Chicken", Thumbnail: "https://example.com/b.jpg"}}, meals)
	})

	t.Run("NullMealsIsEmpty", func(t *testing.T) {
		server := newCatalog(t, func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"meals":null}`)
		})

		meals, err := NewClient(server.URL).FindMealsByIngredient(context.Background(), "unobtainium")
		require.NoError(t, err)
		assert.Empty(t, meals)
	})

	t.Run("ServerError", func(t *testing.T) {
		server := newCatalog(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		})

		_, err := NewClient(server.URL).FindMealsByIngredient(context.Background(), "Garlic")
		require.Error(t, err)
	})

	t.Run("MalformedJSON", func(t *testing.T) {
		server := newCatalog(t, func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"meals":[`)
		})

		_, err := NewClient(server.URL).FindMealsByIngredient(context.Background(), "Garlic")
		require.Error(t, err)
	})
}

func TestFindMealByID(t *testing.T) {
	t.Run("FillsFixedIngredientSlots", func(t *testing.T) {
		server := newCatalog(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "52772", r.URL.Query().Get("i"))
			fmt.Fprint(w, lookupBody)
		})

		m, err := NewClient(server.URL).FindMealByID(context.Background(), "52772")
		require.NoError(t, err)
		assert.Equal(t, "Teriyaki Chicken Casserole", m.Name)
		assert.Equal(t, []string{"Meat", "Casserole"}, m.Tags)
		assert.Equal(t, "https://example.com/source", m.Source)
		assert.Equal(t, recipe.IngredientMeasure{Name: "soy sauce", Measure: "3/4 cup"}, m.Ingredients[0])
		assert.Equal(t, recipe.IngredientMeasure{}, m.Ingredients[2])
		assert.Len(t, m.UsedIngredients(), 2)
	})

	t.Run("NotFound", func(t *testing.T) {
		server := newCatalog(t, func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"meals":null}`)
		})

		_, err := NewClient(server.URL).FindMealByID(context.Background(), "0")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestCachedClient(t *testing.T) {
	ctx := context.Background()
	var lookups, lists atomic.Int32
	server := newCatalog(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/lookup.php":
			lookups.Add(1)
			fmt.Fprint(w, lookupBody)
		case "/list.php":
			lists.Add(1)
			fmt.Fprint(w, `{"meals":[{"idIngredient":"1","strIngredient":"Chicken"}]}`)
		case "/search.php":
			fmt.Fprint(w, lookupBody)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	db, err := database.NewDB(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	defer db.Close()

	repo := recipe.NewRepository(db.SQL)
	client := NewCachedClient(NewClient(server.URL), repo, logger.Nop(), time.Hour)

	t.Run("LookupHitsCatalogOnce", func(t *testing.T) {
		for range 3 {
			m, err := client.FindMealByID(ctx, "52772")
			require.NoError(t, err)
			assert.Equal(t, "52772", m.ID)
		}
		assert.Equal(t, int32(1), lookups.Load())
	})

	t.Run("IngredientListCachedInMemory", func(t *testing.T) {
		for range 2 {
			list, err := client.ListIngredients(ctx)
			require.NoError(t, err)
			assert.Len(t, list, 1)
		}
		assert.Equal(t, int32(1), lists.Load())
	})

	t.Run("SearchWritesThrough", func(t *testing.T) {
		_, err := db.SQL.Exec(`DELETE FROM meals`)
		require.NoError(t, err)

		meals, err := client.SearchMeals(ctx, "teriyaki")
		require.NoError(t, err)
		require.Len(t, meals, 1)

		cached, err := repo.Get(ctx, "52772", 0)
		require.NoError(t, err)
		require.NotNil(t, cached)
	})
}

type recordingObserver struct {
	ops  []string
	errs int
}

func (r *recordingObserver) ObserveCatalogRequest(op string, _ time.Duration, err error) {
	r.ops = append(r.ops, op)
	if err != nil {
		r.errs++
	}
}

func TestWithObserver(t *testing.T) {
	server := newCatalog(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/lookup.php" {
			fmt.Fprint(w, `{"meals":null}`)
			return
		}
		fmt.Fprint(w, `{"meals":[]}`)
	})

	obs := &recordingObserver{}
	client := WithObserver(NewClient(server.URL), obs)

	_, err := client.FindMealsByIngredient(context.Background(), "Garlic")
	require.NoError(t, err)
	_, err = client.FindMealByID(context.Background(), "1")
	require.True(t, errors.Is(err, ErrNotFound))

	assert.Equal(t, []string{"filter_by_ingredient", "lookup"}, obs.ops)
	assert.Equal(t, 1, obs.errs)
}
