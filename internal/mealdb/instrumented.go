package mealdb

import (
	"context"
	"time"

	"pantry-planner/internal/recipe"
)

// RequestObserver receives the outcome of every catalog call.
type RequestObserver interface {
	ObserveCatalogRequest(operation string, elapsed time.Duration, err error)
}

type instrumented struct {
	inner Client
	obs   RequestObserver
}

// WithObserver reports each call made through inner to obs.
func WithObserver(inner Client, obs RequestObserver) Client {
	return &instrumented{inner: inner, obs: obs}
}

func (i *instrumented) ListIngredients(ctx context.Context) ([]recipe.Ingredient, error) {
	start := time.Now()
	list, err := i.inner.ListIngredients(ctx)
	i.obs.ObserveCatalogRequest("list_ingredients", time.Since(start), err)
	return list, err
}

func (i *instrumented) FindMealsByIngredient(ctx context.Context, ingredient string) ([]recipe.Summary, error) {
	start := time.Now()
	meals, err := i.inner.FindMealsByIngredient(ctx, ingredient)
	i.obs.ObserveCatalogRequest("filter_by_ingredient", time.Since(start), err)
	return meals, err
}

func (i *instrumented) FindMealByID(ctx context.Context, id string) (*recipe.Meal, error) {
	start := time.Now()
	m, err := i.inner.FindMealByID(ctx, id)
	i.obs.ObserveCatalogRequest("lookup", time.Since(start), err)
	return m, err
}

func (i *instrumented) SearchMeals(ctx context.Context, name string) ([]recipe.Meal, error) {
	start := time.Now()
	meals, err := i.inner.SearchMeals(ctx, name)
	i.obs.ObserveCatalogRequest("search", time.Since(start), err)
	return meals, err
}
