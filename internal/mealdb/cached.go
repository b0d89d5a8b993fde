package mealdb

import (
	"context"
	"sync"
	"time"

	"pantry-planner/internal/logger"
	"pantry-planner/internal/recipe"
)

// CachedClient keeps full meal records in the SQLite meal cache and the
// ingredient listing in memory. Ingredient filters always go to the catalog.
type CachedClient struct {
	Client
	repo   *recipe.Repository
	log    *logger.Logger
	maxAge time.Duration

	mu            sync.Mutex
	ingredients   []recipe.Ingredient
	ingredientsAt time.Time
}

func NewCachedClient(inner Client, repo *recipe.Repository, log *logger.Logger, maxAge time.Duration) *CachedClient {
	return &CachedClient{Client: inner, repo: repo, log: log, maxAge: maxAge}
}

func (c *CachedClient) ListIngredients(ctx context.Context) ([]recipe.Ingredient, error) {
	c.mu.Lock()
	if c.ingredients != nil && time.Since(c.ingredientsAt) < c.maxAge {
		list := c.ingredients
		c.mu.Unlock()
		return list, nil
	}
	c.mu.Unlock()

	list, err := c.Client.ListIngredients(ctx)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.ingredients = list
	c.ingredientsAt = time.Now()
	c.mu.Unlock()
	return list, nil
}

func (c *CachedClient) FindMealByID(ctx context.Context, id string) (*recipe.Meal, error) {
	cached, err := c.repo.Get(ctx, id, c.maxAge)
	if err != nil {
		c.log.Warn("meal cache read failed", "id", id, "error", err)
	} else if cached != nil {
		return cached, nil
	}

	m, err := c.Client.FindMealByID(ctx, id)
	if err != nil {
		return nil, err
	}
	c.store(ctx, *m)
	return m, nil
}

func (c *CachedClient) SearchMeals(ctx context.Context, name string) ([]recipe.Meal, error) {
	meals, err := c.Client.SearchMeals(ctx, name)
	if err != nil {
		return nil, err
	}
	for _, m := range meals {
		c.store(ctx, m)
	}
	return meals, nil
}

func (c *CachedClient) store(ctx context.Context, m recipe.Meal) {
	if err := c.repo.Save(ctx, m); err != nil {
		c.log.Warn("meal cache write failed", "id", m.ID, "error", err)
	}
}
