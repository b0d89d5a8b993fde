// Package mealdb talks to a TheMealDB-compatible recipe catalog.
package mealdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"pantry-planner/internal/recipe"
)

// ErrNotFound is returned by FindMealByID when the catalog has no such meal.
var ErrNotFound = errors.New("meal not found")

// Client is the recipe catalog collaborator.
type Client interface {
	ListIngredients(ctx context.Context) ([]recipe.Ingredient, error)
	// FindMealsByIngredient returns an empty list when nothing matches.
	FindMealsByIngredient(ctx context.Context, ingredient string) ([]recipe.Summary, error)
	FindMealByID(ctx context.Context, id string) (*recipe.Meal, error)
	SearchMeals(ctx context.Context, name string) ([]recipe.Meal, error)
}

// httpClient is the concrete implementation of the catalog client.
type httpClient struct {
	httpClient *http.Client
	baseURL    string
}

// NewClient creates a catalog client rooted at baseURL
// (e.g. https://www.themealdb.com/api/json/v1/1).
func NewClient(baseURL string) Client {
	return &httpClient{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
}

// mealsResponse is the envelope of every catalog endpoint; "meals" is null
// when nothing matches.
type mealsResponse[T any] struct {
	Meals []T `json:"meals"`
}

type rawIngredient struct {
	ID          string  `json:"idIngredient"`
	Name        string  `json:"strIngredient"`
	Description *string `json:"strDescription"`
	Type        *string `json:"strType"`
}

type rawSummary struct {
	ID        string `json:"idMeal"`
	Name      string `json:"strMeal"`
	Thumbnail string `json:"strMealThumb"`
}

func (c *httpClient) ListIngredients(ctx context.Context) ([]recipe.Ingredient, error) {
	var resp mealsResponse[rawIngredient]
	if err := c.get(ctx, "list.php", url.Values{"i": {"list"}}, &resp); err != nil {
		return nil, fmt.Errorf("failed to list ingredients: %w", err)
	}

	ingredients := make([]recipe.Ingredient, 0, len(resp.Meals))
	for _, raw := range resp.Meals {
		ingredients = append(ingredients, recipe.Ingredient{
			ID:          raw.ID,
			Name:        raw.Name,
			Description: deref(raw.Description),
			Type:        deref(raw.Type),
		})
	}
	return ingredients, nil
}

func (c *httpClient) FindMealsByIngredient(ctx context.Context, ingredient string) ([]recipe.Summary, error) {
	var resp mealsResponse[rawSummary]
	if err := c.get(ctx, "filter.php", url.Values{"i": {ingredient}}, &resp); err != nil {
		return nil, fmt.Errorf("failed to find meals for %q: %w", ingredient, err)
	}

	meals := make([]recipe.Summary, 0, len(resp.Meals))
	for _, raw := range resp.Meals {
		meals = append(meals, recipe.Summary{ID: raw.ID, Name: raw.Name, Thumbnail: raw.Thumbnail})
	}
	return meals, nil
}

func (c *httpClient) FindMealByID(ctx context.Context, id string) (*recipe.Meal, error) {
	var resp mealsResponse[map[string]any]
	if err := c.get(ctx, "lookup.php", url.Values{"i": {id}}, &resp); err != nil {
		return nil, fmt.Errorf("failed to look up meal %s: %w", id, err)
	}
	if len(resp.Meals) == 0 {
		return nil, ErrNotFound
	}

	m := toMeal(resp.Meals[0])
	return &m, nil
}

func (c *httpClient) SearchMeals(ctx context.Context, name string) ([]recipe.Meal, error) {
	var resp mealsResponse[map[string]any]
	if err := c.get(ctx, "search.php", url.Values{"s": {name}}, &resp); err != nil {
		return nil, fmt.Errorf("failed to search meals for %q: %w", name, err)
	}

	meals := make([]recipe.Meal, 0, len(resp.Meals))
	for _, raw := range resp.Meals {
		meals = append(meals, toMeal(raw))
	}
	return meals, nil
}

func (c *httpClient) get(ctx context.Context, endpoint string, query url.Values, out any) error {
	u := fmt.Sprintf("%s/%s?%s", c.baseURL, endpoint, query.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("catalog api error: status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// toMeal maps the catalog's flat record onto recipe.Meal. The numbered
// strIngredientN/strMeasureN fields are read here and nowhere else.
func toMeal(raw map[string]any) recipe.Meal {
	m := recipe.Meal{
		ID:           str(raw["idMeal"]),
		Name:         str(raw["strMeal"]),
		Category:     str(raw["strCategory"]),
		Area:         str(raw["strArea"]),
		Instructions: str(raw["strInstructions"]),
		Thumbnail:    str(raw["strMealThumb"]),
		YouTube:      str(raw["strYoutube"]),
		Source:       str(raw["strSource"]),
	}
	for _, tag := range strings.Split(str(raw["strTags"]), ",") {
		if tag = strings.TrimSpace(tag); tag != "" {
			m.Tags = append(m.Tags, tag)
		}
	}
	for i := range recipe.MaxIngredients {
		m.Ingredients[i] = recipe.IngredientMeasure{
			Name:    strings.TrimSpace(str(raw[fmt.Sprintf("strIngredient%d", i+1)])),
			Measure: strings.TrimSpace(str(raw[fmt.Sprintf("strMeasure%d", i+1)])),
		}
	}
	return m
}

func str(v any) string {
	s, _ := v.(string)
	return s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
