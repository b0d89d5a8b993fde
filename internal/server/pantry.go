package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"pantry-planner/internal/mealdb"
	"pantry-planner/internal/pantry"
	"pantry-planner/internal/recipe"
)

func (s *Server) handleIngredients(w http.ResponseWriter, r *http.Request) {
	list, err := s.app.Catalog().ListIngredients(r.Context())
	if err != nil {
		s.log.Warn("failed to list ingredients", "error", err)
		s.writeError(w, http.StatusBadGateway, "failed to load ingredients")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"ingredients": pantry.FilterIngredients(list, r.URL.Query().Get("q")),
	})
}

type pantryResponse struct {
	Selected []string         `json:"selected"`
	Meals    []recipe.Summary `json:"meals"`
	Error    string           `json:"error,omitempty"`
}

// writePantry reports the outcome of a computation for selected.
func (s *Server) writePantry(w http.ResponseWriter, selected []string, meals []recipe.Summary, err error) {
	resp := pantryResponse{Selected: selected, Meals: meals}
	if resp.Meals == nil {
		resp.Meals = []recipe.Summary{}
	}
	switch {
	case errors.Is(err, pantry.ErrSuperseded):
		resp.Error = err.Error()
		s.writeJSON(w, http.StatusConflict, resp)
	case err != nil:
		resp.Error = pantry.ErrLoadFailed.Error()
		s.writeJSON(w, http.StatusBadGateway, resp)
	default:
		s.writeJSON(w, http.StatusOK, resp)
	}
}

func (s *Server) handleGetPantry(w http.ResponseWriter, r *http.Request) {
	selected, meals, err := s.workspace(r).Candidates(r.Context())
	s.writePantry(w, selected, meals, err)
}

type putPantryRequest struct {
	Ingredients []string `json:"ingredients" validate:"max=100"`
}

func (s *Server) handlePutPantry(w http.ResponseWriter, r *http.Request) {
	var req putPantryRequest
	if err := s.decode(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "ingredients must be a list of at most 100 names")
		return
	}

	selected := pantry.Normalize(req.Ingredients)
	meals, err := s.workspace(r).UpdatePantry(r.Context(), selected)
	s.writePantry(w, selected, meals, err)
}

func (s *Server) handleClearPantry(w http.ResponseWriter, r *http.Request) {
	meals, err := s.workspace(r).UpdatePantry(r.Context(), nil)
	s.writePantry(w, []string{}, meals, err)
}

type togglePantryRequest struct {
	Ingredient string `json:"ingredient" validate:"required"`
}

func (s *Server) handleTogglePantry(w http.ResponseWriter, r *http.Request) {
	var req togglePantryRequest
	if err := s.decode(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "missing ingredient")
		return
	}

	selected, meals, err := s.workspace(r).TogglePantry(r.Context(), req.Ingredient)
	s.writePantry(w, selected, meals, err)
}

func (s *Server) handleSearchMeals(w http.ResponseWriter, r *http.Request) {
	term := strings.TrimSpace(r.URL.Query().Get("s"))
	if term == "" {
		s.writeError(w, http.StatusBadRequest, "missing search term")
		return
	}

	meals, err := s.app.Catalog().SearchMeals(r.Context(), term)
	if err != nil {
		s.log.Warn("meal search failed", "term", term, "error", err)
		s.writeError(w, http.StatusBadGateway, "failed to search meals")
		return
	}
	summaries := make([]recipe.Summary, 0, len(meals))
	for _, m := range meals {
		summaries = append(summaries, m.Summary())
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"meals": summaries})
}

// lookupMeal writes the error response itself and returns nil on failure.
func (s *Server) lookupMeal(w http.ResponseWriter, r *http.Request) *recipe.Meal {
	id := chi.URLParam(r, "id")
	meal, err := s.app.Catalog().FindMealByID(r.Context(), id)
	switch {
	case errors.Is(err, mealdb.ErrNotFound):
		s.writeError(w, http.StatusNotFound, "meal not found")
		return nil
	case err != nil:
		s.log.Warn("meal lookup failed", "id", id, "error", err)
		s.writeError(w, http.StatusBadGateway, "failed to load meal")
		return nil
	}
	return meal
}

type mealResponse struct {
	Meal        *recipe.Meal               `json:"meal"`
	Ingredients []recipe.IngredientMeasure `json:"ingredients"`
	Steps       []string                   `json:"steps"`
	Liked       bool                       `json:"liked"`
}

func (s *Server) handleGetMeal(w http.ResponseWriter, r *http.Request) {
	meal := s.lookupMeal(w, r)
	if meal == nil {
		return
	}
	s.writeJSON(w, http.StatusOK, mealResponse{
		Meal:        meal,
		Ingredients: meal.UsedIngredients(),
		Steps:       meal.Steps(),
		Liked:       s.workspace(r).Likes.IsLiked(meal.ID),
	})
}

func (s *Server) handleMealSource(w http.ResponseWriter, r *http.Request) {
	meal := s.lookupMeal(w, r)
	if meal == nil {
		return
	}
	if meal.Source == "" {
		s.writeError(w, http.StatusNotFound, "meal has no source")
		return
	}

	pv, err := s.app.Previewer().Fetch(r.Context(), meal.Source)
	if err != nil {
		s.log.Warn("source preview failed", "url", meal.Source, "error", err)
		s.writeError(w, http.StatusBadGateway, "failed to fetch source")
		return
	}
	s.writeJSON(w, http.StatusOK, pv)
}
