package server

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"pantry-planner/internal/likes"
	"pantry-planner/internal/planner"
)

func (s *Server) handleGetLikes(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{"likes": s.workspace(r).Likes.GetAll()})
}

type toggleLikeRequest struct {
	ID        string `json:"id" validate:"required"`
	Name      string `json:"name"`
	Thumbnail string `json:"thumbnail" validate:"omitempty,url"`
}

func (s *Server) handleToggleLike(w http.ResponseWriter, r *http.Request) {
	var req toggleLikeRequest
	if err := s.decode(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "missing meal id")
		return
	}

	store := s.workspace(r).Likes
	liked := store.Toggle(likes.Meal{ID: req.ID, Name: req.Name, Thumbnail: req.Thumbnail})
	s.writeJSON(w, http.StatusOK, map[string]any{"liked": liked, "likes": store.GetAll()})
}

func (s *Server) handleGetPlan(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{"plan": s.workspace(r).Plan.Load()})
}

type calendarDay struct {
	Date    string          `json:"date"`
	InMonth bool            `json:"inMonth"`
	Meals   []planner.Entry `json:"meals"`
}

func (s *Server) handleCalendar(w http.ResponseWriter, r *http.Request) {
	cursor, err := planner.ParseMonth(r.URL.Query().Get("month"), s.now())
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	plan := s.workspace(r).Plan.Load()
	grid := planner.MonthGrid(cursor)
	days := make([]calendarDay, 0, len(grid))
	for _, d := range grid {
		meals := plan[d.ISO]
		if meals == nil {
			meals = []planner.Entry{}
		}
		days = append(days, calendarDay{Date: d.ISO, InMonth: d.InMonth, Meals: meals})
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"month": cursor.Format(planner.MonthLayout),
		"days":  days,
	})
}

type addToPlanRequest struct {
	ID        string `json:"id"`
	Name      string `json:"name" validate:"max=200"`
	Thumbnail string `json:"thumbnail"`
	EntryID   string `json:"entryId"`
}

func (s *Server) handleAddToPlan(w http.ResponseWriter, r *http.Request) {
	date := chi.URLParam(r, "date")
	if !planner.ValidDate(date) {
		s.writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}

	var req addToPlanRequest
	if err := s.decode(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid meal")
		return
	}

	plan := s.workspace(r).Plan.AddMeal(date, planner.NewMeal{
		ID:        req.ID,
		Name:      req.Name,
		Thumbnail: req.Thumbnail,
		EntryID:   req.EntryID,
	})
	s.writeJSON(w, http.StatusOK, map[string]any{"plan": plan})
}

func (s *Server) handleRemoveFromPlan(w http.ResponseWriter, r *http.Request) {
	date := chi.URLParam(r, "date")
	if !planner.ValidDate(date) {
		s.writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "index must be an integer")
		return
	}

	plan := s.workspace(r).Plan.RemoveMeal(date, index)
	s.writeJSON(w, http.StatusOK, map[string]any{"plan": plan})
}
