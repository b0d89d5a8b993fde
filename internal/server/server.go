// Package server exposes the pantry planner over a JSON HTTP API.
package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"

	"pantry-planner/internal/app"
	"pantry-planner/internal/logger"
)

// Server holds the HTTP handlers and their dependencies.
type Server struct {
	app      *app.App
	log      *logger.Logger
	validate *validator.Validate
	now      func() time.Time
}

func New(a *app.App) *Server {
	return &Server{
		app:      a,
		log:      a.Logger(),
		validate: validator.New(validator.WithRequiredStructEnabled()),
		now:      time.Now,
	}
}

// Routes builds the router with its middleware stack.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(s.requestLogger)
	r.Use(chimw.Recoverer)
	if c := s.app.Collector(); c != nil {
		r.Use(c.Middleware)
		r.Method(http.MethodGet, "/metrics", c.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Post("/ask", s.handleAsk)
		r.Post("/login", s.handleLogin)

		r.Group(func(r chi.Router) {
			r.Use(s.requireSession)

			r.Get("/me", s.handleMe)
			r.Get("/ingredients", s.handleIngredients)

			r.Get("/pantry", s.handleGetPantry)
			r.Put("/pantry", s.handlePutPantry)
			r.Delete("/pantry", s.handleClearPantry)
			r.Post("/pantry/toggle", s.handleTogglePantry)

			r.Get("/meals", s.handleSearchMeals)
			r.Get("/meals/{id}", s.handleGetMeal)
			r.Get("/meals/{id}/source", s.handleMealSource)

			r.Get("/likes", s.handleGetLikes)
			r.Post("/likes/toggle", s.handleToggleLike)

			r.Get("/plan", s.handleGetPlan)
			r.Get("/plan/calendar", s.handleCalendar)
			r.Post("/plan/{date}", s.handleAddToPlan)
			r.Delete("/plan/{date}/{index}", s.handleRemoveFromPlan)
		})
	})

	return r
}

// NewHTTPServer wraps handler with the timeouts used by both binaries.
func NewHTTPServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Warn("failed to encode response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}

var errInvalidBody = errors.New("invalid request body")

// decode reads a JSON body into dst and validates its struct tags.
func (s *Server) decode(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return errInvalidBody
	}
	return s.validate.Struct(dst)
}
