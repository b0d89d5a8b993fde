package server

import (
	"errors"
	"net/http"

	"pantry-planner/internal/auth"
	"pantry-planner/internal/llm"
)

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"ok":   true,
		"ts":   s.now().UnixMilli(),
		"mock": s.app.Proxy().Mock(),
	})
}

type askRequest struct {
	Prompt string   `json:"prompt" validate:"required"`
	Pantry []string `json:"pantry" validate:"max=50,dive,max=100"`
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := s.decode(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "Missing prompt string")
		return
	}

	text, err := s.app.Proxy().Ask(r.Context(), req.Prompt, req.Pantry...)
	if err != nil {
		var pe *llm.ProxyError
		if errors.As(err, &pe) {
			s.writeError(w, pe.Status, pe.Message)
			return
		}
		s.writeError(w, http.StatusInternalServerError, "LLM request failed")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"text": text})
}

type loginRequest struct {
	Identifier string `json:"identifier" validate:"required"`
	Password   string `json:"password" validate:"required"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := s.decode(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, auth.ErrMissingCredentials.Error())
		return
	}

	sess, err := s.app.Authenticator().Authenticate(r.Context(), req.Identifier, req.Password)
	switch {
	case errors.Is(err, auth.ErrMissingCredentials):
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, auth.ErrInvalidCredentials):
		s.writeError(w, http.StatusUnauthorized, err.Error())
		return
	case err != nil:
		s.log.Error("login failed", "error", err)
		s.writeError(w, http.StatusBadGateway, "login failed")
		return
	}

	token, err := s.app.Tokens().Issue(*sess)
	if err != nil {
		s.log.Error("failed to issue session token", "error", err)
		s.writeError(w, http.StatusInternalServerError, "login failed")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"token": token, "user": sess})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	sess, _ := auth.FromContext(r.Context())
	s.writeJSON(w, http.StatusOK, sess)
}
