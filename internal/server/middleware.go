package server

import (
	"net/http"
	"strings"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"

	"pantry-planner/internal/app"
	"pantry-planner/internal/auth"
)

// requestLogger logs one line per request with status and duration.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		kv := []any{
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", chimw.GetReqID(r.Context()),
		}
		if status >= http.StatusInternalServerError {
			s.log.Warn("request", kv...)
			return
		}
		s.log.Debug("request", kv...)
	})
}

// requireSession rejects requests without a valid bearer token and puts the
// session on the request context.
func (s *Server) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			s.writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}

		sess, err := s.app.Tokens().Parse(strings.TrimSpace(token))
		if err != nil {
			s.writeError(w, http.StatusUnauthorized, "invalid or expired session")
			return
		}

		next.ServeHTTP(w, r.WithContext(auth.WithSession(r.Context(), sess)))
	})
}

// workspace returns the signed-in user's workspace. Only valid behind requireSession.
func (s *Server) workspace(r *http.Request) *app.Workspace {
	sess, _ := auth.FromContext(r.Context())
	return s.app.Workspace(sess.UID)
}
