package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pantry-planner/internal/database"
	"pantry-planner/internal/shared"
)

func TestStore(t *testing.T) {
	db, err := database.NewDB(filepath.Join(t.TempDir(), "metrics.db"))
	require.NoError(t, err)
	defer db.Close()

	s := NewStore(db.SQL)

	t.Run("RecordMetaSkipsZeroUsage", func(t *testing.T) {
		require.NoError(t, s.RecordMeta(shared.CallMeta{Caller: "Assistant", Usage: shared.TokenUsage{Model: "mock"}}))
		usage, err := s.GetDailyUsage(1)
		require.NoError(t, err)
		assert.Empty(t, usage)
	})

	t.Run("DailyUsage", func(t *testing.T) {
		require.NoError(t, s.RecordMeta(shared.CallMeta{
			Caller:  "Assistant",
			Usage:   shared.TokenUsage{PromptTokens: 10, CompletionTokens: 5, Model: "m"},
			Latency: 120 * time.Millisecond,
		}))
		require.NoError(t, s.Record(AssistantCall{Caller: "Assistant", PromptTokens: 3, CompletionTokens: 2}))
		require.NoError(t, s.Record(AssistantCall{Caller: "Assistant", PromptTokens: 100, At: time.Now().AddDate(0, 0, -10)}))

		usage, err := s.GetDailyUsage(2)
		require.NoError(t, err)
		require.Len(t, usage, 1)
		assert.Equal(t, time.Now().UTC().Format("2006-01-02"), usage[0].Date)
		assert.Equal(t, 13, usage[0].TotalPrompt)
		assert.Equal(t, 7, usage[0].TotalCompletion)
		assert.Equal(t, 2, usage[0].TotalExecution)
		assert.Equal(t, 20, usage[0].Tokens())
	})

	t.Run("Cleanup", func(t *testing.T) {
		n, err := s.Cleanup(5)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
	})
}

func TestCollector(t *testing.T) {
	c := NewCollector()

	c.ObserveCatalogRequest("lookup", 10*time.Millisecond, nil)
	c.ObserveCatalogRequest("lookup", 10*time.Millisecond, errors.New("boom"))
	c.ObserveIntersection("ok")
	c.ObserveLikeToggle(true)
	c.ObserveLikeToggle(false)
	c.ObservePlanMutation("add")

	assert.Equal(t, 1.0, testutil.ToFloat64(c.catalogRequests.WithLabelValues("lookup", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.intersections.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.likeToggles.WithLabelValues("liked")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.planMutations.WithLabelValues("add")))

	t.Run("MiddlewareUsesRoutePattern", func(t *testing.T) {
		r := chi.NewRouter()
		r.Use(c.Middleware)
		r.Get("/api/meals/{id}", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTeapot)
		})

		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/meals/52772", nil))

		assert.Equal(t, 1.0, testutil.ToFloat64(c.httpRequests.WithLabelValues("GET", "/api/meals/{id}", "418")))
	})

	t.Run("Handler", func(t *testing.T) {
		rec := httptest.NewRecorder()
		c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, strings.Contains(rec.Body.String(), "pantry_intersections_total"))
	})
}

func TestReadHealth(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.json"), make([]byte, 2048), 0644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "kv"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "kv", "b.json"), make([]byte, 1024), 0644))

	h := ReadHealth(dir)
	assert.EqualValues(t, 3072, h.DataBytes)
	assert.Equal(t, "3.0 KB", h.DataSize())
	assert.Positive(t, h.Goroutines)

	t.Run("MissingDir", func(t *testing.T) {
		assert.Zero(t, ReadHealth(filepath.Join(dir, "nope")).DataBytes)
	})

	t.Run("Gauge", func(t *testing.T) {
		c := NewCollector()
		c.TrackDataDir(dir)
		rec := httptest.NewRecorder()
		c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
		assert.Contains(t, rec.Body.String(), "pantry_data_dir_bytes 3072")
	})
}

func TestHumanSize(t *testing.T) {
	assert.Equal(t, "512 B", humanSize(512))
	assert.Equal(t, "1.5 MB", humanSize(1536*1024))
}
