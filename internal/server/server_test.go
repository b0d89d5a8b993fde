package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pantry-planner/internal/app"
	"pantry-planner/internal/auth"
	"pantry-planner/internal/config"
	"pantry-planner/internal/llm"
	"pantry-planner/internal/logger"
	"pantry-planner/internal/mealdb"
	"pantry-planner/internal/metrics"
	"pantry-planner/internal/preview"
	"pantry-planner/internal/storage"
)

// catalogServer fakes the recipe catalog. sourceURL is reported as the
// source page of meal 52772.
func catalogServer(t *testing.T, sourceURL string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		switch r.URL.Path {
		case "/list.php":
			fmt.Fprint(w, `{"meals":[{"idIngredient":"1","strIngredient":"Chicken"},{"idIngredient":"2","strIngredient":"Garlic"},{"idIngredient":"3","strIngredient":"Salmon"}]}`)
		case "/filter.php":
			switch q.Get("i") {
			case "Chicken":
				fmt.Fprint(w, `{"meals":[{"idMeal":"52772","strMeal":"Teriyaki Chicken","strMealThumb":"https://img/t.jpg"},{"idMeal":"52795","strMeal":"Chicken Handi","strMealThumb":"https://img/h.jpg"}]}`)
			case "Garlic":
				fmt.Fprint(w, `{"meals":[{"idMeal":"52795","strMeal":"Chicken Handi","strMealThumb":"https://img/h.jpg"},{"idMeal":"52959","strMeal":"Baked Salmon","strMealThumb":"https://img/s.jpg"}]}`)
			case "Broken":
				w.WriteHeader(http.StatusInternalServerError)
			default:
				fmt.Fprint(w, `{"meals":null}`)
			}
		case "/lookup.php":
			if q.Get("i") != "52772" {
				fmt.Fprint(w, `{"meals":null}`)
				return
			}
			fmt.Fprintf(w, `{"meals":[{"idMeal":"52772","strMeal":"Teriyaki Chicken","strInstructions":"Heat pan.\r\nAdd chicken.","strMealThumb":"https://img/t.jpg","strSource":%q,"strIngredient1":"soy sauce","strMeasure1":"3/4 cup","strIngredient2":"","strMeasure2":""}]}`, sourceURL)
		case "/search.php":
			fmt.Fprint(w, `{"meals":[{"idMeal":"52772","strMeal":"Teriyaki Chicken","strMealThumb":"https://img/t.jpg"}]}`)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(server.Close)
	return server
}

type fixture struct {
	handler http.Handler
	token   string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	source := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><head><title>Teriyaki at Home</title></head><body><p>Sweet and salty.</p></body></html>`)
	}))
	t.Cleanup(source.Close)
	catalog := catalogServer(t, source.URL)

	log := logger.Nop()
	tokens := auth.NewManager("test-secret", time.Hour)
	a := app.NewApp(
		&config.Config{},
		log,
		storage.NewMemoryStore(),
		mealdb.NewClient(catalog.URL),
		nil,
		nil,
		metrics.NewCollector(),
		llm.NewProxy(llm.MockGenerator{}, nil, log),
		preview.NewPreviewer(),
		auth.Chain{auth.DemoAuthenticator{}},
		tokens,
	)
	t.Cleanup(a.Close)

	token, err := tokens.Issue(auth.DemoSession)
	require.NoError(t, err)

	srv := New(a)
	srv.now = func() time.Time { return time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC) }
	return &fixture{handler: srv.Routes(), token: token}
}

func (f *fixture) do(t *testing.T, method, path string, body any, authed bool) (int, map[string]any) {
	t.Helper()
	var rdr io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		rdr = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, rdr)
	if authed {
		req.Header.Set("Authorization", "Bearer "+f.token)
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)

	var out map[string]any
	if rec.Body.Len() > 0 && rec.Header().Get("Content-Type") == "application/json" {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	}
	return rec.Code, out
}

func TestPublicRoutes(t *testing.T) {
	f := newFixture(t)

	t.Run("Health", func(t *testing.T) {
		code, body := f.do(t, http.MethodGet, "/api/health", nil, false)
		assert.Equal(t, http.StatusOK, code)
		assert.Equal(t, true, body["ok"])
		assert.Equal(t, true, body["mock"])
		assert.EqualValues(t, time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC).UnixMilli(), body["ts"])
	})

	t.Run("Ask", func(t *testing.T) {
		code, body := f.do(t, http.MethodPost, "/api/ask", map[string]any{"prompt": "quick dinner?"}, false)
		assert.Equal(t, http.StatusOK, code)
		assert.Equal(t, llm.MockAnswer, body["text"])
	})

	t.Run("AskMissingPrompt", func(t *testing.T) {
		for _, payload := range []any{map[string]any{}, map[string]any{"prompt": 42}, map[string]any{"prompt": "   "}} {
			code, body := f.do(t, http.MethodPost, "/api/ask", payload, false)
			assert.Equal(t, http.StatusBadRequest, code)
			assert.Equal(t, "Missing prompt string", body["error"])
		}
	})

	t.Run("Login", func(t *testing.T) {
		code, body := f.do(t, http.MethodPost, "/api/login", loginRequest{Identifier: " User ", Password: "password"}, false)
		require.Equal(t, http.StatusOK, code)
		assert.NotEmpty(t, body["token"])
		assert.Equal(t, "demo-uid", body["user"].(map[string]any)["uid"])
	})

	t.Run("LoginFailures", func(t *testing.T) {
		code, body := f.do(t, http.MethodPost, "/api/login", loginRequest{Identifier: "user"}, false)
		assert.Equal(t, http.StatusBadRequest, code)
		assert.Equal(t, auth.ErrMissingCredentials.Error(), body["error"])

		code, _ = f.do(t, http.MethodPost, "/api/login", loginRequest{Identifier: "user", Password: "nope"}, false)
		assert.Equal(t, http.StatusUnauthorized, code)
	})

	t.Run("RequiresSession", func(t *testing.T) {
		code, _ := f.do(t, http.MethodGet, "/api/likes", nil, false)
		assert.Equal(t, http.StatusUnauthorized, code)

		req := httptest.NewRequest(http.MethodGet, "/api/likes", nil)
		req.Header.Set("Authorization", "Bearer garbage")
		rec := httptest.NewRecorder()
		f.handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestPantryRoutes(t *testing.T) {
	f := newFixture(t)

	t.Run("Ingredients", func(t *testing.T) {
		code, body := f.do(t, http.MethodGet, "/api/ingredients?q=sal", nil, true)
		require.Equal(t, http.StatusOK, code)
		list := body["ingredients"].([]any)
		require.Len(t, list, 1)
		assert.Equal(t, "Salmon", list[0].(map[string]any)["name"])
	})

	t.Run("EmptyByDefault", func(t *testing.T) {
		code, body := f.do(t, http.MethodGet, "/api/pantry", nil, true)
		require.Equal(t, http.StatusOK, code)
		assert.Empty(t, body["selected"])
		assert.Empty(t, body["meals"])
	})

	t.Run("Intersection", func(t *testing.T) {
		code, body := f.do(t, http.MethodPut, "/api/pantry", putPantryRequest{Ingredients: []string{"Chicken", "Garlic", "Chicken"}}, true)
		require.Equal(t, http.StatusOK, code)
		assert.Equal(t, []any{"Chicken", "Garlic"}, body["selected"])
		meals := body["meals"].([]any)
		require.Len(t, meals, 1)
		assert.Equal(t, "52795", meals[0].(map[string]any)["id"])

		code, body = f.do(t, http.MethodGet, "/api/pantry", nil, true)
		require.Equal(t, http.StatusOK, code)
		assert.Len(t, body["meals"], 1)
	})

	t.Run("Toggle", func(t *testing.T) {
		code, body := f.do(t, http.MethodPost, "/api/pantry/toggle", togglePantryRequest{Ingredient: "Garlic"}, true)
		require.Equal(t, http.StatusOK, code)
		assert.Equal(t, []any{"Chicken"}, body["selected"])
		assert.Len(t, body["meals"], 2)
	})

	t.Run("CatalogFailure", func(t *testing.T) {
		code, body := f.do(t, http.MethodPut, "/api/pantry", putPantryRequest{Ingredients: []string{"Chicken", "Broken"}}, true)
		assert.Equal(t, http.StatusBadGateway, code)
		assert.Equal(t, "failed to load meals for selected ingredients", body["error"])
		assert.Empty(t, body["meals"])
	})

	t.Run("Clear", func(t *testing.T) {
		code, body := f.do(t, http.MethodDelete, "/api/pantry", nil, true)
		require.Equal(t, http.StatusOK, code)
		assert.Empty(t, body["selected"])
		assert.Empty(t, body["meals"])
	})
}

func TestMealRoutes(t *testing.T) {
	f := newFixture(t)

	t.Run("Search", func(t *testing.T) {
		code, body := f.do(t, http.MethodGet, "/api/meals?s=teriyaki", nil, true)
		require.Equal(t, http.StatusOK, code)
		assert.Len(t, body["meals"], 1)

		code, _ = f.do(t, http.MethodGet, "/api/meals?s=", nil, true)
		assert.Equal(t, http.StatusBadRequest, code)
	})

	t.Run("Details", func(t *testing.T) {
		code, body := f.do(t, http.MethodGet, "/api/meals/52772", nil, true)
		require.Equal(t, http.StatusOK, code)
		assert.Equal(t, []any{"Heat pan.", "Add chicken."}, body["steps"])
		assert.Len(t, body["ingredients"], 1)
		assert.Equal(t, false, body["liked"])
	})

	t.Run("NotFound", func(t *testing.T) {
		code, _ := f.do(t, http.MethodGet, "/api/meals/1", nil, true)
		assert.Equal(t, http.StatusNotFound, code)
	})

	t.Run("Source", func(t *testing.T) {
		code, body := f.do(t, http.MethodGet, "/api/meals/52772/source", nil, true)
		require.Equal(t, http.StatusOK, code)
		assert.Equal(t, "Teriyaki at Home", body["title"])
		assert.Equal(t, "Sweet and salty.", body["excerpt"])
	})
}

func TestLikeAndPlanRoutes(t *testing.T) {
	f := newFixture(t)

	t.Run("ToggleLike", func(t *testing.T) {
		req := toggleLikeRequest{ID: "52772", Name: "Teriyaki Chicken", Thumbnail: "https://img/t.jpg"}
		code, body := f.do(t, http.MethodPost, "/api/likes/toggle", req, true)
		require.Equal(t, http.StatusOK, code)
		assert.Equal(t, true, body["liked"])
		assert.Len(t, body["likes"], 1)

		code, body = f.do(t, http.MethodGet, "/api/meals/52772", nil, true)
		require.Equal(t, http.StatusOK, code)
		assert.Equal(t, true, body["liked"])

		code, body = f.do(t, http.MethodPost, "/api/likes/toggle", req, true)
		require.Equal(t, http.StatusOK, code)
		assert.Equal(t, false, body["liked"])
		assert.Empty(t, body["likes"])

		code, _ = f.do(t, http.MethodPost, "/api/likes/toggle", toggleLikeRequest{Name: "x"}, true)
		assert.Equal(t, http.StatusBadRequest, code)
	})

	t.Run("AddAndRemove", func(t *testing.T) {
		code, body := f.do(t, http.MethodPost, "/api/plan/2025-03-12", addToPlanRequest{ID: "52772", Name: " Teriyaki Chicken "}, true)
		require.Equal(t, http.StatusOK, code)
		day := body["plan"].(map[string]any)["2025-03-12"].([]any)
		require.Len(t, day, 1)
		entry := day[0].(map[string]any)
		assert.Equal(t, "Teriyaki Chicken", entry["name"])
		assert.Nil(t, entry["thumbnail"])
		assert.NotEmpty(t, entry["entryId"])

		// same name in another case is a duplicate
		code, body = f.do(t, http.MethodPost, "/api/plan/2025-03-12", addToPlanRequest{Name: "teriyaki chicken"}, true)
		require.Equal(t, http.StatusOK, code)
		assert.Len(t, body["plan"].(map[string]any)["2025-03-12"], 1)

		code, _ = f.do(t, http.MethodPost, "/api/plan/12-03-2025", addToPlanRequest{Name: "x"}, true)
		assert.Equal(t, http.StatusBadRequest, code)

		code, body = f.do(t, http.MethodGet, "/api/plan/calendar?month=2025-03", nil, true)
		require.Equal(t, http.StatusOK, code)
		assert.Equal(t, "2025-03", body["month"])
		days := body["days"].([]any)
		require.Len(t, days, 42)
		assert.Equal(t, "2025-02-23", days[0].(map[string]any)["date"])
		for _, d := range days {
			cell := d.(map[string]any)
			if cell["date"] == "2025-03-12" {
				assert.Len(t, cell["meals"], 1)
			}
		}

		code, _ = f.do(t, http.MethodGet, "/api/plan/calendar?month=March", nil, true)
		assert.Equal(t, http.StatusBadRequest, code)

		code, body = f.do(t, http.MethodDelete, "/api/plan/2025-03-12/5", nil, true)
		require.Equal(t, http.StatusOK, code)
		assert.Len(t, body["plan"], 1)

		code, body = f.do(t, http.MethodDelete, "/api/plan/2025-03-12/0", nil, true)
		require.Equal(t, http.StatusOK, code)
		assert.Empty(t, body["plan"])

		code, _ = f.do(t, http.MethodDelete, "/api/plan/2025-03-12/x", nil, true)
		assert.Equal(t, http.StatusBadRequest, code)

		code, body = f.do(t, http.MethodDelete, "/api/plan/12-03-2025/0", nil, true)
		assert.Equal(t, http.StatusBadRequest, code)
		assert.Equal(t, "date must be YYYY-MM-DD", body["error"])
	})
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture(t)
	f.do(t, http.MethodGet, "/api/health", nil, false)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `http_requests_total{method="GET",route="/api/health",status_code="200"} 1`)
}
