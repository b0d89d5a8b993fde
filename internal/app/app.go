package app

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"pantry-planner/internal/auth"
	"pantry-planner/internal/config"
	"pantry-planner/internal/likes"
	"pantry-planner/internal/llm"
	"pantry-planner/internal/logger"
	"pantry-planner/internal/mealdb"
	"pantry-planner/internal/metrics"
	"pantry-planner/internal/pantry"
	"pantry-planner/internal/planner"
	"pantry-planner/internal/preview"
	"pantry-planner/internal/recipe"
	"pantry-planner/internal/storage"
)

// App holds the application's dependencies.
type App struct {
	cfg          *config.Config
	log          *logger.Logger
	surface      storage.Store
	catalog      mealdb.Client
	recipeRepo   *recipe.Repository
	metricsStore *metrics.Store
	collector    *metrics.Collector
	proxy        *llm.Proxy
	previewer    *preview.Previewer
	authn        auth.Authenticator
	tokens       *auth.Manager

	mu         sync.Mutex
	workspaces map[string]*Workspace
	ctx        context.Context
	cancel     context.CancelFunc
}

// NewApp creates and initializes a new App instance.
func NewApp(
	cfg *config.Config,
	log *logger.Logger,
	surface storage.Store,
	catalog mealdb.Client,
	recipeRepo *recipe.Repository,
	metricsStore *metrics.Store,
	collector *metrics.Collector,
	proxy *llm.Proxy,
	previewer *preview.Previewer,
	authn auth.Authenticator,
	tokens *auth.Manager,
) *App {
	ctx, cancel := context.WithCancel(context.Background())
	return &App{
		cfg:          cfg,
		log:          log,
		surface:      surface,
		catalog:      catalog,
		recipeRepo:   recipeRepo,
		metricsStore: metricsStore,
		collector:    collector,
		proxy:        proxy,
		previewer:    previewer,
		authn:        authn,
		tokens:       tokens,
		workspaces:   make(map[string]*Workspace),
		ctx:          ctx,
		cancel:       cancel,
	}
}

func (a *App) Config() *config.Config { return a.cfg }
func (a *App) Logger() *logger.Logger { return a.log }
func (a *App) Catalog() mealdb.Client { return a.catalog }
func (a *App) RecipeRepo() *recipe.Repository { return a.recipeRepo }
func (a *App) MetricsStore() *metrics.Store { return a.metricsStore }
func (a *App) Collector() *metrics.Collector { return a.collector }
func (a *App) Proxy() *llm.Proxy { return a.proxy }
func (a *App) Previewer() *preview.Previewer { return a.previewer }
func (a *App) Authenticator() auth.Authenticator { return a.authn }
func (a *App) Tokens() *auth.Manager { return a.tokens }
func (a *App) Surface() storage.Store { return a.surface }

// Workspace is one user's view of the shared storage surface.
type Workspace struct {
	UserID    string
	Likes     *likes.Store
	Plan      *planner.Store
	Selection *pantry.Selection
	Engine    *pantry.Engine

	stopWatch func()
}

// Workspace returns the cached workspace for userID, creating it on first
// use. Its keys live under "user:<id>:" in the shared surface.
func (a *App) Workspace(userID string) *Workspace {
	a.mu.Lock()
	defer a.mu.Unlock()

	if ws, ok := a.workspaces[userID]; ok {
		return ws
	}

	scoped := storage.WithPrefix(a.surface, fmt.Sprintf("user:%s:", userID))
	log := a.log.With("user", userID)

	var (
		likesObs  likes.MutationObserver
		planObs   planner.MutationObserver
		pantryObs pantry.Observer
	)
	if a.collector != nil {
		likesObs, planObs, pantryObs = a.collector, a.collector, a.collector
	}

	ws := &Workspace{
		UserID:    userID,
		Likes:     likes.NewStore(scoped, log, likesObs),
		Plan:      planner.NewStore(scoped, log, planObs),
		Selection: pantry.NewSelection(scoped, log),
		Engine:    pantry.NewEngine(a.catalog, log, pantryObs),
	}
	ws.stopWatch = ws.Selection.Subscribe(func() {
		ws.refresh(a.ctx)
	})
	a.workspaces[userID] = ws
	return ws
}

// refresh recomputes candidates when the persisted selection differs from
// the engine's, e.g. after another process edited it.
func (w *Workspace) refresh(ctx context.Context) {
	selected := w.Selection.Load()
	if slices.Equal(selected, w.Engine.State().Selected) {
		return
	}
	w.Engine.Select(ctx, selected)
}

// UpdatePantry computes the candidates for names and persists the selection.
// The engine is updated first so the storage notification finds it current.
// A selection superseded by a newer update is not persisted.
func (w *Workspace) UpdatePantry(ctx context.Context, names []string) ([]recipe.Summary, error) {
	names = pantry.Normalize(names)
	meals, err := w.Engine.Compute(ctx, names)
	if errors.Is(err, pantry.ErrSuperseded) {
		return nil, err
	}
	w.Selection.Set(names)
	return meals, err
}

// Candidates returns the persisted selection and its meals, computing them
// when the engine has not settled on that selection yet.
func (w *Workspace) Candidates(ctx context.Context) ([]string, []recipe.Summary, error) {
	selected := w.Selection.Load()
	st := w.Engine.State()
	if slices.Equal(selected, st.Selected) && !st.Loading {
		return selected, st.Meals, st.Err
	}
	meals, err := w.UpdatePantry(ctx, selected)
	return selected, meals, err
}

// TogglePantry flips one ingredient and recomputes the candidates.
func (w *Workspace) TogglePantry(ctx context.Context, name string) ([]string, []recipe.Summary, error) {
	current := w.Selection.Load()
	next := slices.DeleteFunc(slices.Clone(current), func(s string) bool { return s == name })
	if len(next) == len(current) {
		next = append(next, name)
	}
	meals, err := w.UpdatePantry(ctx, next)
	return pantry.Normalize(next), meals, err
}

// Close stops every workspace's storage subscription.
func (a *App) Close() {
	a.cancel()
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, ws := range a.workspaces {
		ws.stopWatch()
	}
}
