package app

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"pantry-planner/internal/auth"
	"pantry-planner/internal/config"
	"pantry-planner/internal/database"
	"pantry-planner/internal/llm"
	"pantry-planner/internal/logger"
	"pantry-planner/internal/mealdb"
	"pantry-planner/internal/metrics"
	"pantry-planner/internal/preview"
	"pantry-planner/internal/recipe"
	"pantry-planner/internal/storage"
)

// mealCacheAge is how long a looked-up meal is served from the local cache.
const mealCacheAge = 24 * time.Hour

// Bootstrap opens the database, picks the storage backend and wires every
// collaborator from cfg. The returned cleanup releases them in reverse order.
func Bootstrap(ctx context.Context, cfg *config.Config, log *logger.Logger) (*App, func(), error) {
	var closers []func() error
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](); err != nil {
				log.Warn("cleanup failed", "error", err)
			}
		}
	}

	db, err := database.NewDB(cfg.DatabasePath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	closers = append(closers, db.Close)

	surface, closeSurface, err := openSurface(ctx, cfg, db, log)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	closers = append(closers, closeSurface)

	collector := metrics.NewCollector()
	collector.TrackDataDir(cfg.DataDir)
	recipeRepo := recipe.NewRepository(db.SQL)
	catalog := mealdb.NewCachedClient(
		mealdb.WithObserver(mealdb.NewClient(cfg.MealDBURL), collector),
		recipeRepo, log, mealCacheAge,
	)

	metricsStore := metrics.NewStore(db.SQL)

	gen, closeGen, err := llm.NewFromConfig(ctx, cfg)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("failed to initialize language model: %w", err)
	}
	closers = append(closers, closeGen)
	proxy := llm.NewProxy(gen, metricsStore, log)

	authn := auth.Chain{auth.DemoAuthenticator{}}
	if cfg.IdentityAPIKey != "" {
		authn = append(authn, auth.NewIdentityToolkit(cfg.IdentityAPIKey))
	}

	application := NewApp(
		cfg,
		log,
		surface,
		catalog,
		recipeRepo,
		metricsStore,
		collector,
		proxy,
		preview.NewPreviewer(),
		authn,
		auth.NewManager(cfg.SessionSecret, cfg.SessionTTL),
	)

	return application, func() {
		application.Close()
		cleanup()
	}, nil
}

// openSurface returns the key-value backend named by cfg.StorageBackend.
func openSurface(ctx context.Context, cfg *config.Config, db *database.DB, log *logger.Logger) (storage.Store, func() error, error) {
	noop := func() error { return nil }

	switch cfg.StorageBackend {
	case "memory":
		return storage.NewMemoryStore(), noop, nil
	case "file":
		fs, err := storage.NewFileStore(filepath.Join(cfg.DataDir, "kv"), log)
		if err != nil {
			return nil, nil, err
		}
		if err := fs.Watch(); err != nil {
			return nil, nil, fmt.Errorf("failed to watch storage directory: %w", err)
		}
		return fs, fs.Close, nil
	case "redis":
		rs, err := storage.NewRedisStore(ctx, cfg.RedisAddr, log)
		if err != nil {
			return nil, nil, err
		}
		return rs, rs.Close, nil
	default:
		return storage.NewSQLiteStore(db.SQL, log), noop, nil
	}
}
