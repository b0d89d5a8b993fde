package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"pantry-planner/internal/app"
	"pantry-planner/internal/auth"
	"pantry-planner/internal/config"
	"pantry-planner/internal/logger"
	"pantry-planner/internal/server"
	"pantry-planner/internal/storage"
)

func main() {
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cfg, err := config.NewFromEnv()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	zl, err := logger.New(cfg.LogMode)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer zl.Sync()

	ctx := context.Background()
	application, cleanup, err := app.Bootstrap(ctx, cfg, zl)
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}
	defer cleanup()

	// The CLI keeps its signed-in session next to the data, outside the shared surface.
	sessionFiles, err := storage.NewFileStore(filepath.Join(cfg.DataDir, "cli"), zl)
	if err != nil {
		log.Fatalf("Failed to open session storage: %v", err)
	}
	c := &cli{app: application, sessions: auth.NewSessionStore(sessionFiles), out: os.Stdout}

	args := os.Args[2:]
	switch os.Args[1] {
	case "serve":
		err = serve(application, cfg.Port)
	case "login":
		err = c.login(ctx, args)
	case "logout":
		err = c.logout()
	case "whoami":
		err = c.whoami()
	case "ingredients":
		err = c.ingredients(ctx, args)
	case "candidates":
		err = c.candidates(ctx, args)
	case "meal":
		err = c.meal(ctx, args)
	case "like":
		err = c.like(ctx, args)
	case "liked":
		err = c.liked()
	case "plan":
		err = c.plan(ctx, args)
	case "calendar":
		err = c.calendar(args)
	case "ask":
		err = c.ask(ctx, args)
	case "metrics-cleanup":
		err = c.metricsCleanup(ctx, args)
	default:
		fmt.Printf("Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		cleanup()
		log.Fatalf("%s failed: %v", os.Args[1], err)
	}
}

func serve(a *app.App, port string) error {
	srv := server.NewHTTPServer(":"+port, server.New(a).Routes())

	errCh := make(chan error, 1)
	go func() {
		a.Logger().Info("API listening", "addr", "http://localhost:"+port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-quit:
	}
	a.Logger().Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(ctx)
}

func printUsage() {
	fmt.Println("Usage: pantry-planner <command> [arguments]")
	fmt.Println("\nCommands:")
	fmt.Println("  serve                          Start the HTTP API")
	fmt.Println("  login <user|email> <password>  Sign in (demo: user / password)")
	fmt.Println("  logout                         Forget the saved session")
	fmt.Println("  whoami                         Show the signed-in user")
	fmt.Println("  ingredients [query]            List catalog ingredients")
	fmt.Println("  candidates [ingredient...]     Set the pantry and list meals using all of it")
	fmt.Println("  meal <id>                      Show a meal")
	fmt.Println("  like <id>                      Like or unlike a meal")
	fmt.Println("  liked                          List liked meals")
	fmt.Println("  plan show                      Show the meal plan")
	fmt.Println("  plan add <date> <id|name>      Add a meal to a date")
	fmt.Println("  plan remove <date> <index>     Remove the meal at index (0-based) from a date")
	fmt.Println("  calendar [YYYY-MM]             Show a month of the plan")
	fmt.Println("  ask <prompt>                   Ask the cooking assistant")
	fmt.Println("  metrics-cleanup [-days N]      Remove old metric records and cached meals")
}
