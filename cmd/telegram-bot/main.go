package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"pantry-planner/internal/app"
	"pantry-planner/internal/config"
	"pantry-planner/internal/logger"
	"pantry-planner/internal/server"
	"pantry-planner/internal/telegram"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.NewFromEnv()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.RequireTelegram(); err != nil {
		log.Fatalf("Invalid telegram config: %v", err)
	}

	zl, err := logger.New(cfg.LogMode)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer zl.Sync()

	application, cleanup, err := app.Bootstrap(context.Background(), cfg, zl)
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}
	defer cleanup()

	bot, err := telegram.NewBot(cfg, application)
	if err != nil {
		cleanup()
		log.Fatalf("Failed to initialize Telegram Bot: %v", err)
	}
	defer bot.Close()

	srv := server.NewHTTPServer(":"+cfg.Port, bot.Routes())

	go func() {
		zl.Info("telegram bot listening", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zl.Info("shutting down server")

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctxShutdown); err != nil {
		zl.Error("server forced to shutdown", "error", err)
	}

	zl.Info("server exiting")
}
