package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the configuration for the application.
type Config struct {
	MealDBURL string

	Port           string
	DataDir        string
	DatabasePath   string
	StorageBackend string
	RedisAddr      string
	LogMode        string

	// Language model proxy
	MockAI       bool
	LLMProvider  string
	GeminiAPIKey string
	GroqAPIKey   string

	// Sessions
	SessionSecret  string
	SessionTTL     time.Duration
	IdentityAPIKey string

	// Telegram Config
	TelegramBotToken       string
	TelegramWebhookURL     string
	TelegramAllowedUserIDs []int64
	AdminTelegramID        int64
}

// NewFromEnv creates a new Config object from environment variables.
func NewFromEnv() (*Config, error) {
	mealDBURL := os.Getenv("MEALDB_API_URL")
	if mealDBURL == "" {
		return nil, fmt.Errorf("MEALDB_API_URL environment variable not set")
	}

	cfg := &Config{
		MealDBURL:      strings.TrimRight(mealDBURL, "/"),
		Port:           envOrDefault("PORT", "8787"),
		DataDir:        envOrDefault("DATA_DIR", "data"),
		StorageBackend: envOrDefault("STORAGE_BACKEND", "sqlite"),
		RedisAddr:      os.Getenv("REDIS_ADDR"),
		LogMode:        envOrDefault("LOG_MODE", "development"),
		MockAI:         os.Getenv("MOCK_AI") == "1",
		LLMProvider:    envOrDefault("LLM_PROVIDER", "groq"),
		GeminiAPIKey:   os.Getenv("GEMINI_API_KEY"),
		GroqAPIKey:     os.Getenv("GROQ_API_KEY"),
		SessionSecret:  envOrDefault("SESSION_SECRET", "dev-session-secret"),
		SessionTTL:     24 * time.Hour,
		IdentityAPIKey: os.Getenv("IDENTITY_API_KEY"),

		TelegramBotToken:   os.Getenv("TELEGRAM_BOT_TOKEN"),
		TelegramWebhookURL: os.Getenv("TELEGRAM_WEBHOOK_URL"),
	}
	cfg.DatabasePath = envOrDefault("DATABASE_PATH", cfg.DataDir+"/pantry.db")

	switch cfg.StorageBackend {
	case "sqlite", "file", "memory":
	case "redis":
		if cfg.RedisAddr == "" {
			return nil, fmt.Errorf("REDIS_ADDR environment variable not set")
		}
	default:
		return nil, fmt.Errorf("unsupported STORAGE_BACKEND %q", cfg.StorageBackend)
	}

	if !cfg.MockAI {
		switch cfg.LLMProvider {
		case "groq":
			if cfg.GroqAPIKey == "" {
				return nil, fmt.Errorf("GROQ_API_KEY environment variable not set")
			}
		case "gemini":
			if cfg.GeminiAPIKey == "" {
				return nil, fmt.Errorf("GEMINI_API_KEY environment variable not set")
			}
		default:
			return nil, fmt.Errorf("unsupported LLM_PROVIDER %q", cfg.LLMProvider)
		}
	}

	if ttl := os.Getenv("SESSION_TTL"); ttl != "" {
		d, err := time.ParseDuration(ttl)
		if err != nil {
			return nil, fmt.Errorf("invalid SESSION_TTL: %w", err)
		}
		cfg.SessionTTL = d
	}

	// Telegram Config (optional for the CLI, required for the bot)
	if raw := os.Getenv("TELEGRAM_ALLOWED_USER_IDS"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			id, err := strconv.ParseInt(part, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid TELEGRAM_ALLOWED_USER_IDS entry %q: %w", part, err)
			}
			cfg.TelegramAllowedUserIDs = append(cfg.TelegramAllowedUserIDs, id)
		}
	}
	if raw := os.Getenv("ADMIN_TELEGRAM_ID"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid ADMIN_TELEGRAM_ID: %w", err)
		}
		cfg.AdminTelegramID = id
	}

	return cfg, nil
}

// RequireTelegram reports an error when the bot-only settings are missing.
func (c *Config) RequireTelegram() error {
	if c.TelegramBotToken == "" {
		return fmt.Errorf("TELEGRAM_BOT_TOKEN environment variable not set")
	}
	if c.TelegramWebhookURL == "" {
		return fmt.Errorf("TELEGRAM_WEBHOOK_URL environment variable not set")
	}
	return nil
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
