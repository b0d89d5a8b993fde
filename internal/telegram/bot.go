package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"pantry-planner/internal/app"
	"pantry-planner/internal/config"
	"pantry-planner/internal/logger"
)

// Sender is the part of the Telegram API the bot uses.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Bot serves the pantry planner to allow-listed Telegram users.
type Bot struct {
	api Sender
	app *app.App
	cfg *config.Config
	log *logger.Logger
	now func() time.Time

	toastTTL time.Duration
	mu       sync.Mutex
	toasts   map[int64]*Toast
}

// NewBot initializes the Telegram API and sets the webhook.
func NewBot(cfg *config.Config, a *app.App) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to init telegram api: %w", err)
	}
	log := a.Logger().With("component", "telegram")
	log.Info("authorized on telegram", "account", api.Self.UserName)

	wh, err := tgbotapi.NewWebhook(cfg.TelegramWebhookURL)
	if err != nil {
		return nil, fmt.Errorf("invalid webhook url %s: %w", cfg.TelegramWebhookURL, err)
	}
	resp, err := api.Request(wh)
	if err != nil {
		return nil, fmt.Errorf("failed to set webhook to %s: %w", cfg.TelegramWebhookURL, err)
	}
	log.Info("webhook set", "description", resp.Description)

	return newBot(api, a, cfg, log), nil
}

func newBot(api Sender, a *app.App, cfg *config.Config, log *logger.Logger) *Bot {
	return &Bot{
		api:      api,
		app:      a,
		cfg:      cfg,
		log:      log,
		now:      time.Now,
		toastTTL: DefaultToastTTL,
		toasts:   make(map[int64]*Toast),
	}
}

// Routes serves the webhook, a health probe and the metrics endpoint.
func (b *Bot) Routes() http.Handler {
	r := chi.NewRouter()
	if c := b.app.Collector(); c != nil {
		r.Use(c.Middleware)
		r.Method(http.MethodGet, "/metrics", c.Handler())
	}
	r.Post("/webhook", b.handleWebhook)
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	return r
}

func (b *Bot) handleWebhook(w http.ResponseWriter, r *http.Request) {
	var update tgbotapi.Update
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		b.log.Warn("error parsing update", "error", err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	w.WriteHeader(http.StatusOK)

	// Telegram retries updates that are not acknowledged quickly.
	go b.HandleUpdate(context.Background(), update)
}

// HandleUpdate dispatches one update from an allowed user.
func (b *Bot) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.CallbackQuery != nil:
		q := update.CallbackQuery
		if !b.allowed(q.From) {
			return
		}
		b.handleCallback(ctx, q)
	case update.Message != nil:
		msg := update.Message
		if !b.allowed(msg.From) {
			return
		}
		b.processMessage(ctx, msg)
	}
}

func (b *Bot) allowed(u *tgbotapi.User) bool {
	if u == nil {
		return false
	}
	if slices.Contains(b.cfg.TelegramAllowedUserIDs, u.ID) || (b.cfg.AdminTelegramID != 0 && u.ID == b.cfg.AdminTelegramID) {
		return true
	}
	b.log.Warn("unauthorized access attempt", "user_id", u.ID, "username", u.UserName)
	return false
}

// workspace maps a Telegram user to its own planner workspace.
func (b *Bot) workspace(u *tgbotapi.User) *app.Workspace {
	return b.app.Workspace(fmt.Sprintf("tg-%d", u.ID))
}

func (b *Bot) toast(chatID int64) *Toast {
	b.mu.Lock()
	defer b.mu.Unlock()
	t, ok := b.toasts[chatID]
	if !ok {
		t = NewToast(b.api, b.log, chatID, b.toastTTL)
		b.toasts[chatID] = t
	}
	return t
}

func (b *Bot) reply(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	msg.DisableWebPagePreview = true
	if _, err := b.api.Send(msg); err != nil {
		b.log.Warn("failed to send reply", "chat", chatID, "error", err)
	}
}

func (b *Bot) replyWithKeyboard(chatID int64, text string, kb tgbotapi.InlineKeyboardMarkup) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	msg.ReplyMarkup = kb
	if _, err := b.api.Send(msg); err != nil {
		b.log.Warn("failed to send reply", "chat", chatID, "error", err)
	}
}

// Close cancels every visible toast.
func (b *Bot) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, t := range b.toasts {
		t.Cancel()
	}
}

func (b *Bot) sendAdminAlert(text string) {
	if b.cfg.AdminTelegramID == 0 {
		return
	}
	b.reply(b.cfg.AdminTelegramID, text)
}

func splitArgs(text string) (string, string) {
	cmd, rest, _ := strings.Cut(strings.TrimSpace(text), " ")
	// "/cmd@botname" in group chats
	cmd, _, _ = strings.Cut(cmd, "@")
	return strings.ToLower(cmd), strings.TrimSpace(rest)
}
