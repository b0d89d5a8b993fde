package telegram

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"pantry-planner/internal/likes"
	"pantry-planner/internal/llm"
	"pantry-planner/internal/mealdb"
	"pantry-planner/internal/metrics"
	"pantry-planner/internal/pantry"
	"pantry-planner/internal/planner"
	"pantry-planner/internal/recipe"
)

func (b *Bot) processMessage(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	ws := b.workspace(msg.From)

	cmd, args := splitArgs(msg.Text)
	if !strings.HasPrefix(cmd, "/") {
		// Plain text goes to the assistant.
		b.handleAsk(ctx, msg, strings.TrimSpace(msg.Text))
		return
	}

	switch cmd {
	case "/start", "/help":
		b.reply(chatID, helpText)
	case "/pantry":
		b.reply(chatID, formatPantry(ws.Selection.Load()))
	case "/ingredients":
		b.handleIngredients(ctx, chatID, args)
	case "/have":
		b.handleHave(ctx, msg, args)
	case "/clear":
		ws.UpdatePantry(ctx, nil)
		b.reply(chatID, formatPantry(nil))
	case "/cook":
		selected, meals, err := ws.Candidates(ctx)
		b.reply(chatID, formatCandidates(selected, meals, err))
	case "/meal":
		b.handleMeal(ctx, msg, args)
	case "/liked":
		b.reply(chatID, formatLiked(ws.Likes.GetAll()))
	case "/plan":
		b.handlePlan(ctx, msg, args)
	case "/unplan":
		b.handleUnplan(msg, args)
	case "/calendar":
		b.handleCalendar(msg, args)
	case "/ask":
		b.handleAsk(ctx, msg, args)
	case "/metrics":
		if msg.From.ID != b.cfg.AdminTelegramID {
			b.reply(chatID, "⛔ *Access Denied*: Admin only.")
			return
		}
		b.handleMetricsCommand(ctx, chatID)
	default:
		b.reply(chatID, "Unknown command. Try /help.")
	}
}

func (b *Bot) handleIngredients(ctx context.Context, chatID int64, query string) {
	list, err := b.app.Catalog().ListIngredients(ctx)
	if err != nil {
		b.log.Warn("failed to list ingredients", "error", err)
		b.reply(chatID, "❌ Could not load ingredients right now.")
		return
	}
	b.reply(chatID, formatIngredients(pantry.FilterIngredients(list, query), query))
}

// handleHave toggles one ingredient, using the catalog's spelling when the
// name matches a known ingredient ignoring case.
func (b *Bot) handleHave(ctx context.Context, msg *tgbotapi.Message, name string) {
	if name == "" {
		b.reply(msg.Chat.ID, "Usage: /have <ingredient>")
		return
	}

	list, err := b.app.Catalog().ListIngredients(ctx)
	if err == nil {
		canonical := ""
		for _, ing := range list {
			if strings.EqualFold(ing.Name, name) {
				canonical = ing.Name
				break
			}
		}
		if canonical == "" {
			b.reply(msg.Chat.ID, fmt.Sprintf("I don't know \"%s\". Try /ingredients %s", esc(name), esc(name)))
			return
		}
		name = canonical
	}

	selected, meals, err := b.workspace(msg.From).TogglePantry(ctx, name)
	b.reply(msg.Chat.ID, formatPantry(selected)+"\n\n"+formatCandidates(selected, meals, err))
}

func (b *Bot) lookupMeal(ctx context.Context, chatID int64, id string) *recipe.Meal {
	meal, err := b.app.Catalog().FindMealByID(ctx, id)
	switch {
	case errors.Is(err, mealdb.ErrNotFound):
		b.reply(chatID, "Meal not found.")
		return nil
	case err != nil:
		b.log.Warn("meal lookup failed", "id", id, "error", err)
		b.reply(chatID, "❌ Could not load that meal right now.")
		return nil
	}
	return meal
}

func (b *Bot) handleMeal(ctx context.Context, msg *tgbotapi.Message, id string) {
	if id == "" {
		b.reply(msg.Chat.ID, "Usage: /meal <id>")
		return
	}
	meal := b.lookupMeal(ctx, msg.Chat.ID, id)
	if meal == nil {
		return
	}
	liked := b.workspace(msg.From).Likes.IsLiked(meal.ID)
	b.replyWithKeyboard(msg.Chat.ID, formatMeal(meal), mealKeyboard(meal, liked))
}

func mealKeyboard(m *recipe.Meal, liked bool) tgbotapi.InlineKeyboardMarkup {
	likeLabel := "🤍 Like"
	if liked {
		likeLabel = "❤️ Liked"
	}
	rows := [][]tgbotapi.InlineKeyboardButton{
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(likeLabel, "like|"+m.ID),
			tgbotapi.NewInlineKeyboardButtonData("📅 Plan today", "plan|"+m.ID),
		),
	}
	var links []tgbotapi.InlineKeyboardButton
	if m.Source != "" {
		links = append(links, tgbotapi.NewInlineKeyboardButtonURL("🔗 Original source", m.Source))
	}
	if m.YouTube != "" {
		links = append(links, tgbotapi.NewInlineKeyboardButtonURL("▶️ Video", m.YouTube))
	}
	if len(links) > 0 {
		rows = append(rows, links)
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func (b *Bot) handleCallback(ctx context.Context, q *tgbotapi.CallbackQuery) {
	if _, err := b.api.Request(tgbotapi.NewCallback(q.ID, "")); err != nil {
		b.log.Debug("failed to answer callback", "error", err)
	}
	if q.Message == nil {
		return
	}
	chatID := q.Message.Chat.ID

	action, id, ok := strings.Cut(q.Data, "|")
	if !ok || id == "" {
		return
	}
	meal := b.lookupMeal(ctx, chatID, id)
	if meal == nil {
		return
	}
	ws := b.workspace(q.From)

	switch action {
	case "like":
		liked := ws.Likes.Toggle(likes.FromSummary(meal.Summary()))
		if liked {
			b.toast(chatID).Show("Added to your liked meals!", ToneSuccess)
		} else {
			b.toast(chatID).Show("Removed from your liked meals", ToneInfo)
		}
		kb := mealKeyboard(meal, liked)
		if _, err := b.api.Send(tgbotapi.NewEditMessageReplyMarkup(chatID, q.Message.MessageID, kb)); err != nil {
			b.log.Debug("failed to refresh keyboard", "error", err)
		}
	case "plan":
		date := b.now().Format(planner.DateLayout)
		before := len(ws.Plan.Load()[date])
		after := len(ws.Plan.AddMeal(date, newMealFrom(meal))[date])
		if after > before {
			b.toast(chatID).Show("Added to plan for "+date, ToneSuccess)
		} else {
			b.toast(chatID).Show("Already planned for "+date, ToneInfo)
		}
	}
}

func newMealFrom(m *recipe.Meal) planner.NewMeal {
	return planner.NewMeal{ID: m.ID, Name: m.Name, Thumbnail: m.Thumbnail}
}

// resolveDate accepts YYYY-MM-DD, "today" and "tomorrow".
func (b *Bot) resolveDate(s string) (string, bool) {
	switch strings.ToLower(s) {
	case "today":
		return b.now().Format(planner.DateLayout), true
	case "tomorrow":
		return b.now().AddDate(0, 0, 1).Format(planner.DateLayout), true
	}
	return s, planner.ValidDate(s)
}

func isCatalogID(s string) bool {
	_, err := strconv.ParseUint(s, 10, 64)
	return err == nil
}

func (b *Bot) handlePlan(ctx context.Context, msg *tgbotapi.Message, args string) {
	ws := b.workspace(msg.From)
	if args == "" {
		b.reply(msg.Chat.ID, formatPlan(ws.Plan.Load(), b.now().Format(planner.DateLayout)))
		return
	}

	rawDate, what, _ := strings.Cut(args, " ")
	date, ok := b.resolveDate(rawDate)
	what = strings.TrimSpace(what)
	if !ok || what == "" {
		b.reply(msg.Chat.ID, "Usage: /plan <YYYY-MM-DD|today|tomorrow> <meal id or name>")
		return
	}

	m := planner.NewMeal{Name: what}
	if isCatalogID(what) {
		meal := b.lookupMeal(ctx, msg.Chat.ID, what)
		if meal == nil {
			return
		}
		m = newMealFrom(meal)
	}

	before := len(ws.Plan.Load()[date])
	plan := ws.Plan.AddMeal(date, m)
	if len(plan[date]) == before {
		b.reply(msg.Chat.ID, fmt.Sprintf("%s is already planned for %s.", esc(m.Name), date))
		return
	}
	b.reply(msg.Chat.ID, "✅ Added.\n\n"+formatDay(date, plan[date]))
}

func (b *Bot) handleUnplan(msg *tgbotapi.Message, args string) {
	fields := strings.Fields(args)
	if len(fields) != 2 {
		b.reply(msg.Chat.ID, "Usage: /unplan <YYYY-MM-DD|today|tomorrow> <n>")
		return
	}
	date, ok := b.resolveDate(fields[0])
	n, err := strconv.Atoi(fields[1])
	if !ok || err != nil {
		b.reply(msg.Chat.ID, "Usage: /unplan <YYYY-MM-DD|today|tomorrow> <n>")
		return
	}

	plan := b.workspace(msg.From).Plan.RemoveMeal(date, n-1)
	b.reply(msg.Chat.ID, formatDay(date, plan[date]))
}

func (b *Bot) handleCalendar(msg *tgbotapi.Message, args string) {
	cursor, err := planner.ParseMonth(args, b.now())
	if err != nil {
		b.reply(msg.Chat.ID, "Usage: /calendar [YYYY-MM]")
		return
	}
	plan := b.workspace(msg.From).Plan.Load()
	b.reply(msg.Chat.ID, formatCalendar(cursor, planner.MonthGrid(cursor), plan))
}

func (b *Bot) handleAsk(ctx context.Context, msg *tgbotapi.Message, prompt string) {
	reply := tgbotapi.NewMessage(msg.Chat.ID, "🧑‍🍳 *Thinking...*")
	reply.ParseMode = tgbotapi.ModeMarkdown
	sent, err := b.api.Send(reply)
	if err != nil {
		b.log.Warn("failed to send initial reply", "error", err)
		return
	}

	text, err := b.app.Proxy().Ask(ctx, prompt, b.workspace(msg.From).Selection.Load()...)
	if err != nil {
		var pe *llm.ProxyError
		if errors.As(err, &pe) {
			text = "❌ " + pe.Message
			if pe.Status >= http.StatusInternalServerError {
				b.sendAdminAlert("⚠️ *Assistant failure*\n" + esc(pe.Message))
			}
		} else {
			text = "❌ LLM request failed"
		}
	}

	if _, err := b.api.Send(tgbotapi.NewEditMessageText(msg.Chat.ID, sent.MessageID, text)); err != nil {
		b.log.Warn("failed to edit reply", "error", err)
	}
}

func (b *Bot) handleMetricsCommand(ctx context.Context, chatID int64) {
	var usage []metrics.DailyUsage
	if store := b.app.MetricsStore(); store != nil {
		var err error
		if usage, err = store.GetDailyUsage(7); err != nil {
			b.reply(chatID, "❌ Error fetching metrics.")
			return
		}
	}

	cached := 0
	if repo := b.app.RecipeRepo(); repo != nil {
		if n, err := repo.Count(ctx); err == nil {
			cached = n
		}
	}

	b.reply(chatID, formatMetrics(usage, metrics.ReadHealth(b.cfg.DataDir), cached))
}
