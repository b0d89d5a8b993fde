package telegram

import (
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"pantry-planner/internal/likes"
	"pantry-planner/internal/metrics"
	"pantry-planner/internal/planner"
	"pantry-planner/internal/recipe"
)

const maxListed = 30

func esc(s string) string {
	return tgbotapi.EscapeText(tgbotapi.ModeMarkdown, s)
}

const helpText = `🧺 *Pantry Planner*

/pantry - your checked ingredients
/ingredients [text] - find ingredient names
/have <ingredient> - check or uncheck an ingredient
/clear - uncheck everything
/cook - meals you can make with all of them
/meal <id> - recipe details
/liked - your liked meals
/plan - upcoming planned meals
/plan <date|today|tomorrow> <meal id or name> - add to the plan
/unplan <date> <n> - remove the n-th meal of a date
/calendar [YYYY-MM] - month overview
/ask <question> - cooking inspiration`

func formatPantry(selected []string) string {
	if len(selected) == 0 {
		return "🧺 Your pantry is empty. Add ingredients with /have <ingredient>."
	}
	var sb strings.Builder
	sb.WriteString("🧺 *Your pantry*\n\n")
	for _, name := range selected {
		fmt.Fprintf(&sb, "• %s\n", esc(name))
	}
	sb.WriteString("\nSee what you can cook with /cook.")
	return sb.String()
}

func formatCandidates(selected []string, meals []recipe.Summary, err error) string {
	switch {
	case err != nil:
		return "❌ " + esc(err.Error())
	case len(selected) == 0:
		return "Check some ingredients first with /have <ingredient>."
	case len(meals) == 0:
		return "🤷 No meals use all of: " + esc(strings.Join(selected, ", "))
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "🍳 *%d meals* with %s\n\n", len(meals), esc(strings.Join(selected, ", ")))
	for i, m := range meals {
		if i == maxListed {
			fmt.Fprintf(&sb, "_…and %d more_\n", len(meals)-maxListed)
			break
		}
		fmt.Fprintf(&sb, "• %s - /meal %s\n", esc(m.Name), m.ID)
	}
	return sb.String()
}

func formatIngredients(list []recipe.Ingredient, query string) string {
	if len(list) == 0 {
		return "No ingredient matches " + esc(query) + "."
	}
	var sb strings.Builder
	for i, ing := range list {
		if i == maxListed {
			fmt.Fprintf(&sb, "_…and %d more, narrow your search_\n", len(list)-maxListed)
			break
		}
		fmt.Fprintf(&sb, "• %s\n", esc(ing.Name))
	}
	return sb.String()
}

func formatMeal(m *recipe.Meal) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "🍽 *%s*\n", esc(m.Name))
	if tags := strings.TrimSpace(strings.Join([]string{m.Category, m.Area}, " ")); tags != "" {
		fmt.Fprintf(&sb, "_%s_\n", esc(tags))
	}

	if used := m.UsedIngredients(); len(used) > 0 {
		sb.WriteString("\n*Ingredients*\n")
		for _, im := range used {
			if im.Measure != "" {
				fmt.Fprintf(&sb, "• %s - %s\n", esc(im.Name), esc(im.Measure))
			} else {
				fmt.Fprintf(&sb, "• %s\n", esc(im.Name))
			}
		}
	}

	if steps := m.Steps(); len(steps) > 0 {
		sb.WriteString("\n*Instructions*\n")
		for i, step := range steps {
			fmt.Fprintf(&sb, "%d. %s\n", i+1, esc(step))
		}
	}
	return sb.String()
}

func formatLiked(meals []likes.Meal) string {
	if len(meals) == 0 {
		return "💔 No liked meals yet. Open one with /meal <id> and tap Like."
	}
	var sb strings.Builder
	sb.WriteString("❤️ *Liked meals*\n\n")
	for _, m := range meals {
		fmt.Fprintf(&sb, "• %s - /meal %s\n", esc(m.Name), m.ID)
	}
	return sb.String()
}

func formatDay(date string, entries []planner.Entry) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "*%s*\n", date)
	if len(entries) == 0 {
		sb.WriteString("_nothing planned_\n")
	}
	for i, e := range entries {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, esc(e.Name))
	}
	return sb.String()
}

// formatPlan lists the dates on or after from.
func formatPlan(plan planner.Plan, from string) string {
	var sb strings.Builder
	sb.WriteString("📅 *Upcoming meals*\n\n")
	n := 0
	for _, date := range plan.Dates() {
		if date < from {
			continue
		}
		sb.WriteString(formatDay(date, plan[date]))
		sb.WriteString("\n")
		n++
	}
	if n == 0 {
		sb.WriteString("_Nothing planned yet._ Add a meal with /plan today <meal>.")
	}
	return strings.TrimRight(sb.String(), "\n")
}

func formatCalendar(cursor time.Time, grid []planner.Day, plan planner.Plan) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "🗓 *%s*\n\n", cursor.Format("January 2006"))
	n := 0
	for _, d := range grid {
		entries := plan[d.ISO]
		if !d.InMonth || len(entries) == 0 {
			continue
		}
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			names = append(names, esc(e.Name))
		}
		fmt.Fprintf(&sb, "`%s` %s: %s\n", d.Date.Format("02"), d.Date.Format("Mon"), strings.Join(names, ", "))
		n++
	}
	if n == 0 {
		sb.WriteString("_Nothing planned this month._\n")
	}
	prev, next := cursor.AddDate(0, -1, 0), cursor.AddDate(0, 1, 0)
	fmt.Fprintf(&sb, "\n◀️ /calendar %s  ▶️ /calendar %s", prev.Format(planner.MonthLayout), next.Format(planner.MonthLayout))
	return sb.String()
}

func formatMetrics(usage []metrics.DailyUsage, health metrics.Health, cachedMeals int) string {
	var sb strings.Builder
	sb.WriteString("📊 *Usage & Health Report*\n\n")

	sb.WriteString("🗓 *Recent LLM Activity*\n")
	if len(usage) == 0 {
		sb.WriteString("_No data yet_\n")
	}
	for _, d := range usage {
		fmt.Fprintf(&sb, "• *%s*: %d tokens (%d execs)\n", d.Date, d.Tokens(), d.TotalExecution)
	}

	sb.WriteString("\n🧠 *System Health*\n")
	fmt.Fprintf(&sb, "• RAM: %dMB (Heap) / %dMB (Sys)\n", health.HeapMB, health.SysMB)
	fmt.Fprintf(&sb, "• Goroutines: %d\n", health.Goroutines)
	fmt.Fprintf(&sb, "• Uptime: %s\n", health.Uptime.Round(time.Second))
	fmt.Fprintf(&sb, "• Disk Data: %s\n", health.DataSize())
	fmt.Fprintf(&sb, "• Cached meals: %d\n", cachedMeals)
	return sb.String()
}
