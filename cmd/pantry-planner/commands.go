package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"pantry-planner/internal/app"
	"pantry-planner/internal/auth"
	"pantry-planner/internal/likes"
	"pantry-planner/internal/llm"
	"pantry-planner/internal/pantry"
	"pantry-planner/internal/planner"
	"pantry-planner/internal/recipe"
)

var errNotLoggedIn = errors.New("not logged in, run: pantry-planner login <user|email> <password>")

type cli struct {
	app      *app.App
	sessions *auth.SessionStore
	out      io.Writer
	now      func() time.Time
}

func (c *cli) clock() time.Time {
	if c.now != nil {
		return c.now()
	}
	return time.Now()
}

// workspace returns the signed-in user's workspace.
func (c *cli) workspace() (*app.Workspace, error) {
	sess, ok := c.sessions.Load()
	if !ok {
		return nil, errNotLoggedIn
	}
	return c.app.Workspace(sess.UID), nil
}

func (c *cli) login(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return auth.ErrMissingCredentials
	}
	sess, err := c.app.Authenticator().Authenticate(ctx, args[0], args[1])
	if err != nil {
		return err
	}
	if err := c.sessions.Save(*sess); err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Signed in as %s <%s>\n", sess.DisplayName, sess.Email)
	return nil
}

func (c *cli) logout() error {
	if err := c.sessions.Clear(); err != nil {
		return err
	}
	fmt.Fprintln(c.out, "Signed out.")
	return nil
}

func (c *cli) whoami() error {
	sess, ok := c.sessions.Load()
	if !ok {
		return errNotLoggedIn
	}
	fmt.Fprintf(c.out, "%s <%s> (%s, uid %s)\n", sess.DisplayName, sess.Email, sess.Provider, sess.UID)
	return nil
}

func (c *cli) ingredients(ctx context.Context, args []string) error {
	list, err := c.app.Catalog().ListIngredients(ctx)
	if err != nil {
		return err
	}
	for _, ing := range pantry.FilterIngredients(list, strings.Join(args, " ")) {
		fmt.Fprintln(c.out, ing.Name)
	}
	return nil
}

// candidates replaces the pantry with args when given, then prints the
// meals that use every selected ingredient.
func (c *cli) candidates(ctx context.Context, args []string) error {
	ws, err := c.workspace()
	if err != nil {
		return err
	}

	var (
		selected []string
		meals    []recipe.Summary
	)
	if len(args) > 0 {
		selected = pantry.Normalize(args)
		meals, err = ws.UpdatePantry(ctx, selected)
	} else {
		selected, meals, err = ws.Candidates(ctx)
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(c.out, "Pantry: %s\n", strings.Join(selected, ", "))
	if len(selected) == 0 {
		fmt.Fprintln(c.out, "Select ingredients to see candidate meals.")
		return nil
	}
	fmt.Fprintf(c.out, "%d meals:\n", len(meals))
	for _, m := range meals {
		fmt.Fprintf(c.out, "  %-8s %s\n", m.ID, m.Name)
	}
	return nil
}

func (c *cli) meal(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: meal <id>")
	}
	m, err := c.app.Catalog().FindMealByID(ctx, args[0])
	if err != nil {
		return err
	}

	liked := ""
	if ws, err := c.workspace(); err == nil && ws.Likes.IsLiked(m.ID) {
		liked = " ♥"
	}
	fmt.Fprintf(c.out, "%s%s\n", m.Name, liked)
	if m.Category != "" || m.Area != "" {
		fmt.Fprintf(c.out, "%s %s\n", m.Category, m.Area)
	}
	fmt.Fprintln(c.out, "\nIngredients:")
	for _, im := range m.UsedIngredients() {
		fmt.Fprintf(c.out, "  - %s %s\n", im.Measure, im.Name)
	}
	fmt.Fprintln(c.out, "\nInstructions:")
	for i, step := range m.Steps() {
		fmt.Fprintf(c.out, "  %d. %s\n", i+1, step)
	}
	if m.Source != "" {
		fmt.Fprintf(c.out, "\nSource: %s\n", m.Source)
	}
	return nil
}

func (c *cli) like(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: like <id>")
	}
	ws, err := c.workspace()
	if err != nil {
		return err
	}
	m, err := c.app.Catalog().FindMealByID(ctx, args[0])
	if err != nil {
		return err
	}

	if ws.Likes.Toggle(likes.FromSummary(m.Summary())) {
		fmt.Fprintf(c.out, "Liked %s\n", m.Name)
	} else {
		fmt.Fprintf(c.out, "Unliked %s\n", m.Name)
	}
	return nil
}

func (c *cli) liked() error {
	ws, err := c.workspace()
	if err != nil {
		return err
	}
	all := ws.Likes.GetAll()
	if len(all) == 0 {
		fmt.Fprintln(c.out, "No liked meals yet.")
	}
	for _, m := range all {
		fmt.Fprintf(c.out, "  %-8s %s\n", m.ID, m.Name)
	}
	return nil
}

func (c *cli) plan(ctx context.Context, args []string) error {
	ws, err := c.workspace()
	if err != nil {
		return err
	}
	if len(args) == 0 || args[0] == "show" {
		c.printPlan(ws.Plan.Load())
		return nil
	}

	switch args[0] {
	case "add":
		if len(args) < 3 || !planner.ValidDate(args[1]) {
			return errors.New("usage: plan add <YYYY-MM-DD> <meal id|name>")
		}
		what := strings.Join(args[2:], " ")
		m := planner.NewMeal{Name: what}
		if _, err := strconv.ParseUint(what, 10, 64); err == nil {
			meal, err := c.app.Catalog().FindMealByID(ctx, what)
			if err != nil {
				return err
			}
			m = planner.NewMeal{ID: meal.ID, Name: meal.Name, Thumbnail: meal.Thumbnail}
		}
		c.printPlan(ws.Plan.AddMeal(args[1], m))
	case "remove":
		if len(args) != 3 {
			return errors.New("usage: plan remove <YYYY-MM-DD> <index>")
		}
		index, err := strconv.Atoi(args[2])
		if err != nil {
			return fmt.Errorf("invalid index %q: %w", args[2], err)
		}
		c.printPlan(ws.Plan.RemoveMeal(args[1], index))
	default:
		return fmt.Errorf("unknown plan command %q", args[0])
	}
	return nil
}

func (c *cli) printPlan(p planner.Plan) {
	if len(p) == 0 {
		fmt.Fprintln(c.out, "Nothing planned.")
		return
	}
	for _, date := range p.Dates() {
		fmt.Fprintln(c.out, date)
		for i, e := range p[date] {
			fmt.Fprintf(c.out, "  [%d] %s\n", i, e.Name)
		}
	}
}

func (c *cli) calendar(args []string) error {
	ws, err := c.workspace()
	if err != nil {
		return err
	}
	cursor, err := planner.ParseMonth(strings.Join(args, ""), c.clock())
	if err != nil {
		return err
	}
	plan := ws.Plan.Load()

	fmt.Fprintf(c.out, "%s\n", cursor.Format("January 2006"))
	fmt.Fprintln(c.out, " Sun  Mon  Tue  Wed  Thu  Fri  Sat")
	for i, d := range planner.MonthGrid(cursor) {
		cell := "   "
		if d.InMonth {
			cell = fmt.Sprintf("%3d", d.Date.Day())
		}
		mark := " "
		if len(plan[d.ISO]) > 0 {
			mark = "*"
		}
		fmt.Fprintf(c.out, "%s%s ", cell, mark)
		if i%7 == 6 {
			fmt.Fprintln(c.out)
		}
	}
	return nil
}

func (c *cli) ask(ctx context.Context, args []string) error {
	var selected []string
	if ws, err := c.workspace(); err == nil {
		selected = ws.Selection.Load()
	}
	text, err := c.app.Proxy().Ask(ctx, strings.Join(args, " "), selected...)
	if err != nil {
		var pe *llm.ProxyError
		if errors.As(err, &pe) {
			return errors.New(pe.Message)
		}
		return err
	}
	fmt.Fprintln(c.out, text)
	return nil
}

func (c *cli) metricsCleanup(ctx context.Context, args []string) error {
	cleanupCmd := flag.NewFlagSet("metrics-cleanup", flag.ContinueOnError)
	days := cleanupCmd.Int("days", 30, "Keep records for the last N days")
	if err := cleanupCmd.Parse(args); err != nil {
		return err
	}

	affected, err := c.app.MetricsStore().Cleanup(*days)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Successfully removed %d old metric records.\n", affected)

	pruned, err := c.app.RecipeRepo().Prune(ctx, time.Duration(*days)*24*time.Hour)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Removed %d cached meals.\n", pruned)
	return nil
}
