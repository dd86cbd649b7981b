package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/satyaki-up/workboard/internal/board"
	"github.com/satyaki-up/workboard/internal/config"
	"github.com/satyaki-up/workboard/internal/db"
	"github.com/satyaki-up/workboard/internal/i18n"
	"github.com/satyaki-up/workboard/internal/notify"
	"github.com/satyaki-up/workboard/internal/server"
	"github.com/satyaki-up/workboard/internal/workflow"
)

func main() {
	os.Exit(run())
}

type app struct {
	svc      *board.Service
	toggles  *workflow.ToggleStore
	notifier *notify.Builder
	logger   *slog.Logger
	settings config.Settings
	actor    board.Actor
}

func run() int {
	ctx := context.Background()

	var file *config.Config
	cwd, err := os.Getwd()
	if err == nil {
		file, err = config.Discover(cwd)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: load wbconfig: %v\n", err)
			return 1
		}
	}
	env, err := config.LoadEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	settings, err := config.Resolve(file, env)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	if settings.DBPath == "" {
		settings.DBPath = db.DefaultPath()
	}

	root := flag.NewFlagSet("wb", flag.ContinueOnError)
	root.SetOutput(os.Stderr)
	dbPath := root.String("db", "", "SQLite database path")
	role := root.String("role", "", "acting role: developer|product_owner")
	actorID := root.String("as", "", "acting user id")
	langArg := root.String("lang", "", "output language: en|ko")
	if err := root.Parse(os.Args[1:]); err != nil {
		return 1
	}
	args := root.Args()
	if len(args) == 0 {
		printUsage(settings)
		return 1
	}
	if v := strings.TrimSpace(*dbPath); v != "" {
		settings.DBPath = v
	}
	if v := strings.TrimSpace(*role); v != "" {
		settings.Role = workflow.UserRole(strings.ToLower(v))
		if !workflow.IsValidRole(settings.Role) {
			fmt.Fprintf(os.Stderr, "error: unknown role %q\n", v)
			return 2
		}
	}
	if v := strings.TrimSpace(*langArg); v != "" {
		tag, ok := i18n.Parse(v)
		if !ok {
			fmt.Fprintf(os.Stderr, "error: unsupported language %q\n", v)
			return 2
		}
		settings.Lang = tag
	}
	if args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		printUsage(settings)
		return 0
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: settings.LogLevel}))

	database, err := db.Open(ctx, settings.DBPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: open database: %v\n", err)
		return 1
	}
	defer database.Close()

	notifier := notify.NewBuilder(settings.Lang)
	toggles := workflow.NewToggleStore(notify.NewEmitter(logger, notifier))
	engine := workflow.NewEngine(toggles, workflow.WithLanguage(settings.Lang))
	svc := board.NewService(database, board.WithEngine(engine), board.WithLogger(logger))
	toggles.Restore(ctx, svc)

	a := &app{
		svc:      svc,
		toggles:  toggles,
		notifier: notifier,
		logger:   logger,
		settings: settings,
		actor:    board.Actor{UserID: strings.TrimSpace(*actorID), Role: settings.Role},
	}

	switch args[0] {
	case "board":
		return a.handleBoard(ctx, args[1:])
	case "user":
		return a.handleUser(ctx, args[1:])
	case "create":
		return a.handleCreate(ctx, args[1:])
	case "show":
		return a.handleShow(ctx, args[1:])
	case "list":
		return a.handleList(ctx, args[1:])
	case "edit":
		return a.handleEdit(ctx, args[1:])
	case "delete":
		return a.handleDelete(ctx, args[1:])
	case "reviewers":
		return a.handleReviewers(ctx, args[1:])
	case "deps":
		return a.handleDeps(ctx, args[1:])
	case "move":
		return a.handleMove(ctx, args[1:])
	case "check":
		return a.handleCheck(ctx, args[1:])
	case "history":
		return a.handleHistory(ctx, args[1:])
	case "rules":
		return a.handleRules(ctx, args[1:])
	case "serve":
		return a.handleServe(args[1:])
	default:
		fmt.Fprintf(os.Stderr, "error: unknown command %q\n", args[0])
		printUsage(settings)
		return 1
	}
}

func (a *app) handleBoard(ctx context.Context, args []string) int {
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "error: board needs a subcommand: create|show|list|settings|limit")
		return 2
	}
	switch args[0] {
	case "create":
		return a.handleBoardCreate(ctx, args[1:])
	case "show":
		return a.handleBoardShow(ctx, args[1:])
	case "list":
		return a.handleBoardList(ctx, args[1:])
	case "settings":
		return a.handleBoardSettings(ctx, args[1:])
	case "limit":
		return a.handleBoardLimit(ctx, args[1:])
	default:
		fmt.Fprintf(os.Stderr, "error: unknown board command %q\n", args[0])
		return 2
	}
}

func (a *app) handleBoardCreate(ctx context.Context, args []string) int {
	fs := flag.NewFlagSet("board create", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	title := fs.String("title", "", "board title")
	description := fs.String("description", "", "board description")
	allowSkip := fs.Bool("allow-skip", false, "allow skipping stages")
	requireReviewers := fs.Bool("require-reviewers", false, "require reviewers before ready_for_qa")
	minReviewers := fs.Int("min-reviewers", 0, "minimum reviewers when required")
	enforceWip := fs.Bool("enforce-wip", false, "enforce column WIP limits")
	limitsArg := fs.String("limits", "", "column limits, e.g. in_progress=3,ready_for_qa=2")
	jsonOut := fs.Bool("json", false, "print JSON")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	limits, err := parseLimits(*limitsArg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 2
	}

	b, err := a.svc.CreateBoard(ctx, board.CreateBoardInput{
		Title:       *title,
		Description: *description,
		Settings: workflow.BoardSettings{
			AllowSkipStages:  *allowSkip,
			RequireReviewers: *requireReviewers,
			MinReviewers:     *minReviewers,
			EnforceWipLimits: *enforceWip,
		},
		Limits: limits,
	})
	if err != nil {
		return a.renderError(err)
	}
	if *jsonOut {
		printJSON(b)
		return 0
	}
	fmt.Printf("created board %s\n", b.ID)
	return 0
}

func (a *app) handleBoardShow(ctx context.Context, args []string) int {
	fs := flag.NewFlagSet("board show", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	id := fs.String("id", a.settings.Board, "board id")
	jsonOut := fs.Bool("json", false, "print JSON")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	b, err := a.svc.GetBoard(ctx, *id)
	if err != nil {
		return a.renderError(err)
	}
	if *jsonOut {
		printJSON(b)
		return 0
	}
	a.printBoard(*b)
	return 0
}

func (a *app) handleBoardList(ctx context.Context, args []string) int {
	fs := flag.NewFlagSet("board list", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	search := fs.String("search", "", "filter by title or description")
	page := fs.Int("page", 1, "page number")
	limit := fs.Int("limit", 10, "page size")
	jsonOut := fs.Bool("json", false, "print JSON")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	result, err := a.svc.ListBoards(ctx, board.BoardQuery{Search: *search, Page: *page, Limit: *limit})
	if err != nil {
		return a.renderError(err)
	}
	if *jsonOut {
		printJSON(result)
		return 0
	}
	for _, b := range result.Boards {
		fmt.Printf("%s\t%s\n", b.ID, b.Title)
	}
	fmt.Printf("page %d, %d of %d boards\n", result.Page, len(result.Boards), result.Total)
	return 0
}

// handleBoardSettings changes only the settings whose flags were given.
func (a *app) handleBoardSettings(ctx context.Context, args []string) int {
	fs := flag.NewFlagSet("board settings", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	id := fs.String("id", a.settings.Board, "board id")
	allowSkip := fs.Bool("allow-skip", false, "allow skipping stages")
	requireReviewers := fs.Bool("require-reviewers", false, "require reviewers before ready_for_qa")
	minReviewers := fs.Int("min-reviewers", 0, "minimum reviewers when required")
	enforceWip := fs.Bool("enforce-wip", false, "enforce column WIP limits")
	jsonOut := fs.Bool("json", false, "print JSON")
	if err := fs.Parse(args); err != nil {
		return 1
	}

	current, err := a.svc.GetBoard(ctx, *id)
	if err != nil {
		return a.renderError(err)
	}
	settings := current.Settings
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "allow-skip":
			settings.AllowSkipStages = *allowSkip
		case "require-reviewers":
			settings.RequireReviewers = *requireReviewers
		case "min-reviewers":
			settings.MinReviewers = *minReviewers
		case "enforce-wip":
			settings.EnforceWipLimits = *enforceWip
		}
	})

	updated, err := a.svc.UpdateSettings(ctx, current.ID, settings)
	if err != nil {
		return a.renderError(err)
	}
	if *jsonOut {
		printJSON(updated.Settings)
		return 0
	}
	s := updated.Settings
	fmt.Printf("allow_skip_stages: %t\nrequire_reviewers: %t\nmin_reviewers: %d\nenforce_wip_limits: %t\n",
		s.AllowSkipStages, s.RequireReviewers, s.MinReviewers, s.EnforceWipLimits)
	return 0
}

func (a *app) handleBoardLimit(ctx context.Context, args []string) int {
	fs := flag.NewFlagSet("board limit", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	id := fs.String("id", a.settings.Board, "board id")
	status := fs.String("status", "", "column status")
	maxCards := fs.Int("max", 0, "WIP ceiling, 0 removes it")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	col, err := a.svc.SetColumnLimit(ctx, *id, workflow.CardStatus(strings.TrimSpace(*status)), *maxCards)
	if err != nil {
		return a.renderError(err)
	}
	if col.MaxCards == 0 {
		fmt.Printf("removed limit on %s\n", col.Title)
		return 0
	}
	fmt.Printf("%s limited to %d cards\n", col.Title, col.MaxCards)
	return 0
}

func (a *app) handleUser(ctx context.Context, args []string) int {
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "error: user needs a subcommand: add|list")
		return 2
	}
	switch args[0] {
	case "add":
		fs := flag.NewFlagSet("user add", flag.ContinueOnError)
		fs.SetOutput(os.Stderr)
		name := fs.String("name", "", "display name")
		email := fs.String("email", "", "email address")
		role := fs.String("role", string(workflow.RoleDeveloper), "developer|product_owner")
		avatar := fs.String("avatar", "", "avatar URL")
		jsonOut := fs.Bool("json", false, "print JSON")
		if err := fs.Parse(args[1:]); err != nil {
			return 1
		}
		u, err := a.svc.CreateUser(ctx, board.CreateUserInput{
			Name:   *name,
			Email:  *email,
			Role:   workflow.UserRole(strings.ToLower(strings.TrimSpace(*role))),
			Avatar: *avatar,
		})
		if err != nil {
			return a.renderError(err)
		}
		if *jsonOut {
			printJSON(u)
			return 0
		}
		fmt.Printf("created user %s (%s)\n", u.ID, u.Role)
		return 0
	case "list":
		fs := flag.NewFlagSet("user list", flag.ContinueOnError)
		fs.SetOutput(os.Stderr)
		jsonOut := fs.Bool("json", false, "print JSON")
		if err := fs.Parse(args[1:]); err != nil {
			return 1
		}
		users, err := a.svc.ListUsers(ctx)
		if err != nil {
			return a.renderError(err)
		}
		if *jsonOut {
			printJSON(users)
			return 0
		}
		for _, u := range users {
			fmt.Printf("%s\t%s\t%s\t%s\n", u.ID, u.Role, u.Email, u.Name)
		}
		return 0
	default:
		fmt.Fprintf(os.Stderr, "error: unknown user command %q\n", args[0])
		return 2
	}
}

func (a *app) handleCreate(ctx context.Context, args []string) int {
	fs := flag.NewFlagSet("create", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	boardID := fs.String("board", a.settings.Board, "board id")
	title := fs.String("title", "", "card title")
	description := fs.String("description", "", "card description")
	priority := fs.String("priority", "", "low|medium|high|urgent")
	assignee := fs.String("assignee", "", "assignee user id")
	due := fs.String("due", "", "due date (YYYY-MM-DD or RFC3339)")
	estimate := fs.Float64("estimate", -1, "estimated hours")
	tags := fs.String("tags", "", "comma-separated tags")
	jsonOut := fs.Bool("json", false, "print JSON")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	dueDate, err := parseDate(*due)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 2
	}
	var hours *float64
	if *estimate >= 0 {
		hours = estimate
	}

	card, err := a.svc.CreateCard(ctx, board.CreateCardInput{
		BoardID:        *boardID,
		Title:          *title,
		Description:    *description,
		Priority:       workflow.Priority(strings.TrimSpace(*priority)),
		AssigneeID:     *assignee,
		DueDate:        dueDate,
		EstimatedHours: hours,
		Tags:           parseCSV(*tags),
		Actor:          a.actor,
	})
	if err != nil {
		return a.renderError(err)
	}
	if *jsonOut {
		printJSON(card)
		return 0
	}
	fmt.Printf("created %s (v%d)\n", card.ID, card.Version)
	return 0
}

func (a *app) handleShow(ctx context.Context, args []string) int {
	fs := flag.NewFlagSet("show", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	id := fs.String("id", "", "card id")
	jsonOut := fs.Bool("json", false, "print JSON")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	card, err := a.svc.GetCard(ctx, *id)
	if err != nil {
		return a.renderError(err)
	}
	if *jsonOut {
		printJSON(card)
		return 0
	}
	a.printCard(*card)
	return 0
}

func (a *app) handleList(ctx context.Context, args []string) int {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	boardID := fs.String("board", a.settings.Board, "board id")
	statusArg := fs.String("status", "", "status filter")
	jsonOut := fs.Bool("json", false, "print JSON")
	if err := fs.Parse(args); err != nil {
		return 1
	}

	var status *workflow.CardStatus
	if strings.TrimSpace(*statusArg) != "" {
		s := workflow.CardStatus(strings.TrimSpace(*statusArg))
		status = &s
	}
	cards, err := a.svc.ListCards(ctx, *boardID, status)
	if err != nil {
		return a.renderError(err)
	}
	if *jsonOut {
		printJSON(cards)
		return 0
	}
	for _, c := range cards {
		fmt.Printf("%s\t%s\t%s\tv%d\t%s\n", c.ID, c.Status, c.Priority, c.Version, c.Title)
	}
	return 0
}

func (a *app) handleEdit(ctx context.Context, args []string) int {
	fs := flag.NewFlagSet("edit", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	id := fs.String("id", "", "card id")
	title := fs.String("title", "", "card title")
	description := fs.String("description", "", "card description")
	priority := fs.String("priority", "", "low|medium|high|urgent")
	assignee := fs.String("assignee", "", "assignee user id, empty to clear")
	due := fs.String("due", "", "due date (YYYY-MM-DD or RFC3339)")
	clearDue := fs.Bool("clear-due", false, "remove the due date")
	estimate := fs.Float64("estimate", 0, "estimated hours")
	tags := fs.String("tags", "", "comma-separated tags")
	expectedVersion := fs.Int64("expected-version", -1, "optimistic concurrency check")
	jsonOut := fs.Bool("json", false, "print JSON")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if *clearDue && strings.TrimSpace(*due) != "" {
		fmt.Fprintln(os.Stderr, "error: use either --due or --clear-due")
		return 2
	}

	in := board.UpdateCardInput{ClearDueDate: *clearDue, Actor: a.actor}
	var parseErr error
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "title":
			in.Title = title
		case "description":
			in.Description = description
		case "priority":
			p := workflow.Priority(strings.TrimSpace(*priority))
			in.Priority = &p
		case "assignee":
			in.AssigneeID = assignee
		case "due":
			in.DueDate, parseErr = parseDate(*due)
		case "estimate":
			in.EstimatedHours = estimate
		case "tags":
			t := parseCSV(*tags)
			in.Tags = &t
		}
	})
	if parseErr != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", parseErr)
		return 2
	}

	updated, err := a.svc.UpdateCard(ctx, *id, in, versionArg(*expectedVersion))
	if err != nil {
		return a.renderError(err)
	}
	if *jsonOut {
		printJSON(updated)
		return 0
	}
	fmt.Printf("updated %s (v%d)\n", updated.ID, updated.Version)
	return 0
}

func (a *app) handleDelete(ctx context.Context, args []string) int {
	fs := flag.NewFlagSet("delete", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	id := fs.String("id", "", "card id")
	expectedVersion := fs.Int64("expected-version", -1, "optimistic concurrency check")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if err := a.svc.DeleteCard(ctx, *id, a.actor, versionArg(*expectedVersion)); err != nil {
		return a.renderError(err)
	}
	fmt.Printf("deleted %s\n", strings.TrimSpace(*id))
	return 0
}

func (a *app) handleReviewers(ctx context.Context, args []string) int {
	fs := flag.NewFlagSet("reviewers", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	id := fs.String("id", "", "card id")
	set := fs.String("set", "", "comma-separated reviewer user ids")
	clearAll := fs.Bool("clear", false, "remove all reviewers")
	expectedVersion := fs.Int64("expected-version", -1, "optimistic concurrency check")
	jsonOut := fs.Bool("json", false, "print JSON")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if *clearAll && strings.TrimSpace(*set) != "" {
		fmt.Fprintln(os.Stderr, "error: use either --set or --clear")
		return 2
	}
	userIDs := []string{}
	if !*clearAll {
		userIDs = parseCSV(*set)
	}

	updated, err := a.svc.SetReviewers(ctx, *id, userIDs, a.actor, versionArg(*expectedVersion))
	if err != nil {
		return a.renderError(err)
	}
	if *jsonOut {
		printJSON(updated)
		return 0
	}
	fmt.Printf("%s has %d reviewer(s) (v%d)\n", updated.ID, len(updated.Reviewers), updated.Version)
	return 0
}

func (a *app) handleDeps(ctx context.Context, args []string) int {
	fs := flag.NewFlagSet("deps", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	id := fs.String("id", "", "card id")
	set := fs.String("set", "", "comma-separated required dependency card ids")
	optional := fs.String("optional", "", "comma-separated optional dependency card ids")
	clearAll := fs.Bool("clear", false, "remove all dependencies")
	expectedVersion := fs.Int64("expected-version", -1, "optimistic concurrency check")
	jsonOut := fs.Bool("json", false, "print JSON")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if *clearAll && (strings.TrimSpace(*set) != "" || strings.TrimSpace(*optional) != "") {
		fmt.Fprintln(os.Stderr, "error: use either --set/--optional or --clear")
		return 2
	}

	refs := []board.DependencyRef{}
	if !*clearAll {
		for _, depID := range parseCSV(*set) {
			refs = append(refs, board.DependencyRef{ID: depID, Required: true})
		}
		for _, depID := range parseCSV(*optional) {
			refs = append(refs, board.DependencyRef{ID: depID})
		}
	}

	updated, err := a.svc.SetDependencies(ctx, *id, refs, versionArg(*expectedVersion))
	if err != nil {
		return a.renderError(err)
	}
	if *jsonOut {
		printJSON(updated)
		return 0
	}
	fmt.Printf("updated dependencies for %s (v%d)\n", updated.ID, updated.Version)
	return 0
}

func (a *app) handleMove(ctx context.Context, args []string) int {
	fs := flag.NewFlagSet("move", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	id := fs.String("id", "", "card id")
	to := fs.String("to", "", "target status")
	expectedVersion := fs.Int64("expected-version", -1, "optimistic concurrency check")
	jsonOut := fs.Bool("json", false, "print JSON")
	if err := fs.Parse(args); err != nil {
		return 1
	}

	res, err := a.svc.MoveCard(ctx, board.MoveInput{
		CardID:          *id,
		To:              workflow.CardStatus(strings.TrimSpace(*to)),
		Actor:           a.actor,
		ExpectedVersion: versionArg(*expectedVersion),
	})
	if err != nil {
		return a.renderError(err)
	}
	n := a.notifier.MoveSuccess(res.Card.Title, res.From, res.To)
	if *jsonOut {
		printJSON(map[string]any{"card": res.Card, "notification": n})
		return 0
	}
	fmt.Printf("%s: %s (v%d)\n", n.Message.Title, n.Message.Description, res.Card.Version)
	return 0
}

// handleCheck reports whether a move would be allowed. A denied check exits
// with the move-denied code.
func (a *app) handleCheck(ctx context.Context, args []string) int {
	fs := flag.NewFlagSet("check", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	id := fs.String("id", "", "card id")
	to := fs.String("to", "", "target status")
	jsonOut := fs.Bool("json", false, "print JSON")
	if err := fs.Parse(args); err != nil {
		return 1
	}

	check, err := a.svc.CheckMove(ctx, board.MoveInput{
		CardID: *id,
		To:     workflow.CardStatus(strings.TrimSpace(*to)),
		Actor:  a.actor,
	})
	if err != nil {
		return a.renderError(err)
	}
	if *jsonOut {
		printJSON(check)
	} else if check.Verdict.Allowed {
		fmt.Printf("allowed: %s -> %s\n", a.notifier.StatusName(check.From), a.notifier.StatusName(check.To))
	} else {
		n := a.notifier.MoveFailure(check.Card.Title, check.From, check.To, check.Verdict, "")
		fmt.Printf("denied (%s): %s\n", check.Verdict.Code, n.Reason)
		if n.Suggestion != "" {
			fmt.Printf("hint: %s\n", n.Suggestion)
		}
	}
	if !check.Verdict.Allowed {
		return 5
	}
	return 0
}

func (a *app) handleHistory(ctx context.Context, args []string) int {
	fs := flag.NewFlagSet("history", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	id := fs.String("id", "", "card id")
	jsonOut := fs.Bool("json", false, "print JSON")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	history, err := a.svc.History(ctx, *id)
	if err != nil {
		return a.renderError(err)
	}
	if *jsonOut {
		printJSON(history)
		return 0
	}
	for _, l := range history {
		line := fmt.Sprintf("%s\t%s", l.Timestamp.Format(time.RFC3339), l.Action)
		if l.FromStatus != "" || l.ToStatus != "" {
			line += fmt.Sprintf("\t%s -> %s", l.FromStatus, l.ToStatus)
		}
		if l.UserName != "" {
			line += "\tby " + l.UserName
		}
		if l.Description != "" {
			line += "\t" + l.Description
		}
		fmt.Println(line)
	}
	return 0
}

func (a *app) handleRules(ctx context.Context, args []string) int {
	if len(args) == 0 {
		args = []string{"show"}
	}
	switch args[0] {
	case "show":
		rs, err := a.svc.RuleSettings(ctx)
		if err != nil {
			return a.renderError(err)
		}
		current := a.toggles.Snapshot()
		for _, r := range workflow.Rules() {
			meta := a.notifier.RuleMetadata(r)
			state := "off"
			if current.Enabled(r) {
				state = "on"
			}
			fmt.Printf("%-10s %-3s %s\n", r, state, meta.Name)
		}
		if !rs.LastUpdated.IsZero() {
			fmt.Printf("saved %s (v%s)\n", rs.LastUpdated.Format(time.RFC3339), rs.Version)
		}
		return 0
	case "toggle":
		if len(args) < 2 {
			fmt.Fprintln(os.Stderr, "error: rules toggle needs a rule: dependency|reviewer")
			return 2
		}
		if _, err := a.toggles.Toggle(workflow.Rule(strings.TrimSpace(args[1]))); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			return 2
		}
	case "reset":
		a.toggles.ResetToDefaults()
	default:
		fmt.Fprintf(os.Stderr, "error: unknown rules command %q\n", args[0])
		return 2
	}

	if err := a.toggles.Save(ctx, a.svc); err != nil {
		return a.renderError(err)
	}
	t := a.toggles.Snapshot()
	fmt.Printf("dependency_check=%t reviewer_check=%t\n", t.DependencyCheck, t.ReviewerCheck)
	return 0
}

func (a *app) handleServe(args []string) int {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	addr := fs.String("addr", a.settings.Addr, "HTTP listen address")
	if err := fs.Parse(args); err != nil {
		return 1
	}

	srv := server.New(a.svc, a.toggles, a.logger)
	httpServer := &http.Server{
		Addr:              *addr,
		Handler:           srv.Engine(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	failed := make(chan error, 1)
	go func() {
		a.logger.Info("starting server", slog.String("addr", httpServer.Addr), slog.String("db", a.settings.DBPath))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			failed <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-failed:
		a.logger.Error("server stopped unexpectedly", slog.String("error", err.Error()))
		return 1
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		a.logger.Error("failed to shutdown server", slog.String("error", err.Error()))
		return 1
	}
	a.logger.Info("server stopped")
	return 0
}

func (a *app) renderError(err error) int {
	var denied *board.DeniedError
	if errors.As(err, &denied) {
		v := a.svc.Engine().In(a.notifier.Language()).Localize(denied.Verdict)
		n := a.notifier.MoveFailure("", denied.From, denied.To, v, "")
		fmt.Fprintf(os.Stderr, "error: %s (%s)\n", n.Reason, v.Code)
		if n.Suggestion != "" {
			fmt.Fprintf(os.Stderr, "hint: %s\n", n.Suggestion)
		}
		return 5
	}

	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	switch {
	case errors.Is(err, board.ErrInvalidInput):
		return 2
	case errors.Is(err, board.ErrNotFound):
		return 3
	case errors.Is(err, board.ErrConflict):
		return 4
	case errors.Is(err, board.ErrForbidden), errors.Is(err, board.ErrMoveDenied):
		return 5
	default:
		return 1
	}
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func (a *app) printBoard(b workflow.Board) {
	fmt.Printf("%s  %s\n", b.ID, b.Title)
	if b.Description != "" {
		fmt.Printf("%s\n", b.Description)
	}
	for _, col := range b.Columns {
		count := strconv.Itoa(len(col.Cards))
		if col.MaxCards > 0 {
			count += "/" + strconv.Itoa(col.MaxCards)
		}
		fmt.Printf("\n[%s] (%s)\n", a.notifier.StatusName(col.Status), count)
		for _, c := range col.Cards {
			fmt.Printf("  %s\t%s\tv%d\t%s\n", c.ID, c.Priority, c.Version, c.Title)
		}
	}
}

func (a *app) printCard(c workflow.Card) {
	fmt.Printf("id: %s\n", c.ID)
	fmt.Printf("board: %s\n", c.BoardID)
	fmt.Printf("status: %s\n", a.notifier.StatusName(c.Status))
	fmt.Printf("priority: %s\n", c.Priority)
	fmt.Printf("version: %d\n", c.Version)
	fmt.Printf("title: %s\n", c.Title)
	if c.Description != "" {
		fmt.Printf("description: %s\n", c.Description)
	}
	if c.Assignee != nil {
		fmt.Printf("assignee: %s <%s>\n", c.Assignee.Name, c.Assignee.Email)
	}
	if len(c.Reviewers) > 0 {
		names := make([]string, 0, len(c.Reviewers))
		for _, r := range c.Reviewers {
			names = append(names, r.Name)
		}
		fmt.Printf("reviewers: %s\n", strings.Join(names, ", "))
	}
	for _, d := range c.Dependencies {
		kind := "optional"
		if d.Required {
			kind = "required"
		}
		fmt.Printf("depends on: %s %q [%s, %s]\n", d.ID, d.Title, d.Status, kind)
	}
	if c.DueDate != nil {
		fmt.Printf("due: %s\n", c.DueDate.Format("2006-01-02"))
	}
	if c.EstimatedHours != nil {
		fmt.Printf("estimate: %.1fh\n", *c.EstimatedHours)
	}
	if len(c.Tags) > 0 {
		fmt.Printf("tags: %s\n", strings.Join(c.Tags, ","))
	}
	fmt.Printf("created_at: %s\n", c.CreatedAt.Format(time.RFC3339))
	fmt.Printf("updated_at: %s\n", c.UpdatedAt.Format(time.RFC3339))
}

func printUsage(settings config.Settings) {
	fmt.Fprint(os.Stderr, `Usage:
  wb [--db PATH] [--role developer|product_owner] [--as USER_ID] [--lang en|ko] COMMAND

Boards and users:
  wb board create --title "..." [--description "..."] [--allow-skip] [--require-reviewers] [--min-reviewers N] [--enforce-wip] [--limits in_progress=3] [--json]
  wb board show [--id B] [--json]
  wb board list [--search S] [--page N] [--limit N] [--json]
  wb board settings [--id B] [--allow-skip=BOOL] [--require-reviewers=BOOL] [--min-reviewers N] [--enforce-wip=BOOL] [--json]
  wb board limit [--id B] --status in_progress --max N
  wb user add --name "..." --email a@b.c [--role developer|product_owner] [--json]
  wb user list [--json]

Cards:
  wb create [--board B] --title "..." [--description "..."] [--priority P] [--assignee U] [--due 2026-01-31] [--estimate H] [--tags a,b] [--json]
  wb show --id C [--json]
  wb list [--board B] [--status S] [--json]
  wb edit --id C [--title ...] [--priority P] [--assignee U] [--due D|--clear-due] [--estimate H] [--tags a,b] [--expected-version N] [--json]
  wb delete --id C [--expected-version N]
  wb reviewers --id C [--set U1,U2|--clear] [--expected-version N] [--json]
  wb deps --id C [--set C1,C2] [--optional C3] [--clear] [--expected-version N] [--json]
  wb move --id C --to STATUS [--expected-version N] [--json]
  wb check --id C --to STATUS [--json]
  wb history --id C [--json]

Rules and server:
  wb rules show|toggle dependency|toggle reviewer|reset
  wb serve [--addr :8080]
`)
	if settings.ConfigPath != "" {
		fmt.Fprintf(os.Stderr, "\nDiscovered wbconfig: %s\n", settings.ConfigPath)
	}
	if settings.Board != "" {
		fmt.Fprintf(os.Stderr, "Default board: %s\n", settings.Board)
	}
	fmt.Fprintf(os.Stderr, "Default role: %s\n", settings.Role)
	fmt.Fprintf(os.Stderr, "Default DB path: %s\n", settings.DBPath)
	fmt.Fprint(os.Stderr, `
wbconfig format:
  db=.wb/board.db
  board=<board id>
  role=developer
  lang=en

Environment: WB_DB_PATH, WB_BOARD, WB_ROLE, WB_LANG, WB_ADDR, WB_LOG_LEVEL
`)
}

func versionArg(v int64) *int64 {
	if v < 0 {
		return nil
	}
	return &v
}

func parseDate(value string) (*time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	if t, err := time.Parse("2006-01-02", value); err == nil {
		return &t, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q (use YYYY-MM-DD or RFC3339)", value)
	}
	return &t, nil
}

func parseLimits(value string) (map[workflow.CardStatus]int, error) {
	out := make(map[workflow.CardStatus]int)
	for _, pair := range parseCSV(value) {
		status, raw, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("invalid limit %q (use status=N)", pair)
		}
		n, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil {
			return nil, fmt.Errorf("invalid limit %q: %w", pair, err)
		}
		out[workflow.CardStatus(strings.TrimSpace(status))] = n
	}
	return out, nil
}

func parseCSV(value string) []string {
	raw := strings.Split(strings.TrimSpace(value), ",")
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		out = append(out, v)
	}
	return out
}
