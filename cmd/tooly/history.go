package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/mattjoyce/tooly/internal/api"
	"github.com/mattjoyce/tooly/internal/config"
	"github.com/mattjoyce/tooly/internal/history"
	"github.com/mattjoyce/tooly/internal/storage"
)

func runHistoryNoun(args []string) int {
	if len(args) < 1 || isHelpToken(args[0]) {
		printHistoryHelp(os.Stderr)
		if len(args) < 1 {
			return 1
		}
		return 0
	}

	action, actionArgs := args[0], args[1:]
	if hasHelpFlag(actionArgs) {
		printHistoryHelp(os.Stdout)
		return 0
	}
	switch action {
	case "list":
		return runHistoryList(actionArgs)
	case "show":
		return runHistoryShow(actionArgs)
	case "prune":
		return runHistoryPrune(actionArgs)
	default:
		fmt.Fprintf(os.Stderr, "Unknown history action: %s\n", action)
		return 1
	}
}

func printHistoryHelp(w io.Writer) {
	fmt.Fprint(w, `Usage:
  tooly history list  [--config PATH] [--limit N] [--json]
  tooly history show  [--config PATH] [--json] <id>
  tooly history prune [--config PATH] [--older-than DURATION]
`)
}

// openHistory opens the action log named by cfg.
func openHistory(ctx context.Context, cfg *config.Config) (*history.Store, func(), error) {
	if !cfg.History.Enabled {
		return nil, nil, errors.New("history is disabled (history.enabled: false)")
	}
	db, err := storage.OpenSQLite(ctx, cfg.HistoryPath())
	if err != nil {
		return nil, nil, err
	}
	return history.New(db), func() { _ = db.Close() }, nil
}

func runHistoryList(args []string) int {
	fs, configPath := newFlagSet("list")
	limit := fs.Int("limit", 20, "Number of entries to show")
	jsonOut := fs.Bool("json", false, "Output as JSON")
	if err := fs.Parse(args); err != nil {
		return 1
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}
	ctx := context.Background()
	store, closeFn, err := openHistory(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}
	defer closeFn()

	entries, err := store.Recent(ctx, *limit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read history: %v\n", err)
		return 1
	}

	if *jsonOut {
		out := make([]api.HistoryEntry, 0, len(entries))
		for _, e := range entries {
			out = append(out, api.NewHistoryEntry(e))
		}
		return writeJSON(out)
	}
	if len(entries) == 0 {
		fmt.Println("No triggers recorded.")
		return 0
	}
	for _, e := range entries {
		fmt.Println(formatEntryLine(e))
	}
	return 0
}

func runHistoryShow(args []string) int {
	fs, configPath := newFlagSet("show")
	jsonOut := fs.Bool("json", false, "Output as JSON")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if fs.NArg() != 1 {
		printHistoryHelp(os.Stderr)
		return 1
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}
	ctx := context.Background()
	store, closeFn, err := openHistory(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}
	defer closeFn()

	e, err := store.Get(ctx, fs.Arg(0))
	if errors.Is(err, history.ErrNotFound) {
		fmt.Fprintf(os.Stderr, "No trigger with id %s\n", fs.Arg(0))
		return 1
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read history: %v\n", err)
		return 1
	}

	if *jsonOut {
		return writeJSON(api.NewHistoryEntry(*e))
	}
	printEntry(os.Stdout, *e)
	return 0
}

func runHistoryPrune(args []string) int {
	fs, configPath := newFlagSet("prune")
	olderThan := fs.Duration("older-than", 0, "Delete entries older than this (default: history.retention)")
	if err := fs.Parse(args); err != nil {
		return 1
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}
	retention := cfg.History.Retention
	if *olderThan > 0 {
		retention = *olderThan
	}
	if retention <= 0 {
		fmt.Fprintln(os.Stderr, "Nothing to prune: retention is not set")
		return 1
	}

	ctx := context.Background()
	store, closeFn, err := openHistory(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}
	defer closeFn()

	n, err := store.Prune(ctx, retention)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Prune failed: %v\n", err)
		return 1
	}
	fmt.Printf("Deleted %d entries older than %s\n", n, retention)
	return 0
}

func statusColor(s history.Status) func(a ...any) string {
	switch s {
	case history.StatusSucceeded:
		return color.New(color.FgGreen).SprintFunc()
	case history.StatusRunning, history.StatusReceived:
		return color.New(color.FgYellow).SprintFunc()
	case history.StatusIgnored, history.StatusNotImplemented:
		return color.New(color.FgCyan).SprintFunc()
	default:
		return color.New(color.FgRed).SprintFunc()
	}
}

func formatEntryLine(e history.Entry) string {
	dim := color.New(color.Faint).SprintFunc()
	action := string(e.ActionType)
	if action == "" {
		action = "-"
	}
	what := e.Detail
	if what == "" {
		what = e.Target
	}
	return fmt.Sprintf("%s  %s  %-8s %s %s",
		dim(e.CreatedAt.Local().Format("2006-01-02 15:04:05")),
		e.ID,
		action,
		statusColor(e.Status)(fmt.Sprintf("%-15s", e.Status)),
		what,
	)
}

func printEntry(w io.Writer, e history.Entry) {
	label := color.New(color.FgCyan).SprintFunc()
	field := func(name, value string) {
		if value != "" {
			fmt.Fprintf(w, "%s %s\n", label(fmt.Sprintf("%-10s", name+":")), value)
		}
	}

	field("id", e.ID)
	field("status", statusColor(e.Status)(string(e.Status)))
	field("command", e.Command)
	field("action", string(e.ActionType))
	field("target", e.Target)
	if len(e.Items) > 0 {
		field("items", strings.Join(e.Items, "\n           "))
	}
	field("run", e.Action)
	field("detail", e.Detail)
	field("error", e.Error)
	if e.ExitCode != nil {
		field("exit", fmt.Sprint(*e.ExitCode))
	}
	field("received", e.CreatedAt.Local().Format(time.RFC3339))
	if e.CompletedAt != nil {
		field("finished", fmt.Sprintf("%s (%s)",
			e.CompletedAt.Local().Format(time.RFC3339),
			e.CompletedAt.Sub(e.CreatedAt).Round(time.Millisecond)))
	}
	field("digest", e.PayloadDigest)
	if e.Stdout != "" {
		fmt.Fprintf(w, "%s\n%s\n", label("stdout:"), e.Stdout)
	}
	if e.Stderr != "" {
		fmt.Fprintf(w, "%s\n%s\n", label("stderr:"), e.Stderr)
	}
}

func writeJSON(v any) int {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to render JSON: %v\n", err)
		return 1
	}
	fmt.Println(string(data))
	return 0
}
