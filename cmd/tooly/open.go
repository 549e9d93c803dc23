package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/mattjoyce/tooly/internal/api"
	"github.com/mattjoyce/tooly/internal/config"
	"github.com/mattjoyce/tooly/internal/dispatch"
	"github.com/mattjoyce/tooly/internal/lock"
	"github.com/mattjoyce/tooly/internal/log"
)

func runOpen(args []string) int {
	fs, configPath := newFlagSet("open")
	jsonOut := fs.Bool("json", false, "Print the trigger report as JSON")
	local := fs.Bool("local", false, "Dispatch in this process even if a resident instance is running")
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: tooly open [--config PATH] [--local] [--json] <tooly://run?payload=...>")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 1
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return 1
	}
	rawURL := fs.Arg(0)

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}
	return dispatchURL(context.Background(), cfg, rawURL, *local, *jsonOut)
}

// forwardTimeout bounds a round trip to the resident instance.
var forwardTimeout = 5 * time.Second

// errNoResident means no resident instance received the trigger, so it is
// safe to handle it in this process.
var errNoResident = errors.New("no reachable resident instance")

// dispatchURL forwards rawURL to a resident instance or handles it here.
func dispatchURL(ctx context.Context, cfg *config.Config, rawURL string, local, jsonOut bool) int {
	if !local {
		rep, err := forwardToResident(ctx, cfg, rawURL)
		switch {
		case err == nil:
			printReport(os.Stdout, rep, jsonOut)
			return reportExitCode(rep)
		case !errors.Is(err, errNoResident):
			// The resident may already have run the action; running it
			// here too would repeat it.
			fmt.Fprintf(os.Stderr, "Trigger outcome unknown, not retrying: %v\n", err)
			return 1
		}
	}

	a, err := newApp(ctx, cfg, appOptions{})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to start: %v\n", err)
		return 1
	}
	defer a.Close()

	rep := a.disp.HandleURL(ctx, rawURL)
	printReport(os.Stdout, rep, jsonOut)

	if rep.Async {
		// The dispatcher already returned; stay alive so the script is
		// supervised and its result recorded.
		if err := a.drain(ctx); err != nil {
			a.logger.Error("background scripts still running at exit", "error", err)
		}
	}
	return reportExitCode(rep)
}

// forwardToResident hands rawURL to the process holding the instance lock.
// It returns errNoResident only when the trigger certainly was not delivered.
func forwardToResident(ctx context.Context, cfg *config.Config, rawURL string) (dispatch.Report, error) {
	logger := log.WithComponent("open")

	owner, err := lock.ReadOwner(cfg.LockPath())
	if err != nil || owner.Addr == "" {
		return dispatch.Report{}, errNoResident
	}

	ctx, cancel := context.WithTimeout(ctx, forwardTimeout)
	defer cancel()

	client := api.NewClient(owner.Addr, cfg.API.APIKey)
	rep, err := client.Trigger(ctx, rawURL)
	switch {
	case err == nil:
		logger.Debug("trigger forwarded to resident instance", "pid", owner.PID, "trigger_id", rep.TriggerID)
		return rep, nil
	case api.Undelivered(err):
		logger.Warn("resident instance unreachable, dispatching locally", "pid", owner.PID, "addr", owner.Addr, "error", err)
		return dispatch.Report{}, fmt.Errorf("%w: %v", errNoResident, err)
	default:
		logger.Error("forwarding to resident instance failed", "pid", owner.PID, "addr", owner.Addr, "error", err)
		return dispatch.Report{}, fmt.Errorf("forward to pid %d at %s: %w", owner.PID, owner.Addr, err)
	}
}
