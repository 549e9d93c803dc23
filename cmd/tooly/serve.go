package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mattjoyce/tooly/internal/api"
	"github.com/mattjoyce/tooly/internal/dispatch"
	"github.com/mattjoyce/tooly/internal/host"
	"github.com/mattjoyce/tooly/internal/lock"
	"github.com/mattjoyce/tooly/internal/log"
)

func runServe(args []string) int {
	fs, configPath := newFlagSet("serve")
	listen := fs.String("listen", "", "Override api.listen")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 1
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}
	if *listen != "" {
		cfg.API.Listen = *listen
	}

	logger := log.WithComponent("main")
	logger.Info("tooly starting", "version", version, "config", cfg.SourcePath, "data_dir", cfg.DataDir)

	instance, err := lock.Acquire(cfg.LockPath(), "")
	if err != nil {
		if errors.Is(err, lock.ErrHeld) {
			owner, _ := lock.ReadOwner(cfg.LockPath())
			logger.Error("another tooly instance is already running", "pid", owner.PID, "addr", owner.Addr)
			return 1
		}
		logger.Error("failed to acquire instance lock", "path", cfg.LockPath(), "error", err)
		return 1
	}
	defer instance.Release()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := newApp(ctx, cfg, appOptions{})
	if err != nil {
		logger.Error("failed to start", "error", err)
		return 1
	}
	defer a.Close()

	firstRun, err := host.EnsureFirstRun(cfg.DataDir)
	if err != nil {
		logger.Warn("first-run check failed", "data_dir", cfg.DataDir, "error", err)
	}
	if firstRun {
		if err := a.host.ShowMain(); err != nil {
			logger.Warn("failed to show main window", "error", err)
		}
	}

	if a.history != nil && cfg.History.Retention > 0 {
		if n, err := a.history.Prune(ctx, cfg.History.Retention); err != nil {
			logger.Warn("history prune failed", "error", err)
		} else if n > 0 {
			logger.Info("pruned history", "deleted", n, "retention", cfg.History.Retention)
		}
	}

	errCh := make(chan error, 1)
	if cfg.API.Enabled {
		server := api.New(api.Config{
			Service: cfg.Service.Name,
			Listen:  cfg.API.Listen,
			APIKey:  cfg.API.APIKey,
		}, reopenHandler{next: a.disp, windows: a.host, logger: logger}, historyReader(a), a.executor, a.hub, log.WithComponent("api"))

		ln, err := server.Listen()
		if err != nil {
			logger.Error("failed to listen", "listen", cfg.API.Listen, "error", err)
			return 1
		}
		if err := instance.SetAddr(ln.Addr().String()); err != nil {
			logger.Warn("failed to record API address in lock file", "error", err)
		}
		go func() {
			if err := server.Serve(ctx, ln); err != nil && !errors.Is(err, context.Canceled) {
				errCh <- fmt.Errorf("api: %w", err)
			}
		}()
		logger.Info("API server enabled", "listen", ln.Addr().String())
	}

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-errCh:
		logger.Error("fatal error", "error", err)
		cancel()
	}

	drainCtx, drainCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer drainCancel()
	if err := a.executor.Shutdown(drainCtx); err != nil {
		logger.Warn("scripts did not finish before shutdown", "in_flight", a.executor.InFlight(), "error", err)
	}
	return 0
}

// reopenHandler treats a trigger forwarded by a second invocation as a
// reopen of the application: the main window is shown before dispatching.
type reopenHandler struct {
	next    api.TriggerHandler
	windows host.Windows
	logger  *slog.Logger
}

func (h reopenHandler) HandleURL(ctx context.Context, raw string) dispatch.Report {
	if err := h.windows.ShowMain(); err != nil {
		h.logger.Warn("failed to show main window on reopen", "error", err)
	}
	return h.next.HandleURL(ctx, raw)
}

// historyReader returns nil when history is disabled so the API answers 503.
func historyReader(a *app) api.HistoryReader {
	if a.history == nil {
		return nil
	}
	return a.history
}
