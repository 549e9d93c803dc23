package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/mattjoyce/tooly/internal/actions"
	"github.com/mattjoyce/tooly/internal/config"
	"github.com/mattjoyce/tooly/internal/dispatch"
	"github.com/mattjoyce/tooly/internal/events"
	"github.com/mattjoyce/tooly/internal/history"
	"github.com/mattjoyce/tooly/internal/host"
	"github.com/mattjoyce/tooly/internal/launcher"
	"github.com/mattjoyce/tooly/internal/log"
	"github.com/mattjoyce/tooly/internal/runner"
	"github.com/mattjoyce/tooly/internal/storage"
)

// app is the dispatcher and everything it writes to, wired from config.
type app struct {
	cfg      *config.Config
	db       *sql.DB
	history  *history.Store
	hub      *events.Hub
	executor *runner.Executor
	router   *actions.Router
	disp     *dispatch.Dispatcher
	host     host.Windows
	logger   *slog.Logger
}

type appOptions struct {
	platform launcher.Platform
	spawner  launcher.Spawner
	host     host.Windows
}

func newApp(ctx context.Context, cfg *config.Config, opts appOptions) (*app, error) {
	if opts.platform == nil {
		opts.platform = launcher.Native()
	}
	if opts.spawner == nil {
		opts.spawner = launcher.NewDetached()
	}
	if opts.host == nil {
		opts.host = host.NewHeadless()
	}

	a := &app{
		cfg:    cfg,
		hub:    events.NewHub(256),
		host:   opts.host,
		logger: log.WithComponent("main"),
	}

	var recorder dispatch.Recorder
	if cfg.History.Enabled {
		db, err := storage.OpenSQLite(ctx, cfg.HistoryPath())
		if err != nil {
			return nil, fmt.Errorf("open history: %w", err)
		}
		a.db = db
		a.history = history.New(db)
		recorder = a.history
	}

	a.executor = runner.NewExecutor(
		runner.WithTimeout(cfg.Script.Timeout),
		runner.WithGracePeriod(cfg.Script.GracePeriod),
		runner.WithMaxOutputBytes(cfg.Script.MaxOutputBytes),
		runner.WithObserver(func(res runner.Result) { a.disp.ObserveScript(res) }),
	)
	a.router = actions.NewRouter(actions.Deps{
		Platform:      opts.platform,
		Spawner:       opts.spawner,
		Scripts:       a.executor,
		Host:          opts.host,
		TempDir:       cfg.Terminal.TempDir,
		UniqueScripts: cfg.Terminal.UniqueScripts,
	})
	a.disp = dispatch.New(a.router, dispatch.WithHistory(recorder), dispatch.WithEvents(a.hub))
	return a, nil
}

// drain waits for background scripts. The bound covers the script timeout
// plus the termination sequence.
func (a *app) drain(ctx context.Context) error {
	limit := a.executor.Timeout() + 2*a.cfg.Script.GracePeriod + 5*time.Second
	ctx, cancel := context.WithTimeout(ctx, limit)
	defer cancel()
	return a.executor.Wait(ctx)
}

func (a *app) Close() error {
	if a.db == nil {
		return nil
	}
	return a.db.Close()
}
