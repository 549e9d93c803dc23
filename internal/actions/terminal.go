package actions

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/mattjoyce/tooly/internal/launcher"
	"github.com/mattjoyce/tooly/internal/log"
	"github.com/mattjoyce/tooly/internal/protocol"
)

const (
	scriptBaseName = "tooly"

	// staleScriptAge is how long a uniquely named script is kept for the
	// terminal to read it.
	staleScriptAge = 24 * time.Hour
)

// terminal opens an interactive terminal running the action. No timeout
// applies; the user is in control of the session.
type terminal struct {
	platform launcher.Platform
	spawner  launcher.Spawner
	dir      string
	unique   bool
	now      func() time.Time
	logger   *slog.Logger
}

func newTerminal(d Deps) *terminal {
	return &terminal{
		platform: d.Platform,
		spawner:  d.Spawner,
		dir:      d.TempDir,
		unique:   d.UniqueScripts,
		now:      time.Now,
		logger:   log.WithComponent("actions"),
	}
}

func (h *terminal) Handle(ctx context.Context, in protocol.Instruction) (Outcome, error) {
	if err := requireDir(in.Target); err != nil {
		return Outcome{}, err
	}

	s := h.platform.TerminalScript(in.Target, in.Items, in.Action)

	path, err := h.writeScript(s)
	if err != nil {
		return Outcome{}, err
	}

	inv := h.platform.OpenTerminal(path, in.Items)
	if err := h.spawner.Spawn(inv); err != nil {
		return Outcome{Path: path}, &SpawnError{Command: inv.String(), Err: err}
	}

	if h.unique {
		h.pruneStale(filepath.Dir(path), s.Ext, path)
	}
	h.logger.Debug("terminal opened", "trigger_id", TriggerID(ctx), "script", path)
	return Outcome{Path: path, Detail: "terminal opened"}, nil
}

// requireDir fails unless target names an existing directory.
func requireDir(target string) error {
	if target == "" {
		return ErrTargetMissing
	}
	fi, err := os.Stat(target)
	if err != nil {
		return &FSError{Op: "stat", Path: target, Err: err}
	}
	if !fi.IsDir() {
		return &FSError{Op: "stat", Path: target, Err: syscall.ENOTDIR}
	}
	return nil
}

func (h *terminal) scriptDir() string {
	if h.dir != "" {
		return h.dir
	}
	return os.TempDir()
}

func (h *terminal) writeScript(s launcher.Script) (string, error) {
	dir := h.scriptDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", &FSError{Op: "mkdir", Path: dir, Err: err}
	}

	name := scriptBaseName + s.Ext
	if h.unique {
		name = scriptBaseName + "-" + uuid.NewString() + s.Ext
	}
	path := filepath.Join(dir, name)

	if err := os.WriteFile(path, []byte(s.Body), 0o755); err != nil {
		return "", &FSError{Op: "write", Path: path, Err: err}
	}
	// WriteFile keeps the mode of an existing file.
	if err := os.Chmod(path, 0o755); err != nil {
		return "", &FSError{Op: "chmod", Path: path, Err: err}
	}
	return path, nil
}

// pruneStale removes unique scripts older than staleScriptAge. Errors are
// logged only.
func (h *terminal) pruneStale(dir, ext, keep string) {
	matches, err := filepath.Glob(filepath.Join(dir, scriptBaseName+"-*"+ext))
	if err != nil {
		h.logger.Warn("failed to list terminal scripts", "dir", dir, "error", err)
		return
	}

	cutoff := h.now().Add(-staleScriptAge)
	for _, m := range matches {
		if m == keep {
			continue
		}
		fi, err := os.Stat(m)
		if err != nil || fi.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(m); err != nil {
			h.logger.Warn("failed to remove stale terminal script", "path", m, "error", err)
		}
	}
}
