// Package doctor checks a tooly installation: configuration, context-menu
// settings and the platform tools the actions launch.
package doctor

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"os/exec"
	"strings"

	"github.com/mattjoyce/tooly/internal/actions"
	"github.com/mattjoyce/tooly/internal/config"
	"github.com/mattjoyce/tooly/internal/launcher"
	"github.com/mattjoyce/tooly/internal/menu"
	"github.com/mattjoyce/tooly/internal/protocol"
	"github.com/mattjoyce/tooly/internal/storage"
)

// Result holds the outcome of a validation run.
type Result struct {
	Valid    bool    `json:"valid"`
	Errors   []Issue `json:"errors,omitempty"`
	Warnings []Issue `json:"warnings,omitempty"`
}

// Issue describes a single validation error or warning.
type Issue struct {
	Category string `json:"category"`
	Message  string `json:"message"`
	Field    string `json:"field,omitempty"`
}

// Doctor validates a loaded configuration.
type Doctor struct {
	cfg      *config.Config
	platform launcher.Platform
	lookPath   func(string) (string, error)
	probeMount func(string) (storage.Mount, error)
}

// New creates a Doctor for cfg using the native platform.
func New(cfg *config.Config) *Doctor {
	return &Doctor{
		cfg:        cfg,
		platform:   launcher.Native(),
		lookPath:   exec.LookPath,
		probeMount: storage.ProbeMount,
	}
}

// Validate runs all checks and returns a result.
func (d *Doctor) Validate() *Result {
	r := &Result{Valid: true}

	d.validateDataDir(r)
	d.validateScript(r)
	d.validateTerminal(r)
	d.validateAPI(r)
	d.validateMenu(r)
	d.validatePlatform(r)

	r.Valid = len(r.Errors) == 0
	return r
}

func (d *Doctor) addError(r *Result, category, field, msg string) {
	r.Errors = append(r.Errors, Issue{Category: category, Field: field, Message: msg})
}

func (d *Doctor) addWarning(r *Result, category, field, msg string) {
	r.Warnings = append(r.Warnings, Issue{Category: category, Field: field, Message: msg})
}

// validateDataDir checks that the data directory can hold history and the lock.
func (d *Doctor) validateDataDir(r *Result) {
	dir := d.cfg.DataDir
	if dir == "" {
		d.addError(r, "service", "data_dir", "data_dir is required")
		return
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		d.addError(r, "service", "data_dir", fmt.Sprintf("cannot create %s: %v", dir, err))
		return
	}
	probe, err := os.CreateTemp(dir, ".doctor-*")
	if err != nil {
		d.addError(r, "service", "data_dir", fmt.Sprintf("%s is not writable: %v", dir, err))
		return
	}
	_ = probe.Close()
	_ = os.Remove(probe.Name())

	if !d.cfg.History.Enabled {
		d.addWarning(r, "history", "history.enabled", "history is disabled; triggers and script output are not recorded")
		return
	}
	m, err := d.probeMount(d.cfg.HistoryPath())
	switch {
	case err != nil:
		d.addWarning(r, "history", "history.path", fmt.Sprintf("cannot inspect filesystem: %v", err))
	case m.Network:
		d.addError(r, "history", "history.path",
			fmt.Sprintf("%s is on a %s network filesystem; SQLite needs a local disk", d.cfg.HistoryPath(), m.Type))
	}
}

func (d *Doctor) validateScript(r *Result) {
	s := d.cfg.Script
	if s.GracePeriod >= s.Timeout {
		d.addWarning(r, "script", "script.grace_period",
			fmt.Sprintf("grace period %s is not shorter than the timeout %s", s.GracePeriod, s.Timeout))
	}
}

func (d *Doctor) validateTerminal(r *Result) {
	dir := d.cfg.Terminal.TempDir
	if dir == "" {
		return
	}
	fi, err := os.Stat(dir)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		d.addWarning(r, "terminal", "terminal.temp_dir", fmt.Sprintf("%s does not exist yet; it is created on first use", dir))
	case err != nil:
		d.addError(r, "terminal", "terminal.temp_dir", err.Error())
	case !fi.IsDir():
		d.addError(r, "terminal", "terminal.temp_dir", fmt.Sprintf("%s is not a directory", dir))
	}
}

// validateAPI warns when the API is reachable from other hosts without a key.
func (d *Doctor) validateAPI(r *Result) {
	if !d.cfg.API.Enabled {
		return
	}
	host, _, err := net.SplitHostPort(d.cfg.API.Listen)
	if err != nil {
		d.addError(r, "api", "api.listen", fmt.Sprintf("invalid listen address %q", d.cfg.API.Listen))
		return
	}
	if d.cfg.API.APIKey == "" && !isLoopback(host) {
		d.addWarning(r, "api", "api.api_key",
			fmt.Sprintf("API listens on %s without an api_key; anyone who can reach it can run scripts", d.cfg.API.Listen))
	}
}

func isLoopback(host string) bool {
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

// validateMenu checks the context-menu settings file if there is one.
func (d *Doctor) validateMenu(r *Result) {
	path := d.cfg.MenuSettingsPath()
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		d.addWarning(r, "menu", "menu.settings", fmt.Sprintf("%s not found; tooly emit needs it", path))
		return
	}
	s, err := menu.LoadSettings(path)
	if err != nil {
		d.addError(r, "menu", "menu.settings", err.Error())
		return
	}

	listed := make(map[string]bool, len(s.Order))
	for i, name := range s.Order {
		if name == menu.Separator {
			continue
		}
		listed[name] = true
		if _, ok := s.Items[name]; !ok {
			d.addError(r, "menu", fmt.Sprintf("order[%d]", i), fmt.Sprintf("item %q is listed but not defined", name))
		}
	}

	for name, it := range s.Items {
		field := fmt.Sprintf("items.%s", name)
		if !listed[name] {
			d.addWarning(r, "menu", field, fmt.Sprintf("item %q is not in order and never shown", name))
		}
		if it.Group != "" {
			if _, ok := s.Groups[it.Group]; !ok {
				d.addWarning(r, "menu", field+".group", fmt.Sprintf("item %q uses undefined group %q", name, it.Group))
			}
		}

		action := protocol.ActionType(it.ActionType)
		switch {
		case it.ActionType == menu.ActionCopy:
		case !action.Valid():
			d.addError(r, "menu", field+".actionType", fmt.Sprintf("item %q has unknown actionType %q", name, it.ActionType))
		case action == protocol.ActionCreate:
			fileName, _ := actions.SplitCreateAction(it.Action)
			if strings.ContainsAny(fileName, `/\`) {
				d.addError(r, "menu", field+".action", fmt.Sprintf("item %q creates %q, which is not a plain file name", name, fileName))
			}
		case action == protocol.ActionReplace:
			d.addWarning(r, "menu", field+".actionType", fmt.Sprintf("item %q uses replace, which is not implemented", name))
		case strings.TrimSpace(it.Action) == "":
			d.addError(r, "menu", field+".action", fmt.Sprintf("item %q has an empty action", name))
		}
	}
}

// validatePlatform checks that the programs actions launch are installed.
func (d *Doctor) validatePlatform(r *Result) {
	shell := d.platform.Shell("true", nil).Name
	if _, err := d.lookPath(shell); err != nil {
		d.addError(r, "platform", "script", fmt.Sprintf("script shell %q not found: %v", shell, err))
	}
	opener := d.platform.OpenWith("app", nil).Name
	if _, err := d.lookPath(opener); err != nil {
		d.addWarning(r, "platform", "app", fmt.Sprintf("%q not found; app and shortcut actions will fail", opener))
	}
	term := d.platform.OpenTerminal("script", nil).Name
	if _, err := d.lookPath(term); err != nil {
		d.addWarning(r, "platform", "terminal", fmt.Sprintf("%q not found; terminal actions will fail", term))
	}
}
