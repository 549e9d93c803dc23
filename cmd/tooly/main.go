package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"runtime/debug"
	"strings"
	"time"

	"github.com/mattjoyce/tooly/internal/config"
	"github.com/mattjoyce/tooly/internal/dispatch"
	"github.com/mattjoyce/tooly/internal/doctor"
	"github.com/mattjoyce/tooly/internal/history"
	"github.com/mattjoyce/tooly/internal/log"
)

var (
	version   = "0.1.0-dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

func main() {
	os.Exit(runCLI(os.Args[1:]))
}

func runCLI(cliArgs []string) int {
	if len(cliArgs) < 1 {
		printUsage(os.Stderr)
		return 1
	}

	cmd := cliArgs[0]
	args := cliArgs[1:]

	// The OS hands a registered URL scheme straight to the binary.
	if strings.HasPrefix(cmd, "tooly:") {
		return runOpen(cliArgs)
	}

	switch cmd {
	case "open":
		return runOpen(args)
	case "serve":
		return runServe(args)
	case "emit":
		return runEmit(args)
	case "history":
		return runHistoryNoun(args)
	case "watch":
		return runWatch(args)
	case "config":
		return runConfigNoun(args)
	case "version", "--version":
		return runVersion(args)
	case "help", "--help", "-h":
		printUsage(os.Stdout)
		return 0
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		printUsage(os.Stderr)
		return 1
	}
}

func printUsage(w io.Writer) {
	fmt.Fprint(w, `tooly - context-menu command dispatcher

Usage:
  tooly <command> [flags]

Commands:
  open <url>        Dispatch a tooly://run trigger (forwards to a resident instance)
  serve             Run the resident instance with the local API
  emit              Build a trigger from a context-menu item
  history list      Show recent triggers
  history show <id> Show one trigger with script output
  history prune     Delete entries older than the retention window
  watch             Live trigger monitor (TUI)
  config show       Print the effective configuration
  config check      Validate configuration, menu settings and platform tools
  version           Show version information
  help              Show this help message

Every command accepts --config PATH (or $TOOLY_CONFIG).
`)
}

func isHelpToken(token string) bool {
	return token == "help" || token == "--help" || token == "-h"
}

func hasHelpFlag(args []string) bool {
	for _, a := range args {
		if a == "--help" || a == "-h" {
			return true
		}
	}
	return false
}

// loadConfig resolves and loads the configuration and sets up logging.
func loadConfig(explicit string) (*config.Config, error) {
	path, err := config.Discover(explicit)
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	log.Setup(cfg.Service.LogLevel, cfg.Service.LogFormat)
	return cfg, nil
}

// newFlagSet returns a FlagSet carrying the shared --config flag.
func newFlagSet(name string) (*flag.FlagSet, *string) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	configPath := fs.String("config", "", "Path to configuration file (.yaml or .toml)")
	return fs, configPath
}

// reportExitCode maps a trigger outcome to the process exit status.
func reportExitCode(rep dispatch.Report) int {
	switch rep.Status {
	case history.StatusSucceeded, history.StatusRunning, history.StatusIgnored:
		return 0
	case history.StatusNotImplemented:
		return 3
	case history.StatusRejected:
		return 2
	default:
		return 1
	}
}

func printReport(w io.Writer, rep dispatch.Report, asJSON bool) {
	if asJSON {
		data, _ := json.MarshalIndent(rep, "", "  ")
		fmt.Fprintln(w, string(data))
		return
	}
	line := fmt.Sprintf("%s %s", rep.TriggerID, rep.Status)
	if rep.ActionType != "" {
		line += " " + string(rep.ActionType)
	}
	if rep.Detail != "" {
		line += ": " + rep.Detail
	}
	if rep.Error != "" {
		line += " (" + rep.Error + ")"
	}
	fmt.Fprintln(w, line)
}

// --- version ---

type versionInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"build_time"`
}

func runVersion(args []string) int {
	fs := flag.NewFlagSet("version", flag.ContinueOnError)
	jsonOut := fs.Bool("json", false, "Output version metadata as JSON")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Flag error: %v\n", err)
		return 1
	}
	if fs.NArg() > 0 {
		fmt.Fprintln(os.Stderr, "Usage: tooly version [--json]")
		return 1
	}

	info := currentVersionInfo()
	if *jsonOut {
		data, err := json.MarshalIndent(info, "", "  ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to render version JSON: %v\n", err)
			return 1
		}
		fmt.Println(string(data))
		return 0
	}

	fmt.Printf("tooly %s\n", info.Version)
	fmt.Printf("commit: %s\n", info.Commit)
	fmt.Printf("built_at: %s\n", info.BuildTime)
	return 0
}

func currentVersionInfo() versionInfo {
	info := versionInfo{
		Version:   strings.TrimSpace(version),
		Commit:    "unknown",
		BuildTime: "unknown",
	}
	if info.Version == "" {
		info.Version = "0.0.0-dev"
	}

	commit := strings.TrimSpace(gitCommit)
	if commit == "" || commit == "unknown" {
		commit = strings.TrimSpace(readBuildSetting("vcs.revision"))
	}
	if commit != "" {
		info.Commit = shortenCommit(commit)
	}

	built := strings.TrimSpace(buildDate)
	if built == "" || built == "unknown" {
		built = strings.TrimSpace(readBuildSetting("vcs.time"))
	}
	if t, err := time.Parse(time.RFC3339Nano, built); err == nil {
		info.BuildTime = t.UTC().Format(time.RFC3339)
	}
	return info
}

func shortenCommit(commit string) string {
	if len(commit) <= 12 {
		return commit
	}
	return commit[:12]
}

func readBuildSetting(key string) string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}
	for _, setting := range info.Settings {
		if setting.Key == key {
			return setting.Value
		}
	}
	return ""
}

// --- config ---

func runConfigNoun(args []string) int {
	if len(args) < 1 || isHelpToken(args[0]) {
		fmt.Fprintln(os.Stderr, "Usage: tooly config show|check [--config PATH] [--json]")
		if len(args) < 1 {
			return 1
		}
		return 0
	}

	switch args[0] {
	case "show":
		return runConfigShow(args[1:])
	case "check":
		return runConfigCheck(args[1:])
	default:
		fmt.Fprintf(os.Stderr, "Unknown config action: %s\n", args[0])
		return 1
	}
}

func runConfigShow(args []string) int {
	fs, configPath := newFlagSet("show")
	jsonOut := fs.Bool("json", false, "Output in structured JSON format")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 1
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Load error: %v\n", err)
		return 1
	}
	redacted := cfg.Redacted()

	if *jsonOut {
		data, err := json.MarshalIndent(redacted, "", "  ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to render config: %v\n", err)
			return 1
		}
		fmt.Println(string(data))
		return 0
	}

	data, err := config.Marshal(redacted)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to render config: %v\n", err)
		return 1
	}
	source := cfg.SourcePath
	if source == "" {
		source = "(defaults)"
	}
	fmt.Printf("# source: %s\n", source)
	fmt.Print(string(data))
	return 0
}

func runConfigCheck(args []string) int {
	fs, configPath := newFlagSet("check")
	jsonOut := fs.Bool("json", false, "Output in structured JSON format")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 1
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Load error: %v\n", err)
		return 1
	}
	result := doctor.New(cfg).Validate()

	code := 0
	if !result.Valid {
		code = 1
	}
	if *jsonOut {
		if writeJSON(result) != 0 {
			return 1
		}
		return code
	}

	for _, e := range result.Errors {
		fmt.Printf("ERROR   %-9s %s: %s\n", e.Category, e.Field, e.Message)
	}
	for _, w := range result.Warnings {
		fmt.Printf("WARNING %-9s %s: %s\n", w.Category, w.Field, w.Message)
	}
	if result.Valid {
		fmt.Println("Status: Configuration check PASSED.")
	} else {
		fmt.Println("Status: Configuration check FAILED.")
	}
	return code
}
