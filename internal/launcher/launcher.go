// Package launcher builds the platform-specific process invocations used by
// the action handlers: "open with application", interactive terminal scripts
// and non-interactive shell commands.
//
// The platform is chosen at build time (launcher_darwin.go, launcher_unix.go,
// launcher_windows.go); handlers only see the Platform interface.
package launcher

//go:generate mockgen -destination=mocks/mock_launcher.go -package=mocks github.com/mattjoyce/tooly/internal/launcher Platform,Spawner

import (
	"context"
	"os/exec"
	"strings"
)

// Invocation describes a single process to start.
type Invocation struct {
	Name string
	Args []string
	Dir  string
}

// Command builds an *exec.Cmd for the invocation.
func (i Invocation) Command(ctx context.Context) *exec.Cmd {
	cmd := exec.CommandContext(ctx, i.Name, i.Args...)
	cmd.Dir = i.Dir
	return cmd
}

func (i Invocation) String() string {
	parts := make([]string, 0, len(i.Args)+1)
	parts = append(parts, i.Name)
	parts = append(parts, i.Args...)
	return strings.Join(parts, " ")
}

// Script is a generated terminal script and the extension it must be saved with.
type Script struct {
	Body string
	Ext  string
}

// Platform builds OS-specific invocations.
type Platform interface {
	// OpenWith opens items with the application app. Items may be empty.
	OpenWith(app string, items []string) Invocation
	// OpenTerminal opens scriptPath in an interactive terminal.
	OpenTerminal(scriptPath string, items []string) Invocation
	// Shell runs command non-interactively with items as positional arguments.
	Shell(command string, items []string) Invocation
	// TerminalScript renders the script run by OpenTerminal.
	TerminalScript(target string, items []string, action string) Script
}

// ShellQuote quotes s for POSIX shells so it is read back as exactly one word.
func ShellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// posixShell runs command with bash, skipping profile and rc files so the
// environment stays predictable. Items follow "--" and become $1..$n.
func posixShell(command string, items []string) Invocation {
	args := make([]string, 0, len(items)+5)
	args = append(args, "--noprofile", "--norc", "-c", command, "--")
	args = append(args, items...)
	return Invocation{Name: "bash", Args: args}
}

// posixTerminalScript clears the screen, enters target, sets the positional
// parameters from items, runs action and waits for Enter before clearing again.
func posixTerminalScript(target string, items []string, action string) Script {
	quoted := make([]string, len(items))
	for i, item := range items {
		quoted[i] = ShellQuote(item)
	}

	var b strings.Builder
	b.WriteString("#!/bin/bash\n")
	b.WriteString("clear\n")
	b.WriteString("cd " + ShellQuote(target) + " || exit 1\n")
	b.WriteString("set --")
	if len(quoted) > 0 {
		b.WriteString(" " + strings.Join(quoted, " "))
	}
	b.WriteString("\n")
	b.WriteString(action + "\n")
	b.WriteString("echo\n")
	b.WriteString("echo \"Process finished. Press Enter to close.\"\n")
	b.WriteString("read -r _\n")
	b.WriteString("clear\n")
	return Script{Body: b.String(), Ext: ".command"}
}
