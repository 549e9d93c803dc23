//go:build windows

package launcher

import "strings"

type windows struct{}

// Native returns the Windows platform, which goes through cmd.exe "start".
func Native() Platform { return windows{} }

func (windows) OpenWith(app string, items []string) Invocation {
	args := append([]string{"/C", "start", "", app}, items...)
	return Invocation{Name: "cmd", Args: args}
}

// OpenTerminal keeps the console open with /K; items reach the batch file as %1..%n.
func (windows) OpenTerminal(scriptPath string, items []string) Invocation {
	args := append([]string{"/C", "start", "cmd", "/K", scriptPath}, items...)
	return Invocation{Name: "cmd", Args: args}
}

func (windows) Shell(command string, items []string) Invocation {
	args := append([]string{"/C", command}, items...)
	return Invocation{Name: "cmd", Args: args}
}

func (windows) TerminalScript(target string, _ []string, action string) Script {
	var b strings.Builder
	b.WriteString("@echo off\r\n")
	b.WriteString("cls & cd /d \"" + target + "\" & " + action + "\r\n")
	b.WriteString("echo.\r\n")
	b.WriteString("echo Process finished. Press Enter to close.\r\n")
	b.WriteString("pause >nul & cls\r\n")
	return Script{Body: b.String(), Ext: ".bat"}
}
