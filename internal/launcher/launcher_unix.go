//go:build !darwin && !windows

package launcher

import "os/exec"

type freedesktop struct {
	terminal string
}

// Native returns the freedesktop platform. Applications are opened with
// xdg-open; terminal scripts go to x-terminal-emulator when it is installed.
func Native() Platform {
	p := freedesktop{}
	if path, err := exec.LookPath("x-terminal-emulator"); err == nil {
		p.terminal = path
	}
	return p
}

func (freedesktop) OpenWith(app string, items []string) Invocation {
	args := append([]string{app}, items...)
	return Invocation{Name: "xdg-open", Args: args}
}

func (p freedesktop) OpenTerminal(scriptPath string, _ []string) Invocation {
	if p.terminal != "" {
		return Invocation{Name: p.terminal, Args: []string{"-e", scriptPath}}
	}
	return Invocation{Name: "xdg-open", Args: []string{scriptPath}}
}

func (freedesktop) Shell(command string, items []string) Invocation {
	return posixShell(command, items)
}

func (freedesktop) TerminalScript(target string, items []string, action string) Script {
	return posixTerminalScript(target, items, action)
}
