//go:build darwin

package launcher

type darwin struct{}

// Native returns the macOS platform, which delegates to open(1).
func Native() Platform { return darwin{} }

func (darwin) OpenWith(app string, items []string) Invocation {
	args := append([]string{"-a", app}, items...)
	return Invocation{Name: "open", Args: args}
}

// OpenTerminal relies on .command files being bound to Terminal.app.
func (darwin) OpenTerminal(scriptPath string, _ []string) Invocation {
	return Invocation{Name: "open", Args: []string{scriptPath}}
}

func (darwin) Shell(command string, items []string) Invocation {
	return posixShell(command, items)
}

func (darwin) TerminalScript(target string, items []string, action string) Script {
	return posixTerminalScript(target, items, action)
}
