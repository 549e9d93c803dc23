package launcher

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShellQuote(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "plain", want: "'plain'"},
		{in: "with space", want: "'with space'"},
		{in: "it's", want: `'it'\''s'`},
		{in: `"double"`, want: `'"double"'`},
		{in: "", want: "''"},
		{in: "$HOME `x`", want: "'$HOME `x`'"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ShellQuote(tt.in), tt.in)
	}
}

func TestPosixShell(t *testing.T) {
	inv := posixShell("echo hi", []string{"/tmp/a b", "/tmp/c"})

	assert.Equal(t, "bash", inv.Name)
	assert.Equal(t, []string{"--noprofile", "--norc", "-c", "echo hi", "--", "/tmp/a b", "/tmp/c"}, inv.Args)
}

func TestPosixTerminalScript(t *testing.T) {
	script := posixTerminalScript("/tmp/my dir", []string{"/tmp/my dir/it's.txt"}, "ls -la \"$@\"")

	assert.Equal(t, ".command", script.Ext)
	lines := strings.Split(strings.TrimRight(script.Body, "\n"), "\n")
	assert.Equal(t, []string{
		"#!/bin/bash",
		"clear",
		"cd '/tmp/my dir' || exit 1",
		`set -- '/tmp/my dir/it'\''s.txt'`,
		`ls -la "$@"`,
		"echo",
		`echo "Process finished. Press Enter to close."`,
		"read -r _",
		"clear",
	}, lines)
}

func TestPosixTerminalScript_NoItems(t *testing.T) {
	script := posixTerminalScript("/tmp", nil, "pwd")
	assert.Contains(t, script.Body, "\nset --\n")
}

func TestInvocationString(t *testing.T) {
	inv := Invocation{Name: "open", Args: []string{"-a", "TextEdit"}}
	assert.Equal(t, "open -a TextEdit", inv.String())
}

func TestNativeShellKeepsItemsSeparate(t *testing.T) {
	items := []string{"a", "b c"}
	inv := Native().Shell("true", items)

	assert.NotEmpty(t, inv.Name)
	assert.Equal(t, items, inv.Args[len(inv.Args)-len(items):])
}
