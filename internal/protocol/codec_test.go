package protocol

import (
	"errors"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// doubleEncode mimics an emitter that percent-encodes the JSON (spaces as %20,
// like encodeURIComponent) and then places it in a query string, encoding it again.
func doubleEncode(payload string) string {
	once := strings.ReplaceAll(url.QueryEscape(payload), "+", "%20")
	return "tooly://run?payload=" + url.QueryEscape(once)
}

func TestParseTrigger_RoundTrip(t *testing.T) {
	tests := []struct {
		name string
		in   Instruction
	}{
		{
			name: "script with items",
			in: Instruction{
				Target:     "/tmp/x",
				TargetType: "folder",
				Items:      []string{"/tmp/x/a.txt", "/tmp/x/a.txt"},
				Action:     "echo hi",
				ActionType: ActionScript,
			},
		},
		{
			name: "create with separators and unicode",
			in: Instruction{
				Target:     "/Users/me/Desktop/Ünïcødé dir",
				Items:      []string{},
				Action:     "notes+todo.md|# Title & more = 100%",
				ActionType: ActionCreate,
			},
		},
		{
			name: "quotes and shell characters",
			in: Instruction{
				Target:     "/tmp",
				Items:      []string{`/tmp/it's "quoted".txt`, "/tmp/a b;c"},
				Action:     `for f in "$@"; do echo "$f"; done`,
				ActionType: ActionTerminal,
			},
		},
		{
			name: "nil items",
			in: Instruction{
				Target:     "/Applications",
				Action:     "/Applications/TextEdit.app",
				ActionType: ActionApp,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, err := EncodeTrigger(tt.in)
			require.NoError(t, err)

			trigger, err := ParseTrigger(raw)
			require.NoError(t, err)
			assert.Equal(t, CommandRun, trigger.Command)
			assert.Equal(t, tt.in, trigger.Instruction)
		})
	}
}

func TestParseTrigger_ExternalDoubleEncoding(t *testing.T) {
	payload := `{"target":"/tmp/x","targetType":"folder","items":["/tmp/x/a b.txt"],"action":"echo hi","actionType":"script"}`

	trigger, err := ParseTrigger(doubleEncode(payload))
	require.NoError(t, err)

	assert.Equal(t, payload, trigger.Payload)
	assert.Equal(t, Instruction{
		Target:     "/tmp/x",
		TargetType: "folder",
		Items:      []string{"/tmp/x/a b.txt"},
		Action:     "echo hi",
		ActionType: ActionScript,
	}, trigger.Instruction)
}

func TestParseTrigger_LiteralPlusSurvivesSecondPass(t *testing.T) {
	// Emitters that leave '+' unescaped in the first pass must not have it
	// turned into a space.
	inner := strings.ReplaceAll(url.PathEscape(`{"action":"c++ main.cc","actionType":"script"}`), "%2B", "+")
	trigger, err := ParseTrigger("tooly://run?payload=" + url.QueryEscape(inner))
	require.NoError(t, err)
	assert.Equal(t, "c++ main.cc", trigger.Instruction.Action)
}

func TestParseTrigger_UnknownCommand(t *testing.T) {
	trigger, err := ParseTrigger("tooly://open?payload=%7B%7D")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownCommand))
	require.NotNil(t, trigger)
	assert.Equal(t, "open", trigger.Command)
	assert.Empty(t, trigger.Payload)
}

func TestParseTrigger_DecodeFailures(t *testing.T) {
	tests := []struct {
		name  string
		raw   string
		stage string
	}{
		{name: "malformed url", raw: "tooly://run\x7f?payload=x", stage: StageURL},
		{name: "malformed query escape", raw: "tooly://run?payload=%zz", stage: StageQuery},
		{name: "malformed inner escape", raw: "tooly://run?payload=" + url.QueryEscape("%zz"), stage: StagePercent},
		{name: "missing payload", raw: "tooly://run?other=1", stage: StageField},
		{name: "empty payload", raw: "tooly://run?payload=", stage: StageField},
		{name: "truncated object", raw: doubleEncode(`{"target":"/tmp","actionType":"create"`), stage: StageJSON},
		{name: "trailing data", raw: doubleEncode(`{"actionType":"create"} {}`), stage: StageJSON},
		{name: "wrong field type", raw: doubleEncode(`{"items":"nope","actionType":"create"}`), stage: StageJSON},
		{name: "missing action type", raw: doubleEncode(`{"target":"/tmp","action":"x"}`), stage: StageField},
		{name: "missing payload file", raw: doubleEncode(filepath.Join(os.TempDir(), "tooly-does-not-exist", "payload.json")), stage: StageFile},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseTrigger(tt.raw)
			require.Error(t, err)

			var decErr *DecodeError
			require.True(t, errors.As(err, &decErr), "expected DecodeError, got %T: %v", err, err)
			assert.Equal(t, tt.stage, decErr.Stage)
		})
	}
}

func TestParseTrigger_PayloadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "payload.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"target":"/tmp","targetType":"folder","items":["/tmp/a"],"action":"New.txt|","actionType":"create"}`), 0o644))

	trigger, err := ParseTrigger(doubleEncode(path))
	require.NoError(t, err)
	assert.Equal(t, path, trigger.Payload)
	assert.Equal(t, ActionCreate, trigger.Instruction.ActionType)
	assert.Equal(t, []string{"/tmp/a"}, trigger.Instruction.Items)
}

func TestEncodeFileTrigger(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "100% sure")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	path := filepath.Join(dir, "payload.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"actionType":"script","action":"ls"}`), 0o644))

	raw, err := EncodeFileTrigger(path)
	require.NoError(t, err)

	trigger, err := ParseTrigger(raw)
	require.NoError(t, err)
	assert.Equal(t, path, trigger.Payload)
	assert.Equal(t, ActionScript, trigger.Instruction.ActionType)

	_, err = EncodeFileTrigger("relative/payload.json")
	assert.Error(t, err)
}

func TestParseTrigger_PayloadFileTooLarge(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "payload.json")
	big := `{"actionType":"create","action":"` + strings.Repeat("a", maxPayloadFileBytes) + `"}`
	require.NoError(t, os.WriteFile(path, []byte(big), 0o644))

	_, err := ParseTrigger(doubleEncode(path))
	var decErr *DecodeError
	require.True(t, errors.As(err, &decErr))
	assert.Equal(t, StageFile, decErr.Stage)
}

func TestInstructionClone(t *testing.T) {
	in := Instruction{Items: []string{"a", "b"}, ActionType: ActionScript}
	out := in.Clone()
	out.Items[0] = "changed"

	assert.Equal(t, "a", in.Items[0])
	assert.Nil(t, Instruction{}.Clone().Items)
}

func TestActionTypeValid(t *testing.T) {
	for _, a := range ActionTypes {
		assert.True(t, a.Valid(), a)
	}
	assert.False(t, ActionType("teleport").Valid())
	assert.False(t, ActionType("").Valid())
}
