package menu

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mattjoyce/tooly/internal/protocol"
)

const sampleSettings = `{
  "order": ["New Text File", "%sprt%", "Open in Code", "Convert Images", "Copy Path", "Disabled", "Missing"],
  "groups": {"Dev": {"iconType": "sf", "icon": "hammer"}},
  "items": {
    "New Text File": {"group": "", "targetType": "folder", "iconType": "", "icon": "", "actionType": "create", "action": "New File.txt|", "key": "", "enabled": true},
    "Open in Code": {"group": "Dev", "targetType": "any", "iconType": "", "icon": "", "actionType": "app", "action": "/Applications/Visual Studio Code.app", "key": "", "enabled": true},
    "Convert Images": {"group": "", "targetType": "png, JPG", "iconType": "", "icon": "", "actionType": "script", "action": "sips -s format webp \"$@\"", "key": "", "enabled": true},
    "Copy Path": {"group": "", "targetType": "any", "iconType": "", "icon": "", "actionType": "copy", "action": "", "key": "", "enabled": true},
    "Disabled": {"group": "", "targetType": "any", "iconType": "", "icon": "", "actionType": "terminal", "action": "ls", "key": "", "enabled": false}
  },
  "separators": true
}`

func loadSample(t *testing.T) *Settings {
	t.Helper()
	path := filepath.Join(t.TempDir(), "settings.json")
	require.NoError(t, os.WriteFile(path, []byte(sampleSettings), 0o644))
	s, err := LoadSettings(path)
	require.NoError(t, err)
	return s
}

func TestLoadSettings(t *testing.T) {
	s := loadSample(t)
	assert.True(t, s.Separators)
	assert.Len(t, s.Items, 5)
	assert.Equal(t, "hammer", s.Groups["Dev"].Icon)

	_, err := LoadSettings(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestItemMatches(t *testing.T) {
	folder := Selection{Path: "/tmp/dir", Dir: true}
	png := Selection{Path: "/tmp/a.PNG"}
	txt := Selection{Path: "/tmp/b.txt"}
	noExt := Selection{Path: "/tmp/Makefile"}

	tests := []struct {
		targetType string
		selected   []Selection
		want       bool
	}{
		{"any", nil, true},
		{"folder", []Selection{folder}, true},
		{"folder", []Selection{txt}, false},
		{"file", []Selection{folder, txt}, true},
		{"file", []Selection{folder}, false},
		{"png,jpg", []Selection{png}, true},
		{"png, .jpg", []Selection{txt, png}, true},
		{"png,jpg", []Selection{txt}, false},
		{"png,", []Selection{noExt}, false},
	}
	for _, tt := range tests {
		got := Item{TargetType: tt.targetType}.Matches(tt.selected)
		assert.Equal(t, tt.want, got, "%s %v", tt.targetType, tt.selected)
	}
}

func TestVisible(t *testing.T) {
	s := loadSample(t)

	assert.Equal(t,
		[]string{"New Text File", "Open in Code", "Copy Path"},
		s.Visible([]Selection{{Path: "/tmp/dir", Dir: true}}))
	assert.Equal(t,
		[]string{"Open in Code", "Convert Images", "Copy Path"},
		s.Visible([]Selection{{Path: "/tmp/a.png"}}))
}

func TestInstruction(t *testing.T) {
	s := loadSample(t)
	sel := []Selection{{Path: "/tmp/a.png"}, {Path: "/tmp/b.jpg"}}

	in, err := s.Instruction("Convert Images", "/tmp", sel)
	require.NoError(t, err)
	assert.Equal(t, protocol.Instruction{
		Target:     "/tmp",
		TargetType: "png, JPG",
		Items:      []string{"/tmp/a.png", "/tmp/b.jpg"},
		Action:     `sips -s format webp "$@"`,
		ActionType: protocol.ActionScript,
	}, in)

	_, err = s.Instruction("Missing", "/tmp", nil)
	assert.ErrorIs(t, err, ErrUnknownItem)
	_, err = s.Instruction("Disabled", "/tmp", nil)
	assert.ErrorIs(t, err, ErrItemDisabled)
	_, err = s.Instruction("Copy Path", "/tmp", nil)
	assert.ErrorIs(t, err, ErrLocalAction)
}

func TestSelect(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "a.txt")
	require.NoError(t, os.WriteFile(file, nil, 0o644))

	got := Select(dir, file, filepath.Join(dir, "missing"))
	assert.Equal(t, []Selection{
		{Path: dir, Dir: true},
		{Path: file},
		{Path: filepath.Join(dir, "missing")},
	}, got)
}

func TestWritePayloadFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Tooly", "payload.json")
	in := protocol.Instruction{Target: "/tmp", Items: []string{"/tmp/a b"}, Action: "echo", ActionType: protocol.ActionScript}

	require.NoError(t, WritePayloadFile(path, in))

	raw, err := protocol.EncodeFileTrigger(path)
	require.NoError(t, err)
	trigger, err := protocol.ParseTrigger(raw)
	require.NoError(t, err)
	assert.Equal(t, in, trigger.Instruction)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file left behind")
}
