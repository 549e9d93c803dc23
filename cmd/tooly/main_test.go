package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mattjoyce/tooly/internal/api"
	"github.com/mattjoyce/tooly/internal/config"
	"github.com/mattjoyce/tooly/internal/dispatch"
	"github.com/mattjoyce/tooly/internal/doctor"
	"github.com/mattjoyce/tooly/internal/history"
	hostmocks "github.com/mattjoyce/tooly/internal/host/mocks"
	"github.com/mattjoyce/tooly/internal/lock"
	"github.com/mattjoyce/tooly/internal/log"
	"github.com/mattjoyce/tooly/internal/protocol"
)

func TestMain(m *testing.M) {
	log.Setup("ERROR", "json")
	os.Exit(m.Run())
}

func captureOutputWithExitCode(t *testing.T, run func() int) (int, string, string) {
	t.Helper()

	oldStdout := os.Stdout
	oldStderr := os.Stderr

	stdoutR, stdoutW, err := os.Pipe()
	require.NoError(t, err)
	stderrR, stderrW, err := os.Pipe()
	require.NoError(t, err)

	os.Stdout = stdoutW
	os.Stderr = stderrW

	outCh := make(chan []byte, 1)
	errCh := make(chan []byte, 1)
	go func() { b, _ := io.ReadAll(stdoutR); outCh <- b }()
	go func() { b, _ := io.ReadAll(stderrR); errCh <- b }()

	code := run()

	_ = stdoutW.Close()
	_ = stderrW.Close()
	os.Stdout = oldStdout
	os.Stderr = oldStderr

	stdout, stderr := <-outCh, <-errCh
	_ = stdoutR.Close()
	_ = stderrR.Close()
	return code, string(stdout), string(stderr)
}

func runCaptured(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	return captureOutputWithExitCode(t, func() int { return runCLI(args) })
}

// writeConfig creates a config rooted in a temp data dir.
func writeConfig(t *testing.T, extra string) (string, string) {
	t.Helper()
	dataDir := t.TempDir()
	path := filepath.Join(dataDir, "config.yaml")
	content := fmt.Sprintf(`data_dir: %q
service:
  log_level: error
api:
  enabled: false
terminal:
  temp_dir: %q
%s`, dataDir, filepath.Join(dataDir, "term"), extra)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path, dataDir
}

func encode(t *testing.T, in protocol.Instruction) string {
	t.Helper()
	raw, err := protocol.EncodeTrigger(in)
	require.NoError(t, err)
	return raw
}

func TestRunCLI_UsageAndUnknown(t *testing.T) {
	code, _, stderr := runCaptured(t)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "Usage:")

	code, _, stderr = runCaptured(t, "frobnicate")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "Unknown command: frobnicate")

	code, stdout, _ := runCaptured(t, "help")
	assert.Equal(t, 0, code)
	assert.Contains(t, stdout, "tooly open")
}

func TestRunVersionJSON(t *testing.T) {
	code, stdout, _ := runCaptured(t, "version", "--json")
	require.Equal(t, 0, code)

	var info versionInfo
	require.NoError(t, json.Unmarshal([]byte(stdout), &info))
	assert.NotEmpty(t, info.Version)
	assert.NotEmpty(t, info.Commit)
}

func TestOpenLocal_CreateThenHistory(t *testing.T) {
	cfgPath, dataDir := writeConfig(t, "")
	target := t.TempDir()
	raw := encode(t, protocol.Instruction{Target: target, Action: "notes.md|# hi", ActionType: protocol.ActionCreate})

	code, stdout, stderr := runCaptured(t, "open", "--config", cfgPath, "--json", raw)
	require.Equal(t, 0, code, stderr)

	var rep dispatch.Report
	require.NoError(t, json.Unmarshal([]byte(stdout), &rep))
	assert.Equal(t, history.StatusSucceeded, rep.Status)
	assert.Equal(t, filepath.Join(target, "notes.md"), rep.Path)

	data, err := os.ReadFile(filepath.Join(target, "notes.md"))
	require.NoError(t, err)
	assert.Equal(t, "# hi", string(data))

	code, stdout, _ = runCaptured(t, "history", "list", "--config", cfgPath, "--json")
	require.Equal(t, 0, code)
	var entries []api.HistoryEntry
	require.NoError(t, json.Unmarshal([]byte(stdout), &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, rep.TriggerID, entries[0].ID)
	assert.Equal(t, "succeeded", entries[0].Status)

	code, stdout, _ = runCaptured(t, "history", "show", "--config", cfgPath, rep.TriggerID)
	require.Equal(t, 0, code)
	assert.Contains(t, stdout, "notes.md")
	assert.FileExists(t, filepath.Join(dataDir, "history.db"))
}

func TestOpenLocal_SchemeArgument(t *testing.T) {
	cfgPath, _ := writeConfig(t, "")
	t.Setenv(config.EnvConfigPath, cfgPath)
	target := t.TempDir()

	raw := encode(t, protocol.Instruction{Target: target, ActionType: protocol.ActionCreate})
	code, _, stderr := runCaptured(t, raw)
	require.Equal(t, 0, code, stderr)
	assert.FileExists(t, filepath.Join(target, "New File.txt"))
}

func TestOpenLocal_ExitCodes(t *testing.T) {
	cfgPath, _ := writeConfig(t, "history:\n  enabled: false\n")

	code, stdout, _ := runCaptured(t, "open", "--config", cfgPath, "tooly://run?payload=%7Bbroken")
	assert.Equal(t, 2, code)
	assert.Contains(t, stdout, "rejected")

	code, _, _ = runCaptured(t, "open", "--config", cfgPath, "tooly://teleport?payload=x")
	assert.Equal(t, 0, code, "unknown commands are ignored")

	raw := encode(t, protocol.Instruction{Target: t.TempDir(), ActionType: protocol.ActionReplace})
	code, stdout, _ = runCaptured(t, "open", "--config", cfgPath, raw)
	assert.Equal(t, 3, code)
	assert.Contains(t, stdout, "not_implemented")

	code, _, _ = runCaptured(t, "open", "--config", cfgPath)
	assert.Equal(t, 1, code)
}

func TestOpenLocal_ScriptWaitsAndRecords(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("posix shell")
	}
	cfgPath, _ := writeConfig(t, "")
	target := t.TempDir()
	raw := encode(t, protocol.Instruction{
		Target:     target,
		Items:      []string{"one two"},
		Action:     `echo "hi $1"`,
		ActionType: protocol.ActionScript,
	})

	code, stdout, stderr := runCaptured(t, "open", "--config", cfgPath, "--json", raw)
	require.Equal(t, 0, code, stderr)
	var rep dispatch.Report
	require.NoError(t, json.Unmarshal([]byte(stdout), &rep))
	assert.True(t, rep.Async)
	assert.Equal(t, history.StatusRunning, rep.Status)

	code, stdout, _ = runCaptured(t, "history", "show", "--config", cfgPath, "--json", rep.TriggerID)
	require.Equal(t, 0, code)
	var entry api.HistoryEntry
	require.NoError(t, json.Unmarshal([]byte(stdout), &entry))
	assert.Equal(t, "succeeded", entry.Status)
	assert.Equal(t, "hi one two", entry.Stdout)
	require.NotNil(t, entry.ExitCode)
	assert.Equal(t, 0, *entry.ExitCode)
}

func TestOpen_ForwardsToResidentInstance(t *testing.T) {
	cfgPath, _ := writeConfig(t, "")
	cfg, err := config.Load(cfgPath)
	require.NoError(t, err)

	a, err := newApp(context.Background(), cfg, appOptions{})
	require.NoError(t, err)
	defer a.Close()
	server := api.New(api.Config{Service: "tooly"}, a.disp, a.history, a.executor, a.hub, log.WithComponent("api"))
	ts := httptest.NewServer(server.Handler())
	defer ts.Close()

	instance, err := lock.Acquire(cfg.LockPath(), ts.Listener.Addr().String())
	require.NoError(t, err)
	defer instance.Release()

	target := t.TempDir()
	raw := encode(t, protocol.Instruction{Target: target, Action: "forwarded.txt|", ActionType: protocol.ActionCreate})
	code, stdout, stderr := runCaptured(t, "open", "--config", cfgPath, "--json", raw)
	require.Equal(t, 0, code, stderr)

	var rep dispatch.Report
	require.NoError(t, json.Unmarshal([]byte(stdout), &rep))
	assert.FileExists(t, filepath.Join(target, "forwarded.txt"))

	entry, err := a.history.Get(context.Background(), rep.TriggerID)
	require.NoError(t, err, "trigger should be recorded by the resident instance")
	assert.Equal(t, history.StatusSucceeded, entry.Status)
}

func TestOpen_FallsBackWhenResidentUnreachable(t *testing.T) {
	cfgPath, _ := writeConfig(t, "")
	cfg, err := config.Load(cfgPath)
	require.NoError(t, err)

	ts := httptest.NewServer(nil)
	addr := ts.Listener.Addr().String()
	ts.Close()
	instance, err := lock.Acquire(cfg.LockPath(), addr)
	require.NoError(t, err)
	defer instance.Release()

	target := t.TempDir()
	raw := encode(t, protocol.Instruction{Target: target, ActionType: protocol.ActionCreate})
	code, _, stderr := runCaptured(t, "open", "--config", cfgPath, raw)
	require.Equal(t, 0, code, stderr)
	assert.FileExists(t, filepath.Join(target, "New File.txt"))
}

func TestReopenHandler_ShowsMainWindow(t *testing.T) {
	cfgPath, _ := writeConfig(t, "")
	cfg, err := config.Load(cfgPath)
	require.NoError(t, err)

	ctrl := gomock.NewController(t)
	windows := hostmocks.NewMockWindows(ctrl)
	gomock.InOrder(
		windows.EXPECT().ShowMain().Return(nil),
		windows.EXPECT().ShowMain().Return(errors.New("no display")),
	)

	a, err := newApp(context.Background(), cfg, appOptions{host: windows})
	require.NoError(t, err)
	defer a.Close()
	h := reopenHandler{next: a.disp, windows: windows, logger: log.WithComponent("test")}

	target := t.TempDir()
	raw := encode(t, protocol.Instruction{Target: target, ActionType: protocol.ActionCreate})
	rep := h.HandleURL(context.Background(), raw)
	assert.Equal(t, history.StatusSucceeded, rep.Status)

	// A window failure does not stop the trigger.
	rep = h.HandleURL(context.Background(), raw)
	assert.Equal(t, history.StatusSucceeded, rep.Status)
	assert.FileExists(t, filepath.Join(target, "New File (1).txt"))
}

func TestOpen_StalledResidentIsNotRetriedLocally(t *testing.T) {
	cfgPath, _ := writeConfig(t, "")
	cfg, err := config.Load(cfgPath)
	require.NoError(t, err)

	received := make(chan struct{}, 1)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		received <- struct{}{}
		<-r.Context().Done()
	}))
	defer ts.Close()

	instance, err := lock.Acquire(cfg.LockPath(), ts.Listener.Addr().String())
	require.NoError(t, err)
	defer instance.Release()

	old := forwardTimeout
	forwardTimeout = 200 * time.Millisecond
	defer func() { forwardTimeout = old }()

	target := t.TempDir()
	raw := encode(t, protocol.Instruction{Target: target, ActionType: protocol.ActionCreate})
	code, stdout, stderr := runCaptured(t, "open", "--config", cfgPath, raw)
	assert.Equal(t, 1, code)
	assert.Empty(t, stdout)
	assert.Contains(t, stderr, "not retrying")
	assert.Len(t, received, 1)
	assert.NoFileExists(t, filepath.Join(target, "New File.txt"))
}

func TestOpen_RejectedByResidentIsNotRetriedLocally(t *testing.T) {
	cfgPath, _ := writeConfig(t, "")
	cfg, err := config.Load(cfgPath)
	require.NoError(t, err)

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
	}))
	defer ts.Close()
	instance, err := lock.Acquire(cfg.LockPath(), ts.Listener.Addr().String())
	require.NoError(t, err)
	defer instance.Release()

	target := t.TempDir()
	raw := encode(t, protocol.Instruction{Target: target, ActionType: protocol.ActionCreate})
	code, _, stderr := runCaptured(t, "open", "--config", cfgPath, raw)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "401")
	assert.NoFileExists(t, filepath.Join(target, "New File.txt"))
}

const emitSettings = `{
  "order": ["New Note", "%sprt%", "Images Only", "Copy Path"],
  "groups": {},
  "items": {
    "New Note": {"group": "", "targetType": "folder", "iconType": "", "icon": "", "actionType": "create", "action": "note.txt|from menu", "key": "", "enabled": true},
    "Images Only": {"group": "", "targetType": "png", "iconType": "", "icon": "", "actionType": "app", "action": "Preview", "key": "", "enabled": true},
    "Copy Path": {"group": "", "targetType": "any", "iconType": "", "icon": "", "actionType": "copy", "action": "", "key": "", "enabled": true}
  },
  "separators": true
}`

func TestEmit(t *testing.T) {
	cfgPath, dataDir := writeConfig(t, "")
	require.NoError(t, os.WriteFile(filepath.Join(dataDir, "settings.json"), []byte(emitSettings), 0o644))
	folder := t.TempDir()

	code, stdout, stderr := runCaptured(t, "emit", "--config", cfgPath, "--list", folder)
	require.Equal(t, 0, code, stderr)
	assert.Equal(t, []string{"New Note", "Copy Path"}, strings.Split(strings.TrimSpace(stdout), "\n"))

	code, stdout, stderr = runCaptured(t, "emit", "--config", cfgPath, "--item", "New Note", folder)
	require.Equal(t, 0, code, stderr)
	trigger, err := protocol.ParseTrigger(strings.TrimSpace(stdout))
	require.NoError(t, err)
	assert.Equal(t, folder, trigger.Instruction.Target)
	assert.Equal(t, filepath.Join(dataDir, "payload.json"), trigger.Payload)

	code, _, stderr = runCaptured(t, "emit", "--config", cfgPath, "--item", "New Note", "--dispatch", folder)
	require.Equal(t, 0, code, stderr)
	data, err := os.ReadFile(filepath.Join(folder, "note.txt"))
	require.NoError(t, err)
	assert.Equal(t, "from menu", string(data))

	code, _, stderr = runCaptured(t, "emit", "--config", cfgPath, "--item", "Copy Path", folder)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "handled by the extension")
}

func TestEmitInline(t *testing.T) {
	cfgPath, dataDir := writeConfig(t, "")
	require.NoError(t, os.WriteFile(filepath.Join(dataDir, "settings.json"), []byte(emitSettings), 0o644))
	img := filepath.Join(t.TempDir(), "a.png")
	require.NoError(t, os.WriteFile(img, nil, 0o644))

	code, stdout, stderr := runCaptured(t, "emit", "--config", cfgPath, "--inline", "--item", "Images Only", img)
	require.Equal(t, 0, code, stderr)
	trigger, err := protocol.ParseTrigger(strings.TrimSpace(stdout))
	require.NoError(t, err)
	assert.Equal(t, protocol.ActionApp, trigger.Instruction.ActionType)
	assert.Equal(t, []string{img}, trigger.Instruction.Items)
	assert.Equal(t, filepath.Dir(img), trigger.Instruction.Target)
}

func TestHistoryPrune(t *testing.T) {
	cfgPath, _ := writeConfig(t, "")
	code, stdout, stderr := runCaptured(t, "history", "prune", "--config", cfgPath, "--older-than", "1h")
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, "Deleted 0 entries")

	disabled, _ := writeConfig(t, "history:\n  enabled: false\n")
	code, _, stderr = runCaptured(t, "history", "list", "--config", disabled)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "history is disabled")
}

func TestConfigShowRedactsKey(t *testing.T) {
	cfgPath, _ := writeConfig(t, "")
	content, err := os.ReadFile(cfgPath)
	require.NoError(t, err)
	content = []byte(strings.Replace(string(content), "api:\n  enabled: false\n", "api:\n  enabled: false\n  api_key: supersecret\n", 1))
	require.NoError(t, os.WriteFile(cfgPath, content, 0o644))

	code, stdout, stderr := runCaptured(t, "config", "show", "--config", cfgPath)
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, "# source: "+cfgPath)
	assert.Contains(t, stdout, "********")
	assert.NotContains(t, stdout, "supersecret")
}

func TestReportExitCode(t *testing.T) {
	tests := map[history.Status]int{
		history.StatusSucceeded:      0,
		history.StatusRunning:        0,
		history.StatusIgnored:        0,
		history.StatusRejected:       2,
		history.StatusNotImplemented: 3,
		history.StatusFailed:         1,
	}
	for status, want := range tests {
		assert.Equal(t, want, reportExitCode(dispatch.Report{Status: status}), status)
	}
}

func TestConfigCheck(t *testing.T) {
	cfgPath, dataDir := writeConfig(t, "")
	require.NoError(t, os.WriteFile(filepath.Join(dataDir, "settings.json"), []byte(`{"order":["Ghost"],"items":{}}`), 0o644))

	code, stdout, _ := runCaptured(t, "config", "check", "--config", cfgPath)
	assert.Equal(t, 1, code)
	assert.Contains(t, stdout, `item "Ghost" is listed but not defined`)
	assert.Contains(t, stdout, "FAILED")

	require.NoError(t, os.WriteFile(filepath.Join(dataDir, "settings.json"), []byte(emitSettings), 0o644))
	code, stdout, _ = runCaptured(t, "config", "check", "--config", cfgPath, "--json")
	var result doctor.Result
	require.NoError(t, json.Unmarshal([]byte(stdout), &result))
	assert.Equal(t, result.Valid, code == 0)
	for _, e := range result.Errors {
		assert.Equal(t, "platform", e.Category, "only missing platform tools may fail here: %v", e)
	}
}
