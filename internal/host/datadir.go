package host

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// AppName names the per-user application data directory.
const AppName = "Tooly"

// markerFile is created on first launch; its absence means first run.
const markerFile = "config.json"

// DataDir returns the per-user application data directory.
func DataDir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve user config dir: %w", err)
	}
	return filepath.Join(base, AppName), nil
}

// EnsureFirstRun creates dir and the first-run marker inside it. It reports
// true when the marker did not exist before the call.
func EnsureFirstRun(dir string) (bool, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return false, fmt.Errorf("create data dir: %w", err)
	}

	path := filepath.Join(dir, markerFile)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if errors.Is(err, fs.ErrExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("create first-run marker: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString("{}"); err != nil {
		return true, fmt.Errorf("write first-run marker: %w", err)
	}
	return true, nil
}
