//go:build windows

package lock

import (
	"errors"
	"fmt"
	"os"
)

// Windows has no flock; exclusive creation marks ownership and the file is
// removed on release. A crash leaves a stale file behind that must be
// deleted by hand.
func openLocked(lockPath string) (*os.File, error) {
	f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_RDWR, 0o644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return nil, ErrHeld
		}
		return nil, fmt.Errorf("open lock file: %w", err)
	}
	return f, nil
}

func unlock(*os.File) error { return nil }

func removeAfterRelease(path string) { _ = os.Remove(path) }
