// Package lock provides the single-instance guard for a resident tooly
// process. The lock file records the holder's PID and, when it serves the
// local API, the address a second invocation should forward triggers to.
package lock

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// ErrHeld is returned when another process holds the lock.
var ErrHeld = errors.New("instance lock held by another process")

// Owner describes the process recorded in a lock file.
type Owner struct {
	PID  int
	Addr string
}

// InstanceLock is held for the lifetime of the resident process.
// Keep the lock alive by keeping the file descriptor open.
type InstanceLock struct {
	path string
	f    *os.File
}

func (l *InstanceLock) Path() string { return l.path }

// Acquire takes the lock at lockPath and records the current PID and addr.
// addr may be empty.
func Acquire(lockPath, addr string) (*InstanceLock, error) {
	if lockPath == "" {
		return nil, fmt.Errorf("lock path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(lockPath), 0o755); err != nil {
		return nil, fmt.Errorf("create lock directory: %w", err)
	}

	f, err := openLocked(lockPath)
	if err != nil {
		return nil, err
	}

	if err := writeOwner(f, Owner{PID: os.Getpid(), Addr: addr}); err != nil {
		_ = unlock(f)
		_ = f.Close()
		return nil, err
	}
	return &InstanceLock{path: lockPath, f: f}, nil
}

// SetAddr rewrites the recorded API address once the listener is known.
func (l *InstanceLock) SetAddr(addr string) error {
	if l == nil || l.f == nil {
		return fmt.Errorf("lock not held")
	}
	return writeOwner(l.f, Owner{PID: os.Getpid(), Addr: addr})
}

func (l *InstanceLock) Release() error {
	if l == nil || l.f == nil {
		return nil
	}
	_ = unlock(l.f)
	err := l.f.Close()
	l.f = nil
	removeAfterRelease(l.path)
	return err
}

// ReadOwner parses the lock file at lockPath. It does not check whether the
// lock is still held.
func ReadOwner(lockPath string) (Owner, error) {
	f, err := os.Open(lockPath)
	if err != nil {
		return Owner{}, err
	}
	defer f.Close()

	var o Owner
	sc := bufio.NewScanner(f)
	if sc.Scan() {
		pid, err := strconv.Atoi(strings.TrimSpace(sc.Text()))
		if err != nil {
			return Owner{}, fmt.Errorf("parse pid in %s: %w", lockPath, err)
		}
		o.PID = pid
	}
	if sc.Scan() {
		o.Addr = strings.TrimSpace(sc.Text())
	}
	return o, sc.Err()
}

func writeOwner(f *os.File, o Owner) error {
	if err := f.Truncate(0); err != nil {
		return fmt.Errorf("truncate lock file: %w", err)
	}
	if _, err := f.Seek(0, 0); err != nil {
		return fmt.Errorf("seek lock file: %w", err)
	}
	if _, err := fmt.Fprintf(f, "%d\n%s\n", o.PID, o.Addr); err != nil {
		return fmt.Errorf("write lock owner: %w", err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("sync lock file: %w", err)
	}
	return nil
}
