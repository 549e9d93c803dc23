package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Mount describes the filesystem that holds (or would hold) a path.
type Mount struct {
	// Probed is the nearest existing ancestor that was inspected.
	Probed  string
	Type    string
	Network bool
}

// Filesystem names on which SQLite file locking is unreliable.
var remoteTypes = []string{"afpfs", "cifs", "nfs", "nfs4", "smbfs", "smb2", "webdav", "fuse.sshfs"}

// ProbeMount reports the filesystem path would be created on.
func ProbeMount(path string) (Mount, error) {
	return probeMount(path, detectFilesystemType)
}

func probeMount(path string, detect func(string) (string, error)) (Mount, error) {
	probed, err := existingAncestor(path)
	if err != nil {
		return Mount{}, err
	}
	fsType, err := detect(probed)
	if err != nil {
		return Mount{}, fmt.Errorf("detect filesystem for %q: %w", probed, err)
	}
	return Mount{Probed: probed, Type: fsType, Network: isRemote(fsType)}, nil
}

// requireLocal refuses a history database on a network share.
func requireLocal(path string, detect func(string) (string, error)) error {
	m, err := probeMount(path, detect)
	if err != nil {
		return fmt.Errorf("check history path: %w", err)
	}
	if m.Network {
		return fmt.Errorf("history database %q is on %s, which SQLite cannot lock reliably; point history.path at a local disk or set history.enabled: false", path, m.Type)
	}
	return nil
}

func existingAncestor(path string) (string, error) {
	p, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve %q: %w", path, err)
	}
	for {
		_, err := os.Stat(p)
		switch {
		case err == nil:
			return p, nil
		case !errors.Is(err, os.ErrNotExist):
			return "", fmt.Errorf("stat %q: %w", p, err)
		}
		parent := filepath.Dir(p)
		if parent == p {
			return "", fmt.Errorf("no existing ancestor of %q", path)
		}
		p = parent
	}
}

func isRemote(fsType string) bool {
	t := strings.ToLower(strings.TrimSpace(fsType))
	for _, r := range remoteTypes {
		if t == r {
			return true
		}
	}
	return false
}
