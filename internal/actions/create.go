package actions

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/mattjoyce/tooly/internal/protocol"
)

const (
	// DefaultFileName is used when a create action names no file.
	DefaultFileName = "New File.txt"

	createDelimiter = "|"

	// maxCollisionAttempts bounds the suffix search in one directory.
	maxCollisionAttempts = 10000
)

func handleCreate(_ context.Context, in protocol.Instruction) (Outcome, error) {
	if in.Target == "" {
		return Outcome{}, ErrTargetMissing
	}

	name, content := SplitCreateAction(in.Action)
	path, err := CreateFile(in.Target, name, content)
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{Path: path, Detail: "created " + filepath.Base(path)}, nil
}

// SplitCreateAction splits "name|content" at the first delimiter. A missing
// or empty name becomes DefaultFileName and missing content is empty.
func SplitCreateAction(action string) (name, content string) {
	name, content, _ = strings.Cut(action, createDelimiter)
	if strings.TrimSpace(name) == "" {
		name = DefaultFileName
	}
	return name, content
}

// CreateFile writes content to the first free name in dir out of
// name, "stem (1).ext", "stem (2).ext" and so on. Each candidate is created
// exclusively so an existing file is never overwritten.
func CreateFile(dir, name, content string) (string, error) {
	if name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return "", &FSError{Op: "create", Path: filepath.Join(dir, name), Err: fs.ErrInvalid}
	}

	stem, ext := splitExt(name)
	for n := 0; n < maxCollisionAttempts; n++ {
		candidate := name
		if n > 0 {
			candidate = fmt.Sprintf("%s (%d)%s", stem, n, ext)
		}
		path := filepath.Join(dir, candidate)

		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return "", &FSError{Op: "create", Path: path, Err: err}
		}

		_, werr := f.WriteString(content)
		cerr := f.Close()
		if werr != nil {
			return "", &FSError{Op: "write", Path: path, Err: werr}
		}
		if cerr != nil {
			return "", &FSError{Op: "close", Path: path, Err: cerr}
		}
		return path, nil
	}
	return "", &FSError{
		Op:   "create",
		Path: filepath.Join(dir, name),
		Err:  fmt.Errorf("no free name after %d attempts", maxCollisionAttempts),
	}
}

// splitExt splits at the last '.'. A name whose only dot is the leading one
// has no extension.
func splitExt(name string) (stem, ext string) {
	i := strings.LastIndex(name, ".")
	if i <= 0 {
		return name, ""
	}
	return name[:i], name[i:]
}
