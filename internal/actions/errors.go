package actions

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownAction is returned by Route for an action type with no handler.
	ErrUnknownAction = errors.New("unknown action type")

	// ErrNotImplemented marks an action that is accepted but has no effect yet.
	ErrNotImplemented = errors.New("action not implemented")

	// ErrTargetMissing is returned when an action needs a target and none was given.
	ErrTargetMissing = errors.New("instruction has no target")
)

// FSError is a filesystem failure with the path it concerns.
type FSError struct {
	Op   string
	Path string
	Err  error
}

func (e *FSError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *FSError) Unwrap() error { return e.Err }

// SpawnError is a process that could not be started.
type SpawnError struct {
	Command string
	Err     error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("spawn %q: %v", e.Command, e.Err)
}

func (e *SpawnError) Unwrap() error { return e.Err }
