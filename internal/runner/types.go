package runner

import (
	"errors"
	"time"
)

type Status string

const (
	StatusSucceeded   Status = "succeeded"
	StatusFailed      Status = "failed"
	StatusTimedOut    Status = "timed_out"
	StatusKilled      Status = "killed"
	StatusSpawnFailed Status = "spawn_failed"
	StatusWaitFailed  Status = "wait_failed"
)

var (
	ErrTimeout = errors.New("script execution timed out")
	ErrKilled  = errors.New("script execution killed")
)

// Result is the final state of a task.
type Result struct {
	TaskID     string
	Command    string
	Status     Status
	ExitCode   int // -1 when the process never exited normally
	Stdout     string
	Stderr     string
	Err        error
	StartedAt  time.Time
	FinishedAt time.Time
}

// Duration returns how long the task ran.
func (r Result) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// OK reports whether the script exited with status zero.
func (r Result) OK() bool {
	return r.Status == StatusSucceeded
}
