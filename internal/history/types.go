package history

import (
	"errors"
	"time"

	"github.com/mattjoyce/tooly/internal/protocol"
)

type Status string

const (
	StatusReceived       Status = "received"
	StatusRunning        Status = "running"
	StatusSucceeded      Status = "succeeded"
	StatusFailed         Status = "failed"
	StatusTimedOut       Status = "timed_out"
	StatusKilled         Status = "killed"
	StatusRejected       Status = "rejected"
	StatusIgnored        Status = "ignored"
	StatusNotImplemented Status = "not_implemented"
)

// Terminal reports whether no further update is expected for the entry.
func (s Status) Terminal() bool {
	switch s {
	case StatusReceived, StatusRunning:
		return false
	default:
		return true
	}
}

var ErrNotFound = errors.New("history entry not found")

// Entry is one trigger as recorded in the action log.
type Entry struct {
	ID            string
	Command       string
	ActionType    protocol.ActionType
	Target        string
	Items         []string
	Action        string
	PayloadDigest string
	Status        Status
	Detail        string
	Error         string
	Stdout        string
	Stderr        string
	ExitCode      *int
	CreatedAt     time.Time
	CompletedAt   *time.Time
}

// Completion is the final state written by Complete.
type Completion struct {
	Status   Status
	Detail   string
	Error    string
	Stdout   string
	Stderr   string
	ExitCode *int
}
