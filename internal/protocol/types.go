package protocol

import (
	"errors"
	"fmt"
)

const (
	// Scheme is the custom URL scheme registered for triggers.
	Scheme = "tooly"
	// CommandRun is the only trigger command the dispatcher executes.
	CommandRun = "run"
	// PayloadParam is the query parameter carrying the encoded instruction.
	PayloadParam = "payload"
)

// ActionType selects the handler that processes an Instruction.
type ActionType string

const (
	ActionCreate   ActionType = "create"
	ActionApp      ActionType = "app"
	ActionShortcut ActionType = "shortcut"
	ActionTerminal ActionType = "terminal"
	ActionScript   ActionType = "script"
	ActionReplace  ActionType = "replace"
)

// ActionTypes lists every known action type in dispatch-table order.
var ActionTypes = []ActionType{
	ActionCreate,
	ActionApp,
	ActionShortcut,
	ActionTerminal,
	ActionScript,
	ActionReplace,
}

// Valid reports whether a is one of the known action types.
func (a ActionType) Valid() bool {
	for _, known := range ActionTypes {
		if a == known {
			return true
		}
	}
	return false
}

// Instruction is the decoded payload of a single trigger.
// Items keeps the user's selection order; duplicates are allowed.
type Instruction struct {
	Target     string     `json:"target"`
	TargetType string     `json:"targetType"`
	Items      []string   `json:"items"`
	Action     string     `json:"action"`
	ActionType ActionType `json:"actionType"`
}

// Clone returns a copy that shares no mutable state with in.
func (in Instruction) Clone() Instruction {
	out := in
	if in.Items != nil {
		out.Items = append([]string(nil), in.Items...)
	}
	return out
}

// Trigger is a parsed trigger URL.
type Trigger struct {
	Command     string
	Payload     string // payload after both decoding passes
	Instruction Instruction
}

// ErrUnknownCommand is returned when the trigger command is not "run".
var ErrUnknownCommand = errors.New("unknown command")

// Decode stages reported by DecodeError.
const (
	StageURL     = "url"
	StageQuery   = "query"
	StagePercent = "percent"
	StageJSON    = "json"
	StageField   = "field"
	StageFile    = "file"
)

// DecodeError reports why a trigger could not be turned into an Instruction.
type DecodeError struct {
	Stage string
	Err   error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %v", e.Stage, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

func decodeErr(stage string, format string, args ...any) *DecodeError {
	return &DecodeError{Stage: stage, Err: fmt.Errorf(format, args...)}
}
