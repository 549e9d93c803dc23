package api

import (
	"time"

	"github.com/mattjoyce/tooly/internal/history"
)

// TriggerRequest is the JSON body for POST /trigger.
type TriggerRequest struct {
	URL string `json:"url"`
}

// ErrorResponse is returned on errors
type ErrorResponse struct {
	Error string `json:"error"`
}

// HealthzResponse is returned by GET /healthz.
type HealthzResponse struct {
	Status        string `json:"status"`
	Service       string `json:"service"`
	UptimeSeconds int64  `json:"uptime_seconds"`
	ScriptsActive int    `json:"scripts_active"`
	History       bool   `json:"history"`
}

// HistoryEntry is the wire form of a history.Entry.
type HistoryEntry struct {
	ID            string     `json:"id"`
	Command       string     `json:"command"`
	ActionType    string     `json:"action_type,omitempty"`
	Target        string     `json:"target,omitempty"`
	Items         []string   `json:"items"`
	Action        string     `json:"action,omitempty"`
	PayloadDigest string     `json:"payload_digest"`
	Status        string     `json:"status"`
	Detail        string     `json:"detail,omitempty"`
	Error         string     `json:"error,omitempty"`
	Stdout        string     `json:"stdout,omitempty"`
	Stderr        string     `json:"stderr,omitempty"`
	ExitCode      *int       `json:"exit_code,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
}

// HistoryResponse is returned by GET /history.
type HistoryResponse struct {
	Entries []HistoryEntry `json:"entries"`
}

// NewHistoryEntry converts a stored entry to its wire form.
func NewHistoryEntry(e history.Entry) HistoryEntry {
	items := e.Items
	if items == nil {
		items = []string{}
	}
	return HistoryEntry{
		ID:            e.ID,
		Command:       e.Command,
		ActionType:    string(e.ActionType),
		Target:        e.Target,
		Items:         items,
		Action:        e.Action,
		PayloadDigest: e.PayloadDigest,
		Status:        string(e.Status),
		Detail:        e.Detail,
		Error:         e.Error,
		Stdout:        e.Stdout,
		Stderr:        e.Stderr,
		ExitCode:      e.ExitCode,
		CreatedAt:     e.CreatedAt,
		CompletedAt:   e.CompletedAt,
	}
}
