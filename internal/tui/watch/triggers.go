package watch

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/mattjoyce/tooly/internal/events"
)

const maxTriggers = 50

// TriggerState is what the monitor knows about one trigger.
type TriggerState struct {
	ID         string
	ActionType string
	Target     string
	Status     string
	Detail     string
	Error      string
	Received   time.Time
	Finished   time.Time

	done bool
}

// Triggers holds the most recent triggers, newest first.
type Triggers struct {
	byID  map[string]*TriggerState
	order []string
}

func NewTriggers() *Triggers {
	return &Triggers{byID: make(map[string]*TriggerState)}
}

// Apply folds ev into the trigger it belongs to.
func (t *Triggers) Apply(ev events.Event) {
	var data events.TriggerData
	if err := json.Unmarshal(ev.Data, &data); err != nil || data.TriggerID == "" {
		return
	}

	st, ok := t.byID[data.TriggerID]
	if !ok {
		st = &TriggerState{ID: data.TriggerID, Received: ev.At}
		t.byID[st.ID] = st
		t.order = append([]string{st.ID}, t.order...)
		if len(t.order) > maxTriggers {
			for _, id := range t.order[maxTriggers:] {
				delete(t.byID, id)
			}
			t.order = t.order[:maxTriggers]
		}
	}

	if data.ActionType != "" {
		st.ActionType = data.ActionType
	}
	if data.Target != "" {
		st.Target = data.Target
	}
	if data.Detail != "" {
		st.Detail = data.Detail
	}
	if data.Error != "" {
		st.Error = data.Error
	}

	switch ev.Type {
	case events.TriggerReceived:
		if st.Status == "" {
			st.Status = "received"
		}
	case events.ScriptStarted:
		// A fast script can finish before its start is announced.
		if !st.done {
			st.Status = "running"
		}
	default:
		if data.Status != "" {
			st.Status = data.Status
		}
		st.Finished = ev.At
		st.done = true
	}
}

// Len reports how many triggers are tracked.
func (t *Triggers) Len() int { return len(t.order) }

// Get returns the tracked trigger with id.
func (t *Triggers) Get(id string) (*TriggerState, bool) {
	st, ok := t.byID[id]
	return st, ok
}

// Active counts triggers still waiting for a script to finish.
func (t *Triggers) Active() int {
	n := 0
	for _, st := range t.byID {
		if st.Status == "running" || st.Status == "received" {
			n++
		}
	}
	return n
}

func renderTriggers(t *Triggers, selected int, theme Theme, width int) string {
	innerWidth := width - 4
	title := theme.Title.Render("TRIGGERS")
	if t.Len() == 0 {
		return theme.Border.Width(innerWidth).Render(
			lipgloss.JoinVertical(lipgloss.Left, title, theme.Dim.Render("  No triggers yet...")))
	}

	lines := []string{title}
	for i, id := range t.order {
		if i >= 12 {
			break
		}
		lines = append(lines, formatTrigger(t.byID[id], i == selected, theme))
	}
	if st, ok := t.byID[t.order[min(selected, t.Len()-1)]]; ok && st.Error != "" {
		lines = append(lines, theme.StatusFailed.Render("  "+st.Error))
	}
	return theme.Border.Width(innerWidth).Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

func formatTrigger(st *TriggerState, selected bool, theme Theme) string {
	cursor := "  "
	if selected {
		cursor = theme.Highlight.Render("▸ ")
	}

	duration := "-"
	if !st.Received.IsZero() {
		end := st.Finished
		if end.IsZero() {
			end = time.Now()
		}
		duration = end.Sub(st.Received).Round(time.Millisecond).String()
	}

	id := st.ID
	if len(id) > 8 {
		id = id[:8]
	}
	status := theme.statusStyle(st.Status).Render(fmt.Sprintf("%-15s", st.Status))
	target := st.Target
	if st.Detail != "" {
		target = st.Detail
	}
	return strings.TrimRight(fmt.Sprintf("%s%s %-9s %s %8s  %s",
		cursor, theme.Dim.Render(id), st.ActionType, status, duration, target), " ")
}
