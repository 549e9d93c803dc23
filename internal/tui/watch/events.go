package watch

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/mattjoyce/tooly/internal/events"
)

const maxEventLines = 10

func renderEventStream(eventLog []events.Event, theme Theme, width int) string {
	innerWidth := width - 4
	title := theme.Title.Render("EVENT STREAM")

	if len(eventLog) == 0 {
		return theme.Border.Width(innerWidth).Render(
			lipgloss.JoinVertical(lipgloss.Left, title, theme.Dim.Render("  Waiting for events...")))
	}

	var lines []string
	for i, e := range eventLog {
		if i >= maxEventLines {
			break
		}
		lines = append(lines, formatEvent(e, theme))
	}
	body := lipgloss.NewStyle().Padding(0, 1).Render(strings.Join(lines, "\n"))
	return theme.Border.Width(innerWidth).Render(lipgloss.JoinVertical(lipgloss.Left, title, body))
}

func formatEvent(e events.Event, theme Theme) string {
	ts := theme.Dim.Render(e.At.Format("15:04:05"))

	var typeStyle lipgloss.Style
	switch e.Type {
	case events.ActionCompleted:
		typeStyle = theme.StatusOK
	case events.ActionFailed, events.TriggerRejected:
		typeStyle = theme.StatusFailed
	case events.ScriptStarted, events.TriggerReceived:
		typeStyle = theme.StatusRunning
	case events.ScriptFinished:
		typeStyle = theme.Highlight
	default:
		typeStyle = theme.Dim
	}
	typeName := typeStyle.Render(fmt.Sprintf("%-17s", e.Type))

	return fmt.Sprintf("%s %s %s", ts, typeName, describeEvent(e))
}

func describeEvent(e events.Event) string {
	var data events.TriggerData
	if err := json.Unmarshal(e.Data, &data); err != nil || data.TriggerID == "" {
		raw := string(e.Data)
		if len(raw) > 60 {
			raw = raw[:60] + "..."
		}
		return raw
	}

	id := data.TriggerID
	if len(id) > 8 {
		id = id[:8]
	}
	parts := []string{fmt.Sprintf("[%s]", id)}
	for _, s := range []string{data.ActionType, data.Status, data.Target} {
		if s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " ")
}
