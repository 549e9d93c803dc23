package watch

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// HealthState tracks the resident instance from /healthz polling.
type HealthState struct {
	Status        string
	Service       string
	UptimeSeconds int64
	ScriptsActive int
	History       bool
	Connected     bool
	LastCheck     time.Time
}

func renderHeader(health HealthState, activity Activity, theme Theme, width int, now time.Time) string {
	innerWidth := width - 4

	statusText := theme.StatusOK.Render("RUNNING")
	if !health.Connected {
		statusText = theme.StatusFailed.Render("CONNECTING")
	} else if health.Status != "ok" && health.Status != "" {
		statusText = theme.StatusFailed.Render("DEGRADED")
	}

	lastEvent := "never"
	if !activity.LastEvent().IsZero() {
		lastEvent = fmt.Sprintf("%s ago", now.Sub(activity.LastEvent()).Round(time.Second))
	}

	name := strings.ToUpper(health.Service)
	if name == "" {
		name = "TOOLY"
	}
	title := fmt.Sprintf(" %s WATCH", name)
	clock := theme.Dim.Render(now.Format("15:04:05"))
	pad := max(innerWidth-lipgloss.Width(title)-lipgloss.Width(clock)-4, 1)
	titleLine := title + strings.Repeat(" ", pad) + clock + " "

	historyText := "off"
	if health.History {
		historyText = "on"
	}
	statsLine := fmt.Sprintf(" %s  Uptime: %s  Scripts: %d  History: %s",
		statusText,
		formatDuration(time.Duration(health.UptimeSeconds)*time.Second),
		health.ScriptsActive,
		historyText,
	)
	activityLine := fmt.Sprintf(" Last event: %s %s", lastEvent, activity.Render(theme, now))

	return theme.Border.Width(innerWidth).Render(
		lipgloss.JoinVertical(lipgloss.Left, titleLine, statsLine, activityLine))
}

func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm %ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh %dm", int(d.Hours()), int(d.Minutes())%60)
}
