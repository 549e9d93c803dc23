// Package watch implements the live trigger monitor behind "tooly watch".
package watch

import "github.com/charmbracelet/lipgloss"

// Theme keeps every colour used by the monitor in one place.
type Theme struct {
	StatusOK      lipgloss.Style
	StatusRunning lipgloss.Style
	StatusFailed  lipgloss.Style
	StatusIgnored lipgloss.Style

	Border    lipgloss.Style
	Title     lipgloss.Style
	Dim       lipgloss.Style
	Highlight lipgloss.Style

	DotActive   lipgloss.Style
	DotInactive lipgloss.Style
}

func NewDefaultTheme() Theme {
	return Theme{
		StatusOK:      lipgloss.NewStyle().Foreground(lipgloss.Color("#00FF00")),
		StatusRunning: lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFF00")),
		StatusFailed:  lipgloss.NewStyle().Foreground(lipgloss.Color("#FF0000")),
		StatusIgnored: lipgloss.NewStyle().Foreground(lipgloss.Color("#888888")),

		Border: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#874BFD")),
		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Padding(0, 1),
		Dim:       lipgloss.NewStyle().Foreground(lipgloss.Color("#888888")),
		Highlight: lipgloss.NewStyle().Foreground(lipgloss.Color("#E5C07B")),

		DotActive:   lipgloss.NewStyle().Foreground(lipgloss.Color("#00FF00")),
		DotInactive: lipgloss.NewStyle().Foreground(lipgloss.Color("#444444")),
	}
}

// statusStyle picks the colour for a history status string.
func (t Theme) statusStyle(status string) lipgloss.Style {
	switch status {
	case "succeeded":
		return t.StatusOK
	case "running", "received":
		return t.StatusRunning
	case "failed", "timed_out", "killed", "rejected":
		return t.StatusFailed
	default:
		return t.StatusIgnored
	}
}
