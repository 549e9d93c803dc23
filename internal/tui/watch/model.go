package watch

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/mattjoyce/tooly/internal/events"
)

const maxEventLog = 50

// Model is the bubbletea model for the trigger monitor.
type Model struct {
	ctx context.Context
	src Source

	width  int
	height int

	health   HealthState
	triggers *Triggers
	eventLog []events.Event
	activity Activity
	now      time.Time

	theme    Theme
	keys     keyMap
	help     help.Model
	selected int

	hubEvents chan events.Event
	lastError string
}

// New creates a monitor reading from src. ctx bounds the background stream.
func New(ctx context.Context, src Source) *Model {
	return &Model{
		ctx:       ctx,
		src:       src,
		triggers:  NewTriggers(),
		hubEvents: make(chan events.Event, 100),
		theme:     NewDefaultTheme(),
		keys:      defaultKeyMap(),
		help:      help.New(),
		now:       time.Now(),
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(
		subscribe(m.ctx, m.src, m.hubEvents),
		receiveNext(m.hubEvents),
		fetchHealth(m.ctx, m.src),
		tick(),
		tea.EnterAltScreen,
	)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Up):
			if m.selected > 0 {
				m.selected--
			}
		case key.Matches(msg, m.keys.Down):
			if m.selected < m.triggers.Len()-1 {
				m.selected++
			}
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width

	case tickMsg:
		m.now = time.Time(msg)
		return m, tick()

	case eventMsg:
		e := events.Event(msg)
		m.eventLog = append([]events.Event{e}, m.eventLog...)
		if len(m.eventLog) > maxEventLog {
			m.eventLog = m.eventLog[:maxEventLog]
		}
		m.activity.OnEvent(e.At)
		m.triggers.Apply(e)
		m.health.Connected = true
		m.lastError = ""
		return m, receiveNext(m.hubEvents)

	case healthMsg:
		m.health.Status = msg.Status
		m.health.Service = msg.Service
		m.health.UptimeSeconds = msg.UptimeSeconds
		m.health.ScriptsActive = msg.ScriptsActive
		m.health.History = msg.History
		m.health.Connected = true
		m.health.LastCheck = time.Now()
		m.lastError = ""
		return m, tea.Tick(5*time.Second, func(time.Time) tea.Msg { return reconnectHealth{} })

	case reconnectHealth:
		return m, fetchHealth(m.ctx, m.src)

	case streamClosedMsg:
		m.health.Connected = false
		m.lastError = "event stream disconnected, reconnecting..."
		if msg.err != nil {
			m.lastError = "event stream: " + msg.err.Error()
		}
		// receiveNext is still parked on hubEvents and picks up the new stream.
		return m, tea.Tick(3*time.Second, func(time.Time) tea.Msg { return reconnectMsg{} })

	case reconnectMsg:
		return m, subscribe(m.ctx, m.src, m.hubEvents)

	case errMsg:
		m.health.Connected = false
		m.lastError = msg.Error()
		return m, tea.Tick(5*time.Second, func(time.Time) tea.Msg { return reconnectHealth{} })
	}

	return m, nil
}

type reconnectHealth struct{}

func (m Model) View() string {
	if m.width == 0 {
		return "Connecting..."
	}

	parts := []string{
		renderHeader(m.health, m.activity, m.theme, m.width, m.now),
		renderTriggers(m.triggers, m.selected, m.theme, m.width),
		renderEventStream(m.eventLog, m.theme, m.width),
	}
	if m.lastError != "" {
		parts = append(parts, m.theme.StatusFailed.Render(" ⚠ "+m.lastError))
	}
	parts = append(parts, " "+m.help.View(m.keys))

	return lipgloss.NewStyle().Margin(1, 2).Render(lipgloss.JoinVertical(lipgloss.Left, parts...))
}

// Run starts the monitor in the terminal and blocks until the user quits.
func Run(ctx context.Context, src Source) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	_, err := tea.NewProgram(New(ctx, src), tea.WithContext(ctx)).Run()
	return err
}
