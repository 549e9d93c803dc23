package watch

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/mattjoyce/tooly/internal/api"
	"github.com/mattjoyce/tooly/internal/events"
)

type eventMsg events.Event

type healthMsg api.HealthzResponse

type tickMsg time.Time

type errMsg struct{ err error }

func (e errMsg) Error() string { return e.err.Error() }

type streamClosedMsg struct{ err error }

type reconnectMsg struct{}

// Source is the part of api.Client the monitor needs.
type Source interface {
	Health(ctx context.Context) (*api.HealthzResponse, error)
	Stream(ctx context.Context, fn func(events.Event) error) error
}

// subscribe feeds the event stream into ch until it closes.
func subscribe(ctx context.Context, src Source, ch chan<- events.Event) tea.Cmd {
	return func() tea.Msg {
		err := src.Stream(ctx, func(ev events.Event) error {
			if ev.At.IsZero() {
				ev.At = time.Now()
			}
			select {
			case ch <- ev:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
		return streamClosedMsg{err: err}
	}
}

func receiveNext(ch <-chan events.Event) tea.Cmd {
	return func() tea.Msg {
		return eventMsg(<-ch)
	}
}

func fetchHealth(ctx context.Context, src Source) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		h, err := src.Health(ctx)
		if err != nil {
			return errMsg{err: err}
		}
		return healthMsg(*h)
	}
}

func tick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg { return tickMsg(t) })
}
