package actions

import (
	"context"

	"github.com/mattjoyce/tooly/internal/launcher"
	"github.com/mattjoyce/tooly/internal/protocol"
)

// openWith launches an application, fire-and-forget. Shortcut launches drop
// the items because the shortcut already encodes its target.
type openWith struct {
	platform launcher.Platform
	spawner  launcher.Spawner
	shortcut bool
}

func (h *openWith) Handle(_ context.Context, in protocol.Instruction) (Outcome, error) {
	items := in.Items
	if h.shortcut {
		items = nil
	}

	inv := h.platform.OpenWith(in.Action, items)
	if err := h.spawner.Spawn(inv); err != nil {
		return Outcome{}, &SpawnError{Command: in.Action, Err: err}
	}
	return Outcome{Detail: "launched " + in.Action}, nil
}
