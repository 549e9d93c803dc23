package actions

import (
	"context"
	"os"

	"github.com/mattjoyce/tooly/internal/launcher"
	"github.com/mattjoyce/tooly/internal/protocol"
)

// script submits the action to the background runner and returns at once.
type script struct {
	platform launcher.Platform
	scripts  ScriptSubmitter
}

func (h *script) Handle(ctx context.Context, in protocol.Instruction) (Outcome, error) {
	inv := h.platform.Shell(in.Action, in.Items)
	if in.Target != "" {
		if fi, err := os.Stat(in.Target); err == nil && fi.IsDir() {
			inv.Dir = in.Target
		}
	}

	task := h.scripts.Submit(TriggerID(ctx), inv)
	return Outcome{
		TaskID: task.ID(),
		Async:  true,
		Detail: "script submitted",
	}, nil
}
