package actions

import (
	"context"
	"fmt"

	"github.com/mattjoyce/tooly/internal/host"
	"github.com/mattjoyce/tooly/internal/protocol"
)

// replace hands the instruction to the host's find-and-replace window. The
// renaming itself is not defined yet, so the handler always reports
// ErrNotImplemented.
type replace struct {
	host host.Windows
}

func (h *replace) Handle(_ context.Context, in protocol.Instruction) (Outcome, error) {
	if h.host != nil {
		if err := h.host.OpenFindAndReplace(in); err != nil {
			return Outcome{}, fmt.Errorf("open find and replace: %w", err)
		}
	}
	return Outcome{Detail: "find and replace window opened"}, ErrNotImplemented
}
