package launcher

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mattjoyce/tooly/internal/log"
)

// Spawner starts a process without waiting for it.
type Spawner interface {
	Spawn(inv Invocation) error
}

// Detached starts processes fire-and-forget. The child is reaped in the
// background so no zombie is left behind; its exit status is only logged.
type Detached struct {
	logger *slog.Logger
}

// NewDetached returns a Detached spawner.
func NewDetached() *Detached {
	return &Detached{logger: log.WithComponent("launcher")}
}

func (d *Detached) Spawn(inv Invocation) error {
	cmd := inv.Command(context.Background())
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", inv.Name, err)
	}

	pid := cmd.Process.Pid
	d.logger.Debug("spawned detached process", "command", inv.String(), "pid", pid)
	go func() {
		if err := cmd.Wait(); err != nil {
			d.logger.Debug("detached process exited with error", "pid", pid, "error", err)
		}
	}()
	return nil
}
