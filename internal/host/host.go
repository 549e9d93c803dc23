// Package host holds the collaborators tooly expects from the surrounding
// desktop shell: its windows, its data directory and first-run detection.
package host

//go:generate mockgen -destination=mocks/mock_host.go -package=mocks github.com/mattjoyce/tooly/internal/host Windows

import (
	"log/slog"

	"github.com/mattjoyce/tooly/internal/log"
	"github.com/mattjoyce/tooly/internal/protocol"
)

// Windows is the window surface of the host application.
type Windows interface {
	// ShowMain brings the main window forward.
	ShowMain() error
	// OpenFindAndReplace opens the find-and-replace window for in.
	OpenFindAndReplace(in protocol.Instruction) error
}

// Headless stands in for a GUI shell. Requests are logged and acknowledged.
type Headless struct {
	logger *slog.Logger
}

func NewHeadless() *Headless {
	return &Headless{logger: log.WithComponent("host")}
}

func (h *Headless) ShowMain() error {
	h.logger.Info("main window requested")
	return nil
}

func (h *Headless) OpenFindAndReplace(in protocol.Instruction) error {
	h.logger.Info("find-and-replace window requested", "target", in.Target, "items", len(in.Items))
	return nil
}
