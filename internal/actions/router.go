// Package actions routes decoded instructions to the handler for their
// action type and implements those handlers.
package actions

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/mattjoyce/tooly/internal/host"
	"github.com/mattjoyce/tooly/internal/launcher"
	"github.com/mattjoyce/tooly/internal/log"
	"github.com/mattjoyce/tooly/internal/protocol"
	"github.com/mattjoyce/tooly/internal/runner"
)

// Outcome describes what a handler did.
type Outcome struct {
	Action protocol.ActionType
	Detail string
	// Path is the file written by the handler, if any.
	Path string
	// TaskID is set for work that continues in the background.
	TaskID string
	Async  bool
}

// Handler executes one action type.
type Handler interface {
	Handle(ctx context.Context, in protocol.Instruction) (Outcome, error)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, in protocol.Instruction) (Outcome, error)

func (f HandlerFunc) Handle(ctx context.Context, in protocol.Instruction) (Outcome, error) {
	return f(ctx, in)
}

// ScriptSubmitter runs scripts in the background.
type ScriptSubmitter interface {
	Submit(id string, inv launcher.Invocation) *runner.Task
}

// Deps are the collaborators the built-in handlers need.
type Deps struct {
	Platform launcher.Platform
	Spawner  launcher.Spawner
	Scripts  ScriptSubmitter
	Host     host.Windows

	// TempDir receives terminal scripts. Empty means os.TempDir().
	TempDir string
	// UniqueScripts writes each terminal script to its own file instead of
	// reusing a single fixed path.
	UniqueScripts bool
}

// Router maps action types to handlers. It is safe for concurrent use.
type Router struct {
	mu       sync.RWMutex
	handlers map[protocol.ActionType]Handler
	logger   *slog.Logger
}

// New returns an empty Router.
func New() *Router {
	return &Router{
		handlers: make(map[protocol.ActionType]Handler),
		logger:   log.WithComponent("actions"),
	}
}

// NewRouter returns a Router with every built-in action registered.
func NewRouter(d Deps) *Router {
	r := New()
	r.MustRegister(protocol.ActionCreate, HandlerFunc(handleCreate))
	r.MustRegister(protocol.ActionApp, &openWith{platform: d.Platform, spawner: d.Spawner})
	r.MustRegister(protocol.ActionShortcut, &openWith{platform: d.Platform, spawner: d.Spawner, shortcut: true})
	r.MustRegister(protocol.ActionTerminal, newTerminal(d))
	r.MustRegister(protocol.ActionScript, &script{platform: d.Platform, scripts: d.Scripts})
	r.MustRegister(protocol.ActionReplace, &replace{host: d.Host})
	return r
}

// Register adds h for action. Registering the same action twice is an error.
func (r *Router) Register(action protocol.ActionType, h Handler) error {
	if action == "" {
		return fmt.Errorf("action type is empty")
	}
	if h == nil {
		return fmt.Errorf("handler for %q is nil", action)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.handlers[action]; exists {
		return fmt.Errorf("handler for %q already registered", action)
	}
	r.handlers[action] = h
	return nil
}

// MustRegister is Register that panics on error. It is meant for wiring at startup.
func (r *Router) MustRegister(action protocol.ActionType, h Handler) {
	if err := r.Register(action, h); err != nil {
		panic(err)
	}
}

// Route dispatches in to exactly one handler. An unregistered action type
// returns ErrUnknownAction and nothing is executed.
func (r *Router) Route(ctx context.Context, in protocol.Instruction) (Outcome, error) {
	r.mu.RLock()
	h, ok := r.handlers[in.ActionType]
	r.mu.RUnlock()

	if !ok {
		return Outcome{Action: in.ActionType}, fmt.Errorf("%w: %q", ErrUnknownAction, in.ActionType)
	}

	r.logger.Debug("routing instruction", "trigger_id", TriggerID(ctx), "action_type", in.ActionType, "target", in.Target)
	out, err := h.Handle(ctx, in)
	out.Action = in.ActionType
	return out, err
}

// Actions lists the registered action types in sorted order.
func (r *Router) Actions() []protocol.ActionType {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]protocol.ActionType, 0, len(r.handlers))
	for a := range r.handlers {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

type triggerIDKey struct{}

// ContextWithTriggerID attaches the trigger ID used to correlate background work.
func ContextWithTriggerID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, triggerIDKey{}, id)
}

// TriggerID returns the trigger ID stored in ctx, or "".
func TriggerID(ctx context.Context) string {
	id, _ := ctx.Value(triggerIDKey{}).(string)
	return id
}
