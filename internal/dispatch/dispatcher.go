package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/mattjoyce/tooly/internal/actions"
	"github.com/mattjoyce/tooly/internal/events"
	"github.com/mattjoyce/tooly/internal/history"
	"github.com/mattjoyce/tooly/internal/log"
	"github.com/mattjoyce/tooly/internal/protocol"
	"github.com/mattjoyce/tooly/internal/runner"
)

// Router routes a decoded instruction.
type Router interface {
	Route(ctx context.Context, in protocol.Instruction) (actions.Outcome, error)
}

// Recorder is the subset of history.Store used by the dispatcher.
type Recorder interface {
	Record(ctx context.Context, e history.Entry) error
	Describe(ctx context.Context, id string, in protocol.Instruction) error
	SetStatus(ctx context.Context, id string, status history.Status) error
	Complete(ctx context.Context, id string, c history.Completion) error
}

// Report is the synchronous result of one trigger.
type Report struct {
	TriggerID  string              `json:"trigger_id"`
	Command    string              `json:"command,omitempty"`
	ActionType protocol.ActionType `json:"action_type,omitempty"`
	Status     history.Status      `json:"status"`
	Detail     string              `json:"detail,omitempty"`
	Path       string              `json:"path,omitempty"`
	TaskID     string              `json:"task_id,omitempty"`
	Async      bool                `json:"async"`
	Error      string              `json:"error,omitempty"`

	Err error `json:"-"`
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithHistory records every trigger in r.
func WithHistory(r Recorder) Option {
	return func(d *Dispatcher) {
		if r != nil {
			d.history = r
		}
	}
}

// WithEvents publishes trigger lifecycle events to p.
func WithEvents(p events.Publisher) Option {
	return func(d *Dispatcher) {
		if p != nil {
			d.events = p
		}
	}
}

// Dispatcher decodes, routes and records triggers. It is safe for concurrent use.
type Dispatcher struct {
	router  Router
	history Recorder
	events  events.Publisher
	newID   func() string
	logger  *slog.Logger

	// routing holds a channel per trigger whose Route call has not returned.
	// ObserveScript waits on it so script.finished follows script.started.
	mu      sync.Mutex
	routing map[string]chan struct{}
}

// New creates a Dispatcher routing through r.
func New(r Router, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		router:  r,
		history: nopRecorder{},
		events:  nopPublisher{},
		newID:   uuid.NewString,
		logger:  log.WithComponent("dispatch"),
		routing: make(map[string]chan struct{}),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// HandleURL processes one trigger URL and returns without waiting for
// background work.
func (d *Dispatcher) HandleURL(ctx context.Context, raw string) (rep Report) {
	id := d.newID()
	rep.TriggerID = id
	logger := d.logger.With("trigger_id", id)
	// History writes must outlive a cancelled caller such as a closed HTTP request.
	hctx := context.WithoutCancel(ctx)

	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("action handler panicked: %v", r)
			logger.Error("recovered from panic while dispatching trigger", "error", err)
			d.finish(hctx, &rep, history.StatusFailed, err)
			d.events.Publish(events.ActionFailed, d.eventData(rep))
		}
	}()

	trig, perr := protocol.ParseTrigger(raw)
	payload := raw
	if trig != nil {
		rep.Command = trig.Command
		payload = trig.Payload
	}
	if err := d.history.Record(hctx, history.Entry{
		ID:            id,
		Command:       rep.Command,
		PayloadDigest: history.Digest(payload),
	}); err != nil {
		logger.Warn("failed to record trigger in history", "error", err)
	}

	if perr != nil {
		if errors.Is(perr, protocol.ErrUnknownCommand) {
			logger.Warn("ignoring trigger with unknown command", "command", rep.Command)
			d.finish(hctx, &rep, history.StatusIgnored, perr)
			d.events.Publish(events.TriggerIgnored, d.eventData(rep))
			return rep
		}

		logger.Error("failed to decode trigger", "error", perr, "stage", decodeStage(perr))
		d.finish(hctx, &rep, history.StatusRejected, perr)
		d.events.Publish(events.TriggerRejected, d.eventData(rep))
		return rep
	}

	in := trig.Instruction.Clone()
	rep.ActionType = in.ActionType
	if err := d.history.Describe(hctx, id, in); err != nil {
		logger.Warn("failed to describe trigger in history", "error", err)
	}
	if err := d.history.SetStatus(hctx, id, history.StatusRunning); err != nil {
		logger.Warn("failed to mark trigger running", "error", err)
	}
	logger.Info("trigger received", "action_type", in.ActionType, "target", in.Target, "items", len(in.Items))
	d.events.Publish(events.TriggerReceived, events.TriggerData{
		TriggerID:  id,
		ActionType: string(in.ActionType),
		Target:     in.Target,
		Status:     string(history.StatusRunning),
	})

	d.beginRouting(id)
	defer d.endRouting(id)

	out, err := d.router.Route(actions.ContextWithTriggerID(ctx, id), in)
	rep.Detail = out.Detail
	rep.Path = out.Path
	rep.TaskID = out.TaskID
	rep.Async = out.Async

	switch {
	case errors.Is(err, actions.ErrUnknownAction):
		logger.Warn("ignoring instruction with unknown action type", "action_type", in.ActionType)
		d.finish(hctx, &rep, history.StatusIgnored, err)
		d.events.Publish(events.TriggerIgnored, d.eventData(rep))
	case errors.Is(err, actions.ErrNotImplemented):
		logger.Warn("action is not implemented", "action_type", in.ActionType)
		d.finish(hctx, &rep, history.StatusNotImplemented, err)
		d.events.Publish(events.ActionCompleted, d.eventData(rep))
	case err != nil:
		logger.Error("action failed", failureAttrs(in, err)...)
		d.finish(hctx, &rep, history.StatusFailed, err)
		d.events.Publish(events.ActionFailed, d.eventData(rep))
	case out.Async:
		rep.Status = history.StatusRunning
		logger.Info("action running in background", "task_id", out.TaskID)
		d.events.Publish(events.ScriptStarted, d.eventData(rep))
	default:
		logger.Info("action completed", "action_type", in.ActionType, "detail", out.Detail)
		d.finish(hctx, &rep, history.StatusSucceeded, nil)
		d.events.Publish(events.ActionCompleted, d.eventData(rep))
	}
	return rep
}

// ObserveScript records the final result of a background script. It is
// meant to be registered with runner.WithObserver.
func (d *Dispatcher) ObserveScript(res runner.Result) {
	d.awaitRouting(res.TaskID)

	status := scriptStatus(res.Status)
	c := history.Completion{
		Status: status,
		Stdout: res.Stdout,
		Stderr: res.Stderr,
	}
	if res.ExitCode >= 0 {
		code := res.ExitCode
		c.ExitCode = &code
	}
	if res.Err != nil {
		c.Error = res.Err.Error()
	}

	if err := d.history.Complete(context.Background(), res.TaskID, c); err != nil {
		d.logger.Warn("failed to record script result", "trigger_id", res.TaskID, "error", err)
	}
	d.events.Publish(events.ScriptFinished, events.TriggerData{
		TriggerID:  res.TaskID,
		ActionType: string(protocol.ActionScript),
		Status:     string(status),
		Error:      c.Error,
	})
}

func (d *Dispatcher) beginRouting(id string) {
	d.mu.Lock()
	d.routing[id] = make(chan struct{})
	d.mu.Unlock()
}

func (d *Dispatcher) endRouting(id string) {
	d.mu.Lock()
	ch := d.routing[id]
	delete(d.routing, id)
	d.mu.Unlock()
	if ch != nil {
		close(ch)
	}
}

// awaitRouting blocks while HandleURL is still routing the trigger id.
func (d *Dispatcher) awaitRouting(id string) {
	d.mu.Lock()
	ch := d.routing[id]
	d.mu.Unlock()
	if ch != nil {
		<-ch
	}
}

func (d *Dispatcher) finish(ctx context.Context, rep *Report, status history.Status, err error) {
	rep.Status = status
	rep.Err = err
	c := history.Completion{Status: status, Detail: rep.Detail}
	if err != nil {
		rep.Error = err.Error()
		c.Error = err.Error()
	}
	if herr := d.history.Complete(ctx, rep.TriggerID, c); herr != nil {
		d.logger.Warn("failed to complete trigger in history", "trigger_id", rep.TriggerID, "error", herr)
	}
}

func (d *Dispatcher) eventData(rep Report) events.TriggerData {
	return events.TriggerData{
		TriggerID:  rep.TriggerID,
		ActionType: string(rep.ActionType),
		Status:     string(rep.Status),
		Detail:     rep.Detail,
		Error:      rep.Error,
	}
}

func scriptStatus(s runner.Status) history.Status {
	switch s {
	case runner.StatusSucceeded:
		return history.StatusSucceeded
	case runner.StatusTimedOut:
		return history.StatusTimedOut
	case runner.StatusKilled:
		return history.StatusKilled
	default:
		return history.StatusFailed
	}
}

func decodeStage(err error) string {
	var de *protocol.DecodeError
	if errors.As(err, &de) {
		return de.Stage
	}
	return ""
}

func failureAttrs(in protocol.Instruction, err error) []any {
	attrs := []any{"action_type", in.ActionType, "error", err}

	var fsErr *actions.FSError
	var spawnErr *actions.SpawnError
	switch {
	case errors.As(err, &fsErr):
		attrs = append(attrs, "path", fsErr.Path)
	case errors.As(err, &spawnErr):
		attrs = append(attrs, "command", spawnErr.Command)
	default:
		attrs = append(attrs, "target", in.Target)
	}
	return attrs
}

type nopRecorder struct{}

func (nopRecorder) Record(context.Context, history.Entry) error { return nil }
func (nopRecorder) Describe(context.Context, string, protocol.Instruction) error { return nil }
func (nopRecorder) SetStatus(context.Context, string, history.Status) error { return nil }
func (nopRecorder) Complete(context.Context, string, history.Completion) error { return nil }

type nopPublisher struct{}

func (nopPublisher) Publish(events.Type, any) {}
