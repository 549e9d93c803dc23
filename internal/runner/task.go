package runner

import (
	"context"
	"sync"
	"time"

	"github.com/mattjoyce/tooly/internal/launcher"
)

// Task is the handle of a submitted script. It is mutated only by the
// executor goroutine that owns it; callers observe it through Done and Wait.
type Task struct {
	id       string
	inv      launcher.Invocation
	deadline time.Time

	kill     chan struct{}
	killOnce sync.Once

	done   chan struct{}
	result Result
}

func (t *Task) ID() string { return t.id }

// Deadline is the point at which the task is force-terminated.
func (t *Task) Deadline() time.Time { return t.deadline }

// Done is closed once the result is available.
func (t *Task) Done() <-chan struct{} { return t.done }

// Kill asks the executor to terminate the task. It is a no-op once the task
// has finished.
func (t *Task) Kill() {
	t.killOnce.Do(func() { close(t.kill) })
}

// Wait blocks until the task finishes or ctx is done.
func (t *Task) Wait(ctx context.Context) (Result, error) {
	select {
	case <-t.done:
		return t.result, nil
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

// Result returns the final result and true, or false while still running.
func (t *Task) Result() (Result, bool) {
	select {
	case <-t.done:
		return t.result, true
	default:
		return Result{}, false
	}
}

func (t *Task) finish(res Result) {
	t.result = res
	close(t.done)
}
