package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/mattjoyce/tooly/internal/launcher"
	"github.com/mattjoyce/tooly/internal/log"
)

const (
	// DefaultTimeout is the wall-clock limit for a script.
	DefaultTimeout = 120 * time.Second

	// DefaultGracePeriod is the time we wait after SIGTERM before sending SIGKILL.
	DefaultGracePeriod = 2 * time.Second

	// DefaultMaxOutputBytes caps each captured stream.
	DefaultMaxOutputBytes = 1 << 20

	// pipeDrainDelay bounds how long Wait keeps reading pipes that a
	// descendant still holds after the script itself exited.
	pipeDrainDelay = 2 * time.Second
)

// Option configures an Executor.
type Option func(*Executor)

// WithTimeout overrides DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(e *Executor) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// WithGracePeriod overrides DefaultGracePeriod.
func WithGracePeriod(d time.Duration) Option {
	return func(e *Executor) {
		if d > 0 {
			e.grace = d
		}
	}
}

// WithMaxOutputBytes overrides DefaultMaxOutputBytes.
func WithMaxOutputBytes(n int) Option {
	return func(e *Executor) {
		if n > 0 {
			e.maxOutput = n
		}
	}
}

// WithObserver registers fn to receive every final Result. Observers run on
// the task's goroutine after the result has been logged.
func WithObserver(fn func(Result)) Option {
	return func(e *Executor) {
		if fn != nil {
			e.observers = append(e.observers, fn)
		}
	}
}

// Executor runs each submitted invocation on its own goroutine.
type Executor struct {
	timeout   time.Duration
	grace     time.Duration
	maxOutput int
	observers []func(Result)
	logger    *slog.Logger

	wg       sync.WaitGroup
	inflight atomic.Int64

	mu    sync.Mutex
	tasks map[*Task]struct{}
}

// NewExecutor creates an Executor.
func NewExecutor(opts ...Option) *Executor {
	e := &Executor{
		timeout:   DefaultTimeout,
		grace:     DefaultGracePeriod,
		maxOutput: DefaultMaxOutputBytes,
		logger:    log.WithComponent("runner"),
		tasks:     make(map[*Task]struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Timeout returns the deadline applied to every task.
func (e *Executor) Timeout() time.Duration { return e.timeout }

// InFlight returns the number of tasks that have not finished yet.
func (e *Executor) InFlight() int { return int(e.inflight.Load()) }

// Submit starts inv in the background and returns its handle immediately.
// An empty id is replaced by a random one.
func (e *Executor) Submit(id string, inv launcher.Invocation) *Task {
	if id == "" {
		id = uuid.NewString()
	}
	inv.Args = append([]string(nil), inv.Args...)

	t := &Task{
		id:       id,
		inv:      inv,
		deadline: time.Now().Add(e.timeout),
		kill:     make(chan struct{}),
		done:     make(chan struct{}),
	}

	e.wg.Add(1)
	e.inflight.Add(1)
	e.mu.Lock()
	e.tasks[t] = struct{}{}
	e.mu.Unlock()
	go func() {
		defer e.wg.Done()
		defer e.inflight.Add(-1)

		res := e.run(t)
		e.mu.Lock()
		delete(e.tasks, t)
		e.mu.Unlock()
		t.finish(res)
		e.report(res)
		for _, obs := range e.observers {
			obs(res)
		}
	}()
	return t
}

// Wait blocks until every submitted task has finished or ctx is done.
func (e *Executor) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// KillAll asks every unfinished task to terminate and returns how many
// were asked.
func (e *Executor) KillAll() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	for t := range e.tasks {
		t.Kill()
	}
	return len(e.tasks)
}

// Shutdown waits for in-flight tasks until ctx is done, then kills the rest
// and waits for their results to be reported.
func (e *Executor) Shutdown(ctx context.Context) error {
	err := e.Wait(ctx)
	if err == nil {
		return nil
	}
	if n := e.KillAll(); n > 0 {
		e.logger.Warn("killing scripts still running at shutdown", "count", n)
	}
	kctx, cancel := context.WithTimeout(context.Background(), 2*e.grace+pipeDrainDelay+time.Second)
	defer cancel()
	if werr := e.Wait(kctx); werr != nil {
		return fmt.Errorf("scripts still running after kill: %w", werr)
	}
	return err
}

// run spawns the task's process and supervises it until exit, deadline or kill.
func (e *Executor) run(t *Task) Result {
	logger := e.logger.With("task_id", t.id)
	res := Result{
		TaskID:    t.id,
		Command:   t.inv.String(),
		ExitCode:  -1,
		StartedAt: time.Now(),
	}

	cmd := exec.Command(t.inv.Name, t.inv.Args...)
	cmd.Dir = t.inv.Dir
	cmd.Stdin = nil
	stdout := newCappedBuffer(e.maxOutput)
	stderr := newCappedBuffer(e.maxOutput)
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	cmd.WaitDelay = pipeDrainDelay
	configureProcessGroup(cmd)

	if err := cmd.Start(); err != nil {
		res.Status = StatusSpawnFailed
		res.Err = fmt.Errorf("start %s: %w", t.inv.Name, err)
		res.FinishedAt = time.Now()
		return res
	}
	logger.Debug("script started", "pid", cmd.Process.Pid, "deadline", t.deadline)

	waitErr := make(chan error, 1)
	go func() {
		waitErr <- cmd.Wait()
	}()

	timer := time.NewTimer(time.Until(t.deadline))
	defer timer.Stop()

	select {
	case err := <-waitErr:
		classifyExit(&res, cmd, err)
	case <-timer.C:
		logger.Warn("script deadline reached, terminating", "timeout", e.timeout)
		e.terminate(cmd, waitErr, logger)
		res.Status = StatusTimedOut
		res.Err = fmt.Errorf("%w after %v", ErrTimeout, e.timeout)
	case <-t.kill:
		logger.Warn("script kill requested, terminating")
		e.terminate(cmd, waitErr, logger)
		res.Status = StatusKilled
		res.Err = ErrKilled
	}

	res.Stdout = strings.TrimSpace(stdout.String())
	res.Stderr = strings.TrimSpace(stderr.String())
	if stdout.Truncated() || stderr.Truncated() {
		logger.Warn("script output truncated", "max_bytes", e.maxOutput)
	}
	res.FinishedAt = time.Now()
	return res
}

func classifyExit(res *Result, cmd *exec.Cmd, err error) {
	var exitErr *exec.ExitError
	switch {
	case err == nil:
		res.Status = StatusSucceeded
		res.ExitCode = 0
	case errors.As(err, &exitErr):
		res.Status = StatusFailed
		res.ExitCode = exitErr.ExitCode()
		res.Err = fmt.Errorf("script exited with status %d", res.ExitCode)
	case errors.Is(err, exec.ErrWaitDelay) && cmd.ProcessState != nil:
		// The script exited but a descendant kept its output pipes open.
		res.ExitCode = cmd.ProcessState.ExitCode()
		res.Status = StatusSucceeded
		if !cmd.ProcessState.Success() {
			res.Status = StatusFailed
			res.Err = fmt.Errorf("script exited with status %d", res.ExitCode)
		}
	default:
		res.Status = StatusWaitFailed
		res.Err = fmt.Errorf("wait for process: %w", err)
	}
}

// terminate sends SIGTERM to the process group, escalates to SIGKILL after the
// grace period and always finishes with SIGKILL to reap stragglers.
// Failures are logged, never returned.
func (e *Executor) terminate(cmd *exec.Cmd, waitErr <-chan error, logger *slog.Logger) {
	if err := terminateGroup(cmd); err != nil {
		logger.Error("failed to send SIGTERM", "error", err)
	}

	grace := time.NewTimer(e.grace)
	defer grace.Stop()

	exited := false
	select {
	case <-waitErr:
		exited = true
	case <-grace.C:
		logger.Warn("script did not exit after SIGTERM, sending SIGKILL")
	}

	if err := killGroup(cmd); err != nil {
		logger.Error("failed to send SIGKILL", "error", err)
	}
	if exited {
		return
	}

	abandon := time.NewTimer(e.grace + pipeDrainDelay)
	defer abandon.Stop()
	select {
	case <-waitErr:
	case <-abandon.C:
		logger.Error("script did not exit after SIGKILL, abandoning")
	}
}

// report logs the outcome of a task.
func (e *Executor) report(res Result) {
	logger := e.logger.With("task_id", res.TaskID)

	switch res.Status {
	case StatusSucceeded, StatusFailed:
		if res.Stdout != "" {
			logger.Info("script output", "stdout", res.Stdout)
		}
		if res.Stderr != "" {
			logger.Error("script error output", "stderr", res.Stderr)
		}
		if res.Status == StatusFailed {
			logger.Warn("script exited with non-zero status", "exit_code", res.ExitCode)
		}
		logger.Info("script finished", "status", res.Status, "duration_ms", res.Duration().Milliseconds())
	case StatusTimedOut, StatusKilled:
		logger.Error("script did not complete", "status", res.Status, "error", res.Err)
		if res.Stdout != "" || res.Stderr != "" {
			logger.Warn("partial script output", "stdout", res.Stdout, "stderr", res.Stderr)
		}
	case StatusSpawnFailed:
		logger.Error("failed to execute script", "command", res.Command, "error", res.Err)
	case StatusWaitFailed:
		logger.Error("failed while waiting for script", "command", res.Command, "error", res.Err)
	}
}
