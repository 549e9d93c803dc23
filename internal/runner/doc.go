// Package runner executes non-interactive scripts on background goroutines
// with a hard wall-clock deadline.
//
// An Executor accepts invocations through Submit and returns a Task handle at
// once; the caller never waits for the process. Each task owns its process,
// its captured output and its deadline.
//
// Execution protocol:
//   - stdin is the null device; stdout and stderr are captured (capped)
//   - on unix the process gets its own process group so termination reaches
//     anything it spawned
//   - when the deadline passes: SIGTERM to the group, grace period, SIGKILL
//   - output is trimmed; stdout is logged at INFO, stderr at ERROR
//   - timed-out and killed tasks keep the output captured so far
//
// Results are classified as succeeded, failed (non-zero exit), timed_out,
// killed, spawn_failed or wait_failed. Nothing is retried.
//
// Tasks are independent: there is no queue, no ordering between completions
// and no limit on concurrent tasks.
package runner
