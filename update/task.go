// Package update keeps the periodic update routines run by the loop driver:
// their cadence, last start time and in-flight status.
//
// Maintenance notes:
//   - A Task is never started while a previous invocation is still in
//     flight. Due skips running tasks and reports each missed slot once as an
//     overrun.
//   - MarkStarted and MarkFinished must be called exactly once per
//     invocation, in that order. The driver calls MarkFinished even when the
//     routine fails or panics.
//   - Task state is guarded by the task's own mutex so snapshots can be read
//     from the UI goroutine while the driver updates it.
package update

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// Routine is the body of a periodic task.
type Routine func(ctx context.Context) error

// Task is a named periodic routine registered with a Registry.
type Task struct {
	name     string
	routine  Routine
	interval time.Duration
	timeout  time.Duration

	mu           sync.RWMutex
	lastStart    time.Time
	lastDuration time.Duration
	lastErr      error
	running      bool
	reported     int // missed slots already reported for the current invocation
	backlog      int
	runs         uint64
	overruns     uint64
	failures     uint64
}

// Name returns the registered name.
func (t *Task) Name() string { return t.name }

// Interval returns the configured cadence.
func (t *Task) Interval() time.Duration { return t.interval }

// Timeout returns the per-invocation deadline.
func (t *Task) Timeout() time.Duration { return t.timeout }

// Running reports whether an invocation is in flight.
func (t *Task) Running() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.running
}

// Invoke runs the routine once under the task timeout. The deadline is
// cooperative: a routine ignoring ctx keeps running and keeps the task marked
// in flight until it returns.
func (t *Task) Invoke(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	err := t.routine(ctx)
	if err == nil {
		return nil
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		err = fmt.Errorf("%w after %s: %w", ErrTaskTimeout, t.timeout, err)
	}
	return &TaskError{Task: t.name, Err: err}
}

// Snapshot is a consistent copy of a task's state, for display and tests.
type Snapshot struct {
	Name         string
	Interval     time.Duration
	Timeout      time.Duration
	Running      bool
	LastStart    time.Time
	LastDuration time.Duration
	LastError    error
	Runs         uint64
	Overruns     uint64
	Failures     uint64
	Backlog      int
}

// Snapshot returns the task state under its lock.
func (t *Task) Snapshot() Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return Snapshot{
		Name:         t.name,
		Interval:     t.interval,
		Timeout:      t.timeout,
		Running:      t.running,
		LastStart:    t.lastStart,
		LastDuration: t.lastDuration,
		LastError:    t.lastErr,
		Runs:         t.runs,
		Overruns:     t.overruns,
		Failures:     t.failures,
		Backlog:      t.backlog,
	}
}
