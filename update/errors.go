package update

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrEmptyName       = errors.New("task name is empty")
	ErrNilRoutine      = errors.New("task routine is nil")
	ErrInvalidInterval = errors.New("task interval must be positive")
	ErrInvalidPolicy   = errors.New("unknown overrun policy")
	ErrTaskNotFound    = errors.New("task not found")
	ErrAlreadyRunning  = errors.New("task is still running")
	ErrNotRunning      = errors.New("task is not running")
	ErrTaskTimeout     = errors.New("task timed out")
)

// TaskError reports a failed invocation. The task stays registered.
type TaskError struct {
	Task string
	Err  error
}

func (e *TaskError) Error() string {
	return fmt.Sprintf("update task %q failed: %v", e.Task, e.Err)
}

func (e *TaskError) Unwrap() error {
	return e.Err
}

// OverrunError describes a task still running when its next slot came due.
// It is reported, never returned from a routine.
type OverrunError struct {
	Task     string
	Interval time.Duration
	By       time.Duration
	Missed   int
}

func (e *OverrunError) Error() string {
	return fmt.Sprintf("update task %q overran its %s interval by %s", e.Task, e.Interval, e.By)
}
