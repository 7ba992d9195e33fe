// Package control defines the commands that synchronous contexts (widget
// callbacks, arbitrary goroutines) hand to the loop driver, and the queue that
// carries them. Commands run on the driver's control thread, which keeps GUI
// state mutations serialized.
//
// Maintenance notes:
//   - The Queue is the only scheduler structure touched from arbitrary
//     goroutines. Everything else is owned by the driver.
//   - A Command carries no priority. Commands drained in the same cycle are
//     launched together and may interleave in any order.
package control

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var (
	ErrQueueClosed = errors.New("command queue is closed")
	ErrNilFunc     = errors.New("command function is nil")
)

// Func is the body of a command. ctx is cancelled when the driver shuts down
// and carries the control token used by the loop suspension helpers.
type Func func(ctx context.Context) error

// Command is a unit of asynchronous work waiting for the driver. ID exists
// only to correlate log lines; it has no ordering meaning.
type Command struct {
	ID        uuid.UUID
	Name      string
	Fn        Func
	Submitted time.Time
}

// NewCommand builds a Command with a fresh ID.
func NewCommand(name string, fn Func) Command {
	return Command{
		ID:        uuid.New(),
		Name:      name,
		Fn:        fn,
		Submitted: time.Now(),
	}
}

// Run executes the command body, wrapping any failure in a *CommandError.
func (c Command) Run(ctx context.Context) error {
	if c.Fn == nil {
		return &CommandError{ID: c.ID, Name: c.Name, Err: ErrNilFunc}
	}
	if err := c.Fn(ctx); err != nil {
		return &CommandError{ID: c.ID, Name: c.Name, Err: err}
	}
	return nil
}

// CommandError reports a failed command. It is contained to the command that
// raised it and never stops other commands or the driver.
type CommandError struct {
	ID   uuid.UUID
	Name string
	Err  error
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("command %q (%s) failed: %v", e.Name, e.ID, e.Err)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}
