// Package gui adapts a GUI toolkit's event processing to the loop driver.
//
// The driver needs exactly one thing from a toolkit: "process whatever events
// are pending, without blocking, and return". A Poller provides that step and
// reports ErrShutdownRequested once the window or session is gone.
//
// Maintenance notes:
//   - PollOnce is only ever called from the driver's control thread. The
//     adapters in this package still guard their queues with a mutex because
//     widget callbacks and other goroutines post into them.
//   - A PollOnce implementation must never wait for events. If the toolkit
//     has a "don't wait" flag it must always be set.
package gui

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
)

// ErrShutdownRequested is returned by a Poller once the GUI session has ended.
// The loop driver treats it as terminal.
var ErrShutdownRequested = errors.New("gui: shutdown requested")

// Poller performs one non-blocking pass over the toolkit's pending events.
type Poller interface {
	PollOnce() error
}

// PollerFunc adapts a plain function to the Poller interface.
type PollerFunc func() error

// PollOnce calls f.
func (f PollerFunc) PollOnce() error {
	return f()
}

// PollError wraps a failure raised by the toolkit while processing a step.
// It is not terminal: the driver logs it and carries on with the next cycle.
type PollError struct {
	Err error
}

func (e *PollError) Error() string {
	return "gui: poll failed: " + e.Err.Error()
}

func (e *PollError) Unwrap() error {
	return e.Err
}

// Poll runs a single step of p. Panics are recovered, and every failure other
// than ErrShutdownRequested is returned as a *PollError.
func Poll(p Poller) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PollError{Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	err = p.PollOnce()
	if err == nil || errors.Is(err, ErrShutdownRequested) {
		return err
	}
	var pe *PollError
	if errors.As(err, &pe) {
		return err
	}
	return &PollError{Err: err}
}

// Headless is an in-process event queue standing in for a toolkit when no
// window is attached, e.g. in tests or batch runs. Events posted from any
// goroutine run on the control thread during the next PollOnce.
type Headless struct {
	mu     sync.Mutex
	events []func()
	polls  atomic.Uint64
	closed atomic.Bool
}

// NewHeadless returns an open Headless poller.
func NewHeadless() *Headless {
	return &Headless{}
}

// Post queues fn as a pending GUI event. Safe for concurrent use.
func (h *Headless) Post(fn func()) {
	if fn == nil {
		return
	}
	h.mu.Lock()
	h.events = append(h.events, fn)
	h.mu.Unlock()
}

// Close ends the session; subsequent polls report ErrShutdownRequested.
func (h *Headless) Close() {
	h.closed.Store(true)
}

// Polls returns how many steps have been processed.
func (h *Headless) Polls() uint64 {
	return h.polls.Load()
}

// PollOnce runs every event posted before the call.
func (h *Headless) PollOnce() error {
	if h.closed.Load() {
		return ErrShutdownRequested
	}
	h.polls.Add(1)

	h.mu.Lock()
	events := h.events
	h.events = nil
	h.mu.Unlock()

	for _, fn := range events {
		fn()
	}
	return nil
}
