package loop

import (
	"context"
	"errors"
	"runtime"
	"time"

	"go.uber.org/multierr"
)

// token is the control thread. Whoever holds it may touch GUI state; the
// driver holds it while polling and launching, units while they execute.
// Waiting senders on a channel are served in arrival order, which is what
// lets units launched in one cycle start before the driver's next poll.
type token struct {
	ch chan struct{}
}

func newToken() *token {
	return &token{ch: make(chan struct{}, 1)}
}

func (t *token) acquire(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case t.ch <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (t *token) release() {
	<-t.ch
}

// unit is one launched command or task invocation. held is only touched from
// the unit's own goroutine.
type unit struct {
	tok  *token
	held bool
}

func (u *unit) acquire(ctx context.Context) error {
	if err := u.tok.acquire(ctx); err != nil {
		return err
	}
	u.held = true
	return nil
}

func (u *unit) release() {
	if u.held {
		u.held = false
		u.tok.release()
	}
}

type unitKey struct{}

func withUnit(ctx context.Context, u *unit) context.Context {
	return context.WithValue(ctx, unitKey{}, u)
}

func unitFrom(ctx context.Context) *unit {
	u, _ := ctx.Value(unitKey{}).(*unit)
	return u
}

// OnControlThread reports whether the caller holds the control token, i.e.
// whether it may mutate GUI state right now.
func OnControlThread(ctx context.Context) bool {
	u := unitFrom(ctx)
	return u != nil && u.held
}

// Await runs fn off the control thread: the token is released for the
// duration of fn, letting the GUI and other units progress, and reacquired
// afterwards. Use it for anything that blocks.
//
// If ctx is cancelled while waiting for the token, Await returns without it
// and the caller must unwind without touching GUI state. Outside a driver
// unit Await simply calls fn.
func Await(ctx context.Context, fn func(ctx context.Context) error) error {
	u := unitFrom(ctx)
	if u == nil || !u.held {
		return fn(ctx)
	}

	u.release()
	err := fn(ctx)
	if aerr := u.acquire(ctx); aerr != nil && !errors.Is(err, aerr) {
		err = multierr.Append(err, aerr)
	}
	return err
}

// AwaitValue is Await for functions producing a value.
func AwaitValue[T any](ctx context.Context, fn func(ctx context.Context) (T, error)) (T, error) {
	var v T
	err := Await(ctx, func(ctx context.Context) error {
		var err error
		v, err = fn(ctx)
		return err
	})
	return v, err
}

// Sleep suspends the calling unit for d, or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	return Await(ctx, func(ctx context.Context) error {
		timer := time.NewTimer(d)
		defer timer.Stop()
		select {
		case <-timer.C:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})
}

// Yield gives every other waiting unit, and the driver, a turn on the
// control thread before returning.
func Yield(ctx context.Context) error {
	return Await(ctx, func(ctx context.Context) error {
		runtime.Gosched()
		return nil
	})
}
