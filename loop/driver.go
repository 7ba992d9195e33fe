// Package loop drives a single-threaded GUI toolkit and asynchronous work
// from one cooperative control loop.
//
// Each cycle the Driver takes the control token, performs one non-blocking
// GUI poll, drains the command queue, launches every due update task, then
// releases the token and yields. Launched units run on their own goroutines
// but only while holding the token, so they never run in parallel with each
// other or with the GUI poll. A unit gives the token back at suspension
// points: Sleep, Yield and Await.
//
// Maintenance notes:
//   - Only the driver and units holding the token may touch GUI state.
//     Widget callbacks hand work over through Submit or Command.
//   - A unit that never suspends holds the token and stalls the loop. Blocking
//     calls belong inside Await.
//   - Failures are contained at the unit boundary. Only the poller and
//     explicit shutdown change the driver's state.
package loop

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"AsyncFyne/control"
	"AsyncFyne/gui"
	"AsyncFyne/update"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Driver is the cooperative scheduler. Create it with New; a Driver runs at
// most once.
type Driver struct {
	poller   gui.Poller
	queue    *control.Queue
	registry *update.Registry
	opts     *options
	logger   *zap.Logger

	tok   *token
	state state

	shutdownOnce sync.Once
	shutdownCh   chan struct{}

	mu       sync.Mutex
	inflight map[uint64]string
	nextUnit uint64
	wg       sync.WaitGroup

	cycles           atomic.Uint64
	pollErrors       atomic.Uint64
	commandsLaunched atomic.Uint64
	commandFailures  atomic.Uint64
	tasksLaunched    atomic.Uint64
}

// Stats are counters describing the driver's activity so far.
type Stats struct {
	Cycles           uint64
	PollErrors       uint64
	CommandsLaunched uint64
	CommandFailures  uint64
	TasksLaunched    uint64
	InFlight         int
}

// New creates a driver polling p.
func New(p gui.Poller, opts ...Option) (*Driver, error) {
	if p == nil {
		return nil, ErrNilPoller
	}
	o := resolveOptions(opts)
	registry := o.registry
	if registry == nil {
		registry = update.NewRegistry(o.registryCfg, o.logger)
	}
	return &Driver{
		poller:     p,
		queue:      o.queue,
		registry:   registry,
		opts:       o,
		logger:     o.logger.Named("loop"),
		tok:        newToken(),
		shutdownCh: make(chan struct{}),
		inflight:   make(map[uint64]string),
	}, nil
}

// Queue returns the command queue.
func (d *Driver) Queue() *control.Queue { return d.queue }

// Registry returns the update task registry.
func (d *Driver) Registry() *update.Registry { return d.registry }

// State returns the current lifecycle state.
func (d *Driver) State() LoopState { return d.state.Load() }

// Submit hands fn to the loop. It never blocks and may be called from any
// goroutine, including widget callbacks. fn starts on the control thread
// during the cycle after the next drain.
func (d *Driver) Submit(name string, fn control.Func) (uuid.UUID, error) {
	return d.queue.Submit(name, fn)
}

// Command returns a plain callback submitting fn each time it is called, for
// use as a widget handler.
func (d *Driver) Command(name string, fn control.Func) func() {
	return control.Wrap(d.queue, name, fn)
}

// Register adds a periodic update routine. A zero interval uses the
// configured default.
func (d *Driver) Register(name string, fn update.Routine, interval time.Duration) error {
	return d.registry.Register(name, fn, interval)
}

// Unregister removes a periodic update routine.
func (d *Driver) Unregister(name string) bool {
	return d.registry.Remove(name)
}

// Shutdown requests a graceful stop. Safe to call from any goroutine, any
// number of times. Run returns once the driver has stopped.
func (d *Driver) Shutdown() {
	d.shutdownOnce.Do(func() {
		close(d.shutdownCh)
		if d.state.TryTransition(StateInit, StateStopped) {
			d.queue.Close()
		}
	})
}

// Stats returns a snapshot of the driver counters.
func (d *Driver) Stats() Stats {
	d.mu.Lock()
	inflight := len(d.inflight)
	d.mu.Unlock()
	return Stats{
		Cycles:           d.cycles.Load(),
		PollErrors:       d.pollErrors.Load(),
		CommandsLaunched: d.commandsLaunched.Load(),
		CommandFailures:  d.commandFailures.Load(),
		TasksLaunched:    d.tasksLaunched.Load(),
		InFlight:         inflight,
	}
}

// Run drives the loop until ctx is done, Shutdown is called, or the poller
// reports gui.ErrShutdownRequested. In-flight units are then cancelled and
// given the shutdown grace period to return. The returned error lists the
// units still running when the grace period ran out; a clean stop returns
// nil.
func (d *Driver) Run(ctx context.Context) error {
	if !d.state.TryTransition(StateInit, StateRunning) {
		if d.state.Load() == StateStopped {
			return ErrStopped
		}
		return ErrAlreadyStarted
	}
	d.logger.Info("loop running", zap.Stringer("state", StateRunning))

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-d.shutdownCh:
			cancel()
		case <-runCtx.Done():
		}
	}()

	reason := d.loop(runCtx)

	d.state.Store(StateCancelling)
	d.logger.Info("loop cancelling", zap.Stringer("state", StateCancelling), zap.String("reason", reason))
	cancel()
	err := d.drain()
	d.queue.Close()

	d.state.Store(StateStopped)
	d.logger.Info("loop stopped", zap.Stringer("state", StateStopped), zap.Uint64("cycle", d.cycles.Load()))
	return err
}

// loop runs cycles until one asks to stop, returning why.
func (d *Driver) loop(ctx context.Context) string {
	for {
		if err := d.tok.acquire(ctx); err != nil {
			return "cancelled"
		}
		stop := d.cycle(ctx)
		d.tok.release()
		if stop {
			return "gui shutdown requested"
		}
		if err := d.opts.yield(ctx); err != nil {
			return "cancelled"
		}
	}
}

// cycle performs one iteration while holding the token. It reports whether
// the GUI asked to shut down.
func (d *Driver) cycle(ctx context.Context) bool {
	n := d.cycles.Add(1)

	if err := gui.Poll(d.poller); err != nil {
		if errors.Is(err, gui.ErrShutdownRequested) {
			d.logger.Info("gui shutdown requested", zap.Uint64("cycle", n))
			return true
		}
		d.pollErrors.Add(1)
		d.logger.Warn("gui poll failed", zap.Uint64("cycle", n), zap.Error(err))
	}

	for _, cmd := range d.queue.DrainAll() {
		d.launchCommand(ctx, cmd)
	}

	now := d.opts.now()
	for _, t := range d.registry.Due(now) {
		if err := d.registry.MarkStarted(t, now); err != nil {
			d.logger.Warn("update task not started", zap.String("task", t.Name()), zap.Error(err))
			continue
		}
		d.launchTask(ctx, t)
	}
	return false
}

func (d *Driver) launchCommand(ctx context.Context, cmd control.Command) {
	d.commandsLaunched.Add(1)
	d.logger.Debug("command launched",
		zap.String("command", cmd.Name),
		zap.Stringer("command_id", cmd.ID),
		zap.Duration("queued", time.Since(cmd.Submitted)))

	d.launch(ctx, "command "+cmd.Name, func(ctx context.Context) error {
		if d.opts.commandTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, d.opts.commandTimeout)
			defer cancel()
		}
		return cmd.Run(ctx)
	}, func(err error) {
		switch {
		case err == nil:
			d.logger.Debug("command finished",
				zap.String("command", cmd.Name),
				zap.Stringer("command_id", cmd.ID))
		case errors.Is(err, context.Canceled) && ctx.Err() != nil:
			d.logger.Info("command cancelled",
				zap.String("command", cmd.Name),
				zap.Stringer("command_id", cmd.ID))
		default:
			d.commandFailures.Add(1)
			d.logger.Error("command failed",
				zap.String("command", cmd.Name),
				zap.Stringer("command_id", cmd.ID),
				zap.Error(err))
		}
	})
}

func (d *Driver) launchTask(ctx context.Context, t *update.Task) {
	d.tasksLaunched.Add(1)
	d.logger.Debug("update task launched", zap.String("task", t.Name()))

	d.launch(ctx, "task "+t.Name(), t.Invoke, func(err error) {
		var te *update.TaskError
		if err != nil && !errors.As(err, &te) {
			err = &update.TaskError{Task: t.Name(), Err: err}
		}
		if ferr := d.registry.MarkFinished(t, d.opts.now(), err); ferr != nil {
			d.logger.Error("update task bookkeeping failed", zap.String("task", t.Name()), zap.Error(ferr))
		}
	})
}

// launch starts fn as an independent unit. done always runs, without the
// token, with fn's result, a PanicError, or the reason fn never started.
func (d *Driver) launch(ctx context.Context, name string, fn func(context.Context) error, done func(error)) {
	id := d.track(name)
	go func() {
		defer d.untrack(id)

		u := &unit{tok: d.tok}
		uctx := withUnit(ctx, u)
		err := u.acquire(uctx)
		if err == nil {
			err = invoke(uctx, fn)
			u.release()
		}
		done(err)
	}()
}

func invoke(ctx context.Context, fn func(context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = PanicError{Value: r, Stack: debug.Stack()}
		}
	}()
	return fn(ctx)
}

func (d *Driver) track(name string) uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.nextUnit++
	d.inflight[d.nextUnit] = name
	d.wg.Add(1)
	return d.nextUnit
}

func (d *Driver) untrack(id uint64) {
	d.mu.Lock()
	delete(d.inflight, id)
	d.mu.Unlock()
	d.wg.Done()
}

// drain waits up to the grace period for in-flight units. Units still running
// afterwards are reported and left behind.
func (d *Driver) drain() error {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	timer := time.NewTimer(d.opts.grace)
	defer timer.Stop()
	select {
	case <-done:
		return nil
	case <-timer.C:
	}

	d.mu.Lock()
	stragglers := make([]string, 0, len(d.inflight))
	for _, name := range d.inflight {
		stragglers = append(stragglers, name)
	}
	d.mu.Unlock()
	sort.Strings(stragglers)

	var err error
	for _, name := range stragglers {
		d.logger.Warn("unit still running after shutdown grace period",
			zap.String("unit", name),
			zap.Duration("grace", d.opts.grace))
		err = multierr.Append(err, fmt.Errorf("%w: %s", ErrGraceExceeded, name))
	}
	return err
}
