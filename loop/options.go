package loop

import (
	"context"
	"runtime"
	"time"

	"AsyncFyne/config"
	"AsyncFyne/control"
	"AsyncFyne/update"

	"go.uber.org/zap"
)

const (
	DefaultCycleInterval = 10 * time.Millisecond
	DefaultShutdownGrace = 2 * time.Second
)

// YieldFunc is what the driver does between cycles, with the control token
// released. It returns an error only when ctx is done.
type YieldFunc func(ctx context.Context) error

// SleepYield waits d between cycles. It is the default strategy, using
// DefaultCycleInterval.
func SleepYield(d time.Duration) YieldFunc {
	return func(ctx context.Context) error {
		timer := time.NewTimer(d)
		defer timer.Stop()
		select {
		case <-timer.C:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// GoschedYield only yields the processor between cycles. It minimises
// latency at the cost of a busy loop.
func GoschedYield(ctx context.Context) error {
	runtime.Gosched()
	return ctx.Err()
}

type options struct {
	logger         *zap.Logger
	queue          *control.Queue
	registry       *update.Registry
	registryCfg    update.Config
	yield          YieldFunc
	commandTimeout time.Duration
	grace          time.Duration
	now            func() time.Time
}

// Option configures a Driver.
type Option func(*options)

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithQueue supplies the command queue, e.g. to share it with code built
// before the driver.
func WithQueue(q *control.Queue) Option {
	return func(o *options) { o.queue = q }
}

// WithRegistry supplies the update task registry. It takes precedence over
// WithRegistryConfig.
func WithRegistry(r *update.Registry) Option {
	return func(o *options) { o.registry = r }
}

// WithRegistryConfig configures the registry the driver creates.
func WithRegistryConfig(cfg update.Config) Option {
	return func(o *options) { o.registryCfg = cfg }
}

// WithYield sets the strategy used between cycles.
func WithYield(y YieldFunc) Option {
	return func(o *options) {
		if y != nil {
			o.yield = y
		}
	}
}

// WithCycleInterval is shorthand for WithYield(SleepYield(d)).
func WithCycleInterval(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.yield = SleepYield(d)
		}
	}
}

// WithCommandTimeout bounds every command. Zero, the default, leaves commands
// unbounded.
func WithCommandTimeout(d time.Duration) Option {
	return func(o *options) { o.commandTimeout = d }
}

// WithShutdownGrace sets how long in-flight units get to unwind once the
// driver is cancelling.
func WithShutdownGrace(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.grace = d
		}
	}
}

// WithClock replaces time.Now for due-checks.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithConfig applies the loaded configuration.
func WithConfig(cfg *config.Config) Option {
	return func(o *options) {
		policy, _ := update.ParsePolicy(cfg.OverrunPolicy)
		o.registryCfg = update.Config{
			DefaultInterval: cfg.UpdateInterval(),
			Timeout:         cfg.PerTaskTimeout(),
			Policy:          policy,
		}
		o.commandTimeout = cfg.CommandTimeout()
		if d := cfg.CycleInterval(); d > 0 {
			o.yield = SleepYield(d)
		}
		if d := cfg.ShutdownGrace(); d > 0 {
			o.grace = d
		}
	}
}

func resolveOptions(opts []Option) *options {
	o := &options{
		yield: SleepYield(DefaultCycleInterval),
		grace: DefaultShutdownGrace,
		now:   time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}
	if o.queue == nil {
		o.queue = control.NewQueue(o.logger)
	}
	return o
}
