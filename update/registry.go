package update

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Policy decides what happens to slots missed while a task overruns.
type Policy string

const (
	// PolicySkip drops missed slots. The task is due again as soon as it has
	// finished and one interval has passed since its last start.
	PolicySkip Policy = "skip"
	// PolicyQueue keeps one invocation per missed slot, up to MaxBacklog, and
	// runs them back to back once the in-flight invocation finishes.
	PolicyQueue Policy = "queue"
)

// MaxBacklog caps the invocations PolicyQueue keeps per task.
const MaxBacklog = 8

const (
	DefaultInterval = time.Second
	// timeoutFactor derives a task timeout from its interval when none is
	// configured.
	timeoutFactor = 3
)

// ParsePolicy parses "skip" or "queue"; the empty string means PolicySkip.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(strings.ToLower(strings.TrimSpace(s))) {
	case "", PolicySkip:
		return PolicySkip, nil
	case PolicyQueue:
		return PolicyQueue, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidPolicy, s)
}

// Config holds the registry-wide defaults.
type Config struct {
	// DefaultInterval applies to tasks registered with a zero interval.
	// Defaults to DefaultInterval if <= 0.
	DefaultInterval time.Duration
	// Timeout bounds every invocation. If <= 0 each task gets three times its
	// own interval.
	Timeout time.Duration
	// Policy defaults to PolicySkip.
	Policy Policy
	// OnOverrun, if set, is called for every reported overrun after it has
	// been logged. It runs on the caller of Due.
	OnOverrun func(*OverrunError)
}

// Registry is the ordered set of periodic tasks. It is owned by the loop
// driver but safe for concurrent use, so tasks may be registered while the
// loop runs.
type Registry struct {
	mu     sync.RWMutex
	tasks  []*Task
	index  map[string]int
	cfg    Config
	logger *zap.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(cfg Config, logger *zap.Logger) *Registry {
	if cfg.DefaultInterval <= 0 {
		cfg.DefaultInterval = DefaultInterval
	}
	if cfg.Policy == "" {
		cfg.Policy = PolicySkip
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		index:  make(map[string]int),
		cfg:    cfg,
		logger: logger.Named("registry"),
	}
}

// Policy returns the overrun policy in effect.
func (r *Registry) Policy() Policy {
	return r.cfg.Policy
}

// Register adds a periodic task. A zero interval uses the registry default;
// a negative one is rejected. Registering an existing name replaces that
// entry in place. An invocation of the replaced entry already in flight
// finishes against the old entry and does not block the new one.
func (r *Registry) Register(name string, fn Routine, interval time.Duration) error {
	switch {
	case name == "":
		return ErrEmptyName
	case fn == nil:
		return fmt.Errorf("%w: %s", ErrNilRoutine, name)
	case interval < 0:
		return fmt.Errorf("%w: %s: %s", ErrInvalidInterval, name, interval)
	case interval == 0:
		interval = r.cfg.DefaultInterval
	}

	timeout := r.cfg.Timeout
	if timeout <= 0 {
		timeout = interval * timeoutFactor
	}
	t := &Task{name: name, routine: fn, interval: interval, timeout: timeout}

	r.mu.Lock()
	i, replaced := r.index[name]
	if replaced {
		r.tasks[i] = t
	} else {
		r.index[name] = len(r.tasks)
		r.tasks = append(r.tasks, t)
	}
	r.mu.Unlock()

	r.logger.Info("update task registered",
		zap.String("task", name),
		zap.Duration("interval", interval),
		zap.Duration("timeout", timeout),
		zap.Bool("replaced", replaced))
	return nil
}

// Remove unregisters a task, reporting whether it existed. An in-flight
// invocation is left to finish.
func (r *Registry) Remove(name string) bool {
	r.mu.Lock()
	i, ok := r.index[name]
	if ok {
		r.tasks = append(r.tasks[:i], r.tasks[i+1:]...)
		delete(r.index, name)
		for j := i; j < len(r.tasks); j++ {
			r.index[r.tasks[j].name] = j
		}
	}
	r.mu.Unlock()

	if ok {
		r.logger.Info("update task removed", zap.String("task", name))
	}
	return ok
}

// Get looks a task up by name.
func (r *Registry) Get(name string) (*Task, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	i, ok := r.index[name]
	if !ok {
		return nil, false
	}
	return r.tasks[i], true
}

// Len returns the number of registered tasks.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tasks)
}

// Due returns, in registration order, every task that is not in flight and
// whose interval has elapsed since its last start (or that has never run, or
// has queued invocations). Tasks still in flight past a slot boundary are
// skipped and reported as overruns, once per missed slot.
func (r *Registry) Due(now time.Time) []*Task {
	r.mu.RLock()
	tasks := make([]*Task, len(r.tasks))
	copy(tasks, r.tasks)
	r.mu.RUnlock()

	var (
		due      []*Task
		overruns []OverrunError
	)
	for _, t := range tasks {
		t.mu.Lock()
		if t.running {
			elapsed := now.Sub(t.lastStart)
			if missed := int(elapsed / t.interval); missed > t.reported {
				fresh := missed - t.reported
				t.reported = missed
				t.overruns += uint64(fresh)
				if r.cfg.Policy == PolicyQueue {
					t.backlog = min(t.backlog+fresh, MaxBacklog)
				}
				overruns = append(overruns, OverrunError{
					Task:     t.name,
					Interval: t.interval,
					By:       elapsed - t.interval,
					Missed:   missed,
				})
			}
		} else if t.backlog > 0 || t.lastStart.IsZero() || now.Sub(t.lastStart) >= t.interval {
			due = append(due, t)
		}
		t.mu.Unlock()
	}

	for _, o := range overruns {
		r.logger.Warn("update task overrun",
			zap.String("task", o.Task),
			zap.Duration("interval", o.Interval),
			zap.Duration("overrun_by", o.By),
			zap.Int("missed", o.Missed),
			zap.String("policy", string(r.cfg.Policy)))
		if r.cfg.OnOverrun != nil {
			r.cfg.OnOverrun(&o)
		}
	}
	return due
}

// MarkStarted records the start of an invocation.
func (r *Registry) MarkStarted(t *Task, now time.Time) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.running {
		return fmt.Errorf("%w: %s", ErrAlreadyRunning, t.name)
	}
	t.running = true
	t.lastStart = now
	t.reported = 0
	t.runs++
	if t.backlog > 0 {
		t.backlog--
	}
	return nil
}

// MarkFinished records the end of an invocation and its outcome. A failed
// invocation is logged; the task stays registered.
func (r *Registry) MarkFinished(t *Task, now time.Time, err error) error {
	t.mu.Lock()
	if !t.running {
		t.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrNotRunning, t.name)
	}
	t.running = false
	t.lastDuration = now.Sub(t.lastStart)
	t.lastErr = err
	if err != nil {
		t.failures++
	}
	elapsed := t.lastDuration
	t.mu.Unlock()

	switch {
	case err == nil:
	case errors.Is(err, context.Canceled):
		r.logger.Info("update task cancelled",
			zap.String("task", t.name),
			zap.Duration("elapsed", elapsed))
	default:
		r.logger.Error("update task failed",
			zap.String("task", t.name),
			zap.Duration("elapsed", elapsed),
			zap.Error(err))
	}
	return nil
}

// Snapshots returns a snapshot of every task in registration order.
func (r *Registry) Snapshots() []Snapshot {
	r.mu.RLock()
	tasks := make([]*Task, len(r.tasks))
	copy(tasks, r.tasks)
	r.mu.RUnlock()

	out := make([]Snapshot, len(tasks))
	for i, t := range tasks {
		out[i] = t.Snapshot()
	}
	return out
}
