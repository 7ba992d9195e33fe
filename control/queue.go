package control

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Queue is an unbounded multi-producer, single-consumer command queue.
// Submit never blocks; DrainAll takes a snapshot so a producer outpacing the
// driver cannot keep one cycle busy forever.
type Queue struct {
	mu      sync.Mutex
	pending []Command
	closed  bool

	submitted atomic.Uint64
	drained   atomic.Uint64

	logger *zap.Logger
}

// NewQueue creates an open queue.
func NewQueue(logger *zap.Logger) *Queue {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Queue{logger: logger.Named("queue")}
}

// Submit wraps fn in a Command and enqueues it.
func (q *Queue) Submit(name string, fn Func) (uuid.UUID, error) {
	if fn == nil {
		return uuid.Nil, ErrNilFunc
	}
	cmd := NewCommand(name, fn)
	if err := q.Push(cmd); err != nil {
		return uuid.Nil, err
	}
	return cmd.ID, nil
}

// Push enqueues an already built command. It fails only once the queue has
// been closed.
func (q *Queue) Push(cmd Command) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		q.logger.Warn("command rejected, queue closed",
			zap.String("command", cmd.Name),
			zap.Stringer("command_id", cmd.ID))
		return ErrQueueClosed
	}
	q.pending = append(q.pending, cmd)
	depth := len(q.pending)
	q.mu.Unlock()

	q.submitted.Add(1)
	q.logger.Debug("command submitted",
		zap.String("command", cmd.Name),
		zap.Stringer("command_id", cmd.ID),
		zap.Int("queue_len", depth))
	return nil
}

// DrainAll removes and returns every queued command. Only the driver calls it.
func (q *Queue) DrainAll() []Command {
	q.mu.Lock()
	batch := q.pending
	q.pending = nil
	q.mu.Unlock()

	q.drained.Add(uint64(len(batch)))
	return batch
}

// Len returns the number of queued commands.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Submitted returns how many commands have been accepted.
func (q *Queue) Submitted() uint64 {
	return q.submitted.Load()
}

// Drained returns how many commands have been handed to the driver.
func (q *Queue) Drained() uint64 {
	return q.drained.Load()
}

// Close stops accepting commands and returns those never drained.
func (q *Queue) Close() []Command {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	dropped := q.pending
	q.pending = nil
	q.mu.Unlock()

	for _, cmd := range dropped {
		q.logger.Warn("command dropped at shutdown",
			zap.String("command", cmd.Name),
			zap.Stringer("command_id", cmd.ID))
	}
	q.logger.Info("command queue closed", zap.Int("dropped", len(dropped)))
	return dropped
}

// Submitter is anything commands can be submitted to.
type Submitter interface {
	Submit(name string, fn Func) (uuid.UUID, error)
}

// Wrap turns an asynchronous command into a plain callback suitable for
// widget handlers such as widget.NewButton. Each call submits a new command.
// Submission failures are already logged by the queue.
func Wrap(s Submitter, name string, fn Func) func() {
	return func() {
		_, _ = s.Submit(name, fn)
	}
}
