package gui

import (
	"sync"
	"sync/atomic"

	"fyne.io/fyne/v2"
	"go.uber.org/zap"
)

// Fyne adapts a fyne window to the Poller contract.
//
// fyne runs its native event loop on the main goroutine and cannot be
// stepped from outside, so one step here means: probe whether the window
// still exists, then hand every widget mutation queued since the last step to
// fyne as a single batch. The hand-off uses fyne.Do, which returns without
// waiting for the main goroutine.
type Fyne struct {
	mu      sync.Mutex
	pending []func()
	closed  atomic.Bool
	batches atomic.Uint64

	do     func(func())
	logger *zap.Logger
}

// NewFyne returns an adapter watching w. It installs w's OnClosed handler;
// callers needing their own close hook should use OnClosed on the adapter.
func NewFyne(w fyne.Window, logger *zap.Logger) *Fyne {
	if logger == nil {
		logger = zap.NewNop()
	}
	f := &Fyne{do: fyne.Do, logger: logger.Named("gui")}
	if w != nil {
		w.SetOnClosed(f.markClosed)
	}
	return f
}

// OnClosed wraps fn so that it also marks the session closed. Use it when the
// window needs a close hook of its own.
func (f *Fyne) OnClosed(fn func()) func() {
	return func() {
		f.markClosed()
		if fn != nil {
			fn()
		}
	}
}

func (f *Fyne) markClosed() {
	if f.closed.CompareAndSwap(false, true) {
		f.logger.Info("window closed")
	}
}

// Closed reports whether the watched window has been closed.
func (f *Fyne) Closed() bool {
	return f.closed.Load()
}

// Update queues a widget mutation for the next step. Safe for concurrent use;
// mutations are applied on fyne's goroutine in the order they were queued.
func (f *Fyne) Update(fn func()) {
	if fn == nil {
		return
	}
	f.mu.Lock()
	f.pending = append(f.pending, fn)
	f.mu.Unlock()
}

// Batches returns how many non-empty batches have been handed to fyne.
func (f *Fyne) Batches() uint64 {
	return f.batches.Load()
}

// PollOnce flushes queued mutations, or reports ErrShutdownRequested once the
// window is gone. Mutations still queued at that point are discarded.
func (f *Fyne) PollOnce() error {
	if f.closed.Load() {
		return ErrShutdownRequested
	}

	f.mu.Lock()
	batch := f.pending
	f.pending = nil
	f.mu.Unlock()

	if len(batch) == 0 {
		return nil
	}
	f.batches.Add(1)
	f.do(func() {
		for _, fn := range batch {
			fn()
		}
	})
	return nil
}
