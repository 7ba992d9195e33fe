package loop

import "sync/atomic"

// LoopState is the lifecycle of a Driver.
//
//	StateInit → StateRunning        [Run]
//	StateRunning → StateCancelling  [ctx done, Shutdown, gui.ErrShutdownRequested]
//	StateCancelling → StateStopped  [in-flight units done or grace period over]
//	StateInit → StateStopped        [Shutdown before Run]
type LoopState uint32

const (
	StateInit LoopState = iota
	StateRunning
	StateCancelling
	StateStopped
)

func (s LoopState) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateRunning:
		return "running"
	case StateCancelling:
		return "cancelling"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

type state struct {
	v atomic.Uint32
}

func (s *state) Load() LoopState {
	return LoopState(s.v.Load())
}

func (s *state) Store(v LoopState) {
	s.v.Store(uint32(v))
}

func (s *state) TryTransition(from, to LoopState) bool {
	return s.v.CompareAndSwap(uint32(from), uint32(to))
}
