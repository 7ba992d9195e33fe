package loop

import (
	"errors"
	"fmt"
)

var (
	ErrNilPoller      = errors.New("loop: poller is nil")
	ErrAlreadyStarted = errors.New("loop: driver already started")
	ErrStopped        = errors.New("loop: driver stopped")
	ErrGraceExceeded  = errors.New("loop: unit still running after shutdown grace period")
)

// PanicError is returned in place of a command or task that panicked. The
// panic is contained to that unit.
type PanicError struct {
	Value any
	Stack []byte
}

func (e PanicError) Error() string {
	return fmt.Sprintf("loop: unit panicked: %v", e.Value)
}

// Unwrap returns the panic value if it was an error.
func (e PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}
