package gui

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoll_PassesThroughSuccessAndShutdown(t *testing.T) {
	assert.NoError(t, Poll(PollerFunc(func() error { return nil })))

	err := Poll(PollerFunc(func() error {
		return fmt.Errorf("window destroyed: %w", ErrShutdownRequested)
	}))
	assert.ErrorIs(t, err, ErrShutdownRequested)

	var pe *PollError
	assert.False(t, errors.As(err, &pe), "shutdown must not be reported as a poll error")
}

func TestPoll_WrapsToolkitFailures(t *testing.T) {
	cause := errors.New("tcl: bad window path")
	err := Poll(PollerFunc(func() error { return cause }))

	var pe *PollError
	require.ErrorAs(t, err, &pe)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "gui: poll failed")

	// already wrapped errors are not wrapped twice
	err = Poll(PollerFunc(func() error { return &PollError{Err: cause} }))
	require.ErrorAs(t, err, &pe)
	assert.Same(t, cause, pe.Err)
}

func TestPoll_RecoversPanics(t *testing.T) {
	err := Poll(PollerFunc(func() error { panic("boom") }))

	var pe *PollError
	require.ErrorAs(t, err, &pe)
	assert.Contains(t, err.Error(), "boom")
}

func TestHeadless_RunsPostedEventsOnPoll(t *testing.T) {
	h := NewHeadless()

	var got []int
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			h.Post(func() { got = append(got, i) })
		}(i)
	}
	wg.Wait()

	require.NoError(t, h.PollOnce())
	assert.Len(t, got, 10)
	assert.Equal(t, uint64(1), h.Polls())

	// events are consumed once
	require.NoError(t, h.PollOnce())
	assert.Len(t, got, 10)
	assert.Equal(t, uint64(2), h.Polls())
}

func TestHeadless_EventsPostedDuringPollWaitForNextStep(t *testing.T) {
	h := NewHeadless()
	ran := 0
	h.Post(func() {
		ran++
		h.Post(func() { ran++ })
	})

	require.NoError(t, h.PollOnce())
	assert.Equal(t, 1, ran)
	require.NoError(t, h.PollOnce())
	assert.Equal(t, 2, ran)
}

func TestHeadless_Close(t *testing.T) {
	h := NewHeadless()
	h.Post(nil)
	require.NoError(t, h.PollOnce())

	h.Close()
	assert.ErrorIs(t, h.PollOnce(), ErrShutdownRequested)
	assert.Equal(t, uint64(1), h.Polls())
}
