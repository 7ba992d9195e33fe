package control

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func noop(context.Context) error { return nil }

func TestQueue_SubmitAndDrain(t *testing.T) {
	q := NewQueue(nil)

	id1, err := q.Submit("first", noop)
	require.NoError(t, err)
	id2, err := q.Submit("second", noop)
	require.NoError(t, err)
	assert.NotEqual(t, id1, id2)
	assert.Equal(t, 2, q.Len())

	batch := q.DrainAll()
	require.Len(t, batch, 2)
	assert.Equal(t, "first", batch[0].Name)
	assert.Equal(t, id2, batch[1].ID)
	assert.False(t, batch[0].Submitted.IsZero())

	assert.Equal(t, 0, q.Len())
	assert.Empty(t, q.DrainAll())
	assert.Equal(t, uint64(2), q.Submitted())
	assert.Equal(t, uint64(2), q.Drained())
}

func TestQueue_RejectsNilFunc(t *testing.T) {
	q := NewQueue(nil)
	id, err := q.Submit("nil", nil)
	assert.ErrorIs(t, err, ErrNilFunc)
	assert.Equal(t, uuid.Nil, id)
	assert.Equal(t, 0, q.Len())
}

func TestQueue_ConcurrentProducersLoseNothing(t *testing.T) {
	q := NewQueue(nil)
	const producers, perProducer = 16, 200

	var (
		wg      sync.WaitGroup
		drainMu sync.Mutex
		seen    = make(map[uuid.UUID]int)
		stop    = make(chan struct{})
		drained = make(chan struct{})
	)

	// drain concurrently with the producers, like the driver does
	go func() {
		defer close(drained)
		for {
			select {
			case <-stop:
				for _, cmd := range q.DrainAll() {
					drainMu.Lock()
					seen[cmd.ID]++
					drainMu.Unlock()
				}
				return
			default:
			}
			for _, cmd := range q.DrainAll() {
				drainMu.Lock()
				seen[cmd.ID]++
				drainMu.Unlock()
			}
		}
	}()

	ids := make(chan uuid.UUID, producers*perProducer)
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				id, err := q.Submit("work", noop)
				if err != nil {
					t.Error(err)
					return
				}
				ids <- id
			}
		}()
	}
	wg.Wait()
	close(stop)
	<-drained
	close(ids)

	count := 0
	for id := range ids {
		count++
		assert.Equal(t, 1, seen[id], "command %s drained %d times", id, seen[id])
	}
	assert.Equal(t, producers*perProducer, count)
	assert.Len(t, seen, producers*perProducer)
}

func TestQueue_CloseReturnsUndrainedAndRejectsNewWork(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	q := NewQueue(zap.New(core))

	_, err := q.Submit("late", noop)
	require.NoError(t, err)

	dropped := q.Close()
	require.Len(t, dropped, 1)
	assert.Equal(t, "late", dropped[0].Name)
	assert.Nil(t, q.Close(), "second close is a no-op")

	_, err = q.Submit("after", noop)
	assert.ErrorIs(t, err, ErrQueueClosed)

	assert.Equal(t, 1, logs.FilterMessage("command dropped at shutdown").Len())
	assert.Equal(t, 1, logs.FilterMessage("command rejected, queue closed").Len())
}

func TestWrap_SubmitsOnEveryCall(t *testing.T) {
	q := NewQueue(nil)
	cb := Wrap(q, "click", noop)

	cb()
	cb()

	batch := q.DrainAll()
	require.Len(t, batch, 2)
	assert.Equal(t, "click", batch[0].Name)
	assert.NotEqual(t, batch[0].ID, batch[1].ID)
}

func TestCommand_RunWrapsFailures(t *testing.T) {
	cause := errors.New("network down")
	cmd := NewCommand("fetch", func(context.Context) error { return cause })

	err := cmd.Run(context.Background())
	var ce *CommandError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "fetch", ce.Name)
	assert.Equal(t, cmd.ID, ce.ID)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), `command "fetch"`)

	assert.NoError(t, NewCommand("ok", noop).Run(context.Background()))
	assert.ErrorIs(t, Command{Name: "empty"}.Run(context.Background()), ErrNilFunc)
}
