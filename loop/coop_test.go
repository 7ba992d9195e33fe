package loop

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func heldUnit(t *testing.T) (context.Context, *unit, *token) {
	t.Helper()
	tok := newToken()
	u := &unit{tok: tok}
	ctx := withUnit(context.Background(), u)
	require.NoError(t, u.acquire(ctx))
	return ctx, u, tok
}

func TestOnControlThread(t *testing.T) {
	assert.False(t, OnControlThread(context.Background()))

	ctx, u, _ := heldUnit(t)
	assert.True(t, OnControlThread(ctx))

	u.release()
	assert.False(t, OnControlThread(ctx))
	u.release() // no-op when not held
}

func TestAwait_OutsideUnitCallsDirectly(t *testing.T) {
	called := false
	err := Await(context.Background(), func(context.Context) error {
		called = true
		return nil
	})
	require.NoError(t, err)
	assert.True(t, called)

	v, err := AwaitValue(context.Background(), func(context.Context) (int, error) { return 42, nil })
	require.NoError(t, err)
	assert.Equal(t, 42, v)
}

func TestAwait_ReleasesTokenWhileSuspended(t *testing.T) {
	ctx, _, tok := heldUnit(t)

	err := Await(ctx, func(ctx context.Context) error {
		assert.False(t, OnControlThread(ctx))
		// someone else can take the control thread meanwhile
		require.NoError(t, tok.acquire(context.Background()))
		tok.release()
		return nil
	})
	require.NoError(t, err)
	assert.True(t, OnControlThread(ctx), "token must be held again after Await")
}

func TestAwait_ReturnsFnError(t *testing.T) {
	ctx, _, _ := heldUnit(t)
	cause := errors.New("disk full")

	err := Await(ctx, func(context.Context) error { return cause })
	assert.ErrorIs(t, err, cause)
	assert.True(t, OnControlThread(ctx))

	_, err = AwaitValue(ctx, func(context.Context) (string, error) { return "", cause })
	assert.ErrorIs(t, err, cause)
}

func TestAwait_CancelledWhileWaitingForToken(t *testing.T) {
	base, cancel := context.WithCancel(context.Background())
	tok := newToken()
	u := &unit{tok: tok}
	ctx := withUnit(base, u)
	require.NoError(t, u.acquire(ctx))

	err := Await(ctx, func(context.Context) error {
		// another party grabs the token and keeps it
		require.NoError(t, tok.acquire(context.Background()))
		cancel()
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, OnControlThread(ctx), "a unit cancelled while suspended must not hold the token")
}

func TestSleep(t *testing.T) {
	ctx, _, _ := heldUnit(t)

	start := time.Now()
	require.NoError(t, Sleep(ctx, 20*time.Millisecond))
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
	assert.True(t, OnControlThread(ctx))

	cctx, cancel := context.WithCancel(ctx)
	cancel()
	err := Sleep(cctx, time.Hour)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestYield(t *testing.T) {
	ctx, _, _ := heldUnit(t)
	require.NoError(t, Yield(ctx))
	assert.True(t, OnControlThread(ctx))

	require.NoError(t, Yield(context.Background()))
}

func TestToken_AcquireHonoursContext(t *testing.T) {
	tok := newToken()
	require.NoError(t, tok.acquire(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, tok.acquire(ctx), context.DeadlineExceeded)

	tok.release()
	require.NoError(t, tok.acquire(context.Background()))
}
