package audio

import (
	"testing"
	"time"

	"github.com/gopxl/beep"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLoadTone_Validation(t *testing.T) {
	p := newPlayer(false, nil, zap.NewNop())

	assert.ErrorIs(t, p.LoadTone("silent", 0, time.Second), ErrInvalidTone)
	assert.ErrorIs(t, p.LoadTone("short", 440, 0), ErrInvalidTone)
	// above the Nyquist frequency
	assert.ErrorIs(t, p.LoadTone("shrill", 30000, time.Second), ErrInvalidTone)
}

func TestPlay_PlaysRenderedBuffer(t *testing.T) {
	var played []beep.Streamer
	p := newPlayer(true, func(s ...beep.Streamer) { played = append(played, s...) }, zap.NewNop())

	require.NoError(t, p.LoadTone("chime", 880, 250*time.Millisecond))
	require.NoError(t, p.Play("chime"))
	require.Len(t, played, 1)

	seeker, ok := played[0].(beep.StreamSeeker)
	require.True(t, ok)
	assert.Equal(t, SampleRate.N(250*time.Millisecond), seeker.Len())

	assert.ErrorIs(t, p.Play("missing"), ErrUnknownSound)
}

func TestPlay_Disabled(t *testing.T) {
	p := newPlayer(false, func(...beep.Streamer) { t.Fatal("disabled player must not play") }, zap.NewNop())
	assert.False(t, p.Enabled())

	require.NoError(t, p.LoadTone("chime", 880, 100*time.Millisecond))
	assert.ErrorIs(t, p.Play("chime"), ErrAudioDisabled)
}
