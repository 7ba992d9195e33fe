package gui

import (
	"testing"

	"fyne.io/fyne/v2/test"
	"fyne.io/fyne/v2/widget"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func newTestFyne(t *testing.T) (*Fyne, *observer.ObservedLogs, func()) {
	t.Helper()
	a := test.NewApp()
	t.Cleanup(a.Quit)

	w := test.NewWindow(nil)
	core, logs := observer.New(zap.InfoLevel)
	f := NewFyne(w, zap.New(core))
	f.do = func(fn func()) { fn() }
	return f, logs, w.Close
}

func TestFyne_FlushesQueuedUpdatesAsOneBatch(t *testing.T) {
	f, _, _ := newTestFyne(t)
	label := widget.NewLabel("")

	f.Update(func() { label.SetText("a") })
	f.Update(func() { label.SetText(label.Text + "b") })
	f.Update(nil)
	assert.Equal(t, "", label.Text, "updates must wait for a poll")

	require.NoError(t, f.PollOnce())
	assert.Equal(t, "ab", label.Text)
	assert.Equal(t, uint64(1), f.Batches())

	// nothing pending, nothing handed to fyne
	require.NoError(t, f.PollOnce())
	assert.Equal(t, uint64(1), f.Batches())
}

func TestFyne_WindowCloseRequestsShutdown(t *testing.T) {
	f, logs, closeWindow := newTestFyne(t)
	require.NoError(t, f.PollOnce())
	assert.False(t, f.Closed())

	closeWindow()

	assert.True(t, f.Closed())
	assert.ErrorIs(t, f.PollOnce(), ErrShutdownRequested)
	assert.Equal(t, 1, logs.FilterMessage("window closed").Len())
}

func TestFyne_OnClosedChainsHook(t *testing.T) {
	f := NewFyne(nil, nil)
	called := false
	hook := f.OnClosed(func() { called = true })

	hook()
	hook()

	assert.True(t, called)
	assert.ErrorIs(t, f.PollOnce(), ErrShutdownRequested)
}
