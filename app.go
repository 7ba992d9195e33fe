// Package main wires the demo application: a fyne window driven by the
// cooperative loop, with a clock and a status line refreshed by update
// routines and a button whose command does slow work without freezing the
// window.
//
// Maintenance notes / tips:
//   - Everything touching widgets runs on the loop's control thread and goes
//     through gui.Fyne.Update, which hands the mutation to fyne on the next
//     poll. Never call widget setters from a goroutine of your own.
//   - Button handlers only submit commands (see Command). Slow work inside a
//     command or routine must suspend with loop.Sleep or loop.Await, otherwise
//     it stalls the window and every other unit.
//   - The clock routine deliberately suspends for longer than its interval so
//     the overrun warnings and the status line have something to show.
package main

import (
	"context"
	"errors"
	"time"

	"AsyncFyne/audio"
	"AsyncFyne/config"
	"AsyncFyne/control"
	"AsyncFyne/gui"
	"AsyncFyne/loop"
	"AsyncFyne/ui"

	"fyne.io/fyne/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	clockTask  = "clock"
	statusTask = "status"
	chimeSound = "chime"

	// clockOverrun is how much longer than its interval the clock routine
	// stays suspended.
	clockOverrun = 1.1
	clickWork    = 2 * time.Second
)

// AppManager is the main application struct, holding all state.
type AppManager struct {
	cfg    *config.Config
	logger *zap.Logger

	window  *ui.MainWindow
	gui     *gui.Fyne
	driver  *loop.Driver
	player  *audio.Player
	started time.Time
}

// NewAppManager builds the window, the fyne adapter and the driver, and
// registers the update routines.
func NewAppManager(cfg *config.Config, fyneApp fyne.App, player *audio.Player, logger *zap.Logger) (*AppManager, error) {
	a := &AppManager{cfg: cfg, logger: logger, player: player, started: time.Now()}

	if err := player.LoadTone(chimeSound, 880, 300*time.Millisecond); err != nil {
		return nil, err
	}

	a.window = ui.CreateMainWindow(a, fyneApp)
	a.gui = gui.NewFyne(a.window.Window, logger)

	d, err := loop.New(a.gui, loop.WithConfig(cfg), loop.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	a.driver = d

	if err := d.Register(clockTask, a.refreshClock, cfg.UpdateInterval()); err != nil {
		return nil, err
	}
	if err := d.Register(statusTask, a.refreshStatus, cfg.UpdateInterval()); err != nil {
		return nil, err
	}
	return a, nil
}

// Submit posts a command to the loop. It satisfies control.Submitter.
func (a *AppManager) Submit(name string, fn control.Func) (uuid.UUID, error) {
	return a.driver.Submit(name, fn)
}

// Command returns a widget callback submitting fn. The driver is looked up
// when the callback fires, so widgets can be built before it exists.
func (a *AppManager) Command(name string, fn control.Func) func() {
	return control.Wrap(a, name, fn)
}

// OnClick is the button's command: slow work, then a dialog and a chime.
func (a *AppManager) OnClick(ctx context.Context) error {
	a.gui.Update(func() { a.window.SetBusy(true) })
	if err := loop.Sleep(ctx, clickWork); err != nil {
		return err
	}
	a.gui.Update(func() {
		a.window.SetBusy(false)
		a.window.ShowDone()
	})
	a.PlaySound(chimeSound)
	return nil
}

// PlaySound plays a pre-rendered sound. A missing speaker is not an error
// worth more than a debug line.
func (a *AppManager) PlaySound(name string) {
	if err := a.player.Play(name); err != nil {
		if errors.Is(err, audio.ErrAudioDisabled) {
			a.logger.Debug("sound skipped", zap.String("sound", name), zap.Error(err))
			return
		}
		a.logger.Warn("failed to play sound", zap.String("sound", name), zap.Error(err))
	}
}

func (a *AppManager) refreshClock(ctx context.Context) error {
	text := ui.FormatClock(time.Now(), a.started)
	a.gui.Update(func() { a.window.Clock.SetText(text) })

	hold := time.Duration(float64(a.cfg.UpdateInterval()) * clockOverrun)
	return loop.Sleep(ctx, hold)
}

func (a *AppManager) refreshStatus(context.Context) error {
	text := ui.FormatStatus(a.driver.Registry().Snapshots())
	a.gui.Update(func() { a.window.Status.SetText(text) })
	return nil
}

// Run drives the loop until the window closes, ctx is done or Shutdown is
// called.
func (a *AppManager) Run(ctx context.Context) error {
	return a.driver.Run(ctx)
}

// Shutdown asks the loop to stop.
func (a *AppManager) Shutdown() {
	a.driver.Shutdown()
}

// Window returns the main window.
func (a *AppManager) Window() fyne.Window {
	return a.window.Window
}

// WindowClosed reports whether the user closed the window.
func (a *AppManager) WindowClosed() bool {
	return a.gui.Closed()
}
