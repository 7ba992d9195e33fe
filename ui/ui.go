package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"AsyncFyne/control"
	"AsyncFyne/i18n"
	"AsyncFyne/update"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/layout"
	"fyne.io/fyne/v2/widget"
)

const (
	WindowWidth  = 360
	WindowHeight = 180
	TextSize     = 16
)

// App is what the window needs from the application. Widget callbacks never
// do work themselves; they hand it to the loop through Command.
type App interface {
	Command(name string, fn control.Func) func()
	OnClick(ctx context.Context) error
}

// MainWindow is the demo window and the widgets the update routines refresh.
type MainWindow struct {
	Window fyne.Window
	Clock  *widget.Label
	Status *widget.Label
	Button *widget.Button
}

// CreateMainWindow builds the demo window. Space or Enter on the window taps
// the button.
func CreateMainWindow(a App, fyneApp fyne.App) *MainWindow {
	title := fyneApp.Metadata().Name
	if title == "" {
		title = "AsyncFyne"
	}
	w := fyneApp.NewWindow(title)

	m := &MainWindow{
		Window: w,
		Clock:  widget.NewLabelWithStyle("--:--:--", fyne.TextAlignCenter, fyne.TextStyle{Monospace: true}),
		Status: widget.NewLabel(i18n.T("No update tasks")),
	}
	m.Status.Wrapping = fyne.TextWrapWord
	m.Button = widget.NewButton(i18n.T("Click me"), a.Command("click", a.OnClick))

	w.Canvas().SetOnTypedRune(func(r rune) {
		if r == ' ' {
			m.Button.Tapped(&fyne.PointEvent{})
		}
	})
	w.Canvas().SetOnTypedKey(func(e *fyne.KeyEvent) {
		if e.Name == fyne.KeyReturn || e.Name == fyne.KeyEnter {
			m.Button.Tapped(&fyne.PointEvent{})
		}
	})

	w.SetContent(container.NewVBox(
		m.Clock,
		container.New(layout.NewCenterLayout(), m.Button),
		m.Status,
	))
	w.Resize(fyne.NewSize(WindowWidth, WindowHeight))
	return m
}

// ShowDone opens the dialog shown when the background work finishes. Call it
// from the control thread.
func (m *MainWindow) ShowDone() {
	dialog.NewCustom(i18n.T("Done"), i18n.T("Close"),
		widget.NewLabel(i18n.T("Background work finished.")), m.Window).Show()
}

// SetBusy toggles the button between its idle and working look.
func (m *MainWindow) SetBusy(busy bool) {
	if busy {
		m.Button.SetText(i18n.T("Working…"))
		return
	}
	m.Button.SetText(i18n.T("Click me"))
}

// FormatTime converts a number of seconds into a mm:ss string format.
func FormatTime(sec int) string {
	if sec < 0 {
		sec = 0
	}
	return fmt.Sprintf("%02d:%02d", sec/60, sec%60)
}

// FormatClock renders the wall clock and the time since started.
func FormatClock(now, started time.Time) string {
	return fmt.Sprintf("%s  (%s)", now.Format("15:04:05"), FormatTime(int(now.Sub(started)/time.Second)))
}

// FormatStatus renders one line per update task.
func FormatStatus(snaps []update.Snapshot) string {
	if len(snaps) == 0 {
		return i18n.T("No update tasks")
	}
	lines := make([]string, len(snaps))
	for i, s := range snaps {
		lines[i] = fmt.Sprintf("%s: %d %s, %d %s, %d %s",
			s.Name,
			s.Runs, i18n.T("runs"),
			s.Overruns, i18n.T("overruns"),
			s.Failures, i18n.T("failures"))
	}
	return strings.Join(lines, "\n")
}
