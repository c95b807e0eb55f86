package components

import (
	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
)

// PrimaryButton creates a high-importance button for the main action of a panel
func PrimaryButton(text string, tapped func()) *widget.Button {
	btn := widget.NewButton(text, tapped)
	btn.Importance = widget.HighImportance
	return btn
}

// SecondaryButton creates a standard button
func SecondaryButton(text string, tapped func()) *widget.Button {
	return widget.NewButton(text, tapped)
}

// DangerButton creates a button for destructive actions
func DangerButton(text string, tapped func()) *widget.Button {
	btn := widget.NewButton(text, tapped)
	btn.Importance = widget.DangerImportance
	return btn
}

// RunButton toggles between Start and Stop. Call SetRunning from the UI tick
// and place the embedded Button in containers.
type RunButton struct {
	*widget.Button
	running bool
	onStart func()
	onStop  func()
}

// NewRunButton creates a start/stop toggle
func NewRunButton(onStart, onStop func()) *RunButton {
	rb := &RunButton{onStart: onStart, onStop: onStop}
	rb.Button = widget.NewButtonWithIcon("Start", theme.MediaPlayIcon(), rb.tapped)
	rb.Importance = widget.HighImportance
	return rb
}

func (rb *RunButton) tapped() {
	if rb.running {
		rb.onStop()
	} else {
		rb.onStart()
	}
}

// SetRunning updates the label; it is a no-op when the state did not change
func (rb *RunButton) SetRunning(running bool) {
	if running == rb.running {
		return
	}
	rb.running = running
	if running {
		rb.SetText("Stop")
		rb.SetIcon(theme.MediaStopIcon())
		rb.Importance = widget.DangerImportance
	} else {
		rb.SetText("Start")
		rb.SetIcon(theme.MediaPlayIcon())
		rb.Importance = widget.HighImportance
	}
	rb.Refresh()
}

// ButtonGroup lays out related buttons horizontally
func ButtonGroup(buttons ...fyne.CanvasObject) fyne.CanvasObject {
	return container.NewHBox(buttons...)
}
