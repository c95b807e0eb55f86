package gui

import (
	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"

	"jordanella.com/game-helper-go/internal/gui/components"
	"jordanella.com/game-helper-go/internal/tools"
)

// Overlay is a compact window listing every tool with a start/stop toggle.
// While it is shown the UI polls at the faster overlay interval.
type Overlay struct {
	controller *Controller
	window     fyne.Window
	rows       *fyne.Container
	entries    []overlayRow
}

type overlayRow struct {
	id     string
	runBtn *components.RunButton
	status *widget.Label
}

// NewOverlay creates the hidden overlay window
func NewOverlay(ctrl *Controller) *Overlay {
	o := &Overlay{controller: ctrl}
	o.window = ctrl.app.NewWindow("Helper")
	o.window.Resize(OverlayWindowSize)
	o.window.SetFixedSize(true)
	o.window.SetCloseIntercept(o.Hide)

	o.rows = container.NewVBox()
	back := components.SecondaryButton("Full view", o.Hide)
	stopAll := components.DangerButton("Stop all", func() {
		ctrl.manager.StopAll()
		ctrl.refreshTools()
	})
	o.window.SetContent(container.NewBorder(nil, container.NewHBox(back, stopAll), nil, nil,
		container.NewVScroll(o.rows)))
	return o
}

// Show swaps the main window for the overlay
func (o *Overlay) Show() {
	o.Rebuild()
	o.controller.setOverlayActive(true)
	o.controller.window.Hide()
	o.window.Show()
}

// Hide returns to the main window
func (o *Overlay) Hide() {
	o.window.Hide()
	o.controller.setOverlayActive(false)
	o.controller.window.Show()
}

// Rebuild recreates one row per tool
func (o *Overlay) Rebuild() {
	o.rows.RemoveAll()
	o.entries = o.entries[:0]
	for _, t := range o.controller.manager.Tools() {
		id := t.ID()
		row := overlayRow{id: id, status: widget.NewLabel("")}
		row.status.Truncation = fyne.TextTruncateEllipsis
		row.runBtn = components.NewRunButton(
			func() { o.controller.startTool(id) },
			func() { o.controller.stopTool(id) },
		)
		o.entries = append(o.entries, row)
		o.rows.Add(container.NewBorder(nil, nil, row.runBtn.Button, nil,
			container.NewVBox(widget.NewLabel(overlayLabel(t)), row.status)))
	}
	o.rows.Refresh()
}

// Refresh mirrors run state; called every UI tick
func (o *Overlay) Refresh() {
	for _, row := range o.entries {
		t, err := o.controller.manager.Get(row.id)
		if err != nil {
			continue
		}
		row.runBtn.SetRunning(t.IsRunning())
		if status := t.Status(); row.status.Text != status {
			row.status.SetText(status)
		}
	}
}

func overlayLabel(t tools.Tool) string {
	return t.Kind().Label() + ": " + t.Name()
}
