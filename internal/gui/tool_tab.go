package gui

import (
	"errors"
	"fmt"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"

	"jordanella.com/game-helper-go/internal/gui/components"
	"jordanella.com/game-helper-go/internal/tools"
)

// ToolTab shows every profile of one kind: a selector, run controls,
// calibration buttons and the settings editor of the selected profile
type ToolTab struct {
	controller *Controller
	kind       tools.Kind

	ids        []string
	selectedID string

	profileSelect *widget.Select
	nameEntry     *widget.Entry
	runBtn        *components.RunButton
	status        *components.StatusLabel
	fieldsBox     *fyne.Container
	fieldButtons  map[string]*widget.Button
	editor        settingsEditor
}

// NewToolTab creates the tab for kind
func NewToolTab(ctrl *Controller, kind tools.Kind) *ToolTab {
	return &ToolTab{
		controller:   ctrl,
		kind:         kind,
		fieldButtons: make(map[string]*widget.Button),
		editor:       newSettingsEditor(kind, ctrl.templates, ctrl.window),
	}
}

// Build constructs the tab
func (t *ToolTab) Build() fyne.CanvasObject {
	t.profileSelect = widget.NewSelect(nil, func(string) {
		if i := t.profileSelect.SelectedIndex(); i >= 0 && i < len(t.ids) {
			t.selectProfile(t.ids[i])
		}
	})
	t.nameEntry = widget.NewEntry()
	t.nameEntry.OnSubmitted = func(string) { t.rename() }

	profileBar := container.NewBorder(nil, nil, widget.NewLabel("Profile:"),
		components.ButtonGroup(
			components.SecondaryButton("New", t.addProfile),
			components.DangerButton("Delete", t.confirmDelete),
		),
		t.profileSelect,
	)
	nameBar := container.NewBorder(nil, nil, widget.NewLabel("Name:"),
		components.SecondaryButton("Rename", t.rename), t.nameEntry)

	t.runBtn = components.NewRunButton(t.start, t.stop)
	t.status = components.NewStatusLabel()
	runCard := components.CardSection("Run", container.NewBorder(nil, nil, t.runBtn.Button, nil, t.status.Label))

	t.fieldsBox = container.NewGridWithColumns(3)
	calibrationCard := components.CardSection("Calibration", container.NewVBox(
		components.Caption("Press a button, then click (or drag, for areas) inside the game window."),
		t.fieldsBox,
	))

	settingsCard := components.CardSection("Settings", container.NewVBox(
		t.editor.Build(),
		components.ActionBar(components.PrimaryButton("Apply", t.applySettings)),
	))

	t.ReloadProfiles()

	return container.NewVScroll(container.NewVBox(
		components.Heading(t.kind.Label()),
		profileBar,
		nameBar,
		runCard,
		calibrationCard,
		settingsCard,
	))
}

// ReloadProfiles refreshes the selector after profiles were added or removed
func (t *ToolTab) ReloadProfiles() {
	if t.profileSelect == nil {
		return
	}
	list := t.controller.manager.ToolsOfKind(t.kind)
	t.ids = t.ids[:0]
	options := make([]string, 0, len(list))
	keep := -1
	for i, tool := range list {
		t.ids = append(t.ids, tool.ID())
		options = append(options, fmt.Sprintf("%d. %s", i+1, tool.Name()))
		if tool.ID() == t.selectedID {
			keep = i
		}
	}
	t.profileSelect.SetOptions(options)
	if keep < 0 && len(t.ids) > 0 {
		keep = 0
	}
	if keep >= 0 {
		t.profileSelect.SetSelectedIndex(keep)
		if t.selectedID != t.ids[keep] {
			t.selectProfile(t.ids[keep])
		}
	}
}

func (t *ToolTab) current() (tools.Tool, bool) {
	if t.selectedID == "" {
		return nil, false
	}
	tool, err := t.controller.manager.Get(t.selectedID)
	return tool, err == nil
}

func (t *ToolTab) selectProfile(id string) {
	t.selectedID = id
	tool, ok := t.current()
	if !ok {
		return
	}
	t.nameEntry.SetText(tool.Name())
	t.editor.Load(tool)
	t.rebuildFields(tool)
	t.Refresh()
}

func (t *ToolTab) rebuildFields(tool tools.Tool) {
	t.fieldsBox.RemoveAll()
	t.fieldButtons = make(map[string]*widget.Button)
	for _, f := range tool.Fields() {
		key := f.Key
		btn := widget.NewButton(fieldButtonText(f, false), func() { t.calibrate(key) })
		t.fieldButtons[key] = btn
		t.fieldsBox.Add(btn)
	}
	t.fieldsBox.Refresh()
}

// Refresh mirrors run state and calibration progress; called every UI tick
func (t *ToolTab) Refresh() {
	tool, ok := t.current()
	if !ok || t.runBtn == nil {
		return
	}
	t.runBtn.SetRunning(tool.IsRunning())
	t.status.SetStatus(tool.Status())

	pendingKey, pending := tool.Calibrating()
	fields := tool.Fields()
	if len(fields) != len(t.fieldButtons) {
		// Macro action lists change length when edited
		t.rebuildFields(tool)
	}
	for _, f := range fields {
		btn, ok := t.fieldButtons[f.Key]
		if !ok {
			continue
		}
		text := fieldButtonText(f, pending && pendingKey == f.Key)
		if btn.Text != text {
			btn.SetText(text)
		}
	}
}

func (t *ToolTab) start() {
	if err := t.controller.manager.Start(t.selectedID); err != nil {
		dialog.ShowError(err, t.controller.window)
	}
	t.controller.refreshTools()
}

func (t *ToolTab) stop() {
	if tool, ok := t.current(); ok {
		tool.Stop()
	}
	t.controller.refreshTools()
}

func (t *ToolTab) calibrate(key string) {
	tool, ok := t.current()
	if !ok {
		return
	}
	if pendingKey, pending := tool.Calibrating(); pending && pendingKey == key {
		tool.CancelCalibration()
		return
	}
	if err := t.controller.manager.Calibrate(t.selectedID, key); err != nil {
		dialog.ShowError(err, t.controller.window)
	}
}

func (t *ToolTab) addProfile() {
	tool, err := t.controller.manager.AddProfile(t.kind, "")
	if err != nil {
		dialog.ShowError(err, t.controller.window)
		return
	}
	t.selectedID = tool.ID()
	t.controller.saveProfiles()
	t.ReloadProfiles()
}

func (t *ToolTab) confirmDelete() {
	tool, ok := t.current()
	if !ok {
		return
	}
	msg := fmt.Sprintf("Delete profile %q?", tool.Name())
	dialog.ShowConfirm("Delete Profile", msg, func(confirmed bool) {
		if !confirmed {
			return
		}
		if err := t.controller.manager.DeleteProfile(tool.ID()); err != nil {
			if errors.Is(err, tools.ErrAlreadyLastProfile) {
				err = fmt.Errorf("at least one %s profile must remain", t.kind.Label())
			}
			dialog.ShowError(err, t.controller.window)
			return
		}
		t.selectedID = ""
		t.controller.saveProfiles()
		t.ReloadProfiles()
	}, t.controller.window)
}

func (t *ToolTab) rename() {
	tool, ok := t.current()
	if !ok || t.nameEntry.Text == "" || t.nameEntry.Text == tool.Name() {
		return
	}
	tool.SetName(t.nameEntry.Text)
	t.controller.saveProfiles()
	t.ReloadProfiles()
}

func (t *ToolTab) applySettings() {
	tool, ok := t.current()
	if !ok {
		return
	}
	if tool.IsRunning() {
		dialog.ShowInformation("Settings", "Changes apply to the next run.", t.controller.window)
	}
	if err := t.editor.Apply(tool); err != nil {
		dialog.ShowError(err, t.controller.window)
		return
	}
	t.rebuildFields(tool)
	t.controller.saveProfiles()
}
