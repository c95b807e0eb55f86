package gui

import (
	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/widget"

	"jordanella.com/game-helper-go/internal/actions"
	"jordanella.com/game-helper-go/internal/gui/components"
	"jordanella.com/game-helper-go/internal/tools"
	"jordanella.com/game-helper-go/internal/window"
	"jordanella.com/game-helper-go/pkg/templates"
)

// settingsEditor edits the kind-specific settings of one tool
type settingsEditor interface {
	Build() fyne.CanvasObject
	// Load shows the settings of t
	Load(t tools.Tool)
	// Apply validates the form and writes it into t
	Apply(t tools.Tool) error
}

func newSettingsEditor(kind tools.Kind, registry *templates.TemplateRegistry, win fyne.Window) settingsEditor {
	switch kind {
	case tools.KindImageClicker:
		return &imageClickerEditor{registry: registry}
	case tools.KindCollectionFiller:
		return &fillerEditor{registry: registry}
	}
	return &macroEditor{window: win}
}

var (
	buttonOptions = []string{string(window.ButtonLeft), string(window.ButtonRight)}
	methodOptions = []string{string(actions.ClickDirect), string(actions.ClickAsync), string(actions.ClickMouseMove)}
)

func templateNames(registry *templates.TemplateRegistry) []string {
	if registry == nil {
		return nil
	}
	return registry.List()
}

type imageClickerEditor struct {
	registry *templates.TemplateRegistry

	template  *widget.Select
	threshold *widget.Entry
	interval  *widget.Entry
	maxPasses *widget.Entry
	button    *widget.Select
	method    *widget.Select
}

func (e *imageClickerEditor) Build() fyne.CanvasObject {
	e.template = widget.NewSelect(templateNames(e.registry), nil)
	e.threshold = widget.NewEntry()
	e.threshold.SetPlaceHolder("template default")
	e.interval = widget.NewEntry()
	e.interval.SetPlaceHolder("config default")
	e.maxPasses = widget.NewEntry()
	e.maxPasses.SetPlaceHolder("until stopped")
	e.button = widget.NewSelect(buttonOptions, nil)
	e.method = widget.NewSelect(methodOptions, nil)

	return container.NewGridWithColumns(3,
		components.FieldRow("Template", e.template),
		components.FieldRow("Threshold (0-1)", e.threshold),
		components.FieldRow("Interval (ms)", e.interval),
		components.FieldRow("Max passes", e.maxPasses),
		components.FieldRow("Button", e.button),
		components.FieldRow("Click method", e.method),
	)
}

func (e *imageClickerEditor) Load(t tools.Tool) {
	ic, ok := t.(*tools.ImageClicker)
	if !ok {
		return
	}
	s := ic.Settings()
	e.template.Options = templateNames(e.registry)
	e.template.SetSelected(s.Template)
	e.threshold.SetText(formatOptionalFloat(s.Threshold))
	e.interval.SetText(formatOptionalInt(int(s.IntervalMs)))
	e.maxPasses.SetText(formatOptionalInt(s.MaxPasses))
	e.button.SetSelected(string(s.Button))
	e.method.SetSelected(string(s.Method))
}

func (e *imageClickerEditor) Apply(t tools.Tool) error {
	ic, ok := t.(*tools.ImageClicker)
	if !ok {
		return nil
	}
	threshold, err := parseOptionalFloat("Threshold", e.threshold.Text, 0, 1)
	if err != nil {
		return err
	}
	interval, err := parseOptionalInt("Interval", e.interval.Text)
	if err != nil {
		return err
	}
	passes, err := parseOptionalInt("Max passes", e.maxPasses.Text)
	if err != nil {
		return err
	}

	s := ic.Settings()
	s.Template = e.template.Selected
	s.Threshold = threshold
	s.IntervalMs = uint64(interval)
	s.MaxPasses = passes
	s.Button = window.Button(e.button.Selected)
	s.Method = actions.ClickMethod(e.method.Selected)
	ic.SetSettings(s)
	return nil
}

type fillerEditor struct {
	registry *templates.TemplateRegistry

	tolerance *widget.Entry
	marker    *widget.Select
}

func (e *fillerEditor) Build() fyne.CanvasObject {
	e.tolerance = widget.NewEntry()
	e.tolerance.SetPlaceHolder("config default")
	e.marker = widget.NewSelect(templateNames(e.registry), nil)
	e.marker.PlaceHolder = templates.MarkerRedDot

	return container.NewGridWithColumns(2,
		components.FieldRow("Marker tolerance (0-1)", e.tolerance),
		components.FieldRow("Marker template", e.marker),
	)
}

func (e *fillerEditor) Load(t tools.Tool) {
	cf, ok := t.(*tools.CollectionFiller)
	if !ok {
		return
	}
	s := cf.Settings()
	e.tolerance.SetText(formatOptionalFloat(s.Tolerance))
	e.marker.Options = templateNames(e.registry)
	e.marker.SetSelected(s.Marker)
}

func (e *fillerEditor) Apply(t tools.Tool) error {
	cf, ok := t.(*tools.CollectionFiller)
	if !ok {
		return nil
	}
	tolerance, err := parseOptionalFloat("Tolerance", e.tolerance.Text, 0, 1)
	if err != nil {
		return err
	}
	s := cf.Settings()
	s.Tolerance = tolerance
	s.Marker = e.marker.Selected
	cf.SetSettings(s)
	return nil
}

// macroEditor edits the action list as YAML. Click points and OCR regions
// are normally filled by calibration, so the editor keeps them visible.
type macroEditor struct {
	window fyne.Window
	text   *widget.Entry
	name   string
}

func (e *macroEditor) Build() fyne.CanvasObject {
	e.text = widget.NewMultiLineEntry()
	e.text.TextStyle = fyne.TextStyle{Monospace: true}
	e.text.SetMinRowsVisible(14)
	return container.NewVBox(
		components.FieldRow("Actions (YAML)", e.text),
		components.ButtonGroup(
			components.SecondaryButton("Import...", e.importFile),
			components.SecondaryButton("Export...", e.exportFile),
		),
	)
}

// importFile replaces the editor text; Apply still has to be pressed
func (e *macroEditor) importFile() {
	d := dialog.NewFileOpen(func(r fyne.URIReadCloser, err error) {
		if err != nil {
			dialog.ShowError(err, e.window)
			return
		}
		if r == nil {
			return
		}
		r.Close()
		text, err := readMacroFile(r.URI().Path())
		if err != nil {
			dialog.ShowError(err, e.window)
			return
		}
		e.text.SetText(text)
	}, e.window)
	d.SetFilter(storage.NewExtensionFileFilter([]string{".yaml", ".yml"}))
	d.Show()
}

func (e *macroEditor) exportFile() {
	d := dialog.NewFileSave(func(w fyne.URIWriteCloser, err error) {
		if err != nil {
			dialog.ShowError(err, e.window)
			return
		}
		if w == nil {
			return
		}
		w.Close()
		if err := writeMacroFile(w.URI().Path(), e.name, e.text.Text); err != nil {
			dialog.ShowError(err, e.window)
		}
	}, e.window)
	d.SetFileName(e.name + ".yaml")
	d.Show()
}

func (e *macroEditor) Load(t tools.Tool) {
	m, ok := t.(*tools.Macro)
	if !ok {
		return
	}
	e.name = m.Name()
	text, err := macroYAML(m.Settings())
	if err != nil {
		text = "# " + err.Error()
	}
	e.text.SetText(text)
}

func (e *macroEditor) Apply(t tools.Tool) error {
	m, ok := t.(*tools.Macro)
	if !ok {
		return nil
	}
	s, err := parseMacroYAML(e.text.Text)
	if err != nil {
		return err
	}
	s.Name = m.Name()
	m.SetSettings(s)
	return nil
}
