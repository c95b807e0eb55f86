package gui

import (
	"fmt"
	"strconv"
	"strings"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"

	"jordanella.com/game-helper-go/internal/config"
	"jordanella.com/game-helper-go/internal/gui/components"
)

// SettingsTab edits Settings.ini. Poll intervals, the window-loss policy and
// the log level apply at once; everything else after a restart.
type SettingsTab struct {
	controller *Controller

	windowTitle      *widget.Entry
	processName      *widget.Entry
	emergencyKey     *widget.Entry
	pollInterval     *widget.Entry
	overlayInterval  *widget.Entry
	stopOnWindowLoss *widget.Check
	clickerInterval  *widget.Entry
	matchMethod      *widget.Select
	logLevel         *widget.Select
	ocrBackend       *widget.Select
	ocrLanguage      *widget.Entry
	tolerance        *widget.Entry
	maxScrollPasses  *widget.Entry
	actionDelay      *widget.Entry
}

// NewSettingsTab creates the settings editor
func NewSettingsTab(ctrl *Controller) *SettingsTab {
	return &SettingsTab{controller: ctrl}
}

// Build constructs the form from the current config
func (s *SettingsTab) Build() fyne.CanvasObject {
	cfg := s.controller.cfg.Snapshot()

	s.windowTitle = entryWith(cfg.WindowTitle)
	s.processName = entryWith(cfg.ProcessName)
	s.emergencyKey = entryWith(cfg.EmergencyKey)
	s.pollInterval = entryWith(strconv.Itoa(cfg.PollIntervalMs))
	s.overlayInterval = entryWith(strconv.Itoa(cfg.OverlayPollIntervalMs))
	s.stopOnWindowLoss = widget.NewCheck("Stop all tools when the game window closes", nil)
	s.stopOnWindowLoss.SetChecked(cfg.StopOnWindowLoss)
	s.clickerInterval = entryWith(strconv.Itoa(cfg.ClickerIntervalMs))
	s.matchMethod = widget.NewSelect([]string{"sad", "ssd", "ncc"}, nil)
	s.matchMethod.SetSelected(cfg.MatchMethod)
	s.logLevel = widget.NewSelect([]string{"DEBUG", "INFO", "WARN", "ERROR"}, nil)
	s.logLevel.SetSelected(strings.ToUpper(cfg.LogLevel))
	s.ocrBackend = widget.NewSelect([]string{"paddle", "tesseract"}, nil)
	s.ocrBackend.SetSelected(cfg.OCRBackend)
	s.ocrLanguage = entryWith(cfg.OCRLanguage)
	s.tolerance = entryWith(strconv.FormatFloat(cfg.Tolerance, 'f', -1, 64))
	s.maxScrollPasses = entryWith(strconv.Itoa(cfg.MaxScrollPasses))
	s.actionDelay = entryWith(strconv.Itoa(cfg.ActionDelayMs))

	general := components.CardSection("Game Window", container.NewGridWithColumns(2,
		components.FieldRow("Window title contains", s.windowTitle),
		components.FieldRow("Process name", s.processName),
		components.FieldRow("Emergency stop key", s.emergencyKey),
		components.FieldRow("UI poll interval (ms)", s.pollInterval),
		components.FieldRow("Overlay poll interval (ms)", s.overlayInterval),
		components.FieldRow("Image clicker interval (ms)", s.clickerInterval),
		components.FieldRow("Match method", s.matchMethod),
		components.FieldRow("Log level", s.logLevel),
	))
	ocrCard := components.CardSection("OCR", container.NewGridWithColumns(2,
		components.FieldRow("Backend", s.ocrBackend),
		components.FieldRow("Tesseract language", s.ocrLanguage),
	))
	fillerCard := components.CardSection("Collection Filler", container.NewGridWithColumns(3,
		components.FieldRow("Marker tolerance", s.tolerance),
		components.FieldRow("Scroll passes per dungeon", s.maxScrollPasses),
		components.FieldRow("Action delay (ms)", s.actionDelay),
	))

	return container.NewVScroll(container.NewVBox(
		components.Heading("Settings"),
		general,
		s.stopOnWindowLoss,
		ocrCard,
		fillerCard,
		components.ActionBar(components.PrimaryButton("Save", s.save)),
	))
}

func entryWith(text string) *widget.Entry {
	e := widget.NewEntry()
	e.SetText(text)
	return e
}

func (s *SettingsTab) collect() (*config.AppConfig, error) {
	next := s.controller.cfg.Snapshot()
	next.WindowTitle = strings.TrimSpace(s.windowTitle.Text)
	next.ProcessName = strings.TrimSpace(s.processName.Text)
	next.EmergencyKey = strings.TrimSpace(s.emergencyKey.Text)
	next.StopOnWindowLoss = s.stopOnWindowLoss.Checked
	next.MatchMethod = s.matchMethod.Selected
	next.LogLevel = s.logLevel.Selected
	next.OCRBackend = s.ocrBackend.Selected
	next.OCRLanguage = strings.TrimSpace(s.ocrLanguage.Text)

	ints := []struct {
		label string
		text  string
		dst   *int
	}{
		{"UI poll interval", s.pollInterval.Text, &next.PollIntervalMs},
		{"Overlay poll interval", s.overlayInterval.Text, &next.OverlayPollIntervalMs},
		{"Image clicker interval", s.clickerInterval.Text, &next.ClickerIntervalMs},
		{"Scroll passes", s.maxScrollPasses.Text, &next.MaxScrollPasses},
		{"Action delay", s.actionDelay.Text, &next.ActionDelayMs},
	}
	for _, f := range ints {
		v, err := strconv.Atoi(strings.TrimSpace(f.text))
		if err != nil {
			return nil, fmt.Errorf("%s must be a whole number", f.label)
		}
		*f.dst = v
	}

	tolerance, err := strconv.ParseFloat(strings.TrimSpace(s.tolerance.Text), 64)
	if err != nil {
		return nil, fmt.Errorf("marker tolerance must be a number")
	}
	next.Tolerance = tolerance

	if err := next.Validate(); err != nil {
		return nil, err
	}
	return &next, nil
}

func (s *SettingsTab) save() {
	next, err := s.collect()
	if err != nil {
		dialog.ShowError(err, s.controller.window)
		return
	}
	if err := config.SaveToINI(next, s.controller.configPath); err != nil {
		dialog.ShowError(err, s.controller.window)
		return
	}
	s.controller.applyConfig(next)
	dialog.ShowInformation("Settings", "Saved. Window, matching, OCR and timing changes other than polling apply after a restart.", s.controller.window)
}
