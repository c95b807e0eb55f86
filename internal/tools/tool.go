// Package tools turns settings, a calibration machine and a worker into the
// start/stop/calibrate units the GUI and the headless runner drive.
package tools

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"jordanella.com/game-helper-go/internal/actions"
	"jordanella.com/game-helper-go/internal/calibration"
	"jordanella.com/game-helper-go/internal/collection"
	"jordanella.com/game-helper-go/internal/coords"
	"jordanella.com/game-helper-go/internal/cv"
	"jordanella.com/game-helper-go/internal/events"
	"jordanella.com/game-helper-go/internal/logging"
	"jordanella.com/game-helper-go/internal/ocr"
	"jordanella.com/game-helper-go/internal/window"
	"jordanella.com/game-helper-go/internal/worker"
	"jordanella.com/game-helper-go/pkg/templates"
)

var (
	ErrNotFound           = errors.New("tool not found")
	ErrAlreadyLastProfile = errors.New("cannot delete the last profile of its kind")
	ErrUnknownField       = errors.New("unknown calibration field")
	ErrUnknownKind        = errors.New("unknown tool kind")
)

// Kind names a tool variant
type Kind string

const (
	KindImageClicker     Kind = "image_clicker"
	KindCollectionFiller Kind = "collection_filler"
	KindCustomMacro      Kind = "custom_macro"
	KindOcrMacro         Kind = "ocr_macro"
)

// Kinds lists every variant in tab order
var Kinds = []Kind{KindImageClicker, KindCollectionFiller, KindCustomMacro, KindOcrMacro}

func (k Kind) Label() string {
	switch k {
	case KindImageClicker:
		return "Image Clicker"
	case KindCollectionFiller:
		return "Collection Filler"
	case KindCustomMacro:
		return "Custom Macro"
	case KindOcrMacro:
		return "OCR Macro"
	}
	return string(k)
}

// ParseKind resolves a kind name from config or the command line
func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// Field is one calibratable setting of a tool
type Field struct {
	Key   string
	Label string
	Mode  calibration.Mode
	Set   bool
}

// Tool is one automation profile
type Tool interface {
	ID() string
	Name() string
	SetName(name string)
	Kind() Kind

	// Start launches a run. It fails only when the settings cannot produce a
	// meaningful run; window problems are reported through Status.
	Start() error
	Stop()
	IsRunning() bool
	Status() string
	Wait(timeout time.Duration) bool

	Fields() []Field
	Calibrate(key string) error
	CancelCalibration()
	// Calibrating returns the field being calibrated, if any
	Calibrating() (string, bool)
	// Update advances a pending calibration; call it once per UI tick
	Update(h window.Handle)

	Profile() Profile
}

// HandleSource yields the current target window
type HandleSource interface {
	Handle() (window.Handle, bool)
}

// FinderSource looks the window up on every call
type FinderSource struct {
	Finder window.Finder
}

func (s FinderSource) Handle() (window.Handle, bool) {
	return s.Finder.FindTarget()
}

// RunRecorder persists run history
type RunRecorder interface {
	StartRun(toolID, toolName, kind string) (int64, error)
	FinishRun(runID int64, outcome, status string, iterations int) error
}

// Env carries the collaborators shared by every tool
type Env struct {
	Desktop   window.Desktop
	Window    HandleSource
	OCR       ocr.Loader
	Matcher   cv.Matcher
	Templates *templates.TemplateRegistry

	Runner     actions.RunnerOptions
	Collection collection.Options
	// ClickerInterval is the default pause between image clicker passes
	ClickerInterval time.Duration

	Bus      events.EventBus
	Recorder RunRecorder
}

func (e *Env) withDefaults() {
	if e.Matcher == nil {
		e.Matcher = cv.DefaultMatcher()
	}
	if e.Window == nil && e.Desktop != nil {
		e.Window = FinderSource{Finder: e.Desktop}
	}
	if e.ClickerInterval <= 0 {
		e.ClickerInterval = DefaultClickerInterval
	}
}

// runSummary is what a variant reports back when its task returns
type runSummary struct {
	outcome    string
	iterations int
}

// base holds the state every variant shares
type base struct {
	mu      sync.Mutex
	id      string
	name    string
	kind    Kind
	env     *Env
	worker  *worker.Worker
	machine *calibration.Machine
	pending string
	logger  *logging.Logger

	// set by the variant
	fields func() []Field
	apply  func(key string, res calibration.Result, g coords.Geometry) error
}

func newBase(env *Env, id, name string, kind Kind) *base {
	return &base{
		id:      id,
		name:    name,
		kind:    kind,
		env:     env,
		worker:  worker.New(),
		machine: calibration.NewMachine(env.Desktop),
		logger:  logging.NewLogger(fmt.Sprintf("Tool[%s]", kind)),
	}
}

func (b *base) ID() string { return b.id }

func (b *base) Name() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.name
}

func (b *base) SetName(name string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.name = name
}

func (b *base) Kind() Kind { return b.kind }

func (b *base) Stop() { b.worker.Stop() }

func (b *base) IsRunning() bool { return b.worker.IsRunning() }

func (b *base) Status() string { return b.worker.Status() }

func (b *base) Wait(timeout time.Duration) bool { return b.worker.Wait(timeout) }

func (b *base) Fields() []Field { return b.fields() }

// Calibrate arms the machine for the field's mode
func (b *base) Calibrate(key string) error {
	for _, f := range b.fields() {
		if f.Key != key {
			continue
		}
		b.mu.Lock()
		b.pending = key
		b.mu.Unlock()
		if f.Mode == calibration.ModeArea {
			b.machine.StartArea()
		} else {
			b.machine.StartPoint()
		}
		return nil
	}
	return fmt.Errorf("%w: %s", ErrUnknownField, key)
}

func (b *base) CancelCalibration() {
	b.machine.Cancel()
	b.mu.Lock()
	b.pending = ""
	b.mu.Unlock()
}

func (b *base) Calibrating() (string, bool) {
	if !b.machine.Active() {
		return "", false
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.pending, b.pending != ""
}

func (b *base) Update(h window.Handle) {
	if !b.machine.Active() {
		return
	}
	res, ok := b.machine.Update(h)
	if !ok {
		return
	}

	b.mu.Lock()
	key := b.pending
	b.pending = ""
	b.mu.Unlock()

	g, ok := b.env.Desktop.Geometry(h)
	if !ok {
		b.logger.Warn(fmt.Sprintf("Calibration of %s dropped: window geometry unavailable", key))
		return
	}
	if err := b.apply(key, res, g); err != nil {
		b.logger.Error(fmt.Sprintf("Calibration of %s not applied", key), err)
		b.publish(events.NewErrorEvent("tools", "calibration", err, map[string]interface{}{"tool_id": b.id, "field": key}))
		return
	}
	b.logger.InfoWithContext("Calibrated", map[string]interface{}{"tool": b.Name(), "field": key, "result": res.String()})
	b.publish(events.NewCalibrationEvent(b.id, key, res.String()))
}

func (b *base) publish(e events.Event) {
	if b.env.Bus != nil {
		b.env.Bus.Publish(e)
	}
}

// launch starts task on the worker and wraps it with run bookkeeping
func (b *base) launch(task func(ctl *worker.Control, h window.Handle) runSummary) {
	name := b.Name()
	h, ok := b.env.Window.Handle()
	if !ok {
		h = 0
	}

	var runID int64
	if b.env.Recorder != nil {
		id, err := b.env.Recorder.StartRun(b.id, name, string(b.kind))
		if err != nil {
			b.logger.Error("Failed to record run start", err)
		}
		runID = id
	}
	b.publish(events.NewToolStartedEvent(b.id, name, string(b.kind)))
	b.logger.InfoWithContext("Starting", map[string]interface{}{"tool": name, "handle": uintptr(h)})

	b.worker.Start(func(ctl *worker.Control) {
		sum := task(ctl, h)
		if !ctl.Running() && sum.outcome == "" {
			sum.outcome = string(actions.OutcomeStopped)
		}
		status := b.worker.Status()

		if runID != 0 {
			if err := b.env.Recorder.FinishRun(runID, sum.outcome, status, sum.iterations); err != nil {
				b.logger.Error("Failed to record run result", err)
			}
		}
		b.publish(events.NewToolFinishedEvent(finishedEventType(sum.outcome), b.id, name, status, sum.iterations))
	})
}

func finishedEventType(outcome string) events.EventType {
	switch outcome {
	case string(actions.OutcomeCompleted):
		return events.EventTypeToolCompleted
	case string(actions.OutcomeStopped):
		return events.EventTypeToolStopped
	case string(actions.OutcomeMatched):
		return events.EventTypeToolMatched
	}
	return events.EventTypeToolFailed
}

// failRun ends a run that could not start its main loop
func failRun(ctl *worker.Control, logger *logging.Logger, err error) runSummary {
	ctl.Finish(fmt.Sprintf("Error: %v", err))
	logger.Error("Run failed", err)
	return runSummary{outcome: string(actions.OutcomeFailed)}
}

// clickAt delivers a window-relative click with the chosen method
func clickAt(d window.Desktop, h window.Handle, p coords.Point, button window.Button, method actions.ClickMethod) error {
	switch method {
	case actions.ClickAsync:
		return d.PostClick(h, p, button)
	case actions.ClickMouseMove:
		g, ok := d.Geometry(h)
		if !ok {
			return fmt.Errorf("window geometry unavailable")
		}
		return d.MoveCursorAndClick(coords.ToScreen(g, p), button)
	default:
		return d.SendClick(h, p, button)
	}
}
