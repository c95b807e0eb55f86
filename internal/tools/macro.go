package tools

import (
	"fmt"
	"strconv"
	"strings"

	"jordanella.com/game-helper-go/internal/actions"
	"jordanella.com/game-helper-go/internal/calibration"
	"jordanella.com/game-helper-go/internal/coords"
	"jordanella.com/game-helper-go/internal/ocr"
	"jordanella.com/game-helper-go/internal/window"
	"jordanella.com/game-helper-go/internal/worker"
)

const actionFieldPrefix = "action:"

// ActionField returns the calibration key of the action at index
func ActionField(index int) string {
	return actionFieldPrefix + strconv.Itoa(index)
}

// Macro plays an action list. Custom and OCR macros differ only in their
// kind and starting template.
type Macro struct {
	*base
	runner   *actions.Runner
	settings actions.Settings
}

func newMacro(env *Env, runner *actions.Runner, id, name string, kind Kind, s actions.Settings) *Macro {
	t := &Macro{base: newBase(env, id, name, kind), runner: runner, settings: s}
	if t.settings.Name == "" {
		t.settings.Name = name
	}
	t.fields = t.calibrationFields
	t.apply = t.applyCalibration
	return t
}

// DefaultCustomMacro is the action list of a new custom macro profile
func DefaultCustomMacro(name string) actions.Settings {
	return actions.Settings{
		Name: name,
		Actions: actions.Sequence{
			&actions.Click{Button: window.ButtonLeft, Method: actions.ClickDirect},
			&actions.Delay{Milliseconds: 1000},
		},
	}
}

// DefaultOcrMacro rerolls and reads a stat until it meets the target
func DefaultOcrMacro(name string) actions.Settings {
	return actions.Settings{
		Name: name,
		Actions: actions.Sequence{
			&actions.Click{Button: window.ButtonLeft, Method: actions.ClickDirect},
			&actions.Delay{Milliseconds: 500},
			&actions.OcrSearch{
				Preprocess: ocr.DefaultPreprocess(),
				Decode:     ocr.Decode{Strategy: ocr.Greedy},
				TargetStat: "Attack",
				Comparison: ocr.GreaterThanOrEqual,
				NameMatch:  ocr.NameContains,
			},
		},
		Loop: actions.Loop{Enabled: true, Infinite: true},
	}
}

func (t *Macro) Settings() actions.Settings {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.settings.Clone()
}

func (t *Macro) SetSettings(s actions.Settings) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.settings = s.Clone()
}

// Export writes the action list to a YAML file
func (t *Macro) Export(path string) error {
	return actions.SaveSettingsFile(path, t.Settings())
}

func (t *Macro) SetName(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.name = name
	t.settings.Name = name
}

func (t *Macro) Profile() Profile {
	s := t.Settings()
	return Profile{ID: t.id, Name: t.Name(), Kind: t.kind, Macro: &s}
}

func (t *Macro) calibrationFields() []Field {
	s := t.Settings()
	var fields []Field
	for i, a := range s.Actions {
		switch a := a.(type) {
		case *actions.Click:
			fields = append(fields, Field{
				Key:   ActionField(i),
				Label: fmt.Sprintf("#%d %s", i+1, a.Describe()),
				Mode:  calibration.ModePoint,
				Set:   a.Coordinate != nil,
			})
		case *actions.OcrSearch:
			fields = append(fields, Field{
				Key:   ActionField(i),
				Label: fmt.Sprintf("#%d OCR region", i+1),
				Mode:  calibration.ModeArea,
				Set:   a.Region != nil,
			})
		}
	}
	return fields
}

// applyCalibration stores window-relative pixels on the addressed action
func (t *Macro) applyCalibration(key string, res calibration.Result, g coords.Geometry) error {
	n, ok := strings.CutPrefix(key, actionFieldPrefix)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownField, key)
	}
	index, err := strconv.Atoi(n)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrUnknownField, key)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if index < 0 || index >= len(t.settings.Actions) {
		// The list was edited while the gesture was pending
		return fmt.Errorf("action %d no longer exists", index+1)
	}

	switch a := t.settings.Actions[index].(type) {
	case *actions.Click:
		p := res.Point
		a.Coordinate = &p
	case *actions.OcrSearch:
		if res.Area.IsDegenerate() {
			return fmt.Errorf("OCR region %s has no size", res.Area)
		}
		r := res.Area
		a.Region = &r
	default:
		return fmt.Errorf("action %d (%s) takes no calibration", index+1, a.Kind())
	}
	return nil
}

func (t *Macro) Start() error {
	s := t.Settings()
	if err := s.Validate(); err != nil {
		return err
	}
	t.launch(func(ctl *worker.Control, h window.Handle) runSummary {
		res := t.runner.Run(ctl, h, s)
		return runSummary{outcome: string(res.Outcome), iterations: res.Iterations}
	})
	return nil
}
