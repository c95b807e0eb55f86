package actions

import (
	"fmt"
	"reflect"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"jordanella.com/game-helper-go/internal/coords"
	"jordanella.com/game-helper-go/internal/ocr"
	"jordanella.com/game-helper-go/internal/window"
)

// Action is one step of a macro. The set of implementations is closed.
type Action interface {
	// Kind is the name used in the "action" field of YAML files
	Kind() string
	// Describe returns a short label for status text and the editor
	Describe() string
	clone() Action
}

// ClickMethod controls how a click reaches the game
type ClickMethod string

const (
	// ClickDirect sends the click synchronously to the window; the cursor does not move
	ClickDirect ClickMethod = "direct"
	// ClickAsync posts the click to the window's queue; the cursor does not move
	ClickAsync ClickMethod = "async"
	// ClickMouseMove moves the real cursor and clicks
	ClickMouseMove ClickMethod = "mouse_move"
)

// Click clicks a window-relative coordinate
type Click struct {
	Coordinate *coords.Point `yaml:"coordinate,omitempty"`
	Button     window.Button `yaml:"button"`
	Method     ClickMethod   `yaml:"method"`
}

func (a *Click) Kind() string { return "click" }

func (a *Click) Describe() string {
	if a.Coordinate == nil {
		return fmt.Sprintf("Click %s (unset)", a.button())
	}
	return fmt.Sprintf("Click %s %v via %s", a.button(), *a.Coordinate, a.method())
}

func (a *Click) button() window.Button {
	if a.Button == "" {
		return window.ButtonLeft
	}
	return a.Button
}

func (a *Click) method() ClickMethod {
	if a.Method == "" {
		return ClickDirect
	}
	return a.Method
}

func (a *Click) clone() Action {
	c := *a
	if a.Coordinate != nil {
		p := *a.Coordinate
		c.Coordinate = &p
	}
	return &c
}

// TypeText types literal text
type TypeText struct {
	Text string `yaml:"text"`
}

func (a *TypeText) Kind() string { return "type_text" }

func (a *TypeText) Describe() string {
	return fmt.Sprintf("Type %q", a.Text)
}

func (a *TypeText) clone() Action {
	c := *a
	return &c
}

// Delay waits before the next action
type Delay struct {
	Milliseconds uint64 `yaml:"milliseconds"`
}

func (a *Delay) Kind() string { return "delay" }

func (a *Delay) Describe() string {
	return fmt.Sprintf("Delay %dms", a.Milliseconds)
}

func (a *Delay) clone() Action {
	c := *a
	return &c
}

// OcrSearch reads a stat from a region and ends the run when it meets the target
type OcrSearch struct {
	Region      *coords.Rect   `yaml:"region,omitempty"`
	Preprocess  ocr.Preprocess `yaml:"preprocess"`
	Decode      ocr.Decode     `yaml:"decode"`
	TargetStat  string         `yaml:"target_stat"`
	TargetValue int            `yaml:"target_value"`
	Comparison  ocr.Comparison `yaml:"comparison"`
	NameMatch   ocr.NameMatch  `yaml:"name_match"`
}

func (a *OcrSearch) Kind() string { return "ocr_search" }

func (a *OcrSearch) Describe() string {
	return fmt.Sprintf("OCR search for %s", a.Target())
}

// Target returns the stat the search waits for
func (a *OcrSearch) Target() ocr.Target {
	return ocr.Target{
		Stat:       a.TargetStat,
		Value:      a.TargetValue,
		Comparison: a.Comparison,
		NameMatch:  a.NameMatch,
	}
}

func (a *OcrSearch) clone() Action {
	c := *a
	if a.Region != nil {
		r := *a.Region
		c.Region = &r
	}
	return &c
}

// actionRegistry maps YAML action names to their concrete Go types
var actionRegistry = map[string]reflect.Type{
	"click":      reflect.TypeOf(Click{}),
	"type_text":  reflect.TypeOf(TypeText{}),
	"delay":      reflect.TypeOf(Delay{}),
	"ocr_search": reflect.TypeOf(OcrSearch{}),
}

// getRegisteredActions returns the registered action names for error messages
func getRegisteredActions() []string {
	names := make([]string, 0, len(actionRegistry))
	for name := range actionRegistry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Sequence is an ordered list of actions with a polymorphic YAML encoding:
// every entry is a map whose "action" field names the concrete type.
type Sequence []Action

// UnmarshalYAML resolves each entry through the action registry
func (s *Sequence) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var raw []interface{}
	if err := unmarshal(&raw); err != nil {
		return err
	}

	seq := make(Sequence, 0, len(raw))
	for i, item := range raw {
		stepMap, ok := item.(map[string]interface{})
		if !ok {
			return fmt.Errorf("action %d: must be a map/object", i+1)
		}

		actionType, ok := stepMap["action"].(string)
		if !ok || actionType == "" {
			return fmt.Errorf("action %d: missing or invalid 'action' field", i+1)
		}

		stepType, found := actionRegistry[strings.ToLower(actionType)]
		if !found {
			return fmt.Errorf("action %d: unknown action type '%s' (available types: %v)", i+1, actionType, getRegisteredActions())
		}

		action := reflect.New(stepType).Interface().(Action)

		// Marshal the raw map back to YAML, then unmarshal it into the concrete struct
		delete(stepMap, "action")
		stepBytes, err := yaml.Marshal(stepMap)
		if err != nil {
			return fmt.Errorf("action %d (%s): error marshaling raw step: %w", i+1, actionType, err)
		}
		if err := yaml.Unmarshal(stepBytes, action); err != nil {
			return fmt.Errorf("action %d (%s): error unmarshaling into %T: %w", i+1, actionType, action, err)
		}

		seq = append(seq, action)
	}

	*s = seq
	return nil
}

// MarshalYAML writes each action as a map tagged with its kind
func (s Sequence) MarshalYAML() (interface{}, error) {
	out := make([]map[string]interface{}, 0, len(s))
	for i, action := range s {
		data, err := yaml.Marshal(action)
		if err != nil {
			return nil, fmt.Errorf("action %d (%s): %w", i+1, action.Kind(), err)
		}
		fields := map[string]interface{}{}
		if err := yaml.Unmarshal(data, &fields); err != nil {
			return nil, fmt.Errorf("action %d (%s): %w", i+1, action.Kind(), err)
		}
		fields["action"] = action.Kind()
		out = append(out, fields)
	}
	return out, nil
}

// Clone deep-copies the sequence
func (s Sequence) Clone() Sequence {
	if s == nil {
		return nil
	}
	out := make(Sequence, len(s))
	for i, a := range s {
		out[i] = a.clone()
	}
	return out
}
