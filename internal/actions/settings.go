// Package actions defines macro action sequences and the runner that plays
// them against the target window.
package actions

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

var (
	ErrNoActions       = errors.New("macro has no actions")
	ErrZeroLoopCount   = errors.New("loop count must be at least 1")
	ErrEmptyTargetStat = errors.New("OCR search has no target stat")
)

// Loop controls how many times the action list is played
type Loop struct {
	Enabled  bool   `yaml:"enabled"`
	Infinite bool   `yaml:"infinite"`
	Count    uint32 `yaml:"count"`
}

// Iterations returns the number of passes, or 0 for unbounded
func (l Loop) Iterations() int {
	switch {
	case !l.Enabled:
		return 1
	case l.Infinite:
		return 0
	default:
		return int(l.Count)
	}
}

// Settings is one macro: a named action list with loop control
type Settings struct {
	Name    string   `yaml:"name"`
	Actions Sequence `yaml:"actions"`
	Loop    Loop     `yaml:"loop"`
}

// Clone returns a deep copy that is safe to hand to a background run
func (s Settings) Clone() Settings {
	return Settings{
		Name:    s.Name,
		Actions: s.Actions.Clone(),
		Loop:    s.Loop,
	}
}

// Validate reports configuration that makes a run pointless. Unset click
// coordinates are allowed; they are skipped at run time.
func (s Settings) Validate() error {
	if len(s.Actions) == 0 {
		return ErrNoActions
	}
	if s.Loop.Enabled && !s.Loop.Infinite && s.Loop.Count == 0 {
		return ErrZeroLoopCount
	}
	for i, a := range s.Actions {
		search, ok := a.(*OcrSearch)
		if !ok {
			continue
		}
		if strings.TrimSpace(search.TargetStat) == "" {
			return fmt.Errorf("action %d: %w", i+1, ErrEmptyTargetStat)
		}
		if err := search.Decode.Validate(); err != nil {
			return fmt.Errorf("action %d: %w", i+1, err)
		}
	}
	return nil
}

// HasOCR reports whether any action needs the OCR engine
func (s Settings) HasOCR() bool {
	for _, a := range s.Actions {
		if _, ok := a.(*OcrSearch); ok {
			return true
		}
	}
	return false
}

// LoadSettingsFile reads a macro from a YAML file
func LoadSettingsFile(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("failed to read macro file %s: %w", path, err)
	}

	var s Settings
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Settings{}, fmt.Errorf("failed to unmarshal macro YAML: %w", err)
	}
	return s, nil
}

// SaveSettingsFile writes a macro to a YAML file
func SaveSettingsFile(path string, s Settings) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to marshal macro: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write macro file %s: %w", path, err)
	}
	return nil
}
