package tools

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"jordanella.com/game-helper-go/internal/actions"
	"jordanella.com/game-helper-go/internal/events"
	"jordanella.com/game-helper-go/internal/logging"
	"jordanella.com/game-helper-go/internal/window"
)

// Manager owns every tool and enforces that at most one runs at a time.
// Tools are addressed by stable UUIDs, so deleting a profile never changes
// how the others are reached.
type Manager struct {
	mu     sync.RWMutex
	env    *Env
	runner *actions.Runner
	tools  []Tool
	logger *logging.Logger
}

// NewManager creates a manager with one default profile per kind
func NewManager(env Env) *Manager {
	env.withDefaults()
	m := &Manager{
		env:    &env,
		runner: actions.NewRunner(env.Desktop, env.OCR, env.Runner),
		logger: logging.NewLogger("ToolManager"),
	}
	if err := m.Load(nil); err != nil {
		// Defaults always load
		m.logger.Error("Failed to load default profiles", err)
	}
	return m
}

// Load replaces every tool with the given profiles. Kinds without a profile
// get a default one so every tab has something to select.
func (m *Manager) Load(profiles []Profile) error {
	built := make([]Tool, 0, len(profiles)+len(Kinds))
	seen := make(map[Kind]bool)
	ids := make(map[string]bool)

	for _, p := range profiles {
		if err := p.Validate(); err != nil {
			return err
		}
		if p.ID == "" || ids[p.ID] {
			p.ID = uuid.NewString()
		}
		ids[p.ID] = true
		t, err := m.build(p)
		if err != nil {
			return err
		}
		built = append(built, t)
		seen[p.Kind] = true
	}
	for _, k := range Kinds {
		if seen[k] {
			continue
		}
		p := DefaultProfile(k, k.Label())
		p.ID = uuid.NewString()
		t, err := m.build(p)
		if err != nil {
			return err
		}
		built = append(built, t)
	}

	m.mu.Lock()
	old := m.tools
	m.tools = built
	m.mu.Unlock()

	for _, t := range old {
		t.Stop()
		t.CancelCalibration()
	}
	return nil
}

func (m *Manager) build(p Profile) (Tool, error) {
	switch p.Kind {
	case KindImageClicker:
		s := ImageClickerSettings{}
		if p.ImageClicker != nil {
			s = *p.ImageClicker
		}
		return newImageClicker(m.env, p.ID, p.Name, s), nil
	case KindCollectionFiller:
		s := CollectionFillerSettings{}
		if p.CollectionFiller != nil {
			s = *p.CollectionFiller
		}
		return newCollectionFiller(m.env, p.ID, p.Name, s), nil
	case KindCustomMacro, KindOcrMacro:
		s := DefaultProfile(p.Kind, p.Name).Macro
		if p.Macro != nil {
			s = p.Macro
		}
		return newMacro(m.env, m.runner, p.ID, p.Name, p.Kind, s.Clone()), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownKind, p.Kind)
}

// Profiles snapshots every tool for persistence
func (m *Manager) Profiles() []Profile {
	m.mu.RLock()
	defer m.mu.RUnlock()
	profiles := make([]Profile, 0, len(m.tools))
	for _, t := range m.tools {
		profiles = append(profiles, t.Profile())
	}
	return profiles
}

// Tools returns every tool in order
func (m *Manager) Tools() []Tool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]Tool(nil), m.tools...)
}

// ToolsOfKind returns the tools of one kind in order
func (m *Manager) ToolsOfKind(kind Kind) []Tool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Tool
	for _, t := range m.tools {
		if t.Kind() == kind {
			out = append(out, t)
		}
	}
	return out
}

// Get returns the tool with id
func (m *Manager) Get(id string) (Tool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, t := range m.tools {
		if t.ID() == id {
			return t, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
}

// FindByName returns the first tool whose name matches
func (m *Manager) FindByName(name string) (Tool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, t := range m.tools {
		if t.Name() == name {
			return t, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
}

// AddProfile appends a new default profile of kind
func (m *Manager) AddProfile(kind Kind, name string) (Tool, error) {
	if _, err := ParseKind(string(kind)); err != nil {
		return nil, err
	}
	if name == "" {
		name = fmt.Sprintf("%s %d", kind.Label(), len(m.ToolsOfKind(kind))+1)
	}
	p := DefaultProfile(kind, name)
	p.ID = uuid.NewString()
	t, err := m.build(p)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.tools = append(m.tools, t)
	m.mu.Unlock()

	m.logger.InfoWithContext("Profile added", map[string]interface{}{"id": p.ID, "kind": string(kind), "name": name})
	m.publish(events.NewProfileEvent(events.EventTypeProfileAdded, p.ID, name, string(kind)))
	return t, nil
}

// ImportMacro adds a profile holding the macro in a YAML file. Macros with an
// OCR search become OCR macros.
func (m *Manager) ImportMacro(path string) (*Macro, error) {
	s, err := actions.LoadSettingsFile(path)
	if err != nil {
		return nil, err
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("macro file %s: %w", path, err)
	}

	kind := KindCustomMacro
	if s.HasOCR() {
		kind = KindOcrMacro
	}
	t, err := m.AddProfile(kind, s.Name)
	if err != nil {
		return nil, err
	}
	macro := t.(*Macro)
	s.Name = macro.Name()
	macro.SetSettings(s)
	return macro, nil
}

// DeleteProfile removes a profile. The last profile of a kind cannot be deleted.
func (m *Manager) DeleteProfile(id string) error {
	m.mu.Lock()
	index := -1
	count := 0
	for i, t := range m.tools {
		if t.ID() == id {
			index = i
		}
	}
	if index < 0 {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	victim := m.tools[index]
	for _, t := range m.tools {
		if t.Kind() == victim.Kind() {
			count++
		}
	}
	if count <= 1 {
		m.mu.Unlock()
		return ErrAlreadyLastProfile
	}
	m.tools = append(m.tools[:index:index], m.tools[index+1:]...)
	m.mu.Unlock()

	victim.Stop()
	victim.CancelCalibration()

	m.logger.InfoWithContext("Profile deleted", map[string]interface{}{"id": id, "name": victim.Name()})
	m.publish(events.NewProfileEvent(events.EventTypeProfileDeleted, id, victim.Name(), string(victim.Kind())))
	return nil
}

// Start stops every other tool, then starts id
func (m *Manager) Start(id string) error {
	t, err := m.Get(id)
	if err != nil {
		return err
	}
	for _, other := range m.Tools() {
		if other.ID() != id && other.IsRunning() {
			m.logger.Info(fmt.Sprintf("Stopping %s before starting %s", other.Name(), t.Name()))
			other.Stop()
		}
	}
	if err := t.Start(); err != nil {
		return fmt.Errorf("cannot start %s: %w", t.Name(), err)
	}
	return nil
}

// StopAll stops every running tool and returns how many were running
func (m *Manager) StopAll() int {
	stopped := 0
	for _, t := range m.Tools() {
		if t.IsRunning() {
			t.Stop()
			stopped++
		}
	}
	return stopped
}

// AnyRunning reports whether any tool is running
func (m *Manager) AnyRunning() bool {
	for _, t := range m.Tools() {
		if t.IsRunning() {
			return true
		}
	}
	return false
}

// Calibrate arms one field of one tool and cancels any other pending gesture
func (m *Manager) Calibrate(id, key string) error {
	t, err := m.Get(id)
	if err != nil {
		return err
	}
	for _, other := range m.Tools() {
		if other.ID() != id {
			if _, active := other.Calibrating(); active {
				other.CancelCalibration()
			}
		}
	}
	return t.Calibrate(key)
}

// Update drives pending calibrations against the target window
func (m *Manager) Update(h window.Handle) {
	for _, t := range m.Tools() {
		t.Update(h)
	}
}

// Calibrating reports whether any tool has a pending gesture
func (m *Manager) Calibrating() bool {
	for _, t := range m.Tools() {
		if _, active := t.Calibrating(); active {
			return true
		}
	}
	return false
}

func (m *Manager) publish(e events.Event) {
	if m.env.Bus != nil {
		m.env.Bus.Publish(e)
	}
}
