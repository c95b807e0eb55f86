// Package calibration records points and areas the user clicks on inside the
// target window.
//
// A gesture is armed from the UI and then advanced by calling Update once per
// UI tick. Mouse state is read with process-wide queries, so the target does
// not need input focus.
package calibration

import (
	"fmt"
	"sync"

	"jordanella.com/game-helper-go/internal/coords"
	"jordanella.com/game-helper-go/internal/window"
)

// Mode selects what a gesture produces
type Mode int

const (
	ModePoint Mode = iota
	ModeArea
)

func (m Mode) String() string {
	if m == ModeArea {
		return "Area"
	}
	return "Point"
}

// Phase is the position of the gesture in its lifecycle
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseArmed
	PhaseDragging
)

func (p Phase) String() string {
	switch p {
	case PhaseArmed:
		return "Armed"
	case PhaseDragging:
		return "Dragging"
	default:
		return "Idle"
	}
}

// Result is a completed calibration in window-relative pixels
type Result struct {
	Mode  Mode
	Point coords.Point
	Area  coords.Rect
}

func (r Result) String() string {
	if r.Mode == ModeArea {
		return fmt.Sprintf("Area%v", r.Area)
	}
	return fmt.Sprintf("Point%v", r.Point)
}

// Desktop is the subset of window capabilities calibration needs
type Desktop interface {
	window.Poller
	window.Feedback
	Geometry(h window.Handle) (coords.Geometry, bool)
}

// Machine tracks one calibration gesture
type Machine struct {
	desktop Desktop

	mu         sync.Mutex
	mode       Mode
	phase      Phase
	dragStart  *coords.Point
	lastPos    *coords.Point
	prevDown   bool
	strayPress bool
	drawn      *coords.Rect // screen rect currently inverted on screen
}

// NewMachine creates an idle calibration machine
func NewMachine(desktop Desktop) *Machine {
	return &Machine{desktop: desktop}
}

// StartPoint arms a point calibration
func (m *Machine) StartPoint() {
	m.arm(ModePoint)
}

// StartArea arms an area calibration
func (m *Machine) StartArea() {
	m.arm(ModeArea)
}

func (m *Machine) arm(mode Mode) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.eraseFeedback()
	m.mode = mode
	m.phase = PhaseArmed
	m.dragStart = nil
	m.lastPos = nil
	m.strayPress = false
	// A button already held when arming is not a press
	m.prevDown = m.desktop.IsLeftButtonDown()
}

// Cancel abandons any gesture in progress
func (m *Machine) Cancel() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reset()
}

// Active reports whether a gesture is armed or dragging
func (m *Machine) Active() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.phase != PhaseIdle
}

// Phase returns the current phase
func (m *Machine) Phase() Phase {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.phase
}

// Mode returns the mode of the current or last gesture
func (m *Machine) Mode() Mode {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mode
}

// Update advances the gesture against the target window. It returns a result
// exactly once, when the gesture completes.
func (m *Machine) Update(target window.Handle) (Result, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.phase == PhaseIdle {
		return Result{}, false
	}

	down := m.desktop.IsLeftButtonDown()
	pressed := down && !m.prevDown
	m.prevDown = down

	switch m.phase {
	case PhaseArmed:
		if pressed {
			pos, inside := m.cursorInWindow(target)
			if !inside {
				// Point mode keeps waiting; area mode resets on the matching release
				m.strayPress = m.mode == ModeArea
				return Result{}, false
			}
			if m.mode == ModePoint {
				m.reset()
				return Result{Mode: ModePoint, Point: pos}, true
			}
			m.phase = PhaseDragging
			m.dragStart = &pos
			m.lastPos = &pos
			m.strayPress = false
			m.redraw(target)
			return Result{}, false
		}
		if !down && m.strayPress {
			m.reset()
		}
		return Result{}, false

	case PhaseDragging:
		if pos, inside := m.cursorInWindow(target); inside {
			m.lastPos = &pos
		}
		if !down {
			area := coords.RectFromCorners(*m.dragStart, *m.lastPos)
			m.reset()
			return Result{Mode: ModeArea, Area: area}, true
		}
		m.redraw(target)
	}
	return Result{}, false
}

// cursorInWindow returns the window-relative cursor position when the cursor
// is over the target or one of its child windows
func (m *Machine) cursorInWindow(target window.Handle) (coords.Point, bool) {
	cursor, ok := m.desktop.CursorPosition()
	if !ok {
		return coords.Point{}, false
	}
	under, ok := m.desktop.WindowUnderCursor()
	if !ok || !m.desktop.IsDescendant(under, target) {
		return coords.Point{}, false
	}
	g, ok := m.desktop.Geometry(target)
	if !ok {
		return coords.Point{}, false
	}
	return coords.ToWindowRelative(g, cursor)
}

// redraw moves the live selection to the window's current origin
func (m *Machine) redraw(target window.Handle) {
	g, ok := m.desktop.Geometry(target)
	if !ok || m.dragStart == nil || m.lastPos == nil {
		return
	}
	rect := coords.RectToScreen(g, coords.RectFromCorners(*m.dragStart, *m.lastPos))
	if m.drawn != nil && *m.drawn == rect {
		return
	}
	m.eraseFeedback()
	m.desktop.InvertRect(rect)
	m.drawn = &rect
}

func (m *Machine) eraseFeedback() {
	if m.drawn != nil {
		m.desktop.InvertRect(*m.drawn)
		m.drawn = nil
	}
}

func (m *Machine) reset() {
	m.eraseFeedback()
	m.phase = PhaseIdle
	m.dragStart = nil
	m.lastPos = nil
	m.strayPress = false
}
