// Package windowtest provides a scriptable in-memory desktop for tests.
package windowtest

import (
	"errors"
	"image"
	"sync"

	"jordanella.com/game-helper-go/internal/coords"
	"jordanella.com/game-helper-go/internal/window"
)

// ErrInjected is returned by scripted failures
var ErrInjected = errors.New("injected failure")

// Click records one delivered click
type Click struct {
	Method string // "send", "post" or "move"
	Handle window.Handle
	Point  coords.Point
	Button window.Button
}

// Scroll records one wheel action
type Scroll struct {
	Point     coords.Point
	Direction window.ScrollDirection
	Amount    int
}

// Desktop is a fake window.Desktop with a single target window
type Desktop struct {
	mu sync.Mutex

	target   window.Handle
	geometry coords.Geometry
	valid    bool

	cursor      coords.Point
	underCursor window.Handle
	parents     map[window.Handle]window.Handle
	leftDown    bool
	keys        map[window.Key]bool

	sendFailures int
	typeErr      error
	captureImg   *image.RGBA
	captureErr   error

	clicks   []Click
	typed    []string
	scrolls  []Scroll
	inverted []coords.Rect
}

// New creates a fake desktop whose target window has the given handle and geometry
func New(target window.Handle, g coords.Geometry) *Desktop {
	return &Desktop{
		target:   target,
		geometry: g,
		valid:    true,
		parents:  make(map[window.Handle]window.Handle),
		keys:     make(map[window.Key]bool),
	}
}

// SetGeometry moves or resizes the target window
func (d *Desktop) SetGeometry(g coords.Geometry) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.geometry = g
}

// SetValid marks the target window as open or closed
func (d *Desktop) SetValid(valid bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.valid = valid
}

// AddChild registers child as a descendant of parent
func (d *Desktop) AddChild(child, parent window.Handle) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.parents[child] = parent
}

// SetCursor places the cursor in screen coordinates over the given window
func (d *Desktop) SetCursor(p coords.Point, under window.Handle) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cursor = p
	d.underCursor = under
}

// SetLeftButton sets the global left button state
func (d *Desktop) SetLeftButton(down bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.leftDown = down
}

// SetKey sets the global state of a key
func (d *Desktop) SetKey(k window.Key, down bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.keys[k] = down
}

// FailSends makes the next n SendClick calls fail
func (d *Desktop) FailSends(n int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sendFailures = n
}

// FailTyping makes TypeText return err
func (d *Desktop) FailTyping(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.typeErr = err
}

// SetCapture sets the image (or error) returned by CaptureRegion
func (d *Desktop) SetCapture(img *image.RGBA, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.captureImg = img
	d.captureErr = err
}

// Clicks returns a copy of all delivered clicks
func (d *Desktop) Clicks() []Click {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Click(nil), d.clicks...)
}

// Typed returns a copy of all typed strings
func (d *Desktop) Typed() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.typed...)
}

// Scrolls returns a copy of all scroll actions
func (d *Desktop) Scrolls() []Scroll {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Scroll(nil), d.scrolls...)
}

// Inverted returns every rectangle passed to InvertRect
func (d *Desktop) Inverted() []coords.Rect {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]coords.Rect(nil), d.inverted...)
}

func (d *Desktop) FindTarget() (window.Handle, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.target, d.valid
}

func (d *Desktop) IsValid(h window.Handle) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.valid && h == d.target
}

func (d *Desktop) Geometry(h window.Handle) (coords.Geometry, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.valid || h != d.target || !d.geometry.Valid() {
		return coords.Geometry{}, false
	}
	return d.geometry, true
}

func (d *Desktop) CursorPosition() (coords.Point, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cursor, true
}

func (d *Desktop) WindowUnderCursor() (window.Handle, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.underCursor, d.underCursor != 0
}

func (d *Desktop) IsDescendant(candidate, ancestor window.Handle) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	for h := candidate; h != 0; h = d.parents[h] {
		if h == ancestor {
			return true
		}
	}
	return false
}

func (d *Desktop) IsLeftButtonDown() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.leftDown
}

func (d *Desktop) IsKeyDown(k window.Key) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.keys[k]
}

func (d *Desktop) SendClick(h window.Handle, p coords.Point, b window.Button) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.sendFailures > 0 {
		d.sendFailures--
		return &window.InjectionError{Op: "SendClick", Err: ErrInjected}
	}
	d.clicks = append(d.clicks, Click{Method: "send", Handle: h, Point: p, Button: b})
	return nil
}

func (d *Desktop) PostClick(h window.Handle, p coords.Point, b window.Button) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.clicks = append(d.clicks, Click{Method: "post", Handle: h, Point: p, Button: b})
	return nil
}

func (d *Desktop) MoveCursorAndClick(screen coords.Point, b window.Button) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cursor = screen
	d.clicks = append(d.clicks, Click{Method: "move", Point: screen, Button: b})
	return nil
}

func (d *Desktop) TypeText(text string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.typeErr != nil {
		return d.typeErr
	}
	d.typed = append(d.typed, text)
	return nil
}

func (d *Desktop) Scroll(screen coords.Point, dir window.ScrollDirection, amount int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.scrolls = append(d.scrolls, Scroll{Point: screen, Direction: dir, Amount: amount})
	return nil
}

func (d *Desktop) CaptureRegion(h window.Handle, r coords.Rect) (*image.RGBA, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.captureErr != nil {
		return nil, d.captureErr
	}
	if d.captureImg != nil {
		return d.captureImg, nil
	}
	return image.NewRGBA(image.Rect(0, 0, r.Width, r.Height)), nil
}

func (d *Desktop) InvertRect(screen coords.Rect) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.inverted = append(d.inverted, screen)
}

var _ window.Desktop = (*Desktop)(nil)
