//go:build !windows

package window

import (
	"image"
	"strings"

	"github.com/go-vgo/robotgo"
	"github.com/shirou/gopsutil/v4/process"

	"jordanella.com/game-helper-go/internal/coords"
)

// desktop on non-Windows hosts addresses windows by owning pid. Global
// button polling and message-based clicks are unavailable.
type desktop struct {
	target Target
}

// New returns the robotgo-backed desktop for the given target
func New(target Target) Desktop {
	return &desktop{target: target}
}

func (d *desktop) FindTarget() (Handle, bool) {
	pids, err := findProcessIDs(d.target.ProcessName)
	if err != nil {
		return 0, false
	}
	title := strings.ToLower(d.target.Title)
	for _, pid := range pids {
		if title != "" && !strings.Contains(strings.ToLower(robotgo.GetTitle(int(pid))), title) {
			continue
		}
		return Handle(pid), true
	}
	return 0, false
}

func (d *desktop) IsValid(h Handle) bool {
	if h == 0 {
		return false
	}
	exists, err := process.PidExists(int32(h))
	return err == nil && exists
}

func (d *desktop) Geometry(h Handle) (coords.Geometry, bool) {
	if !d.IsValid(h) {
		return coords.Geometry{}, false
	}
	x, y, w, hgt := robotgo.GetClient(int(h))
	g := coords.Geometry{X: x, Y: y, Width: w, Height: hgt}
	return g, g.Valid()
}

func (d *desktop) CursorPosition() (coords.Point, bool) {
	x, y := robotgo.Location()
	return coords.Point{X: x, Y: y}, true
}

func (d *desktop) WindowUnderCursor() (Handle, bool) {
	return 0, false
}

func (d *desktop) IsDescendant(candidate, ancestor Handle) bool {
	return candidate != 0 && candidate == ancestor
}

func (d *desktop) IsLeftButtonDown() bool {
	return false
}

func (d *desktop) IsKeyDown(Key) bool {
	return false
}

func (d *desktop) SendClick(Handle, coords.Point, Button) error {
	return &InjectionError{Op: "SendClick", Err: ErrUnsupported}
}

func (d *desktop) PostClick(Handle, coords.Point, Button) error {
	return &InjectionError{Op: "PostClick", Err: ErrUnsupported}
}

func (d *desktop) MoveCursorAndClick(screen coords.Point, button Button) error {
	return robotMoveAndClick(screen, button)
}

func (d *desktop) TypeText(text string) error {
	return robotType(text)
}

func (d *desktop) Scroll(screen coords.Point, direction ScrollDirection, amount int) error {
	return robotScroll(screen, direction, amount)
}

func (d *desktop) CaptureRegion(h Handle, r coords.Rect) (*image.RGBA, error) {
	g, ok := d.Geometry(h)
	if !ok {
		return nil, ErrUnsupported
	}
	return robotCapture(coords.RectToScreen(g, r))
}

func (d *desktop) InvertRect(coords.Rect) {}
