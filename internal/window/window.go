package window

import (
	"errors"
	"image"

	"jordanella.com/game-helper-go/internal/coords"
)

// ErrUnsupported is returned by capabilities the current platform cannot provide
var ErrUnsupported = errors.New("not supported on this platform")

// Handle is an opaque reference to a native window. It may become invalid at any time.
type Handle uintptr

// Button identifies a mouse button
type Button string

const (
	ButtonLeft  Button = "left"
	ButtonRight Button = "right"
)

// ScrollDirection is the wheel direction for Scroll
type ScrollDirection string

const (
	ScrollUp   ScrollDirection = "up"
	ScrollDown ScrollDirection = "down"
)

// Target describes how the game window is located
type Target struct {
	Title       string // substring of the window caption
	ProcessName string // executable name of the owning process, e.g. "Game.exe"
}

// Finder locates the target window and reads its client geometry
type Finder interface {
	FindTarget() (Handle, bool)
	IsValid(h Handle) bool
	Geometry(h Handle) (coords.Geometry, bool)
}

// Poller queries process-wide cursor and key state, independent of focus
type Poller interface {
	CursorPosition() (coords.Point, bool)
	WindowUnderCursor() (Handle, bool)
	IsDescendant(candidate, ancestor Handle) bool
	IsLeftButtonDown() bool
	IsKeyDown(key Key) bool
}

// Injector delivers synthetic input. Points passed to SendClick and PostClick
// are window-relative; the other methods take screen coordinates.
type Injector interface {
	SendClick(h Handle, p coords.Point, button Button) error
	PostClick(h Handle, p coords.Point, button Button) error
	MoveCursorAndClick(screen coords.Point, button Button) error
	TypeText(text string) error
	Scroll(screen coords.Point, direction ScrollDirection, amount int) error
}

// Capturer grabs a window-relative region of the client area
type Capturer interface {
	CaptureRegion(h Handle, r coords.Rect) (*image.RGBA, error)
}

// Feedback draws selection rectangles directly on the screen. Drawing the
// same rectangle twice restores the original pixels.
type Feedback interface {
	InvertRect(screen coords.Rect)
}

// Desktop bundles every capability the helper needs from the OS
type Desktop interface {
	Finder
	Poller
	Injector
	Capturer
	Feedback
}

// toRGBA converts any image to a zero-origin RGBA copy
func toRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok && rgba.Rect.Min == (image.Point{}) {
		return rgba
	}
	b := img.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			out.Set(x, y, img.At(b.Min.X+x, b.Min.Y+y))
		}
	}
	return out
}

// InjectionError reports a failed input injection call
type InjectionError struct {
	Op  string
	Err error
}

func (e *InjectionError) Error() string {
	if e.Err == nil {
		return e.Op + " failed"
	}
	return e.Op + " failed: " + e.Err.Error()
}

func (e *InjectionError) Unwrap() error {
	return e.Err
}
