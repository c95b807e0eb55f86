//go:build windows

package window

import (
	"strings"
	"sync"
	"unsafe"

	"golang.org/x/sys/windows"

	"jordanella.com/game-helper-go/internal/coords"
)

var (
	user32 = windows.NewLazySystemDLL("user32.dll")

	procEnumWindows         = user32.NewProc("EnumWindows")
	procGetWindowTextW      = user32.NewProc("GetWindowTextW")
	procIsWindowVisible     = user32.NewProc("IsWindowVisible")
	procIsWindow            = user32.NewProc("IsWindow")
	procIsChild             = user32.NewProc("IsChild")
	procGetClientRect       = user32.NewProc("GetClientRect")
	procClientToScreen      = user32.NewProc("ClientToScreen")
	procGetCursorPos        = user32.NewProc("GetCursorPos")
	procWindowFromPoint     = user32.NewProc("WindowFromPoint")
	procGetAsyncKeyState    = user32.NewProc("GetAsyncKeyState")
	procSendMessageTimeoutW = user32.NewProc("SendMessageTimeoutW")
	procPostMessageW        = user32.NewProc("PostMessageW")
	procGetDC               = user32.NewProc("GetDC")
	procReleaseDC           = user32.NewProc("ReleaseDC")
	procDrawFocusRect       = user32.NewProc("DrawFocusRect")
)

const (
	wmMouseMove   = 0x0200
	wmLButtonDown = 0x0201
	wmLButtonUp   = 0x0202
	wmRButtonDown = 0x0204
	wmRButtonUp   = 0x0205

	mkLButton = 0x0001
	mkRButton = 0x0002

	vkLButton = 0x01

	smtoAbortIfHung = 0x0002
	sendTimeoutMs   = 500
)

// RECT structure for Windows API
type RECT struct {
	Left   int32
	Top    int32
	Right  int32
	Bottom int32
}

// POINT structure for Windows API
type POINT struct {
	X int32
	Y int32
}

type desktop struct {
	target Target
}

// New returns the Win32 desktop for the given target
func New(target Target) Desktop {
	return &desktop{target: target}
}

// EnumWindows callbacks are a limited resource, so a single one is shared
// and searches are serialized.
var (
	enumMu      sync.Mutex
	enumVisit   func(hwnd uintptr) bool
	enumProcPtr = windows.NewCallback(func(hwnd, _ uintptr) uintptr {
		if enumVisit(hwnd) {
			return 1
		}
		return 0
	})
)

func (d *desktop) FindTarget() (Handle, bool) {
	enumMu.Lock()
	defer enumMu.Unlock()

	var found uintptr
	title := strings.ToLower(d.target.Title)
	enumVisit = func(hwnd uintptr) bool {
		if visible, _, _ := procIsWindowVisible.Call(hwnd); visible == 0 {
			return true
		}
		if title != "" && !strings.Contains(strings.ToLower(windowText(hwnd)), title) {
			return true
		}
		var pid uint32
		if _, err := windows.GetWindowThreadProcessId(windows.HWND(hwnd), &pid); err != nil {
			return true
		}
		if !processMatches(int32(pid), d.target.ProcessName) {
			return true
		}
		found = hwnd
		return false
	}
	procEnumWindows.Call(enumProcPtr, 0)
	enumVisit = nil

	return Handle(found), found != 0
}

func windowText(hwnd uintptr) string {
	buf := make([]uint16, 256)
	n, _, _ := procGetWindowTextW.Call(hwnd, uintptr(unsafe.Pointer(&buf[0])), uintptr(len(buf)))
	return windows.UTF16ToString(buf[:n])
}

func (d *desktop) IsValid(h Handle) bool {
	if h == 0 {
		return false
	}
	ret, _, _ := procIsWindow.Call(uintptr(h))
	return ret != 0
}

func (d *desktop) Geometry(h Handle) (coords.Geometry, bool) {
	if !d.IsValid(h) {
		return coords.Geometry{}, false
	}
	var rect RECT
	if ret, _, _ := procGetClientRect.Call(uintptr(h), uintptr(unsafe.Pointer(&rect))); ret == 0 {
		return coords.Geometry{}, false
	}
	var origin POINT
	if ret, _, _ := procClientToScreen.Call(uintptr(h), uintptr(unsafe.Pointer(&origin))); ret == 0 {
		return coords.Geometry{}, false
	}
	g := coords.Geometry{
		X:      int(origin.X),
		Y:      int(origin.Y),
		Width:  int(rect.Right - rect.Left),
		Height: int(rect.Bottom - rect.Top),
	}
	return g, g.Valid()
}

func (d *desktop) CursorPosition() (coords.Point, bool) {
	var pt POINT
	if ret, _, _ := procGetCursorPos.Call(uintptr(unsafe.Pointer(&pt))); ret == 0 {
		return coords.Point{}, false
	}
	return coords.Point{X: int(pt.X), Y: int(pt.Y)}, true
}

func (d *desktop) WindowUnderCursor() (Handle, bool) {
	pt, ok := d.CursorPosition()
	if !ok {
		return 0, false
	}
	// POINT is passed by value, packed into one register on 64-bit
	packed := uintptr(uint32(int32(pt.X))) | uintptr(uint32(int32(pt.Y)))<<32
	hwnd, _, _ := procWindowFromPoint.Call(packed)
	return Handle(hwnd), hwnd != 0
}

func (d *desktop) IsDescendant(candidate, ancestor Handle) bool {
	if candidate == 0 || ancestor == 0 {
		return false
	}
	if candidate == ancestor {
		return true
	}
	ret, _, _ := procIsChild.Call(uintptr(ancestor), uintptr(candidate))
	return ret != 0
}

func (d *desktop) IsLeftButtonDown() bool {
	return asyncKeyDown(vkLButton)
}

func (d *desktop) IsKeyDown(key Key) bool {
	return asyncKeyDown(int(key))
}

func asyncKeyDown(vk int) bool {
	state, _, _ := procGetAsyncKeyState.Call(uintptr(vk))
	return state&0x8000 != 0
}

func clickMessages(button Button) (down, up, mk uintptr) {
	if button == ButtonRight {
		return wmRButtonDown, wmRButtonUp, mkRButton
	}
	return wmLButtonDown, wmLButtonUp, mkLButton
}

func makeLParam(p coords.Point) uintptr {
	return uintptr(uint32(uint16(int16(p.Y)))<<16 | uint32(uint16(int16(p.X))))
}

// SendClick delivers a synchronous click to the window without moving the cursor
func (d *desktop) SendClick(h Handle, p coords.Point, button Button) error {
	down, up, mk := clickMessages(button)
	lParam := makeLParam(p)
	for _, msg := range []struct{ id, wParam uintptr }{
		{wmMouseMove, 0},
		{down, mk},
		{up, 0},
	} {
		var result uintptr
		ret, _, err := procSendMessageTimeoutW.Call(
			uintptr(h), msg.id, msg.wParam, lParam,
			smtoAbortIfHung, sendTimeoutMs, uintptr(unsafe.Pointer(&result)),
		)
		if ret == 0 {
			return &InjectionError{Op: "SendMessageTimeout", Err: err}
		}
	}
	return nil
}

// PostClick queues a click on the window's message queue without waiting
func (d *desktop) PostClick(h Handle, p coords.Point, button Button) error {
	down, up, mk := clickMessages(button)
	lParam := makeLParam(p)
	for _, msg := range []struct{ id, wParam uintptr }{
		{wmMouseMove, 0},
		{down, mk},
		{up, 0},
	} {
		if ret, _, err := procPostMessageW.Call(uintptr(h), msg.id, msg.wParam, lParam); ret == 0 {
			return &InjectionError{Op: "PostMessage", Err: err}
		}
	}
	return nil
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

// InvertRect XORs a focus rectangle onto the whole-screen DC
func (d *desktop) InvertRect(screen coords.Rect) {
	if screen.Width <= 0 && screen.Height <= 0 {
		return
	}
	hdc, _, _ := procGetDC.Call(0)
	if hdc == 0 {
		return
	}
	defer procReleaseDC.Call(0, hdc)

	rect := RECT{
		Left:   int32(screen.Left),
		Top:    int32(screen.Top),
		Right:  int32(screen.Right()),
		Bottom: int32(screen.Bottom()),
	}
	procDrawFocusRect.Call(hdc, uintptr(unsafe.Pointer(&rect)))
}
