//go:build windows

package window

import (
	"fmt"
	"image"
	"unsafe"

	"golang.org/x/sys/windows"

	"jordanella.com/game-helper-go/internal/coords"
)

var (
	gdi32                      = windows.NewLazySystemDLL("gdi32.dll")
	procCreateCompatibleDC     = gdi32.NewProc("CreateCompatibleDC")
	procCreateCompatibleBitmap = gdi32.NewProc("CreateCompatibleBitmap")
	procSelectObject           = gdi32.NewProc("SelectObject")
	procBitBlt                 = gdi32.NewProc("BitBlt")
	procDeleteDC               = gdi32.NewProc("DeleteDC")
	procDeleteObject           = gdi32.NewProc("DeleteObject")
	procGetDIBits              = gdi32.NewProc("GetDIBits")
)

const (
	SRCCOPY        = 0x00CC0020
	BI_RGB         = 0
	DIB_RGB_COLORS = 0
)

// BITMAPINFOHEADER structure
type BITMAPINFOHEADER struct {
	Size          uint32
	Width         int32
	Height        int32
	Planes        uint16
	BitCount      uint16
	Compression   uint32
	SizeImage     uint32
	XPelsPerMeter int32
	YPelsPerMeter int32
	ClrUsed       uint32
	ClrImportant  uint32
}

// BITMAPINFO structure
type BITMAPINFO struct {
	BmiHeader BITMAPINFOHEADER
	BmiColors [1]uint32
}

// CaptureRegion copies a window-relative region from the client DC. If the
// blit fails (some games render through exclusive surfaces) the region is
// read from the screen instead.
func (d *desktop) CaptureRegion(h Handle, r coords.Rect) (*image.RGBA, error) {
	g, ok := d.Geometry(h)
	if !ok {
		return nil, fmt.Errorf("window geometry unavailable")
	}
	clipped := clipToClient(g, r)
	if clipped.IsDegenerate() {
		return nil, fmt.Errorf("capture region %v is outside the client area", r)
	}

	img, err := blitClient(uintptr(h), clipped)
	if err == nil {
		return img, nil
	}
	return robotCapture(coords.RectToScreen(g, clipped))
}

func clipToClient(g coords.Geometry, r coords.Rect) coords.Rect {
	rect := r.ToImageRectangle().Intersect(g.Bounds().ToImageRectangle())
	return coords.Rect{Left: rect.Min.X, Top: rect.Min.Y, Width: rect.Dx(), Height: rect.Dy()}
}

func blitClient(hwnd uintptr, r coords.Rect) (*image.RGBA, error) {
	hdcWindow, _, err := procGetDC.Call(hwnd)
	if hdcWindow == 0 {
		return nil, fmt.Errorf("failed to get window DC: %v", err)
	}
	defer procReleaseDC.Call(hwnd, hdcWindow)

	hdcMem, _, err := procCreateCompatibleDC.Call(hdcWindow)
	if hdcMem == 0 {
		return nil, fmt.Errorf("failed to create compatible DC: %v", err)
	}
	defer procDeleteDC.Call(hdcMem)

	hBitmap, _, err := procCreateCompatibleBitmap.Call(hdcWindow, uintptr(r.Width), uintptr(r.Height))
	if hBitmap == 0 {
		return nil, fmt.Errorf("failed to create compatible bitmap: %v", err)
	}
	defer procDeleteObject.Call(hBitmap)

	procSelectObject.Call(hdcMem, hBitmap)

	ret, _, err := procBitBlt.Call(
		hdcMem,
		0, 0,
		uintptr(r.Width), uintptr(r.Height),
		hdcWindow,
		uintptr(r.Left), uintptr(r.Top),
		SRCCOPY,
	)
	if ret == 0 {
		return nil, fmt.Errorf("BitBlt failed: %v", err)
	}

	var bi BITMAPINFO
	bi.BmiHeader.Size = uint32(unsafe.Sizeof(bi.BmiHeader))
	bi.BmiHeader.Width = int32(r.Width)
	bi.BmiHeader.Height = -int32(r.Height) // top-down
	bi.BmiHeader.Planes = 1
	bi.BmiHeader.BitCount = 32
	bi.BmiHeader.Compression = BI_RGB

	buffer := make([]byte, r.Width*r.Height*4)
	ret, _, err = procGetDIBits.Call(
		hdcMem,
		hBitmap,
		0,
		uintptr(r.Height),
		uintptr(unsafe.Pointer(&buffer[0])),
		uintptr(unsafe.Pointer(&bi)),
		DIB_RGB_COLORS,
	)
	if ret == 0 {
		return nil, fmt.Errorf("GetDIBits failed: %v", err)
	}

	// BGRA to RGBA, alpha forced opaque since GDI leaves it undefined
	img := image.NewRGBA(image.Rect(0, 0, r.Width, r.Height))
	for i := 0; i < len(buffer); i += 4 {
		img.Pix[i] = buffer[i+2]
		img.Pix[i+1] = buffer[i+1]
		img.Pix[i+2] = buffer[i]
		img.Pix[i+3] = 0xFF
	}
	return img, nil
}
