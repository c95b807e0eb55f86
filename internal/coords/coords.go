package coords

import (
	"fmt"
	"image"
	"math"
)

// Geometry is the client area of the target window in screen coordinates
type Geometry struct {
	X, Y          int
	Width, Height int
}

// Valid reports whether the geometry describes a usable client area
func (g Geometry) Valid() bool {
	return g.Width > 0 && g.Height > 0
}

// Bounds returns the client area as a window-relative rect
func (g Geometry) Bounds() Rect {
	return Rect{Width: g.Width, Height: g.Height}
}

func (g Geometry) String() string {
	return fmt.Sprintf("Geometry{Origin: %d,%d, Size: %dx%d}", g.X, g.Y, g.Width, g.Height)
}

// Point is a pixel position
type Point struct {
	X, Y int
}

// Distance returns the euclidean distance between two points
func (p Point) Distance(q Point) float64 {
	dx := float64(p.X - q.X)
	dy := float64(p.Y - q.Y)
	return math.Sqrt(dx*dx + dy*dy)
}

// Within reports whether q lies inside radius pixels of p
func (p Point) Within(q Point, radius float64) bool {
	return p.Distance(q) <= radius
}

func (p Point) String() string {
	return fmt.Sprintf("(%d, %d)", p.X, p.Y)
}

// Rect is a pixel rectangle given by its top-left corner and size
type Rect struct {
	Left, Top     int
	Width, Height int
}

// RectFromCorners builds the rect spanned by two corners in any order
func RectFromCorners(a, b Point) Rect {
	return Rect{
		Left:   min(a.X, b.X),
		Top:    min(a.Y, b.Y),
		Width:  abs(b.X - a.X),
		Height: abs(b.Y - a.Y),
	}
}

// IsDegenerate reports a rect with no area
func (r Rect) IsDegenerate() bool {
	return r.Width <= 0 || r.Height <= 0
}

// Right returns the exclusive right edge
func (r Rect) Right() int {
	return r.Left + r.Width
}

// Bottom returns the exclusive bottom edge
func (r Rect) Bottom() int {
	return r.Top + r.Height
}

// Center returns the middle of the rect
func (r Rect) Center() Point {
	return Point{X: r.Left + r.Width/2, Y: r.Top + r.Height/2}
}

// Contains checks if a point is within the rect
func (r Rect) Contains(p Point) bool {
	return p.X >= r.Left && p.X < r.Right() && p.Y >= r.Top && p.Y < r.Bottom()
}

// Offset moves the rect by the given point
func (r Rect) Offset(p Point) Rect {
	return Rect{Left: r.Left + p.X, Top: r.Top + p.Y, Width: r.Width, Height: r.Height}
}

// ToImageRectangle converts the rect for use with image operations
func (r Rect) ToImageRectangle() image.Rectangle {
	return image.Rect(r.Left, r.Top, r.Right(), r.Bottom())
}

func (r Rect) String() string {
	return fmt.Sprintf("(%d, %d, %dx%d)", r.Left, r.Top, r.Width, r.Height)
}

// NormalizedRect is a rect expressed as fractions of the client size
type NormalizedRect struct {
	X, Y          float64
	Width, Height float64
}

// NormalizedPoint is a point expressed as fractions of the client size
type NormalizedPoint struct {
	X, Y float64
}

// ToScreen converts a window-relative point to screen coordinates
func ToScreen(g Geometry, p Point) Point {
	return Point{X: g.X + p.X, Y: g.Y + p.Y}
}

// ToWindowRelative converts a screen point into the window's client space.
// It fails when the geometry is unavailable.
func ToWindowRelative(g Geometry, p Point) (Point, bool) {
	if !g.Valid() {
		return Point{}, false
	}
	return Point{X: p.X - g.X, Y: p.Y - g.Y}, true
}

// RectToScreen converts a window-relative rect to screen coordinates
func RectToScreen(g Geometry, r Rect) Rect {
	return r.Offset(Point{X: g.X, Y: g.Y})
}

// Normalize divides a rect by the client size, clamping every component into [0,1]
func Normalize(g Geometry, r Rect) (NormalizedRect, bool) {
	if !g.Valid() {
		return NormalizedRect{}, false
	}
	w := float64(g.Width)
	h := float64(g.Height)
	return NormalizedRect{
		X:      clamp01(float64(r.Left) / w),
		Y:      clamp01(float64(r.Top) / h),
		Width:  clamp01(float64(r.Width) / w),
		Height: clamp01(float64(r.Height) / h),
	}, true
}

// Denormalize maps a normalized rect back to pixels. Width and height are
// shrunk from the far edge so the result stays inside the client area.
func Denormalize(g Geometry, n NormalizedRect) (Rect, bool) {
	if !g.Valid() {
		return Rect{}, false
	}
	r := Rect{
		Left:   round(n.X * float64(g.Width)),
		Top:    round(n.Y * float64(g.Height)),
		Width:  round(n.Width * float64(g.Width)),
		Height: round(n.Height * float64(g.Height)),
	}
	r.Left = clampInt(r.Left, 0, g.Width)
	r.Top = clampInt(r.Top, 0, g.Height)
	r.Width = clampInt(r.Width, 0, g.Width-r.Left)
	r.Height = clampInt(r.Height, 0, g.Height-r.Top)
	return r, true
}

// NormalizePoint divides a point by the client size, clamped into [0,1]
func NormalizePoint(g Geometry, p Point) (NormalizedPoint, bool) {
	if !g.Valid() {
		return NormalizedPoint{}, false
	}
	return NormalizedPoint{
		X: clamp01(float64(p.X) / float64(g.Width)),
		Y: clamp01(float64(p.Y) / float64(g.Height)),
	}, true
}

// DenormalizePoint maps a normalized point back to a pixel inside the client area
func DenormalizePoint(g Geometry, n NormalizedPoint) (Point, bool) {
	if !g.Valid() {
		return Point{}, false
	}
	return Point{
		X: clampInt(round(n.X*float64(g.Width)), 0, g.Width-1),
		Y: clampInt(round(n.Y*float64(g.Height)), 0, g.Height-1),
	}, true
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func round(v float64) int {
	return int(math.Round(v))
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
