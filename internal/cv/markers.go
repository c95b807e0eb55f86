package cv

import (
	"fmt"
	"image"

	"jordanella.com/game-helper-go/internal/coords"
	"jordanella.com/game-helper-go/internal/window"
)

// MarkerFinder locates one marker image inside window-relative regions of a
// single target window
type MarkerFinder struct {
	capturer  window.Capturer
	matcher   Matcher
	handle    window.Handle
	marker    *image.RGBA
	tolerance float64
}

// NewMarkerFinder binds a marker image and confidence tolerance to a window
func NewMarkerFinder(capturer window.Capturer, matcher Matcher, h window.Handle, marker *image.RGBA, tolerance float64) (*MarkerFinder, error) {
	if marker == nil || marker.Bounds().Empty() {
		return nil, ErrInvalidImage
	}
	if matcher == nil {
		matcher = DefaultMatcher()
	}
	return &MarkerFinder{
		capturer:  capturer,
		matcher:   matcher,
		handle:    h,
		marker:    marker,
		tolerance: tolerance,
	}, nil
}

// FindMarkers captures region and returns the window-relative center of every
// hit in reading order
func (f *MarkerFinder) FindMarkers(region coords.Rect) ([]coords.Point, error) {
	if region.IsDegenerate() {
		return nil, fmt.Errorf("search region %s is empty", region)
	}

	frame, err := f.capturer.CaptureRegion(f.handle, region)
	if err != nil {
		return nil, fmt.Errorf("failed to capture %s: %w", region, err)
	}

	matches := f.matcher.FindMatches(frame, f.marker, f.tolerance)
	points := make([]coords.Point, 0, len(matches))
	origin := frame.Bounds().Min
	for _, m := range matches {
		c := m.Center().Sub(origin)
		points = append(points, coords.Point{X: region.Left + c.X, Y: region.Top + c.Y})
	}
	return points, nil
}
