package cv

import (
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/image/bmp"

	"jordanella.com/game-helper-go/internal/coords"
	"jordanella.com/game-helper-go/internal/window"
)

var red = color.RGBA{R: 220, G: 20, B: 30, A: 255}

func blank(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := 3; i < len(img.Pix); i += 4 {
		img.Pix[i] = 255
	}
	return img
}

func paint(img *image.RGBA, r image.Rectangle, c color.RGBA) {
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			img.SetRGBA(x, y, c)
		}
	}
}

func redDot() *image.RGBA {
	dot := blank(4, 4)
	paint(dot, dot.Bounds(), red)
	return dot
}

func TestFindTemplate(t *testing.T) {
	methods := []MatchMethod{MatchMethodSAD, MatchMethodSSD, MatchMethodNCC}

	for _, method := range methods {
		t.Run(method.String(), func(t *testing.T) {
			haystack := blank(40, 30)
			paint(haystack, image.Rect(17, 9, 21, 13), red)

			// NCC needs some contrast inside the needle
			needle := blank(6, 6)
			paint(needle, image.Rect(1, 1, 5, 5), red)

			m, found := FindTemplate(haystack, needle, &MatchConfig{Method: method, Threshold: 0.95})
			if !found {
				t.Fatalf("Expected match, best confidence %.3f", m.Confidence)
			}
			if m.Location != (image.Point{X: 16, Y: 8}) {
				t.Errorf("Expected location (16,8), got %v", m.Location)
			}
			if m.Center() != (image.Point{X: 19, Y: 11}) {
				t.Errorf("Expected center (19,11), got %v", m.Center())
			}
		})
	}
}

func TestFindTemplateNeedleTooLarge(t *testing.T) {
	if _, found := FindTemplate(blank(3, 3), redDot(), nil); found {
		t.Error("Expected no match for oversized needle")
	}
	if got := FindTemplateAll(blank(3, 3), redDot(), nil); got != nil {
		t.Errorf("Expected nil, got %v", got)
	}
}

func TestFindTemplateSearchRegion(t *testing.T) {
	haystack := blank(40, 30)
	paint(haystack, image.Rect(2, 2, 6, 6), red)
	paint(haystack, image.Rect(30, 20, 34, 24), red)

	region := image.Rect(20, 15, 40, 30)
	m, found := FindTemplate(haystack, redDot(), &MatchConfig{Threshold: 0.99, SearchRegion: &region})
	if !found || m.Location != (image.Point{X: 30, Y: 20}) {
		t.Errorf("Expected match at (30,20) inside region, got %v found=%v", m.Location, found)
	}
}

func TestPixelMatcherReadingOrder(t *testing.T) {
	haystack := blank(60, 40)
	spots := []image.Point{{40, 30}, {5, 30}, {30, 4}, {10, 4}}
	for _, p := range spots {
		paint(haystack, image.Rectangle{Min: p, Max: p.Add(image.Pt(4, 4))}, red)
	}

	got := PixelMatcher{Method: MatchMethodSSD}.FindMatches(haystack, redDot(), 0.95)

	want := []image.Point{{10, 4}, {30, 4}, {5, 30}, {40, 30}}
	if len(got) != len(want) {
		t.Fatalf("Expected %d matches, got %v", len(want), got)
	}
	for i := range want {
		if got[i].Location != want[i] {
			t.Errorf("Match %d: expected %v, got %v", i, want[i], got[i].Location)
		}
	}
}

func TestSuppressOverlaps(t *testing.T) {
	size := image.Pt(10, 10)
	matches := []Match{
		{Location: image.Pt(0, 0), Size: size, Confidence: 0.90},
		{Location: image.Pt(3, 2), Size: size, Confidence: 0.97},
		{Location: image.Pt(9, 9), Size: size, Confidence: 0.91},
		{Location: image.Pt(50, 0), Size: size, Confidence: 0.85},
	}

	got := SuppressOverlaps(matches)

	if len(got) != 2 {
		t.Fatalf("Expected 2 survivors, got %v", got)
	}
	if got[0].Location != image.Pt(50, 0) || got[1].Location != image.Pt(3, 2) {
		t.Errorf("Unexpected survivors %v", got)
	}
	if SuppressOverlaps(nil) != nil {
		t.Error("Expected nil for no matches")
	}
}

func TestCropRegion(t *testing.T) {
	img := blank(20, 20)
	paint(img, image.Rect(5, 5, 7, 7), red)

	crop := CropRegion(img, image.Rect(4, 4, 10, 10))

	if crop.Bounds() != image.Rect(0, 0, 6, 6) {
		t.Fatalf("Unexpected bounds %v", crop.Bounds())
	}
	if crop.RGBAAt(1, 1) != red || crop.RGBAAt(0, 0) == red {
		t.Error("Crop copied wrong pixels")
	}
}

func TestLoadImage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dot.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := png.Encode(f, redDot()); err != nil {
		t.Fatal(err)
	}
	f.Close()

	img, err := LoadImage(path)
	if err != nil {
		t.Fatalf("LoadImage failed: %v", err)
	}
	if img.Bounds().Dx() != 4 || img.RGBAAt(2, 2) != red {
		t.Errorf("Unexpected image %v", img.Bounds())
	}

	if _, err := LoadImage(filepath.Join(t.TempDir(), "missing.png")); err == nil {
		t.Error("Expected error for missing file")
	}
}

func TestLoadImageBMP(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dot.bmp")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := bmp.Encode(f, redDot()); err != nil {
		t.Fatal(err)
	}
	f.Close()

	img, err := LoadImage(path)
	if err != nil {
		t.Fatalf("LoadImage failed: %v", err)
	}
	if img.Bounds().Dx() != 4 || img.RGBAAt(2, 2) != red {
		t.Errorf("Unexpected pixel %v", img.RGBAAt(2, 2))
	}
}

type stubCapturer struct {
	frame   *image.RGBA
	err     error
	regions []coords.Rect
}

func (s *stubCapturer) CaptureRegion(h window.Handle, r coords.Rect) (*image.RGBA, error) {
	s.regions = append(s.regions, r)
	return s.frame, s.err
}

func TestMarkerFinder(t *testing.T) {
	frame := blank(30, 20)
	paint(frame, image.Rect(10, 5, 14, 9), red)
	capturer := &stubCapturer{frame: frame}

	finder, err := NewMarkerFinder(capturer, PixelMatcher{}, 1, redDot(), 0.95)
	if err != nil {
		t.Fatal(err)
	}

	region := coords.Rect{Left: 100, Top: 50, Width: 30, Height: 20}
	points, err := finder.FindMarkers(region)
	if err != nil {
		t.Fatalf("FindMarkers failed: %v", err)
	}

	if len(points) != 1 || points[0] != (coords.Point{X: 112, Y: 57}) {
		t.Errorf("Expected window-relative center (112,57), got %v", points)
	}
	if len(capturer.regions) != 1 || capturer.regions[0] != region {
		t.Errorf("Expected capture of %v, got %v", region, capturer.regions)
	}
}

func TestMarkerFinderErrors(t *testing.T) {
	if _, err := NewMarkerFinder(&stubCapturer{}, nil, 1, nil, 0.9); !errors.Is(err, ErrInvalidImage) {
		t.Errorf("Expected ErrInvalidImage, got %v", err)
	}

	capErr := errors.New("window gone")
	finder, _ := NewMarkerFinder(&stubCapturer{err: capErr}, nil, 1, redDot(), 0.9)

	if _, err := finder.FindMarkers(coords.Rect{Width: 10, Height: 10}); !errors.Is(err, capErr) {
		t.Errorf("Expected capture error, got %v", err)
	}
	if _, err := finder.FindMarkers(coords.Rect{Width: 0, Height: 10}); err == nil {
		t.Error("Expected error for empty region")
	}
}
