package cv

import (
	"errors"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"math"
	"os"
	"sort"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
)

// Match is one template hit. Location is the top-left corner in haystack
// coordinates.
type Match struct {
	Location   image.Point
	Size       image.Point
	Confidence float64
}

// Center returns the midpoint of the matched area
func (m Match) Center() image.Point {
	return image.Point{X: m.Location.X + m.Size.X/2, Y: m.Location.Y + m.Size.Y/2}
}

// Bounds returns the matched area
func (m Match) Bounds() image.Rectangle {
	return image.Rectangle{Min: m.Location, Max: m.Location.Add(m.Size)}
}

// MatchMethod defines template matching algorithm
type MatchMethod int

const (
	// MatchMethodSAD - Sum of Absolute Differences (fastest)
	MatchMethodSAD MatchMethod = iota
	// MatchMethodSSD - Sum of Squared Differences (balanced)
	MatchMethodSSD
	// MatchMethodNCC - Normalized Cross-Correlation (most accurate)
	MatchMethodNCC
)

func (m MatchMethod) String() string {
	switch m {
	case MatchMethodSAD:
		return "sad"
	case MatchMethodNCC:
		return "ncc"
	default:
		return "ssd"
	}
}

// ParseMatchMethod maps a config value to a method, defaulting to SSD
func ParseMatchMethod(s string) MatchMethod {
	switch s {
	case "sad":
		return MatchMethodSAD
	case "ncc":
		return MatchMethodNCC
	default:
		return MatchMethodSSD
	}
}

// MatchConfig configures template matching
type MatchConfig struct {
	Method       MatchMethod
	Threshold    float64          // 0.0-1.0, higher = more strict
	SearchRegion *image.Rectangle // Optional: limit search area
	MaxMatches   int              // For FindTemplateAll, 0 = unlimited
}

// DefaultMatchConfig returns recommended settings
func DefaultMatchConfig() *MatchConfig {
	return &MatchConfig{
		Method:     MatchMethodSSD,
		Threshold:  0.85,
		MaxMatches: 1,
	}
}

// ErrInvalidImage is returned for nil or empty template images
var ErrInvalidImage = errors.New("invalid image provided")

// searchArea returns the range of valid top-left positions, or false when
// the needle does not fit
func searchArea(haystack, needle *image.RGBA, config *MatchConfig) (image.Rectangle, bool) {
	bounds := haystack.Bounds()
	if config.SearchRegion != nil {
		bounds = config.SearchRegion.Intersect(bounds)
	}
	nw, nh := needle.Bounds().Dx(), needle.Bounds().Dy()
	if nw == 0 || nh == 0 || bounds.Dx() < nw || bounds.Dy() < nh {
		return image.Rectangle{}, false
	}
	// Max is inclusive here
	return image.Rect(bounds.Min.X, bounds.Min.Y, bounds.Max.X-nw, bounds.Max.Y-nh), true
}

// FindTemplate returns the best-scoring position and whether it reaches the threshold
func FindTemplate(haystack, needle *image.RGBA, config *MatchConfig) (Match, bool) {
	if config == nil {
		config = DefaultMatchConfig()
	}
	area, ok := searchArea(haystack, needle, config)
	if !ok {
		return Match{}, false
	}

	size := needle.Bounds().Size()
	best := Match{Size: size}
	for y := area.Min.Y; y <= area.Max.Y; y++ {
		for x := area.Min.X; x <= area.Max.X; x++ {
			score := calculateMatchScore(haystack, needle, x, y, config.Method)
			if score > best.Confidence {
				best.Confidence = score
				best.Location = image.Point{X: x, Y: y}
			}
		}
	}

	return best, best.Confidence >= config.Threshold
}

// FindTemplateAll returns every position at or above the threshold in scan order
func FindTemplateAll(haystack, needle *image.RGBA, config *MatchConfig) []Match {
	if config == nil {
		config = DefaultMatchConfig()
	}
	area, ok := searchArea(haystack, needle, config)
	if !ok {
		return nil
	}

	size := needle.Bounds().Size()
	var results []Match
	for y := area.Min.Y; y <= area.Max.Y; y++ {
		for x := area.Min.X; x <= area.Max.X; x++ {
			score := calculateMatchScore(haystack, needle, x, y, config.Method)
			if score < config.Threshold {
				continue
			}
			results = append(results, Match{Location: image.Point{X: x, Y: y}, Size: size, Confidence: score})
			if config.MaxMatches > 0 && len(results) >= config.MaxMatches {
				return results
			}
		}
	}
	return results
}

// SuppressOverlaps keeps the highest-confidence match of every cluster of
// overlapping hits and returns the survivors in reading order
func SuppressOverlaps(matches []Match) []Match {
	if len(matches) == 0 {
		return nil
	}
	ranked := append([]Match(nil), matches...)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Confidence > ranked[j].Confidence
	})

	var kept []Match
	for _, m := range ranked {
		overlaps := false
		for _, k := range kept {
			if m.Bounds().Overlaps(k.Bounds()) {
				overlaps = true
				break
			}
		}
		if !overlaps {
			kept = append(kept, m)
		}
	}

	SortReadingOrder(kept)
	return kept
}

// SortReadingOrder sorts matches top-to-bottom, then left-to-right
func SortReadingOrder(matches []Match) {
	sort.SliceStable(matches, func(i, j int) bool {
		a, b := matches[i].Location, matches[j].Location
		if a.Y != b.Y {
			return a.Y < b.Y
		}
		return a.X < b.X
	})
}

// calculateMatchScore computes similarity between template and image region
func calculateMatchScore(haystack, needle *image.RGBA, x, y int, method MatchMethod) float64 {
	width, height := needle.Bounds().Dx(), needle.Bounds().Dy()

	switch method {
	case MatchMethodSAD:
		return matchSAD(haystack, needle, x, y, width, height)
	case MatchMethodNCC:
		return matchNCC(haystack, needle, x, y, width, height)
	default:
		return matchSSD(haystack, needle, x, y, width, height)
	}
}

// pixOffsets returns Pix indices of the haystack pixel at (x+nx, y+ny) and
// the needle pixel at (nx, ny), honouring non-zero image origins
func pixOffsets(haystack, needle *image.RGBA, x, y, nx, ny int) (int, int) {
	return haystack.PixOffset(x+nx, y+ny), needle.PixOffset(needle.Rect.Min.X+nx, needle.Rect.Min.Y+ny)
}

// matchSAD - Sum of Absolute Differences (fastest, least accurate)
func matchSAD(haystack, needle *image.RGBA, x, y, width, height int) float64 {
	var sad uint64

	for ny := 0; ny < height; ny++ {
		for nx := 0; nx < width; nx++ {
			hIdx, nIdx := pixOffsets(haystack, needle, x, y, nx, ny)
			for c := 0; c < 3; c++ {
				sad += uint64(abs(int(haystack.Pix[hIdx+c]) - int(needle.Pix[nIdx+c])))
			}
		}
	}

	maxSAD := float64(width * height * 3 * 255)
	return 1.0 - (float64(sad) / maxSAD)
}

// matchSSD - Sum of Squared Differences (balanced)
func matchSSD(haystack, needle *image.RGBA, x, y, width, height int) float64 {
	var ssd uint64

	for ny := 0; ny < height; ny++ {
		for nx := 0; nx < width; nx++ {
			hIdx, nIdx := pixOffsets(haystack, needle, x, y, nx, ny)
			for c := 0; c < 3; c++ {
				d := int(haystack.Pix[hIdx+c]) - int(needle.Pix[nIdx+c])
				ssd += uint64(d * d)
			}
		}
	}

	maxSSD := float64(width * height * 3 * 255 * 255)
	return 1.0 - (float64(ssd) / maxSSD)
}

// matchNCC - Normalized Cross-Correlation (slowest, most accurate)
func matchNCC(haystack, needle *image.RGBA, x, y, width, height int) float64 {
	var sumH, sumN, sumHN, sumHH, sumNN float64
	pixelCount := float64(width * height * 3)

	for ny := 0; ny < height; ny++ {
		for nx := 0; nx < width; nx++ {
			hIdx, nIdx := pixOffsets(haystack, needle, x, y, nx, ny)
			for c := 0; c < 3; c++ {
				h := float64(haystack.Pix[hIdx+c])
				n := float64(needle.Pix[nIdx+c])

				sumH += h
				sumN += n
				sumHN += h * n
				sumHH += h * h
				sumNN += n * n
			}
		}
	}

	numerator := sumHN - (sumH * sumN / pixelCount)
	denomH := math.Sqrt(math.Max(0, sumHH-(sumH*sumH/pixelCount)))
	denomN := math.Sqrt(math.Max(0, sumNN-(sumN*sumN/pixelCount)))

	if denomH == 0 || denomN == 0 {
		// Flat patches: identical flats are a perfect match
		if denomH == denomN && sumH == sumN {
			return 1
		}
		return 0
	}

	// Correlation coefficient (-1 to 1, normalize to 0-1)
	correlation := numerator / (denomH * denomN)
	return (correlation + 1.0) / 2.0
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// Grayscale converts RGBA to a grayscale RGBA image (luminance in every channel)
func Grayscale(img *image.RGBA) *image.RGBA {
	bounds := img.Bounds()
	gray := image.NewRGBA(bounds)

	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			idx := img.PixOffset(x, y)
			r, g, b := img.Pix[idx], img.Pix[idx+1], img.Pix[idx+2]

			v := uint8((int(r)*299 + int(g)*587 + int(b)*114) / 1000)

			out := gray.PixOffset(x, y)
			gray.Pix[out] = v
			gray.Pix[out+1] = v
			gray.Pix[out+2] = v
			gray.Pix[out+3] = 255
		}
	}

	return gray
}

// CropRegion extracts a rectangular region into a zero-origin image
func CropRegion(img *image.RGBA, rect image.Rectangle) *image.RGBA {
	rect = rect.Intersect(img.Bounds())
	cropped := image.NewRGBA(image.Rect(0, 0, rect.Dx(), rect.Dy()))

	for y := rect.Min.Y; y < rect.Max.Y; y++ {
		src := img.PixOffset(rect.Min.X, y)
		dst := cropped.PixOffset(0, y-rect.Min.Y)
		copy(cropped.Pix[dst:dst+rect.Dx()*4], img.Pix[src:src+rect.Dx()*4])
	}

	return cropped
}

// LoadImage decodes a PNG, JPEG or BMP template from disk into RGBA
func LoadImage(path string) (*image.RGBA, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		return nil, err
	}

	if rgba, ok := img.(*image.RGBA); ok {
		return rgba, nil
	}
	bounds := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, bounds.Min, draw.Src)
	return rgba, nil
}
