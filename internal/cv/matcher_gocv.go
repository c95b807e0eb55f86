//go:build gocv

package cv

import (
	"image"
	"image/color"

	"gocv.io/x/gocv"
)

// maxOpenCVResults bounds the peak extraction loop
const maxOpenCVResults = 64

// OpenCVMatcher runs normalized correlation through OpenCV
type OpenCVMatcher struct{}

// DefaultMatcher returns the OpenCV matcher when built with the gocv tag
func DefaultMatcher() Matcher {
	return OpenCVMatcher{}
}

func toGrayMat(img *image.RGBA) (gocv.Mat, error) {
	mat, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return gocv.NewMat(), err
	}
	defer mat.Close()

	gray := gocv.NewMat()
	gocv.CvtColor(mat, &gray, gocv.ColorRGBToGray)
	return gray, nil
}

// FindMatches extracts peaks one at a time, masking each matched area so the
// next peak cannot overlap it
func (OpenCVMatcher) FindMatches(haystack, needle *image.RGBA, threshold float64) []Match {
	if haystack == nil || needle == nil {
		return nil
	}
	size := needle.Bounds().Size()
	if haystack.Bounds().Dx() < size.X || haystack.Bounds().Dy() < size.Y || size.X == 0 || size.Y == 0 {
		return nil
	}

	src, err := toGrayMat(haystack)
	if err != nil {
		return nil
	}
	defer src.Close()
	tmpl, err := toGrayMat(needle)
	if err != nil {
		return nil
	}
	defer tmpl.Close()

	result := gocv.NewMat()
	defer result.Close()
	mask := gocv.NewMat()
	defer mask.Close()
	gocv.MatchTemplate(src, tmpl, &result, gocv.TmCcoeffNormed, mask)

	var matches []Match
	for len(matches) < maxOpenCVResults {
		_, maxVal, _, maxLoc := gocv.MinMaxLoc(result)
		if float64(maxVal) < threshold {
			break
		}
		matches = append(matches, Match{
			Location:   maxLoc.Add(haystack.Bounds().Min),
			Size:       size,
			Confidence: float64(maxVal),
		})
		block := image.Rect(maxLoc.X-size.X+1, maxLoc.Y-size.Y+1, maxLoc.X+size.X, maxLoc.Y+size.Y)
		gocv.Rectangle(&result, block, color.RGBA{0, 0, 0, 255}, -1)
	}

	SortReadingOrder(matches)
	return matches
}

var _ Matcher = OpenCVMatcher{}
