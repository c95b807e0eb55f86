package ocr

import (
	"image"
	"image/color"

	"github.com/nfnt/resize"
)

// Preprocess prepares a captured region for recognition. Steps run in the
// order invert, grayscale, upscale.
type Preprocess struct {
	ScaleFactor int  `yaml:"scale_factor"`
	Invert      bool `yaml:"invert"`
	Grayscale   bool `yaml:"grayscale"`
}

// DefaultPreprocess suits light text on the game's dark tooltips
func DefaultPreprocess() Preprocess {
	return Preprocess{ScaleFactor: 2, Invert: true, Grayscale: true}
}

// Apply returns a processed copy of img
func (p Preprocess) Apply(img image.Image) image.Image {
	out := img
	if p.Invert {
		out = invert(out)
	}
	if p.Grayscale {
		out = grayscale(out)
	}
	if p.ScaleFactor > 1 {
		b := out.Bounds()
		out = resize.Resize(uint(b.Dx()*p.ScaleFactor), uint(b.Dy()*p.ScaleFactor), out, resize.Bilinear)
	}
	return out
}

func invert(img image.Image) *image.RGBA {
	b := img.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			c := color.RGBAModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.RGBA)
			out.SetRGBA(x, y, color.RGBA{R: 255 - c.R, G: 255 - c.G, B: 255 - c.B, A: c.A})
		}
	}
	return out
}

func grayscale(img image.Image) *image.Gray {
	b := img.Bounds()
	out := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			out.Set(x, y, img.At(b.Min.X+x, b.Min.Y+y))
		}
	}
	return out
}
