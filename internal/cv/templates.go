package cv

import "jordanella.com/game-helper-go/internal/coords"

// DefaultThreshold applies to templates that do not set their own
const DefaultThreshold = 0.8

// Template describes a marker image on disk
type Template struct {
	Name      string
	Path      string
	Threshold float64
	Region    *coords.Rect // window-relative search area, nil for the whole client
}

// InRegion sets the search region for the template
func (t Template) InRegion(r coords.Rect) Template {
	t.Region = &r
	return t
}

// WithThreshold sets the matching threshold
func (t Template) WithThreshold(threshold float64) Template {
	t.Threshold = threshold
	return t
}

// EffectiveThreshold returns Threshold or DefaultThreshold when unset
func (t Template) EffectiveThreshold() float64 {
	if t.Threshold <= 0 {
		return DefaultThreshold
	}
	return t.Threshold
}
