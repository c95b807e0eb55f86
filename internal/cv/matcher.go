package cv

import "image"

// Matcher finds every occurrence of needle in haystack at or above threshold.
// Results never overlap and come back in reading order.
type Matcher interface {
	FindMatches(haystack, needle *image.RGBA, threshold float64) []Match
}

// PixelMatcher is the pure Go matcher built on FindTemplateAll
type PixelMatcher struct {
	Method MatchMethod
}

// FindMatches scans every position and collapses overlapping hits
func (m PixelMatcher) FindMatches(haystack, needle *image.RGBA, threshold float64) []Match {
	if haystack == nil || needle == nil {
		return nil
	}
	config := &MatchConfig{Method: m.Method, Threshold: threshold}
	return SuppressOverlaps(FindTemplateAll(haystack, needle, config))
}

var _ Matcher = PixelMatcher{}
