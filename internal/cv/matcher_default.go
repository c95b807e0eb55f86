//go:build !gocv

package cv

// DefaultMatcher returns the matcher used when no backend is configured
func DefaultMatcher() Matcher {
	return PixelMatcher{Method: MatchMethodSSD}
}
