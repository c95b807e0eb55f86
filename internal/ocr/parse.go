package ocr

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	numberPattern = regexp.MustCompile(`[+-]?\d+`)
	wordPattern   = regexp.MustCompile(`\p{L}+`)
)

// Stat is a stat name and value read from an item tooltip
type Stat struct {
	Name  string
	Value int
}

func (s Stat) String() string {
	return fmt.Sprintf("%s %+d", s.Name, s.Value)
}

// ParseStat extracts the first number in text and the stat name next to it.
// The name is taken from the words before the number, falling back to the
// words after it and then to every word in the text.
func ParseStat(text string) (Stat, bool) {
	lower := strings.ToLower(text)

	loc := numberPattern.FindStringIndex(lower)
	if loc == nil {
		return Stat{}, false
	}
	value, err := strconv.Atoi(lower[loc[0]:loc[1]])
	if err != nil {
		return Stat{}, false
	}

	name := words(lower[:loc[0]])
	if name == "" {
		name = words(lower[loc[1]:])
	}
	if name == "" {
		name = words(lower)
	}
	if name == "" {
		return Stat{}, false
	}
	return Stat{Name: name, Value: value}, true
}

func words(s string) string {
	return strings.Join(wordPattern.FindAllString(s, -1), " ")
}

// NormalizeName lowercases a stat name and collapses its whitespace
func NormalizeName(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// MatchesTarget requires an exact normalized name and a value satisfying cmp
func MatchesTarget(stat string, value int, targetStat string, targetValue int, cmp Comparison) bool {
	return MatchesTargetWith(stat, value, Target{
		Stat:       targetStat,
		Value:      targetValue,
		Comparison: cmp,
		NameMatch:  NameExact,
	})
}

// Target is the stat a search is waiting for
type Target struct {
	Stat       string
	Value      int
	Comparison Comparison
	NameMatch  NameMatch
}

func (t Target) String() string {
	return fmt.Sprintf("%s %s %d", t.Stat, t.Comparison.Symbol(), t.Value)
}

// MatchesTargetWith applies the target's name matching mode and comparison
func MatchesTargetWith(stat string, value int, target Target) bool {
	detected := NormalizeName(stat)
	want := NormalizeName(target.Stat)
	if want == "" || detected == "" {
		return false
	}

	switch target.NameMatch {
	case NameContains:
		if !strings.Contains(detected, want) {
			return false
		}
	default:
		if detected != want {
			return false
		}
	}

	return target.Comparison.Compare(value, target.Value)
}
