package ocr

import (
	"fmt"
	"strings"
)

// Comparison decides how a detected value is checked against the target
type Comparison string

const (
	Equals             Comparison = "equals"
	GreaterThanOrEqual Comparison = "gte"
	LessThanOrEqual    Comparison = "lte"
)

// Compare applies the comparison to a detected and a target value
func (c Comparison) Compare(detected, target int) bool {
	switch c {
	case GreaterThanOrEqual:
		return detected >= target
	case LessThanOrEqual:
		return detected <= target
	default:
		return detected == target
	}
}

// Symbol returns the operator used in status text
func (c Comparison) Symbol() string {
	switch c {
	case GreaterThanOrEqual:
		return ">="
	case LessThanOrEqual:
		return "<="
	default:
		return "=="
	}
}

// ParseComparison accepts the config names and operator symbols
func ParseComparison(s string) (Comparison, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "equals", "eq", "==", "=":
		return Equals, nil
	case "gte", "greater_than_or_equal", ">=":
		return GreaterThanOrEqual, nil
	case "lte", "less_than_or_equal", "<=":
		return LessThanOrEqual, nil
	}
	return "", fmt.Errorf("unknown comparison %q", s)
}

// UnmarshalYAML accepts any spelling ParseComparison understands
func (c *Comparison) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var raw string
	if err := unmarshal(&raw); err != nil {
		return err
	}
	parsed, err := ParseComparison(raw)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// NameMatch decides how the detected stat name is compared to the target
type NameMatch string

const (
	NameExact    NameMatch = "exact"
	NameContains NameMatch = "contains"
)

// UnmarshalYAML validates the name match mode
func (n *NameMatch) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var raw string
	if err := unmarshal(&raw); err != nil {
		return err
	}
	switch NameMatch(strings.ToLower(raw)) {
	case "", NameExact:
		*n = NameExact
	case NameContains:
		*n = NameContains
	default:
		return fmt.Errorf("unknown name match %q", raw)
	}
	return nil
}

// Strategy is the text decoding strategy of the recognizer
type Strategy string

const (
	Greedy     Strategy = "greedy"
	BeamSearch Strategy = "beam_search"
)

// Decode selects the decoder and its beam width
type Decode struct {
	Strategy  Strategy `yaml:"strategy"`
	BeamWidth int      `yaml:"beam_width,omitempty"`
}

// Validate checks the beam width for beam search
func (d Decode) Validate() error {
	switch d.Strategy {
	case "", Greedy:
		return nil
	case BeamSearch:
		if d.BeamWidth < 1 {
			return fmt.Errorf("beam search needs a width of at least 1, got %d", d.BeamWidth)
		}
		return nil
	}
	return fmt.Errorf("unknown decode strategy %q", d.Strategy)
}

func (d Decode) String() string {
	if d.Strategy == BeamSearch {
		return fmt.Sprintf("beam_search(%d)", d.BeamWidth)
	}
	return string(Greedy)
}
