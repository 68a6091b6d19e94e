package contrast

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Classification is the WCAG text size class.
type Classification string

const (
	Normal Classification = "normal"
	Large  Classification = "large"
)

// Level is a WCAG conformance level.
type Level string

const (
	AA  Level = "AA"
	AAA Level = "AAA"
)

// Unit is the unit a font size is expressed in. The engine never converts
// between units; the caller states which one it measured.
type Unit string

const (
	Px Unit = "px"
	Pt Unit = "pt"
)

// FontWeight is a numeric CSS font weight.
type FontWeight int

// Named font weights.
const (
	WeightNormal FontWeight = 400
	WeightBold   FontWeight = 700
)

// Defaults applied to pairs that omit typography.
const (
	DefaultFontSize = 16.0
	DefaultUnit     = Px
	DefaultWeight   = WeightNormal
)

// Minimum contrast ratios per level and text classification.
const (
	RatioAANormal  = 4.5
	RatioAALarge   = 3.0
	RatioAAANormal = 7.0
	RatioAAALarge  = 4.5
)

// Large text thresholds. Bold text qualifies at the smaller size.
const (
	largePx     = 18.0
	largeBoldPx = 14.0
	largePt     = 14.0
	largeBoldPt = 12.0
)

// Typography parsing errors.
var (
	ErrInvalidLevel      = errors.New("invalid conformance level, expected AA or AAA")
	ErrInvalidUnit       = errors.New("invalid font size unit, expected px or pt")
	ErrInvalidFontWeight = errors.New("invalid font weight")
)

// ParseLevel parses "AA" or "AAA", case-insensitively.
func ParseLevel(s string) (Level, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "AA":
		return AA, nil
	case "AAA":
		return AAA, nil
	}
	return "", fmt.Errorf("%w: got %q", ErrInvalidLevel, s)
}

// ParseUnit parses "px" or "pt". An empty string yields DefaultUnit.
func ParseUnit(s string) (Unit, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return DefaultUnit, nil
	case "px":
		return Px, nil
	case "pt":
		return Pt, nil
	}
	return "", fmt.Errorf("%w: got %q", ErrInvalidUnit, s)
}

// ParseFontWeight accepts numeric weights (1-1000) and the keywords normal,
// bold, bolder and lighter. An empty string yields DefaultWeight.
func ParseFontWeight(s string) (FontWeight, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	switch v {
	case "":
		return DefaultWeight, nil
	case "normal":
		return WeightNormal, nil
	case "bold", "bolder":
		return WeightBold, nil
	case "lighter":
		return 300, nil
	}

	n, err := strconv.ParseFloat(v, 64)
	if err != nil || n < 1 || n > 1000 {
		return 0, fmt.Errorf("%w: got %q", ErrInvalidFontWeight, s)
	}
	return FontWeight(n), nil
}

// IsBold reports whether the weight counts as bold for WCAG purposes.
func (w FontWeight) IsBold() bool {
	return w >= WeightBold
}

// Text describes the typography of the text being evaluated.
type Text struct {
	Size   float64    `json:"font_size" cbor:"font_size"`
	Unit   Unit       `json:"font_unit" cbor:"font_unit"`
	Weight FontWeight `json:"font_weight" cbor:"font_weight"`
}

// DefaultText is 16px text at normal weight.
var DefaultText = Text{Size: DefaultFontSize, Unit: DefaultUnit, Weight: DefaultWeight}

// Classification returns the WCAG size class of t.
func (t Text) Classification() Classification {
	return ClassifyText(t.Size, t.Unit, t.Weight)
}

// ClassifyText returns Large when size meets the large-text threshold for the
// given unit (18px / 14pt) or when bold text meets the bold threshold
// (14px / 12pt). An unknown unit is treated as px.
func ClassifyText(size float64, unit Unit, weight FontWeight) Classification {
	large, largeBold := largePx, largeBoldPx
	if unit == Pt {
		large, largeBold = largePt, largeBoldPt
	}

	if size >= large || (weight.IsBold() && size >= largeBold) {
		return Large
	}
	return Normal
}

// RequiredRatio returns the minimum contrast ratio for a level and text
// classification. Unknown levels are held to AA.
func RequiredRatio(level Level, c Classification) float64 {
	if level == AAA {
		if c == Large {
			return RatioAAALarge
		}
		return RatioAAANormal
	}
	if c == Large {
		return RatioAALarge
	}
	return RatioAANormal
}
