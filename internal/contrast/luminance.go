package contrast

import (
	"fmt"
	"math"
)

// Contrast ratio bounds for opaque sRGB colors.
const (
	MinRatio = 1.0
	MaxRatio = 21.0
)

// linearize applies the sRGB transfer function to a normalized channel.
func linearize(channel uint8) float64 {
	v := float64(channel) / 255.0
	if v <= 0.03928 {
		return v / 12.92
	}
	return math.Pow((v+0.055)/1.055, 2.4)
}

// RelativeLuminance calculates the relative luminance of a color
// according to WCAG 2.1.
// https://www.w3.org/WAI/GL/wiki/Relative_luminance
func RelativeLuminance(c Color) float64 {
	// ITU-R BT.709 coefficients
	return 0.2126*linearize(c.R) + 0.7152*linearize(c.G) + 0.0722*linearize(c.B)
}

// Ratio calculates the contrast ratio between two colors.
// The result is symmetric and lies between 1.0 (no contrast) and 21.0.
// https://www.w3.org/WAI/GL/wiki/Contrast_ratio
func Ratio(a, b Color) float64 {
	l1 := RelativeLuminance(a)
	l2 := RelativeLuminance(b)

	// Ensure l1 is the lighter color
	if l1 < l2 {
		l1, l2 = l2, l1
	}

	return (l1 + 0.05) / (l2 + 0.05)
}

// RatioOf parses two rgb()/rgba() strings and returns their contrast ratio.
// A parse failure is reported as an error wrapping ErrUnparseable rather
// than as an out-of-range ratio.
func RatioOf(a, b string) (float64, error) {
	ca, err := ParseColor(a)
	if err != nil {
		return 0, fmt.Errorf("first color: %w", err)
	}
	cb, err := ParseColor(b)
	if err != nil {
		return 0, fmt.Errorf("second color: %w", err)
	}
	return Ratio(ca, cb), nil
}
