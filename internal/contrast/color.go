// Package contrast evaluates WCAG 2.1 color contrast.
//
// It computes relative luminance and contrast ratios for sRGB colors,
// classifies text as normal or large, and decides AA/AAA compliance for
// single color pairs and for ordered batches of pairs. All evaluation is
// pure; the only failure mode is an unparseable color string, which degrades
// to a non-passing result and is never raised to the caller.
//
// Colors are treated as fully opaque. Alpha in rgba() notation is dropped and
// no ancestor compositing is performed; callers that know the effective
// backdrop of a translucent color should pre-composite with Composite.
package contrast

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

// ErrUnparseable is the root error for every color string that cannot be parsed.
var ErrUnparseable = errors.New("unparseable color")

// ParseError describes why a color string could not be parsed.
type ParseError struct {
	Input  string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s %q: %s", ErrUnparseable, e.Input, e.Reason)
}

// Unwrap allows errors.Is(err, ErrUnparseable).
func (e *ParseError) Unwrap() error {
	return ErrUnparseable
}

// Color is an opaque sRGB color with 8-bit channels.
type Color struct {
	R uint8 `json:"r" cbor:"r"`
	G uint8 `json:"g" cbor:"g"`
	B uint8 `json:"b" cbor:"b"`
}

// Common reference colors.
var (
	Black = Color{0, 0, 0}
	White = Color{255, 255, 255}
)

// rgbPattern matches rgb(r, g, b) and rgba(r, g, b, a) as produced by
// getComputedStyle. The alpha component is matched but never captured.
var rgbPattern = regexp.MustCompile(`^rgba?\(\s*(\d+)\s*,\s*(\d+)\s*,\s*(\d+)\s*(?:,\s*[0-9.]+%?\s*)?\)$`)

// hslPattern matches hsl(h, s%, l%) and hsla(h, s%, l%, a).
var hslPattern = regexp.MustCompile(`^hsla?\(\s*([0-9.]+)(?:deg)?\s*,\s*([0-9.]+)%\s*,\s*([0-9.]+)%\s*(?:,\s*[0-9.]+%?\s*)?\)$`)

// ParseColor parses rgb() or rgba() notation into a Color.
// Any alpha channel is ignored. Hex, named colors, hsl() and lab() are not
// accepted here; see ParseCSSColor for the broader notation set.
func ParseColor(s string) (Color, error) {
	input := strings.TrimSpace(s)
	m := rgbPattern.FindStringSubmatch(input)
	if m == nil {
		return Color{}, &ParseError{Input: s, Reason: "expected rgb(r, g, b) or rgba(r, g, b, a)"}
	}

	var channels [3]uint8
	for i := 0; i < 3; i++ {
		v, err := strconv.Atoi(m[i+1])
		if err != nil || v > 255 {
			return Color{}, &ParseError{Input: s, Reason: fmt.Sprintf("channel %q out of range 0-255", m[i+1])}
		}
		channels[i] = uint8(v)
	}

	return Color{R: channels[0], G: channels[1], B: channels[2]}, nil
}

// ParseCSSColor parses rgb()/rgba(), #RGB, #RRGGBB and hsl()/hsla() notation.
// It is a deliberate superset of ParseColor for callers holding design-system
// tokens written in hex or HSL. Alpha is ignored in every notation.
func ParseCSSColor(s string) (Color, error) {
	input := strings.ToLower(strings.TrimSpace(s))

	switch {
	case strings.HasPrefix(input, "rgb"):
		return ParseColor(input)

	case strings.HasPrefix(input, "#"):
		c, err := ParseHexColor(input)
		if err != nil {
			return Color{}, &ParseError{Input: s, Reason: "expected #RGB or #RRGGBB"}
		}
		return c, nil

	case strings.HasPrefix(input, "hsl"):
		m := hslPattern.FindStringSubmatch(input)
		if m == nil {
			return Color{}, &ParseError{Input: s, Reason: "expected hsl(h, s%, l%)"}
		}
		var hsl [3]float64
		for i := range hsl {
			v, err := strconv.ParseFloat(m[i+1], 64)
			if err != nil || math.IsInf(v, 0) {
				return Color{}, &ParseError{Input: s, Reason: fmt.Sprintf("invalid number %q", m[i+1])}
			}
			hsl[i] = v
		}
		h, sat, light := math.Mod(hsl[0], 360), hsl[1], hsl[2]
		if sat > 100 || light > 100 {
			return Color{}, &ParseError{Input: s, Reason: "saturation and lightness must be 0-100%"}
		}
		return fromColorful(colorful.Hsl(h, sat/100, light/100)), nil
	}

	return Color{}, &ParseError{Input: s, Reason: "unsupported color notation"}
}

// Composite blends fg at the given opacity over an opaque backdrop and
// returns the effective opaque color. Opacity is clamped to [0, 1].
func Composite(fg Color, alpha float64, backdrop Color) Color {
	if alpha < 0 {
		alpha = 0
	}
	if alpha > 1 {
		alpha = 1
	}
	return fromColorful(toColorful(backdrop).BlendRgb(toColorful(fg), alpha))
}

// String renders the color in rgb() notation accepted by ParseColor.
func (c Color) String() string {
	return fmt.Sprintf("rgb(%d, %d, %d)", c.R, c.G, c.B)
}

// Hex renders the color as #rrggbb.
func (c Color) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// Luminance returns the WCAG relative luminance of c.
func (c Color) Luminance() float64 {
	return RelativeLuminance(c)
}

func toColorful(c Color) colorful.Color {
	return colorful.Color{
		R: float64(c.R) / 255.0,
		G: float64(c.G) / 255.0,
		B: float64(c.B) / 255.0,
	}
}

func fromColorful(c colorful.Color) Color {
	r, g, b := c.Clamped().RGB255()
	return Color{R: r, G: g, B: b}
}
