package contrast

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// hexColorPattern matches #RGB and #RRGGBB (case insensitive).
var hexColorPattern = regexp.MustCompile(`^#([0-9A-Fa-f]{3}|[0-9A-Fa-f]{6})$`)

// ErrInvalidHexFormat is returned for strings that are not #RGB or #RRGGBB.
var ErrInvalidHexFormat = errors.New("invalid hex color format, expected #RGB or #RRGGBB")

// IsValidHexColor reports whether color is in #RGB or #RRGGBB form.
func IsValidHexColor(color string) bool {
	return hexColorPattern.MatchString(color)
}

// ParseHexColor parses #RGB or #RRGGBB into a Color. The short form repeats
// each digit, so #0af is #00aaff.
func ParseHexColor(hexColor string) (Color, error) {
	if !IsValidHexColor(hexColor) {
		return Color{}, fmt.Errorf("%w: got %q", ErrInvalidHexFormat, hexColor)
	}

	digits := strings.TrimPrefix(hexColor, "#")
	if len(digits) == 3 {
		digits = string([]byte{digits[0], digits[0], digits[1], digits[1], digits[2], digits[2]})
	}

	v, err := strconv.ParseUint(digits, 16, 32)
	if err != nil {
		return Color{}, fmt.Errorf("failed to parse hex color: %w", err)
	}

	return Color{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v)}, nil
}

