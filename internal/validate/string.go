// Package validate provides input validation for caller-supplied strings
// and scan target URLs.
package validate

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// String validation errors
var (
	ErrStringTooLong     = errors.New("string is too long")
	ErrInvalidCharacters = errors.New("string contains invalid characters")
	ErrEmpty             = errors.New("string is empty")
)

// Length limits for report metadata.
const (
	MaxTitleLength = 200
	MaxLabelLength = 200
)

// StringConstraints defines validation constraints for a string.
type StringConstraints struct {
	MaxLength    int  // Maximum length in runes (0 = no maximum)
	AllowEmpty   bool // Whether empty strings are allowed
	TrimSpace    bool // Whether to trim whitespace before validation
	AllowNewline bool // Whether \n and \t are allowed; other control characters never are
}

// String validates s against the given constraints.
// Returns the validated (and optionally trimmed) string.
func String(s string, constraints StringConstraints) (string, error) {
	if constraints.TrimSpace {
		s = strings.TrimSpace(s)
	}

	if s == "" {
		if !constraints.AllowEmpty {
			return "", ErrEmpty
		}
		return s, nil
	}

	if !utf8.ValidString(s) {
		return "", fmt.Errorf("%w: not valid UTF-8", ErrInvalidCharacters)
	}

	if length := utf8.RuneCountInString(s); constraints.MaxLength > 0 && length > constraints.MaxLength {
		return "", fmt.Errorf("%w: got %d chars, maximum is %d", ErrStringTooLong, length, constraints.MaxLength)
	}

	for _, r := range s {
		if !unicode.IsControl(r) {
			continue
		}
		if constraints.AllowNewline && (r == '\n' || r == '\t') {
			continue
		}
		return "", fmt.Errorf("%w: control character %U", ErrInvalidCharacters, r)
	}

	return s, nil
}

// Title validates an optional report title:
// - Optional (can be empty)
// - Max 200 characters, no control characters
func Title(title string) (string, error) {
	return String(title, StringConstraints{
		MaxLength:  MaxTitleLength,
		AllowEmpty: true,
		TrimSpace:  true,
	})
}

// Label validates an optional pair label. Labels are not trimmed so that
// they round-trip into reports unchanged.
func Label(label string) (string, error) {
	return String(label, StringConstraints{
		MaxLength:  MaxLabelLength,
		AllowEmpty: true,
	})
}
