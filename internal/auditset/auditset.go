// Package auditset loads named collections of color pairs to audit.
package auditset

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/onnwee/telesis/internal/contrast"
)

// Validation errors.
var (
	ErrEmptySet     = errors.New("audit set has no pairs")
	ErrMissingLabel = errors.New("pair label is required")
	ErrInvalidLevel = errors.New("audit set level must be AA or AAA")
	ErrInvalidUnit  = errors.New("audit set unit must be px or pt")
)

// Entry is one pair as written in a set file.
type Entry struct {
	Label      string  `koanf:"label"`
	Text       string  `koanf:"text"`
	Foreground string  `koanf:"foreground"`
	Background string  `koanf:"background"`
	FontSize   float64 `koanf:"font_size"`
	FontWeight string  `koanf:"font_weight"`
}

// Set is a named collection of pairs evaluated together.
// Level and Unit apply to every pair; empty values take the engine defaults.
type Set struct {
	Name  string  `koanf:"name"`
	Title string  `koanf:"title"`
	Level string  `koanf:"level"`
	Unit  string  `koanf:"unit"`
	Pairs []Entry `koanf:"pairs"`
}

// Load reads a set from a YAML file. A set without a name is named after
// the file; a set without a title gets the default report title.
// Validation failures are joined into the returned error.
func Load(path string) (*Set, error) {
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("failed to load audit set %s: %w", path, err)
	}

	var set Set
	if err := k.Unmarshal("", &set); err != nil {
		return nil, fmt.Errorf("failed to decode audit set %s: %w", path, err)
	}

	if set.Name == "" {
		set.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	if set.Title == "" {
		set.Title = contrast.DefaultReportTitle
	}

	if errs := set.Validate(); len(errs) > 0 {
		return nil, fmt.Errorf("invalid audit set %s: %w", path, errors.Join(errs...))
	}
	return &set, nil
}

// Validate checks the set and returns every problem found (empty if valid).
// Color strings are not checked; unparseable colors are reported per entry
// at evaluation time.
func (s *Set) Validate() []error {
	var errs []error

	if len(s.Pairs) == 0 {
		errs = append(errs, ErrEmptySet)
	}
	if s.Level != "" {
		if _, err := contrast.ParseLevel(s.Level); err != nil {
			errs = append(errs, fmt.Errorf("%w: got %q", ErrInvalidLevel, s.Level))
		}
	}
	if _, err := contrast.ParseUnit(s.Unit); err != nil {
		errs = append(errs, fmt.Errorf("%w: got %q", ErrInvalidUnit, s.Unit))
	}
	for i, p := range s.Pairs {
		if strings.TrimSpace(p.Label) == "" {
			errs = append(errs, fmt.Errorf("pairs[%d]: %w", i, ErrMissingLabel))
		}
	}

	return errs
}

// EffectiveLevel returns the set's level, or fallback when the set names none.
func (s *Set) EffectiveLevel(fallback contrast.Level) contrast.Level {
	if level, err := contrast.ParseLevel(s.Level); err == nil {
		return level
	}
	return fallback
}

// ContrastPairs converts the entries to engine pairs, applying the set unit.
func (s *Set) ContrastPairs() []contrast.Pair {
	pairs := make([]contrast.Pair, len(s.Pairs))
	for i, e := range s.Pairs {
		pairs[i] = contrast.Pair{
			Label:      e.Label,
			Text:       e.Text,
			Foreground: e.Foreground,
			Background: e.Background,
			FontSize:   e.FontSize,
			FontUnit:   s.Unit,
			FontWeight: contrast.WeightSpec(e.FontWeight),
		}
	}
	return pairs
}
