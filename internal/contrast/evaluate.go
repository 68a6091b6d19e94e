package contrast

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/onnwee/telesis/internal/tracing"
)

// Outcome is the verdict of a single evaluation.
type Outcome string

const (
	OutcomePass        Outcome = "pass"
	OutcomeFail        Outcome = "fail"
	OutcomeUnparseable Outcome = "unparseable"
)

// Result is the verdict for one foreground/background pair.
// An unparseable pair has Outcome OutcomeUnparseable, Ratio 0 and Passes false;
// check Outcome (or Err) before treating Ratio as a measurement.
type Result struct {
	Label          string         `json:"label,omitempty" cbor:"label,omitempty"`
	Text           string         `json:"text,omitempty" cbor:"text,omitempty"`
	Ratio          float64        `json:"ratio" cbor:"ratio"`
	RequiredRatio  float64        `json:"required_ratio" cbor:"required_ratio"`
	Passes         bool           `json:"passes" cbor:"passes"`
	Outcome        Outcome        `json:"outcome" cbor:"outcome"`
	Level          Level          `json:"level" cbor:"level"`
	Classification Classification `json:"classification" cbor:"classification"`
	Typography     Text           `json:"typography" cbor:"typography"`

	// Foreground and Background hold the color strings as supplied.
	Foreground string `json:"foreground" cbor:"foreground"`
	Background string `json:"background" cbor:"background"`

	// ForegroundRGB and BackgroundRGB are zero when parsing failed.
	ForegroundRGB Color `json:"foreground_rgb" cbor:"foreground_rgb"`
	BackgroundRGB Color `json:"background_rgb" cbor:"background_rgb"`

	ErrorMessage string `json:"error,omitempty" cbor:"error,omitempty"`
	Err          error  `json:"-" cbor:"-"`
}

// Evaluated reports whether both colors parsed and Ratio is meaningful.
func (r Result) Evaluated() bool {
	return r.Outcome != OutcomeUnparseable
}

// Evaluate computes the verdict for two parsed colors.
func Evaluate(fg, bg Color, text Text, level Level) Result {
	class := text.Classification()
	required := RequiredRatio(level, class)
	ratio := Ratio(fg, bg)
	passes := ratio >= required

	outcome := OutcomeFail
	if passes {
		outcome = OutcomePass
	}

	return Result{
		Ratio:          ratio,
		RequiredRatio:  required,
		Passes:         passes,
		Outcome:        outcome,
		Level:          level,
		Classification: class,
		Typography:     text,
		Foreground:     fg.String(),
		Background:     bg.String(),
		ForegroundRGB:  fg,
		BackgroundRGB:  bg,
	}
}

// WeightSpec is a font weight as the caller wrote it: a number such as 700
// or a keyword such as "bold". JSON numbers and strings are both accepted.
type WeightSpec string

// UnmarshalJSON accepts a JSON string or number.
func (w *WeightSpec) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*w = WeightSpec(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidFontWeight, b)
	}
	*w = WeightSpec(n.String())
	return nil
}

// Pair is a labelled foreground/background combination in string form,
// as read from computed styles or an audit set.
type Pair struct {
	Label      string     `json:"label" cbor:"label"`
	Text       string     `json:"text,omitempty" cbor:"text,omitempty"`
	Foreground string     `json:"foreground" cbor:"foreground"`
	Background string     `json:"background" cbor:"background"`
	FontSize   float64    `json:"font_size,omitempty" cbor:"font_size,omitempty"`
	FontUnit   string     `json:"font_unit,omitempty" cbor:"font_unit,omitempty"`
	FontWeight WeightSpec `json:"font_weight,omitempty" cbor:"font_weight,omitempty"`
}

// Typography resolves the pair's typography. Missing fields take the
// defaults; invalid fields also take the defaults and are reported in err.
func (p Pair) Typography() (Text, error) {
	text := DefaultText
	if p.FontSize > 0 {
		text.Size = p.FontSize
	}

	unit, unitErr := ParseUnit(p.FontUnit)
	if unitErr == nil {
		text.Unit = unit
	}
	weight, weightErr := ParseFontWeight(string(p.FontWeight))
	if weightErr == nil {
		text.Weight = weight
	}

	return text, errors.Join(unitErr, weightErr)
}

// Options configures an Engine.
type Options struct {
	// Logger receives parse-failure warnings. Defaults to slog.Default().
	Logger *slog.Logger

	// Metrics is optional.
	Metrics *Metrics

	// BroadParsing accepts hex and hsl() notation in addition to rgb()/rgba().
	BroadParsing bool

	// Workers bounds parallel evaluation in EvaluateSet. Values below 2
	// evaluate sequentially.
	Workers int

	// ParallelThreshold is the smallest batch evaluated in parallel.
	ParallelThreshold int
}

// DefaultParallelThreshold is used when Options.ParallelThreshold is zero.
const DefaultParallelThreshold = 256

// Engine evaluates string-form pairs, logging parse failures.
// It holds no mutable state and is safe for concurrent use.
type Engine struct {
	logger    *slog.Logger
	metrics   *Metrics
	parse     func(string) (Color, error)
	workers   int
	threshold int
}

// NewEngine creates an Engine.
func NewEngine(opts Options) *Engine {
	e := &Engine{
		logger:    opts.Logger,
		metrics:   opts.Metrics,
		parse:     ParseColor,
		workers:   opts.Workers,
		threshold: opts.ParallelThreshold,
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	if opts.BroadParsing {
		e.parse = ParseCSSColor
	}
	if e.threshold <= 0 {
		e.threshold = DefaultParallelThreshold
	}
	return e
}

// ParseColor parses s with the engine's notation set and logs a warning on failure.
func (e *Engine) ParseColor(ctx context.Context, s string) (Color, error) {
	c, err := e.parse(s)
	if err != nil {
		e.logger.WarnContext(ctx, "could not parse color", "input", s, "error", err)
		return Color{}, err
	}
	return c, nil
}

// EvaluatePair parses and evaluates p. It never fails: unparseable colors
// yield an OutcomeUnparseable result with Ratio 0 and Passes false.
func (e *Engine) EvaluatePair(ctx context.Context, p Pair, level Level) Result {
	text, typoErr := p.Typography()
	if typoErr != nil {
		e.logger.WarnContext(ctx, "invalid typography, using defaults", "label", p.Label, "error", typoErr)
	}

	fg, fgErr := e.ParseColor(ctx, p.Foreground)
	bg, bgErr := e.ParseColor(ctx, p.Background)

	var res Result
	if fgErr != nil || bgErr != nil {
		var errs []error
		if fgErr != nil {
			errs = append(errs, fmt.Errorf("foreground: %w", fgErr))
		}
		if bgErr != nil {
			errs = append(errs, fmt.Errorf("background: %w", bgErr))
		}
		err := errors.Join(errs...)

		class := text.Classification()
		res = Result{
			RequiredRatio:  RequiredRatio(level, class),
			Outcome:        OutcomeUnparseable,
			Level:          level,
			Classification: class,
			Typography:     text,
			ErrorMessage:   err.Error(),
			Err:            err,
		}
	} else {
		res = Evaluate(fg, bg, text, level)
	}

	res.Label = p.Label
	res.Text = p.Text
	res.Foreground = p.Foreground
	res.Background = p.Background

	e.metrics.ObserveResult(res)
	return res
}

// EvaluateSet evaluates every pair and returns a report whose results are
// in input order. One bad entry never aborts the batch.
func (e *Engine) EvaluateSet(ctx context.Context, pairs []Pair, level Level) Report {
	ctx, endSpan := tracing.StartSpan(ctx, "contrast.evaluate_set")
	defer endSpan(nil)

	results := make([]Result, len(pairs))
	if e.workers > 1 && len(pairs) >= e.threshold {
		var g errgroup.Group
		g.SetLimit(e.workers)
		for i := range pairs {
			g.Go(func() error {
				results[i] = e.EvaluatePair(ctx, pairs[i], level)
				return nil
			})
		}
		_ = g.Wait()
	} else {
		for i := range pairs {
			results[i] = e.EvaluatePair(ctx, pairs[i], level)
		}
	}

	report := NewReport(DefaultReportTitle, level, results)

	tracing.SetAttributes(ctx,
		attribute.String("contrast.level", string(level)),
		attribute.Int("contrast.total", report.Total),
		attribute.Int("contrast.failing", report.Failing),
	)
	e.metrics.ObserveReport(report)

	return report
}
