package contrast

import (
	"bytes"
	"fmt"
	"io"
)

// DefaultReportTitle is used when the caller does not name a report.
const DefaultReportTitle = "WCAG Color Contrast Report"

// maxTextPreview is the number of characters of element text shown per failure.
const maxTextPreview = 50

// Report summarises a batch of evaluations.
// Passing + Failing == Total; unparseable entries count as failing and are
// also counted in Unparseable.
type Report struct {
	Title       string   `json:"title" cbor:"title"`
	Level       Level    `json:"level" cbor:"level"`
	Total       int      `json:"total" cbor:"total"`
	Passing     int      `json:"passing" cbor:"passing"`
	Failing     int      `json:"failing" cbor:"failing"`
	Unparseable int      `json:"unparseable" cbor:"unparseable"`
	Results     []Result `json:"results" cbor:"results"`
}

// NewReport aggregates results, keeping their order.
func NewReport(title string, level Level, results []Result) Report {
	if results == nil {
		results = []Result{}
	}
	r := Report{
		Title:   title,
		Level:   level,
		Total:   len(results),
		Results: results,
	}
	for _, res := range results {
		if res.Passes {
			r.Passing++
		}
		if res.Outcome == OutcomeUnparseable {
			r.Unparseable++
		}
	}
	r.Failing = r.Total - r.Passing
	return r
}

// Passed reports whether every entry met its required ratio.
func (r Report) Passed() bool {
	return r.Failing == 0
}

// Failures returns the failing results in report order.
func (r Report) Failures() []Result {
	var out []Result
	for _, res := range r.Results {
		if !res.Passes {
			out = append(out, res)
		}
	}
	return out
}

// WriteText writes the plain-text console form of r.
func WriteText(w io.Writer, r Report) error {
	title := r.Title
	if title == "" {
		title = DefaultReportTitle
	}
	if r.Level != "" {
		title = fmt.Sprintf("%s (WCAG 2.1 %s)", title, r.Level)
	}

	overall := "PASS"
	if !r.Passed() {
		overall = "FAIL"
	}

	var buf bytes.Buffer
	fmt.Fprintln(&buf, title)
	fmt.Fprintln(&buf)
	fmt.Fprintf(&buf, "Total: %d\n", r.Total)
	fmt.Fprintf(&buf, "Passing: %d\n", r.Passing)
	fmt.Fprintf(&buf, "Failing: %d\n", r.Failing)
	fmt.Fprintf(&buf, "Overall: %s\n", overall)

	failures := r.Failures()
	if len(failures) > 0 {
		fmt.Fprintln(&buf)
		fmt.Fprintln(&buf, "Failures:")
		for i, res := range failures {
			fmt.Fprintf(&buf, "%d. %q\n", i+1, preview(res))
			if res.Evaluated() {
				fmt.Fprintf(&buf, "   Ratio: %.2f:1 (required %.1f:1)\n", res.Ratio, res.RequiredRatio)
			} else {
				fmt.Fprintf(&buf, "   Ratio: unavailable (required %.1f:1): %s\n", res.RequiredRatio, res.ErrorMessage)
			}
			fmt.Fprintf(&buf, "   Classification: %s\n", res.Classification)
			fmt.Fprintf(&buf, "   Foreground: %s\n", res.Foreground)
			fmt.Fprintf(&buf, "   Background: %s\n", res.Background)
		}
	}

	_, err := w.Write(buf.Bytes())
	return err
}

// Text returns the plain-text form of r.
func (r Report) Text() string {
	var buf bytes.Buffer
	_ = WriteText(&buf, r)
	return buf.String()
}

// preview returns the first maxTextPreview characters of the result's text,
// falling back to its label.
func preview(res Result) string {
	s := res.Text
	if s == "" {
		s = res.Label
	}
	runes := []rune(s)
	if len(runes) > maxTextPreview {
		return string(runes[:maxTextPreview])
	}
	return s
}
