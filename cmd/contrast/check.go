package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/onnwee/telesis/internal/contrast"
)

func (c *cli) checkCmd() *cobra.Command {
	var (
		pair   contrast.Pair
		weight string
		level  string
		format string
	)

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Evaluate a single color pair",
		Example: `  contrast check --fg "rgb(107, 114, 128)" --bg "rgb(255, 255, 255)" --size 14
  contrast check --fg "rgb(85, 124, 118)" --bg "rgb(255, 255, 255)" --weight bold --level AAA`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			lvl, err := c.level(level)
			if err != nil {
				return err
			}
			if weight != "" {
				pair.FontWeight = contrast.WeightSpec(weight)
			}
			if pair.Label == "" {
				pair.Label = "pair"
			}
			if _, err := pair.Typography(); err != nil {
				return err
			}

			result := c.engine().EvaluatePair(cmd.Context(), pair, lvl)
			if format == "" || format == string(contrast.FormatText) {
				if err := writeCheck(c.stdout, result); err != nil {
					return err
				}
				if !result.Passes {
					return errAuditFailed
				}
				return nil
			}
			report := contrast.NewReport("Contrast Check", lvl, []contrast.Result{result})
			return c.emit(report, format, "")
		},
	}

	f := cmd.Flags()
	f.StringVar(&pair.Foreground, "fg", "", "foreground color")
	f.StringVar(&pair.Background, "bg", "", "background color")
	f.Float64Var(&pair.FontSize, "size", 16, "font size")
	f.StringVar(&pair.FontUnit, "unit", "px", "font size unit (px or pt)")
	f.StringVar(&weight, "weight", "", "font weight (100-900, normal or bold)")
	f.StringVar(&pair.Label, "label", "", "label shown in the report")
	f.StringVar(&level, "level", "", "conformance level (AA or AAA)")
	f.StringVar(&format, "format", "text", "output format (text, json or cbor)")
	_ = cmd.MarkFlagRequired("fg")
	_ = cmd.MarkFlagRequired("bg")
	return cmd
}

func writeCheck(w io.Writer, res contrast.Result) error {
	var b strings.Builder
	fmt.Fprintf(&b, "Foreground: %s\n", res.Foreground)
	fmt.Fprintf(&b, "Background: %s\n", res.Background)
	if res.Evaluated() {
		fmt.Fprintf(&b, "Ratio: %.2f:1 (required %.1f:1)\n", res.Ratio, res.RequiredRatio)
	} else {
		fmt.Fprintf(&b, "Ratio: unavailable (required %.1f:1): %s\n", res.RequiredRatio, res.ErrorMessage)
	}
	fmt.Fprintf(&b, "Classification: %s\n", res.Classification)
	fmt.Fprintf(&b, "Level: WCAG 2.1 %s\n", res.Level)
	outcome := "PASS"
	if !res.Passes {
		outcome = "FAIL"
	}
	fmt.Fprintf(&b, "Result: %s\n", outcome)
	_, err := io.WriteString(w, b.String())
	return err
}
